/*
Copyright 2025 LeadForge Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package leadforge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/leadforge/leadforge/internal/apierror"
	"github.com/leadforge/leadforge/model"
)

const jobKeyPrefix = "jobs:"

func jobKey(jobID string) string {
	return jobKeyPrefix + jobID
}

func jobEventsChannel(jobID string) string {
	return jobKeyPrefix + jobID + ":events"
}

func jobLeadsKey(jobID string) string {
	return jobKeyPrefix + jobID + ":leads"
}

// SetJobStatus writes the job's status, progress and error into its hash
// record and best-effort publishes the same snapshot to the job's event
// channel. The hash is the durable source of truth; publish failures are
// swallowed.
//
// Transitions are forward-only: a write whose status ranks below the
// persisted status is dropped, and a terminal status is never overwritten.
// Workers re-running a delivery can therefore never drag a job backwards.
func (l *LeadForge) SetJobStatus(ctx context.Context, jobID string, status model.JobStatus, progress float64, jobErr string) error {
	client, err := l.session(ctx)
	if err != nil {
		return err
	}

	current, err := client.HGet(ctx, jobKey(jobID), "status").Result()
	if err != nil && err != redis.Nil {
		return err
	}
	if err == nil {
		currentStatus := model.JobStatus(current)
		if currentStatus.Terminal() && status != currentStatus {
			logrus.Debugf("job %s already %s, dropping %s write", jobID, currentStatus, status)
			return nil
		}
		if status.Rank() < currentStatus.Rank() {
			logrus.Debugf("job %s at %s, dropping regressed %s write", jobID, currentStatus, status)
			return nil
		}
	}

	job := &model.Job{
		JobID:    jobID,
		Status:   status,
		Progress: progress,
		Error:    jobErr,
	}
	if err := client.HSet(ctx, jobKey(jobID), job.ToMap()).Err(); err != nil {
		return err
	}

	// Best-effort publish; observers fall back to the hash record.
	payload, err := json.Marshal(job)
	if err == nil {
		err = client.Publish(ctx, jobEventsChannel(jobID), payload).Err()
	}
	if err != nil {
		logrus.WithError(err).Debugf("failed to publish status for job %s", jobID)
	}

	return nil
}

// GetJobStatus reads a job's persisted state. An unknown job id is
// NOT_FOUND, never a default "queued".
func (l *LeadForge) GetJobStatus(ctx context.Context, jobID string) (*model.Job, error) {
	client, err := l.session(ctx)
	if err != nil {
		return nil, err
	}

	fields, err := client.HGetAll(ctx, jobKey(jobID)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, apierror.NewAPIError(apierror.ErrNotFound,
			fmt.Sprintf("job %s not found", jobID), jobID)
	}

	return model.JobFromMap(jobID, fields), nil
}

// StreamJobStatus attaches a live observer to a job. The subscription is
// opened before the persisted snapshot is emitted, so a job that finished
// before the observer attached still delivers its terminal state. Channel
// messages are then forwarded until a terminal status arrives or the bounded
// poll budget runs out, at which point the channel closes without error.
func (l *LeadForge) StreamJobStatus(ctx context.Context, jobID string) (<-chan *model.Job, error) {
	client, err := l.session(ctx)
	if err != nil {
		return nil, err
	}

	snapshot, err := l.GetJobStatus(ctx, jobID)
	if err != nil {
		return nil, err
	}

	sub := client.Subscribe(ctx, jobEventsChannel(jobID))
	events := make(chan *model.Job, 1)

	go func() {
		defer close(events)
		defer func() {
			if err := sub.Close(); err != nil {
				logrus.WithError(err).Debugf("failed to close subscription for job %s", jobID)
			}
		}()

		// Re-read after subscribing: the pre-subscribe snapshot above only
		// validated existence, this one is the state observers start from.
		if job, err := l.GetJobStatus(ctx, jobID); err == nil {
			snapshot = job
		}
		if !emitJob(ctx, events, snapshot) || snapshot.Status.Terminal() {
			return
		}

		lastRank := snapshot.Status.Rank()
		ch := sub.Channel()
		ticker := time.NewTicker(l.streamPollInterval)
		defer ticker.Stop()

		for polls := 0; polls < l.streamMaxPolls; {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var job model.Job
				if err := json.Unmarshal([]byte(msg.Payload), &job); err != nil {
					logrus.WithError(err).Debugf("dropping malformed event for job %s", jobID)
					continue
				}
				job.JobID = jobID
				if job.Status.Rank() < lastRank {
					// Stale event from before the snapshot read.
					continue
				}
				lastRank = job.Status.Rank()
				if !emitJob(ctx, events, &job) {
					return
				}
				if job.Status.Terminal() {
					return
				}
			case <-ticker.C:
				polls++
			}
		}
	}()

	return events, nil
}

func emitJob(ctx context.Context, events chan<- *model.Job, job *model.Job) bool {
	select {
	case events <- job:
		return true
	case <-ctx.Done():
		return false
	}
}
