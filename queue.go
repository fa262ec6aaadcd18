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
	"log"

	"github.com/hibiken/asynq"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/leadforge/leadforge/config"
	"github.com/leadforge/leadforge/internal/apierror"
	redis_db "github.com/leadforge/leadforge/internal/redis-db"
	"github.com/leadforge/leadforge/model"
)

// TaskProcessJob is the asynq task type carrying one enrichment batch. One
// task owns one whole job, so exactly one executor advances its status.
const TaskProcessJob = "job:process"

// Queue represents a queue for dispatching enrichment jobs to workers.
type Queue struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector
}

// JobPayload is the task body for TaskProcessJob.
type JobPayload struct {
	JobID       string            `json:"job_id"`
	WorkspaceID string            `json:"workspace_id,omitempty"`
	Leads       []model.LeadInput `json:"leads"`
}

// NewQueue initializes a new Queue instance with the provided configuration.
func NewQueue(conf *config.Configuration) *Queue {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
	if err != nil {
		log.Fatalf("Error parsing Redis URL: %v", err)
	}

	queueOptions := asynq.RedisClientOpt{Addr: redisOption.Addr, Password: redisOption.Password, DB: redisOption.DB, TLSConfig: redisOption.TLSConfig}
	client := asynq.NewClient(queueOptions)
	inspector := asynq.NewInspector(queueOptions)
	return &Queue{
		Client:    client,
		Inspector: inspector,
	}
}

// PendingJobs reports how many enrichment batches are waiting in the default
// queue. Against the embedded development store there is no queue, so the
// backlog is always zero.
func (l *LeadForge) PendingJobs() (int, error) {
	if l.queue == nil {
		return 0, nil
	}
	info, err := l.queue.Inspector.GetQueueInfo("default")
	if err != nil {
		return 0, err
	}
	return info.Pending, nil
}

// EnqueueLeads creates the job record (queued, progress 0) and hands the
// batch to the background workers. Against the embedded development store
// there are no workers, so the batch is processed inline instead; the job
// id is returned either way, alongside any inline processing error.
func (l *LeadForge) EnqueueLeads(ctx context.Context, workspaceID string, leads []model.LeadInput) (string, error) {
	ctx, span := otel.Tracer("leadforge.queue").Start(ctx, "EnqueueLeads")
	defer span.End()

	if len(leads) == 0 {
		return "", apierror.NewAPIError(apierror.ErrBadRequest, "no leads provided", nil)
	}
	if workspaceID != "" {
		if _, err := l.GetWorkspace(ctx, workspaceID); err != nil {
			return "", err
		}
	}

	jobID := model.GenerateID()
	if err := l.SetJobStatus(ctx, jobID, model.StatusQueued, progressQueued, ""); err != nil {
		return "", err
	}

	if l.queue == nil {
		// Inline fallback: the job record already reflects the outcome.
		return jobID, l.ProcessJob(ctx, jobID, workspaceID, leads)
	}

	payload, err := json.Marshal(JobPayload{JobID: jobID, WorkspaceID: workspaceID, Leads: leads})
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal job payload")
	}

	task := asynq.NewTask(TaskProcessJob, payload)
	if _, err := l.queue.Client.EnqueueContext(ctx, task); err != nil {
		if failErr := l.SetJobStatus(ctx, jobID, model.StatusFailed, progressQueued, err.Error()); failErr != nil {
			return "", failErr
		}
		return "", err
	}

	return jobID, nil
}
