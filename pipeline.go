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

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/leadforge/leadforge/internal/apierror"
	"github.com/leadforge/leadforge/internal/notification"
	"github.com/leadforge/leadforge/model"
)

// Progress checkpoints advanced as a lead moves through the pipeline.
const (
	progressQueued       = 0.0
	progressMining       = 0.1
	progressValidating   = 0.4
	progressSynthesizing = 0.7
	progressComplete     = 1.0
)

// Miner gathers external buying signals for a lead. The orchestrator treats
// it as an opaque, synchronous transform.
type Miner interface {
	Mine(ctx context.Context, lead model.LeadInput) (*model.MinedSignals, error)
}

// Validator runs competitive checks and tech-stack inference for a lead.
type Validator interface {
	Validate(ctx context.Context, lead model.LeadInput) (*model.ValidationReport, error)
}

// Synthesizer combines mined signals and validation into the enriched lead.
type Synthesizer interface {
	Synthesize(ctx context.Context, lead model.LeadInput, mined *model.MinedSignals, report *model.ValidationReport) (*model.EnrichedLead, error)
}

// ProcessLead runs one lead through mine → validate → synthesize, advancing
// the job's status at each checkpoint. A failing stage marks the job failed
// with the stage's error and re-raises it; no partial result is persisted.
// On success the synthesized record is written under leads:{id} and the lead
// id is attached to the job.
func (l *LeadForge) ProcessLead(ctx context.Context, lead model.LeadInput, jobID, workspaceID string) (*model.EnrichedLead, error) {
	ctx, span := otel.Tracer("leadforge.pipeline").Start(ctx, "ProcessLead")
	defer span.End()

	advance := func(status model.JobStatus, progress float64) {
		if jobID == "" {
			return
		}
		if err := l.SetJobStatus(ctx, jobID, status, progress, ""); err != nil {
			logrus.WithError(err).Warnf("failed to advance job %s to %s", jobID, status)
		}
	}

	advance(model.StatusMining, progressMining)
	mined, err := l.miner.Mine(ctx, lead)
	if err != nil {
		return nil, l.failStage(ctx, jobID, "mine", err)
	}

	advance(model.StatusValidating, progressValidating)
	report, err := l.validator.Validate(ctx, lead)
	if err != nil {
		return nil, l.failStage(ctx, jobID, "validate", err)
	}

	advance(model.StatusSynthesizing, progressSynthesizing)
	enriched, err := l.synthesizer.Synthesize(ctx, lead, mined, report)
	if err != nil {
		return nil, l.failStage(ctx, jobID, "synthesize", err)
	}

	if enriched.LeadID == "" {
		if lead.LeadID != "" {
			enriched.LeadID = lead.LeadID
		} else {
			enriched.LeadID = model.GenerateID()
		}
	}

	client, err := l.session(ctx)
	if err != nil {
		return nil, l.failStage(ctx, jobID, "persist", err)
	}
	if err := client.HSet(ctx, leadKey(enriched.LeadID), enriched.ToMap()).Err(); err != nil {
		return nil, l.failStage(ctx, jobID, "persist", err)
	}
	if jobID != "" {
		if err := client.LPush(ctx, jobLeadsKey(jobID), enriched.LeadID).Err(); err != nil {
			logrus.WithError(err).Warnf("failed to attach lead %s to job %s", enriched.LeadID, jobID)
		}
	}

	return enriched, nil
}

// ProcessJob runs every lead of a batch through the pipeline in order, then
// marks the job complete. The batch runs under a job:{id} lock, so a
// duplicate delivery fails fast with LOCK_BUSY instead of interleaving stage
// writes with the first executor. The first failing lead stops the batch;
// the job is already failed by then.
func (l *LeadForge) ProcessJob(ctx context.Context, jobID, workspaceID string, leads []model.LeadInput) error {
	ctx, span := otel.Tracer("leadforge.pipeline").Start(ctx, "ProcessJob")
	defer span.End()

	client, err := l.session(ctx)
	if err != nil {
		return err
	}

	locker := l.locker(client)
	resource := "job:" + jobID
	token, err := locker.Acquire(ctx, resource, l.lockTTL)
	if err != nil {
		return err
	}
	defer locker.Release(ctx, resource, token)

	for i, lead := range leads {
		if i > 0 {
			// A long batch can outlive the lock TTL; refresh between leads
			// while we still hold it.
			if err := locker.Extend(ctx, resource, token, l.lockTTL); err != nil {
				return err
			}
		}
		if _, err := l.ProcessLead(ctx, lead, jobID, workspaceID); err != nil {
			return err
		}
	}

	return l.SetJobStatus(ctx, jobID, model.StatusComplete, progressComplete, "")
}

// failStage marks the job failed with the stage error preserved, then
// returns the error wrapped in the stage taxonomy for the caller. The last
// progress checkpoint survives the failure write, so a job that died in
// synthesize still reads 0.7.
func (l *LeadForge) failStage(ctx context.Context, jobID, stage string, stageErr error) error {
	trace.SpanFromContext(ctx).RecordError(stageErr)
	notification.NotifyError(stageErr)
	if jobID != "" {
		progress := progressQueued
		if job, err := l.GetJobStatus(ctx, jobID); err == nil {
			progress = job.Progress
		}
		if err := l.SetJobStatus(ctx, jobID, model.StatusFailed, progress, stageErr.Error()); err != nil {
			logrus.WithError(err).Errorf("failed to mark job %s as failed", jobID)
		}
	}
	if apiErr, ok := stageErr.(apierror.APIError); ok {
		return apiErr
	}
	return apierror.NewAPIError(apierror.ErrStageFailed, stage+" stage failed", stageErr.Error())
}
