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
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadforge/leadforge/internal/apierror"
	"github.com/leadforge/leadforge/model"
)

type failingSynthesizer struct{}

func (failingSynthesizer) Synthesize(_ context.Context, _ model.LeadInput, _ *model.MinedSignals, _ *model.ValidationReport) (*model.EnrichedLead, error) {
	return nil, errors.New("provider quota exceeded")
}

func TestProcessLead(t *testing.T) {
	forge := newTestForge(t)
	ctx := context.Background()

	enriched, err := forge.ProcessLead(ctx, model.LeadInput{Company: "Acme Corp"}, "", "")
	require.NoError(t, err)
	assert.NotEmpty(t, enriched.LeadID)
	assert.Equal(t, "Acme Corp", enriched.Company)
	assert.NotEmpty(t, enriched.Wedge)
	assert.GreaterOrEqual(t, enriched.FitScore, 0)
	assert.LessOrEqual(t, enriched.FitScore, 100)

	stored, err := forge.GetLead(ctx, enriched.LeadID)
	require.NoError(t, err)
	assert.Equal(t, enriched.Company, stored.Company)
	assert.Equal(t, enriched.FitScore, stored.FitScore)
}

func TestProcessLeadEmptyCompany(t *testing.T) {
	forge := newTestForge(t)

	enriched, err := forge.ProcessLead(context.Background(), model.LeadInput{}, "", "")
	require.NoError(t, err)
	assert.Equal(t, "Unknown Co", enriched.Company)
}

func TestEnqueueLeadsProcessesBatch(t *testing.T) {
	forge := newTestForge(t)
	ctx := context.Background()

	jobID, err := forge.EnqueueLeads(ctx, "", []model.LeadInput{
		{Company: "Acme Corp"},
		{Company: "Beta LLC"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	job, err := forge.GetJobStatus(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusComplete, job.Status)
	assert.Equal(t, 1.0, job.Progress)
	assert.Empty(t, job.Error)

	leads, total, err := forge.ListLeads(ctx, 1, 50)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, leads, 2)
}

func TestEnqueueLeadsEmptyBatch(t *testing.T) {
	forge := newTestForge(t)

	_, err := forge.EnqueueLeads(context.Background(), "", nil)
	require.Error(t, err)
	assert.True(t, apierror.IsCode(err, apierror.ErrBadRequest))
}

func TestEnqueueLeadsUnknownWorkspace(t *testing.T) {
	forge := newTestForge(t)

	_, err := forge.EnqueueLeads(context.Background(), "ws_missing", []model.LeadInput{{Company: "Acme Corp"}})
	require.Error(t, err)
	assert.True(t, apierror.IsCode(err, apierror.ErrNotFound))
}

func TestEnqueueLeadsWithWorkspace(t *testing.T) {
	forge := newTestForge(t)
	ctx := context.Background()

	workspace, err := forge.CreateWorkspace(ctx, &model.Workspace{Provider: "openai"})
	require.NoError(t, err)

	jobID, err := forge.EnqueueLeads(ctx, workspace.WorkspaceID, []model.LeadInput{{Company: "Acme Corp"}})
	require.NoError(t, err)

	job, err := forge.GetJobStatus(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusComplete, job.Status)
}

func TestFailingStageMarksJobFailed(t *testing.T) {
	forge := newTestForge(t)
	forge.synthesizer = failingSynthesizer{}
	ctx := context.Background()

	jobID, err := forge.EnqueueLeads(ctx, "", []model.LeadInput{{Company: "Acme Corp"}})
	require.Error(t, err)
	assert.True(t, apierror.IsCode(err, apierror.ErrStageFailed))
	require.NotEmpty(t, jobID)

	job, statusErr := forge.GetJobStatus(ctx, jobID)
	require.NoError(t, statusErr)
	assert.Equal(t, model.StatusFailed, job.Status)
	assert.NotEmpty(t, job.Error)
	// The failure write keeps the last checkpoint reached, not zero.
	assert.Equal(t, 0.7, job.Progress)

	// No partial result survives a failed stage.
	_, total, listErr := forge.ListLeads(ctx, 1, 50)
	require.NoError(t, listErr)
	assert.Equal(t, 0, total)
}

func TestFailingStageNotifies(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	forge := newTestForge(t)
	forge.synthesizer = failingSynthesizer{}

	_, err := forge.EnqueueLeads(context.Background(), "", []model.LeadInput{{Company: "Acme Corp"}})
	require.Error(t, err)

	notified := false
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.ErrorLevel && strings.Contains(entry.Message, "provider quota exceeded") {
			notified = true
		}
	}
	assert.True(t, notified, "stage failure should be reported through the notifier")
}

func TestProcessJobHoldsJobLock(t *testing.T) {
	forge := newTestForge(t)
	ctx := context.Background()

	jobID := model.GenerateID()
	require.NoError(t, forge.SetJobStatus(ctx, jobID, model.StatusQueued, 0, ""))

	client, err := forge.session(ctx)
	require.NoError(t, err)
	locker := forge.locker(client)

	// A second executor holding the job lock blocks the batch outright.
	token, err := locker.Acquire(ctx, "job:"+jobID, time.Minute)
	require.NoError(t, err)

	err = forge.ProcessJob(ctx, jobID, "", []model.LeadInput{{Company: "Acme Corp"}})
	require.Error(t, err)
	assert.True(t, apierror.IsCode(err, apierror.ErrLockBusy))

	job, err := forge.GetJobStatus(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusQueued, job.Status)

	// Once the other holder releases, the batch runs and releases its own
	// lock when done.
	require.True(t, locker.Release(ctx, "job:"+jobID, token))
	require.NoError(t, forge.ProcessJob(ctx, jobID, "", []model.LeadInput{
		{Company: "Acme Corp"},
		{Company: "Beta LLC"},
	}))

	held, err := client.Exists(ctx, "locks:job:"+jobID).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), held)
}

func TestPendingJobsEmbedded(t *testing.T) {
	forge := newTestForge(t)

	// The embedded development store has no worker queue, so the backlog
	// reads as empty rather than erroring.
	pending, err := forge.PendingJobs()
	require.NoError(t, err)
	assert.Equal(t, 0, pending)
}

func TestProcessJobStatusMonotoneAcrossLeads(t *testing.T) {
	forge := newTestForge(t)
	ctx := context.Background()

	jobID := model.GenerateID()
	require.NoError(t, forge.SetJobStatus(ctx, jobID, model.StatusQueued, 0, ""))
	require.NoError(t, forge.ProcessJob(ctx, jobID, "", []model.LeadInput{
		{Company: "Acme Corp"},
		{Company: "Beta LLC"},
	}))

	// The second lead's early-stage writes rank below the first lead's later
	// ones and are dropped, so the persisted record never moved backwards.
	job, err := forge.GetJobStatus(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusComplete, job.Status)
	assert.Equal(t, 1.0, job.Progress)
}
