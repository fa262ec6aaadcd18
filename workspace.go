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
	"strings"

	"github.com/go-redis/cache/v9"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/leadforge/leadforge/internal/apierror"
	"github.com/leadforge/leadforge/model"
)

const (
	workspaceKeyPrefix = "workspaces:"
	workspaceKeySuffix = ":keys"
	workspaceScanGlob  = "workspaces:*:keys"

	workspaceCachePrefix = "cache:workspaces:"
)

// workspaceKey returns the hash key a workspace record lives under. The
// shape workspaces:{id}:keys is a contract with external tooling.
func workspaceKey(workspaceID string) string {
	return workspaceKeyPrefix + workspaceID + workspaceKeySuffix
}

func workspaceIDFromKey(key string) string {
	parts := strings.Split(key, ":")
	if len(parts) >= 3 {
		return parts[1]
	}
	return key
}

// CreateWorkspace creates a tenant configuration record under a lock named
// create:{id}. A record that already exists under the id is returned
// unchanged: duplicate creates racing on the same caller-chosen id are
// expected under retry, so this is a merge, not a conflict. The write is
// re-read before the lock is released; an empty re-read is a storage
// failure (WRITE_NOT_DURABLE), distinct from a connectivity failure.
func (l *LeadForge) CreateWorkspace(ctx context.Context, workspace *model.Workspace) (*model.Workspace, error) {
	ctx, span := otel.Tracer("leadforge.workspaces").Start(ctx, "CreateWorkspace")
	defer span.End()

	if workspace.Provider == "" {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "provider is required", nil)
	}
	if workspace.WorkspaceID == "" {
		workspace.WorkspaceID = model.GenerateID()
	}

	client, err := l.session(ctx)
	if err != nil {
		return nil, err
	}

	payload, _ := json.Marshal(workspace)
	ops := l.operations(client)
	op := model.NewOperation(model.OperationCreate, workspace.WorkspaceID, string(payload))
	if _, err := ops.Record(ctx, op); err != nil {
		return nil, err
	}

	locker := l.locker(client)
	token, err := locker.Acquire(ctx, "create:"+workspace.WorkspaceID, l.lockTTL)
	if err != nil {
		l.markOperation(ctx, client, op.OperationID, model.OperationFailed, err)
		return nil, err
	}
	defer locker.Release(ctx, "create:"+workspace.WorkspaceID, token)

	key := workspaceKey(workspace.WorkspaceID)
	existing, err := client.HGetAll(ctx, key).Result()
	if err != nil {
		l.markOperation(ctx, client, op.OperationID, model.OperationFailed, err)
		return nil, err
	}
	if len(existing) > 0 {
		// Idempotent create: the stored record wins.
		l.markOperation(ctx, client, op.OperationID, model.OperationCompleted, nil)
		return model.WorkspaceFromMap(workspace.WorkspaceID, existing), nil
	}

	if err := client.HSet(ctx, key, workspace.ToMap()).Err(); err != nil {
		l.markOperation(ctx, client, op.OperationID, model.OperationFailed, err)
		return nil, err
	}

	stored, err := client.HGetAll(ctx, key).Result()
	if err != nil {
		l.markOperation(ctx, client, op.OperationID, model.OperationFailed, err)
		return nil, err
	}
	if len(stored) == 0 {
		durabilityErr := apierror.NewAPIError(apierror.ErrWriteNotDurable,
			fmt.Sprintf("workspace %s not found after storage", workspace.WorkspaceID), workspace.WorkspaceID)
		l.markOperation(ctx, client, op.OperationID, model.OperationFailed, durabilityErr)
		return nil, durabilityErr
	}

	created := model.WorkspaceFromMap(workspace.WorkspaceID, stored)
	l.cacheWorkspace(ctx, created)
	l.markOperation(ctx, client, op.OperationID, model.OperationCompleted, nil)
	return created, nil
}

// GetWorkspace is an unlocked read of a single workspace record.
func (l *LeadForge) GetWorkspace(ctx context.Context, workspaceID string) (*model.Workspace, error) {
	ctx, span := otel.Tracer("leadforge.workspaces").Start(ctx, "GetWorkspace")
	defer span.End()

	var cached model.Workspace
	if err := l.cache.Get(ctx, workspaceCachePrefix+workspaceID, &cached); err == nil {
		return &cached, nil
	}

	client, err := l.session(ctx)
	if err != nil {
		return nil, err
	}

	fields, err := client.HGetAll(ctx, workspaceKey(workspaceID)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, apierror.NewAPIError(apierror.ErrNotFound,
			fmt.Sprintf("workspace %s not found", workspaceID), workspaceID)
	}

	workspace := model.WorkspaceFromMap(workspaceID, fields)
	l.cacheWorkspace(ctx, workspace)
	return workspace, nil
}

// ListWorkspaces is a single unlocked scan over the workspace namespace
// followed by a per-key read. There is no snapshot isolation: concurrent
// creates and deletes may or may not be reflected.
func (l *LeadForge) ListWorkspaces(ctx context.Context) ([]*model.Workspace, error) {
	ctx, span := otel.Tracer("leadforge.workspaces").Start(ctx, "ListWorkspaces")
	defer span.End()

	client, err := l.session(ctx)
	if err != nil {
		return nil, err
	}

	keys, err := client.Keys(ctx, workspaceScanGlob).Result()
	if err != nil {
		return nil, err
	}

	workspaces := make([]*model.Workspace, 0, len(keys))
	for _, key := range keys {
		fields, err := client.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, err
		}
		if len(fields) == 0 {
			// Deleted between scan and read.
			continue
		}
		workspaces = append(workspaces, model.WorkspaceFromMap(workspaceIDFromKey(key), fields))
	}

	return workspaces, nil
}

// DeleteWorkspace removes a workspace record under a lock named delete:{id}.
// Deleting an absent workspace is NOT_FOUND, every time.
func (l *LeadForge) DeleteWorkspace(ctx context.Context, workspaceID string) (bool, error) {
	ctx, span := otel.Tracer("leadforge.workspaces").Start(ctx, "DeleteWorkspace")
	defer span.End()

	client, err := l.session(ctx)
	if err != nil {
		return false, err
	}

	ops := l.operations(client)
	op := model.NewOperation(model.OperationDelete, workspaceID, "")
	if _, err := ops.Record(ctx, op); err != nil {
		return false, err
	}

	locker := l.locker(client)
	token, err := locker.Acquire(ctx, "delete:"+workspaceID, l.lockTTL)
	if err != nil {
		l.markOperation(ctx, client, op.OperationID, model.OperationFailed, err)
		return false, err
	}
	defer locker.Release(ctx, "delete:"+workspaceID, token)

	key := workspaceKey(workspaceID)
	fields, err := client.HGetAll(ctx, key).Result()
	if err != nil {
		l.markOperation(ctx, client, op.OperationID, model.OperationFailed, err)
		return false, err
	}
	if len(fields) == 0 {
		notFound := apierror.NewAPIError(apierror.ErrNotFound,
			fmt.Sprintf("workspace %s not found", workspaceID), workspaceID)
		l.markOperation(ctx, client, op.OperationID, model.OperationFailed, notFound)
		return false, notFound
	}

	if err := client.Del(ctx, key).Err(); err != nil {
		l.markOperation(ctx, client, op.OperationID, model.OperationFailed, err)
		return false, err
	}

	if err := l.cache.Delete(ctx, workspaceCachePrefix+workspaceID); err != nil {
		logrus.WithError(err).Debugf("failed to invalidate cache for workspace %s", workspaceID)
	}
	l.markOperation(ctx, client, op.OperationID, model.OperationCompleted, nil)
	return true, nil
}

func (l *LeadForge) cacheWorkspace(ctx context.Context, workspace *model.Workspace) {
	if err := l.cache.Set(&cache.Item{
		Ctx:   ctx,
		Key:   workspaceCachePrefix + workspace.WorkspaceID,
		Value: workspace,
		TTL:   workspaceCacheTTL,
	}); err != nil {
		logrus.WithError(err).Debugf("failed to cache workspace %s", workspace.WorkspaceID)
	}
}

// markOperation applies the operation's terminal status. A mark that fails is
// logged and dropped: the log exists for diagnosis, not correctness.
func (l *LeadForge) markOperation(ctx context.Context, client redis.UniversalClient, operationID string, status model.OperationStatus, opErr error) {
	if err := l.operations(client).Mark(ctx, operationID, status, opErr); err != nil {
		logrus.WithError(err).Warnf("failed to mark operation %s as %s", operationID, status)
	}
}
