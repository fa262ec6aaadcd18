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

// Package oplog records the intent and outcome of state-changing workspace
// calls. Records carry a bounded TTL and are garbage-collected by the store
// itself; the log exists for post-hoc diagnosis, never for replay.
package oplog

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/leadforge/leadforge/internal/apierror"
	"github.com/leadforge/leadforge/model"
)

const (
	operationKeyPrefix = "operations:"
	operationQueueKey  = "workspace_operations_queue"
)

// Log is a Redis-backed operation audit log. Each operation id is written by
// exactly one logical caller, so there are no read-modify-write races.
type Log struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewLog(client redis.UniversalClient, ttl time.Duration) *Log {
	return &Log{
		client: client,
		ttl:    ttl,
	}
}

func operationKey(operationID string) string {
	return operationKeyPrefix + operationID
}

// Record persists the operation before its guarded action executes,
// establishing the audit trail regardless of the action's outcome. The id is
// also pushed onto a queue list for observability tooling.
func (l *Log) Record(ctx context.Context, op *model.Operation) (string, error) {
	key := operationKey(op.OperationID)
	fields := map[string]interface{}{
		"operation_id":   op.OperationID,
		"operation_type": string(op.Type),
		"workspace_id":   op.WorkspaceID,
		"data":           op.Payload,
		"timestamp":      op.Timestamp.Format(time.RFC3339Nano),
		"status":         string(op.Status),
		"error":          op.Error,
	}

	pipe := l.client.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, l.ttl)
	pipe.LPush(ctx, operationQueueKey, op.OperationID)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("failed to record operation %s: %w", op.OperationID, err)
	}

	return op.OperationID, nil
}

// Mark applies the single terminal status update for an operation. It is
// called exactly once by the operation's executor.
func (l *Log) Mark(ctx context.Context, operationID string, status model.OperationStatus, opErr error) error {
	fields := map[string]interface{}{"status": string(status)}
	if opErr != nil {
		fields["error"] = opErr.Error()
	}
	return l.client.HSet(ctx, operationKey(operationID), fields).Err()
}

// Get reads an operation back for diagnosis. Records expire store-side, so a
// NOT_FOUND after the bounded window is expected staleness, not corruption.
func (l *Log) Get(ctx context.Context, operationID string) (*model.Operation, error) {
	fields, err := l.client.HGetAll(ctx, operationKey(operationID)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, apierror.NewAPIError(apierror.ErrNotFound,
			fmt.Sprintf("operation %s not found", operationID), operationID)
	}

	timestamp, _ := time.Parse(time.RFC3339Nano, fields["timestamp"])
	return &model.Operation{
		OperationID: operationID,
		Type:        model.OperationType(fields["operation_type"]),
		WorkspaceID: fields["workspace_id"],
		Payload:     fields["data"],
		Timestamp:   timestamp,
		Status:      model.OperationStatus(fields["status"]),
		Error:       fields["error"],
	}, nil
}
