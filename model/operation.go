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

package model

import "time"

// OperationType identifies the kind of state-changing call an operation
// record describes.
type OperationType string

const (
	OperationCreate OperationType = "create"
	OperationRead   OperationType = "read"
	OperationUpdate OperationType = "update"
	OperationDelete OperationType = "delete"
)

// OperationStatus is the outcome recorded by the operation's executor.
type OperationStatus string

const (
	OperationPending   OperationStatus = "pending"
	OperationCompleted OperationStatus = "completed"
	OperationFailed    OperationStatus = "failed"
)

// Operation is an audit record of one attempted state-changing call. Records
// expire store-side after a bounded window; they exist for post-hoc diagnosis,
// not for recovery or replay.
type Operation struct {
	OperationID string          `json:"operation_id"`
	Type        OperationType   `json:"operation_type"`
	WorkspaceID string          `json:"workspace_id"`
	Payload     string          `json:"data"`
	Timestamp   time.Time       `json:"timestamp"`
	Status      OperationStatus `json:"status"`
	Error       string          `json:"error,omitempty"`
}

// NewOperation builds a pending operation with a fresh id and the current
// timestamp.
func NewOperation(opType OperationType, workspaceID, payload string) *Operation {
	return &Operation{
		OperationID: GenerateID(),
		Type:        opType,
		WorkspaceID: workspaceID,
		Payload:     payload,
		Timestamp:   time.Now().UTC(),
		Status:      OperationPending,
	}
}
