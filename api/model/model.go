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

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/leadforge/leadforge/model"
)

// WorkspaceKeys carries the provider credentials for a workspace.
type WorkspaceKeys struct {
	OpenAIKey string `json:"openai_key"`
	GeminiKey string `json:"gemini_key"`
	TavilyKey string `json:"tavily_key"`
}

// CreateWorkspace is the request body for POST /workspaces. The workspace id
// is caller-supplied or generated server-side.
type CreateWorkspace struct {
	WorkspaceID string        `json:"workspace_id"`
	Provider    string        `json:"provider"`
	Keys        WorkspaceKeys `json:"keys"`
}

func (w *CreateWorkspace) ValidateCreateWorkspace() error {
	return validation.ValidateStruct(w,
		validation.Field(&w.Provider, validation.Required, validation.In("openai", "gemini")),
	)
}

func (w *CreateWorkspace) ToWorkspace() *model.Workspace {
	return &model.Workspace{
		WorkspaceID: w.WorkspaceID,
		Provider:    w.Provider,
		OpenAIKey:   w.Keys.OpenAIKey,
		GeminiKey:   w.Keys.GeminiKey,
		TavilyKey:   w.Keys.TavilyKey,
	}
}

// EnqueueJob is the request body for POST /enqueue.
type EnqueueJob struct {
	WorkspaceID string            `json:"workspace_id"`
	Leads       []model.LeadInput `json:"leads"`
}

func (e *EnqueueJob) ValidateEnqueueJob() error {
	return validation.ValidateStruct(e,
		validation.Field(&e.Leads, validation.Required, validation.Length(1, 0)),
	)
}
