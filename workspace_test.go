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
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadforge/leadforge/internal/apierror"
	"github.com/leadforge/leadforge/model"
)

func TestCreateWorkspace(t *testing.T) {
	forge := newTestForge(t)
	ctx := context.Background()

	workspace := &model.Workspace{
		Provider:  "openai",
		OpenAIKey: gofakeit.UUID(),
		TavilyKey: gofakeit.UUID(),
	}

	created, err := forge.CreateWorkspace(ctx, workspace)
	require.NoError(t, err)
	assert.NotEmpty(t, created.WorkspaceID)
	assert.Equal(t, "openai", created.Provider)

	fetched, err := forge.GetWorkspace(ctx, created.WorkspaceID)
	require.NoError(t, err)
	assert.Equal(t, created.WorkspaceID, fetched.WorkspaceID)
	assert.Equal(t, workspace.OpenAIKey, fetched.OpenAIKey)
	assert.Equal(t, workspace.TavilyKey, fetched.TavilyKey)
}

func TestCreateWorkspaceRequiresProvider(t *testing.T) {
	forge := newTestForge(t)

	_, err := forge.CreateWorkspace(context.Background(), &model.Workspace{
		OpenAIKey: gofakeit.UUID(),
	})
	require.Error(t, err)
	assert.True(t, apierror.IsCode(err, apierror.ErrInvalidInput))
}

func TestCreateWorkspaceIdempotent(t *testing.T) {
	forge := newTestForge(t)
	ctx := context.Background()

	id := gofakeit.UUID()
	first, err := forge.CreateWorkspace(ctx, &model.Workspace{
		WorkspaceID: id,
		Provider:    "openai",
		OpenAIKey:   "key-one",
	})
	require.NoError(t, err)

	// A second create under the same id must return the stored record, not
	// overwrite it.
	second, err := forge.CreateWorkspace(ctx, &model.Workspace{
		WorkspaceID: id,
		Provider:    "gemini",
		GeminiKey:   "key-two",
	})
	require.NoError(t, err)
	assert.Equal(t, first.WorkspaceID, second.WorkspaceID)
	assert.Equal(t, "openai", second.Provider)
	assert.Equal(t, "key-one", second.OpenAIKey)
	assert.Empty(t, second.GeminiKey)
}

func TestGetWorkspaceNotFound(t *testing.T) {
	forge := newTestForge(t)

	_, err := forge.GetWorkspace(context.Background(), "ws_missing")
	require.Error(t, err)
	assert.True(t, apierror.IsCode(err, apierror.ErrNotFound))
}

func TestListWorkspaces(t *testing.T) {
	forge := newTestForge(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := forge.CreateWorkspace(ctx, &model.Workspace{Provider: "openai"})
		require.NoError(t, err)
	}

	workspaces, err := forge.ListWorkspaces(ctx)
	require.NoError(t, err)
	assert.Len(t, workspaces, 3)
}

func TestDeleteWorkspace(t *testing.T) {
	forge := newTestForge(t)
	ctx := context.Background()

	created, err := forge.CreateWorkspace(ctx, &model.Workspace{Provider: "gemini"})
	require.NoError(t, err)

	deleted, err := forge.DeleteWorkspace(ctx, created.WorkspaceID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = forge.GetWorkspace(ctx, created.WorkspaceID)
	assert.True(t, apierror.IsCode(err, apierror.ErrNotFound))

	// Deleting an absent workspace reports NOT_FOUND every time, it does not
	// become a no-op.
	_, err = forge.DeleteWorkspace(ctx, created.WorkspaceID)
	assert.True(t, apierror.IsCode(err, apierror.ErrNotFound))
}
