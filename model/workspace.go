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

// Workspace is a tenant-scoped configuration record: the provider choice plus
// the credentials the enrichment stages run with. Identity is the workspace id;
// mutation happens only by full-record replace.
type Workspace struct {
	WorkspaceID string `json:"id"`
	Provider    string `json:"provider"`
	OpenAIKey   string `json:"openai_key"`
	GeminiKey   string `json:"gemini_key"`
	TavilyKey   string `json:"tavily_key"`
}

// ToMap flattens the workspace into the hash fields persisted under
// workspaces:{id}:keys. Field names are a contract with external tooling.
func (w *Workspace) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"provider":   w.Provider,
		"openai_key": w.OpenAIKey,
		"gemini_key": w.GeminiKey,
		"tavily_key": w.TavilyKey,
	}
}

// WorkspaceFromMap rebuilds a workspace from its stored hash fields.
func WorkspaceFromMap(workspaceID string, fields map[string]string) *Workspace {
	return &Workspace{
		WorkspaceID: workspaceID,
		Provider:    fields["provider"],
		OpenAIKey:   fields["openai_key"],
		GeminiKey:   fields["gemini_key"],
		TavilyKey:   fields["tavily_key"],
	}
}
