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
	"encoding/json"
	"strconv"
)

// LeadInput is one raw lead as submitted by the caller. Company is the only
// field the synthetic stages key on today.
type LeadInput struct {
	LeadID  string `json:"id,omitempty"`
	Company string `json:"company"`
}

// CompanyOrDefault mirrors the lead normalization the stages apply: an empty
// company name becomes a placeholder rather than an error.
func (l *LeadInput) CompanyOrDefault() string {
	if l.Company == "" {
		return "Unknown Co"
	}
	return l.Company
}

// MinedSignals is the miner stage output: external buying signals gathered
// for one company.
type MinedSignals struct {
	Company string   `json:"company"`
	Signals []string `json:"signals"`
}

// ValidationReport is the validator stage output: competitive checks and
// tech-stack inference.
type ValidationReport struct {
	Company   string   `json:"company"`
	TechStack []string `json:"tech_stack"`
	Risks     []string `json:"risks"`
}

// EnrichedLead is the synthesizer output, persisted under leads:{id}.
type EnrichedLead struct {
	LeadID    string   `json:"id"`
	Company   string   `json:"company"`
	FitScore  int      `json:"fit_score"`
	Wedge     string   `json:"wedge"`
	TechStack []string `json:"tech_stack"`
	Signals   []string `json:"signals"`
}

// ToMap flattens the enriched lead into hash fields. Slice-valued fields are
// stored JSON-encoded so the record stays a flat string hash.
func (e *EnrichedLead) ToMap() map[string]interface{} {
	techStack, _ := json.Marshal(e.TechStack)
	signals, _ := json.Marshal(e.Signals)
	return map[string]interface{}{
		"company":    e.Company,
		"fit_score":  strconv.Itoa(e.FitScore),
		"wedge":      e.Wedge,
		"tech_stack": string(techStack),
		"signals":    string(signals),
	}
}

// EnrichedLeadFromMap rebuilds an enriched lead from its stored hash fields.
func EnrichedLeadFromMap(leadID string, fields map[string]string) *EnrichedLead {
	lead := &EnrichedLead{
		LeadID:  leadID,
		Company: fields["company"],
		Wedge:   fields["wedge"],
	}
	lead.FitScore, _ = strconv.Atoi(fields["fit_score"])
	if raw := fields["tech_stack"]; raw != "" {
		_ = json.Unmarshal([]byte(raw), &lead.TechStack)
	}
	if raw := fields["signals"]; raw != "" {
		_ = json.Unmarshal([]byte(raw), &lead.Signals)
	}
	return lead
}
