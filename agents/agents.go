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

// Package agents holds the built-in enrichment stages. Each stage is an
// opaque, synchronous transform; the orchestrator neither knows nor cares
// that these return synthetic findings rather than live provider data.
package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/leadforge/leadforge/model"
)

// Miner gathers external buying signals for a company. The built-in miner
// returns synthetic findings in place of live forum/review crawling.
type Miner struct{}

func NewMiner() *Miner {
	return &Miner{}
}

func (m *Miner) Mine(_ context.Context, lead model.LeadInput) (*model.MinedSignals, error) {
	company := lead.CompanyOrDefault()
	return &model.MinedSignals{
		Company: company,
		Signals: []string{
			fmt.Sprintf("%s mentioned cost pressures on forums", company),
			fmt.Sprintf("%s evaluating cloud spend reduction", company),
		},
	}, nil
}

// Validator performs lightweight competitive checks and tech stack inference.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) Validate(_ context.Context, lead model.LeadInput) (*model.ValidationReport, error) {
	return &model.ValidationReport{
		Company:   lead.CompanyOrDefault(),
		TechStack: []string{"AWS", "Salesforce"},
		Risks:     []string{"Unknown budget owner"},
	}, nil
}

// Synthesizer combines mined signals and validation into a fit score and a
// wedge line.
type Synthesizer struct{}

func NewSynthesizer() *Synthesizer {
	return &Synthesizer{}
}

func (s *Synthesizer) Synthesize(_ context.Context, lead model.LeadInput, mined *model.MinedSignals, report *model.ValidationReport) (*model.EnrichedLead, error) {
	company := lead.CompanyOrDefault()

	baseScore := 70
	if len(mined.Signals) > 0 {
		baseScore = 90
	}
	score := baseScore - 5*len(report.Risks)
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	wedge := fmt.Sprintf("%s can trim tooling costs with your bundled pricing.", company)
	if strings.Contains(strings.ToLower(strings.Join(mined.Signals, " ")), "cost") {
		wedge = fmt.Sprintf("%s faces cost pressure; lead with ROI and consolidation.", company)
	}

	return &model.EnrichedLead{
		Company:   company,
		FitScore:  score,
		Wedge:     wedge,
		TechStack: report.TechStack,
		Signals:   mined.Signals,
	}, nil
}
