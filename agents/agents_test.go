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

package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadforge/leadforge/model"
)

func TestMinerDefaultsCompany(t *testing.T) {
	mined, err := NewMiner().Mine(context.Background(), model.LeadInput{})
	require.NoError(t, err)
	assert.Equal(t, "Unknown Co", mined.Company)
	assert.NotEmpty(t, mined.Signals)
}

func TestSynthesizeScoresAndWedge(t *testing.T) {
	ctx := context.Background()
	lead := model.LeadInput{Company: "Acme Corp"}

	mined, err := NewMiner().Mine(ctx, lead)
	require.NoError(t, err)
	report, err := NewValidator().Validate(ctx, lead)
	require.NoError(t, err)

	enriched, err := NewSynthesizer().Synthesize(ctx, lead, mined, report)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", enriched.Company)
	// Signals present (base 90) minus one known risk.
	assert.Equal(t, 85, enriched.FitScore)
	assert.Contains(t, enriched.Wedge, "cost pressure")
}

func TestSynthesizeWithoutSignals(t *testing.T) {
	ctx := context.Background()
	lead := model.LeadInput{Company: "Beta LLC"}

	report, err := NewValidator().Validate(ctx, lead)
	require.NoError(t, err)

	enriched, err := NewSynthesizer().Synthesize(ctx, lead, &model.MinedSignals{Company: "Beta LLC"}, report)
	require.NoError(t, err)
	assert.Equal(t, 65, enriched.FitScore)
	assert.Contains(t, enriched.Wedge, "bundled pricing")
}
