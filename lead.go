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
	"fmt"

	"go.opentelemetry.io/otel"

	"github.com/leadforge/leadforge/internal/apierror"
	"github.com/leadforge/leadforge/model"
)

const (
	leadKeyPrefix   = "leads:"
	leadScanGlob    = "leads:*"
	defaultPageSize = 50
)

func leadKey(leadID string) string {
	return leadKeyPrefix + leadID
}

// GetLead reads one enriched lead record.
func (l *LeadForge) GetLead(ctx context.Context, leadID string) (*model.EnrichedLead, error) {
	client, err := l.session(ctx)
	if err != nil {
		return nil, err
	}

	fields, err := client.HGetAll(ctx, leadKey(leadID)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, apierror.NewAPIError(apierror.ErrNotFound,
			fmt.Sprintf("lead %s not found", leadID), leadID)
	}

	return model.EnrichedLeadFromMap(leadID, fields), nil
}

// ListLeads pages through the lead namespace with a scan followed by a
// per-key read, like the workspace listing. Total is the number of keys at
// scan time; pagination is not snapshot-isolated.
func (l *LeadForge) ListLeads(ctx context.Context, page, size int) ([]*model.EnrichedLead, int, error) {
	ctx, span := otel.Tracer("leadforge.leads").Start(ctx, "ListLeads")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultPageSize
	}

	client, err := l.session(ctx)
	if err != nil {
		return nil, 0, err
	}

	keys, err := client.Keys(ctx, leadScanGlob).Result()
	if err != nil {
		return nil, 0, err
	}

	total := len(keys)
	start := (page - 1) * size
	if start >= total {
		return []*model.EnrichedLead{}, total, nil
	}
	end := start + size
	if end > total {
		end = total
	}

	leads := make([]*model.EnrichedLead, 0, end-start)
	for _, key := range keys[start:end] {
		fields, err := client.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, 0, err
		}
		if len(fields) == 0 {
			continue
		}
		leads = append(leads, model.EnrichedLeadFromMap(key[len(leadKeyPrefix):], fields))
	}

	return leads, total, nil
}
