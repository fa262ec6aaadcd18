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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leadforge/leadforge/config"
	redis_db "github.com/leadforge/leadforge/internal/redis-db"
)

// newTestForge builds the service against an unreachable store address so
// the development fallback boots a fresh embedded store per test.
func newTestForge(t *testing.T) *LeadForge {
	t.Helper()

	config.MockConfig(&config.Configuration{
		DeploymentMode: config.ModeDevelopment,
		Redis:          config.RedisConfig{Dns: "localhost:0"},
	})

	sessions := redis_db.NewSessionManager("localhost:0", false, false)
	t.Cleanup(func() {
		_ = sessions.Close()
	})

	forge, err := NewLeadForge(sessions)
	require.NoError(t, err)
	return forge
}
