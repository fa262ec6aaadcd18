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
	"time"

	"github.com/go-redis/cache/v9"
	"github.com/redis/go-redis/v9"

	"github.com/leadforge/leadforge/agents"
	"github.com/leadforge/leadforge/config"
	redlock "github.com/leadforge/leadforge/internal/lock"
	"github.com/leadforge/leadforge/internal/oplog"
	redis_db "github.com/leadforge/leadforge/internal/redis-db"
)

// cacheSize defines the size of the local cache (in number of entries) used alongside Redis.
const cacheSize = 128000

// workspaceCacheTTL bounds how stale a cached workspace read may be.
const workspaceCacheTTL = time.Minute

// LeadForge coordinates workspace configuration and lead-enrichment jobs
// across processes that share one remote key-value store. Every instance
// holds an explicit session manager handed in at construction; there is no
// process-global client.
type LeadForge struct {
	sessions *redis_db.SessionManager
	cache    *cache.Cache
	queue    *Queue

	miner       Miner
	validator   Validator
	synthesizer Synthesizer

	lockTTL            time.Duration
	lockRetryDelay     time.Duration
	operationTTL       time.Duration
	streamMaxPolls     int
	streamPollInterval time.Duration
}

// NewLeadForge builds the service from the loaded configuration. In the
// development posture an unreachable store falls back to an embedded
// stand-in inside the session manager; in production the constructor fails.
func NewLeadForge(sessions *redis_db.SessionManager) (*LeadForge, error) {
	cnf, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	client, err := sessions.GetSession(context.Background())
	if err != nil {
		return nil, err
	}

	l := &LeadForge{
		sessions: sessions,
		cache: cache.New(&cache.Options{
			Redis:      client,
			LocalCache: cache.NewTinyLFU(cacheSize, workspaceCacheTTL),
		}),
		miner:              agents.NewMiner(),
		validator:          agents.NewValidator(),
		synthesizer:        agents.NewSynthesizer(),
		lockTTL:            time.Duration(cnf.Lock.TTLSeconds) * time.Second,
		lockRetryDelay:     time.Duration(cnf.Lock.RetryDelayMs) * time.Millisecond,
		operationTTL:       time.Duration(cnf.Operation.TTLSeconds) * time.Second,
		streamMaxPolls:     cnf.Stream.MaxPolls,
		streamPollInterval: time.Duration(cnf.Stream.PollIntervalMs) * time.Millisecond,
	}

	// The task queue needs a real shared store; against the embedded
	// stand-in jobs are processed inline instead.
	if !sessions.Embedded() {
		l.queue = NewQueue(cnf)
	}

	return l, nil
}

// session returns a live, ping-verified client for the shared store.
func (l *LeadForge) session(ctx context.Context) (redis.UniversalClient, error) {
	return l.sessions.GetSession(ctx)
}

// locker builds a lock manager over the given session. The locker is a thin
// wrapper, so constructing one per call keeps it bound to a verified session.
func (l *LeadForge) locker(client redis.UniversalClient) *redlock.Locker {
	return redlock.NewLocker(client, l.lockRetryDelay)
}

// operations builds the operation audit log over the given session.
func (l *LeadForge) operations(client redis.UniversalClient) *oplog.Log {
	return oplog.NewLog(client, l.operationTTL)
}
