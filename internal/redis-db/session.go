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

package redis_db

import (
	"context"
	"sync"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/leadforge/leadforge/internal/apierror"
)

// SessionManager hands out a live, ping-verified store connection. It is the
// single shared handle every component receives by dependency injection;
// there is no package-level cached client.
//
// In the production posture an unreachable store surfaces as
// STORE_UNAVAILABLE. In the development posture the manager boots an embedded
// in-process server (miniredis) instead, so hashes, key scans, pub/sub, SetNX
// and Lua eval keep working without an external dependency.
type SessionManager struct {
	mu         sync.Mutex
	address    string
	skipTLS    bool
	production bool

	client   redis.UniversalClient
	embedded *miniredis.Miniredis
}

// NewSessionManager builds a manager for the given store address. No
// connection is attempted until the first GetSession call.
func NewSessionManager(address string, skipTLSVerify, production bool) *SessionManager {
	return &SessionManager{
		address:    address,
		skipTLS:    skipTLSVerify,
		production: production,
	}
}

// GetSession returns a live client, revalidating a cached one with a bounded
// ping before reuse. A failed ping drops the cached client and reconnects
// transparently.
func (s *SessionManager) GetSession(ctx context.Context) (redis.UniversalClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err := s.client.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			return s.client, nil
		}
		logrus.WithError(err).Warn("cached store session failed ping, reconnecting")
		s.client = nil
	}

	return s.connect()
}

func (s *SessionManager) connect() (redis.UniversalClient, error) {
	rds, err := NewRedisClient([]string{s.address}, s.skipTLS)
	if err == nil {
		s.client = rds.Client()
		return s.client, nil
	}

	if s.production {
		return nil, apierror.NewAPIError(apierror.ErrStoreUnavailable,
			"store connection required in production", err.Error())
	}

	logrus.WithError(err).Warnf("store at %s unreachable, falling back to embedded store", s.address)
	return s.connectEmbedded()
}

func (s *SessionManager) connectEmbedded() (redis.UniversalClient, error) {
	if s.embedded == nil {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrStoreUnavailable,
				"failed to start embedded store", err.Error())
		}
		s.embedded = mr
	}

	client := redis.NewClient(&redis.Options{Addr: s.embedded.Addr()})
	s.client = client
	return s.client, nil
}

// Embedded reports whether the manager is serving sessions from the
// in-process stand-in rather than the configured store. Callers use this to
// skip dispatch paths (e.g. the task queue) that need a real shared store.
func (s *SessionManager) Embedded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.embedded != nil && s.client != nil
}

// Addr returns the address sessions currently connect to, which is the
// embedded server's address after a development fallback.
func (s *SessionManager) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.embedded != nil {
		return s.embedded.Addr()
	}
	return s.address
}

// Close releases the cached client and stops the embedded server if one was
// started.
func (s *SessionManager) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.client != nil {
		err = s.client.Close()
		s.client = nil
	}
	if s.embedded != nil {
		s.embedded.Close()
		s.embedded = nil
	}
	return err
}
