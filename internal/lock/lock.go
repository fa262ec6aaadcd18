package redlock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/leadforge/leadforge/internal/apierror"
)

const lockKeyPrefix = "locks:"

// Lua scripts run the ownership check and the mutation as one atomic step,
// so a lock whose TTL expired and was re-acquired by another holder is never
// touched by the previous holder.
const (
	releaseScript = "if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('del', KEYS[1]) else return 0 end"
	extendScript  = "if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('pexpire', KEYS[1], ARGV[2]) else return 0 end"
)

// Locker provides named, TTL-bound mutual exclusion over the shared store.
// Locks are safety valves, not fairness mechanisms: there is no waiter queue
// and no starvation prevention beyond one bounded retry.
type Locker struct {
	client     redis.UniversalClient
	retryDelay time.Duration
}

func NewLocker(client redis.UniversalClient, retryDelay time.Duration) *Locker {
	return &Locker{
		client:     client,
		retryDelay: retryDelay,
	}
}

func lockKey(resource string) string {
	return lockKeyPrefix + resource
}

// Acquire attempts an atomic set-if-absent of a fresh owner token under
// locks:{resource} with the given TTL. On contention it sleeps once for the
// configured delay and tries exactly one more time before returning
// LOCK_BUSY. Store errors are returned as-is.
func (l *Locker) Acquire(ctx context.Context, resource string, ttl time.Duration) (string, error) {
	token := uuid.New().String()

	for attempt := 0; attempt < 2; attempt++ {
		success, err := l.client.SetNX(ctx, lockKey(resource), token, ttl).Result()
		if err != nil {
			return "", err
		}
		if success {
			return token, nil
		}
		if attempt == 0 {
			time.Sleep(l.retryDelay)
		}
	}

	return "", apierror.NewAPIError(apierror.ErrLockBusy,
		fmt.Sprintf("lock for resource %s is already held", resource), resource)
}

// Release deletes locks:{resource} only if it still holds the given owner
// token. Failure to release is never escalated: the lock self-expires via
// TTL, bounding the blast radius of a crashed holder.
func (l *Locker) Release(ctx context.Context, resource, token string) bool {
	result, err := l.client.Eval(ctx, releaseScript, []string{lockKey(resource)}, token).Result()
	if err != nil {
		logrus.WithError(err).Warnf("failed to release lock for resource %s", resource)
		return false
	}
	if result == int64(0) {
		logrus.Debugf("release skipped for resource %s, lock expired or owned by another holder", resource)
		return false
	}
	return true
}

// Extend pushes the lock's expiry out by the given duration, provided the
// caller still owns it. Used by long pipeline runs that outlive the default
// TTL.
func (l *Locker) Extend(ctx context.Context, resource, token string, extension time.Duration) error {
	result, err := l.client.Eval(ctx, extendScript, []string{lockKey(resource)}, token, fmt.Sprintf("%d", extension.Milliseconds())).Result()
	if err != nil {
		return err
	}
	if result == int64(0) {
		return fmt.Errorf("lock extension failed for resource %s, either lock expired or you're not the holder", resource)
	}
	return nil
}
