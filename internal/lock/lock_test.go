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

package redlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/leadforge/leadforge/internal/apierror"
)

func newTestLocker(t *testing.T) (*Locker, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("an error '%s' occurred when starting miniredis", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewLocker(client, 10*time.Millisecond), mr
}

func TestLocker_Acquire_Success(t *testing.T) {
	locker, mr := newTestLocker(t)

	token, err := locker.Acquire(context.Background(), "ws-1", 5*time.Second)
	assert.NoError(t, err)
	assert.NotEmpty(t, token)
	stored, err := mr.Get("locks:ws-1")
	assert.NoError(t, err)
	assert.Equal(t, token, stored)
}

func TestLocker_Acquire_Contention(t *testing.T) {
	locker, _ := newTestLocker(t)
	ctx := context.Background()

	token, err := locker.Acquire(ctx, "ws-1", 5*time.Second)
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	// A concurrent acquire before release or expiry must come back empty.
	_, err = locker.Acquire(ctx, "ws-1", 5*time.Second)
	assert.Error(t, err)
	assert.True(t, apierror.IsCode(err, apierror.ErrLockBusy))

	// Locks on distinct resources are independent.
	other, err := locker.Acquire(ctx, "ws-2", 5*time.Second)
	assert.NoError(t, err)
	assert.NotEmpty(t, other)
}

func TestLocker_Acquire_RetrySucceedsAfterExpiry(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	_, err := locker.Acquire(ctx, "ws-1", 5*time.Millisecond)
	assert.NoError(t, err)

	// Expire the held lock while the second caller sleeps out its single
	// retry delay.
	go func() {
		time.Sleep(2 * time.Millisecond)
		mr.FastForward(10 * time.Millisecond)
	}()

	token, err := locker.Acquire(ctx, "ws-1", 5*time.Second)
	assert.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestLocker_Release_Success(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	token, err := locker.Acquire(ctx, "ws-1", 5*time.Second)
	assert.NoError(t, err)

	assert.True(t, locker.Release(ctx, "ws-1", token))
	assert.False(t, mr.Exists("locks:ws-1"))
}

func TestLocker_Release_WrongToken(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	token, err := locker.Acquire(ctx, "ws-1", 5*time.Second)
	assert.NoError(t, err)

	assert.False(t, locker.Release(ctx, "ws-1", "not-the-owner"))
	stored, err := mr.Get("locks:ws-1")
	assert.NoError(t, err)
	assert.Equal(t, token, stored, "lock must survive a non-owner release")
}

func TestLocker_Release_AfterExpiryAndReacquire(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	staleToken, err := locker.Acquire(ctx, "ws-1", 5*time.Millisecond)
	assert.NoError(t, err)

	mr.FastForward(10 * time.Millisecond)

	newToken, err := locker.Acquire(ctx, "ws-1", 5*time.Second)
	assert.NoError(t, err)
	assert.NotEqual(t, staleToken, newToken)

	// The stale holder's release must not delete the new holder's lock.
	assert.False(t, locker.Release(ctx, "ws-1", staleToken))
	stored, err := mr.Get("locks:ws-1")
	assert.NoError(t, err)
	assert.Equal(t, newToken, stored)
}

func TestLocker_Extend(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	token, err := locker.Acquire(ctx, "ws-1", 50*time.Millisecond)
	assert.NoError(t, err)

	assert.NoError(t, locker.Extend(ctx, "ws-1", token, 5*time.Second))
	assert.Greater(t, mr.TTL("locks:ws-1"), time.Second)

	err = locker.Extend(ctx, "ws-1", "not-the-owner", 5*time.Second)
	assert.EqualError(t, err, "lock extension failed for resource ws-1, either lock expired or you're not the holder")
}

func TestLocker_Release_StoreError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db, 10*time.Millisecond)

	mock.ExpectEval(releaseScript, []string{"locks:ws-1"}, "token").SetErr(assert.AnError)

	// Release failure is swallowed, never escalated.
	assert.False(t, locker.Release(context.Background(), "ws-1", "token"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
