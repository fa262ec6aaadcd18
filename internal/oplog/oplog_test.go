package oplog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/leadforge/leadforge/internal/apierror"
	"github.com/leadforge/leadforge/model"
)

func newTestLog(t *testing.T) (*Log, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("an error '%s' occurred when starting miniredis", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewLog(client, 30*time.Second), mr
}

func TestRecordAndGet(t *testing.T) {
	log, mr := newTestLog(t)
	ctx := context.Background()

	op := model.NewOperation(model.OperationCreate, "ws-1", `{"provider":"openai"}`)
	id, err := log.Record(ctx, op)
	assert.NoError(t, err)
	assert.Equal(t, op.OperationID, id)

	got, err := log.Get(ctx, id)
	assert.NoError(t, err)
	assert.Equal(t, model.OperationCreate, got.Type)
	assert.Equal(t, "ws-1", got.WorkspaceID)
	assert.Equal(t, model.OperationPending, got.Status)
	assert.WithinDuration(t, op.Timestamp, got.Timestamp, time.Millisecond)

	// Records carry a bounded TTL and land on the observability queue.
	assert.Greater(t, mr.TTL("operations:"+id), time.Duration(0))
	queued, err := mr.List(operationQueueKey)
	assert.NoError(t, err)
	assert.Contains(t, queued, id)
}

func TestMarkCompleted(t *testing.T) {
	log, _ := newTestLog(t)
	ctx := context.Background()

	op := model.NewOperation(model.OperationDelete, "ws-1", "")
	_, err := log.Record(ctx, op)
	assert.NoError(t, err)

	assert.NoError(t, log.Mark(ctx, op.OperationID, model.OperationCompleted, nil))

	got, err := log.Get(ctx, op.OperationID)
	assert.NoError(t, err)
	assert.Equal(t, model.OperationCompleted, got.Status)
	assert.Empty(t, got.Error)
}

func TestMarkFailedKeepsError(t *testing.T) {
	log, _ := newTestLog(t)
	ctx := context.Background()

	op := model.NewOperation(model.OperationCreate, "ws-1", "")
	_, err := log.Record(ctx, op)
	assert.NoError(t, err)

	assert.NoError(t, log.Mark(ctx, op.OperationID, model.OperationFailed, errors.New("write not durable")))

	got, err := log.Get(ctx, op.OperationID)
	assert.NoError(t, err)
	assert.Equal(t, model.OperationFailed, got.Status)
	assert.Equal(t, "write not durable", got.Error)
}

func TestGetExpiredOperation(t *testing.T) {
	log, mr := newTestLog(t)
	ctx := context.Background()

	op := model.NewOperation(model.OperationUpdate, "ws-1", "")
	_, err := log.Record(ctx, op)
	assert.NoError(t, err)

	mr.FastForward(time.Minute)

	_, err = log.Get(ctx, op.OperationID)
	assert.Error(t, err)
	assert.True(t, apierror.IsCode(err, apierror.ErrNotFound))
}
