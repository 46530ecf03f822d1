package queue

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nekoscript/internal/data/store"
)

func newTestSpool(t *testing.T) *SQLiteSpool {
	t.Helper()
	spool, err := OpenSQLiteSpool(filepath.Join(t.TempDir(), "spool.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = spool.Close() })
	return spool
}

func TestSQLiteSpool_EnqueueDequeueAck(t *testing.T) {
	spool := newTestSpool(t)
	ctx := context.Background()

	started := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, spool.Enqueue(store.RunRecord{ID: "r1", Mode: "interpret", StartedAt: started}))
	require.NoError(t, spool.Enqueue(store.RunRecord{ID: "r2", Mode: "transpile"}))

	count, err := spool.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	rows, err := spool.DequeueBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "r1", rows[0].Record.ID)
	assert.True(t, started.Equal(rows[0].Record.StartedAt))

	require.NoError(t, spool.Ack([]int64{rows[0].ID, rows[1].ID}))
	count, err = spool.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSQLiteSpool_NackDefersRetry(t *testing.T) {
	spool := newTestSpool(t)
	ctx := context.Background()

	require.NoError(t, spool.Enqueue(store.RunRecord{ID: "r1"}))
	rows, err := spool.DequeueBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	require.NoError(t, spool.Nack(rows, time.Now().Add(150*time.Millisecond), "busy"))

	rows, err = spool.DequeueBatch(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, rows, "row is not retryable yet")

	time.Sleep(180 * time.Millisecond)
	rows, err = spool.DequeueBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].Attempts)
}

func TestSQLiteSpool_RejectsBadPath(t *testing.T) {
	_, err := OpenSQLiteSpool("  ")
	assert.Error(t, err)
	_, err = OpenSQLiteSpool(t.TempDir())
	assert.Error(t, err)
}
