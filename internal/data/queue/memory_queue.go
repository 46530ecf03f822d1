// # internal/data/queue/memory_queue.go
package queue

import (
	"context"
	"io"
	"sync"
	"time"

	"nekoscript/internal/core/ports"
	"nekoscript/internal/data/store"
)

var _ ports.WriteQueuePort = (*MemoryQueue)(nil)

// MemoryQueue is a bounded, non-blocking run record buffer. Enqueue never
// waits: a full or closed queue drops the record.
type MemoryQueue struct {
	ch     chan store.RunRecord
	mu     sync.RWMutex
	closed bool
}

func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 1
	}
	return &MemoryQueue{ch: make(chan store.RunRecord, capacity)}
}

func (q *MemoryQueue) Enqueue(rec store.RunRecord) ports.EnqueueResult {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ports.EnqueueDropped
	}
	select {
	case q.ch <- rec:
		return ports.EnqueueAccepted
	default:
		return ports.EnqueueDropped
	}
}

// DequeueBatch waits up to wait for the first record, then takes whatever
// else is immediately available up to maxItems. A zero wait never blocks.
// io.EOF reports a closed and drained queue.
func (q *MemoryQueue) DequeueBatch(ctx context.Context, maxItems int, wait time.Duration) ([]store.RunRecord, error) {
	if maxItems <= 0 {
		maxItems = 1
	}
	batch := make([]store.RunRecord, 0, maxItems)

	if wait <= 0 {
		select {
		case rec, ok := <-q.ch:
			if !ok {
				return nil, io.EOF
			}
			batch = append(batch, rec)
		default:
			return nil, nil
		}
	} else {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case rec, ok := <-q.ch:
			if !ok {
				return nil, io.EOF
			}
			batch = append(batch, rec)
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, nil
		}
	}

	for len(batch) < maxItems {
		select {
		case rec, ok := <-q.ch:
			if !ok {
				return batch, io.EOF
			}
			batch = append(batch, rec)
		default:
			return batch, nil
		}
	}
	return batch, nil
}

func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.ch)
	return nil
}

func (q *MemoryQueue) Len() int {
	if q == nil {
		return 0
	}
	return len(q.ch)
}
