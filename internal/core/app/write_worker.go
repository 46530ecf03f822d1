// # internal/core/app/write_worker.go
package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"nekoscript/internal/core/config"
	"nekoscript/internal/core/ports"
	"nekoscript/internal/data/queue"
	"nekoscript/internal/data/store"
	"nekoscript/internal/shared/observability"
)

const (
	retryBaseDelay    = 500 * time.Millisecond
	retryMaxDelay     = 30 * time.Second
	drainTimeout      = 10 * time.Second
	defaultFlushEvery = 100 * time.Millisecond
)

// runRecorder persists run records off the request path. Records go to a
// bounded memory queue; overflow is spilled to the sqlite spool when one is
// configured and dropped otherwise.
type runRecorder struct {
	sink      ports.RunStore
	queue     *queue.MemoryQueue
	spool     ports.WriteSpoolPort
	batchSize int
	flush     time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

func newRunRecorder(cfg config.Queue, sink ports.RunStore, spoolPath string) (*runRecorder, error) {
	r := &runRecorder{
		sink:      sink,
		queue:     queue.NewMemoryQueue(cfg.Capacity),
		batchSize: cfg.BatchSize,
		flush:     cfg.FlushInterval,
	}
	if r.batchSize <= 0 {
		r.batchSize = 1
	}
	if r.flush <= 0 {
		r.flush = defaultFlushEvery
	}
	if cfg.Spool {
		spool, err := queue.OpenSQLiteSpool(spoolPath)
		if err != nil {
			return nil, err
		}
		r.spool = spool
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.run(ctx)
	return r, nil
}

func (s *Service) record(rec store.RunRecord) {
	if s.recorder == nil {
		return
	}
	s.recorder.Enqueue(rec)
}

func (r *runRecorder) Enqueue(rec store.RunRecord) {
	switch r.queue.Enqueue(rec) {
	case ports.EnqueueAccepted:
		observability.WriteQueueEnqueuedTotal.Inc()
	default:
		observability.WriteQueueDroppedTotal.Inc()
		if r.spool == nil {
			slog.Debug("run record dropped", "run_id", rec.ID)
			break
		}
		if err := r.spool.Enqueue(rec); err != nil {
			slog.Warn("failed to spill run record to spool", "run_id", rec.ID, "error", err)
			break
		}
		observability.WriteQueueSpilledTotal.Inc()
	}
	r.updateMetrics()
}

func (r *runRecorder) run(ctx context.Context) {
	defer close(r.done)
	// An in-flight batch finishes even when Close cancels the loop.
	writeCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		memoryBatch, err := r.queue.DequeueBatch(ctx, r.batchSize, r.flush)
		if errors.Is(err, context.Canceled) {
			return
		}
		if err != nil && !errors.Is(err, io.EOF) {
			slog.Warn("write queue dequeue failed", "error", err)
			continue
		}

		records := append(make([]store.RunRecord, 0, r.batchSize), memoryBatch...)
		var spooled []ports.SpoolRow
		if len(records) < r.batchSize && r.spool != nil {
			rows, spoolErr := r.spool.DequeueBatch(ctx, r.batchSize-len(records))
			if spoolErr != nil {
				slog.Warn("write spool dequeue failed", "error", spoolErr)
			} else {
				for _, row := range rows {
					records = append(records, row.Record)
				}
				spooled = rows
			}
		}

		if len(records) == 0 {
			r.updateMetrics()
			if errors.Is(err, io.EOF) {
				return
			}
			continue
		}

		started := time.Now()
		if applyErr := r.sink.SaveRuns(writeCtx, records); applyErr != nil {
			observability.WriteQueueApplyErrorsTotal.Inc()
			slog.Warn("run recorder apply failed", "error", applyErr, "batch_size", len(records))
			r.handleFailure(spooled, memoryBatch, applyErr)
		} else {
			observability.WriteQueueProcessedTotal.Add(float64(len(records)))
			r.ack(spooled)
			observability.WriteQueueFlushLatencySeconds.Observe(time.Since(started).Seconds())
		}
		r.updateMetrics()
	}
}

func (r *runRecorder) ack(rows []ports.SpoolRow) {
	if r.spool == nil || len(rows) == 0 {
		return
	}
	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	if err := r.spool.Ack(ids); err != nil {
		slog.Warn("write spool ack failed", "error", err, "count", len(ids))
	}
}

// handleFailure moves a failed memory batch into the spool and pushes the
// retry time of failed spool rows back.
func (r *runRecorder) handleFailure(spooled []ports.SpoolRow, memoryBatch []store.RunRecord, applyErr error) {
	if r.spool == nil {
		return
	}
	for _, rec := range memoryBatch {
		if err := r.spool.Enqueue(rec); err != nil {
			slog.Warn("failed to spill run record to spool", "error", err, "run_id", rec.ID)
		} else {
			observability.WriteQueueSpilledTotal.Inc()
		}
	}
	if len(spooled) == 0 {
		return
	}
	maxAttempts := 0
	for _, row := range spooled {
		if row.Attempts > maxAttempts {
			maxAttempts = row.Attempts
		}
	}
	next := time.Now().Add(backoffDelay(maxAttempts + 1))
	if err := r.spool.Nack(spooled, next, applyErr.Error()); err != nil {
		slog.Warn("write spool nack failed", "error", err, "count", len(spooled))
		return
	}
	observability.WriteQueueRetryTotal.Add(float64(len(spooled)))
}

func backoffDelay(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	delay := retryBaseDelay
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= retryMaxDelay {
			return retryMaxDelay
		}
	}
	return delay
}

// Close stops the worker and writes whatever is still queued.
func (r *runRecorder) Close(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, drainTimeout)
		defer cancel()
	}
	r.cancel()
	select {
	case <-r.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	_ = r.queue.Close()
	err := r.drain(ctx)
	if r.spool != nil {
		if cerr := r.spool.Close(); err == nil {
			err = cerr
		}
	}
	r.updateMetrics()
	return err
}

func (r *runRecorder) drain(ctx context.Context) error {
	for {
		batch, err := r.queue.DequeueBatch(ctx, r.batchSize, 0)
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		if applyErr := r.sink.SaveRuns(ctx, batch); applyErr != nil {
			r.handleFailure(nil, batch, applyErr)
			return applyErr
		}
		observability.WriteQueueProcessedTotal.Add(float64(len(batch)))
	}
}

func (r *runRecorder) updateMetrics() {
	observability.WriteQueueDepth.Set(float64(r.queue.Len()))
	if r.spool != nil {
		if count, err := r.spool.PendingCount(context.Background()); err == nil {
			observability.WriteSpoolDepth.Set(float64(count))
		}
	}
}
