// # internal/core/ports/ports.go
package ports

import (
	"context"
	"time"

	"nekoscript/internal/data/store"
)

// LibraryStore resolves imported library names to their source.
type LibraryStore interface {
	LookupLibrary(ctx context.Context, name string) (string, bool, error)
}

// RunStore persists run records in batches.
type RunStore interface {
	SaveRuns(ctx context.Context, records []store.RunRecord) error
}

// PackageRegistry is the package surface used by publish and install.
type PackageRegistry interface {
	PublishPackage(ctx context.Context, p store.Package) (store.Package, error)
	GetPackage(ctx context.Context, name string) (store.Package, error)
	IncrementDownloads(ctx context.Context, name string) (store.Package, error)
}

type EnqueueResult string

const (
	EnqueueAccepted EnqueueResult = "accepted"
	EnqueueDropped  EnqueueResult = "dropped"
)

// WriteQueuePort buffers run records between producers and the write worker.
type WriteQueuePort interface {
	Enqueue(rec store.RunRecord) EnqueueResult
	DequeueBatch(ctx context.Context, maxItems int, wait time.Duration) ([]store.RunRecord, error)
	Close() error
}

// SpoolRow is a run record held in the overflow spool.
type SpoolRow struct {
	ID       int64
	Record   store.RunRecord
	Attempts int
}

// WriteSpoolPort holds records the memory queue could not accept.
type WriteSpoolPort interface {
	Enqueue(rec store.RunRecord) error
	DequeueBatch(ctx context.Context, maxItems int) ([]SpoolRow, error)
	Ack(ids []int64) error
	Nack(rows []SpoolRow, nextAttemptAt time.Time, lastErr string) error
	PendingCount(ctx context.Context) (int, error)
	Close() error
}
