// Package backfill owns the persistent re-enrichment queue: names that only
// received a generated fallback ID wait here for a later authoritative
// lookup, whose result backflows into the mapping cache.
package backfill

import (
	"context"

	"github.com/sells-group/identity-cli/internal/model"
)

// Request is one enqueue candidate produced by the resolver.
type Request struct {
	RawName        string
	NormalizedName string
	FallbackID     string
}

// EnqueueResult reports the outcome of a batch enqueue. Skipped counts
// requests whose normalized name already had an active (pending or
// processing) queue row.
type EnqueueResult struct {
	Queued  int
	Skipped int
}

// QueueStats holds per-status row counts.
type QueueStats struct {
	Pending    int
	Processing int
	Done       int
	Failed     int
}

// Queue defines the backfill queue contract. EnqueueBatch must be a single
// insert statement with insert-if-absent-in-active-set semantics: per-row
// inserts would be slow and would open a duplicate-row race between
// concurrent pipeline runs. The queue never deletes rows; done and failed
// rows remain for audit.
type Queue interface {
	EnqueueBatch(ctx context.Context, requests []Request) (EnqueueResult, error)

	// Claim atomically moves up to limit pending requests to processing
	// and returns them. Safe under concurrent drain workers.
	Claim(ctx context.Context, limit int) ([]model.EnrichmentRequest, error)

	MarkDone(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, errMsg string) error

	Stats(ctx context.Context) (QueueStats, error)

	// Migrate creates the queue schema if absent, including the partial
	// uniqueness guarantee over active statuses.
	Migrate(ctx context.Context) error

	Close() error
}
