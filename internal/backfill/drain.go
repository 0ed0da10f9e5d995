package backfill

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/identity-cli/internal/lookup"
	"github.com/sells-group/identity-cli/internal/mapping"
	"github.com/sells-group/identity-cli/internal/model"
)

// DrainResult reports one drain pass.
type DrainResult struct {
	Claimed  int
	Resolved int
	Failed   int
}

// Drainer re-resolves queued names against the external provider and
// backflows answers into the mapping store, so historical fallback IDs
// converge to real identifiers on the cache side without rewriting rows
// already emitted.
type Drainer struct {
	queue   Queue
	client  lookup.Client
	store   mapping.Store
	batch   int
	workers int
}

// NewDrainer creates a Drainer. batch bounds one claim; workers bounds
// concurrent provider calls.
func NewDrainer(queue Queue, client lookup.Client, store mapping.Store, batch, workers int) *Drainer {
	if batch <= 0 {
		batch = 100
	}
	if workers <= 0 {
		workers = 4
	}
	return &Drainer{queue: queue, client: client, store: store, batch: batch, workers: workers}
}

// Drain claims one batch of pending requests and processes them. Returns
// once the batch is fully marked done or failed; call again until Claimed
// is zero to empty the queue.
func (d *Drainer) Drain(ctx context.Context) (DrainResult, error) {
	claimed, err := d.queue.Claim(ctx, d.batch)
	if err != nil {
		return DrainResult{}, err
	}
	if len(claimed) == 0 {
		return DrainResult{}, nil
	}

	var resolved, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for _, req := range claimed {
		g.Go(func() error {
			d.process(gctx, req, &resolved, &failed)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; failures are per-row

	result := DrainResult{
		Claimed:  len(claimed),
		Resolved: int(resolved.Load()),
		Failed:   int(failed.Load()),
	}
	zap.L().Info("backfill: drain pass complete",
		zap.Int("claimed", result.Claimed),
		zap.Int("resolved", result.Resolved),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func (d *Drainer) process(ctx context.Context, req model.EnrichmentRequest, resolved, failed *atomic.Int64) {
	id, err := d.client.Resolve(ctx, req.NormalizedName)
	if err != nil {
		failed.Add(1)
		if markErr := d.queue.MarkFailed(ctx, req.ID, err.Error()); markErr != nil {
			zap.L().Error("backfill: mark failed", zap.String("request_id", req.ID), zap.Error(markErr))
		}
		return
	}

	if err := d.store.WriteThrough(ctx, req.NormalizedName, id, model.TierExternal); err != nil {
		// The answer is good but the cache write missed; leave the request
		// failed so a later pass retries the backflow.
		failed.Add(1)
		if markErr := d.queue.MarkFailed(ctx, req.ID, err.Error()); markErr != nil {
			zap.L().Error("backfill: mark failed", zap.String("request_id", req.ID), zap.Error(markErr))
		}
		return
	}

	resolved.Add(1)
	if err := d.queue.MarkDone(ctx, req.ID); err != nil {
		zap.L().Error("backfill: mark done", zap.String("request_id", req.ID), zap.Error(err))
	}
}
