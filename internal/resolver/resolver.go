package resolver

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/identity-cli/internal/backfill"
	"github.com/sells-group/identity-cli/internal/fallback"
	"github.com/sells-group/identity-cli/internal/lookup"
	"github.com/sells-group/identity-cli/internal/mapping"
	"github.com/sells-group/identity-cli/internal/model"
	"github.com/sells-group/identity-cli/internal/normalize"
)

// rowResult tags one row with the tier that resolved it. An empty tier means
// the row is still unresolved, which mechanically enforces first-success-wins
// across the tier passes.
type rowResult struct {
	tier model.Tier
	id   string
}

func (r rowResult) resolved() bool { return r.tier != "" }

// Resolver runs the tier cascade over a batch. Construct one per strategy;
// override sets are passed in explicitly, so resolvers with different
// configurations can coexist.
type Resolver struct {
	strategy  Strategy
	overrides *mapping.OverrideSet
	store     mapping.Store
	external  *lookup.BudgetedResolver
	generator *fallback.Generator
	queue     backfill.Queue
}

// New creates a Resolver. overrides, external, and queue may be nil; the
// corresponding tiers or side effects are simply skipped.
func New(strategy Strategy, overrides *mapping.OverrideSet, store mapping.Store, external *lookup.BudgetedResolver, generator *fallback.Generator, queue backfill.Queue) (*Resolver, error) {
	if err := strategy.Validate(); err != nil {
		return nil, err
	}
	return &Resolver{
		strategy:  strategy,
		overrides: overrides,
		store:     store,
		external:  external,
		generator: generator,
		queue:     queue,
	}, nil
}

// Resolve populates the strategy's output column on every row of the batch
// and returns per-run statistics. Rows are mutated in place. Runtime data
// trouble never surfaces as an error: store outages, provider failures, and
// queue failures all degrade to lower tiers, and the batch always comes back
// fully populated when fallback IDs are enabled.
func (r *Resolver) Resolve(ctx context.Context, batch *model.Batch) (*Statistics, error) {
	stats := &Statistics{Rows: len(batch.Rows)}
	budget := lookup.NewBudget(r.strategy.LookupBudget)
	stats.BudgetRemaining = budget.Remaining()

	normalized := make([]string, len(batch.Rows))
	for i, row := range batch.Rows {
		normalized[i] = normalize.Normalize(r.strategy.rawName(row))
	}
	results := make([]rowResult, len(batch.Rows))

	r.applyOverrides(ctx, batch, normalized, results, stats)
	r.applyCache(ctx, batch, normalized, results, stats)
	r.applyPassthrough(ctx, batch, normalized, results, stats)
	r.applyExternal(ctx, batch, normalized, results, budget, stats)
	r.applyFallback(ctx, batch, normalized, results, stats)

	for i, res := range results {
		if res.resolved() {
			batch.Rows[i][r.strategy.OutputColumn] = res.id
			stats.countHit(res.tier)
		} else {
			stats.Unresolved++
		}
	}
	stats.BudgetConsumed = budget.Consumed()
	stats.BudgetRemaining = budget.Remaining()

	zap.L().Info("resolver: batch complete", stats.Fields()...)
	return stats, nil
}

// applyOverrides resolves rows against the in-memory override tiers and,
// when backflow is on, writes the hits into the cache tagged with the
// override tier. Those rows are what `overrides invalidate` retracts after
// an override is dropped from configuration.
func (r *Resolver) applyOverrides(ctx context.Context, batch *model.Batch, normalized []string, results []rowResult, stats *Statistics) {
	if r.overrides == nil {
		return
	}

	var backflow []model.MappingEntry
	seen := make(map[string]struct{})
	for i, row := range batch.Rows {
		planCode := ""
		if r.strategy.PlanCodeColumn != "" {
			planCode = row[r.strategy.PlanCodeColumn]
		}
		entry, ok := r.overrides.Lookup(planCode, normalized[i])
		if !ok {
			continue
		}
		results[i] = rowResult{tier: model.TierOverride, id: entry.CompanyID}

		if r.strategy.EnableBackflow {
			if _, dup := seen[normalized[i]]; !dup {
				seen[normalized[i]] = struct{}{}
				backflow = append(backflow, model.MappingEntry{
					NormalizedName: normalized[i],
					CompanyID:      entry.CompanyID,
					SourceTier:     model.TierOverride,
				})
			}
		}
	}

	if len(backflow) == 0 {
		return
	}
	n, err := r.store.BulkWriteThrough(ctx, backflow)
	if err != nil {
		stats.StoreErrors++
		zap.L().Warn("resolver: override backflow failed",
			zap.Int("entries", len(backflow)), zap.Error(err))
		return
	}
	stats.BackflowWrites += int(n)
}

// applyCache resolves all still-open rows in one batched store read. A store
// outage is a miss for every open row, counted once.
func (r *Resolver) applyCache(ctx context.Context, batch *model.Batch, normalized []string, results []rowResult, stats *Statistics) {
	open := make(map[string]struct{})
	for i := range batch.Rows {
		if !results[i].resolved() {
			open[normalized[i]] = struct{}{}
		}
	}
	if len(open) == 0 {
		return
	}

	names := make([]string, 0, len(open))
	for name := range open {
		names = append(names, name)
	}

	cached, err := r.store.BatchLookupCached(ctx, names)
	if err != nil {
		stats.StoreErrors++
		zap.L().Warn("resolver: cache lookup unavailable, continuing without it",
			zap.Int("names", len(names)), zap.Error(err))
		return
	}

	for i := range batch.Rows {
		if results[i].resolved() {
			continue
		}
		if entry, ok := cached[normalized[i]]; ok {
			results[i] = rowResult{tier: model.TierCache, id: entry.CompanyID}
		}
	}
}

// applyPassthrough accepts an identifier the input row already carries and,
// when backflow is on, bulk-writes those pairs into the store so future runs
// resolve the same names from cache.
func (r *Resolver) applyPassthrough(ctx context.Context, batch *model.Batch, normalized []string, results []rowResult, stats *Statistics) {
	if r.strategy.ExistingIDColumn == "" {
		return
	}

	var backflow []model.MappingEntry
	seen := make(map[string]struct{})
	for i, row := range batch.Rows {
		if results[i].resolved() {
			continue
		}
		id := row[r.strategy.ExistingIDColumn]
		if id == "" {
			continue
		}
		results[i] = rowResult{tier: model.TierPassthrough, id: id}

		if r.strategy.EnableBackflow {
			if _, dup := seen[normalized[i]]; !dup {
				seen[normalized[i]] = struct{}{}
				backflow = append(backflow, model.MappingEntry{
					NormalizedName: normalized[i],
					CompanyID:      id,
					SourceTier:     model.TierPassthrough,
				})
			}
		}
	}

	if len(backflow) == 0 {
		return
	}
	n, err := r.store.BulkWriteThrough(ctx, backflow)
	if err != nil {
		stats.StoreErrors++
		zap.L().Warn("resolver: passthrough backflow failed",
			zap.Int("entries", len(backflow)), zap.Error(err))
		return
	}
	stats.BackflowWrites += int(n)
}

// applyExternal spends the run budget on unique unresolved names. The
// budgeted resolver pre-checks the budget, so once it hits zero the
// remaining names are skipped without any provider traffic.
func (r *Resolver) applyExternal(ctx context.Context, batch *model.Batch, normalized []string, results []rowResult, budget *lookup.Budget, stats *Statistics) {
	if !r.strategy.UseLookupService || r.external == nil {
		return
	}

	resolvedNames := make(map[string]string)
	attempted := make(map[string]struct{})
	for i := range batch.Rows {
		if results[i].resolved() {
			continue
		}
		name := normalized[i]
		if _, done := attempted[name]; !done {
			attempted[name] = struct{}{}
			id, consumed := r.external.TryResolve(ctx, name, budget)
			if id != "" {
				resolvedNames[name] = id
			} else if consumed {
				stats.ExternalFailures++
			}
		}
		if id, ok := resolvedNames[name]; ok {
			results[i] = rowResult{tier: model.TierExternal, id: id}
		}
	}
}

// applyFallback closes out every remaining row with a generated ID and, when
// the async queue is on, enqueues the unique names for later re-resolution
// in a single batch call. Enqueue trouble is logged with counts only and
// never touches the returned batch.
func (r *Resolver) applyFallback(ctx context.Context, batch *model.Batch, normalized []string, results []rowResult, stats *Statistics) {
	if !r.strategy.EnableFallbackIDs || r.generator == nil {
		return
	}

	var requests []backfill.Request
	seen := make(map[string]struct{})
	for i, row := range batch.Rows {
		if results[i].resolved() {
			continue
		}
		id := r.generator.GenerateID(r.strategy.rawName(row))
		results[i] = rowResult{tier: model.TierFallback, id: id}

		if _, dup := seen[normalized[i]]; !dup {
			seen[normalized[i]] = struct{}{}
			requests = append(requests, backfill.Request{
				RawName:        r.strategy.rawName(row),
				NormalizedName: normalized[i],
				FallbackID:     id,
			})
		}
	}

	if !r.strategy.EnableAsyncQueue || r.queue == nil || len(requests) == 0 {
		return
	}
	res, err := r.queue.EnqueueBatch(ctx, requests)
	if err != nil {
		stats.QueueErrors++
		zap.L().Warn("resolver: backfill enqueue failed",
			zap.Int("requests", len(requests)), zap.Error(err))
		return
	}
	stats.QueueEnqueued += res.Queued
	stats.QueueSkipped += res.Skipped
}
