package lookup

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/identity-cli/internal/mapping"
	"github.com/sells-group/identity-cli/internal/model"
)

// Budget caps the number of external lookup attempts within one run.
// Budget governs call volume, not success rate: a failed or timed-out call
// spends budget the same as a hit, which keeps an unreachable provider from
// causing unbounded attempts inside a run.
type Budget struct {
	remaining int
	consumed  int
}

// NewBudget creates a Budget allowing n attempts.
func NewBudget(n int) *Budget {
	if n < 0 {
		n = 0
	}
	return &Budget{remaining: n}
}

func (b *Budget) Remaining() int { return b.remaining }
func (b *Budget) Consumed() int  { return b.consumed }

func (b *Budget) spend() {
	b.remaining--
	b.consumed++
}

// BudgetedResolver gates a lookup Client behind a per-run Budget and
// backflows successful answers into the mapping store.
type BudgetedResolver struct {
	client Client
	store  mapping.Store
}

// NewBudgetedResolver creates a BudgetedResolver.
func NewBudgetedResolver(client Client, store mapping.Store) *BudgetedResolver {
	return &BudgetedResolver{client: client, store: store}
}

// TryResolve attempts one external lookup. The budget is checked before any
// network attempt; exhaustion returns ("", false) without spending. Every
// actual attempt consumes budget regardless of outcome, and all failures
// collapse to a miss — nothing here ever aborts a batch. On success the
// identifier is written through to the mapping store before returning, so
// later rows and later runs hit the cache instead of spending budget.
func (r *BudgetedResolver) TryResolve(ctx context.Context, normalized string, budget *Budget) (string, bool) {
	if budget.Remaining() <= 0 {
		return "", false
	}
	budget.spend()

	id, err := r.client.Resolve(ctx, normalized)
	if err != nil {
		// Counts only; names stay out of the logs.
		zap.L().Debug("lookup: attempt missed", zap.Error(err))
		return "", true
	}

	if err := r.store.WriteThrough(ctx, normalized, id, model.TierExternal); err != nil {
		zap.L().Warn("lookup: write-through after hit failed", zap.Error(err))
	}
	return id, true
}
