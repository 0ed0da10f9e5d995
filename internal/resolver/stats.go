package resolver

import (
	"go.uber.org/zap"

	"github.com/sells-group/identity-cli/internal/model"
)

// Statistics accumulates per-run resolution counters. One instance is
// created per Resolve call and returned with the enriched batch; nothing
// here is persisted.
type Statistics struct {
	Rows int `json:"rows"`

	OverrideHits    int `json:"override_hits"`
	CacheHits       int `json:"cache_hits"`
	PassthroughHits int `json:"passthrough_hits"`
	ExternalHits    int `json:"external_hits"`
	FallbackIDs     int `json:"fallback_ids"`
	Unresolved      int `json:"unresolved"`

	StoreErrors      int `json:"store_errors"`
	ExternalFailures int `json:"external_failures"`

	BudgetConsumed  int `json:"budget_consumed"`
	BudgetRemaining int `json:"budget_remaining"`

	BackflowWrites int `json:"backflow_writes"`

	QueueEnqueued int `json:"queue_enqueued"`
	QueueSkipped  int `json:"queue_skipped"`
	QueueErrors   int `json:"queue_errors"`
}

func (s *Statistics) countHit(tier model.Tier) {
	switch tier {
	case model.TierOverride:
		s.OverrideHits++
	case model.TierCache:
		s.CacheHits++
	case model.TierPassthrough:
		s.PassthroughHits++
	case model.TierExternal:
		s.ExternalHits++
	case model.TierFallback:
		s.FallbackIDs++
	}
}

// Fields renders the statistics as structured log fields.
func (s *Statistics) Fields() []zap.Field {
	return []zap.Field{
		zap.Int("rows", s.Rows),
		zap.Int("override_hits", s.OverrideHits),
		zap.Int("cache_hits", s.CacheHits),
		zap.Int("passthrough_hits", s.PassthroughHits),
		zap.Int("external_hits", s.ExternalHits),
		zap.Int("fallback_ids", s.FallbackIDs),
		zap.Int("unresolved", s.Unresolved),
		zap.Int("store_errors", s.StoreErrors),
		zap.Int("external_failures", s.ExternalFailures),
		zap.Int("budget_consumed", s.BudgetConsumed),
		zap.Int("budget_remaining", s.BudgetRemaining),
		zap.Int("backflow_writes", s.BackflowWrites),
		zap.Int("queue_enqueued", s.QueueEnqueued),
		zap.Int("queue_skipped", s.QueueSkipped),
		zap.Int("queue_errors", s.QueueErrors),
	}
}
