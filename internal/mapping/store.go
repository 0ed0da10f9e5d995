// Package mapping owns the persisted and static company-name mappings:
// human-curated override tiers plus the write-through cache that successful
// resolutions backflow into.
package mapping

import (
	"context"

	"github.com/sells-group/identity-cli/internal/model"
)

// Store defines the persistence contract for cached name mappings. Lookups
// return (nil, nil) when no mapping exists; store-unreachable conditions
// surface as StoreUnavailableError. All mutation goes through WriteThrough
// and BulkWriteThrough so the tier-priority conflict rule has exactly one
// implementation per backend to audit.
type Store interface {
	// LookupCached returns the cached mapping for one normalized name.
	LookupCached(ctx context.Context, normalized string) (*model.MappingEntry, error)

	// BatchLookupCached resolves many normalized names in one read.
	BatchLookupCached(ctx context.Context, names []string) (map[string]model.MappingEntry, error)

	// WriteThrough upserts one mapping. The stored row is overwritten only
	// when the incoming tier has equal-or-higher priority; equal priority
	// favors the incoming value so re-runs stay idempotent.
	WriteThrough(ctx context.Context, normalized, companyID string, tier model.Tier) error

	// BulkWriteThrough applies the WriteThrough rule to many entries in a
	// single statement. Returns the number of rows written.
	BulkWriteThrough(ctx context.Context, entries []model.MappingEntry) (int64, error)

	// Invalidate removes all cache entries that originated from the given
	// tier. Administrative operation: dropping an override from
	// configuration does not retract its cached derivatives by itself.
	Invalidate(ctx context.Context, tier model.Tier) (int64, error)

	// Migrate creates the mapping schema if absent.
	Migrate(ctx context.Context) error

	Close() error
}

// tierConfidence is the confidence recorded for entries written by each tier.
func tierConfidence(t model.Tier) float64 {
	switch t {
	case model.TierOverride:
		return 1.0
	case model.TierExternal:
		return 0.95
	case model.TierPassthrough:
		return 0.85
	default:
		return 0.5
	}
}
