package model

// Tier identifies one resolution strategy. Tiers are tried in strict
// priority order: override, cache, passthrough, external, fallback.
type Tier string

const (
	TierOverride    Tier = "override"
	TierCache       Tier = "cache"
	TierPassthrough Tier = "passthrough"
	TierExternal    Tier = "external"
	TierFallback    Tier = "fallback"
)

// Rank returns the write-through authority of a tier. Lower is more
// authoritative. An incoming mapping may overwrite a stored one only when
// its rank is equal or lower; equal ranks favor the incoming value so
// re-runs stay idempotent.
func (t Tier) Rank() int {
	switch t {
	case TierOverride:
		return 10
	case TierExternal:
		return 20
	case TierPassthrough:
		return 30
	case TierCache:
		return 40
	case TierFallback:
		return 50
	default:
		return 90
	}
}
