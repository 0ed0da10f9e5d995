package mapping

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/identity-cli/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "mappings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLiteWriteThroughAndLookup(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	require.NoError(t, s.WriteThrough(ctx, "acme", "C-1", model.TierExternal))

	e, err := s.LookupCached(ctx, "acme")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "C-1", e.CompanyID)
	assert.Equal(t, model.TierExternal, e.SourceTier)
	assert.InDelta(t, 0.95, e.Confidence, 1e-9)
}

func TestSQLiteLookupCached_Miss(t *testing.T) {
	s := newTestSQLite(t)
	e, err := s.LookupCached(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestSQLiteWriteThrough_HigherTierWins(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	require.NoError(t, s.WriteThrough(ctx, "acme", "C-PASS", model.TierPassthrough))
	require.NoError(t, s.WriteThrough(ctx, "acme", "C-EXT", model.TierExternal))

	e, err := s.LookupCached(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "C-EXT", e.CompanyID)
	assert.Equal(t, model.TierExternal, e.SourceTier)
}

func TestSQLiteWriteThrough_LowerTierLoses(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	require.NoError(t, s.WriteThrough(ctx, "acme", "C-EXT", model.TierExternal))
	require.NoError(t, s.WriteThrough(ctx, "acme", "C-PASS", model.TierPassthrough))

	// The less-authoritative passthrough write must not clobber the
	// external mapping.
	e, err := s.LookupCached(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "C-EXT", e.CompanyID)
}

func TestSQLiteWriteThrough_EqualTierPrefersIncoming(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	require.NoError(t, s.WriteThrough(ctx, "acme", "C-OLD", model.TierExternal))
	require.NoError(t, s.WriteThrough(ctx, "acme", "C-NEW", model.TierExternal))

	e, err := s.LookupCached(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "C-NEW", e.CompanyID)
}

func TestSQLiteBatchLookupCached(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	require.NoError(t, s.WriteThrough(ctx, "acme", "C-1", model.TierExternal))
	require.NoError(t, s.WriteThrough(ctx, "globex", "C-2", model.TierPassthrough))

	got, err := s.BatchLookupCached(ctx, []string{"acme", "globex", "missing"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "C-1", got["acme"].CompanyID)
	assert.Equal(t, "C-2", got["globex"].CompanyID)
}

func TestSQLiteBulkWriteThrough(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	n, err := s.BulkWriteThrough(ctx, []model.MappingEntry{
		{NormalizedName: "acme", CompanyID: "C-1", SourceTier: model.TierPassthrough},
		{NormalizedName: "globex", CompanyID: "C-2", SourceTier: model.TierPassthrough},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	e, err := s.LookupCached(ctx, "globex")
	require.NoError(t, err)
	assert.Equal(t, "C-2", e.CompanyID)
}

func TestSQLiteInvalidate(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	require.NoError(t, s.WriteThrough(ctx, "acme", "C-1", model.TierOverride))
	require.NoError(t, s.WriteThrough(ctx, "globex", "C-2", model.TierExternal))

	n, err := s.Invalidate(ctx, model.TierOverride)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	e, err := s.LookupCached(ctx, "acme")
	require.NoError(t, err)
	assert.Nil(t, e)

	e, err = s.LookupCached(ctx, "globex")
	require.NoError(t, err)
	require.NotNil(t, e)
}
