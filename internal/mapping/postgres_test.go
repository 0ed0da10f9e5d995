package mapping

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/identity-cli/internal/model"
)

func TestPostgresLookupCached_Hit(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT normalized_name, company_id, source_tier, confidence, created_at`).
		WithArgs("abc集团").
		WillReturnRows(pgxmock.NewRows([]string{"normalized_name", "company_id", "source_tier", "confidence", "created_at"}).
			AddRow("abc集团", "C-1", "external", 0.95, now))

	s := NewPostgres(mock)
	e, err := s.LookupCached(context.Background(), "abc集团")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "C-1", e.CompanyID)
	assert.Equal(t, model.TierExternal, e.SourceTier)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLookupCached_Miss(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT normalized_name, company_id, source_tier, confidence, created_at`).
		WithArgs("unknown").
		WillReturnRows(pgxmock.NewRows([]string{"normalized_name", "company_id", "source_tier", "confidence", "created_at"}))

	s := NewPostgres(mock)
	e, err := s.LookupCached(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Nil(t, e)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLookupCached_Unavailable(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT normalized_name`).
		WithArgs("abc").
		WillReturnError(fmt.Errorf("connection refused"))

	s := NewPostgres(mock)
	_, err = s.LookupCached(context.Background(), "abc")
	require.Error(t, err)
	assert.True(t, IsStoreUnavailable(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBatchLookupCached(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	names := []string{"acme", "globex", "initech"}
	mock.ExpectQuery(`WHERE normalized_name = ANY`).
		WithArgs(names).
		WillReturnRows(pgxmock.NewRows([]string{"normalized_name", "company_id", "source_tier", "confidence", "created_at"}).
			AddRow("acme", "C-1", "external", 0.95, now).
			AddRow("initech", "C-3", "passthrough", 0.85, now))

	s := NewPostgres(mock)
	got, err := s.BatchLookupCached(context.Background(), names)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "C-1", got["acme"].CompanyID)
	assert.Equal(t, "C-3", got["initech"].CompanyID)
	_, miss := got["globex"]
	assert.False(t, miss)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBatchLookupCached_Empty(t *testing.T) {
	s := NewPostgres(nil)
	got, err := s.BatchLookupCached(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPostgresWriteThrough_TierRankArgs(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	// The conflict guard compares tier_rank; the incoming rank rides along
	// as an argument so the rule is enforced server-side.
	mock.ExpectExec(`ON CONFLICT \(normalized_name\) DO UPDATE`).
		WithArgs("acme", "C-1", "external", model.TierExternal.Rank(), 0.95).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	s := NewPostgres(mock)
	err = s.WriteThrough(context.Background(), "acme", "C-1", model.TierExternal)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresWriteThrough_Unavailable(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`ON CONFLICT`).
		WithArgs("acme", "C-1", "passthrough", model.TierPassthrough.Rank(), 0.85).
		WillReturnError(fmt.Errorf("connection refused"))

	s := NewPostgres(mock)
	err = s.WriteThrough(context.Background(), "acme", "C-1", model.TierPassthrough)
	require.Error(t, err)
	assert.True(t, IsStoreUnavailable(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInvalidate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`DELETE FROM company_mappings WHERE source_tier`).
		WithArgs("override").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	s := NewPostgres(mock)
	n, err := s.Invalidate(context.Background(), model.TierOverride)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBulkWriteThrough_Empty(t *testing.T) {
	s := NewPostgres(nil)
	n, err := s.BulkWriteThrough(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}
