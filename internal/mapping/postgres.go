package mapping

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/identity-cli/internal/db"
	"github.com/sells-group/identity-cli/internal/model"
)

// PostgresStore implements Store on a shared Postgres database. Concurrent
// pipeline runs race through the same upsert, so the tier-priority rule
// lives entirely in the ON CONFLICT clause.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres creates a PostgresStore on an existing pool.
func NewPostgres(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS company_mappings (
	normalized_name TEXT PRIMARY KEY,
	company_id      TEXT NOT NULL,
	source_tier     TEXT NOT NULL,
	tier_rank       SMALLINT NOT NULL,
	confidence      REAL NOT NULL DEFAULT 0,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_company_mappings_source_tier ON company_mappings(source_tier);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return &StoreUnavailableError{Err: eris.Wrap(err, "mapping: migrate")}
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return nil // pool is owned by the caller
}

func (s *PostgresStore) LookupCached(ctx context.Context, normalized string) (*model.MappingEntry, error) {
	var e model.MappingEntry
	err := s.pool.QueryRow(ctx,
		`SELECT normalized_name, company_id, source_tier, confidence, created_at
		 FROM company_mappings WHERE normalized_name = $1`,
		normalized,
	).Scan(&e.NormalizedName, &e.CompanyID, &e.SourceTier, &e.Confidence, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, &StoreUnavailableError{Err: eris.Wrap(err, "mapping: lookup cached")}
	}
	return &e, nil
}

func (s *PostgresStore) BatchLookupCached(ctx context.Context, names []string) (map[string]model.MappingEntry, error) {
	if len(names) == 0 {
		return map[string]model.MappingEntry{}, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT normalized_name, company_id, source_tier, confidence, created_at
		 FROM company_mappings WHERE normalized_name = ANY($1)`,
		names,
	)
	if err != nil {
		return nil, &StoreUnavailableError{Err: eris.Wrap(err, "mapping: batch lookup")}
	}
	defer rows.Close()

	out := make(map[string]model.MappingEntry, len(names))
	for rows.Next() {
		var e model.MappingEntry
		if err := rows.Scan(&e.NormalizedName, &e.CompanyID, &e.SourceTier, &e.Confidence, &e.CreatedAt); err != nil {
			return nil, &StoreUnavailableError{Err: eris.Wrap(err, "mapping: scan batch row")}
		}
		out[e.NormalizedName] = e
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreUnavailableError{Err: eris.Wrap(err, "mapping: iterate batch rows")}
	}
	return out, nil
}

// writeThroughSQL overwrites an existing row only when the incoming tier is
// at least as authoritative (lower rank). Equal ranks take the incoming
// value so repeated runs converge on the latest write.
const writeThroughSQL = `
INSERT INTO company_mappings (normalized_name, company_id, source_tier, tier_rank, confidence, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, now(), now())
ON CONFLICT (normalized_name) DO UPDATE SET
	company_id  = EXCLUDED.company_id,
	source_tier = EXCLUDED.source_tier,
	tier_rank   = EXCLUDED.tier_rank,
	confidence  = EXCLUDED.confidence,
	updated_at  = now()
WHERE company_mappings.tier_rank >= EXCLUDED.tier_rank`

func (s *PostgresStore) WriteThrough(ctx context.Context, normalized, companyID string, tier model.Tier) error {
	_, err := s.pool.Exec(ctx, writeThroughSQL,
		normalized, companyID, string(tier), tier.Rank(), tierConfidence(tier),
	)
	if err != nil {
		return &StoreUnavailableError{Err: eris.Wrap(err, "mapping: write through")}
	}
	return nil
}

func (s *PostgresStore) BulkWriteThrough(ctx context.Context, entries []model.MappingEntry) (int64, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		conf := e.Confidence
		if conf == 0 {
			conf = tierConfidence(e.SourceTier)
		}
		rows = append(rows, []any{
			e.NormalizedName, e.CompanyID, string(e.SourceTier), e.SourceTier.Rank(), conf, now, now,
		})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "company_mappings",
		Columns:      []string{"normalized_name", "company_id", "source_tier", "tier_rank", "confidence", "created_at", "updated_at"},
		ConflictKeys: []string{"normalized_name"},
		UpdateCols:   []string{"company_id", "source_tier", "tier_rank", "confidence", "updated_at"},
		UpdateWhere:  "company_mappings.tier_rank >= EXCLUDED.tier_rank",
	}, rows)
	if err != nil {
		return 0, &StoreUnavailableError{Err: eris.Wrap(err, "mapping: bulk write through")}
	}
	return n, nil
}

func (s *PostgresStore) Invalidate(ctx context.Context, tier model.Tier) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM company_mappings WHERE source_tier = $1`,
		string(tier),
	)
	if err != nil {
		return 0, &StoreUnavailableError{Err: eris.Wrap(err, "mapping: invalidate")}
	}
	return tag.RowsAffected(), nil
}
