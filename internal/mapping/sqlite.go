package mapping

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/identity-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Intended for local
// development and single-host runs; the shared-pipeline deployment uses
// PostgresStore.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "mapping sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, eris.Wrapf(err, "mapping sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: conn}, nil
}

// DB exposes the underlying handle so the backfill queue can share one file.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS company_mappings (
	normalized_name TEXT PRIMARY KEY,
	company_id      TEXT NOT NULL,
	source_tier     TEXT NOT NULL,
	tier_rank       INTEGER NOT NULL,
	confidence      REAL NOT NULL DEFAULT 0,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_company_mappings_source_tier ON company_mappings(source_tier);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return &StoreUnavailableError{Err: eris.Wrap(err, "mapping sqlite: migrate")}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) LookupCached(ctx context.Context, normalized string) (*model.MappingEntry, error) {
	var e model.MappingEntry
	var tier string
	err := s.db.QueryRowContext(ctx,
		`SELECT normalized_name, company_id, source_tier, confidence, created_at
		 FROM company_mappings WHERE normalized_name = ?`,
		normalized,
	).Scan(&e.NormalizedName, &e.CompanyID, &tier, &e.Confidence, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, &StoreUnavailableError{Err: eris.Wrap(err, "mapping sqlite: lookup cached")}
	}
	e.SourceTier = model.Tier(tier)
	return &e, nil
}

func (s *SQLiteStore) BatchLookupCached(ctx context.Context, names []string) (map[string]model.MappingEntry, error) {
	out := make(map[string]model.MappingEntry, len(names))
	if len(names) == 0 {
		return out, nil
	}

	// SQLite has a bound-parameter ceiling; chunk large batches.
	const chunkSize = 500
	for start := 0; start < len(names); start += chunkSize {
		end := min(start+chunkSize, len(names))
		chunk := names[start:end]

		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		args := make([]any, len(chunk))
		for i, n := range chunk {
			args[i] = n
		}

		rows, err := s.db.QueryContext(ctx,
			`SELECT normalized_name, company_id, source_tier, confidence, created_at
			 FROM company_mappings WHERE normalized_name IN (`+placeholders+`)`,
			args...,
		)
		if err != nil {
			return nil, &StoreUnavailableError{Err: eris.Wrap(err, "mapping sqlite: batch lookup")}
		}

		for rows.Next() {
			var e model.MappingEntry
			var tier string
			if err := rows.Scan(&e.NormalizedName, &e.CompanyID, &tier, &e.Confidence, &e.CreatedAt); err != nil {
				rows.Close()
				return nil, &StoreUnavailableError{Err: eris.Wrap(err, "mapping sqlite: scan batch row")}
			}
			e.SourceTier = model.Tier(tier)
			out[e.NormalizedName] = e
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, &StoreUnavailableError{Err: eris.Wrap(err, "mapping sqlite: iterate batch rows")}
		}
	}
	return out, nil
}

const sqliteWriteThroughSQL = `
INSERT INTO company_mappings (normalized_name, company_id, source_tier, tier_rank, confidence, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (normalized_name) DO UPDATE SET
	company_id  = excluded.company_id,
	source_tier = excluded.source_tier,
	tier_rank   = excluded.tier_rank,
	confidence  = excluded.confidence,
	updated_at  = excluded.updated_at
WHERE company_mappings.tier_rank >= excluded.tier_rank`

func (s *SQLiteStore) WriteThrough(ctx context.Context, normalized, companyID string, tier model.Tier) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, sqliteWriteThroughSQL,
		normalized, companyID, string(tier), tier.Rank(), tierConfidence(tier), now, now,
	)
	if err != nil {
		return &StoreUnavailableError{Err: eris.Wrap(err, "mapping sqlite: write through")}
	}
	return nil
}

func (s *SQLiteStore) BulkWriteThrough(ctx context.Context, entries []model.MappingEntry) (int64, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &StoreUnavailableError{Err: eris.Wrap(err, "mapping sqlite: begin bulk write")}
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, sqliteWriteThroughSQL)
	if err != nil {
		return 0, &StoreUnavailableError{Err: eris.Wrap(err, "mapping sqlite: prepare bulk write")}
	}
	defer stmt.Close()

	now := time.Now().UTC()
	var written int64
	for _, e := range entries {
		conf := e.Confidence
		if conf == 0 {
			conf = tierConfidence(e.SourceTier)
		}
		res, err := stmt.ExecContext(ctx,
			e.NormalizedName, e.CompanyID, string(e.SourceTier), e.SourceTier.Rank(), conf, now, now,
		)
		if err != nil {
			return 0, &StoreUnavailableError{Err: eris.Wrap(err, "mapping sqlite: bulk write row")}
		}
		n, _ := res.RowsAffected()
		written += n
	}

	if err := tx.Commit(); err != nil {
		return 0, &StoreUnavailableError{Err: eris.Wrap(err, "mapping sqlite: commit bulk write")}
	}
	return written, nil
}

func (s *SQLiteStore) Invalidate(ctx context.Context, tier model.Tier) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM company_mappings WHERE source_tier = ?`,
		string(tier),
	)
	if err != nil {
		return 0, &StoreUnavailableError{Err: eris.Wrap(err, "mapping sqlite: invalidate")}
	}
	n, _ := res.RowsAffected()
	return n, nil
}
