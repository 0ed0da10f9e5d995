package backfill

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/identity-cli/internal/model"
)

// SQLiteQueue implements Queue using modernc.org/sqlite, for local
// development and single-host runs.
type SQLiteQueue struct {
	db *sql.DB
}

// NewSQLite opens a SQLite-backed queue at the given path.
func NewSQLite(dsn string) (*SQLiteQueue, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "backfill sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, eris.Wrapf(err, "backfill sqlite: exec %s", pragma)
		}
	}
	return &SQLiteQueue{db: conn}, nil
}

// NewSQLiteOnDB wraps an already-open handle so the queue and the mapping
// store can share one database file.
func NewSQLiteOnDB(conn *sql.DB) *SQLiteQueue {
	return &SQLiteQueue{db: conn}
}

const sqliteQueueMigration = `
CREATE TABLE IF NOT EXISTS enrichment_requests (
	id              TEXT PRIMARY KEY,
	raw_name        TEXT NOT NULL,
	normalized_name TEXT NOT NULL,
	fallback_id     TEXT NOT NULL,
	status          TEXT NOT NULL DEFAULT 'pending',
	error           TEXT,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS ux_enrichment_requests_active
	ON enrichment_requests(normalized_name)
	WHERE status IN ('pending', 'processing');

CREATE INDEX IF NOT EXISTS idx_enrichment_requests_status ON enrichment_requests(status);
`

func (q *SQLiteQueue) Migrate(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, sqliteQueueMigration)
	return eris.Wrap(err, "backfill sqlite: migrate")
}

func (q *SQLiteQueue) Close() error {
	return q.db.Close()
}

func (q *SQLiteQueue) EnqueueBatch(ctx context.Context, requests []Request) (EnqueueResult, error) {
	if len(requests) == 0 {
		return EnqueueResult{}, nil
	}

	// One multi-row insert; the conflict target names the partial unique
	// index predicate so only active duplicates are dropped.
	var sb strings.Builder
	sb.WriteString(`INSERT INTO enrichment_requests (id, raw_name, normalized_name, fallback_id, status, created_at, updated_at) VALUES `)
	now := time.Now().UTC()
	args := make([]any, 0, len(requests)*7)
	for i, r := range requests {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?, ?, ?, 'pending', ?, ?)")
		args = append(args, uuid.New().String(), r.RawName, r.NormalizedName, r.FallbackID, now, now)
	}
	sb.WriteString(` ON CONFLICT (normalized_name) WHERE status IN ('pending', 'processing') DO NOTHING`)

	res, err := q.db.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return EnqueueResult{}, eris.Wrap(err, "backfill sqlite: enqueue batch")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return EnqueueResult{}, eris.Wrap(err, "backfill sqlite: rows affected")
	}
	return EnqueueResult{Queued: int(n), Skipped: len(requests) - int(n)}, nil
}

func (q *SQLiteQueue) Claim(ctx context.Context, limit int) ([]model.EnrichmentRequest, error) {
	if limit <= 0 {
		limit = 100
	}

	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "backfill sqlite: begin claim")
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, raw_name, normalized_name, fallback_id, status, created_at
		FROM enrichment_requests
		WHERE status = 'pending'
		ORDER BY created_at
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "backfill sqlite: select pending")
	}

	var claimed []model.EnrichmentRequest
	for rows.Next() {
		var r model.EnrichmentRequest
		var status string
		if err := rows.Scan(&r.ID, &r.RawName, &r.NormalizedName, &r.FallbackID, &status, &r.CreatedAt); err != nil {
			rows.Close()
			return nil, eris.Wrap(err, "backfill sqlite: scan pending row")
		}
		r.Status = model.StatusProcessing
		claimed = append(claimed, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "backfill sqlite: iterate pending rows")
	}

	if len(claimed) == 0 {
		return nil, tx.Commit()
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(claimed)), ",")
	args := make([]any, 0, len(claimed)+1)
	args = append(args, time.Now().UTC())
	for _, r := range claimed {
		args = append(args, r.ID)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE enrichment_requests SET status = 'processing', updated_at = ? WHERE id IN (`+placeholders+`)`,
		args...,
	); err != nil {
		return nil, eris.Wrap(err, "backfill sqlite: mark processing")
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "backfill sqlite: commit claim")
	}
	return claimed, nil
}

func (q *SQLiteQueue) MarkDone(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE enrichment_requests
		SET status = 'done', error = NULL, updated_at = ?
		WHERE id = ?`,
		time.Now().UTC(), id,
	)
	return eris.Wrapf(err, "backfill sqlite: mark done %s", id)
}

func (q *SQLiteQueue) MarkFailed(ctx context.Context, id, errMsg string) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE enrichment_requests
		SET status = 'failed', error = ?, updated_at = ?
		WHERE id = ?`,
		errMsg, time.Now().UTC(), id,
	)
	return eris.Wrapf(err, "backfill sqlite: mark failed %s", id)
}

func (q *SQLiteQueue) Stats(ctx context.Context) (QueueStats, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM enrichment_requests GROUP BY status`)
	if err != nil {
		return QueueStats{}, eris.Wrap(err, "backfill sqlite: stats")
	}
	defer rows.Close()

	var stats QueueStats
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return QueueStats{}, eris.Wrap(err, "backfill sqlite: scan stats row")
		}
		switch model.RequestStatus(status) {
		case model.StatusPending:
			stats.Pending = count
		case model.StatusProcessing:
			stats.Processing = count
		case model.StatusDone:
			stats.Done = count
		case model.StatusFailed:
			stats.Failed = count
		}
	}
	return stats, eris.Wrap(rows.Err(), "backfill sqlite: iterate stats rows")
}
