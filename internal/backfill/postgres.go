package backfill

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/identity-cli/internal/db"
	"github.com/sells-group/identity-cli/internal/model"
)

// PostgresQueue implements Queue on a shared Postgres database. Dedup rests
// on a partial unique index over active statuses, so two concurrent runs
// enqueuing the same name cannot both insert an active row.
type PostgresQueue struct {
	pool db.Pool
}

// NewPostgres creates a PostgresQueue on an existing pool.
func NewPostgres(pool db.Pool) *PostgresQueue {
	return &PostgresQueue{pool: pool}
}

const postgresQueueMigration = `
CREATE TABLE IF NOT EXISTS enrichment_requests (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	raw_name        TEXT NOT NULL,
	normalized_name TEXT NOT NULL,
	fallback_id     TEXT NOT NULL,
	status          TEXT NOT NULL DEFAULT 'pending',
	error           TEXT,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS ux_enrichment_requests_active
	ON enrichment_requests(normalized_name)
	WHERE status IN ('pending', 'processing');

CREATE INDEX IF NOT EXISTS idx_enrichment_requests_status ON enrichment_requests(status);
`

func (q *PostgresQueue) Migrate(ctx context.Context) error {
	_, err := q.pool.Exec(ctx, postgresQueueMigration)
	return eris.Wrap(err, "backfill: migrate")
}

func (q *PostgresQueue) Close() error {
	return nil // pool is owned by the caller
}

// enqueueSQL inserts all requests in one statement. The conflict target
// names the partial unique index predicate, so only rows colliding with an
// active request are dropped; historical done/failed rows never block a
// re-enqueue.
const enqueueSQL = `
INSERT INTO enrichment_requests (raw_name, normalized_name, fallback_id, status, created_at, updated_at)
SELECT t.raw_name, t.normalized_name, t.fallback_id, 'pending', now(), now()
FROM unnest($1::text[], $2::text[], $3::text[]) AS t(raw_name, normalized_name, fallback_id)
ON CONFLICT (normalized_name) WHERE status IN ('pending', 'processing') DO NOTHING`

func (q *PostgresQueue) EnqueueBatch(ctx context.Context, requests []Request) (EnqueueResult, error) {
	if len(requests) == 0 {
		return EnqueueResult{}, nil
	}

	raws := make([]string, len(requests))
	names := make([]string, len(requests))
	ids := make([]string, len(requests))
	for i, r := range requests {
		raws[i] = r.RawName
		names[i] = r.NormalizedName
		ids[i] = r.FallbackID
	}

	tag, err := q.pool.Exec(ctx, enqueueSQL, raws, names, ids)
	if err != nil {
		return EnqueueResult{}, eris.Wrap(err, "backfill: enqueue batch")
	}

	queued := int(tag.RowsAffected())
	return EnqueueResult{Queued: queued, Skipped: len(requests) - queued}, nil
}

func (q *PostgresQueue) Claim(ctx context.Context, limit int) ([]model.EnrichmentRequest, error) {
	if limit <= 0 {
		limit = 100
	}

	// Claim and flip status in one statement; SKIP LOCKED keeps concurrent
	// drain workers from double-claiming.
	rows, err := q.pool.Query(ctx, `
		UPDATE enrichment_requests
		SET status = 'processing', updated_at = now()
		WHERE id IN (
			SELECT id FROM enrichment_requests
			WHERE status = 'pending'
			ORDER BY created_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, raw_name, normalized_name, fallback_id, status, created_at`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "backfill: claim")
	}
	defer rows.Close()

	var claimed []model.EnrichmentRequest
	for rows.Next() {
		var r model.EnrichmentRequest
		if err := rows.Scan(&r.ID, &r.RawName, &r.NormalizedName, &r.FallbackID, &r.Status, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "backfill: scan claimed row")
		}
		claimed = append(claimed, r)
	}
	return claimed, eris.Wrap(rows.Err(), "backfill: iterate claimed rows")
}

func (q *PostgresQueue) MarkDone(ctx context.Context, id string) error {
	_, err := q.pool.Exec(ctx, `
		UPDATE enrichment_requests
		SET status = 'done', error = NULL, updated_at = now()
		WHERE id = $1`,
		id,
	)
	return eris.Wrapf(err, "backfill: mark done %s", id)
}

func (q *PostgresQueue) MarkFailed(ctx context.Context, id, errMsg string) error {
	_, err := q.pool.Exec(ctx, `
		UPDATE enrichment_requests
		SET status = 'failed', error = $2, updated_at = now()
		WHERE id = $1`,
		id, errMsg,
	)
	return eris.Wrapf(err, "backfill: mark failed %s", id)
}

func (q *PostgresQueue) Stats(ctx context.Context) (QueueStats, error) {
	rows, err := q.pool.Query(ctx, `
		SELECT status, COUNT(*) FROM enrichment_requests GROUP BY status`)
	if err != nil {
		return QueueStats{}, eris.Wrap(err, "backfill: stats")
	}
	defer rows.Close()

	var stats QueueStats
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return QueueStats{}, eris.Wrap(err, "backfill: scan stats row")
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
	return stats, eris.Wrap(rows.Err(), "backfill: iterate stats rows")
}
