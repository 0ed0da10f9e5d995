package main

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/identity-cli/internal/backfill"
	"github.com/sells-group/identity-cli/internal/fallback"
	"github.com/sells-group/identity-cli/internal/lookup"
	"github.com/sells-group/identity-cli/internal/mapping"
	"github.com/sells-group/identity-cli/internal/resolver"
)

// runtimeEnv wires the storage-backed components for one command invocation.
type runtimeEnv struct {
	store mapping.Store
	queue backfill.Queue
	pool  *pgxpool.Pool

	closers []func() error
}

func (e *runtimeEnv) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		_ = e.closers[i]()
	}
	if e.pool != nil {
		e.pool.Close()
	}
}

// initEnv opens the mapping store and backfill queue for the configured
// driver. With SQLite both share one database file and one handle.
func initEnv(ctx context.Context) (*runtimeEnv, error) {
	env := &runtimeEnv{}

	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.SQLitePath
		if dsn == "" {
			dsn = "identity.db"
		}
		store, err := mapping.NewSQLite(dsn)
		if err != nil {
			return nil, err
		}
		env.store = store
		env.queue = backfill.NewSQLiteOnDB(store.DB())
		env.closers = append(env.closers, store.Close)
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, eris.Wrap(err, "open postgres pool")
		}
		env.pool = pool
		env.store = mapping.NewPostgres(pool)
		env.queue = backfill.NewPostgres(pool)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}

	return env, nil
}

// initLookupClient builds the external provider client, or nil when no base
// URL is configured.
func initLookupClient() lookup.Client {
	if cfg.Lookup.BaseURL == "" {
		return nil
	}
	return lookup.NewHTTPClient(lookup.HTTPOptions{
		BaseURL:    cfg.Lookup.BaseURL,
		APIKey:     cfg.Lookup.Key,
		Timeout:    time.Duration(cfg.Lookup.TimeoutSecs) * time.Second,
		RatePerSec: cfg.Lookup.RatePerSec,
		Burst:      cfg.Lookup.Burst,
	})
}

// initResolver assembles the full tier cascade from configuration.
func initResolver(env *runtimeEnv) (*resolver.Resolver, error) {
	overrides, err := mapping.LoadOverrides(cfg.Overrides.Files)
	if err != nil {
		return nil, err
	}

	var external *lookup.BudgetedResolver
	if cfg.Resolve.UseLookupService {
		client := initLookupClient()
		if client == nil {
			return nil, eris.New("resolve.use_lookup_service is set but lookup.base_url is empty")
		}
		external = lookup.NewBudgetedResolver(client, env.store)
	}

	generator := fallback.New(fallback.SaltFromEnv())

	return resolver.New(cfg.Resolve, overrides, env.store, external, generator, env.queue)
}
