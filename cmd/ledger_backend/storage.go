package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	portsrepo "github.com/SscSPs/mma_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/mma_ledger/internal/handlers"
	"github.com/SscSPs/mma_ledger/internal/platform/config"
	"github.com/SscSPs/mma_ledger/internal/repositories/database/pgsql"
	"github.com/SscSPs/mma_ledger/internal/repositories/database/pgsql/migrations"
	"github.com/SscSPs/mma_ledger/internal/repositories/database/sqlite"
	"github.com/SscSPs/mma_ledger/internal/repositories/memory"
	"github.com/SscSPs/mma_ledger/internal/repositories/redisstore"
	"github.com/SscSPs/mma_ledger/pkg/database"
)

const redisConnectAttempts = 5

// storage holds the composed repositories and the connections behind them.
type storage struct {
	repos   *portsrepo.RepositoryProvider
	checks  []handlers.HealthCheck
	closers []func()
}

func (s *storage) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openStorage opens every backend the drivers name, once each, and composes the provider.
// The event store backend also keeps periods; the read model backend keeps the projection's
// checkpoints and dead letters so a rebuilt read model replays from the start.
func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*storage, error) {
	s := &storage{}
	backends := map[string]*portsrepo.RepositoryProvider{}

	backend := func(driver string) (*portsrepo.RepositoryProvider, error) {
		if p, ok := backends[driver]; ok {
			return p, nil
		}
		var p *portsrepo.RepositoryProvider
		switch driver {
		case config.DriverMemory:
			p = memory.NewRepositoryProvider()
		case config.DriverPostgres:
			pool, err := openPostgres(ctx, cfg, logger)
			if err != nil {
				return nil, err
			}
			s.closers = append(s.closers, func() { database.ClosePgxPool(pool, logger) })
			s.checks = append(s.checks, handlers.HealthCheck{Name: "postgres", Check: pool.Ping})
			p = pgsql.NewRepositoryProvider(pool)
		case config.DriverSQLite:
			db, err := sqlite.Open(cfg.SQLitePath, logger)
			if err != nil {
				return nil, err
			}
			s.closers = append(s.closers, closeSQL(db, logger))
			s.checks = append(s.checks, handlers.HealthCheck{Name: "sqlite", Check: db.PingContext})
			p = sqlite.NewRepositoryProvider(db)
		default:
			return nil, fmt.Errorf("unsupported storage driver %q", driver)
		}
		backends[driver] = p
		logger.Info("Storage backend opened", slog.String("driver", driver))
		return p, nil
	}

	events, err := backend(cfg.EventStoreDriver)
	if err != nil {
		s.Close()
		return nil, err
	}
	reads, err := backend(cfg.ReadModelDriver)
	if err != nil {
		s.Close()
		return nil, err
	}

	repos := &portsrepo.RepositoryProvider{
		EventStore:  events.EventStore,
		Periods:     events.Periods,
		Leases:      events.Leases,
		Snapshots:   events.Snapshots,
		JournalRead: reads.JournalRead,
		AccountRead: reads.AccountRead,
		Checkpoints: reads.Checkpoints,
		DeadLetters: reads.DeadLetters,
	}

	if cfg.RedisAddress != "" {
		rc, err := redisstore.Connect(ctx, cfg.RedisAddress, redisConnectAttempts, logger)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, func() {
			if err := rc.Close(); err != nil {
				logger.Warn("Error closing redis client", slog.String("error", err.Error()))
			}
		})
		s.checks = append(s.checks, handlers.HealthCheck{Name: "redis", Check: rc.Ping})
		repos.Snapshots = rc.SnapshotCache(cfg.SnapshotTTL)
		repos.Leases = rc.LeaseLocker()
		if cfg.SequenceDriver == config.DriverRedis {
			repos.Sequences = rc.SequenceAllocator()
		}
	}
	if repos.Sequences == nil {
		seq, err := backend(cfg.SequenceDriver)
		if err != nil {
			s.Close()
			return nil, err
		}
		repos.Sequences = seq.Sequences
	}

	s.repos = repos
	return s, nil
}

func openPostgres(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	logger.Info("Running database migrations...")
	if err := database.MigratePostgres(cfg.DatabaseURL, migrations.FS, logger); err != nil {
		return nil, err
	}
	return database.NewPgxPool(ctx, cfg.DatabaseURL, database.PoolOptions{Ping: cfg.EnableDBCheck}, logger)
}

func closeSQL(db *sql.DB, logger *slog.Logger) func() {
	return func() {
		if err := db.Close(); err != nil {
			logger.Warn("Error closing sqlite db", slog.String("error", err.Error()))
		}
	}
}
