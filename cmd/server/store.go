package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/youth-scoreboard/internal/config"
	"github.com/youth-scoreboard/internal/postgres"
	"github.com/youth-scoreboard/internal/sqlite"
	"github.com/youth-scoreboard/internal/store"
	"github.com/youth-scoreboard/internal/store/memory"
)

// backend is a store with a health probe
type backend struct {
	store.Store
	ping func(ctx context.Context) error
}

// openStore opens the configured backend and brings its schema up to date
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*backend, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		logger.Info("connecting to PostgreSQL", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
		st, err := postgres.NewStore(&cfg.Postgres, logger)
		if err != nil {
			return nil, err
		}
		if err := st.RunMigrations(ctx); err != nil {
			st.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
		return &backend{Store: st, ping: st.Ping}, nil

	case config.DriverSQLite:
		st, err := sqlite.Open(cfg.Store.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		return &backend{Store: st, ping: st.Ping}, nil

	case config.DriverMemory:
		logger.Warn("using in-memory store, data is lost on restart")
		return &backend{Store: memory.New(), ping: func(context.Context) error { return nil }}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
