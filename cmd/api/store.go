package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/geocoder89/authhub/internal/config"
	"github.com/geocoder89/authhub/internal/db"
	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/geocoder89/authhub/internal/observability"
	"github.com/geocoder89/authhub/internal/repo/memory"
	"github.com/geocoder89/authhub/internal/repo/postgres"
	"github.com/geocoder89/authhub/internal/repo/sqlite"
)

// openStore picks the users repository for cfg.DBDriver and applies its
// schema. The returned close func is always non-nil.
func openStore(ctx context.Context, cfg config.Config, prom *observability.Prom, log *slog.Logger) (user.Repository, func(), error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, cfg.DBURL)
		if err != nil {
			return nil, func() {}, fmt.Errorf("connect postgres: %w", err)
		}

		if err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, func() {}, fmt.Errorf("migrate postgres: %w", err)
		}

		log.Info("store ready", "driver", cfg.DBDriver)
		return postgres.NewUsersRepo(pool, prom), pool.Close, nil

	case config.DriverSQLite:
		sdb, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, func() {}, fmt.Errorf("open sqlite: %w", err)
		}

		if err := sdb.Migrate(ctx); err != nil {
			_ = sdb.Close()
			return nil, func() {}, fmt.Errorf("migrate sqlite: %w", err)
		}

		log.Info("store ready", "driver", cfg.DBDriver, "path", cfg.SQLitePath)
		return sqlite.NewUsersRepo(sdb, prom), func() { _ = sdb.Close() }, nil

	case config.DriverMemory:
		log.Warn("using in-memory store, data is lost on restart")
		return memory.NewUsersRepo(), func() {}, nil
	}

	return nil, func() {}, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
}
