// Package store selects the persistence backend named by configuration.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"doccenter/internal/lending/ports"
	"doccenter/internal/platform/config"
	"doccenter/internal/store/memory"
	"doccenter/internal/store/sqlstore"
	"doccenter/pkg/platform/outbox"
)

// DriverMemory keeps everything in process. State is lost on restart.
const DriverMemory = "memory"

// Backend is what the server and the CLI need from a store.
type Backend interface {
	ports.TxRunner
	outbox.Source
	Health(ctx context.Context) error
	Close() error
}

// Open connects the configured backend. SQL backends are migrated when
// migrate is set.
func Open(ctx context.Context, cfg config.Database, logger *slog.Logger, migrate bool) (Backend, error) {
	if cfg.Driver == DriverMemory {
		logger.WarnContext(ctx, "using in-memory store, state is lost on restart")
		return memory.New(memory.WithTxTimeout(cfg.TxTimeout)), nil
	}

	db, err := sqlstore.Open(ctx, cfg.Driver, cfg.DSN,
		sqlstore.PoolConfig{MaxOpenConns: cfg.MaxOpenConns, MaxIdleConns: cfg.MaxIdleConns},
		sqlstore.WithLogger(logger),
		sqlstore.WithTxTimeout(cfg.TxTimeout),
	)
	if err != nil {
		return nil, err
	}
	if migrate {
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate %s: %w", cfg.Driver, err)
		}
	}
	logger.InfoContext(ctx, "store ready", "driver", cfg.Driver)
	return db, nil
}
