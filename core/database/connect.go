package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/m3rciful/kotobot/core/logger"
	"log/slog"
)

// sqlOptions mirrors the pragmas the bot has always run with: cache and user
// data are reconstructible, so durability is traded for availability.
const sqlOptions = `
PRAGMA page_size = 4096;
PRAGMA cache_size = -4096;
PRAGMA synchronous = OFF;
PRAGMA foreign_keys = ON;
PRAGMA journal_mode = WAL;
PRAGMA busy_timeout = 5000;
`

// Connect opens the SQLite store, applies pragmas, configures the pool, and
// verifies connectivity.
func Connect(cfg Config) (*sqlx.DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("db connect: empty path")
	}
	dsn := cfg.Path
	if cfg.ReadOnly {
		dsn += "?mode=ro"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	db, err := sqlx.ConnectContext(ctx, "sqlite", dsn)
	took := time.Since(start)
	if err != nil {
		logger.DB.Error("db connect failed",
			slog.String("event", "db.connect"),
			slog.String("driver", "sqlite"),
			slog.String("path", cfg.Path),
			slog.Duration("duration", logger.RoundMS(took)),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("db connect: %w", err)
	}

	if !cfg.ReadOnly {
		if _, err := db.ExecContext(ctx, sqlOptions); err != nil {
			_ = db.Close()
			logger.DB.Error("db pragma failed",
				slog.String("event", "db.pragma"),
				slog.String("path", cfg.Path),
				slog.String("err", err.Error()),
			)
			return nil, fmt.Errorf("db pragma: %w", err)
		}
	}

	maxConns := cfg.MaxConnections
	if maxConns <= 0 {
		maxConns = 4
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	logger.DB.Info("db connected",
		slog.String("event", "db.connect"),
		slog.String("driver", "sqlite"),
		slog.String("path", cfg.Path),
		slog.Bool("read_only", cfg.ReadOnly),
		slog.Int("pool_open", maxConns),
		slog.Duration("duration", logger.RoundMS(took)),
	)

	return db, nil
}
