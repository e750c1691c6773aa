package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/otgo/server/internal/config"
)

// ErrNoDSN is returned by Open when persistence is not configured.
var ErrNoDSN = errors.New("persist: database dsn is empty")

const (
	connectAttempts = 3
	connectBackoff  = 2 * time.Second
)

// DB is the character store's connection pool.
type DB struct {
	Pool *pgxpool.Pool
	log  *zap.Logger
}

// Open builds the pool and waits for the server to answer, retrying a few
// times so the game server can start alongside its database.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*DB, error) {
	if !cfg.Enabled() {
		return nil, ErrNoDSN
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	poolCfg.MinConns = int32(min(cfg.MaxIdleConns, cfg.MaxOpenConns))
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	for attempt := 1; ; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = pool.Ping(pingCtx)
		cancel()
		if err == nil {
			break
		}
		if attempt == connectAttempts {
			pool.Close()
			return nil, fmt.Errorf("ping db after %d attempts: %w", attempt, err)
		}
		log.Warn("database not reachable, retrying", zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-time.After(connectBackoff):
		case <-ctx.Done():
			pool.Close()
			return nil, ctx.Err()
		}
	}

	log.Info("database connected",
		zap.String("host", poolCfg.ConnConfig.Host),
		zap.String("database", poolCfg.ConnConfig.Database),
		zap.Int32("max_conns", poolCfg.MaxConns),
	)
	return &DB{Pool: pool, log: log}, nil
}

// Close logs the pool's lifetime totals and closes it.
func (db *DB) Close() {
	st := db.Pool.Stat()
	db.log.Info("database closed",
		zap.Int64("acquires", st.AcquireCount()),
		zap.Duration("acquire_wait", st.AcquireDuration()),
	)
	db.Pool.Close()
}
