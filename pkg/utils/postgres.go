package utils

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Idle connections are recycled well before MaxLifetime so bursts
// drain back between requests.
const idleConnTimeout = 5 * time.Minute

// PoolConfig bounds the database/sql connection pool. Zero values take
// the conservative defaults below; the knobs surface through DB_* env
// vars in internal/config.
type PoolConfig struct {
	MaxConns    int
	MaxLifetime time.Duration
	PingTimeout time.Duration
}

func (c PoolConfig) withDefaults() PoolConfig {
	if c.MaxConns <= 0 {
		c.MaxConns = 25
	}
	if c.MaxLifetime <= 0 {
		c.MaxLifetime = 30 * time.Minute
	}
	if c.PingTimeout <= 0 {
		c.PingTimeout = 5 * time.Second
	}
	return c
}

// idleConns keeps half the pool warm; a floor of 2 avoids churning
// connections on tiny pools.
func (c PoolConfig) idleConns() int {
	n := c.MaxConns / 2
	if n < 2 {
		n = 2
	}
	return n
}

// OpenPostgres opens a database/sql handle over the pgx stdlib driver
// and verifies connectivity before returning it. The dsn carries
// credentials and must never be logged.
func OpenPostgres(ctx context.Context, driverName, dsn string, pool PoolConfig) (*sql.DB, error) {
	pool = pool.withDefaults()

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(pool.MaxConns)
	db.SetMaxIdleConns(pool.idleConns())
	db.SetConnMaxLifetime(pool.MaxLifetime)
	db.SetConnMaxIdleTime(idleConnTimeout)

	if err := HealthCheck(ctx, db, pool.PingTimeout); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// HealthCheck pings the database within the given timeout. Also used
// by the /healthz probe.
func HealthCheck(ctx context.Context, db *sql.DB, timeout time.Duration) error {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("postgres ping failed: %w", err)
	}
	return nil
}

// TxFunc is the unit of work executed inside a transaction.
type TxFunc func(ctx context.Context, tx *sql.Tx) error

// WithTx begins a transaction, runs fn, and commits. Any error or
// panic from fn rolls the transaction back; panics are re-raised after
// the rollback.
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn TxFunc) error {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
