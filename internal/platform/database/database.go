// Package database opens pooled database/sql handles.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type options struct {
	maxOpenConns    int
	maxIdleConns    int
	connMaxLifetime time.Duration
}

type Option func(*options)

func WithMaxOpenConns(n int) Option {
	return func(o *options) {
		o.maxOpenConns = n
	}
}

func WithConnMaxLifetime(d time.Duration) Option {
	return func(o *options) {
		o.connMaxLifetime = d
	}
}

// Open opens driver with dsn, applies pool limits and pings it.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*sql.DB, error) {
	o := options{maxOpenConns: 20, connMaxLifetime: 30 * time.Minute}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxIdleConns == 0 || o.maxIdleConns > o.maxOpenConns {
		o.maxIdleConns = o.maxOpenConns
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	db.SetMaxOpenConns(o.maxOpenConns)
	db.SetMaxIdleConns(o.maxIdleConns)
	db.SetConnMaxLifetime(o.connMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s database: %w", driver, err)
	}
	return db, nil
}
