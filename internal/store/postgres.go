// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mamiland Contributors

// Package store provides the PostgreSQL connection pool and schema
// management.
package store

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Pool connection defaults.
const (
	DefaultMaxConns       = 10
	DefaultConnectTimeout = 10 * time.Second

	pingBackoffBase = 500 * time.Millisecond
	pingMaxRetries  = 5
)

// Config describes how to reach the backing database.
type Config struct {
	Host           string
	Port           int
	User           string
	Password       string
	Database       string
	ConnectTimeout time.Duration
	MaxConns       int32
}

// URL renders the config as a postgres connection URL.
func (c Config) URL() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   c.Database,
	}
	return u.String()
}

// Store owns the process-wide connection pool. It is constructed
// explicitly and injected; there is no module-level pool state.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects a bounded pool and verifies connectivity with a
// bounded fibonacci-backoff ping, so a database still starting up
// does not fail the process immediately.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL())
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").
			With("operation", "parse pool config").
			Wrap(err)
	}

	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = DefaultMaxConns
	}
	connectTimeout := cfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	poolCfg.MaxConns = maxConns
	poolCfg.ConnConfig.ConnectTimeout = connectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("operation", "create pool").
			Wrap(err)
	}

	backoff := retry.WithMaxRetries(pingMaxRetries, retry.NewFibonacci(pingBackoffBase))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if pingErr := pool.Ping(ctx); pingErr != nil {
			return retry.RetryableError(pingErr)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("operation", "ping database").
			Wrap(err)
	}

	return &Store{pool: pool}, nil
}

// Pool returns the underlying connection pool.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Close closes the connection pool. Safe to call once at shutdown.
func (s *Store) Close() {
	s.pool.Close()
}
