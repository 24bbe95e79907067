// Package db provides database connection helpers and the schema for the
// profile store.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool limits. Imports write row by row on one connection; the rest serve
// admin reads.
const (
	pgMaxConns        = 10
	pgMaxConnIdleTime = 5 * time.Minute
	pgPingTimeout     = 5 * time.Second
)

// NewPostgresPool opens the profile database pool and checks it answers.
func NewPostgresPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	cfg.MaxConns = pgMaxConns
	cfg.MaxConnIdleTime = pgMaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pgPingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return pool, nil
}

// EnsurePostgresSchema creates the accounts and profiles tables if missing.
func EnsurePostgresSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("apply postgres schema: %w", err)
	}
	return nil
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS accounts (
	id            BIGSERIAL PRIMARY KEY,
	login         TEXT NOT NULL UNIQUE,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL,
	first_name    TEXT NOT NULL DEFAULT '',
	last_name     TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS profiles (
	id             BIGSERIAL PRIMARY KEY,
	user_id        BIGINT REFERENCES accounts(id) ON DELETE SET NULL,
	email          TEXT NOT NULL DEFAULT '',
	first_name     TEXT NOT NULL DEFAULT '',
	last_name      TEXT NOT NULL DEFAULT '',
	display_name   TEXT NOT NULL DEFAULT '',
	phone_number   TEXT NOT NULL DEFAULT '',
	mobile_number  TEXT NOT NULL DEFAULT '',
	nmls           TEXT NOT NULL DEFAULT '',
	license_number TEXT NOT NULL DEFAULT '',
	job_title      TEXT NOT NULL DEFAULT '',
	company        TEXT NOT NULL DEFAULT '',
	biography      TEXT NOT NULL DEFAULT '',
	city_state     TEXT NOT NULL DEFAULT '',
	region         TEXT NOT NULL DEFAULT '',
	website        TEXT NOT NULL DEFAULT '',
	facebook_url   TEXT NOT NULL DEFAULT '',
	instagram_url  TEXT NOT NULL DEFAULT '',
	linkedin_url   TEXT NOT NULL DEFAULT '',
	twitter_url    TEXT NOT NULL DEFAULT '',
	profile_type   TEXT NOT NULL DEFAULT '',
	headshot_key   TEXT,
	service_areas  JSONB NOT NULL DEFAULT '[]',
	specialties    JSONB NOT NULL DEFAULT '[]',
	languages      JSONB NOT NULL DEFAULT '[]',
	awards         JSONB NOT NULL DEFAULT '[]',
	designations   JSONB NOT NULL DEFAULT '[]',
	certifications JSONB NOT NULL DEFAULT '[]',
	roles          JSONB NOT NULL DEFAULT '[]',
	is_active      BOOLEAN NOT NULL DEFAULT TRUE,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS profiles_active_email_key
	ON profiles (lower(email)) WHERE is_active AND email <> '';
CREATE INDEX IF NOT EXISTS profiles_nmls_idx ON profiles (nmls) WHERE nmls <> '';
`
