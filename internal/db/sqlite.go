package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// OpenSQLite opens (creating if needed) a SQLite database and applies the
// schema. Use ":memory:" for a throwaway database; the pool is pinned to a
// single connection so every query sees the same in-memory data.
func OpenSQLite(ctx context.Context, path string) (*sqlx.DB, error) {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}

	conn, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite ping failed: %w", err)
	}

	if _, err := conn.ExecContext(ctx, sqliteSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}

	return conn, nil
}

const sqliteSchema = `
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS accounts (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	login         TEXT NOT NULL UNIQUE,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL,
	first_name    TEXT NOT NULL DEFAULT '',
	last_name     TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS profiles (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id        INTEGER REFERENCES accounts(id) ON DELETE SET NULL,
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
	service_areas  TEXT NOT NULL DEFAULT '[]',
	specialties    TEXT NOT NULL DEFAULT '[]',
	languages      TEXT NOT NULL DEFAULT '[]',
	awards         TEXT NOT NULL DEFAULT '[]',
	designations   TEXT NOT NULL DEFAULT '[]',
	certifications TEXT NOT NULL DEFAULT '[]',
	roles          TEXT NOT NULL DEFAULT '[]',
	is_active      BOOLEAN NOT NULL DEFAULT 1,
	created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS profiles_active_email_key
	ON profiles (lower(email)) WHERE is_active = 1 AND email <> '';
CREATE INDEX IF NOT EXISTS profiles_nmls_idx ON profiles (nmls) WHERE nmls <> '';
`
