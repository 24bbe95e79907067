package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// SQLiteLinker stores accounts in a local SQLite database.
type SQLiteLinker struct {
	db *sqlx.DB
}

// NewSQLiteLinker returns a Linker backed by db.
func NewSQLiteLinker(db *sqlx.DB) *SQLiteLinker {
	return &SQLiteLinker{db: db}
}

// CreateAccount inserts a new account and returns its id.
func (l *SQLiteLinker) CreateAccount(ctx context.Context, login, email, password, role, firstName, lastName string) (int64, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return 0, err
	}

	res, err := l.db.ExecContext(ctx,
		`INSERT INTO accounts (login, email, password_hash, role, first_name, last_name)
		 VALUES (?, lower(?), ?, ?, ?, ?)`,
		login, email, hash, role, firstName, lastName,
	)
	if err != nil {
		if msg := err.Error(); strings.Contains(msg, "UNIQUE constraint failed") {
			return 0, existsError(sqliteUniqueColumn(msg), login, email)
		}
		return 0, fmt.Errorf("createAccount: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("createAccount last id: %w", err)
	}
	return id, nil
}

// AccountExists reports whether loginOrEmail is taken as a login or email.
func (l *SQLiteLinker) AccountExists(ctx context.Context, loginOrEmail string) (bool, error) {
	var n int
	err := l.db.GetContext(ctx, &n,
		`SELECT COUNT(1) FROM accounts WHERE login = ? OR email = lower(?)`,
		loginOrEmail, loginOrEmail,
	)
	if err != nil {
		return false, fmt.Errorf("accountExists: %w", err)
	}
	return n > 0, nil
}

// FindByEmail returns the account registered under email.
func (l *SQLiteLinker) FindByEmail(ctx context.Context, email string) (*Account, error) {
	var a Account
	err := l.db.GetContext(ctx, &a,
		`SELECT id, login, email, role, first_name, last_name
		 FROM accounts WHERE email = lower(?)`,
		email,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("findByEmail: %w", err)
	}
	return &a, nil
}

// PasswordHash returns the stored hash for login. Used to verify generated
// credentials.
func (l *SQLiteLinker) PasswordHash(ctx context.Context, login string) (string, error) {
	var hash string
	err := l.db.GetContext(ctx, &hash, `SELECT password_hash FROM accounts WHERE login = ?`, login)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("passwordHash: %w", err)
	}
	return hash, nil
}

// sqliteUniqueColumn extracts the column from "UNIQUE constraint failed:
// accounts.<column>".
func sqliteUniqueColumn(msg string) string {
	switch {
	case strings.Contains(msg, "accounts.login"):
		return "login"
	case strings.Contains(msg, "accounts.email"):
		return "email"
	}
	return ""
}
