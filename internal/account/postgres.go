package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLinker stores accounts in the accounts table.
type PostgresLinker struct {
	pool *pgxpool.Pool
}

// NewPostgresLinker returns a Linker backed by pool.
func NewPostgresLinker(pool *pgxpool.Pool) *PostgresLinker {
	return &PostgresLinker{pool: pool}
}

// CreateAccount inserts a new account and returns its id. The password is
// bcrypt-hashed before it is written.
func (l *PostgresLinker) CreateAccount(ctx context.Context, login, email, password, role, firstName, lastName string) (int64, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return 0, err
	}

	var id int64
	err = l.pool.QueryRow(ctx,
		`INSERT INTO accounts (login, email, password_hash, role, first_name, last_name)
		 VALUES ($1, lower($2), $3, $4, $5, $6)
		 RETURNING id`,
		login, email, hash, role, firstName, lastName,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, existsError(pgUniqueColumn(pgErr.ConstraintName), login, email)
		}
		return 0, fmt.Errorf("createAccount: %w", err)
	}
	return id, nil
}

// AccountExists reports whether any account uses loginOrEmail as its login
// or (case-insensitively) as its email.
func (l *PostgresLinker) AccountExists(ctx context.Context, loginOrEmail string) (bool, error) {
	var exists bool
	err := l.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM accounts WHERE login = $1 OR email = lower($1)
		 )`,
		loginOrEmail,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("accountExists: %w", err)
	}
	return exists, nil
}

// FindByEmail returns the account registered under email.
func (l *PostgresLinker) FindByEmail(ctx context.Context, email string) (*Account, error) {
	var a Account
	err := l.pool.QueryRow(ctx,
		`SELECT id, login, email, role, first_name, last_name
		 FROM accounts WHERE email = lower($1)`,
		email,
	).Scan(&a.ID, &a.Login, &a.Email, &a.Role, &a.FirstName, &a.LastName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("findByEmail: %w", err)
	}
	return &a, nil
}

// pgUniqueColumn maps the default unique constraint names of the accounts
// table to their column.
func pgUniqueColumn(constraint string) string {
	switch constraint {
	case "accounts_login_key":
		return "login"
	case "accounts_email_key":
		return "email"
	}
	return ""
}
