package profile

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"frs/profile-service/internal/model"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresStore keeps profiles in Postgres. Array fields are JSONB columns.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore returns a Store backed by pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// ListActive returns every active profile ordered by id.
func (s *PostgresStore) ListActive(ctx context.Context) ([]model.Profile, error) {
	return s.list(ctx, sq.Eq{"is_active": true})
}

// ListAll returns every profile, active or not, ordered by id.
func (s *PostgresStore) ListAll(ctx context.Context) ([]model.Profile, error) {
	return s.list(ctx, nil)
}

func (s *PostgresStore) list(ctx context.Context, where sq.Sqlizer) ([]model.Profile, error) {
	q := psql.Select(columns("::text")...).From("profiles").OrderBy("id")
	if where != nil {
		q = q.Where(where)
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listProfiles: %w", err)
	}
	defer rows.Close()

	var out []model.Profile
	for rows.Next() {
		var p model.Profile
		lists := make([]string, len(model.ListFields))
		if err := rows.Scan(scanTargets(&p, lists)...); err != nil {
			return nil, fmt.Errorf("listProfiles scan: %w", err)
		}
		if err := finishScan(&p, lists); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// FindByID returns the profile with the given id, or ErrNotFound.
func (s *PostgresStore) FindByID(ctx context.Context, id int64) (*model.Profile, error) {
	query, args, err := psql.Select(columns("::text")...).From("profiles").
		Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find query: %w", err)
	}

	var p model.Profile
	lists := make([]string, len(model.ListFields))
	if err := s.pool.QueryRow(ctx, query, args...).Scan(scanTargets(&p, lists)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("findProfile: %w", err)
	}
	if err := finishScan(&p, lists); err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts p and returns the new id. CreatedAt and UpdatedAt come from
// the database.
func (s *PostgresStore) Create(ctx context.Context, p *model.Profile) (int64, error) {
	cols, vals := insertValues(p)
	for i, c := range cols {
		if model.IsListField(c) {
			vals[i] = sq.Expr("?::jsonb", vals[i])
		}
	}
	query, args, err := psql.Insert("profiles").Columns(cols...).Values(vals...).
		Suffix("RETURNING id").ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}

	var id int64
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, mapPgError("createProfile", err)
	}
	return id, nil
}

// Update writes the fields present in patch and reports whether a row
// matched. An empty patch only touches updated_at.
func (s *PostgresStore) Update(ctx context.Context, id int64, patch model.Patch) (bool, error) {
	q := psql.Update("profiles").Set("updated_at", sq.Expr("NOW()")).Where(sq.Eq{"id": id})
	for col, v := range patchValues(patch) {
		if model.IsListField(col) {
			q = q.Set(col, sq.Expr("?::jsonb", v))
			continue
		}
		q = q.Set(col, v)
	}
	query, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build update: %w", err)
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, mapPgError("updateProfile", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Delete removes the row and reports whether it existed.
func (s *PostgresStore) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("deleteProfile: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func mapPgError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%s: %w", op, ErrDuplicateEmail)
	}
	return fmt.Errorf("%s: %w", op, err)
}
