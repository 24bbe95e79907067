package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"frs/profile-service/internal/model"
)

// SQLiteStore keeps profiles in a local SQLite file. Array fields are stored
// as JSON text. Used by frsctl and the tests.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore returns a Store backed by db.
func NewSQLiteStore(db *sqlx.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) ListActive(ctx context.Context) ([]model.Profile, error) {
	return s.list(ctx, sq.Eq{"is_active": true})
}

func (s *SQLiteStore) ListAll(ctx context.Context) ([]model.Profile, error) {
	return s.list(ctx, nil)
}

func (s *SQLiteStore) list(ctx context.Context, where sq.Sqlizer) ([]model.Profile, error) {
	q := sq.Select(columns("")...).From("profiles").OrderBy("id")
	if where != nil {
		q = q.Where(where)
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := s.db.QueryxContext(ctx, query, args...)
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

func (s *SQLiteStore) FindByID(ctx context.Context, id int64) (*model.Profile, error) {
	query, args, err := sq.Select(columns("")...).From("profiles").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find query: %w", err)
	}

	var p model.Profile
	lists := make([]string, len(model.ListFields))
	if err := s.db.QueryRowxContext(ctx, query, args...).Scan(scanTargets(&p, lists)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("findProfile: %w", err)
	}
	if err := finishScan(&p, lists); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *SQLiteStore) Create(ctx context.Context, p *model.Profile) (int64, error) {
	now := time.Now().UTC()
	cols, vals := insertValues(p)
	cols = append(cols, "created_at", "updated_at")
	vals = append(vals, now, now)

	query, args, err := sq.Insert("profiles").Columns(cols...).Values(vals...).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, mapSQLiteError("createProfile", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("createProfile last id: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) Update(ctx context.Context, id int64, patch model.Patch) (bool, error) {
	q := sq.Update("profiles").Set("updated_at", time.Now().UTC()).Where(sq.Eq{"id": id})
	for col, v := range patchValues(patch) {
		q = q.Set(col, v)
	}
	query, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build update: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, mapSQLiteError("updateProfile", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("updateProfile rows: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("deleteProfile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleteProfile rows: %w", err)
	}
	return n > 0, nil
}

func mapSQLiteError(op string, err error) error {
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%s: %w", op, ErrDuplicateEmail)
	}
	return fmt.Errorf("%s: %w", op, err)
}
