// Package profile persists profile records and implements the admin
// operations on them: edit, deactivate, delete, merge and CSV export.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"frs/profile-service/internal/model"
)

// Store persists profiles. Email is unique among active profiles.
type Store interface {
	ListActive(ctx context.Context) ([]model.Profile, error)
	ListAll(ctx context.Context) ([]model.Profile, error)
	FindByID(ctx context.Context, id int64) (*model.Profile, error)
	Create(ctx context.Context, p *model.Profile) (int64, error)
	Update(ctx context.Context, id int64, patch model.Patch) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// ErrNotFound is returned when a profile id does not exist.
var ErrNotFound = errors.New("profile not found")

// ErrDuplicateEmail is returned when a write would give two active profiles
// the same email.
var ErrDuplicateEmail = errors.New("email already used by an active profile")

// ValidationError wraps a user-facing validation message.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

// columns returns the select list shared by both stores. listCast is appended
// to every array column (Postgres reads jsonb as text).
func columns(listCast string) []string {
	cols := make([]string, 0, 2+len(model.ScalarFields)+1+len(model.ListFields)+3)
	cols = append(cols, "id", "user_id")
	cols = append(cols, model.ScalarFields...)
	cols = append(cols, "headshot_key")
	for _, f := range model.ListFields {
		cols = append(cols, f+listCast)
	}
	return append(cols, "is_active", "created_at", "updated_at")
}

// scanTargets returns Scan destinations matching columns(); array columns
// land in lists and are decoded by finishScan.
func scanTargets(p *model.Profile, lists []string) []any {
	dest := make([]any, 0, 2+len(model.ScalarFields)+1+len(lists)+3)
	dest = append(dest, &p.ID, &p.UserID)
	for _, f := range model.ScalarFields {
		dest = append(dest, p.FieldPtr(f))
	}
	dest = append(dest, &p.HeadshotKey)
	for i := range lists {
		dest = append(dest, &lists[i])
	}
	return append(dest, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
}

// finishScan decodes the JSON array columns onto p.
func finishScan(p *model.Profile, lists []string) error {
	for i, f := range model.ListFields {
		values, err := decodeList(lists[i])
		if err != nil {
			return fmt.Errorf("decode %s of profile %d: %w", f, p.ID, err)
		}
		p.SetList(f, values)
	}
	return nil
}

// encodeList JSON-encodes an array field for storage. Nil encodes as [].
func encodeList(values []string) string {
	if values == nil {
		values = []string{}
	}
	b, _ := json.Marshal(values)
	return string(b)
}

func decodeList(raw string) ([]string, error) {
	if raw == "" {
		return []string{}, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, err
	}
	if values == nil {
		values = []string{}
	}
	return values, nil
}

// insertValues returns the column names and values written by Create.
func insertValues(p *model.Profile) ([]string, []any) {
	cols := []string{"user_id"}
	vals := []any{p.UserID}
	for _, f := range model.ScalarFields {
		v, _ := p.Get(f)
		cols = append(cols, f)
		vals = append(vals, v)
	}
	cols = append(cols, "headshot_key")
	vals = append(vals, p.HeadshotKey)
	for _, f := range model.ListFields {
		v, _ := p.GetList(f)
		cols = append(cols, f)
		vals = append(vals, encodeList(v))
	}
	cols = append(cols, "is_active")
	vals = append(vals, p.IsActive)
	return cols, vals
}

// patchValues flattens a Patch into column → value, dropping unknown field
// names so callers cannot address arbitrary columns.
func patchValues(patch model.Patch) map[string]any {
	set := make(map[string]any, len(patch.Strings)+len(patch.Lists)+3)
	for f, v := range patch.Strings {
		if model.IsScalarField(f) {
			set[f] = v
		}
	}
	for f, v := range patch.Lists {
		if model.IsListField(f) {
			set[f] = encodeList(v)
		}
	}
	if patch.UserID != nil {
		set["user_id"] = *patch.UserID
	}
	if patch.HeadshotKey != nil {
		set["headshot_key"] = *patch.HeadshotKey
	}
	if patch.IsActive != nil {
		set["is_active"] = *patch.IsActive
	}
	return set
}
