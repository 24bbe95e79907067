package profile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"frs/profile-service/internal/events"
	"frs/profile-service/internal/model"
)

// ─── Service ─────────────────────────────────────────────────────────────────

// Service holds the admin operations on profiles. It is transport-agnostic:
// the HTTP handler, the gRPC server and frsctl all call it.
type Service struct {
	store Store
	pub   events.Publisher
}

// NewService returns a configured Service. pub may be nil.
func NewService(store Store, pub events.Publisher) *Service {
	return &Service{store: store, pub: pub}
}

// Store exposes the underlying store for the importer.
func (s *Service) Store() Store { return s.store }

// ─── Business logic ───────────────────────────────────────────────────────────

// List returns active profiles, or every profile when includeInactive is set.
func (s *Service) List(ctx context.Context, includeInactive bool) ([]model.Profile, error) {
	var (
		out []model.Profile
		err error
	)
	if includeInactive {
		out, err = s.store.ListAll(ctx)
	} else {
		out, err = s.store.ListActive(ctx)
	}
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Profile{}
	}
	return out, nil
}

// Get returns a single profile.
func (s *Service) Get(ctx context.Context, id int64) (*model.Profile, error) {
	return s.store.FindByID(ctx, id)
}

// Update applies patch and returns the stored result.
func (s *Service) Update(ctx context.Context, id int64, patch model.Patch) (*model.Profile, error) {
	if patch.Empty() {
		return nil, &ValidationError{Msg: "nothing to update"}
	}
	if err := normalizeLists(patch); err != nil {
		return nil, err
	}
	ok, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return s.store.FindByID(ctx, id)
}

// Deactivate soft-deletes a profile. It stays listed by ListAll and frees its
// email for another active profile. The linked account is kept; a later
// import of the same email links to it again.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	inactive := false
	ok, err := s.store.Update(ctx, id, model.Patch{IsActive: &inactive})
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Delete removes a profile permanently.
func (s *Service) Delete(ctx context.Context, id int64) error {
	ok, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Merge folds secondary into primary and deletes secondary. The primary keeps
// every non-empty value it already has.
func (s *Service) Merge(ctx context.Context, primaryID, secondaryID int64, actor string) (*model.Profile, error) {
	if primaryID == secondaryID {
		return nil, &ValidationError{Msg: "cannot merge a profile with itself"}
	}
	primary, err := s.store.FindByID(ctx, primaryID)
	if err != nil {
		return nil, fmt.Errorf("primary %d: %w", primaryID, err)
	}
	secondary, err := s.store.FindByID(ctx, secondaryID)
	if err != nil {
		return nil, fmt.Errorf("secondary %d: %w", secondaryID, err)
	}

	patch := MergePatch(primary, secondary)

	// The secondary is deactivated first so its email is free to move to the
	// primary without tripping the active-email unique index.
	inactive := false
	if _, err := s.store.Update(ctx, secondaryID, model.Patch{IsActive: &inactive}); err != nil {
		return nil, fmt.Errorf("deactivate secondary: %w", err)
	}
	if !patch.Empty() {
		if _, err := s.store.Update(ctx, primaryID, patch); err != nil {
			active := secondary.IsActive
			if _, rbErr := s.store.Update(ctx, secondaryID, model.Patch{IsActive: &active}); rbErr != nil {
				slog.Error("restore secondary after failed merge", "secondaryId", secondaryID, "err", rbErr)
			}
			return nil, fmt.Errorf("update primary: %w", err)
		}
	}
	if _, err := s.store.Delete(ctx, secondaryID); err != nil {
		return nil, fmt.Errorf("delete secondary: %w", err)
	}

	events.Emit(ctx, s.pub, events.ProfilesMerged, events.ProfilesMergedEvent{
		PrimaryID:   primaryID,
		SecondaryID: secondaryID,
		Actor:       actor,
	})

	return s.store.FindByID(ctx, primaryID)
}

// normalizeLists trims array items and drops blanks in place. An item holding
// the "|" separator is rejected: the export could not write it back out as a
// single item.
func normalizeLists(patch model.Patch) error {
	for f, values := range patch.Lists {
		out := make([]string, 0, len(values))
		for _, v := range values {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			if strings.Contains(v, "|") {
				return &ValidationError{Msg: fmt.Sprintf("%s item %q must not contain \"|\"", f, v)}
			}
			out = append(out, v)
		}
		patch.Lists[f] = out
	}
	return nil
}

// MergePatch returns the changes that fold secondary into primary: empty
// primary scalars are filled, arrays are unioned, and the account link and
// headshot are adopted when the primary has none.
func MergePatch(primary, secondary *model.Profile) model.Patch {
	patch := model.NewPatch()
	for _, f := range model.ScalarFields {
		pv, _ := primary.Get(f)
		sv, _ := secondary.Get(f)
		if strings.TrimSpace(pv) == "" && strings.TrimSpace(sv) != "" {
			patch.Strings[f] = sv
		}
	}
	for _, f := range model.ListFields {
		pv, _ := primary.GetList(f)
		sv, _ := secondary.GetList(f)
		merged := unionFold(pv, sv)
		if len(merged) != len(pv) {
			patch.Lists[f] = merged
		}
	}
	if primary.UserID == nil && secondary.UserID != nil {
		patch.UserID = secondary.UserID
	}
	if primary.HeadshotKey == nil && secondary.HeadshotKey != nil {
		patch.HeadshotKey = secondary.HeadshotKey
	}
	return patch
}

// unionFold concatenates a and b, dropping blanks and case-insensitive
// duplicates while keeping first occurrences in order.
func unionFold(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, v := range list {
			v = strings.TrimSpace(v)
			key := strings.ToLower(v)
			if v == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, v)
		}
	}
	return out
}

// ExportHeader is the column order written by ExportCSV. Every column except
// id re-imports under its own name.
func ExportHeader() []string {
	h := make([]string, 0, 1+len(model.ScalarFields)+len(model.ListFields))
	h = append(h, "id")
	h = append(h, model.ScalarFields...)
	return append(h, model.ListFields...)
}

// ExportCSV writes every active profile to w and returns the row count.
// Array fields are joined with "|".
func (s *Service) ExportCSV(ctx context.Context, w io.Writer) (int, error) {
	profiles, err := s.store.ListActive(ctx)
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader()); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}
	for i := range profiles {
		p := &profiles[i]
		rec := make([]string, 0, 1+len(model.ScalarFields)+len(model.ListFields))
		rec = append(rec, strconv.FormatInt(p.ID, 10))
		for _, f := range model.ScalarFields {
			v, _ := p.Get(f)
			rec = append(rec, v)
		}
		for _, f := range model.ListFields {
			v, _ := p.GetList(f)
			rec = append(rec, joinList(v))
		}
		if err := cw.Write(rec); err != nil {
			return i, fmt.Errorf("write profile %d: %w", p.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return len(profiles), fmt.Errorf("flush csv: %w", err)
	}
	return len(profiles), nil
}

// joinList joins with "|". A lone value containing a comma gets a trailing
// "|" so the importer does not split it on the comma.
func joinList(values []string) string {
	s := strings.Join(values, "|")
	if len(values) == 1 && strings.Contains(s, ",") {
		s += "|"
	}
	return s
}

// IsNotFound reports whether err means a missing profile.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
