// Package importer turns an uploaded CSV of people into profile creates and
// updates: headers are mapped to canonical fields, each row is matched
// against the active profiles, and an import mode decides what to do with it.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"frs/profile-service/internal/account"
	"frs/profile-service/internal/events"
	"frs/profile-service/internal/media"
	"frs/profile-service/internal/metrics"
	"frs/profile-service/internal/model"
)

// ValidationError wraps a user-facing validation message.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

// ProfileStore is the slice of the profile store an import run needs.
type ProfileStore interface {
	ListActive(ctx context.Context) ([]model.Profile, error)
	Create(ctx context.Context, p *model.Profile) (int64, error)
	Update(ctx context.Context, id int64, patch model.Patch) (bool, error)
}

// Deps are the collaborators of an Importer. Media, Events and Metrics are
// optional; Aliases defaults to DefaultAliases.
type Deps struct {
	Store   ProfileStore
	Linker  account.Linker
	Media   media.Importer
	Events  events.Publisher
	Metrics *metrics.Import
	Aliases map[string]string
}

// Importer runs previews and imports. It holds no per-run state and is safe
// for concurrent use.
type Importer struct {
	store   ProfileStore
	linker  account.Linker
	media   media.Importer
	pub     events.Publisher
	metrics *metrics.Import
	aliases map[string]string
}

func New(d Deps) *Importer {
	aliases := d.Aliases
	if aliases == nil {
		aliases = DefaultAliases
	}
	return &Importer{
		store:   d.Store,
		linker:  d.Linker,
		media:   d.Media,
		pub:     d.Events,
		metrics: d.Metrics,
		aliases: aliases,
	}
}

// Options configure one run. Zero values mean email matching in update mode.
type Options struct {
	MatchMode    MatchMode
	Mode         ImportMode
	ImportImages bool
	Actor        string
}

func (o *Options) normalize() error {
	if o.MatchMode == "" {
		o.MatchMode = MatchEmail
	}
	if o.Mode == "" {
		o.Mode = ModeUpdate
	}
	if _, err := ParseMatchMode(string(o.MatchMode)); err != nil {
		return err
	}
	if _, err := ParseImportMode(string(o.Mode)); err != nil {
		return err
	}
	return nil
}

// Row is one data line with its decision and, after Process, its outcome.
type Row struct {
	Line      int    `json:"line"`
	Name      string `json:"name"`
	Record    Record `json:"record"`
	Action    Action `json:"action"`
	Match     *Match `json:"match,omitempty"`
	State     State  `json:"state"`
	ProfileID int64  `json:"profileId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Summary counts decided actions.
type Summary struct {
	Total  int `json:"total"`
	New    int `json:"new"`
	Update int `json:"update"`
	Skip   int `json:"skip"`
}

// Preview is the dry-run result.
type Preview struct {
	Rows    []Row   `json:"rows"`
	Summary Summary `json:"summary"`
}

// Result is the outcome of a processed import.
type Result struct {
	RunID   string   `json:"runId"`
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Skipped int      `json:"skipped"`
	Errors  int      `json:"errors"`
	Log     []string `json:"log"`
	Rows    []Row    `json:"rows"`
}

// plan reads the CSV, builds the candidate index once and decides every row.
func (im *Importer) plan(ctx context.Context, r io.Reader, opts Options) ([]Row, error) {
	t, err := readTable(r)
	if err != nil {
		return nil, err
	}
	if t.dropped > 0 {
		slog.Debug("dropped malformed csv rows", "count", t.dropped)
	}

	profiles, err := im.store.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	candidates := BuildCandidates(profiles)

	rows := make([]Row, 0, len(t.rows))
	for _, tr := range t.rows {
		rec := MapRow(t.raw(tr), im.aliases)
		m := FindMatch(rec, candidates, opts.MatchMode)
		rows = append(rows, Row{
			Line:   tr.line,
			Name:   rec.Name(),
			Record: rec,
			Action: Decide(m != nil, opts.Mode),
			Match:  m,
			State:  StatePending,
		})
	}
	return rows, nil
}

// Preview decides every row without writing anything.
func (im *Importer) Preview(ctx context.Context, r io.Reader, opts Options) (*Preview, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}
	start := time.Now()

	rows, err := im.plan(ctx, r, opts)
	if err != nil {
		return nil, err
	}

	p := &Preview{Rows: rows, Summary: Summary{Total: len(rows)}}
	for _, row := range rows {
		switch row.Action {
		case ActionNew:
			p.Summary.New++
		case ActionUpdate:
			p.Summary.Update++
		case ActionSkip:
			p.Summary.Skip++
		}
	}

	im.metrics.Run("preview", string(opts.Mode), time.Since(start))
	return p, nil
}

// Process decides every row and applies it. A failing row is logged,
// counted under Errors and left behind; the run continues.
func (im *Importer) Process(ctx context.Context, r io.Reader, opts Options) (*Result, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}
	start := time.Now()

	rows, err := im.plan(ctx, r, opts)
	if err != nil {
		return nil, err
	}

	res := &Result{RunID: uuid.NewString(), Log: []string{}}
	for i := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row := &rows[i]

		switch row.Action {
		case ActionSkip:
			row.State = StateSkipped
			res.Skipped++
			res.Log = append(res.Log, "Skipped: "+row.Name)

		case ActionNew:
			id, err := im.createProfile(ctx, row.Record, opts)
			if err != nil {
				im.fail(res, row, err)
				continue
			}
			row.State, row.ProfileID = StateCreated, id
			res.Created++
			res.Log = append(res.Log, fmt.Sprintf("Created: %s (profile %d)", row.Name, id))

		case ActionUpdate:
			if err := im.updateProfile(ctx, row.Match.ProfileID, row.Record, opts); err != nil {
				im.fail(res, row, err)
				continue
			}
			row.State, row.ProfileID = StateUpdated, row.Match.ProfileID
			res.Updated++
			res.Log = append(res.Log, fmt.Sprintf("Updated: %s (profile %d, matched by %s)", row.Name, row.ProfileID, row.Match.Method))
		}

		im.metrics.Row(string(row.Action), string(row.State))
		if row.ProfileID != 0 {
			events.Emit(ctx, im.pub, events.ProfileImported, events.ProfileImportedEvent{
				RunID:     res.RunID,
				ProfileID: row.ProfileID,
				Action:    string(row.Action),
			})
		}
	}
	res.Rows = rows

	im.metrics.Run("process", string(opts.Mode), time.Since(start))
	slog.Info("import finished",
		"runId", res.RunID, "actor", opts.Actor,
		"created", res.Created, "updated", res.Updated,
		"skipped", res.Skipped, "errors", res.Errors)

	events.Emit(ctx, im.pub, events.ImportCompleted, events.ImportCompletedEvent{
		RunID:     res.RunID,
		Actor:     opts.Actor,
		MatchMode: string(opts.MatchMode),
		Mode:      string(opts.Mode),
		Created:   res.Created,
		Updated:   res.Updated,
		Skipped:   res.Skipped,
		Errors:    res.Errors,
	})

	return res, nil
}

func (im *Importer) fail(res *Result, row *Row, err error) {
	row.State = StateErrored
	row.Error = err.Error()
	res.Errors++
	res.Log = append(res.Log, fmt.Sprintf("Error on %s: %v", row.Name, err))
	im.metrics.Row(string(row.Action), string(row.State))
	slog.Error("import row failed", "row", row.Name, "line", row.Line, "action", row.Action, "err", err)
}

// createProfile creates the account first, then the profile linked to it.
func (im *Importer) createProfile(ctx context.Context, rec Record, opts Options) (int64, error) {
	first := rec.Get(model.FieldFirstName)
	last := rec.Get(model.FieldLastName)

	email := strings.ToLower(rec.Get(model.FieldEmail))
	if email == "" {
		var err error
		if email, err = account.DerivePlaceholderEmail(ctx, im.linker, first, last); err != nil {
			return 0, err
		}
	}

	userID, err := im.accountFor(ctx, rec, email)
	if err != nil {
		return 0, err
	}

	p := profileFromRecord(rec)
	p.Email = email
	p.UserID = &userID
	p.IsActive = true
	if opts.ImportImages {
		if key := im.fetchImage(ctx, rec); key != "" {
			p.HeadshotKey = &key
		}
	}

	id, err := im.store.Create(ctx, p)
	if err != nil {
		return 0, fmt.Errorf("create profile: %w", err)
	}
	return id, nil
}

// accountFor returns the account a new profile links to. An account already
// registered under the row's email is reused, which is how a deactivated
// profile comes back through import; otherwise a fresh account is created.
func (im *Importer) accountFor(ctx context.Context, rec Record, email string) (int64, error) {
	if !account.IsPlaceholderEmail(email) {
		existing, err := im.linker.FindByEmail(ctx, email)
		switch {
		case err == nil:
			return existing.ID, nil
		case !errors.Is(err, account.ErrNotFound):
			return 0, fmt.Errorf("look up account: %w", err)
		}
	}

	first := rec.Get(model.FieldFirstName)
	last := rec.Get(model.FieldLastName)
	login, err := account.DeriveLogin(ctx, im.linker, first, last, email)
	if err != nil {
		return 0, err
	}
	password, err := account.GeneratePassword()
	if err != nil {
		return 0, err
	}
	userID, err := im.linker.CreateAccount(ctx, login, email, password, roleOf(rec), first, last)
	if err != nil {
		return 0, fmt.Errorf("create account: %w", err)
	}
	return userID, nil
}

// updateProfile overwrites only the fields the row carries a value for.
func (im *Importer) updateProfile(ctx context.Context, id int64, rec Record, opts Options) error {
	patch := patchFromRecord(rec)
	if opts.ImportImages {
		if key := im.fetchImage(ctx, rec); key != "" {
			patch.HeadshotKey = &key
		}
	}

	ok, err := im.store.Update(ctx, id, patch)
	if err != nil {
		return fmt.Errorf("update profile %d: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("update profile %d: %w", id, errProfileGone)
	}
	return nil
}

var errProfileGone = errors.New("matched profile no longer exists")

// fetchImage imports the row's headshot. Failures are logged and swallowed;
// the caller just leaves the headshot unset.
func (im *Importer) fetchImage(ctx context.Context, rec Record) string {
	url := rec.Get(model.FieldHeadshotURL)
	if im.media == nil || url == "" {
		return ""
	}
	key, err := im.media.FetchAndStore(ctx, url)
	if err != nil {
		im.metrics.Image("failed")
		slog.Warn("headshot import failed", "row", rec.Name(), "url", url, "err", err)
		return ""
	}
	im.metrics.Image("ok")
	return key
}

// roleOf picks the account role: the role column, else the first roles
// entry, else DefaultRole.
func roleOf(rec Record) string {
	if r := rec.Get(model.FieldRole); r != "" {
		return r
	}
	if roles := rec.Lists[model.FieldRoles]; len(roles) > 0 {
		return roles[0]
	}
	return account.DefaultRole
}

func profileFromRecord(rec Record) *model.Profile {
	p := &model.Profile{}
	for _, f := range model.ScalarFields {
		p.Set(f, rec.Get(f))
	}
	for _, f := range model.ListFields {
		values := rec.Lists[f]
		if values == nil {
			values = []string{}
		}
		p.SetList(f, values)
	}
	return p
}

func patchFromRecord(rec Record) model.Patch {
	patch := model.NewPatch()
	for f, v := range rec.Values {
		if v != "" && model.IsScalarField(f) {
			patch.Strings[f] = v
		}
	}
	if email, ok := patch.Strings[model.FieldEmail]; ok {
		patch.Strings[model.FieldEmail] = strings.ToLower(email)
	}
	for f, v := range rec.Lists {
		if len(v) > 0 && model.IsListField(f) {
			patch.Lists[f] = v
		}
	}
	return patch
}
