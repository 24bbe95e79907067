package importer

import "fmt"

// ImportMode governs what happens to matched and unmatched rows.
type ImportMode string

const (
	// ModeUpdate creates unmatched rows and updates matched ones.
	ModeUpdate ImportMode = "update"
	// ModeUpdateOnly updates matched rows and skips the rest.
	ModeUpdateOnly ImportMode = "update_only"
	// ModeCreateOnly creates unmatched rows and skips matched ones.
	ModeCreateOnly ImportMode = "create_only"
)

// ParseImportMode converts a raw string to an ImportMode.
func ParseImportMode(s string) (ImportMode, error) {
	m := ImportMode(s)
	switch m {
	case ModeUpdate, ModeUpdateOnly, ModeCreateOnly:
		return m, nil
	}
	return "", &ValidationError{Msg: fmt.Sprintf("unknown import mode %q", s)}
}

// Action is the decision taken for a row before anything is written.
type Action string

const (
	ActionNew    Action = "new"
	ActionUpdate Action = "update"
	ActionSkip   Action = "skip"
)

// State is a row's lifecycle position:
//
//	pending ──► new ────► created | errored
//	        ├─► update ─► updated | errored
//	        └─► skip ───► skipped
type State string

const (
	StatePending State = "pending"
	StateCreated State = "created"
	StateUpdated State = "updated"
	StateSkipped State = "skipped"
	StateErrored State = "errored"
)

// IsTerminal reports whether no further transition can happen from s.
func IsTerminal(s State) bool {
	switch s {
	case StateCreated, StateUpdated, StateSkipped, StateErrored:
		return true
	}
	return false
}

// Decide maps (matched?, import mode) to an action.
func Decide(matched bool, mode ImportMode) Action {
	switch {
	case matched && mode == ModeCreateOnly:
		return ActionSkip
	case matched:
		return ActionUpdate
	case mode == ModeUpdateOnly:
		return ActionSkip
	default:
		return ActionNew
	}
}
