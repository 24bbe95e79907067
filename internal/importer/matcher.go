package importer

import (
	"fmt"
	"strings"

	"frs/profile-service/internal/model"
)

// MatchMode selects how a CSV row is matched to an existing profile.
type MatchMode string

const (
	MatchEmail MatchMode = "email"
	MatchNMLS  MatchMode = "nmls"
	MatchFuzzy MatchMode = "fuzzy"
)

// ParseMatchMode converts a raw string to a MatchMode.
func ParseMatchMode(s string) (MatchMode, error) {
	m := MatchMode(s)
	switch m {
	case MatchEmail, MatchNMLS, MatchFuzzy:
		return m, nil
	}
	return "", &ValidationError{Msg: fmt.Sprintf("unknown match mode %q", s)}
}

// Candidate is the comparison projection of an existing profile. Email and
// names are lower-cased; NMLS is kept as stored because it matches exactly.
type Candidate struct {
	ProfileID int64
	Name      string
	Email     string
	FirstName string
	LastName  string
	FullName  string
	NMLS      string
}

// BuildCandidates projects profiles into match candidates, preserving the
// order the store returned them in.
func BuildCandidates(profiles []model.Profile) []Candidate {
	out := make([]Candidate, 0, len(profiles))
	for i := range profiles {
		p := &profiles[i]
		first := strings.ToLower(p.FirstName)
		last := strings.ToLower(p.LastName)
		out = append(out, Candidate{
			ProfileID: p.ID,
			Name:      p.Name(),
			Email:     strings.ToLower(p.Email),
			FirstName: first,
			LastName:  last,
			FullName:  strings.TrimSpace(first + " " + last),
			NMLS:      p.NMLS,
		})
	}
	return out
}

// Match is the existing profile a row resolved to.
type Match struct {
	ProfileID int64     `json:"profileId"`
	Name      string    `json:"name"`
	Method    MatchMode `json:"method"`
	Score     float64   `json:"score"`
}

// FindMatch returns the first candidate matching rec under mode, or nil.
// Fuzzy matching takes the first candidate in index order scoring at least
// FuzzyThreshold, not the best-scoring one.
func FindMatch(rec Record, candidates []Candidate, mode MatchMode) *Match {
	switch mode {
	case MatchEmail:
		email := strings.ToLower(rec.Get(model.FieldEmail))
		if email == "" {
			return nil
		}
		for _, c := range candidates {
			if c.Email == email {
				return &Match{ProfileID: c.ProfileID, Name: c.Name, Method: MatchEmail, Score: 1}
			}
		}

	case MatchNMLS:
		nmls := rec.Get(model.FieldNMLS)
		if nmls == "" {
			return nil
		}
		for _, c := range candidates {
			if c.NMLS == nmls {
				return &Match{ProfileID: c.ProfileID, Name: c.Name, Method: MatchNMLS, Score: 1}
			}
		}

	case MatchFuzzy:
		name := rec.FullName()
		if name == "" {
			return nil
		}
		for _, c := range candidates {
			if c.FullName == "" {
				continue
			}
			if score := Similarity(name, c.FullName); score >= FuzzyThreshold {
				return &Match{ProfileID: c.ProfileID, Name: c.Name, Method: MatchFuzzy, Score: score}
			}
		}
	}

	return nil
}
