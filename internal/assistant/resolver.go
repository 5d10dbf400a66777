package assistant

import (
	"fmt"
	"strings"

	"github.com/youth-scoreboard/internal/domain"
)

// Filter narrows name resolution to part of the roster
type Filter int

const (
	AnyPlayer Filter = iota
	OnFieldOnly
	BenchOnly
)

func (f Filter) allows(p domain.PlayerTime) bool {
	switch f {
	case OnFieldOnly:
		return p.OnField
	case BenchOnly:
		return !p.OnField && !p.Absent
	default:
		return true
	}
}

// ResolveError reports a name that did not pick out exactly one player
type ResolveError struct {
	Query      string
	Candidates []string
	Ambiguous  bool
}

func (e *ResolveError) Error() string {
	if e.Ambiguous {
		return fmt.Sprintf("%q matches several players: %s", e.Query, strings.Join(e.Candidates, ", "))
	}
	if len(e.Candidates) == 0 {
		return fmt.Sprintf("no player matches %q", e.Query)
	}
	return fmt.Sprintf("no player matches %q, choose one of: %s", e.Query, strings.Join(e.Candidates, ", "))
}

// Resolver maps spoken names onto the match roster
type Resolver struct {
	roster []domain.PlayerTime
}

// NewResolver creates a resolver over a roster snapshot
func NewResolver(roster []domain.PlayerTime) *Resolver {
	return &Resolver{roster: roster}
}

// Resolve finds the player a name refers to. An exact name wins over a
// substring, which wins over a first name contained in the query. Matching
// is case-insensitive.
func (r *Resolver) Resolve(name string, filter Filter) (domain.PlayerTime, error) {
	query := strings.ToLower(strings.TrimSpace(name))

	var pool []domain.PlayerTime
	for _, p := range r.roster {
		if filter.allows(p) {
			pool = append(pool, p)
		}
	}

	if query != "" {
		stages := []func(full string) bool{
			func(full string) bool { return full == query },
			func(full string) bool { return strings.Contains(full, query) },
			func(full string) bool {
				first, _, _ := strings.Cut(full, " ")
				return first != "" && strings.Contains(query, first)
			},
		}
		for _, match := range stages {
			var hits []domain.PlayerTime
			for _, p := range pool {
				if match(strings.ToLower(p.Name)) {
					hits = append(hits, p)
				}
			}
			switch len(hits) {
			case 0:
				continue
			case 1:
				return hits[0], nil
			default:
				return domain.PlayerTime{}, &ResolveError{Query: name, Candidates: names(hits), Ambiguous: true}
			}
		}
	}

	return domain.PlayerTime{}, &ResolveError{Query: name, Candidates: names(pool)}
}

func names(players []domain.PlayerTime) []string {
	out := make([]string, 0, len(players))
	for _, p := range players {
		out = append(out, p.Name)
	}
	return out
}
