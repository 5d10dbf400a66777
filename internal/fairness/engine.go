// Package fairness computes playing time and proposes substitutions that
// even it out. It never mutates state.
package fairness

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Entry is the engine's view of one match player
type Entry struct {
	PlayerID string
	Name     string
	// Minutes is the fractional live playing time.
	Minutes  float64
	OnField  bool
	IsKeeper bool
	Absent   bool
	// Stint is the current continuous on-field stint.
	Stint time.Duration
	// BenchWait is how long a bench player has been off the field.
	BenchWait time.Duration
}

// WholeMinutes rounds down so nobody is over-credited
func (e Entry) WholeMinutes() int {
	return int(math.Floor(e.Minutes))
}

// Suggestion pairs a field player to rotate out with a bench player
type Suggestion struct {
	Out    Entry
	In     Entry
	Gap    float64
	Reason string
}

// Engine holds the fairness policy
type Engine struct {
	// Tolerance is the minute gap below which pairs count as fair enough.
	Tolerance float64
	// Limit caps the number of suggestions; zero means no cap.
	Limit int
}

// NewEngine creates an engine with the given tolerance and suggestion cap
func NewEngine(tolerance float64, limit int) *Engine {
	if tolerance < 0 {
		tolerance = 0
	}
	return &Engine{Tolerance: tolerance, Limit: limit}
}

// RankByMinutes sorts entries ascending by playing time, least played first.
func RankByMinutes(entries []Entry) []Entry {
	out := append([]Entry(nil), entries...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Minutes != out[j].Minutes {
			return out[i].Minutes < out[j].Minutes
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Suggest pairs the least-played bench players with the most-played field
// players. The keeper is never rotated in or out and absent players are
// ignored.
// Pairing stops at the first pair whose gap is within tolerance.
func (e *Engine) Suggest(entries []Entry) []Suggestion {
	var field, bench []Entry
	for _, entry := range entries {
		switch {
		case entry.Absent:
		case entry.OnField && !entry.IsKeeper:
			field = append(field, entry)
		case !entry.OnField && !entry.IsKeeper:
			bench = append(bench, entry)
		}
	}

	sort.SliceStable(field, func(i, j int) bool {
		a, b := field[i], field[j]
		if a.WholeMinutes() != b.WholeMinutes() {
			return a.WholeMinutes() > b.WholeMinutes()
		}
		if a.Stint != b.Stint {
			return a.Stint > b.Stint
		}
		return a.Name < b.Name
	})
	sort.SliceStable(bench, func(i, j int) bool {
		a, b := bench[i], bench[j]
		if a.WholeMinutes() != b.WholeMinutes() {
			return a.WholeMinutes() < b.WholeMinutes()
		}
		if a.BenchWait != b.BenchWait {
			return a.BenchWait > b.BenchWait
		}
		return a.Name < b.Name
	})

	n := min(len(field), len(bench))
	if e.Limit > 0 {
		n = min(n, e.Limit)
	}

	suggestions := make([]Suggestion, 0, n)
	for i := 0; i < n; i++ {
		out, in := field[i], bench[i]
		gap := out.Minutes - in.Minutes
		if gap <= e.Tolerance {
			break
		}
		suggestions = append(suggestions, Suggestion{
			Out:    out,
			In:     in,
			Gap:    gap,
			Reason: reason(out, in, gap),
		})
	}
	return suggestions
}

func reason(out, in Entry, gap float64) string {
	msg := fmt.Sprintf("%s speelde %d min minder dan %s (%d tegen %d min)",
		in.Name, int(math.Floor(gap)), out.Name, in.WholeMinutes(), out.WholeMinutes())
	if wait := int(in.BenchWait.Minutes()); wait > 0 {
		msg += fmt.Sprintf(", al %d min op de bank", wait)
	}
	if stint := int(out.Stint.Minutes()); stint > 0 {
		msg += fmt.Sprintf("; %s staat %d min aaneengesloten in het veld", out.Name, stint)
	}
	return msg
}
