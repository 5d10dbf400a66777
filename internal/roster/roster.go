// Package roster loads club rosters (teams, players, coaches and referees)
// from YAML and provisions them into a store.
package roster

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/youth-scoreboard/internal/domain"
	"github.com/youth-scoreboard/internal/store"
)

// File is the YAML layout of a roster file
type File struct {
	Teams    []Team    `yaml:"teams"`
	Coaches  []Coach   `yaml:"coaches"`
	Referees []Referee `yaml:"referees"`
}

// Team is a team with its players
type Team struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name"`
	ClubName string   `yaml:"club_name"`
	Players  []Player `yaml:"players"`
}

// Player is a roster entry of a team
type Player struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Number int    `yaml:"number"`
}

// Coach holds a coach PIN and the teams it opens
type Coach struct {
	ID    string   `yaml:"id"`
	Name  string   `yaml:"name"`
	PIN   string   `yaml:"pin"`
	Teams []string `yaml:"teams"`
}

// Referee holds a referee PIN
type Referee struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	PIN  string `yaml:"pin"`
}

// Result counts the entities created by Apply
type Result struct {
	Teams    int `json:"teams"`
	Players  int `json:"players"`
	Coaches  int `json:"coaches"`
	Referees int `json:"referees"`
	Skipped  int `json:"skipped"`
}

// Load reads and validates a roster file. ${ENV} references are expanded
// so PINs can live outside the file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading roster file: %w", err)
	}
	return Parse([]byte(os.ExpandEnv(string(data))))
}

// Parse decodes and validates roster YAML
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing roster file: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks that ids are present and unique and that coaches only
// reference teams of the file
func (f *File) Validate() error {
	teams := make(map[string]bool, len(f.Teams))
	players := make(map[string]bool)
	for _, t := range f.Teams {
		if t.ID == "" || t.Name == "" {
			return fmt.Errorf("team needs id and name")
		}
		if teams[t.ID] {
			return fmt.Errorf("duplicate team %q", t.ID)
		}
		teams[t.ID] = true
		for _, p := range t.Players {
			if p.ID == "" || p.Name == "" {
				return fmt.Errorf("player of team %q needs id and name", t.ID)
			}
			if players[p.ID] {
				return fmt.Errorf("duplicate player %q", p.ID)
			}
			players[p.ID] = true
		}
	}
	for _, c := range f.Coaches {
		if c.ID == "" || c.PIN == "" {
			return fmt.Errorf("coach needs id and pin")
		}
		for _, id := range c.Teams {
			if !teams[id] {
				return fmt.Errorf("coach %q references unknown team %q", c.ID, id)
			}
		}
	}
	for _, r := range f.Referees {
		if r.ID == "" || r.PIN == "" {
			return fmt.Errorf("referee needs id and pin")
		}
	}
	return nil
}

// Apply inserts every entity of the file that is not stored yet, in one
// transaction. Existing ids are left untouched, so applying a file twice
// is harmless.
func Apply(ctx context.Context, st store.Store, f *File) (Result, error) {
	var res Result
	err := st.Update(ctx, func(tx store.Tx) error {
		res = Result{}
		for _, t := range f.Teams {
			created, err := insertMissing(
				func() error { _, err := tx.Teams().Get(ctx, t.ID); return err },
				func() error {
					return tx.Teams().Insert(ctx, &domain.Team{ID: t.ID, Name: t.Name, ClubName: t.ClubName})
				},
			)
			if err != nil {
				return fmt.Errorf("team %s: %w", t.ID, err)
			}
			res.count(created, &res.Teams)

			for _, p := range t.Players {
				created, err := insertMissing(
					func() error { _, err := tx.Players().Get(ctx, p.ID); return err },
					func() error {
						return tx.Players().Insert(ctx, &domain.Player{ID: p.ID, TeamID: t.ID, Name: p.Name, Number: p.Number})
					},
				)
				if err != nil {
					return fmt.Errorf("player %s: %w", p.ID, err)
				}
				res.count(created, &res.Players)
			}
		}
		for _, c := range f.Coaches {
			created, err := insertMissing(
				func() error { _, err := tx.Coaches().Get(ctx, c.ID); return err },
				func() error {
					return tx.Coaches().Insert(ctx, &domain.Coach{ID: c.ID, Name: c.Name, PIN: c.PIN, TeamIDs: c.Teams})
				},
			)
			if err != nil {
				return fmt.Errorf("coach %s: %w", c.ID, err)
			}
			res.count(created, &res.Coaches)
		}
		for _, r := range f.Referees {
			created, err := insertMissing(
				func() error { _, err := tx.Referees().Get(ctx, r.ID); return err },
				func() error {
					return tx.Referees().Insert(ctx, &domain.Referee{ID: r.ID, Name: r.Name, PIN: r.PIN})
				},
			)
			if err != nil {
				return fmt.Errorf("referee %s: %w", r.ID, err)
			}
			res.count(created, &res.Referees)
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func insertMissing(get, insert func() error) (bool, error) {
	err := get()
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return false, err
	}
	return true, insert()
}

func (r *Result) count(created bool, n *int) {
	if created {
		*n++
		return
	}
	r.Skipped++
}
