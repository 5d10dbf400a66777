// Package store defines the persistence contract of the match tracker.
//
// Every mutation runs inside Store.Update as one all-or-nothing transaction;
// if the callback returns an error none of its writes are applied. Reads that
// only project state use Store.View.
package store

import (
	"context"
	"errors"

	"github.com/youth-scoreboard/internal/domain"
)

// Store opens transactions over the match tracker collections
type Store interface {
	// Update runs fn in a read-write transaction. Writes are committed only
	// if fn returns nil.
	Update(ctx context.Context, fn func(tx Tx) error) error
	// View runs fn against a consistent read-only snapshot.
	View(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}

// Tx exposes one repository per entity, bound to a single transaction
type Tx interface {
	Matches() MatchRepository
	MatchPlayers() MatchPlayerRepository
	Events() EventRepository
	Coaches() CoachRepository
	Referees() RefereeRepository
	Players() PlayerRepository
	Teams() TeamRepository
}

// MatchRepository stores matches. Public codes are unique.
type MatchRepository interface {
	Insert(ctx context.Context, m *domain.Match) error
	// Get returns domain.ErrNotFound when the match does not exist. Inside
	// Update the row is locked until the transaction ends.
	Get(ctx context.Context, id string) (*domain.Match, error)
	GetByPublicCode(ctx context.Context, code string) (*domain.Match, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	Update(ctx context.Context, m *domain.Match) error
	// ListByTeam returns the newest matches of a team first.
	ListByTeam(ctx context.Context, teamID string, limit int) ([]domain.Match, error)
	ListByStatus(ctx context.Context, status domain.MatchStatus, limit int) ([]domain.Match, error)
}

// MatchPlayerRepository stores match participation rows
type MatchPlayerRepository interface {
	Insert(ctx context.Context, p *domain.MatchPlayer) error
	// Get looks up the (match, player) pair.
	Get(ctx context.Context, matchID, playerID string) (*domain.MatchPlayer, error)
	ListByMatch(ctx context.Context, matchID string) ([]domain.MatchPlayer, error)
	Update(ctx context.Context, p *domain.MatchPlayer) error
}

// EventRepository is the append-only event log
type EventRepository interface {
	// Append writes the events in order as one batch.
	Append(ctx context.Context, events ...*domain.MatchEvent) error
	// ListByMatch returns events in insertion order.
	ListByMatch(ctx context.Context, matchID string) ([]domain.MatchEvent, error)
	ListByMatchAndType(ctx context.Context, matchID string, eventType domain.EventType) ([]domain.MatchEvent, error)
}

// CoachRepository stores coaches
type CoachRepository interface {
	Insert(ctx context.Context, c *domain.Coach) error
	Get(ctx context.Context, id string) (*domain.Coach, error)
	// GetByPIN returns the first coach holding the PIN.
	GetByPIN(ctx context.Context, pin string) (*domain.Coach, error)
}

// RefereeRepository stores referees
type RefereeRepository interface {
	Insert(ctx context.Context, r *domain.Referee) error
	Get(ctx context.Context, id string) (*domain.Referee, error)
	GetByPIN(ctx context.Context, pin string) (*domain.Referee, error)
}

// PlayerRepository stores roster players
type PlayerRepository interface {
	Insert(ctx context.Context, p *domain.Player) error
	Get(ctx context.Context, id string) (*domain.Player, error)
	// ListByIDs returns the players that exist among ids, keyed by id.
	ListByIDs(ctx context.Context, ids []string) (map[string]domain.Player, error)
}

// TeamRepository stores teams
type TeamRepository interface {
	Insert(ctx context.Context, t *domain.Team) error
	Get(ctx context.Context, id string) (*domain.Team, error)
}

// ErrDuplicateCode is returned by MatchRepository.Insert when the public code is taken
var ErrDuplicateCode = errors.New("public code already in use")
