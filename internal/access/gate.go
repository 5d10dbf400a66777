// Package access resolves PINs to identities and authorizes match actions.
package access

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/youth-scoreboard/internal/domain"
	"github.com/youth-scoreboard/internal/store"
)

// Role is the kind of identity a PIN resolved to
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleCoach   Role = "coach"
	RoleReferee Role = "referee"
)

// Permission is what a caller wants to do with a match
type Permission int

const (
	// PermCoach covers scoreboard, lineup and visibility changes.
	PermCoach Permission = iota
	// PermClock covers start, quarter progression and pause/resume; the
	// assigned referee holds it as well.
	PermClock
)

// Identity is the caller behind a PIN
type Identity struct {
	Role      Role
	RefereeID string
}

// Gate checks PINs against match, referee and admin credentials
type Gate struct {
	adminPIN string
}

// NewGate creates a gate. An empty adminPIN disables the admin credential.
func NewGate(adminPIN string) *Gate {
	return &Gate{adminPIN: adminPIN}
}

func pinEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// IsAdmin reports whether pin is the configured admin PIN
func (g *Gate) IsAdmin(pin string) bool {
	return g.adminPIN != "" && pin != "" && pinEqual(g.adminPIN, pin)
}

// AuthorizeMatch loads the match and checks that pin may act on it with the
// given permission. Every failure, including a missing match, returns
// domain.ErrInvalidMatchOrPIN.
func (g *Gate) AuthorizeMatch(ctx context.Context, tx store.Tx, matchID, pin string, perm Permission) (*domain.Match, Identity, error) {
	if matchID == "" || pin == "" {
		return nil, Identity{}, domain.ErrInvalidMatchOrPIN
	}

	match, err := tx.Matches().Get(ctx, matchID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, Identity{}, domain.ErrInvalidMatchOrPIN
		}
		return nil, Identity{}, fmt.Errorf("loading match: %w", err)
	}

	if pinEqual(match.CoachPIN, pin) {
		return match, Identity{Role: RoleCoach}, nil
	}
	if g.IsAdmin(pin) {
		return match, Identity{Role: RoleAdmin}, nil
	}
	if perm == PermClock && match.RefereeID != "" {
		ref, err := tx.Referees().Get(ctx, match.RefereeID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, Identity{}, fmt.Errorf("loading referee: %w", err)
		}
		if ref != nil && pinEqual(ref.PIN, pin) {
			return match, Identity{Role: RoleReferee, RefereeID: ref.ID}, nil
		}
	}
	return nil, Identity{}, domain.ErrInvalidMatchOrPIN
}

// ResolveCoach returns the coach holding pin, or domain.ErrNotFound
func (g *Gate) ResolveCoach(ctx context.Context, tx store.Tx, pin string) (*domain.Coach, error) {
	if pin == "" {
		return nil, domain.ErrNotFound
	}
	return tx.Coaches().GetByPIN(ctx, pin)
}
