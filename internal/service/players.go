package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/youth-scoreboard/internal/access"
	"github.com/youth-scoreboard/internal/domain"
	"github.com/youth-scoreboard/internal/store"
)

// Substitute takes playerOutID off the field and puts playerInID on it,
// logging a paired sub_out/sub_in. A side without a match player record is
// skipped; the events are logged regardless.
func (s *MatchService) Substitute(ctx context.Context, matchID, pin, playerOutID, playerInID string) (*domain.Match, error) {
	if playerOutID == "" || playerInID == "" {
		return nil, domain.ErrInvalidRequest
	}
	if playerOutID == playerInID {
		return nil, domain.ErrSamePlayer
	}
	return s.mutate(ctx, matchID, pin, access.PermCoach, func(m *mutation) error {
		out, err := m.player(playerOutID)
		if err != nil {
			return err
		}
		in, err := m.player(playerInID)
		if err != nil {
			return err
		}
		if in != nil && in.Absent {
			return domain.ErrPlayerAbsent
		}

		running := m.match.ClockRunning()
		var slot *int
		if out != nil {
			out.CreditStint(m.now)
			out.OnField = false
			slot, out.FieldSlotIndex = out.FieldSlotIndex, nil
			if err := m.savePlayer(out); err != nil {
				return err
			}
		}
		if in != nil {
			wasOnField := in.OnField
			in.OnField = true
			if slot != nil {
				in.FieldSlotIndex = slot
			}
			// An incoming player already on the field keeps its running stint
			if running && !wasOnField {
				in.StartStint(m.now)
			}
			if err := m.savePlayer(in); err != nil {
				return err
			}
		}

		subOut := m.event(domain.EventSubOut)
		subOut.PlayerID = playerOutID
		subOut.RelatedPlayerID = playerInID
		subIn := m.event(domain.EventSubIn)
		subIn.PlayerID = playerInID
		subIn.RelatedPlayerID = playerOutID
		return nil
	})
}

// playerMutation runs fn on one match player and saves it
func (s *MatchService) playerMutation(ctx context.Context, matchID, pin, playerID string, fn func(m *mutation, p *domain.MatchPlayer) error) (*domain.MatchPlayer, error) {
	var result domain.MatchPlayer
	_, err := s.mutate(ctx, matchID, pin, access.PermCoach, func(m *mutation) error {
		p, err := m.requirePlayer(playerID)
		if err != nil {
			return err
		}
		if err := fn(m, p); err != nil {
			return err
		}
		if err := m.savePlayer(p); err != nil {
			return err
		}
		result = *p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// TogglePlayerOnField flips a player between field and bench without logging
// a substitution.
func (s *MatchService) TogglePlayerOnField(ctx context.Context, matchID, pin, playerID string) (*domain.MatchPlayer, error) {
	return s.playerMutation(ctx, matchID, pin, playerID, func(m *mutation, p *domain.MatchPlayer) error {
		if p.OnField {
			p.CreditStint(m.now)
			p.OnField = false
			return nil
		}
		if p.Absent {
			return domain.ErrPlayerAbsent
		}
		p.OnField = true
		if m.match.ClockRunning() {
			p.StartStint(m.now)
		}
		return nil
	})
}

// ToggleKeeper flips the keeper flag. Setting it clears every other keeper
// of the match in the same transaction.
func (s *MatchService) ToggleKeeper(ctx context.Context, matchID, pin, playerID string) (*domain.MatchPlayer, error) {
	return s.playerMutation(ctx, matchID, pin, playerID, func(m *mutation, p *domain.MatchPlayer) error {
		if p.IsKeeper {
			p.IsKeeper = false
			return nil
		}
		if p.Absent {
			return domain.ErrPlayerAbsent
		}
		players, err := m.players()
		if err != nil {
			return err
		}
		for i := range players {
			other := &players[i]
			if other.PlayerID == p.PlayerID || !other.IsKeeper {
				continue
			}
			other.IsKeeper = false
			if err := m.savePlayer(other); err != nil {
				return err
			}
		}
		p.IsKeeper = true
		return nil
	})
}

// SetAbsent marks a player as (not) present. Only allowed before kick-off.
func (s *MatchService) SetAbsent(ctx context.Context, matchID, pin, playerID string, absent bool) (*domain.MatchPlayer, error) {
	return s.playerMutation(ctx, matchID, pin, playerID, func(m *mutation, p *domain.MatchPlayer) error {
		if m.match.Status != domain.StatusScheduled && m.match.Status != domain.StatusLineup {
			return domain.ErrNotPregame
		}
		p.Absent = absent
		if absent {
			p.OnField = false
			p.IsKeeper = false
			p.FieldSlotIndex = nil
			p.LastSubbedInAt = nil
		}
		return nil
	})
}

// SetFieldSlot places a player in a formation slot, or clears it for nil
func (s *MatchService) SetFieldSlot(ctx context.Context, matchID, pin, playerID string, slot *int) (*domain.MatchPlayer, error) {
	if slot != nil && *slot < 0 {
		return nil, domain.ErrInvalidSlot
	}
	return s.playerMutation(ctx, matchID, pin, playerID, func(m *mutation, p *domain.MatchPlayer) error {
		if slot == nil {
			p.FieldSlotIndex = nil
			return nil
		}
		v := *slot
		p.FieldSlotIndex = &v
		return nil
	})
}

// ClaimMatchLead makes the coach behind pin the match lead. The read and the
// write happen in one transaction, so of two racing coaches only one wins.
// Claiming a match you already lead is a no-op.
func (s *MatchService) ClaimMatchLead(ctx context.Context, matchID, pin string) (*domain.Match, error) {
	return s.leadMutation(ctx, matchID, pin, func(match *domain.Match, coach *domain.Coach) error {
		if match.LeadCoachID != "" && match.LeadCoachID != coach.ID {
			return domain.ErrLeadAlreadyClaimed
		}
		match.LeadCoachID = coach.ID
		return nil
	})
}

// ReleaseMatchLead clears the match lead held by the coach behind pin
func (s *MatchService) ReleaseMatchLead(ctx context.Context, matchID, pin string) (*domain.Match, error) {
	return s.leadMutation(ctx, matchID, pin, func(match *domain.Match, coach *domain.Coach) error {
		if match.LeadCoachID != coach.ID {
			return domain.ErrLeadNotCurrentLead
		}
		match.LeadCoachID = ""
		return nil
	})
}

func (s *MatchService) leadMutation(ctx context.Context, matchID, pin string, fn func(match *domain.Match, coach *domain.Coach) error) (*domain.Match, error) {
	var result domain.Match
	err := s.store.Update(ctx, func(tx store.Tx) error {
		coach, err := s.gate.ResolveCoach(ctx, tx, pin)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrLeadUnknownPIN
			}
			return fmt.Errorf("resolving coach: %w", err)
		}
		match, err := tx.Matches().Get(ctx, matchID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrLeadMatchNotFound
			}
			return fmt.Errorf("loading match: %w", err)
		}
		if !coach.HasTeam(match.TeamID) {
			return domain.ErrLeadNoTeamAccess
		}
		if err := fn(match, coach); err != nil {
			return err
		}
		match.UpdatedAt = s.opts.now()
		if err := tx.Matches().Update(ctx, match); err != nil {
			return fmt.Errorf("updating match: %w", err)
		}
		result = *match
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("match lead changed", "match_id", result.ID, "lead_coach_id", result.LeadCoachID)
	s.afterCommit(ctx, result, nil)
	return &result, nil
}
