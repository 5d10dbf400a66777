package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/youth-scoreboard/internal/access"
	"github.com/youth-scoreboard/internal/domain"
	"github.com/youth-scoreboard/internal/fairness"
	"github.com/youth-scoreboard/internal/store"
)

// ViewCache caches public views by public code
type ViewCache interface {
	// GetPublicView returns nil, nil on a miss.
	GetPublicView(ctx context.Context, code string) (*domain.PublicView, error)
	SetPublicView(ctx context.Context, view *domain.PublicView) error
	InvalidatePublicView(ctx context.Context, code string) error
}

// Broadcaster pushes fresh public views to subscribed spectators
type Broadcaster interface {
	BroadcastMatchUpdate(code string, view *domain.PublicView)
}

// ViewService builds the read projections of a match. It never writes to
// the store.
type ViewService struct {
	store             store.Store
	gate              *access.Gate
	engine            *fairness.Engine
	cache             ViewCache
	hub               Broadcaster
	logger            *slog.Logger
	opts              options
	coachMatchesLimit int
}

// NewViewService creates a new view service
func NewViewService(st store.Store, gate *access.Gate, engine *fairness.Engine, coachMatchesLimit int, logger *slog.Logger, opts ...Option) *ViewService {
	return &ViewService{
		store:             st,
		gate:              gate,
		engine:            engine,
		logger:            logger,
		opts:              buildOptions(opts),
		coachMatchesLimit: coachMatchesLimit,
	}
}

// SetCache sets the public view cache
func (v *ViewService) SetCache(c ViewCache) {
	v.cache = c
}

// SetHub sets the spectator broadcaster
func (v *ViewService) SetHub(h Broadcaster) {
	v.hub = h
}

// snapshot is everything the projections need, read in one transaction
type snapshot struct {
	match   domain.Match
	team    *domain.Team
	players []domain.MatchPlayer
	roster  map[string]domain.Player
	events  []domain.MatchEvent
}

func loadSnapshot(ctx context.Context, tx store.Tx, match *domain.Match) (*snapshot, error) {
	snap := &snapshot{match: *match}

	team, err := tx.Teams().Get(ctx, match.TeamID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("loading team: %w", err)
	}
	snap.team = team

	snap.players, err = tx.MatchPlayers().ListByMatch(ctx, match.ID)
	if err != nil {
		return nil, fmt.Errorf("listing match players: %w", err)
	}

	ids := make([]string, 0, len(snap.players))
	for _, p := range snap.players {
		ids = append(ids, p.PlayerID)
	}
	snap.events, err = tx.Events().ListByMatch(ctx, match.ID)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	for _, ev := range snap.events {
		for _, id := range []string{ev.PlayerID, ev.RelatedPlayerID} {
			if id != "" {
				ids = append(ids, id)
			}
		}
	}
	snap.roster, err = tx.Players().ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading players: %w", err)
	}
	return snap, nil
}

func (s *snapshot) teamName() string {
	if s.team == nil {
		return ""
	}
	return s.team.Name
}

func (s *snapshot) name(playerID string) string {
	return s.roster[playerID].Name
}

func clockState(m *domain.Match, now time.Time) domain.ClockState {
	c := domain.ClockState{
		QuarterStartedAt:   m.QuarterStartedAt,
		PausedAt:           m.PausedAt,
		AccumulatedPauseMs: m.AccumulatedPauseMs,
		ServerTime:         now,
	}
	if m.Status == domain.StatusLive {
		c.ElapsedMs = m.QuarterElapsed(now).Milliseconds()
	}
	return c
}

// refreshClock recomputes the time-dependent part of a cached view
func refreshClock(view *domain.PublicView, now time.Time) {
	m := domain.Match{
		Status:             view.Status,
		QuarterStartedAt:   view.Clock.QuarterStartedAt,
		PausedAt:           view.Clock.PausedAt,
		AccumulatedPauseMs: view.Clock.AccumulatedPauseMs,
	}
	view.Clock = clockState(&m, now)
}

func (s *snapshot) timeline() []domain.TimelineEntry {
	entries := make([]domain.TimelineEntry, 0, len(s.events))
	for _, ev := range s.events {
		entries = append(entries, domain.TimelineEntry{
			Type:              ev.Type,
			Quarter:           ev.Quarter,
			Timestamp:         ev.Timestamp,
			PlayerID:          ev.PlayerID,
			PlayerName:        s.name(ev.PlayerID),
			RelatedPlayerID:   ev.RelatedPlayerID,
			RelatedPlayerName: s.name(ev.RelatedPlayerID),
			IsOwnGoal:         ev.IsOwnGoal,
			IsOpponentGoal:    ev.IsOpponentGoal,
		})
	}
	return entries
}

func (s *snapshot) publicView(now time.Time) *domain.PublicView {
	m := &s.match
	view := &domain.PublicView{
		PublicCode:     m.PublicCode,
		TeamName:       s.teamName(),
		Opponent:       m.Opponent,
		IsHome:         m.IsHome,
		ScheduledAt:    m.ScheduledAt,
		Status:         m.Status,
		CurrentQuarter: m.CurrentQuarter,
		QuarterCount:   m.QuarterCount,
		HomeScore:      m.HomeScore,
		AwayScore:      m.AwayScore,
		Clock:          clockState(m, now),
		ShowLineup:     m.ShowLineup,
		Timeline:       s.timeline(),
	}
	if m.ShowLineup {
		for _, p := range s.players {
			if p.Absent {
				continue
			}
			player := s.roster[p.PlayerID]
			view.Lineup = append(view.Lineup, domain.LineupEntry{
				PlayerID:       p.PlayerID,
				Name:           player.Name,
				Number:         player.Number,
				OnField:        p.OnField,
				IsKeeper:       p.IsKeeper,
				FieldSlotIndex: p.FieldSlotIndex,
			})
		}
	}
	return view
}

// entries converts match players into fairness entries as of now. Bench wait
// counts from the player's last sub_out, or from kick-off if never subbed out.
func (s *snapshot) entries(now time.Time) []fairness.Entry {
	lastOut := make(map[string]time.Time)
	for _, ev := range s.events {
		if ev.Type == domain.EventSubOut && ev.PlayerID != "" {
			lastOut[ev.PlayerID] = ev.Timestamp
		}
	}

	entries := make([]fairness.Entry, 0, len(s.players))
	for i := range s.players {
		p := &s.players[i]
		e := fairness.Entry{
			PlayerID: p.PlayerID,
			Name:     s.name(p.PlayerID),
			Minutes:  p.LiveMinutes(now),
			OnField:  p.OnField,
			IsKeeper: p.IsKeeper,
			Absent:   p.Absent,
			Stint:    p.Stint(now),
		}
		if !p.OnField {
			since, ok := lastOut[p.PlayerID]
			if !ok && s.match.StartedAt != nil {
				since, ok = *s.match.StartedAt, true
			}
			if ok && now.After(since) {
				e.BenchWait = now.Sub(since)
			}
		}
		entries = append(entries, e)
	}
	return entries
}

func (s *snapshot) playingTime(now time.Time) []domain.PlayerTime {
	byID := make(map[string]*domain.MatchPlayer, len(s.players))
	for i := range s.players {
		byID[s.players[i].PlayerID] = &s.players[i]
	}

	ranked := fairness.RankByMinutes(s.entries(now))
	rows := make([]domain.PlayerTime, 0, len(ranked))
	for _, e := range ranked {
		p := byID[e.PlayerID]
		rows = append(rows, domain.PlayerTime{
			PlayerID:       e.PlayerID,
			Name:           e.Name,
			Number:         s.roster[e.PlayerID].Number,
			OnField:        e.OnField,
			IsKeeper:       e.IsKeeper,
			Absent:         e.Absent,
			FieldSlotIndex: p.FieldSlotIndex,
			Minutes:        e.WholeMinutes(),
			StintSeconds:   int64(e.Stint / time.Second),
		})
	}
	return rows
}

func (v *ViewService) suggestions(snap *snapshot, now time.Time) []domain.Suggestion {
	raw := v.engine.Suggest(snap.entries(now))
	out := make([]domain.Suggestion, 0, len(raw))
	for _, sg := range raw {
		out = append(out, domain.Suggestion{
			PlayerOutID:   sg.Out.PlayerID,
			PlayerOutName: sg.Out.Name,
			PlayerInID:    sg.In.PlayerID,
			PlayerInName:  sg.In.Name,
			MinutesGap:    int(math.Floor(sg.Gap)),
			Reason:        sg.Reason,
		})
	}
	return out
}

// buildPublic reads the public view of code in its own transaction
func (v *ViewService) buildPublic(ctx context.Context, code string) (*domain.PublicView, error) {
	code = domain.NormalizeCode(code)
	if !domain.ValidCode(code) {
		return nil, domain.ErrMatchNotFound
	}
	var view *domain.PublicView
	err := v.store.View(ctx, func(tx store.Tx) error {
		match, err := tx.Matches().GetByPublicCode(ctx, code)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrMatchNotFound
			}
			return fmt.Errorf("loading match: %w", err)
		}
		snap, err := loadSnapshot(ctx, tx, match)
		if err != nil {
			return err
		}
		view = snap.publicView(v.opts.now())
		return nil
	})
	return view, err
}

// PublicByCode returns the spectator view, served from cache when possible.
// An unknown or malformed code returns domain.ErrMatchNotFound.
func (v *ViewService) PublicByCode(ctx context.Context, code string) (*domain.PublicView, error) {
	code = domain.NormalizeCode(code)
	if !domain.ValidCode(code) {
		return nil, domain.ErrMatchNotFound
	}

	if v.cache != nil {
		cached, err := v.cache.GetPublicView(ctx, code)
		if err != nil {
			v.logger.Warn("public view cache read failed", "code", code, "error", err)
		} else if cached != nil {
			refreshClock(cached, v.opts.now())
			return cached, nil
		}
	}

	view, err := v.buildPublic(ctx, code)
	if err != nil {
		return nil, err
	}
	if v.cache != nil {
		if err := v.cache.SetPublicView(ctx, view); err != nil {
			v.logger.Warn("public view cache write failed", "code", code, "error", err)
		}
	}
	return view, nil
}

// Refresh rebuilds the public view, stores it in the cache and pushes it to
// the spectators of code.
func (v *ViewService) Refresh(ctx context.Context, code string) (*domain.PublicView, error) {
	view, err := v.buildPublic(ctx, code)
	if err != nil {
		return nil, err
	}
	if v.cache != nil {
		if err := v.cache.SetPublicView(ctx, view); err != nil {
			v.logger.Warn("public view cache write failed", "code", view.PublicCode, "error", err)
		}
	}
	if v.hub != nil {
		v.hub.BroadcastMatchUpdate(view.PublicCode, view)
	}
	return view, nil
}

// authorizedSnapshot authorizes pin and reads the match snapshot
func (v *ViewService) authorizedSnapshot(ctx context.Context, matchID, pin string, perm access.Permission, extra func(tx store.Tx, snap *snapshot) error) (*snapshot, error) {
	var snap *snapshot
	err := v.store.View(ctx, func(tx store.Tx) error {
		match, _, err := v.gate.AuthorizeMatch(ctx, tx, matchID, pin, perm)
		if err != nil {
			return err
		}
		snap, err = loadSnapshot(ctx, tx, match)
		if err != nil {
			return err
		}
		if extra != nil {
			return extra(tx, snap)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// CoachView returns the full operating view of a match
func (v *ViewService) CoachView(ctx context.Context, matchID, pin string) (*domain.CoachView, error) {
	var leadName, refereeName string
	snap, err := v.authorizedSnapshot(ctx, matchID, pin, access.PermCoach, func(tx store.Tx, snap *snapshot) error {
		if id := snap.match.LeadCoachID; id != "" {
			coach, err := tx.Coaches().Get(ctx, id)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("loading lead coach: %w", err)
			}
			if coach != nil {
				leadName = coach.Name
			}
		}
		if id := snap.match.RefereeID; id != "" {
			ref, err := tx.Referees().Get(ctx, id)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("loading referee: %w", err)
			}
			if ref != nil {
				refereeName = ref.Name
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	now := v.opts.now()
	return &domain.CoachView{
		Match:         snap.match,
		TeamName:      snap.teamName(),
		LeadCoachName: leadName,
		RefereeName:   refereeName,
		Clock:         clockState(&snap.match, now),
		Players:       snap.playingTime(now),
		Suggestions:   v.suggestions(snap, now),
		Timeline:      snap.timeline(),
	}, nil
}

// RefereeView returns the clock-control view. The assigned referee's PIN is
// accepted here.
func (v *ViewService) RefereeView(ctx context.Context, matchID, pin string) (*domain.RefereeView, error) {
	snap, err := v.authorizedSnapshot(ctx, matchID, pin, access.PermClock, nil)
	if err != nil {
		return nil, err
	}
	m := &snap.match
	return &domain.RefereeView{
		MatchID:        m.ID,
		PublicCode:     m.PublicCode,
		TeamName:       snap.teamName(),
		Opponent:       m.Opponent,
		IsHome:         m.IsHome,
		Status:         m.Status,
		CurrentQuarter: m.CurrentQuarter,
		QuarterCount:   m.QuarterCount,
		HomeScore:      m.HomeScore,
		AwayScore:      m.AwayScore,
		Clock:          clockState(m, v.opts.now()),
		Timeline:       snap.timeline(),
	}, nil
}

// PlayingTime returns every match player with live minutes, least played first.
func (v *ViewService) PlayingTime(ctx context.Context, matchID, pin string) ([]domain.PlayerTime, error) {
	snap, err := v.authorizedSnapshot(ctx, matchID, pin, access.PermCoach, nil)
	if err != nil {
		return nil, err
	}
	return snap.playingTime(v.opts.now()), nil
}

// Suggestions returns substitutions that would even out playing time
func (v *ViewService) Suggestions(ctx context.Context, matchID, pin string) ([]domain.Suggestion, error) {
	snap, err := v.authorizedSnapshot(ctx, matchID, pin, access.PermCoach, nil)
	if err != nil {
		return nil, err
	}
	return v.suggestions(snap, v.opts.now()), nil
}

// CoachMatches lists the matches of every team the coach behind pin has
// access to, newest first.
func (v *ViewService) CoachMatches(ctx context.Context, pin string) ([]domain.MatchSummary, error) {
	var summaries []domain.MatchSummary
	err := v.store.View(ctx, func(tx store.Tx) error {
		coach, err := v.gate.ResolveCoach(ctx, tx, pin)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrInvalidMatchOrPIN
			}
			return fmt.Errorf("resolving coach: %w", err)
		}

		var matches []domain.Match
		for _, teamID := range coach.TeamIDs {
			list, err := tx.Matches().ListByTeam(ctx, teamID, v.coachMatchesLimit)
			if err != nil {
				return fmt.Errorf("listing matches: %w", err)
			}
			matches = append(matches, list...)
		}
		sort.SliceStable(matches, func(i, j int) bool {
			return matches[i].CreatedAt.After(matches[j].CreatedAt)
		})
		if v.coachMatchesLimit > 0 && len(matches) > v.coachMatchesLimit {
			matches = matches[:v.coachMatchesLimit]
		}

		summaries = make([]domain.MatchSummary, 0, len(matches))
		for _, m := range matches {
			summaries = append(summaries, domain.MatchSummary{
				ID:          m.ID,
				PublicCode:  m.PublicCode,
				TeamID:      m.TeamID,
				Opponent:    m.Opponent,
				IsHome:      m.IsHome,
				ScheduledAt: m.ScheduledAt,
				Status:      m.Status,
				HomeScore:   m.HomeScore,
				AwayScore:   m.AwayScore,
				IsLead:      m.LeadCoachID == coach.ID,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

// ActiveCodes returns the public codes of matches that are live or at halftime
func (v *ViewService) ActiveCodes(ctx context.Context, limit int) ([]string, error) {
	var codes []string
	err := v.store.View(ctx, func(tx store.Tx) error {
		for _, status := range []domain.MatchStatus{domain.StatusLive, domain.StatusHalftime} {
			matches, err := tx.Matches().ListByStatus(ctx, status, limit)
			if err != nil {
				return fmt.Errorf("listing %s matches: %w", status, err)
			}
			for _, m := range matches {
				codes = append(codes, m.PublicCode)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(codes) > limit {
		codes = codes[:limit]
	}
	return codes, nil
}
