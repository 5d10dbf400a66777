package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/youth-scoreboard/internal/access"
	"github.com/youth-scoreboard/internal/config"
	"github.com/youth-scoreboard/internal/domain"
	"github.com/youth-scoreboard/internal/store"
)

// EventPublisher forwards committed match events to downstream consumers
type EventPublisher interface {
	PublishMatchEvents(ctx context.Context, match domain.Match, events []domain.MatchEvent) error
}

// MatchService owns the match lifecycle state machine. Each exported
// mutation is a single store transaction: the match is read fresh, the
// preconditions are checked, and state changes plus event appends are
// committed together or not at all.
type MatchService struct {
	store     store.Store
	gate      *access.Gate
	views     *ViewService
	publisher EventPublisher
	config    *config.MatchConfig
	logger    *slog.Logger
	opts      options
	rngMu     sync.Mutex
}

// NewMatchService creates a new match service
func NewMatchService(
	st store.Store,
	gate *access.Gate,
	views *ViewService,
	cfg *config.MatchConfig,
	logger *slog.Logger,
	opts ...Option,
) *MatchService {
	return &MatchService{
		store:  st,
		gate:   gate,
		views:  views,
		config: cfg,
		logger: logger,
		opts:   buildOptions(opts),
	}
}

// SetPublisher sets the downstream event publisher
func (s *MatchService) SetPublisher(p EventPublisher) {
	s.publisher = p
}

// mutation carries the state of one transactional operation on a match
type mutation struct {
	ctx      context.Context
	tx       store.Tx
	match    *domain.Match
	identity access.Identity
	now      time.Time
	events   []*domain.MatchEvent
}

// event stages an event for the current quarter
func (m *mutation) event(t domain.EventType) *domain.MatchEvent {
	ev := &domain.MatchEvent{
		MatchID:   m.match.ID,
		Type:      t,
		Quarter:   m.match.CurrentQuarter,
		Timestamp: m.now,
		CreatedAt: m.now,
	}
	m.events = append(m.events, ev)
	return ev
}

func (m *mutation) players() ([]domain.MatchPlayer, error) {
	players, err := m.tx.MatchPlayers().ListByMatch(m.ctx, m.match.ID)
	if err != nil {
		return nil, fmt.Errorf("listing match players: %w", err)
	}
	return players, nil
}

// player returns the match player or nil when it is not part of the match
func (m *mutation) player(playerID string) (*domain.MatchPlayer, error) {
	if playerID == "" {
		return nil, nil
	}
	p, err := m.tx.MatchPlayers().Get(m.ctx, m.match.ID, playerID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading match player: %w", err)
	}
	return p, nil
}

func (m *mutation) requirePlayer(playerID string) (*domain.MatchPlayer, error) {
	p, err := m.player(playerID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrPlayerNotFound
	}
	return p, nil
}

func (m *mutation) savePlayer(p *domain.MatchPlayer) error {
	p.UpdatedAt = m.now
	if err := m.tx.MatchPlayers().Update(m.ctx, p); err != nil {
		return fmt.Errorf("updating match player: %w", err)
	}
	return nil
}

// eachOnField applies fn to every on-field player and saves it
func (m *mutation) eachOnField(fn func(p *domain.MatchPlayer)) error {
	players, err := m.players()
	if err != nil {
		return err
	}
	for i := range players {
		p := &players[i]
		if !p.OnField {
			continue
		}
		fn(p)
		if err := m.savePlayer(p); err != nil {
			return err
		}
	}
	return nil
}

// stopClock credits every running stint
func (m *mutation) stopClock() error {
	return m.eachOnField(func(p *domain.MatchPlayer) { p.CreditStint(m.now) })
}

// startQuarterClock resets the quarter clock and starts counting stints
func (m *mutation) startQuarterClock() error {
	t := m.now
	m.match.QuarterStartedAt = &t
	m.match.PausedAt = nil
	m.match.AccumulatedPauseMs = 0
	m.event(domain.EventQuarterStart)
	return m.eachOnField(func(p *domain.MatchPlayer) { p.StartStint(m.now) })
}

// mutate authorizes pin against the match and runs fn in one transaction.
func (s *MatchService) mutate(ctx context.Context, matchID, pin string, perm access.Permission, fn func(m *mutation) error) (*domain.Match, error) {
	var (
		result    domain.Match
		committed []domain.MatchEvent
	)
	err := s.store.Update(ctx, func(tx store.Tx) error {
		match, identity, err := s.gate.AuthorizeMatch(ctx, tx, matchID, pin, perm)
		if err != nil {
			return err
		}
		m := &mutation{ctx: ctx, tx: tx, match: match, identity: identity, now: s.opts.now()}
		if err := fn(m); err != nil {
			return err
		}

		match.UpdatedAt = m.now
		if err := tx.Matches().Update(ctx, match); err != nil {
			return fmt.Errorf("updating match: %w", err)
		}
		if len(m.events) > 0 {
			if err := tx.Events().Append(ctx, m.events...); err != nil {
				return fmt.Errorf("appending events: %w", err)
			}
		}

		result = *match
		committed = make([]domain.MatchEvent, len(m.events))
		for i, ev := range m.events {
			committed[i] = *ev
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, result, committed)
	return &result, nil
}

// afterCommit fans committed changes out. Failures here never undo the mutation.
func (s *MatchService) afterCommit(ctx context.Context, match domain.Match, events []domain.MatchEvent) {
	if s.publisher != nil && len(events) > 0 {
		if err := s.publisher.PublishMatchEvents(ctx, match, events); err != nil {
			s.logger.Warn("failed to publish match events",
				"match_id", match.ID,
				"events", len(events),
				"error", err,
			)
		}
	}
	if s.views != nil {
		if _, err := s.views.Refresh(ctx, match.PublicCode); err != nil {
			s.logger.Warn("failed to refresh public view", "match_id", match.ID, "error", err)
		}
	}
}

func (s *MatchService) newCode() string {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return domain.GenerateCode(s.opts.rng)
}

// Create inserts a scheduled match bound to the creating coach's PIN,
// with one bench row per player.
func (s *MatchService) Create(ctx context.Context, req domain.CreateMatchRequest) (*domain.CreateMatchResult, error) {
	req.Opponent = strings.TrimSpace(req.Opponent)
	if req.TeamID == "" || req.Opponent == "" {
		return nil, domain.ErrInvalidRequest
	}
	quarterCount := req.QuarterCount
	if quarterCount == 0 {
		quarterCount = s.config.DefaultQuarterCount
	}
	if quarterCount != domain.QuarterCountHalves && quarterCount != domain.QuarterCountQuarters {
		return nil, domain.ErrInvalidQuarterCount
	}

	playerIDs := make([]string, 0, len(req.PlayerIDs))
	seen := make(map[string]bool, len(req.PlayerIDs))
	for _, id := range req.PlayerIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		playerIDs = append(playerIDs, id)
	}

	var result domain.CreateMatchResult
	create := func(tx store.Tx) error {
		coach, err := s.gate.ResolveCoach(ctx, tx, req.CoachPIN)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrInvalidMatchOrPIN
			}
			return fmt.Errorf("resolving coach: %w", err)
		}
		if !coach.HasTeam(req.TeamID) {
			return domain.ErrInvalidMatchOrPIN
		}
		if _, err := tx.Teams().Get(ctx, req.TeamID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrTeamNotFound
			}
			return fmt.Errorf("loading team: %w", err)
		}

		known, err := tx.Players().ListByIDs(ctx, playerIDs)
		if err != nil {
			return fmt.Errorf("loading players: %w", err)
		}
		for _, id := range playerIDs {
			if _, ok := known[id]; !ok {
				return domain.ErrPlayerNotFound
			}
		}

		code, err := s.uniqueCode(ctx, tx)
		if err != nil {
			return err
		}

		now := s.opts.now()
		match := &domain.Match{
			PublicCode:     code,
			TeamID:         req.TeamID,
			CoachPIN:       coach.PIN,
			Opponent:       req.Opponent,
			IsHome:         req.IsHome,
			ScheduledAt:    req.ScheduledAt,
			Status:         domain.StatusScheduled,
			CurrentQuarter: 1,
			QuarterCount:   quarterCount,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := tx.Matches().Insert(ctx, match); err != nil {
			return fmt.Errorf("inserting match: %w", err)
		}
		for _, id := range playerIDs {
			mp := &domain.MatchPlayer{
				MatchID:   match.ID,
				PlayerID:  id,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := tx.MatchPlayers().Insert(ctx, mp); err != nil {
				return fmt.Errorf("inserting match player: %w", err)
			}
		}

		result = domain.CreateMatchResult{MatchID: match.ID, PublicCode: code}
		return nil
	}

	// A concurrent create can take the drawn code between the existence
	// check and the insert; the unique index rejects it and we draw again.
	var err error
	for attempt := 0; attempt <= createRetries; attempt++ {
		err = s.store.Update(ctx, create)
		if !errors.Is(err, store.ErrDuplicateCode) {
			break
		}
		s.logger.Debug("public code taken concurrently, retrying", "attempt", attempt+1)
	}
	if err != nil {
		if errors.Is(err, store.ErrDuplicateCode) {
			return nil, domain.ErrCodeSpaceExhausted
		}
		return nil, err
	}
	return &result, nil
}

// createRetries bounds the reruns of Create after a unique-code collision
const createRetries = 1

func (s *MatchService) uniqueCode(ctx context.Context, tx store.Tx) (string, error) {
	attempts := s.config.CodeAttempts
	if attempts <= 0 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		code := s.newCode()
		exists, err := tx.Matches().CodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("checking public code: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", domain.ErrCodeSpaceExhausted
}

// OpenLineup moves a scheduled match into lineup preparation
func (s *MatchService) OpenLineup(ctx context.Context, matchID, pin string) (*domain.Match, error) {
	return s.mutate(ctx, matchID, pin, access.PermCoach, func(m *mutation) error {
		if m.match.Status != domain.StatusScheduled {
			return domain.ErrNotScheduled
		}
		m.match.Status = domain.StatusLineup
		return nil
	})
}

// Start kicks off quarter one
func (s *MatchService) Start(ctx context.Context, matchID, pin string) (*domain.Match, error) {
	return s.mutate(ctx, matchID, pin, access.PermClock, func(m *mutation) error {
		if m.match.Status != domain.StatusScheduled && m.match.Status != domain.StatusLineup {
			return domain.ErrAlreadyStarted
		}
		t := m.now
		m.match.Status = domain.StatusLive
		m.match.CurrentQuarter = 1
		m.match.StartedAt = &t
		return m.startQuarterClock()
	})
}

// NextQuarter ends the current quarter and either finishes the match, goes
// to halftime, or starts the next quarter.
func (s *MatchService) NextQuarter(ctx context.Context, matchID, pin string) (*domain.Match, error) {
	return s.mutate(ctx, matchID, pin, access.PermClock, func(m *mutation) error {
		if m.match.Status != domain.StatusLive {
			return domain.ErrNotLive
		}
		if err := m.stopClock(); err != nil {
			return err
		}
		m.event(domain.EventQuarterEnd)

		next := m.match.CurrentQuarter + 1
		switch {
		case next > m.match.QuarterCount:
			t := m.now
			m.match.Status = domain.StatusFinished
			m.match.FinishedAt = &t
			m.match.PausedAt = nil
			return nil
		case m.match.QuarterCount == domain.QuarterCountQuarters && next == 3:
			m.match.Status = domain.StatusHalftime
			m.match.CurrentQuarter = next
			m.match.QuarterStartedAt = nil
			m.match.PausedAt = nil
			m.match.AccumulatedPauseMs = 0
			return nil
		default:
			m.match.CurrentQuarter = next
			return m.startQuarterClock()
		}
	})
}

// ResumeFromHalftime starts the quarter that halftime was waiting for
func (s *MatchService) ResumeFromHalftime(ctx context.Context, matchID, pin string) (*domain.Match, error) {
	return s.mutate(ctx, matchID, pin, access.PermClock, func(m *mutation) error {
		if m.match.Status != domain.StatusHalftime {
			return domain.ErrNotHalftime
		}
		m.match.Status = domain.StatusLive
		return m.startQuarterClock()
	})
}

// PauseClock stops the quarter clock
func (s *MatchService) PauseClock(ctx context.Context, matchID, pin string) (*domain.Match, error) {
	return s.mutate(ctx, matchID, pin, access.PermClock, func(m *mutation) error {
		if m.match.Status != domain.StatusLive {
			return domain.ErrNotLive
		}
		if m.match.IsPaused() {
			return domain.ErrClockPaused
		}
		t := m.now
		m.match.PausedAt = &t
		return m.stopClock()
	})
}

// ResumeClock restarts a paused quarter clock
func (s *MatchService) ResumeClock(ctx context.Context, matchID, pin string) (*domain.Match, error) {
	return s.mutate(ctx, matchID, pin, access.PermClock, func(m *mutation) error {
		if m.match.Status != domain.StatusLive {
			return domain.ErrNotLive
		}
		if !m.match.IsPaused() {
			return domain.ErrClockNotPaused
		}
		if paused := m.now.Sub(*m.match.PausedAt); paused > 0 {
			m.match.AccumulatedPauseMs += paused.Milliseconds()
		}
		m.match.PausedAt = nil
		return m.eachOnField(func(p *domain.MatchPlayer) { p.StartStint(m.now) })
	})
}

// AddGoal updates the scoreboard and logs the goal, plus a paired assist
// for a regular goal that has one.
func (s *MatchService) AddGoal(ctx context.Context, matchID, pin string, req domain.GoalRequest) (*domain.Match, error) {
	return s.mutate(ctx, matchID, pin, access.PermCoach, func(m *mutation) error {
		if req.IsOpponentGoal {
			m.match.Increment(m.match.OpponentSide())
			goal := m.event(domain.EventGoal)
			goal.IsOpponentGoal = true
			return nil
		}

		if _, err := m.requirePlayerIfSet(req.PlayerID); err != nil {
			return err
		}

		if req.IsOwnGoal && s.config.OwnGoalCreditsOpponent {
			m.match.Increment(m.match.OpponentSide())
		} else {
			m.match.Increment(m.match.OwnSide())
		}

		goal := m.event(domain.EventGoal)
		goal.PlayerID = req.PlayerID
		goal.IsOwnGoal = req.IsOwnGoal

		if req.IsOwnGoal || req.AssistPlayerID == "" || req.AssistPlayerID == req.PlayerID {
			return nil
		}
		if _, err := m.requirePlayer(req.AssistPlayerID); err != nil {
			return err
		}
		goal.RelatedPlayerID = req.AssistPlayerID
		assist := m.event(domain.EventAssist)
		assist.PlayerID = req.AssistPlayerID
		assist.RelatedPlayerID = req.PlayerID
		return nil
	})
}

func (m *mutation) requirePlayerIfSet(playerID string) (*domain.MatchPlayer, error) {
	if playerID == "" {
		return nil, nil
	}
	return m.requirePlayer(playerID)
}

// DecrementScore removes one goal from a side. It is a no-op at zero.
func (s *MatchService) DecrementScore(ctx context.Context, matchID, pin string, side domain.Side) (*domain.Match, error) {
	if side != domain.SideHome && side != domain.SideAway {
		return nil, domain.ErrInvalidSide
	}
	return s.mutate(ctx, matchID, pin, access.PermCoach, func(m *mutation) error {
		m.match.Decrement(side)
		return nil
	})
}

// AddCard logs a yellow or red card for a player
func (s *MatchService) AddCard(ctx context.Context, matchID, pin, playerID string, card domain.CardType) (*domain.Match, error) {
	eventType, ok := card.EventType()
	if !ok {
		return nil, domain.ErrInvalidCard
	}
	return s.mutate(ctx, matchID, pin, access.PermCoach, func(m *mutation) error {
		if _, err := m.requirePlayer(playerID); err != nil {
			return err
		}
		m.event(eventType).PlayerID = playerID
		return nil
	})
}

// ToggleShowLineup flips whether spectators see the roster
func (s *MatchService) ToggleShowLineup(ctx context.Context, matchID, pin string) (*domain.Match, error) {
	return s.mutate(ctx, matchID, pin, access.PermCoach, func(m *mutation) error {
		m.match.ShowLineup = !m.match.ShowLineup
		return nil
	})
}

// AssignReferee binds a referee to the match, or clears it for an empty id
func (s *MatchService) AssignReferee(ctx context.Context, matchID, pin, refereeID string) (*domain.Match, error) {
	return s.mutate(ctx, matchID, pin, access.PermCoach, func(m *mutation) error {
		if refereeID != "" {
			if _, err := m.tx.Referees().Get(m.ctx, refereeID); err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return domain.ErrRefereeNotFound
				}
				return fmt.Errorf("loading referee: %w", err)
			}
		}
		m.match.RefereeID = refereeID
		return nil
	})
}
