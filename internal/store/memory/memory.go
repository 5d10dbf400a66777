// Package memory is an in-process store.Store used by tests and local runs.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/youth-scoreboard/internal/domain"
	"github.com/youth-scoreboard/internal/store"
)

// Store keeps all collections in memory. Update works on a copy of the data
// and swaps it in only when the callback succeeds.
type Store struct {
	mu   sync.RWMutex
	data *dataset
}

type dataset struct {
	matches      map[string]domain.Match
	matchPlayers map[string]domain.MatchPlayer
	events       []domain.MatchEvent
	coaches      map[string]domain.Coach
	referees     map[string]domain.Referee
	players      map[string]domain.Player
	teams        map[string]domain.Team
}

// New creates an empty in-memory store
func New() *Store {
	return &Store{data: &dataset{
		matches:      make(map[string]domain.Match),
		matchPlayers: make(map[string]domain.MatchPlayer),
		coaches:      make(map[string]domain.Coach),
		referees:     make(map[string]domain.Referee),
		players:      make(map[string]domain.Player),
		teams:        make(map[string]domain.Team),
	}}
}

func (d *dataset) clone() *dataset {
	c := &dataset{
		matches:      make(map[string]domain.Match, len(d.matches)),
		matchPlayers: make(map[string]domain.MatchPlayer, len(d.matchPlayers)),
		events:       make([]domain.MatchEvent, len(d.events), len(d.events)+4),
		coaches:      make(map[string]domain.Coach, len(d.coaches)),
		referees:     make(map[string]domain.Referee, len(d.referees)),
		players:      make(map[string]domain.Player, len(d.players)),
		teams:        make(map[string]domain.Team, len(d.teams)),
	}
	for k, v := range d.matches {
		c.matches[k] = v
	}
	for k, v := range d.matchPlayers {
		c.matchPlayers[k] = v
	}
	copy(c.events, d.events)
	for k, v := range d.coaches {
		v.TeamIDs = append([]string(nil), v.TeamIDs...)
		c.coaches[k] = v
	}
	for k, v := range d.referees {
		c.referees[k] = v
	}
	for k, v := range d.players {
		c.players[k] = v
	}
	for k, v := range d.teams {
		c.teams[k] = v
	}
	return c
}

// Update implements store.Store
func (s *Store) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	if err := fn(&tx{d: work}); err != nil {
		return err
	}
	s.data = work
	return nil
}

// View implements store.Store
func (s *Store) View(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&tx{d: s.data, readOnly: true})
}

// Close implements store.Store
func (s *Store) Close() error {
	return nil
}

type tx struct {
	d        *dataset
	readOnly bool
}

func (t *tx) Matches() store.MatchRepository { return matchRepo{t} }
func (t *tx) MatchPlayers() store.MatchPlayerRepository { return matchPlayerRepo{t} }
func (t *tx) Events() store.EventRepository { return eventRepo{t} }
func (t *tx) Coaches() store.CoachRepository { return coachRepo{t} }
func (t *tx) Referees() store.RefereeRepository { return refereeRepo{t} }
func (t *tx) Players() store.PlayerRepository { return playerRepo{t} }
func (t *tx) Teams() store.TeamRepository { return teamRepo{t} }

func (t *tx) writable() error {
	if t.readOnly {
		return domain.ErrReadOnly
	}
	return nil
}

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.New().String()
}

// matches

type matchRepo struct{ t *tx }

func (r matchRepo) Insert(_ context.Context, m *domain.Match) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	for _, existing := range r.t.d.matches {
		if existing.PublicCode == m.PublicCode {
			return store.ErrDuplicateCode
		}
	}
	m.ID = newID(m.ID)
	r.t.d.matches[m.ID] = *m
	return nil
}

func (r matchRepo) Get(_ context.Context, id string) (*domain.Match, error) {
	m, ok := r.t.d.matches[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &m, nil
}

func (r matchRepo) GetByPublicCode(_ context.Context, code string) (*domain.Match, error) {
	code = domain.NormalizeCode(code)
	for _, m := range r.t.d.matches {
		if m.PublicCode == code {
			return &m, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r matchRepo) CodeExists(ctx context.Context, code string) (bool, error) {
	_, err := r.GetByPublicCode(ctx, code)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r matchRepo) Update(_ context.Context, m *domain.Match) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if _, ok := r.t.d.matches[m.ID]; !ok {
		return domain.ErrNotFound
	}
	r.t.d.matches[m.ID] = *m
	return nil
}

func (r matchRepo) ListByTeam(_ context.Context, teamID string, limit int) ([]domain.Match, error) {
	return r.list(func(m domain.Match) bool { return m.TeamID == teamID }, limit), nil
}

func (r matchRepo) ListByStatus(_ context.Context, status domain.MatchStatus, limit int) ([]domain.Match, error) {
	return r.list(func(m domain.Match) bool { return m.Status == status }, limit), nil
}

func (r matchRepo) list(keep func(domain.Match) bool, limit int) []domain.Match {
	var out []domain.Match
	for _, m := range r.t.d.matches {
		if keep(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// match players

type matchPlayerRepo struct{ t *tx }

func matchPlayerKey(matchID, playerID string) string {
	return matchID + "/" + playerID
}

func (r matchPlayerRepo) Insert(_ context.Context, p *domain.MatchPlayer) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	p.ID = newID(p.ID)
	r.t.d.matchPlayers[matchPlayerKey(p.MatchID, p.PlayerID)] = *p
	return nil
}

func (r matchPlayerRepo) Get(_ context.Context, matchID, playerID string) (*domain.MatchPlayer, error) {
	p, ok := r.t.d.matchPlayers[matchPlayerKey(matchID, playerID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (r matchPlayerRepo) ListByMatch(_ context.Context, matchID string) ([]domain.MatchPlayer, error) {
	var out []domain.MatchPlayer
	for _, p := range r.t.d.matchPlayers {
		if p.MatchID == matchID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].PlayerID < out[j].PlayerID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r matchPlayerRepo) Update(_ context.Context, p *domain.MatchPlayer) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	key := matchPlayerKey(p.MatchID, p.PlayerID)
	if _, ok := r.t.d.matchPlayers[key]; !ok {
		return domain.ErrNotFound
	}
	r.t.d.matchPlayers[key] = *p
	return nil
}

// events

type eventRepo struct{ t *tx }

func (r eventRepo) Append(_ context.Context, events ...*domain.MatchEvent) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	for _, ev := range events {
		ev.ID = newID(ev.ID)
		r.t.d.events = append(r.t.d.events, *ev)
	}
	return nil
}

func (r eventRepo) ListByMatch(_ context.Context, matchID string) ([]domain.MatchEvent, error) {
	var out []domain.MatchEvent
	for _, ev := range r.t.d.events {
		if ev.MatchID == matchID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (r eventRepo) ListByMatchAndType(_ context.Context, matchID string, eventType domain.EventType) ([]domain.MatchEvent, error) {
	var out []domain.MatchEvent
	for _, ev := range r.t.d.events {
		if ev.MatchID == matchID && ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out, nil
}

// coaches

type coachRepo struct{ t *tx }

func (r coachRepo) Insert(_ context.Context, c *domain.Coach) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	c.ID = newID(c.ID)
	stored := *c
	stored.TeamIDs = append([]string(nil), c.TeamIDs...)
	r.t.d.coaches[c.ID] = stored
	return nil
}

func (r coachRepo) Get(_ context.Context, id string) (*domain.Coach, error) {
	c, ok := r.t.d.coaches[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (r coachRepo) GetByPIN(_ context.Context, pin string) (*domain.Coach, error) {
	// Map order is random; pick the lowest id so "first match wins" is stable.
	var found *domain.Coach
	for _, c := range r.t.d.coaches {
		if c.PIN != pin {
			continue
		}
		if found == nil || c.ID < found.ID {
			found = &c
		}
	}
	if found == nil {
		return nil, domain.ErrNotFound
	}
	return found, nil
}

// referees

type refereeRepo struct{ t *tx }

func (r refereeRepo) Insert(_ context.Context, ref *domain.Referee) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	ref.ID = newID(ref.ID)
	r.t.d.referees[ref.ID] = *ref
	return nil
}

func (r refereeRepo) Get(_ context.Context, id string) (*domain.Referee, error) {
	ref, ok := r.t.d.referees[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &ref, nil
}

func (r refereeRepo) GetByPIN(_ context.Context, pin string) (*domain.Referee, error) {
	var found *domain.Referee
	for _, ref := range r.t.d.referees {
		if ref.PIN != pin {
			continue
		}
		if found == nil || ref.ID < found.ID {
			found = &ref
		}
	}
	if found == nil {
		return nil, domain.ErrNotFound
	}
	return found, nil
}

// players

type playerRepo struct{ t *tx }

func (r playerRepo) Insert(_ context.Context, p *domain.Player) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	p.ID = newID(p.ID)
	r.t.d.players[p.ID] = *p
	return nil
}

func (r playerRepo) Get(_ context.Context, id string) (*domain.Player, error) {
	p, ok := r.t.d.players[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (r playerRepo) ListByIDs(_ context.Context, ids []string) (map[string]domain.Player, error) {
	out := make(map[string]domain.Player, len(ids))
	for _, id := range ids {
		if p, ok := r.t.d.players[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

// teams

type teamRepo struct{ t *tx }

func (r teamRepo) Insert(_ context.Context, team *domain.Team) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	team.ID = newID(team.ID)
	r.t.d.teams[team.ID] = *team
	return nil
}

func (r teamRepo) Get(_ context.Context, id string) (*domain.Team, error) {
	team, ok := r.t.d.teams[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &team, nil
}
