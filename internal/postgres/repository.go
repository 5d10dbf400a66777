package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/youth-scoreboard/internal/domain"
	"github.com/youth-scoreboard/internal/store"
)

const uniqueViolation = "23505"

type tx struct {
	q    pgx.Tx
	lock bool
}

func (t *tx) Matches() store.MatchRepository { return matchRepo{t} }
func (t *tx) MatchPlayers() store.MatchPlayerRepository { return matchPlayerRepo{t} }
func (t *tx) Events() store.EventRepository { return eventRepo{t} }
func (t *tx) Coaches() store.CoachRepository { return coachRepo{t} }
func (t *tx) Referees() store.RefereeRepository { return refereeRepo{t} }
func (t *tx) Players() store.PlayerRepository { return playerRepo{t} }
func (t *tx) Teams() store.TeamRepository { return teamRepo{t} }

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.New().String()
}

// notFound maps an empty result to domain.ErrNotFound
func notFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	return fmt.Errorf("getting %s: %w", what, err)
}

// matches

type matchRepo struct{ t *tx }

const matchColumns = `id, public_code, team_id, coach_pin, opponent, is_home, scheduled_at,
	status, current_quarter, quarter_count, started_at, finished_at, quarter_started_at,
	paused_at, accumulated_pause_ms, home_score, away_score, show_lineup, lead_coach_id,
	referee_id, created_at, updated_at`

func scanMatch(row pgx.Row) (*domain.Match, error) {
	var m domain.Match
	err := row.Scan(
		&m.ID,
		&m.PublicCode,
		&m.TeamID,
		&m.CoachPIN,
		&m.Opponent,
		&m.IsHome,
		&m.ScheduledAt,
		&m.Status,
		&m.CurrentQuarter,
		&m.QuarterCount,
		&m.StartedAt,
		&m.FinishedAt,
		&m.QuarterStartedAt,
		&m.PausedAt,
		&m.AccumulatedPauseMs,
		&m.HomeScore,
		&m.AwayScore,
		&m.ShowLineup,
		&m.LeadCoachID,
		&m.RefereeID,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r matchRepo) Insert(ctx context.Context, m *domain.Match) error {
	query := `INSERT INTO matches (` + matchColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`
	id := newID(m.ID)
	_, err := r.t.q.Exec(ctx, query,
		id,
		domain.NormalizeCode(m.PublicCode),
		m.TeamID,
		m.CoachPIN,
		m.Opponent,
		m.IsHome,
		m.ScheduledAt,
		string(m.Status),
		m.CurrentQuarter,
		m.QuarterCount,
		m.StartedAt,
		m.FinishedAt,
		m.QuarterStartedAt,
		m.PausedAt,
		m.AccumulatedPauseMs,
		m.HomeScore,
		m.AwayScore,
		m.ShowLineup,
		m.LeadCoachID,
		m.RefereeID,
		m.CreatedAt,
		m.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == "matches_public_code_key" {
			return store.ErrDuplicateCode
		}
		return fmt.Errorf("inserting match: %w", err)
	}
	m.ID = id
	return nil
}

func (r matchRepo) Get(ctx context.Context, id string) (*domain.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	if r.t.lock {
		query += ` FOR UPDATE`
	}
	m, err := scanMatch(r.t.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "match")
	}
	return m, nil
}

func (r matchRepo) GetByPublicCode(ctx context.Context, code string) (*domain.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE public_code = $1`
	m, err := scanMatch(r.t.q.QueryRow(ctx, query, domain.NormalizeCode(code)))
	if err != nil {
		return nil, notFound(err, "match by code")
	}
	return m, nil
}

func (r matchRepo) CodeExists(ctx context.Context, code string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM matches WHERE public_code = $1)`
	var exists bool
	err := r.t.q.QueryRow(ctx, query, domain.NormalizeCode(code)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking code existence: %w", err)
	}
	return exists, nil
}

func (r matchRepo) Update(ctx context.Context, m *domain.Match) error {
	query := `
		UPDATE matches SET
			opponent = $2, is_home = $3, scheduled_at = $4, status = $5,
			current_quarter = $6, quarter_count = $7, started_at = $8, finished_at = $9,
			quarter_started_at = $10, paused_at = $11, accumulated_pause_ms = $12,
			home_score = $13, away_score = $14, show_lineup = $15,
			lead_coach_id = $16, referee_id = $17, updated_at = $18
		WHERE id = $1
	`
	result, err := r.t.q.Exec(ctx, query,
		m.ID,
		m.Opponent,
		m.IsHome,
		m.ScheduledAt,
		string(m.Status),
		m.CurrentQuarter,
		m.QuarterCount,
		m.StartedAt,
		m.FinishedAt,
		m.QuarterStartedAt,
		m.PausedAt,
		m.AccumulatedPauseMs,
		m.HomeScore,
		m.AwayScore,
		m.ShowLineup,
		m.LeadCoachID,
		m.RefereeID,
		m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating match: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r matchRepo) ListByTeam(ctx context.Context, teamID string, limit int) ([]domain.Match, error) {
	return r.list(ctx, `team_id = $1`, teamID, limit)
}

func (r matchRepo) ListByStatus(ctx context.Context, status domain.MatchStatus, limit int) ([]domain.Match, error) {
	return r.list(ctx, `status = $1`, string(status), limit)
}

func (r matchRepo) list(ctx context.Context, where string, arg any, limit int) ([]domain.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE ` + where + ` ORDER BY created_at DESC, id DESC`
	args := []any{arg}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := r.t.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing matches: %w", err)
	}
	defer rows.Close()

	var matches []domain.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning match: %w", err)
		}
		matches = append(matches, *m)
	}
	return matches, rows.Err()
}

// match players

type matchPlayerRepo struct{ t *tx }

const matchPlayerColumns = `id, match_id, player_id, is_keeper, on_field, absent, field_slot_index,
	minutes_played, last_subbed_in_at, created_at, updated_at`

func scanMatchPlayer(row pgx.Row) (*domain.MatchPlayer, error) {
	var p domain.MatchPlayer
	err := row.Scan(
		&p.ID,
		&p.MatchID,
		&p.PlayerID,
		&p.IsKeeper,
		&p.OnField,
		&p.Absent,
		&p.FieldSlotIndex,
		&p.MinutesPlayed,
		&p.LastSubbedInAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r matchPlayerRepo) Insert(ctx context.Context, p *domain.MatchPlayer) error {
	query := `INSERT INTO match_players (` + matchPlayerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	id := newID(p.ID)
	_, err := r.t.q.Exec(ctx, query,
		id,
		p.MatchID,
		p.PlayerID,
		p.IsKeeper,
		p.OnField,
		p.Absent,
		p.FieldSlotIndex,
		p.MinutesPlayed,
		p.LastSubbedInAt,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting match player: %w", err)
	}
	p.ID = id
	return nil
}

func (r matchPlayerRepo) Get(ctx context.Context, matchID, playerID string) (*domain.MatchPlayer, error) {
	query := `SELECT ` + matchPlayerColumns + ` FROM match_players WHERE match_id = $1 AND player_id = $2`
	p, err := scanMatchPlayer(r.t.q.QueryRow(ctx, query, matchID, playerID))
	if err != nil {
		return nil, notFound(err, "match player")
	}
	return p, nil
}

func (r matchPlayerRepo) ListByMatch(ctx context.Context, matchID string) ([]domain.MatchPlayer, error) {
	query := `SELECT ` + matchPlayerColumns + ` FROM match_players WHERE match_id = $1 ORDER BY created_at, player_id`
	rows, err := r.t.q.Query(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("listing match players: %w", err)
	}
	defer rows.Close()

	var players []domain.MatchPlayer
	for rows.Next() {
		p, err := scanMatchPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning match player: %w", err)
		}
		players = append(players, *p)
	}
	return players, rows.Err()
}

func (r matchPlayerRepo) Update(ctx context.Context, p *domain.MatchPlayer) error {
	query := `
		UPDATE match_players SET
			is_keeper = $3, on_field = $4, absent = $5, field_slot_index = $6,
			minutes_played = $7, last_subbed_in_at = $8, updated_at = $9
		WHERE match_id = $1 AND player_id = $2
	`
	result, err := r.t.q.Exec(ctx, query,
		p.MatchID,
		p.PlayerID,
		p.IsKeeper,
		p.OnField,
		p.Absent,
		p.FieldSlotIndex,
		p.MinutesPlayed,
		p.LastSubbedInAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating match player: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// events

type eventRepo struct{ t *tx }

const eventColumns = `id, match_id, type, player_id, related_player_id, quarter,
	is_own_goal, is_opponent_goal, occurred_at, created_at`

// Append queues the events as one batch. The serial seq column keeps their
// order.
func (r eventRepo) Append(ctx context.Context, events ...*domain.MatchEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `INSERT INTO match_events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	ids := make([]string, len(events))
	for i, ev := range events {
		ids[i] = newID(ev.ID)
		batch.Queue(query,
			ids[i],
			ev.MatchID,
			string(ev.Type),
			ev.PlayerID,
			ev.RelatedPlayerID,
			ev.Quarter,
			ev.IsOwnGoal,
			ev.IsOpponentGoal,
			ev.Timestamp,
			ev.CreatedAt,
		)
	}

	br := r.t.q.SendBatch(ctx, batch)
	defer br.Close()

	for range events {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("appending events: %w", err)
		}
	}
	for i, ev := range events {
		ev.ID = ids[i]
	}
	return nil
}

func (r eventRepo) ListByMatch(ctx context.Context, matchID string) ([]domain.MatchEvent, error) {
	return r.list(ctx, `SELECT `+eventColumns+` FROM match_events WHERE match_id = $1 ORDER BY seq`, matchID)
}

func (r eventRepo) ListByMatchAndType(ctx context.Context, matchID string, eventType domain.EventType) ([]domain.MatchEvent, error) {
	return r.list(ctx, `SELECT `+eventColumns+` FROM match_events WHERE match_id = $1 AND type = $2 ORDER BY seq`, matchID, string(eventType))
}

func (r eventRepo) list(ctx context.Context, query string, args ...any) ([]domain.MatchEvent, error) {
	rows, err := r.t.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	var events []domain.MatchEvent
	for rows.Next() {
		var ev domain.MatchEvent
		err := rows.Scan(
			&ev.ID,
			&ev.MatchID,
			&ev.Type,
			&ev.PlayerID,
			&ev.RelatedPlayerID,
			&ev.Quarter,
			&ev.IsOwnGoal,
			&ev.IsOpponentGoal,
			&ev.Timestamp,
			&ev.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// coaches

type coachRepo struct{ t *tx }

func (r coachRepo) Insert(ctx context.Context, c *domain.Coach) error {
	teamIDs := c.TeamIDs
	if teamIDs == nil {
		teamIDs = []string{}
	}
	id := newID(c.ID)
	query := `INSERT INTO coaches (id, name, pin, team_ids) VALUES ($1, $2, $3, $4)`
	if _, err := r.t.q.Exec(ctx, query, id, c.Name, c.PIN, teamIDs); err != nil {
		return fmt.Errorf("inserting coach: %w", err)
	}
	c.ID = id
	return nil
}

func (r coachRepo) Get(ctx context.Context, id string) (*domain.Coach, error) {
	return r.get(ctx, `SELECT id, name, pin, team_ids FROM coaches WHERE id = $1`, id)
}

func (r coachRepo) GetByPIN(ctx context.Context, pin string) (*domain.Coach, error) {
	return r.get(ctx, `SELECT id, name, pin, team_ids FROM coaches WHERE pin = $1 ORDER BY id LIMIT 1`, pin)
}

func (r coachRepo) get(ctx context.Context, query, arg string) (*domain.Coach, error) {
	var c domain.Coach
	err := r.t.q.QueryRow(ctx, query, arg).Scan(&c.ID, &c.Name, &c.PIN, &c.TeamIDs)
	if err != nil {
		return nil, notFound(err, "coach")
	}
	return &c, nil
}

// referees

type refereeRepo struct{ t *tx }

func (r refereeRepo) Insert(ctx context.Context, ref *domain.Referee) error {
	id := newID(ref.ID)
	query := `INSERT INTO referees (id, name, pin) VALUES ($1, $2, $3)`
	if _, err := r.t.q.Exec(ctx, query, id, ref.Name, ref.PIN); err != nil {
		return fmt.Errorf("inserting referee: %w", err)
	}
	ref.ID = id
	return nil
}

func (r refereeRepo) Get(ctx context.Context, id string) (*domain.Referee, error) {
	return r.get(ctx, `SELECT id, name, pin FROM referees WHERE id = $1`, id)
}

func (r refereeRepo) GetByPIN(ctx context.Context, pin string) (*domain.Referee, error) {
	return r.get(ctx, `SELECT id, name, pin FROM referees WHERE pin = $1 ORDER BY id LIMIT 1`, pin)
}

func (r refereeRepo) get(ctx context.Context, query, arg string) (*domain.Referee, error) {
	var ref domain.Referee
	if err := r.t.q.QueryRow(ctx, query, arg).Scan(&ref.ID, &ref.Name, &ref.PIN); err != nil {
		return nil, notFound(err, "referee")
	}
	return &ref, nil
}

// players

type playerRepo struct{ t *tx }

func (r playerRepo) Insert(ctx context.Context, p *domain.Player) error {
	id := newID(p.ID)
	query := `INSERT INTO players (id, team_id, name, number) VALUES ($1, $2, $3, $4)`
	if _, err := r.t.q.Exec(ctx, query, id, p.TeamID, p.Name, p.Number); err != nil {
		return fmt.Errorf("inserting player: %w", err)
	}
	p.ID = id
	return nil
}

func (r playerRepo) Get(ctx context.Context, id string) (*domain.Player, error) {
	var p domain.Player
	query := `SELECT id, team_id, name, number FROM players WHERE id = $1`
	if err := r.t.q.QueryRow(ctx, query, id).Scan(&p.ID, &p.TeamID, &p.Name, &p.Number); err != nil {
		return nil, notFound(err, "player")
	}
	return &p, nil
}

func (r playerRepo) ListByIDs(ctx context.Context, ids []string) (map[string]domain.Player, error) {
	out := make(map[string]domain.Player, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query := `SELECT id, team_id, name, number FROM players WHERE id = ANY($1)`
	rows, err := r.t.q.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("listing players: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.Player
		if err := rows.Scan(&p.ID, &p.TeamID, &p.Name, &p.Number); err != nil {
			return nil, fmt.Errorf("scanning player: %w", err)
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

// teams

type teamRepo struct{ t *tx }

func (r teamRepo) Insert(ctx context.Context, team *domain.Team) error {
	id := newID(team.ID)
	query := `INSERT INTO teams (id, name, club_name) VALUES ($1, $2, $3)`
	if _, err := r.t.q.Exec(ctx, query, id, team.Name, team.ClubName); err != nil {
		return fmt.Errorf("inserting team: %w", err)
	}
	team.ID = id
	return nil
}

func (r teamRepo) Get(ctx context.Context, id string) (*domain.Team, error) {
	var team domain.Team
	query := `SELECT id, name, club_name FROM teams WHERE id = $1`
	if err := r.t.q.QueryRow(ctx, query, id).Scan(&team.ID, &team.Name, &team.ClubName); err != nil {
		return nil, notFound(err, "team")
	}
	return &team, nil
}
