// Package sqlite implements store.Store on an embedded SQLite database
// through gorm, for single-club deployments without a database server.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	moderncSqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/youth-scoreboard/internal/domain"
	"github.com/youth-scoreboard/internal/store"

	_ "modernc.org/sqlite"
)

// Store keeps the match tracker in one SQLite file. SQLite allows a single
// writer, so the pool holds one connection and transactions serialize.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open opens or creates the database at path and migrates the schema
func Open(path string, log *slog.Logger) (*Store, error) {
	db, err := gorm.Open(moderncSqlite.New(moderncSqlite.Config{
		DSN:        path,
		DriverName: "sqlite",
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	// Ensure SQLite enforces foreign keys
	if err := db.Exec("PRAGMA foreign_keys = ON;").Error; err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if err := db.AutoMigrate(allModels()...); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	log.Info("sqlite store opened", "path", path)
	return &Store{db: db, logger: log}, nil
}

// Close closes the database
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks that the database answers
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Update implements store.Store
func (s *Store) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&tx{db: db})
	})
}

// View implements store.Store. Writes through the view fail with
// domain.ErrReadOnly.
func (s *Store) View(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&tx{db: db, readOnly: true})
	})
}

type tx struct {
	db       *gorm.DB
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

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return fmt.Errorf("getting %s: %w", what, err)
}

// matches

type matchRepo struct{ t *tx }

func (r matchRepo) Insert(_ context.Context, m *domain.Match) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	row := toMatchModel(m)
	row.ID = newID(row.ID)
	if err := r.t.db.Create(&row).Error; err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: matches.public_code") {
			return store.ErrDuplicateCode
		}
		return fmt.Errorf("inserting match: %w", err)
	}
	m.ID = row.ID
	return nil
}

func (r matchRepo) Get(_ context.Context, id string) (*domain.Match, error) {
	var row matchModel
	if err := r.t.db.Where("id = ?", id).Take(&row).Error; err != nil {
		return nil, notFound(err, "match")
	}
	m := row.toDomain()
	return &m, nil
}

func (r matchRepo) GetByPublicCode(_ context.Context, code string) (*domain.Match, error) {
	var row matchModel
	if err := r.t.db.Where("public_code = ?", domain.NormalizeCode(code)).Take(&row).Error; err != nil {
		return nil, notFound(err, "match by code")
	}
	m := row.toDomain()
	return &m, nil
}

func (r matchRepo) CodeExists(_ context.Context, code string) (bool, error) {
	var count int64
	err := r.t.db.Model(&matchModel{}).Where("public_code = ?", domain.NormalizeCode(code)).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("checking code existence: %w", err)
	}
	return count > 0, nil
}

func (r matchRepo) Update(_ context.Context, m *domain.Match) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	row := toMatchModel(m)
	result := r.t.db.Model(&matchModel{}).Where("id = ?", m.ID).Select("*").Omit("id", "created_at").Updates(&row)
	if result.Error != nil {
		return fmt.Errorf("updating match: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r matchRepo) ListByTeam(_ context.Context, teamID string, limit int) ([]domain.Match, error) {
	return r.list(r.t.db.Where("team_id = ?", teamID), limit)
}

func (r matchRepo) ListByStatus(_ context.Context, status domain.MatchStatus, limit int) ([]domain.Match, error) {
	return r.list(r.t.db.Where("status = ?", string(status)), limit)
}

func (r matchRepo) list(q *gorm.DB, limit int) ([]domain.Match, error) {
	q = q.Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []matchModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing matches: %w", err)
	}
	out := make([]domain.Match, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// match players

type matchPlayerRepo struct{ t *tx }

func (r matchPlayerRepo) Insert(_ context.Context, p *domain.MatchPlayer) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	row := toMatchPlayerModel(p)
	row.ID = newID(row.ID)
	if err := r.t.db.Create(&row).Error; err != nil {
		return fmt.Errorf("inserting match player: %w", err)
	}
	p.ID = row.ID
	return nil
}

func (r matchPlayerRepo) Get(_ context.Context, matchID, playerID string) (*domain.MatchPlayer, error) {
	var row matchPlayerModel
	if err := r.t.db.Where("match_id = ? AND player_id = ?", matchID, playerID).Take(&row).Error; err != nil {
		return nil, notFound(err, "match player")
	}
	p := row.toDomain()
	return &p, nil
}

func (r matchPlayerRepo) ListByMatch(_ context.Context, matchID string) ([]domain.MatchPlayer, error) {
	var rows []matchPlayerModel
	err := r.t.db.Where("match_id = ?", matchID).Order("created_at").Order("player_id").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("listing match players: %w", err)
	}
	out := make([]domain.MatchPlayer, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r matchPlayerRepo) Update(_ context.Context, p *domain.MatchPlayer) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	row := toMatchPlayerModel(p)
	result := r.t.db.Model(&matchPlayerModel{}).
		Where("match_id = ? AND player_id = ?", p.MatchID, p.PlayerID).
		Select("*").Omit("id", "match_id", "player_id", "created_at").
		Updates(&row)
	if result.Error != nil {
		return fmt.Errorf("updating match player: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// events

type eventRepo struct{ t *tx }

// Append inserts the batch in one statement. The autoincrement seq column
// keeps insertion order.
func (r eventRepo) Append(_ context.Context, events ...*domain.MatchEvent) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}
	rows := make([]eventModel, len(events))
	for i, ev := range events {
		rows[i] = toEventModel(ev)
		rows[i].ID = newID(rows[i].ID)
	}
	if err := r.t.db.Create(&rows).Error; err != nil {
		return fmt.Errorf("appending events: %w", err)
	}
	for i, ev := range events {
		ev.ID = rows[i].ID
	}
	return nil
}

func (r eventRepo) ListByMatch(_ context.Context, matchID string) ([]domain.MatchEvent, error) {
	return r.list(r.t.db.Where("match_id = ?", matchID))
}

func (r eventRepo) ListByMatchAndType(_ context.Context, matchID string, eventType domain.EventType) ([]domain.MatchEvent, error) {
	return r.list(r.t.db.Where("match_id = ? AND type = ?", matchID, string(eventType)))
}

func (r eventRepo) list(q *gorm.DB) ([]domain.MatchEvent, error) {
	var rows []eventModel
	if err := q.Order("seq").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	out := make([]domain.MatchEvent, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// coaches

type coachRepo struct{ t *tx }

func (r coachRepo) Insert(_ context.Context, c *domain.Coach) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	row := coachModel{ID: newID(c.ID), Name: c.Name, PIN: c.PIN, TeamIDs: c.TeamIDs}
	if row.TeamIDs == nil {
		row.TeamIDs = []string{}
	}
	if err := r.t.db.Create(&row).Error; err != nil {
		return fmt.Errorf("inserting coach: %w", err)
	}
	c.ID = row.ID
	return nil
}

func (r coachRepo) Get(_ context.Context, id string) (*domain.Coach, error) {
	return r.get(r.t.db.Where("id = ?", id))
}

func (r coachRepo) GetByPIN(_ context.Context, pin string) (*domain.Coach, error) {
	return r.get(r.t.db.Where("pin = ?", pin).Order("id"))
}

func (r coachRepo) get(q *gorm.DB) (*domain.Coach, error) {
	var row coachModel
	if err := q.Take(&row).Error; err != nil {
		return nil, notFound(err, "coach")
	}
	return &domain.Coach{ID: row.ID, Name: row.Name, PIN: row.PIN, TeamIDs: row.TeamIDs}, nil
}

// referees

type refereeRepo struct{ t *tx }

func (r refereeRepo) Insert(_ context.Context, ref *domain.Referee) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	row := refereeModel{ID: newID(ref.ID), Name: ref.Name, PIN: ref.PIN}
	if err := r.t.db.Create(&row).Error; err != nil {
		return fmt.Errorf("inserting referee: %w", err)
	}
	ref.ID = row.ID
	return nil
}

func (r refereeRepo) Get(_ context.Context, id string) (*domain.Referee, error) {
	return r.get(r.t.db.Where("id = ?", id))
}

func (r refereeRepo) GetByPIN(_ context.Context, pin string) (*domain.Referee, error) {
	return r.get(r.t.db.Where("pin = ?", pin).Order("id"))
}

func (r refereeRepo) get(q *gorm.DB) (*domain.Referee, error) {
	var row refereeModel
	if err := q.Take(&row).Error; err != nil {
		return nil, notFound(err, "referee")
	}
	return &domain.Referee{ID: row.ID, Name: row.Name, PIN: row.PIN}, nil
}

// players

type playerRepo struct{ t *tx }

func (r playerRepo) Insert(_ context.Context, p *domain.Player) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	row := playerModel{ID: newID(p.ID), TeamID: p.TeamID, Name: p.Name, Number: p.Number}
	if err := r.t.db.Create(&row).Error; err != nil {
		return fmt.Errorf("inserting player: %w", err)
	}
	p.ID = row.ID
	return nil
}

func (r playerRepo) Get(_ context.Context, id string) (*domain.Player, error) {
	var row playerModel
	if err := r.t.db.Where("id = ?", id).Take(&row).Error; err != nil {
		return nil, notFound(err, "player")
	}
	return &domain.Player{ID: row.ID, TeamID: row.TeamID, Name: row.Name, Number: row.Number}, nil
}

func (r playerRepo) ListByIDs(_ context.Context, ids []string) (map[string]domain.Player, error) {
	out := make(map[string]domain.Player, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []playerModel
	if err := r.t.db.Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing players: %w", err)
	}
	for _, row := range rows {
		out[row.ID] = domain.Player{ID: row.ID, TeamID: row.TeamID, Name: row.Name, Number: row.Number}
	}
	return out, nil
}

// teams

type teamRepo struct{ t *tx }

func (r teamRepo) Insert(_ context.Context, team *domain.Team) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	row := teamModel{ID: newID(team.ID), Name: team.Name, ClubName: team.ClubName}
	if err := r.t.db.Create(&row).Error; err != nil {
		return fmt.Errorf("inserting team: %w", err)
	}
	team.ID = row.ID
	return nil
}

func (r teamRepo) Get(_ context.Context, id string) (*domain.Team, error) {
	var row teamModel
	if err := r.t.db.Where("id = ?", id).Take(&row).Error; err != nil {
		return nil, notFound(err, "team")
	}
	return &domain.Team{ID: row.ID, Name: row.Name, ClubName: row.ClubName}, nil
}
