package sqlite

import (
	"time"

	"github.com/youth-scoreboard/internal/domain"
)

type teamModel struct {
	ID       string `gorm:"primaryKey;size:64"`
	Name     string
	ClubName string
}

func (teamModel) TableName() string { return "teams" }

type playerModel struct {
	ID     string `gorm:"primaryKey;size:64"`
	TeamID string `gorm:"size:64;index"`
	Name   string
	Number int
}

func (playerModel) TableName() string { return "players" }

type coachModel struct {
	ID      string   `gorm:"primaryKey;size:64"`
	Name    string   `gorm:"size:255"`
	PIN     string   `gorm:"column:pin;size:32;index"`
	TeamIDs []string `gorm:"type:text;serializer:json"`
}

func (coachModel) TableName() string { return "coaches" }

type refereeModel struct {
	ID   string `gorm:"primaryKey;size:64"`
	Name string
	PIN  string `gorm:"column:pin;size:32;index"`
}

func (refereeModel) TableName() string { return "referees" }

type matchModel struct {
	ID                 string `gorm:"primaryKey;size:64"`
	PublicCode         string `gorm:"size:6;uniqueIndex"`
	TeamID             string `gorm:"size:64;index:idx_matches_team,priority:1"`
	CoachPIN           string `gorm:"column:coach_pin;size:32"`
	Opponent           string
	IsHome             bool
	ScheduledAt        *time.Time
	Status             string `gorm:"size:20;index:idx_matches_status,priority:1"`
	CurrentQuarter     int
	QuarterCount       int
	StartedAt          *time.Time
	FinishedAt         *time.Time
	QuarterStartedAt   *time.Time
	PausedAt           *time.Time
	AccumulatedPauseMs int64
	HomeScore          int
	AwayScore          int
	ShowLineup         bool
	LeadCoachID        string    `gorm:"size:64"`
	RefereeID          string    `gorm:"size:64"`
	CreatedAt          time.Time `gorm:"autoCreateTime:false;index:idx_matches_team,priority:2;index:idx_matches_status,priority:2"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime:false"`
}

func (matchModel) TableName() string { return "matches" }

type matchPlayerModel struct {
	ID             string `gorm:"primaryKey;size:64"`
	MatchID        string `gorm:"size:64;uniqueIndex:idx_match_players_pair,priority:1"`
	PlayerID       string `gorm:"size:64;uniqueIndex:idx_match_players_pair,priority:2"`
	IsKeeper       bool
	OnField        bool
	Absent         bool
	FieldSlotIndex *int
	MinutesPlayed  float64
	LastSubbedInAt *time.Time
	CreatedAt      time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime:false"`
}

func (matchPlayerModel) TableName() string { return "match_players" }

type eventModel struct {
	Seq             uint   `gorm:"primaryKey;autoIncrement"`
	ID              string `gorm:"size:64;uniqueIndex"`
	MatchID         string `gorm:"size:64;index:idx_match_events_match_type,priority:1"`
	Type            string `gorm:"size:20;index:idx_match_events_match_type,priority:2"`
	PlayerID        string `gorm:"size:64"`
	RelatedPlayerID string `gorm:"size:64"`
	Quarter         int
	IsOwnGoal       bool
	IsOpponentGoal  bool
	OccurredAt      time.Time
	CreatedAt       time.Time `gorm:"autoCreateTime:false"`
}

func (eventModel) TableName() string { return "match_events" }

func allModels() []any {
	return []any{
		&teamModel{},
		&playerModel{},
		&coachModel{},
		&refereeModel{},
		&matchModel{},
		&matchPlayerModel{},
		&eventModel{},
	}
}

func toMatchModel(m *domain.Match) matchModel {
	return matchModel{
		ID:                 m.ID,
		PublicCode:         domain.NormalizeCode(m.PublicCode),
		TeamID:             m.TeamID,
		CoachPIN:           m.CoachPIN,
		Opponent:           m.Opponent,
		IsHome:             m.IsHome,
		ScheduledAt:        m.ScheduledAt,
		Status:             string(m.Status),
		CurrentQuarter:     m.CurrentQuarter,
		QuarterCount:       m.QuarterCount,
		StartedAt:          m.StartedAt,
		FinishedAt:         m.FinishedAt,
		QuarterStartedAt:   m.QuarterStartedAt,
		PausedAt:           m.PausedAt,
		AccumulatedPauseMs: m.AccumulatedPauseMs,
		HomeScore:          m.HomeScore,
		AwayScore:          m.AwayScore,
		ShowLineup:         m.ShowLineup,
		LeadCoachID:        m.LeadCoachID,
		RefereeID:          m.RefereeID,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

func (r matchModel) toDomain() domain.Match {
	return domain.Match{
		ID:                 r.ID,
		PublicCode:         r.PublicCode,
		TeamID:             r.TeamID,
		CoachPIN:           r.CoachPIN,
		Opponent:           r.Opponent,
		IsHome:             r.IsHome,
		ScheduledAt:        r.ScheduledAt,
		Status:             domain.MatchStatus(r.Status),
		CurrentQuarter:     r.CurrentQuarter,
		QuarterCount:       r.QuarterCount,
		StartedAt:          r.StartedAt,
		FinishedAt:         r.FinishedAt,
		QuarterStartedAt:   r.QuarterStartedAt,
		PausedAt:           r.PausedAt,
		AccumulatedPauseMs: r.AccumulatedPauseMs,
		HomeScore:          r.HomeScore,
		AwayScore:          r.AwayScore,
		ShowLineup:         r.ShowLineup,
		LeadCoachID:        r.LeadCoachID,
		RefereeID:          r.RefereeID,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

func toMatchPlayerModel(p *domain.MatchPlayer) matchPlayerModel {
	return matchPlayerModel{
		ID:             p.ID,
		MatchID:        p.MatchID,
		PlayerID:       p.PlayerID,
		IsKeeper:       p.IsKeeper,
		OnField:        p.OnField,
		Absent:         p.Absent,
		FieldSlotIndex: p.FieldSlotIndex,
		MinutesPlayed:  p.MinutesPlayed,
		LastSubbedInAt: p.LastSubbedInAt,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func (r matchPlayerModel) toDomain() domain.MatchPlayer {
	return domain.MatchPlayer{
		ID:             r.ID,
		MatchID:        r.MatchID,
		PlayerID:       r.PlayerID,
		IsKeeper:       r.IsKeeper,
		OnField:        r.OnField,
		Absent:         r.Absent,
		FieldSlotIndex: r.FieldSlotIndex,
		MinutesPlayed:  r.MinutesPlayed,
		LastSubbedInAt: r.LastSubbedInAt,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func toEventModel(ev *domain.MatchEvent) eventModel {
	return eventModel{
		ID:              ev.ID,
		MatchID:         ev.MatchID,
		Type:            string(ev.Type),
		PlayerID:        ev.PlayerID,
		RelatedPlayerID: ev.RelatedPlayerID,
		Quarter:         ev.Quarter,
		IsOwnGoal:       ev.IsOwnGoal,
		IsOpponentGoal:  ev.IsOpponentGoal,
		OccurredAt:      ev.Timestamp,
		CreatedAt:       ev.CreatedAt,
	}
}

func (r eventModel) toDomain() domain.MatchEvent {
	return domain.MatchEvent{
		ID:              r.ID,
		MatchID:         r.MatchID,
		Type:            domain.EventType(r.Type),
		PlayerID:        r.PlayerID,
		RelatedPlayerID: r.RelatedPlayerID,
		Quarter:         r.Quarter,
		IsOwnGoal:       r.IsOwnGoal,
		IsOpponentGoal:  r.IsOpponentGoal,
		Timestamp:       r.OccurredAt,
		CreatedAt:       r.CreatedAt,
	}
}
