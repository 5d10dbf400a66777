package domain

import "time"

// ClockState carries what a client needs to render the match clock
type ClockState struct {
	QuarterStartedAt   *time.Time `json:"quarter_started_at,omitempty"`
	PausedAt           *time.Time `json:"paused_at,omitempty"`
	AccumulatedPauseMs int64      `json:"accumulated_pause_ms"`
	ElapsedMs          int64      `json:"elapsed_ms"`
	ServerTime         time.Time  `json:"server_time"`
}

// TimelineEntry is an event enriched with player names
type TimelineEntry struct {
	Type              EventType `json:"type"`
	Quarter           int       `json:"quarter"`
	Timestamp         time.Time `json:"timestamp"`
	PlayerID          string    `json:"player_id,omitempty"`
	PlayerName        string    `json:"player_name,omitempty"`
	RelatedPlayerID   string    `json:"related_player_id,omitempty"`
	RelatedPlayerName string    `json:"related_player_name,omitempty"`
	IsOwnGoal         bool      `json:"is_own_goal,omitempty"`
	IsOpponentGoal    bool      `json:"is_opponent_goal,omitempty"`
}

// LineupEntry is the spectator-safe shape of a match player
type LineupEntry struct {
	PlayerID       string `json:"player_id"`
	Name           string `json:"name"`
	Number         int    `json:"number,omitempty"`
	OnField        bool   `json:"on_field"`
	IsKeeper       bool   `json:"is_keeper"`
	FieldSlotIndex *int   `json:"field_slot_index,omitempty"`
}

// PublicView is the spectator projection of a match. It holds no secrets.
type PublicView struct {
	PublicCode     string          `json:"public_code"`
	TeamName       string          `json:"team_name"`
	Opponent       string          `json:"opponent"`
	IsHome         bool            `json:"is_home"`
	ScheduledAt    *time.Time      `json:"scheduled_at,omitempty"`
	Status         MatchStatus     `json:"status"`
	CurrentQuarter int             `json:"current_quarter"`
	QuarterCount   int             `json:"quarter_count"`
	HomeScore      int             `json:"home_score"`
	AwayScore      int             `json:"away_score"`
	Clock          ClockState      `json:"clock"`
	ShowLineup     bool            `json:"show_lineup"`
	Lineup         []LineupEntry   `json:"lineup,omitempty"`
	Timeline       []TimelineEntry `json:"timeline"`
}

// PlayerTime is one roster row with live playing time
type PlayerTime struct {
	PlayerID       string `json:"player_id"`
	Name           string `json:"name"`
	Number         int    `json:"number,omitempty"`
	OnField        bool   `json:"on_field"`
	IsKeeper       bool   `json:"is_keeper"`
	Absent         bool   `json:"absent,omitempty"`
	FieldSlotIndex *int   `json:"field_slot_index,omitempty"`
	Minutes        int    `json:"minutes"`
	StintSeconds   int64  `json:"stint_seconds"`
}

// Suggestion proposes one substitution to even out playing time
type Suggestion struct {
	PlayerOutID   string `json:"player_out_id"`
	PlayerOutName string `json:"player_out_name"`
	PlayerInID    string `json:"player_in_id"`
	PlayerInName  string `json:"player_in_name"`
	MinutesGap    int    `json:"minutes_gap"`
	Reason        string `json:"reason"`
}

// CoachView is the full projection for the coach operating the match
type CoachView struct {
	Match         Match           `json:"match"`
	TeamName      string          `json:"team_name"`
	LeadCoachName string          `json:"lead_coach_name,omitempty"`
	RefereeName   string          `json:"referee_name,omitempty"`
	Clock         ClockState      `json:"clock"`
	Players       []PlayerTime    `json:"players"`
	Suggestions   []Suggestion    `json:"suggestions"`
	Timeline      []TimelineEntry `json:"timeline"`
}

// RefereeView is the projection for the referee controlling the clock
type RefereeView struct {
	MatchID        string          `json:"match_id"`
	PublicCode     string          `json:"public_code"`
	TeamName       string          `json:"team_name"`
	Opponent       string          `json:"opponent"`
	IsHome         bool            `json:"is_home"`
	Status         MatchStatus     `json:"status"`
	CurrentQuarter int             `json:"current_quarter"`
	QuarterCount   int             `json:"quarter_count"`
	HomeScore      int             `json:"home_score"`
	AwayScore      int             `json:"away_score"`
	Clock          ClockState      `json:"clock"`
	Timeline       []TimelineEntry `json:"timeline"`
}

// MatchSummary is a list row for a coach's dashboard
type MatchSummary struct {
	ID          string      `json:"id"`
	PublicCode  string      `json:"public_code"`
	TeamID      string      `json:"team_id"`
	Opponent    string      `json:"opponent"`
	IsHome      bool        `json:"is_home"`
	ScheduledAt *time.Time  `json:"scheduled_at,omitempty"`
	Status      MatchStatus `json:"status"`
	HomeScore   int         `json:"home_score"`
	AwayScore   int         `json:"away_score"`
	IsLead      bool        `json:"is_lead"`
}
