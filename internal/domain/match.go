package domain

import (
	"math"
	"time"
)

// MatchStatus represents the lifecycle stage of a match
type MatchStatus string

const (
	StatusScheduled MatchStatus = "scheduled"
	StatusLineup    MatchStatus = "lineup"
	StatusLive      MatchStatus = "live"
	StatusHalftime  MatchStatus = "halftime"
	StatusFinished  MatchStatus = "finished"
)

// Valid reports whether s is a known status
func (s MatchStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusLineup, StatusLive, StatusHalftime, StatusFinished:
		return true
	}
	return false
}

// Side identifies one half of the scoreboard
type Side string

const (
	SideHome Side = "home"
	SideAway Side = "away"
)

// Supported quarter layouts
const (
	QuarterCountHalves   = 2
	QuarterCountQuarters = 4
)

// Match represents one played fixture
type Match struct {
	ID         string `json:"id"`
	PublicCode string `json:"public_code"`
	TeamID     string `json:"team_id"`
	// CoachPIN is copied from the creating coach and never leaves the server.
	CoachPIN    string     `json:"-"`
	Opponent    string     `json:"opponent"`
	IsHome      bool       `json:"is_home"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`

	Status             MatchStatus `json:"status"`
	CurrentQuarter     int         `json:"current_quarter"`
	QuarterCount       int         `json:"quarter_count"`
	StartedAt          *time.Time  `json:"started_at,omitempty"`
	FinishedAt         *time.Time  `json:"finished_at,omitempty"`
	QuarterStartedAt   *time.Time  `json:"quarter_started_at,omitempty"`
	PausedAt           *time.Time  `json:"paused_at,omitempty"`
	AccumulatedPauseMs int64       `json:"accumulated_pause_ms"`

	HomeScore  int  `json:"home_score"`
	AwayScore  int  `json:"away_score"`
	ShowLineup bool `json:"show_lineup"`

	LeadCoachID string `json:"lead_coach_id,omitempty"`
	RefereeID   string `json:"referee_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsPaused reports whether the match clock is currently paused
func (m *Match) IsPaused() bool {
	return m.PausedAt != nil
}

// ClockRunning reports whether playing time is accruing right now
func (m *Match) ClockRunning() bool {
	return m.Status == StatusLive && m.PausedAt == nil && m.QuarterStartedAt != nil
}

// QuarterElapsed returns the effective playing time of the current quarter.
func (m *Match) QuarterElapsed(now time.Time) time.Duration {
	if m.QuarterStartedAt == nil {
		return 0
	}
	end := now
	if m.PausedAt != nil {
		end = *m.PausedAt
	}
	elapsed := end.Sub(*m.QuarterStartedAt) - time.Duration(m.AccumulatedPauseMs)*time.Millisecond
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// OwnSide returns the scoreboard side the tracked team plays as
func (m *Match) OwnSide() Side {
	if m.IsHome {
		return SideHome
	}
	return SideAway
}

// OpponentSide returns the scoreboard side of the opponent
func (m *Match) OpponentSide() Side {
	if m.IsHome {
		return SideAway
	}
	return SideHome
}

// Increment adds one goal to the given side
func (m *Match) Increment(side Side) {
	if side == SideHome {
		m.HomeScore++
		return
	}
	m.AwayScore++
}

// Decrement removes one goal from the given side, never going below zero.
func (m *Match) Decrement(side Side) {
	if side == SideHome {
		if m.HomeScore > 0 {
			m.HomeScore--
		}
		return
	}
	if m.AwayScore > 0 {
		m.AwayScore--
	}
}

// MatchPlayer is one player's participation state within one match
type MatchPlayer struct {
	ID             string     `json:"id"`
	MatchID        string     `json:"match_id"`
	PlayerID       string     `json:"player_id"`
	IsKeeper       bool       `json:"is_keeper"`
	OnField        bool       `json:"on_field"`
	Absent         bool       `json:"absent,omitempty"`
	FieldSlotIndex *int       `json:"field_slot_index,omitempty"`
	MinutesPlayed  float64    `json:"minutes_played"`
	LastSubbedInAt *time.Time `json:"last_subbed_in_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Stint returns how long the current counted on-field stint has lasted
func (p *MatchPlayer) Stint(now time.Time) time.Duration {
	if !p.OnField || p.LastSubbedInAt == nil {
		return 0
	}
	d := now.Sub(*p.LastSubbedInAt)
	if d < 0 {
		return 0
	}
	return d
}

// LiveMinutes returns the fractional minutes played as of now
func (p *MatchPlayer) LiveMinutes(now time.Time) float64 {
	return p.MinutesPlayed + p.Stint(now).Minutes()
}

// WholeMinutes rounds live minutes down so a player is never over-credited
func (p *MatchPlayer) WholeMinutes(now time.Time) int {
	return int(math.Floor(p.LiveMinutes(now)))
}

// CreditStint folds the running stint into MinutesPlayed and stops counting.
func (p *MatchPlayer) CreditStint(now time.Time) {
	p.MinutesPlayed += p.Stint(now).Minutes()
	p.LastSubbedInAt = nil
}

// StartStint begins counting time for an on-field player
func (p *MatchPlayer) StartStint(now time.Time) {
	if !p.OnField {
		return
	}
	t := now
	p.LastSubbedInAt = &t
}

// Coach holds a PIN and the teams it may act for
type Coach struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	PIN     string   `json:"-"`
	TeamIDs []string `json:"team_ids"`
}

// HasTeam reports whether the coach has access to the team
func (c *Coach) HasTeam(teamID string) bool {
	for _, id := range c.TeamIDs {
		if id == teamID {
			return true
		}
	}
	return false
}

// Referee can control the clock of matches it is assigned to
type Referee struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	PIN  string `json:"-"`
}

// Player is a team-scoped roster member
type Player struct {
	ID     string `json:"id"`
	TeamID string `json:"team_id"`
	Name   string `json:"name"`
	Number int    `json:"number,omitempty"`
}

// Team is the club side a match is tracked for
type Team struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ClubName string `json:"club_name,omitempty"`
}
