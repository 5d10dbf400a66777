package domain

import "time"

// EventType enumerates the entries of the match event log
type EventType string

const (
	EventGoal         EventType = "goal"
	EventAssist       EventType = "assist"
	EventSubIn        EventType = "sub_in"
	EventSubOut       EventType = "sub_out"
	EventQuarterStart EventType = "quarter_start"
	EventQuarterEnd   EventType = "quarter_end"
	EventYellowCard   EventType = "yellow_card"
	EventRedCard      EventType = "red_card"
)

// Valid reports whether t is a known event type
func (t EventType) Valid() bool {
	switch t {
	case EventGoal, EventAssist, EventSubIn, EventSubOut,
		EventQuarterStart, EventQuarterEnd, EventYellowCard, EventRedCard:
		return true
	}
	return false
}

// MatchEvent is an immutable entry of the match event log
type MatchEvent struct {
	ID              string    `json:"id"`
	MatchID         string    `json:"match_id"`
	Type            EventType `json:"type"`
	PlayerID        string    `json:"player_id,omitempty"`
	RelatedPlayerID string    `json:"related_player_id,omitempty"`
	Quarter         int       `json:"quarter"`
	IsOwnGoal       bool      `json:"is_own_goal,omitempty"`
	IsOpponentGoal  bool      `json:"is_opponent_goal,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
	CreatedAt       time.Time `json:"created_at"`
}

// CreateMatchRequest represents a request to create a new match
type CreateMatchRequest struct {
	TeamID       string     `json:"team_id"`
	Opponent     string     `json:"opponent"`
	IsHome       bool       `json:"is_home"`
	CoachPIN     string     `json:"-"`
	QuarterCount int        `json:"quarter_count,omitempty"`
	ScheduledAt  *time.Time `json:"scheduled_at,omitempty"`
	PlayerIDs    []string   `json:"player_ids"`
}

// CreateMatchResult is returned after a match was created
type CreateMatchResult struct {
	MatchID    string `json:"match_id"`
	PublicCode string `json:"public_code"`
}

// GoalRequest describes a goal to record
type GoalRequest struct {
	PlayerID       string `json:"player_id,omitempty"`
	AssistPlayerID string `json:"assist_player_id,omitempty"`
	IsOwnGoal      bool   `json:"is_own_goal,omitempty"`
	IsOpponentGoal bool   `json:"is_opponent_goal,omitempty"`
}

// CardType is either a yellow or a red card
type CardType string

const (
	CardYellow CardType = "yellow"
	CardRed    CardType = "red"
)

// EventType maps the card to its log entry type
func (c CardType) EventType() (EventType, bool) {
	switch c {
	case CardYellow:
		return EventYellowCard, true
	case CardRed:
		return EventRedCard, true
	}
	return "", false
}
