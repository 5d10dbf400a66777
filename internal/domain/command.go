package domain

// CommandType names a mutation that can arrive through the command topic
type CommandType string

const (
	CommandStart          CommandType = "start"
	CommandNextQuarter    CommandType = "next_quarter"
	CommandResumeHalftime CommandType = "resume_halftime"
	CommandPause          CommandType = "pause"
	CommandResume         CommandType = "resume"
	CommandGoal           CommandType = "goal"
	CommandOpponentGoal   CommandType = "opponent_goal"
	CommandSubstitute     CommandType = "substitute"
	CommandDecrementScore CommandType = "decrement_score"
	CommandCard           CommandType = "card"
)

// Command is a mutation request received from the message bus
type Command struct {
	Type           CommandType `json:"type"`
	MatchID        string      `json:"match_id"`
	PIN            string      `json:"pin"`
	PlayerID       string      `json:"player_id,omitempty"`
	PlayerInID     string      `json:"player_in_id,omitempty"`
	AssistPlayerID string      `json:"assist_player_id,omitempty"`
	IsOwnGoal      bool        `json:"is_own_goal,omitempty"`
	Side           Side        `json:"side,omitempty"`
	Card           CardType    `json:"card,omitempty"`
}
