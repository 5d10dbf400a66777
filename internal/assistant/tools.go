package assistant

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/youth-scoreboard/internal/domain"
)

// Tool names
const (
	ToolGetState        = "get_state"
	ToolAddGoal         = "add_goal"
	ToolAddOpponentGoal = "add_opponent_goal"
	ToolSubstitute      = "substitute"
	ToolNextQuarter     = "next_quarter"
	ToolResumeHalftime  = "resume_halftime"
	ToolGetPlayingTime  = "get_playing_time"
	ToolGetSuggestions  = "get_suggestions"
	ToolUndoLast        = "undo_last"
	ToolCorrectScore    = "correct_score"
)

// Tool describes a callable tool to the model
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

func objectSchema(required []string, props map[string]any) map[string]any {
	schema := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

var (
	stringProp = map[string]any{"type": "string"}
	boolProp   = map[string]any{"type": "boolean"}
	intProp    = map[string]any{"type": "integer", "minimum": 0}
)

// Tools returns the declarations of every tool the executor accepts
func Tools() []Tool {
	return []Tool{
		{Name: ToolGetState, Description: "Current score, quarter, clock and who is on the field.", Parameters: objectSchema(nil, map[string]any{})},
		{Name: ToolAddGoal, Description: "Record a goal for our team.", Parameters: objectSchema([]string{"scorer"}, map[string]any{
			"scorer":   stringProp,
			"assist":   stringProp,
			"own_goal": boolProp,
		})},
		{Name: ToolAddOpponentGoal, Description: "Record a goal for the opponent.", Parameters: objectSchema(nil, map[string]any{})},
		{Name: ToolSubstitute, Description: "Take a player off and bring a bench player on.", Parameters: objectSchema([]string{"player_out", "player_in"}, map[string]any{
			"player_out": stringProp,
			"player_in":  stringProp,
		})},
		{Name: ToolNextQuarter, Description: "End the current quarter.", Parameters: objectSchema(nil, map[string]any{})},
		{Name: ToolResumeHalftime, Description: "Start the second half after halftime.", Parameters: objectSchema(nil, map[string]any{})},
		{Name: ToolGetPlayingTime, Description: "Minutes played per player, least first.", Parameters: objectSchema(nil, map[string]any{})},
		{Name: ToolGetSuggestions, Description: "Substitutions that even out playing time.", Parameters: objectSchema(nil, map[string]any{})},
		{Name: ToolUndoLast, Description: "Undo the last recorded action.", Parameters: objectSchema(nil, map[string]any{})},
		{Name: ToolCorrectScore, Description: "Set the score directly.", Parameters: objectSchema([]string{"home", "away"}, map[string]any{
			"home": intProp,
			"away": intProp,
		})},
	}
}

// Matches is the set of mutations the executor drives
type Matches interface {
	AddGoal(ctx context.Context, matchID, pin string, req domain.GoalRequest) (*domain.Match, error)
	Substitute(ctx context.Context, matchID, pin, playerOutID, playerInID string) (*domain.Match, error)
	NextQuarter(ctx context.Context, matchID, pin string) (*domain.Match, error)
	ResumeFromHalftime(ctx context.Context, matchID, pin string) (*domain.Match, error)
}

// Views is the set of read views the executor consults
type Views interface {
	CoachView(ctx context.Context, matchID, pin string) (*domain.CoachView, error)
	PlayingTime(ctx context.Context, matchID, pin string) ([]domain.PlayerTime, error)
	Suggestions(ctx context.Context, matchID, pin string) ([]domain.Suggestion, error)
}

// ToolCall is one tool invocation requested by the model
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// State is the compact match summary returned by get_state
type State struct {
	Status         domain.MatchStatus `json:"status"`
	Opponent       string             `json:"opponent"`
	IsHome         bool               `json:"is_home"`
	CurrentQuarter int                `json:"current_quarter"`
	QuarterCount   int                `json:"quarter_count"`
	HomeScore      int                `json:"home_score"`
	AwayScore      int                `json:"away_score"`
	ElapsedSeconds int64              `json:"elapsed_seconds"`
	Paused         bool               `json:"paused"`
	OnField        []string           `json:"on_field"`
	Bench          []string           `json:"bench"`
	Keeper         string             `json:"keeper,omitempty"`
}

// Score is returned by mutations that change the scoreboard or quarter
type Score struct {
	Status         domain.MatchStatus `json:"status"`
	CurrentQuarter int                `json:"current_quarter"`
	HomeScore      int                `json:"home_score"`
	AwayScore      int                `json:"away_score"`
}

func scoreOf(m *domain.Match) Score {
	return Score{Status: m.Status, CurrentQuarter: m.CurrentQuarter, HomeScore: m.HomeScore, AwayScore: m.AwayScore}
}

// SubstitutionResult names the players a substitution resolved to
type SubstitutionResult struct {
	PlayerOut string `json:"player_out"`
	PlayerIn  string `json:"player_in"`
}

// GoalResult names the players a goal resolved to
type GoalResult struct {
	Score
	Scorer string `json:"scorer,omitempty"`
	Assist string `json:"assist,omitempty"`
}

type goalArgs struct {
	Scorer  string `json:"scorer"`
	Assist  string `json:"assist"`
	OwnGoal bool   `json:"own_goal"`
}

type substituteArgs struct {
	PlayerOut string `json:"player_out"`
	PlayerIn  string `json:"player_in"`
}

// Executor runs tool calls against one match on behalf of one PIN holder
type Executor struct {
	matches Matches
	views   Views
}

// NewExecutor creates a new tool executor
func NewExecutor(matches Matches, views Views) *Executor {
	return &Executor{matches: matches, views: views}
}

// Execute runs a single tool call and returns its JSON-encodable result
func (e *Executor) Execute(ctx context.Context, matchID, pin string, call ToolCall) (any, error) {
	switch call.Name {
	case ToolGetState:
		view, err := e.views.CoachView(ctx, matchID, pin)
		if err != nil {
			return nil, err
		}
		return stateOf(view), nil

	case ToolAddGoal:
		var args goalArgs
		if err := decodeArgs(call.Arguments, &args); err != nil {
			return nil, err
		}
		return e.addGoal(ctx, matchID, pin, args)

	case ToolAddOpponentGoal:
		m, err := e.matches.AddGoal(ctx, matchID, pin, domain.GoalRequest{IsOpponentGoal: true})
		if err != nil {
			return nil, err
		}
		return scoreOf(m), nil

	case ToolSubstitute:
		var args substituteArgs
		if err := decodeArgs(call.Arguments, &args); err != nil {
			return nil, err
		}
		return e.substitute(ctx, matchID, pin, args)

	case ToolNextQuarter:
		m, err := e.matches.NextQuarter(ctx, matchID, pin)
		if err != nil {
			return nil, err
		}
		return scoreOf(m), nil

	case ToolResumeHalftime:
		m, err := e.matches.ResumeFromHalftime(ctx, matchID, pin)
		if err != nil {
			return nil, err
		}
		return scoreOf(m), nil

	case ToolGetPlayingTime:
		return e.views.PlayingTime(ctx, matchID, pin)

	case ToolGetSuggestions:
		return e.views.Suggestions(ctx, matchID, pin)

	case ToolUndoLast, ToolCorrectScore:
		return nil, domain.ErrUnsupported

	default:
		return nil, fmt.Errorf("unknown tool %q: %w", call.Name, domain.ErrInvalidRequest)
	}
}

func decodeArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decoding tool arguments: %w", domain.ErrInvalidRequest)
	}
	return nil
}

func (e *Executor) roster(ctx context.Context, matchID, pin string) (*Resolver, error) {
	players, err := e.views.PlayingTime(ctx, matchID, pin)
	if err != nil {
		return nil, err
	}
	return NewResolver(players), nil
}

func (e *Executor) addGoal(ctx context.Context, matchID, pin string, args goalArgs) (*GoalResult, error) {
	resolver, err := e.roster(ctx, matchID, pin)
	if err != nil {
		return nil, err
	}

	scorer, err := resolver.Resolve(args.Scorer, AnyPlayer)
	if err != nil {
		return nil, err
	}
	req := domain.GoalRequest{PlayerID: scorer.PlayerID, IsOwnGoal: args.OwnGoal}
	result := &GoalResult{Scorer: scorer.Name}

	if args.Assist != "" && !args.OwnGoal {
		assist, err := resolver.Resolve(args.Assist, AnyPlayer)
		if err != nil {
			return nil, err
		}
		req.AssistPlayerID = assist.PlayerID
		result.Assist = assist.Name
	}

	m, err := e.matches.AddGoal(ctx, matchID, pin, req)
	if err != nil {
		return nil, err
	}
	result.Score = scoreOf(m)
	return result, nil
}

func (e *Executor) substitute(ctx context.Context, matchID, pin string, args substituteArgs) (*SubstitutionResult, error) {
	resolver, err := e.roster(ctx, matchID, pin)
	if err != nil {
		return nil, err
	}

	out, err := resolver.Resolve(args.PlayerOut, OnFieldOnly)
	if err != nil {
		return nil, err
	}
	in, err := resolver.Resolve(args.PlayerIn, BenchOnly)
	if err != nil {
		return nil, err
	}

	if _, err := e.matches.Substitute(ctx, matchID, pin, out.PlayerID, in.PlayerID); err != nil {
		return nil, err
	}
	return &SubstitutionResult{PlayerOut: out.Name, PlayerIn: in.Name}, nil
}

func stateOf(view *domain.CoachView) State {
	m := view.Match
	state := State{
		Status:         m.Status,
		Opponent:       m.Opponent,
		IsHome:         m.IsHome,
		CurrentQuarter: m.CurrentQuarter,
		QuarterCount:   m.QuarterCount,
		HomeScore:      m.HomeScore,
		AwayScore:      m.AwayScore,
		ElapsedSeconds: view.Clock.ElapsedMs / 1000,
		Paused:         m.PausedAt != nil,
		OnField:        []string{},
		Bench:          []string{},
	}
	for _, p := range view.Players {
		switch {
		case p.Absent:
		case p.OnField:
			state.OnField = append(state.OnField, p.Name)
		default:
			state.Bench = append(state.Bench, p.Name)
		}
		if p.IsKeeper {
			state.Keeper = p.Name
		}
	}
	return state
}
