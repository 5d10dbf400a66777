package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/youth-scoreboard/internal/domain"
)

// Message roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one turn of the conversation with the model
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// Model produces the next assistant turn. A reply without tool calls ends
// the exchange.
type Model interface {
	Next(ctx context.Context, messages []Message, tools []Tool) (Message, error)
}

// ErrTooManyRounds is returned when the model keeps calling tools past the
// configured round limit
var ErrTooManyRounds = errors.New("assistant did not finish within the round limit")

const systemPrompt = "You help a youth football coach run a live match. " +
	"Use the tools to read or change the match. Refer to players by name. " +
	"Reply briefly in the coach's language once the action is done."

// Runner drives a bounded tool-calling loop for one instruction
type Runner struct {
	model     Model
	executor  *Executor
	maxRounds int
	logger    *slog.Logger
}

// NewRunner creates a new runner
func NewRunner(model Model, executor *Executor, maxRounds int, logger *slog.Logger) *Runner {
	if maxRounds <= 0 {
		maxRounds = 1
	}
	return &Runner{
		model:     model,
		executor:  executor,
		maxRounds: maxRounds,
		logger:    logger,
	}
}

// Run sends the instruction to the model and executes the tools it asks for
// until it answers in plain text.
func (r *Runner) Run(ctx context.Context, matchID, pin, instruction string) (string, error) {
	messages := []Message{
		{Role: RoleSystem, Content: systemPrompt},
		{Role: RoleUser, Content: instruction},
	}
	tools := Tools()

	for round := 0; round < r.maxRounds; round++ {
		reply, err := r.model.Next(ctx, messages, tools)
		if err != nil {
			return "", fmt.Errorf("calling model: %w", err)
		}
		reply.Role = RoleAssistant
		messages = append(messages, reply)

		if len(reply.ToolCalls) == 0 {
			return reply.Content, nil
		}

		for _, call := range reply.ToolCalls {
			content, err := r.call(ctx, matchID, pin, call)
			if err != nil {
				return "", err
			}
			messages = append(messages, Message{Role: RoleTool, ToolCallID: call.ID, Content: content})
		}
	}

	r.logger.Warn("assistant round limit reached",
		"match_id", matchID,
		"rounds", r.maxRounds,
	)
	return "", ErrTooManyRounds
}

// call executes one tool and renders its outcome for the model. Rejections
// are reported back so the model can tell the coach; internal failures end
// the run.
func (r *Runner) call(ctx context.Context, matchID, pin string, call ToolCall) (string, error) {
	result, err := r.executor.Execute(ctx, matchID, pin, call)
	if err != nil {
		var resolveErr *ResolveError
		if !errors.As(err, &resolveErr) && domain.KindOf(err) == domain.KindInternal {
			return "", fmt.Errorf("running tool %s: %w", call.Name, err)
		}
		r.logger.Debug("tool rejected", "tool", call.Name, "error", err)
		return renderJSON(map[string]string{"error": err.Error()})
	}
	return renderJSON(result)
}

func renderJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding tool result: %w", err)
	}
	return string(data), nil
}
