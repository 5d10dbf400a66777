package service

import (
	"context"
	"fmt"

	"github.com/youth-scoreboard/internal/domain"
)

// HandleCommand dispatches a command received from the message bus to the
// matching mutation. Commands carry their own PIN and go through the same
// authorization as HTTP calls.
func (s *MatchService) HandleCommand(ctx context.Context, cmd domain.Command) error {
	var err error
	switch cmd.Type {
	case domain.CommandStart:
		_, err = s.Start(ctx, cmd.MatchID, cmd.PIN)
	case domain.CommandNextQuarter:
		_, err = s.NextQuarter(ctx, cmd.MatchID, cmd.PIN)
	case domain.CommandResumeHalftime:
		_, err = s.ResumeFromHalftime(ctx, cmd.MatchID, cmd.PIN)
	case domain.CommandPause:
		_, err = s.PauseClock(ctx, cmd.MatchID, cmd.PIN)
	case domain.CommandResume:
		_, err = s.ResumeClock(ctx, cmd.MatchID, cmd.PIN)
	case domain.CommandGoal:
		_, err = s.AddGoal(ctx, cmd.MatchID, cmd.PIN, domain.GoalRequest{
			PlayerID:       cmd.PlayerID,
			AssistPlayerID: cmd.AssistPlayerID,
			IsOwnGoal:      cmd.IsOwnGoal,
		})
	case domain.CommandOpponentGoal:
		_, err = s.AddGoal(ctx, cmd.MatchID, cmd.PIN, domain.GoalRequest{IsOpponentGoal: true})
	case domain.CommandSubstitute:
		_, err = s.Substitute(ctx, cmd.MatchID, cmd.PIN, cmd.PlayerID, cmd.PlayerInID)
	case domain.CommandDecrementScore:
		_, err = s.DecrementScore(ctx, cmd.MatchID, cmd.PIN, cmd.Side)
	case domain.CommandCard:
		_, err = s.AddCard(ctx, cmd.MatchID, cmd.PIN, cmd.PlayerID, cmd.Card)
	default:
		return fmt.Errorf("unknown command type %q: %w", cmd.Type, domain.ErrInvalidRequest)
	}
	if err != nil {
		return fmt.Errorf("handling %s command: %w", cmd.Type, err)
	}
	return nil
}
