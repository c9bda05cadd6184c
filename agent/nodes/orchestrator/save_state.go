package orchestratornode

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/clinic-admin-console/agent/contract"
	statex "github.com/tanpawarit/clinic-admin-console/agent/state"
)

func SaveState(ctx context.Context, in *GraphState, store statex.Store) (GraphOutput, error) {
	if in == nil || in.Session == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	if in.Chat != nil {
		in.Session.History = settledHistory(in.Chat.History())
	}
	in.Session.Touch(in.Reply.Timestamp)

	if err := in.Session.Validate(); err != nil {
		return GraphOutput{}, fmt.Errorf("state validation failed: %w", err)
	}
	if err := store.Save(ctx, in.Session); err != nil {
		return GraphOutput{}, err
	}

	return GraphOutput{
		Reply: contractx.Reply{
			Message:   in.Reply,
			Outcome:   in.Outcome,
			Rounds:    in.Rounds,
			ToolCalls: in.ToolCalls,
		},
	}, nil
}

// settledHistory drops a trailing assistant message whose tool calls were never
// answered, so the next turn resumes from a transcript the provider accepts.
func settledHistory(history []*schema.Message) []*schema.Message {
	for len(history) > 0 {
		last := history[len(history)-1]
		if last == nil || (last.Role == schema.Assistant && len(last.ToolCalls) > 0) {
			history = history[:len(history)-1]
			continue
		}
		break
	}
	return history
}
