package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/clinic-admin-console/agent/contract"
)

// RunToolRounds sends the user text and keeps answering tool-call batches
// until the model replies without calls. maxRounds <= 0 means no guard.
func RunToolRounds(
	ctx context.Context,
	in *GraphState,
	executor contractx.ToolExecutor,
	maxRounds int,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.Outcome == contractx.OutcomeFailed || in.Chat == nil {
		if in.Outcome == "" {
			in.fail(contractx.ErrCredentialMissing)
		}
		return in, nil
	}

	logger := log.With().Str("session_id", in.SessionID).Logger()

	resp, err := in.Chat.SendMessage(ctx, in.Text)
	if err != nil {
		logger.Error().Err(err).Int("round", 0).Msg("provider call failed")
		in.fail(err)
		return in, nil
	}

	for {
		calls := resp.ToolCalls()
		if len(calls) == 0 {
			in.Final = resp
			in.Outcome = contractx.OutcomeDone
			return in, nil
		}
		if maxRounds > 0 && in.Rounds >= maxRounds {
			logger.Warn().Int("round", in.Rounds).Int("pending_calls", len(calls)).Msg("tool round guard reached")
			in.Final = resp
			in.Outcome = contractx.OutcomeExhausted
			return in, nil
		}

		in.Rounds++
		results, err := executeBatch(ctx, in, executor, calls)
		if err != nil {
			logger.Error().Err(err).Int("round", in.Rounds).Msg("tool batch interrupted")
			in.fail(err)
			return in, nil
		}

		resp, err = in.Chat.SendToolResults(ctx, results)
		if err != nil {
			logger.Error().Err(err).Int("round", in.Rounds).Msg("provider call failed")
			in.fail(err)
			return in, nil
		}
	}
}

// executeBatch runs calls one at a time in the order the provider sent them;
// later calls may depend on records created by earlier ones.
func executeBatch(
	ctx context.Context,
	in *GraphState,
	executor contractx.ToolExecutor,
	calls []contractx.ToolRequest,
) ([]contractx.ToolResult, error) {
	results := make([]contractx.ToolResult, 0, len(calls))
	for _, call := range calls {
		res, err := executor.Execute(ctx, call)
		if err != nil {
			return nil, fmt.Errorf("execute tool=%s: %w", call.Tool, err)
		}
		if res.Tool == "" {
			res.Tool = call.Tool
		}
		res.InvocationID = call.InvocationID
		in.ToolCalls++

		log.Debug().
			Str("session_id", in.SessionID).
			Int("round", in.Rounds).
			Str("tool", call.Tool).
			Str("invocation_id", call.InvocationID).
			Str("status", res.Status).
			Msg("tool call executed")

		results = append(results, res)
	}
	return results, nil
}
