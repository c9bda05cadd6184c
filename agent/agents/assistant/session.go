package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/clinic-admin-console/agent/contract"
)

// RetryPolicy bounds provider attempts per send. MaxAttempts <= 1 disables retries.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
}

type Session struct {
	runner  compose.Runnable[map[string]any, *schema.Message]
	history []*schema.Message
	retry   RetryPolicy
	now     func() time.Time
}

var _ contractx.ChatSession = (*Session)(nil)

func (s *Session) History() []*schema.Message {
	return append([]*schema.Message(nil), s.history...)
}

func (s *Session) SendMessage(ctx context.Context, text string) (contractx.ModelResponse, error) {
	return s.send(ctx, []*schema.Message{schema.UserMessage(text)})
}

// SendToolResults delivers a whole batch as one turn, one tool message per
// result, each keyed by the invocation id the provider issued.
func (s *Session) SendToolResults(ctx context.Context, results []contractx.ToolResult) (contractx.ModelResponse, error) {
	pending := make([]*schema.Message, 0, len(results))
	for _, r := range results {
		content, err := r.ResponseJSON()
		if err != nil {
			return contractx.ModelResponse{}, fmt.Errorf("%w: marshal tool result for tool=%s: %v", contractx.ErrValidation, r.Tool, err)
		}
		pending = append(pending, schema.ToolMessage(content, r.InvocationID))
	}
	return s.send(ctx, pending)
}

// send commits pending and the reply to history only when the provider
// returned a usable response.
func (s *Session) send(ctx context.Context, pending []*schema.Message) (contractx.ModelResponse, error) {
	transcript := make([]*schema.Message, 0, len(s.history)+len(pending)+1)
	transcript = append(transcript, s.history...)
	transcript = append(transcript, pending...)

	msg, err := s.generate(ctx, transcript)
	if err != nil {
		return contractx.ModelResponse{}, fmt.Errorf("%w: chat invoke: %v", contractx.ErrModelInvoke, err)
	}
	if msg == nil {
		return contractx.ModelResponse{}, fmt.Errorf("%w: empty provider response", contractx.ErrSchemaViolation)
	}

	resp, err := toModelResponse(msg)
	if err != nil {
		return contractx.ModelResponse{}, err
	}

	s.history = append(transcript, msg)
	return resp, nil
}

func (s *Session) generate(ctx context.Context, transcript []*schema.Message) (*schema.Message, error) {
	input := map[string]any{
		inputToday:   s.now().Format("2006-01-02"),
		inputHistory: transcript,
	}
	op := func() (*schema.Message, error) {
		return s.runner.Invoke(ctx, input)
	}
	if s.retry.MaxAttempts <= 1 {
		return op()
	}

	policy := backoff.NewExponentialBackOff()
	if s.retry.InitialInterval > 0 {
		policy.InitialInterval = s.retry.InitialInterval
	}
	return backoff.Retry(ctx, op,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(s.retry.MaxAttempts)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			log.Warn().Err(err).Dur("wait", wait).Msg("provider call failed, retrying")
		}),
	)
}

// toModelResponse keeps the text part ahead of tool calls, in provider order.
func toModelResponse(msg *schema.Message) (contractx.ModelResponse, error) {
	var parts []contractx.Part
	if text := strings.TrimSpace(msg.Content); text != "" {
		parts = append(parts, contractx.Part{Text: text})
	}

	for _, call := range msg.ToolCalls {
		name := strings.TrimSpace(call.Function.Name)
		if name == "" {
			return contractx.ModelResponse{}, fmt.Errorf("%w: tool call name is empty", contractx.ErrSchemaViolation)
		}

		args := map[string]any{}
		rawArgs := strings.TrimSpace(call.Function.Arguments)
		if rawArgs != "" {
			dec := json.NewDecoder(strings.NewReader(rawArgs))
			dec.UseNumber()
			if err := dec.Decode(&args); err != nil {
				return contractx.ModelResponse{}, fmt.Errorf("%w: invalid tool args for tool=%s: %v", contractx.ErrSchemaViolation, name, err)
			}
		}

		parts = append(parts, contractx.Part{
			ToolCall: &contractx.ToolRequest{
				Tool:         name,
				InvocationID: call.ID,
				Args:         args,
			},
		})
	}

	return contractx.ModelResponse{Parts: parts}, nil
}
