package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/clinic-admin-console/agent/contract"
)

// Factory opens chat sessions that share one tool-bound model and system prompt.
type Factory struct {
	runner compose.Runnable[map[string]any, *schema.Message]
	retry  RetryPolicy
	now    func() time.Time
}

var _ contractx.SessionOpener = (*Factory)(nil)

type FactoryOption func(*Factory)

func WithRetry(policy RetryPolicy) FactoryOption {
	return func(f *Factory) {
		f.retry = policy
	}
}

func WithClock(now func() time.Time) FactoryOption {
	return func(f *Factory) {
		if now != nil {
			f.now = now
		}
	}
}

func NewFactory(
	ctx context.Context,
	chatModel einomodel.ToolCallingChatModel,
	tools []*schema.ToolInfo,
	systemPrompt string,
	opts ...FactoryOption,
) (*Factory, error) {
	if chatModel == nil {
		return nil, contractx.ErrCredentialMissing
	}
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: system prompt is empty", contractx.ErrPromptMissing)
	}

	toolModel, err := chatModel.WithTools(tools)
	if err != nil {
		return nil, fmt.Errorf("%w: bind clinic tools: %v", contractx.ErrModelInvoke, err)
	}

	runner, err := compileChatGraph(ctx, toolModel, systemPrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: compile chat graph: %v", contractx.ErrModelInvoke, err)
	}

	f := &Factory{
		runner: runner,
		retry:  RetryPolicy{MaxAttempts: 1},
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f, nil
}

func (f *Factory) Open(history []*schema.Message) (contractx.ChatSession, error) {
	return &Session{
		runner:  f.runner,
		history: append([]*schema.Message(nil), history...),
		retry:   f.retry,
		now:     f.now,
	}, nil
}

// Unavailable is the opener used when no provider could be configured. Every
// turn opened through it fails with the wrapped reason.
type Unavailable struct {
	Reason error
}

func (u Unavailable) Open([]*schema.Message) (contractx.ChatSession, error) {
	if u.Reason != nil {
		return nil, u.Reason
	}
	return nil, contractx.ErrCredentialMissing
}
