package contract

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// ChatSession proxies turns to the model provider and owns the provider transcript.
type ChatSession interface {
	SendMessage(ctx context.Context, text string) (ModelResponse, error)
	SendToolResults(ctx context.Context, results []ToolResult) (ModelResponse, error)
	History() []*schema.Message
}

// SessionOpener resumes a conversation from a stored provider transcript.
type SessionOpener interface {
	Open(history []*schema.Message) (ChatSession, error)
}

type ToolExecutor interface {
	Execute(ctx context.Context, req ToolRequest) (ToolResult, error)
}

type PersonaClassifier interface {
	Classify(text string) Persona
}

// ViewSink receives navigation signals from successful tool calls.
type ViewSink interface {
	SetActiveView(view View)
}
