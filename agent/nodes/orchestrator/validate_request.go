package orchestratornode

import (
	"errors"
	"strings"
	"time"

	contractx "github.com/tanpawarit/clinic-admin-console/agent/contract"
	statex "github.com/tanpawarit/clinic-admin-console/agent/state"
)

var (
	ErrInvalidMessage = errors.New("message is empty")
	ErrInvalidSession = errors.New("session id is empty")
)

const (
	FailedText    = "I encountered an error connecting to the Orchestrator service. Please check your API Key configuration."
	ExhaustedText = "I was unable to complete this request. Please try again with more detail."
	FallbackText  = "Action completed."
)

type GraphInput struct {
	SessionID string
	Text      string
}

type GraphOutput struct {
	Reply contractx.Reply
}

// GraphState travels through every node of one turn.
type GraphState struct {
	SessionID string
	Text      string
	Now       time.Time

	Session *statex.SessionState
	Chat    contractx.ChatSession

	Final     contractx.ModelResponse
	Outcome   contractx.Outcome
	Rounds    int
	ToolCalls int
	Err       error

	Reply contractx.ChatMessage
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return nil, ErrInvalidSession
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrInvalidMessage
	}

	return &GraphState{
		SessionID: sessionID,
		Text:      text,
		Now:       nowFn().UTC(),
	}, nil
}

// fail moves the turn to the Failed outcome. Tool effects already applied are
// left in place.
func (s *GraphState) fail(err error) {
	s.Outcome = contractx.OutcomeFailed
	s.Err = err
}
