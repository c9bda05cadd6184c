package state

import (
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/clinic-admin-console/agent/contract"
)

// SessionState is one conversation.
// - Messages: what the console shows, append-only, chronological
// - History: the provider transcript (user, assistant, tool messages)
type SessionState struct {
	SessionID string                  `json:"session_id"`
	Messages  []contractx.ChatMessage `json:"messages,omitempty"`
	History   []*schema.Message       `json:"history,omitempty"`
	UpdatedAt time.Time               `json:"updated_at"`
}

var (
	ErrNonMonotonic = errors.New("transcript is not chronological")
	ErrNilMessage   = errors.New("history contains nil message")
)

func NewSessionState(sessionID string, now time.Time) *SessionState {
	return &SessionState{
		SessionID: sessionID,
		UpdatedAt: now.UTC(),
	}
}

func (s *SessionState) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

// Append adds a display message to the end of the transcript.
func (s *SessionState) Append(msg contractx.ChatMessage) {
	s.Messages = append(s.Messages, msg)
}

// Clone returns a copy whose slices can be appended to independently.
func (s *SessionState) Clone() *SessionState {
	if s == nil {
		return nil
	}
	out := *s
	out.Messages = append([]contractx.ChatMessage(nil), s.Messages...)
	out.History = append([]*schema.Message(nil), s.History...)
	return &out
}

func (s *SessionState) Validate() error {
	for i := 1; i < len(s.Messages); i++ {
		if s.Messages[i].Timestamp.Before(s.Messages[i-1].Timestamp) {
			return fmt.Errorf("%w: message %d precedes message %d", ErrNonMonotonic, i, i-1)
		}
	}
	for i, m := range s.History {
		if m == nil {
			return fmt.Errorf("%w: index=%d", ErrNilMessage, i)
		}
	}
	return nil
}
