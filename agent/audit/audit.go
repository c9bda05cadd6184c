package audit

import (
	"context"
	"time"
)

// Entry is one executed tool call.
type Entry struct {
	Tool       string
	Status     string
	Message    string
	Args       map[string]any
	Payload    map[string]any
	ExecutedAt time.Time
}

type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// Nop discards entries.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }

// Memory keeps entries in process, mostly for tests and the terminal console.
type Memory struct {
	Entries []Entry
}

func (m *Memory) Record(_ context.Context, e Entry) error {
	m.Entries = append(m.Entries, e)
	return nil
}
