package console

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/clinic-admin-console/agent/contract"
	recordsx "github.com/tanpawarit/clinic-admin-console/agent/records"
)

// DefaultSessionID names the single conversation a console drives.
const DefaultSessionID = "console"

// MissingKeyWarning is shown when no provider credential is configured.
const MissingKeyWarning = "Missing OPENROUTER_API_KEY in environment variables. Assistant features will not work."

var ErrNoHandler = errors.New("console has no turn handler")

// TurnHandler runs one conversational turn. The orchestrator satisfies it.
type TurnHandler interface {
	HandleMessage(ctx context.Context, sessionID string, text string) (contractx.Reply, error)
	Transcript(ctx context.Context, sessionID string) ([]contractx.ChatMessage, error)
}

// Snapshot is the read-only state a presentation layer renders.
type Snapshot struct {
	Patients     []recordsx.Patient      `json:"patients"`
	Appointments []recordsx.Appointment  `json:"appointments"`
	Invoices     []recordsx.Invoice      `json:"invoices"`
	Messages     []contractx.ChatMessage `json:"messages"`
	IsThinking   bool                    `json:"isThinking"`
	ActiveView   contractx.View          `json:"activeView"`
	Warning      string                  `json:"warning,omitempty"`
}

// Console owns the active view and the busy flag. One turn runs at a time.
type Console struct {
	records   *recordsx.Store
	sessionID string

	turn     sync.Mutex
	thinking atomic.Bool

	mu      sync.RWMutex
	view    contractx.View
	warning string
	handler TurnHandler
}

var _ contractx.ViewSink = (*Console)(nil)

type Option func(*Console)

func WithSessionID(id string) Option {
	return func(c *Console) {
		if id != "" {
			c.sessionID = id
		}
	}
}

func WithWarning(text string) Option {
	return func(c *Console) {
		c.warning = text
	}
}

func New(records *recordsx.Store, opts ...Option) *Console {
	c := &Console{
		records:   records,
		sessionID: DefaultSessionID,
		view:      contractx.ViewDashboard,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Bind attaches the turn handler. The executor needs the console as its view
// sink before the orchestrator exists, so binding happens after construction.
func (c *Console) Bind(h TurnHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = h
}

func (c *Console) SetActiveView(view contractx.View) {
	if !view.Valid() {
		log.Warn().Str("view", string(view)).Msg("ignoring unknown console view")
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view = view
}

func (c *Console) ActiveView() contractx.View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.view
}

// SetWarning replaces the banner, e.g. after a failed credential probe.
func (c *Console) SetWarning(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warning = text
}

func (c *Console) Warning() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.warning
}

func (c *Console) IsThinking() bool {
	return c.thinking.Load()
}

// Submit runs a turn. A second submission while one is in flight is rejected
// with ErrTurnInFlight rather than queued.
func (c *Console) Submit(ctx context.Context, text string) (contractx.Reply, error) {
	c.mu.RLock()
	h := c.handler
	c.mu.RUnlock()
	if h == nil {
		return contractx.Reply{}, ErrNoHandler
	}

	if !c.turn.TryLock() {
		return contractx.Reply{}, contractx.ErrTurnInFlight
	}
	defer c.turn.Unlock()

	c.thinking.Store(true)
	defer c.thinking.Store(false)

	return h.HandleMessage(ctx, c.sessionID, text)
}

func (c *Console) Messages(ctx context.Context) ([]contractx.ChatMessage, error) {
	c.mu.RLock()
	h := c.handler
	c.mu.RUnlock()
	if h == nil {
		return nil, nil
	}
	msgs, err := h.Transcript(ctx, c.sessionID)
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

func (c *Console) Snapshot(ctx context.Context) (Snapshot, error) {
	msgs, err := c.Messages(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	if msgs == nil {
		msgs = []contractx.ChatMessage{}
	}

	data := c.records.Snapshot()
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{
		Patients:     data.Patients,
		Appointments: data.Appointments,
		Invoices:     data.Invoices,
		Messages:     msgs,
		IsThinking:   c.thinking.Load(),
		ActiveView:   c.view,
		Warning:      c.warning,
	}, nil
}

func (c *Console) Records() *recordsx.Store {
	return c.records
}
