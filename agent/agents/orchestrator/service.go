package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	contractx "github.com/tanpawarit/clinic-admin-console/agent/contract"
	nodex "github.com/tanpawarit/clinic-admin-console/agent/nodes/orchestrator"
	personax "github.com/tanpawarit/clinic-admin-console/agent/persona"
	statex "github.com/tanpawarit/clinic-admin-console/agent/state"
)

const meterName = "github.com/tanpawarit/clinic-admin-console/agent/agents/orchestrator"

// DefaultMaxToolRounds is the guard the console ships with.
const DefaultMaxToolRounds = 10

var (
	ErrInvalidMessage = nodex.ErrInvalidMessage
	ErrInvalidSession = nodex.ErrInvalidSession
)

type Config struct {
	// MaxToolRounds caps tool-call batches per turn; 0 disables the guard.
	MaxToolRounds int
}

type Orchestrator struct {
	store      statex.Store
	opener     contractx.SessionOpener
	executor   contractx.ToolExecutor
	classifier contractx.PersonaClassifier

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	maxToolRounds int
	turns         metric.Int64Counter
	turnSeconds   metric.Float64Histogram

	now func() time.Time
}

type Option func(*Orchestrator)

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

func WithMeter(m metric.Meter) Option {
	return func(o *Orchestrator) {
		if m != nil {
			o.registerMetrics(m)
		}
	}
}

func New(
	store statex.Store,
	opener contractx.SessionOpener,
	executor contractx.ToolExecutor,
	classifier contractx.PersonaClassifier,
	cfg Config,
	opts ...Option,
) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("state store is required")
	}
	if opener == nil {
		return nil, errors.New("session opener is required")
	}
	if executor == nil {
		return nil, errors.New("tool executor is required")
	}
	if classifier == nil {
		classifier = personax.Keyword{}
	}

	maxRounds := cfg.MaxToolRounds
	if maxRounds < 0 {
		maxRounds = 0
	}

	o := &Orchestrator{
		store:         store,
		opener:        opener,
		executor:      executor,
		classifier:    classifier,
		maxToolRounds: maxRounds,
		now:           time.Now,
	}
	o.registerMetrics(otel.Meter(meterName))
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	graphRunner, err := o.compileHandleMessageGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// HandleMessage runs one turn to completion. Provider failures come back as a
// Reply with OutcomeFailed; the error return is reserved for invalid input and
// state store failures.
func (o *Orchestrator) HandleMessage(ctx context.Context, sessionID string, text string) (contractx.Reply, error) {
	started := o.now()
	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		SessionID: sessionID,
		Text:      text,
	})
	if err != nil {
		return contractx.Reply{}, err
	}

	attrs := metric.WithAttributes(attribute.String("outcome", string(out.Reply.Outcome)))
	if o.turns != nil {
		o.turns.Add(ctx, 1, attrs)
	}
	if o.turnSeconds != nil {
		o.turnSeconds.Record(ctx, o.now().Sub(started).Seconds(), attrs)
	}

	log.Info().
		Str("session_id", sessionID).
		Str("outcome", string(out.Reply.Outcome)).
		Int("rounds", out.Reply.Rounds).
		Int("tool_calls", out.Reply.ToolCalls).
		Str("persona", string(out.Reply.Message.AgentName)).
		Msg("turn finished")

	return out.Reply, nil
}

// Transcript returns the display messages of a session, empty when none exist.
func (o *Orchestrator) Transcript(ctx context.Context, sessionID string) ([]contractx.ChatMessage, error) {
	st, err := o.store.Load(ctx, sessionID)
	if errors.Is(err, statex.ErrStateNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return st.Messages, nil
}

func (o *Orchestrator) registerMetrics(m metric.Meter) {
	turns, err := m.Int64Counter(
		"clinic_turns_total",
		metric.WithDescription("Console turns by terminal outcome"),
		metric.WithUnit("{turn}"),
	)
	if err != nil {
		log.Warn().Err(err).Msg("turn counter unavailable")
	}
	turnSeconds, err := m.Float64Histogram(
		"clinic_turn_duration_seconds",
		metric.WithDescription("Wall time of one console turn"),
		metric.WithUnit("s"),
	)
	if err != nil {
		log.Warn().Err(err).Msg("turn duration histogram unavailable")
	}
	o.turns = turns
	o.turnSeconds = turnSeconds
}
