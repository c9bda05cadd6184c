package tool

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	auditx "github.com/tanpawarit/clinic-admin-console/agent/audit"
	contractx "github.com/tanpawarit/clinic-admin-console/agent/contract"
	recordsx "github.com/tanpawarit/clinic-admin-console/agent/records"
)

const meterName = "github.com/tanpawarit/clinic-admin-console/agent/tool"

// UnknownToolMessage is returned to the model for names outside the catalog.
const UnknownToolMessage = "Unknown tool"

type Executor func(ctx context.Context, tool string, args map[string]any) (contractx.ToolResult, error)

// Execute runs one request and stamps the provider invocation id on the result.
func (e Executor) Execute(ctx context.Context, req contractx.ToolRequest) (contractx.ToolResult, error) {
	out, err := e(ctx, req.Tool, req.Args)
	if err != nil {
		return contractx.ToolResult{}, err
	}
	out.InvocationID = req.InvocationID
	return out, nil
}

var _ contractx.ToolExecutor = Executor(nil)

type handler func(args Args) contractx.ToolResult

type options struct {
	recorder auditx.Recorder
	meter    metric.Meter
	fallback Executor
}

type Option func(*options)

func WithRecorder(r auditx.Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithFallback handles names the catalog does not bind. DefaultExecutor is used otherwise.
func WithFallback(e Executor) Option {
	return func(o *options) {
		if e != nil {
			o.fallback = e
		}
	}
}

func WithMeter(m metric.Meter) Option {
	return func(o *options) {
		if m != nil {
			o.meter = m
		}
	}
}

// NewExecutor binds the catalog to a store. Successful mutations also move the
// console to the matching view.
func NewExecutor(store *recordsx.Store, views contractx.ViewSink, opts ...Option) Executor {
	cfg := options{
		recorder: auditx.Nop{},
		meter:    otel.Meter(meterName),
		fallback: DefaultExecutor(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	invocations, err := cfg.meter.Int64Counter(
		"clinic_tool_invocations_total",
		metric.WithDescription("Tool calls executed on behalf of the model"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		log.Warn().Err(err).Msg("tool invocation counter unavailable")
	}

	handlers := clinicHandlers(store)

	return func(ctx context.Context, tool string, args map[string]any) (contractx.ToolResult, error) {
		if err := ctx.Err(); err != nil {
			return contractx.ToolResult{}, err
		}

		def, known := Lookup(tool)
		h, bound := handlers[tool]
		if !known || !bound {
			out, err := cfg.fallback(ctx, tool, args)
			if err != nil {
				return contractx.ToolResult{}, err
			}
			observe(ctx, cfg, invocations, tool, args, out)
			return out, nil
		}

		var out contractx.ToolResult
		if parsed, msg := validateArgs(def, args); msg != "" {
			out = failure(tool, msg)
		} else {
			out = h(parsed)
		}

		if out.OK() && views != nil {
			if view, ok := viewFor[tool]; ok {
				views.SetActiveView(view)
			}
		}

		observe(ctx, cfg, invocations, tool, args, out)
		return out, nil
	}
}

// DefaultExecutor answers every request with the unknown-tool outcome.
func DefaultExecutor() Executor {
	return func(ctx context.Context, tool string, _ map[string]any) (contractx.ToolResult, error) {
		return contractx.ToolResult{
			Tool:  tool,
			Error: UnknownToolMessage,
		}, nil
	}
}

var viewFor = map[string]contractx.View{
	ToolRegisterPatient:     contractx.ViewRegistration,
	ToolScheduleAppointment: contractx.ViewScheduling,
	ToolCreateInvoice:       contractx.ViewBilling,
	ToolAddMedicalNote:      contractx.ViewRecords,
}

func observe(
	ctx context.Context,
	cfg options,
	counter metric.Int64Counter,
	tool string,
	args map[string]any,
	out contractx.ToolResult,
) {
	status := out.Status
	if status == "" {
		status = contractx.StatusError
	}

	evt := log.Info()
	if !out.OK() {
		evt = log.Warn()
	}
	evt.Str("tool", tool).
		Str("status", status).
		Str("message", out.Message).
		Str("error", out.Error).
		Msg("tool executed")

	if counter != nil {
		counter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("tool", tool),
			attribute.String("status", status),
		))
	}

	entry := auditx.Entry{
		Tool:       tool,
		Status:     status,
		Message:    firstNonEmpty(out.Message, out.Error),
		Args:       args,
		Payload:    out.Payload,
		ExecutedAt: time.Now().UTC(),
	}
	if err := cfg.recorder.Record(ctx, entry); err != nil {
		log.Warn().Err(err).Str("tool", tool).Msg("audit record failed")
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
