package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	assistantx "github.com/tanpawarit/clinic-admin-console/agent/agents/assistant"
	orchestratorx "github.com/tanpawarit/clinic-admin-console/agent/agents/orchestrator"
	auditx "github.com/tanpawarit/clinic-admin-console/agent/audit"
	consolex "github.com/tanpawarit/clinic-admin-console/agent/console"
	contractx "github.com/tanpawarit/clinic-admin-console/agent/contract"
	"github.com/tanpawarit/clinic-admin-console/agent/llm"
	personax "github.com/tanpawarit/clinic-admin-console/agent/persona"
	promptx "github.com/tanpawarit/clinic-admin-console/agent/prompt"
	recordsx "github.com/tanpawarit/clinic-admin-console/agent/records"
	statex "github.com/tanpawarit/clinic-admin-console/agent/state"
	toolx "github.com/tanpawarit/clinic-admin-console/agent/tool"
	configx "github.com/tanpawarit/clinic-admin-console/pkg/config"
	openrouterx "github.com/tanpawarit/clinic-admin-console/pkg/openrouter"
	telemetryx "github.com/tanpawarit/clinic-admin-console/pkg/telemetry"
)

const probeFailedWarning = "The model provider rejected the configured API key. The assistant will not work until it is fixed."

type appOptions struct {
	seed bool
}

// app is the wired console: records, tools, conversation loop and the
// resources that must be released on exit.
type app struct {
	console   *consolex.Console
	telemetry *telemetryx.Provider
	llmCfg    *llm.Config
	closers   []func() error
}

func buildApp(ctx context.Context, opts appOptions) (*app, error) {
	llmCfg, err := configx.New[llm.Config]("OPENROUTER")
	if err != nil {
		return nil, fmt.Errorf("load llm config: %w", err)
	}
	if err := llmCfg.Validate(); err != nil {
		return nil, err
	}

	telCfg, err := configx.New[telemetryx.Config]("TELEMETRY")
	if err != nil {
		return nil, fmt.Errorf("load telemetry config: %w", err)
	}
	tel, err := telemetryx.Init(*telCfg)
	if err != nil {
		return nil, err
	}

	a := &app{telemetry: tel, llmCfg: llmCfg}
	a.closers = append(a.closers, func() error { return tel.Shutdown(context.Background()) })

	var seed []recordsx.Option
	if opts.seed {
		seed = append(seed, recordsx.WithSeed(recordsx.DefaultSeed()))
	}
	records := recordsx.NewStore(seed...)

	var consoleOpts []consolex.Option
	if !llmCfg.HasCredential() {
		log.Warn().Msg("OPENROUTER_API_KEY is not set; assistant turns will fail")
		consoleOpts = append(consoleOpts, consolex.WithWarning(consolex.MissingKeyWarning))
	}
	console := consolex.New(records, consoleOpts...)

	recorder, err := buildRecorder(ctx, a)
	if err != nil {
		a.Close()
		return nil, err
	}

	store, err := buildStateStore(records)
	if err != nil {
		a.Close()
		return nil, err
	}

	executor := toolx.NewExecutor(records, console,
		toolx.WithRecorder(recorder),
		toolx.WithMeter(tel.Meter("clinic/tool")),
	)

	opener := buildOpener(ctx, *llmCfg)

	orch, err := orchestratorx.New(store, opener, executor, personax.Keyword{},
		orchestratorx.Config{MaxToolRounds: llmCfg.MaxToolRounds},
		orchestratorx.WithMeter(tel.Meter("clinic/orchestrator")),
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	console.Bind(orch)
	a.console = console

	if llmCfg.ProbeOnStart && llmCfg.HasCredential() {
		if err := probe(ctx, *llmCfg); err != nil {
			log.Warn().Err(err).Msg("credential probe failed")
			console.SetWarning(probeFailedWarning)
		}
	}

	return a, nil
}

func buildRecorder(ctx context.Context, a *app) (auditx.Recorder, error) {
	cfg, err := configx.New[auditx.Config]("AUDIT")
	if err != nil {
		return nil, fmt.Errorf("load audit config: %w", err)
	}
	if !cfg.Enabled() {
		return auditx.Nop{}, nil
	}
	rec, err := auditx.NewBunRecorder(ctx, *cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, rec.Close)
	log.Info().Msg("tool audit trail enabled")
	return rec, nil
}

// buildStateStore keys stored transcripts by the records epoch, so a restart
// never resumes a conversation about records that no longer exist.
func buildStateStore(records *recordsx.Store) (statex.Store, error) {
	cfg, err := configx.New[statex.UpstashRedisConfig]("UPSTASH_REDIS")
	if err != nil {
		return nil, fmt.Errorf("load session store config: %w", err)
	}
	if !cfg.Enabled() {
		return statex.NewMemoryStore(), nil
	}
	store, err := statex.NewUpstashRedisStore(*cfg, records.Epoch())
	if err != nil {
		return nil, err
	}
	log.Info().Str("epoch", records.Epoch()).Msg("session transcripts stored in upstash redis")
	return store, nil
}

// buildOpener never fails: without a usable model every turn ends Failed.
func buildOpener(ctx context.Context, cfg llm.Config) contractx.SessionOpener {
	if !cfg.HasCredential() {
		return assistantx.Unavailable{Reason: contractx.ErrCredentialMissing}
	}

	orCfg := cfg.OpenRouter()
	chatModel, err := orCfg.New(ctx)
	if err != nil {
		log.Error().Err(err).Msg("chat model unavailable")
		return assistantx.Unavailable{Reason: err}
	}

	factory, err := assistantx.NewFactory(ctx, chatModel, toolx.Infos(), promptx.LoadPromptSet().System,
		assistantx.WithRetry(assistantx.RetryPolicy{
			MaxAttempts:     cfg.RetryMaxAttempts,
			InitialInterval: cfg.RetryInitialInterval,
		}),
	)
	if err != nil {
		log.Error().Err(err).Msg("chat session factory unavailable")
		return assistantx.Unavailable{Reason: err}
	}
	return factory
}

func probe(ctx context.Context, cfg llm.Config) error {
	client := openrouterx.NewClient(cfg.OpenRouter())
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return openrouterx.Probe(probeCtx, client)
}

func (a *app) Close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		log.Warn().Err(err).Msg("shutdown finished with errors")
	}
}
