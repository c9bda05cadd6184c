package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	contractx "github.com/tanpawarit/clinic-admin-console/agent/contract"
	"github.com/tanpawarit/clinic-admin-console/agent/llm"
	"github.com/tanpawarit/clinic-admin-console/api"
	configx "github.com/tanpawarit/clinic-admin-console/pkg/config"
	logx "github.com/tanpawarit/clinic-admin-console/pkg/logger"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "clinic-console",
		Short:         "Clinic administration console driven by a tool-calling assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var envFile string
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "path to .env file")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		configx.SetEnvFile(envFile)
		logCfg, err := configx.New[logx.Config]("LOG")
		if err != nil {
			return fmt.Errorf("load log config: %w", err)
		}
		logx.Init(*logCfg)
		return nil
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(probeCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the console HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, appOptions{seed: seed})
			if err != nil {
				return err
			}
			defer a.Close()

			httpCfg, err := configx.New[api.Config]("HTTP")
			if err != nil {
				return fmt.Errorf("load http config: %w", err)
			}

			srv := api.NewServer(*httpCfg, a.console, log.Logger,
				api.WithMetricsHandler(a.telemetry.Handler()),
			)
			return srv.Run(ctx)
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", true, "load the demo patients, appointments and invoices")
	return cmd
}

func chatCmd() *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, appOptions{seed: seed})
			if err != nil {
				return err
			}
			defer a.Close()

			return runChat(ctx, a, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", true, "load the demo patients, appointments and invoices")
	return cmd
}

func probeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Check that the configured provider credential is accepted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configx.New[llm.Config]("OPENROUTER")
			if err != nil {
				return fmt.Errorf("load llm config: %w", err)
			}
			if !cfg.HasCredential() {
				return contractx.ErrCredentialMissing
			}
			if err := probe(cmd.Context(), *cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "credential accepted for model %s\n", cfg.Model)
			return nil
		},
	}
}

// runChat is a line-oriented console: each line is one turn, "/view" prints
// the active view and "/quit" exits.
func runChat(ctx context.Context, a *app, in io.Reader, out io.Writer) error {
	if w := a.console.Warning(); w != "" {
		fmt.Fprintf(out, "WARNING: %s\n", w)
	}
	fmt.Fprintln(out, "Clinic console ready. Type a request, /view or /quit.")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/view":
			fmt.Fprintf(out, "[%s]\n", a.console.ActiveView())
			continue
		}

		reply, err := a.console.Submit(ctx, line)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		if reply.Message.AgentName != "" {
			fmt.Fprintf(out, "%s: ", reply.Message.AgentName)
		}
		fmt.Fprintf(out, "%s\n[%s]\n", reply.Message.Content, a.console.ActiveView())
	}
}
