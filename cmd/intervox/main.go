// Command intervox is the entry point of the intervox voice interview service.
//
//	intervox serve            run the HTTP/WebSocket API
//	intervox local            run one interview on this machine's mic and speaker
//	intervox check            validate the config and print the provider summary
//	intervox token <subject>  mint an API bearer token
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/MrWong99/intervox/internal/api"
	"github.com/MrWong99/intervox/internal/app"
	"github.com/MrWong99/intervox/internal/config"
	"github.com/MrWong99/intervox/internal/event"
	"github.com/MrWong99/intervox/internal/interview"
	"github.com/MrWong99/intervox/internal/observe"
	"github.com/MrWong99/intervox/pkg/audio/local"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "intervox: %v\n", err)
		return 1
	}
	return 0
}

// options are the flags shared by all subcommands.
type options struct {
	configPath string
	envFile    string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "intervox",
		Short:         "Voice interview practice service",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "config.yaml", "path to the YAML configuration file")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before the config")

	root.AddCommand(
		newServeCmd(opts),
		newLocalCmd(opts),
		newCheckCmd(opts),
		newTokenCmd(opts),
	)
	return root
}

// ── Shared setup ──────────────────────────────────────────────────────────────

// loadConfig reads the dotenv file into the environment, then the config.
func loadConfig(opts *options) (*config.Config, error) {
	if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", opts.envFile, err)
	}
	return config.Load(opts.configPath)
}

// newLogger installs a text logger on stderr whose level can change at
// runtime through the returned LevelVar.
func newLogger(level config.LogLevel) *slog.LevelVar {
	lvl := &slog.LevelVar{}
	lvl.Set(level.Level())
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
	return lvl
}

// initSentry enables error reporting when a DSN is configured. The returned
// func flushes pending events.
func initSentry(cfg config.TelemetryConfig) (func(), error) {
	if cfg.SentryDSN == "" {
		return func() {}, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.SentryDSN,
		Environment: cfg.Environment,
		Release:     cfg.ServiceName + "@" + version,
	})
	if err != nil {
		return nil, fmt.Errorf("init sentry: %w", err)
	}
	slog.Info("sentry error reporting enabled", "environment", cfg.Environment)
	return func() { sentry.Flush(2 * time.Second) }, nil
}

// startApp performs the setup common to serve and local: logger, telemetry,
// providers and the App itself. The returned cleanup flushes telemetry.
func startApp(ctx context.Context, opts *options, cfg *config.Config) (*app.App, func(), error) {
	lvl := newLogger(cfg.Server.LogLevel)

	flush, err := initSentry(cfg.Telemetry)
	if err != nil {
		return nil, nil, err
	}
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
		Environment:    cfg.Telemetry.Environment,
	})
	if err != nil {
		flush()
		return nil, nil, fmt.Errorf("init telemetry: %w", err)
	}
	cleanup := func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(sctx); err != nil {
			slog.Warn("telemetry shutdown", "err", err)
		}
		flush()
	}

	reg := config.NewRegistry()
	registerBuiltinProviders(ctx, reg)
	providers, err := buildProviders(cfg, reg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	printStartupSummary(cfg)

	a, err := app.New(ctx, cfg, providers,
		app.WithConfigPath(opts.configPath),
		app.WithVersion(version),
		app.WithLogLevel(lvl),
	)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return a, cleanup, nil
}

// shutdown ends open interviews and closes the stores within 15 seconds.
func shutdown(a *app.App) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	slog.Info("shutdown signal received, stopping…")
	return a.Shutdown(ctx)
}

// ── serve ─────────────────────────────────────────────────────────────────────

func newServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, cleanup, err := startApp(ctx, opts, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			slog.Info("intervox starting",
				"config", opts.configPath,
				"listen_addr", cfg.Server.ListenAddr,
				"log_level", cfg.Server.LogLevel,
				"auth", cfg.Server.AuthSecret != "",
			)
			runErr := a.Run(ctx)
			if err := shutdown(a); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			if runErr != nil && !errors.Is(runErr, context.Canceled) {
				return runErr
			}
			slog.Info("goodbye")
			return nil
		},
	}
}

// ── local ─────────────────────────────────────────────────────────────────────

func newLocalCmd(opts *options) *cobra.Command {
	var (
		profile interview.Profile
		typ     string
	)
	cmd := &cobra.Command{
		Use:   "local",
		Short: "Run one interview on the local microphone and speaker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			profile.Type = interview.Type(typ)
			p, err := profile.Normalise()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, cleanup, err := startApp(ctx, opts, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			dev, err := local.New(cfg.Audio.SampleRate, cfg.Audio.FrameMs, local.WithCaptureDevice(cfg.Audio.Device))
			if err != nil {
				return err
			}
			sm := a.Sessions()
			id, err := sm.Create(ctx, p)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Interview started. Press Ctrl+C to finish and get feedback.")

			// Ctrl+C ends the interview; the summary is still generated.
			err = sm.Connect(ctx, id, dev, event.SinkFunc(printEvent(cmd)))
			if err != nil {
				return err
			}
			if err := shutdown(a); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			if rec, err := sm.Summary(context.Background(), id); err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "\nSummary saved for interview %s (%d exchanges).\n", id, rec.TotalExchanges)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&typ, "type", string(interview.TypeTechnical), "interview type: technical, role_based or general")
	f.StringSliceVar(&profile.Categories, "category", nil, "technical category (repeatable)")
	f.StringVar(&profile.Role, "role", "", "role for role-based interviews")
	f.StringVar(&profile.Company, "company", "", "hiring company")
	f.StringSliceVar(&profile.Skills, "skill", nil, "skill to probe (repeatable)")
	f.IntVar(&profile.DurationMinutes, "minutes", 0, "session length; 0 uses the configured default")
	return cmd
}

// printEvent renders session events as console lines.
func printEvent(cmd *cobra.Command) func(event.Event) {
	out := cmd.OutOrStdout()
	return func(e event.Event) {
		switch e.Type {
		case event.InterviewerQuestion, event.InterviewerNudge:
			fmt.Fprintf(out, "\nInterviewer: %s\n", e.String("message"))
		case event.CandidateResponse:
			fmt.Fprintf(out, "You: %s\n", e.String("transcript"))
		case event.FinalFeedback:
			fmt.Fprintf(out, "\n── Feedback ──\n%s\n", e.String("feedback"))
		case event.Listening:
			fmt.Fprintln(out, "(listening…)")
		case event.Error:
			fmt.Fprintf(out, "error: %s\n", e.String("message"))
		default:
			slog.Debug("session event", "type", e.Type)
		}
	}
}

// ── check ─────────────────────────────────────────────────────────────────────

func newCheckCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and print the provider summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			newLogger(cfg.Server.LogLevel)
			reg := config.NewRegistry()
			registerBuiltinProviders(cmd.Context(), reg)
			if _, err := buildProviders(cfg, reg); err != nil {
				return err
			}
			printStartupSummary(cfg)
			fmt.Fprintln(cmd.OutOrStdout(), "configuration OK")
			return nil
		},
	}
}

// ── token ─────────────────────────────────────────────────────────────────────

func newTokenCmd(opts *options) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <subject>",
		Short: "Mint a bearer token for the API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if cfg.Server.AuthSecret == "" {
				return errors.New("server.auth_secret is not set; the API accepts requests without tokens")
			}
			tok, err := api.NewAuthenticator(cfg.Server.AuthSecret).Issue(args[0], ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
