package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/livecodelife/fleetio-digest/internal/config"
	"github.com/livecodelife/fleetio-digest/internal/console"
	"github.com/livecodelife/fleetio-digest/internal/llm"
	"github.com/livecodelife/fleetio-digest/internal/metrics"
	"github.com/livecodelife/fleetio-digest/internal/observability"
	"github.com/livecodelife/fleetio-digest/internal/pipeline"
	"github.com/livecodelife/fleetio-digest/internal/source"
)

type options struct {
	configPath string
	window     time.Duration
	logLevel   string
	dumpDigest bool
	noChat     bool

	// now is replaced in tests
	now func() time.Time
}

func newRootCmd() *cobra.Command {
	opts := &options{now: time.Now}
	cmd := &cobra.Command{
		Use:   "fleet-digest [model] [llm-base-url]",
		Short: "Weekly fleet digest with model-generated recommendations",
		Long: `fleet-digest pulls the last week of vehicles, issues and service reminders
from the fleet API, prints the totals and streams a summary with recommendations
from a local model server. Follow-up questions are answered until "exit".`,
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, args, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "path to YAML config (environment wins)")
	cmd.Flags().DurationVar(&opts.window, "window", 0, "trailing window to digest (default 168h)")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "debug | info | warn | error")
	cmd.Flags().BoolVar(&opts.dumpDigest, "dump-digest", false, "print the composed digest as JSON before the summary")
	cmd.Flags().BoolVar(&opts.noChat, "no-chat", false, "exit after the first summary")
	return cmd
}

// Execute runs the command until it finishes or SIGINT/SIGTERM arrives.
func Execute(version string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cmd := newRootCmd()
	cmd.Version = version
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		var missing *config.MissingError
		if errors.As(err, &missing) {
			for _, n := range missing.Names {
				fmt.Fprintf(os.Stderr, "  - %s\n", n)
			}
		}
		return err
	}
	return nil
}

func run(ctx context.Context, opts *options, args []string, in io.Reader, out, errOut io.Writer) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if len(args) > 0 && args[0] != "" {
		cfg.LLM.Model = args[0]
	}
	if len(args) > 1 && args[1] != "" {
		cfg.LLM.BaseURL = args[1]
	}
	if opts.window > 0 {
		cfg.Digest.Window = opts.window
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}

	observability.Setup(cfg.Log.Level, cfg.Log.Format, errOut)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx = observability.WithRunID(ctx, observability.NewRunID())
	log := observability.LoggerFromContext(ctx)

	m := metrics.New()
	defer flushMetrics(ctx, cfg.Metrics, m)

	client, err := source.NewClient(cfg.Fleet, m)
	if err != nil {
		return err
	}
	con := console.New(in, out)
	session, err := llm.NewSession(cfg.LLM, con, m)
	if err != nil {
		return err
	}

	start, end := pipeline.Window(opts.now(), cfg.Digest.Window)
	log.Info("digest window", "start", start.Format(time.DateOnly), "end", end.Format(time.DateOnly))

	res, err := pipeline.Run(ctx, client, start, end)
	if err != nil {
		return err
	}

	if opts.dumpDigest {
		b, err := json.MarshalIndent(res.Digest, "", "  ")
		if err != nil {
			return fmt.Errorf("encode digest: %w", err)
		}
		con.Println(string(b))
	}

	con.Banner(res.Digest)
	log.Info("requesting summary", "model", cfg.LLM.Model)
	if _, err := session.Complete(ctx, llm.BuildDigestPrompt(res.Report)); err != nil {
		return fmt.Errorf("summary: %w", err)
	}
	con.Println()
	con.Rule()

	if opts.noChat {
		return nil
	}
	return con.Chat(ctx, session)
}

func flushMetrics(ctx context.Context, cfg config.MetricsConfig, m *metrics.Metrics) {
	if !cfg.Enable {
		return
	}
	log := observability.LoggerFromContext(ctx)
	log.Info("METRICS SNAPSHOT\n" + m.Dump())
	if err := m.WriteTextfile(cfg.Textfile); err != nil {
		log.Warn("write metrics textfile", "path", cfg.Textfile, "err", err)
	}
}
