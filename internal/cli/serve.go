package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/rewind/internal/config"
	"github.com/roach88/rewind/internal/devserver"
	"github.com/roach88/rewind/internal/devtools"
	"github.com/roach88/rewind/internal/harness"
	"github.com/roach88/rewind/internal/journal"
	"github.com/roach88/rewind/internal/relay"
	"github.com/roach88/rewind/internal/telemetry"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Config  string
	Addr    string // overrides devserver.addr
	NoSteps bool   // ignore stdin
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve <scenario>",
		Short: "Serve a scenario's store to a live inspector",
		Long: `Build the store a scenario describes and serve it to devtools inspectors.

The scenario's steps are not run. Instead, steps are read from stdin as
JSON lines and applied as they arrive, for example:

  {"dispatch":"increment"}
  {"dispatch":"add_todo","payload":{"text":"ship it"}}
  {"navigate":"/settings"}

Inspectors connect over WebSocket at /devtools, or over Redis when the
config has a redis block. Delivered messages are journaled when the
config has a journal block. Runs until interrupted.

Examples:
  rewind serve ./scenarios/todos.yaml
  rewind serve ./scenarios/todos.yaml --config ./rewind.yml
  rewind serve ./scenarios/todos.yaml --addr 127.0.0.1:9000 --no-steps`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "path to rewind.yml")
	cmd.Flags().StringVar(&opts.Addr, "addr", "", "devtools server address (overrides the config)")
	cmd.Flags().BoolVar(&opts.NoSteps, "no-steps", false, "do not read steps from stdin")

	return cmd
}

func runServe(opts *ServeOptions, path string, cmd *cobra.Command) error {
	cfg := config.Default()
	if opts.Config != "" {
		var err error
		cfg, err = config.Load(opts.Config)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load config", err)
		}
	}
	if opts.Addr != "" {
		cfg.DevServer.Addr = opts.Addr
	}
	configureLogging(opts.RootOptions, cfg.Log.Level, cfg.Log.Format)

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var steps io.Reader
	if !opts.NoSteps {
		steps = cmd.InOrStdin()
	}
	if err := serve(ctx, cfg, scenario, steps, slog.Default()); err != nil {
		return WrapExitError(ExitCommandError, "serve failed", err)
	}
	return nil
}

// serve runs a scenario's store behind the devtools server, and the relay
// and journal when configured, until ctx is cancelled or the server fails.
func serve(ctx context.Context, cfg *config.Config, scenario *harness.Scenario, steps io.Reader, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	bridge := devtools.New(
		devtools.WithLogger(logger),
		devtools.WithSendTimeout(cfg.DevTools.SendTimeout),
	)
	defer bridge.Stop()

	tracing, err := telemetry.New()
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	metrics := telemetry.NewMetrics()
	if err := metrics.WatchBridge(bridge); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	inst, err := harness.NewInstance(ctx, scenario,
		harness.WithLogger(logger),
		harness.WithBridge(bridge),
		harness.WithMiddleware(
			telemetry.Middleware[harness.State](tracing),
			telemetry.PrometheusMiddleware[harness.State](metrics),
		),
	)
	if err != nil {
		return fmt.Errorf("build store: %w", err)
	}
	defer inst.Close()

	if err := metrics.WatchHistory(scenario.Name, inst.Store.HistoryLen); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	srv := devserver.New(bridge,
		devserver.WithHistory(devserver.HistoryOf(inst.Store)),
		devserver.WithMetrics(metrics),
		devserver.WithLogger(logger),
	)
	transports := devtools.Fanout{inspectors(srv)}

	if cfg.Redis != nil {
		r, err := relay.New(cfg.Redis.Options(), cfg.Redis.Instance, logger)
		if err != nil {
			return fmt.Errorf("relay: %w", err)
		}
		defer r.Close()
		if err := r.Ping(ctx); err != nil {
			return fmt.Errorf("relay: %w", err)
		}
		sub, err := r.Listen(ctx, bridge)
		if err != nil {
			return fmt.Errorf("relay: %w", err)
		}
		defer sub.Close()
		go func() {
			// The relay logs rejected commands itself.
			for range sub.Errors() {
			}
		}()
		transports = append(transports, r)
		logger.Info("devtools relay connected", "addr", cfg.Redis.Addr, "instance", r.Instance())
	}

	if cfg.Journal != nil {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return fmt.Errorf("journal: %w", err)
		}
		defer j.Close()
		name := cfg.Journal.Session
		if name == "" {
			name = scenario.Name
		}
		session, err := j.NewSession(ctx, name)
		if err != nil {
			return fmt.Errorf("journal: %w", err)
		}
		transports = append(transports, session)
		logger.Info("journal session started", "path", cfg.Journal.Path, "session", session.ID)
	}

	pumpDone := make(chan error, 1)
	go func() {
		pumpDone <- bridge.Run(ctx, transports)
	}()

	srvDone := make(chan error, 1)
	go func() {
		srvDone <- srv.ListenAndServe(ctx, cfg.DevServer.Addr)
	}()

	if steps != nil {
		go applySteps(ctx, inst, steps, logger)
	}

	var srvErr error
	select {
	case srvErr = <-srvDone:
	case <-ctx.Done():
		srvErr = <-srvDone
	}
	cancel()
	<-pumpDone

	if srvErr != nil {
		return fmt.Errorf("devtools server: %w", srvErr)
	}
	return nil
}

// inspectors adapts the server so a missing inspector is not counted as a
// delivery failure. The bridge only releases messages after a ready, which
// may come over the relay while no WebSocket is connected.
func inspectors(srv *devserver.Server) devtools.Transport {
	return devtools.TransportFunc(func(ctx context.Context, msg devtools.Message) error {
		err := srv.Send(ctx, msg)
		if errors.Is(err, devserver.ErrNoInspector) {
			return nil
		}
		return err
	})
}

// applySteps applies JSON-line steps from r until EOF or cancellation.
// Bad lines and failed steps are logged and skipped.
func applySteps(ctx context.Context, inst *harness.Instance, r io.Reader, logger *slog.Logger) {
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		if ctx.Err() != nil {
			return
		}
		text := scanner.Bytes()
		if len(text) == 0 {
			continue
		}

		var step harness.Step
		if err := json.Unmarshal(text, &step); err != nil {
			logger.Warn("invalid step", "line", line, "error", err)
			continue
		}
		if err := inst.Apply(ctx, step); err != nil {
			logger.Warn("step failed", "line", line, "kind", step.Kind(), "error", err)
			continue
		}
		logger.Debug("step applied", "line", line, "kind", step.Kind())
	}
	if err := scanner.Err(); err != nil {
		logger.Warn("reading steps", "error", err)
	}
}
