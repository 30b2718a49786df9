package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/notiglow/internal/app"
	"github.com/nhle/notiglow/internal/model"
	appsync "github.com/nhle/notiglow/internal/sync"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Headless bool
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Monitor notifications and glow in their colors",
		Long: `Start a monitoring session. New notifications light up the glow in
their application's color until they are dismissed.

Example:
  notiglow watch
  notiglow watch --headless --verbose`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if opts.Headless {
				return runHeadless(cmd.Context(), opts, cfg)
			}
			return runTUI(opts, cfg)
		},
	}

	cmd.Flags().BoolVar(&opts.Headless, "headless", false, "log events instead of drawing the terminal UI")

	return cmd
}

func runTUI(opts *WatchOptions, cfg *model.Config) error {
	logFile, err := openLogFile(model.DefaultLogPath())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open log file", err)
	}
	defer logFile.Close()
	logger := newLogger(logFile, parseLevel(cfg.Log.Level, opts.Verbose))

	rt, err := openRuntime(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	sink := app.NewEventSink(rt.resolver, logger)
	tracker, agg := rt.newTracker(sink)
	agg.Subscribe(sink.OnActiveColors)
	defer tracker.StopMonitoring()

	m := app.New(tracker, agg, sink, cfg.Display)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return WrapExitError(ExitFailure, "terminal UI failed", err)
	}
	return nil
}

func runHeadless(parent context.Context, opts *WatchOptions, cfg *model.Config) error {
	logger := newLogger(os.Stderr, parseLevel(cfg.Log.Level, opts.Verbose))

	rt, err := openRuntime(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	events := appsync.ListenerFuncs{
		Added: func(n model.Notification) {
			logger.Info("notification added", "id", n.ID, "app", n.SourceID, "label", n.Label())
		},
		Removed: func(id int64) {
			logger.Info("notification removed", "id", id)
		},
		AccessChanged: func(hasAccess bool) {
			logger.Info("access changed", "readable", hasAccess)
		},
	}
	tracker, agg := rt.newTracker(events)
	agg.Subscribe(func(colors []model.RGB) {
		hexes := make([]string, len(colors))
		for i, c := range colors {
			hexes[i] = c.Hex()
		}
		logger.Info("glow", "colors", hexes)
	})

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := tracker.StartMonitoring(ctx); err != nil {
		if errors.Is(err, appsync.ErrNoAccess) {
			return WrapExitError(ExitNoAccess, "cannot read "+sourceLabel(cfg.Source.Path), err)
		}
		return WrapExitError(ExitFailure, "failed to start monitoring", err)
	}
	logger.Info("monitoring started", "session", tracker.SessionID(), "path", cfg.Source.Path)

	<-ctx.Done()
	tracker.StopMonitoring()
	logger.Info("monitoring stopped",
		slog.Int("events", tracker.SessionEventCount()),
		slog.String("session", tracker.SessionID()))
	return nil
}
