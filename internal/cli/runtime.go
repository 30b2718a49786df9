package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nhle/notiglow/internal/glow"
	"github.com/nhle/notiglow/internal/model"
	"github.com/nhle/notiglow/internal/resolver"
	"github.com/nhle/notiglow/internal/source/ncdb"
	"github.com/nhle/notiglow/internal/store"
	appsync "github.com/nhle/notiglow/internal/sync"
	"github.com/nhle/notiglow/internal/watch"
)

// runtime holds the wired components shared by the commands.
type runtime struct {
	cfg      *model.Config
	logger   *slog.Logger
	store    *store.SQLiteStore
	reader   *ncdb.Adapter
	monitor  *watch.Monitor
	resolver *resolver.Resolver
}

// openRuntime opens the preferences store and builds the reader, monitor
// and resolver from cfg.
func openRuntime(cfg *model.Config, logger *slog.Logger) (*runtime, error) {
	if dir := filepath.Dir(cfg.Store.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to create store directory", err)
		}
	}

	st, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open preferences store", err)
	}

	res, err := resolver.New(st, cfg.Defaults, logger)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "invalid defaults", err)
	}

	reader := ncdb.NewAdapter(cfg.Source.Path, cfg.Source.ReadTimeout(),
		ncdb.WithLogger(logger.With("component", "reader")))

	monitor := watch.New(cfg.Source.Path,
		watch.WithPollInterval(cfg.Source.PollInterval()),
		watch.WithCoalesce(cfg.Source.Coalesce()),
		watch.WithLogger(logger.With("component", "monitor")),
	)

	return &runtime{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		reader:   reader,
		monitor:  monitor,
		resolver: res,
	}, nil
}

// newTracker wires the tracker to a fresh aggregator. Extra listeners receive
// events after the aggregator has been updated.
func (r *runtime) newTracker(extra ...appsync.Listener) (*appsync.Tracker, *glow.Aggregator) {
	agg := glow.NewAggregator()
	bridge := glow.NewBridge(r.resolver, agg, r.store, r.logger.With("component", "glow"))

	listeners := appsync.Listeners{bridge}
	listeners = append(listeners, extra...)

	tracker := appsync.New(r.reader, r.monitor, listeners,
		appsync.WithLogger(r.logger.With("component", "tracker")),
		appsync.WithReadTimeout(r.cfg.Source.ReadTimeout()),
	)
	return tracker, agg
}

func (r *runtime) Close() {
	if err := r.store.Close(); err != nil {
		r.logger.Error("closing store", "error", err)
	}
}

func sourceLabel(path string) string {
	return fmt.Sprintf("%s (wal: %s)", path, watch.WALPath(path))
}
