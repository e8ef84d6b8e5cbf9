package commands

import (
	"context"
	"log/slog"

	"github.com/hazae41/glace/internal/logfields"
	"github.com/hazae41/glace/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	BuildFlags
	WatchDir string `name:"watch-dir" help:"Directory to watch (defaults to the input root)" type:"path"`
}

func (w *WatchCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	entries, err := w.apply(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	s, err := newSession(ctx, cfg, entries)
	if err != nil {
		return err
	}
	defer s.close()
	s.serveMetrics(ctx, cfg.Metrics.Addr)

	build := func(ctx context.Context, trigger string) error {
		report, err := s.builder.Build(ctx, trigger)
		if err != nil {
			return err
		}
		slog.Info("Site written", logfields.Output(s.builder.Output()), logfields.Outcome(string(report.Outcome)))
		return nil
	}

	// A failed first build is reported; the next change retries.
	if err := build(ctx, TriggerCLI); err != nil {
		slog.Error("Initial build failed", logfields.Error(err))
	}

	dir := w.WatchDir
	if dir == "" {
		dir = s.builder.Root()
	}
	watcher := watch.New(dir, build, watch.Options{
		Debounce: cfg.Watch.Debounce,
		Interval: cfg.Watch.Interval,
		Skip:     s.builder.Generated,
		Logger:   slog.Default(),
	})
	slog.Info("Watching for changes", logfields.Path(dir))
	return watcher.Run(ctx)
}
