// Package watch rebuilds when the source tree changes, and optionally on a
// fixed interval.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hazae41/glace/internal/foundation/errors"
	"github.com/hazae41/glace/internal/logfields"
)

// Triggers passed to BuildFunc.
const (
	TriggerChange   = "watch"
	TriggerSchedule = "schedule"
)

// BuildFunc runs one build. Errors are logged; the watcher keeps going.
type BuildFunc func(ctx context.Context, trigger string) error

// Options configures a Watcher.
type Options struct {
	// Debounce is how long the tree must stay quiet before a rebuild.
	Debounce time.Duration
	// Interval > 0 also rebuilds on a fixed schedule.
	Interval time.Duration
	// Skip prunes paths (the output directory, for instance).
	Skip   func(path string) bool
	Logger *slog.Logger
}

// Watcher feeds filesystem events through a debouncer into a single
// rebuild worker.
type Watcher struct {
	root  string
	build BuildFunc
	opts  Options
	log   *slog.Logger

	requests chan string
}

// New creates a watcher for root.
func New(root string, build BuildFunc, opts Options) *Watcher {
	if opts.Debounce <= 0 {
		opts.Debounce = 300 * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{root: root, build: build, opts: opts, log: logger, requests: make(chan string, 1)}
}

// Run watches until ctx ends.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to create file watcher").Fatal().Build()
	}
	defer func() { _ = fsw.Close() }()
	if err := w.addDirsRecursive(fsw, w.root); err != nil {
		return err
	}

	if w.opts.Interval > 0 {
		sched, err := newScheduler(w.opts.Interval, func() { w.request(TriggerSchedule) })
		if err != nil {
			return err
		}
		sched.Start()
		defer func() {
			if err := sched.Shutdown(); err != nil {
				w.log.Warn("Failed to stop scheduler", logfields.Error(err))
			}
		}()
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.worker(ctx)
	}()
	defer wg.Wait()

	trigger := debounce(w.opts.Debounce, func() { w.request(TriggerChange) })
	w.log.Info("Watching for changes", logfields.Path(w.root), slog.Duration("debounce", w.opts.Debounce))
	for {
		select {
		case <-ctx.Done():
			trigger.Stop()
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(fsw, ev, trigger.Fire)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("Watcher error", logfields.Error(err))
		}
	}
}

// request queues a rebuild. At most one request waits.
func (w *Watcher) request(trigger string) {
	select {
	case w.requests <- trigger:
	default:
	}
}

// worker runs builds one at a time. Requests arriving during a build are
// coalesced into one follow-up build.
func (w *Watcher) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case trigger := <-w.requests:
			w.log.Info("Change detected; rebuilding", slog.String("trigger", trigger))
			if err := w.build(ctx, trigger); err != nil {
				w.log.Warn("Rebuild failed", logfields.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, ev fsnotify.Event, trigger func()) {
	if ShouldIgnore(ev.Name) || (w.opts.Skip != nil && w.opts.Skip(ev.Name)) {
		return
	}
	if ev.Op.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = w.addDirsRecursive(fsw, ev.Name)
		}
	}
	w.log.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	trigger()
}

func (w *Watcher) addDirsRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return errors.NotFoundError("watch root not found").WithCause(err).WithContext("path", p).Build()
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && (ShouldIgnore(p) || (w.opts.Skip != nil && w.opts.Skip(p))) {
			return filepath.SkipDir
		}
		if err := fsw.Add(p); err != nil {
			w.log.Warn("Watch add failed", logfields.Path(p), logfields.Error(err))
		}
		return nil
	})
}

// ShouldIgnore reports whether an event for path must not trigger a rebuild:
// hidden files (including inline element files written during a build),
// editor swap files and OS metadata files.
func ShouldIgnore(path string) bool {
	base := filepath.Base(path)
	switch {
	case strings.HasPrefix(base, "."):
		return true
	case strings.HasSuffix(base, "~"),
		strings.HasSuffix(base, ".swp"),
		strings.HasSuffix(base, ".swx"),
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#"):
		return true
	case base == "Thumbs.db":
		return true
	}
	return false
}
