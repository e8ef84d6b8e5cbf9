package commands

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/hazae41/glace/internal/config"
	"github.com/hazae41/glace/internal/eventstore"
	"github.com/hazae41/glace/internal/glace"
	"github.com/hazae41/glace/internal/logfields"
	"github.com/hazae41/glace/internal/metrics"
	"github.com/hazae41/glace/internal/tracing"
)

// Global is shared with every subcommand.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config    string           `short:"c" help:"Configuration file path (optional)" type:"path"`
	Verbose   bool             `short:"v" help:"Enable verbose logging"`
	LogFormat string           `name:"log-format" help:"Log output format (text|json)"`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" default:"withargs" help:"Build the site once"`
	Watch   WatchCmd   `cmd:"" help:"Build, then rebuild whenever the source tree changes"`
	History HistoryCmd `cmd:"" help:"Show recent builds from the event log"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(newLogger(os.Stderr, config.NormalizeLogFormat(c.LogFormat), level))
	return nil
}

func newLogger(w io.Writer, format config.LogFormat, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// loadConfig reads the configuration and re-applies logging from it unless
// the command line already asked for something explicit.
func (c *CLI) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}
	if !c.Verbose && c.LogFormat == "" {
		slog.SetDefault(newLogger(os.Stderr, cfg.Log.Format, cfg.Log.Level.SlogLevel()))
	}
	return cfg, nil
}

// BuildFlags are shared by build and watch.
type BuildFlags struct {
	Inputs []string `arg:"" optional:"" help:"Input directory, or HTML entry files" type:"path"`
	Out    string   `short:"o" help:"Output directory" type:"path"`
	Dev    bool     `help:"Development mode: no minification, inline source maps"`
}

// apply overlays the flags on cfg and returns the entry files, if any.
func (f *BuildFlags) apply(cfg *config.Config) ([]string, error) {
	var entries []string
	for _, in := range f.Inputs {
		info, err := os.Stat(in)
		if err == nil && info.IsDir() {
			cfg.Input = in
			continue
		}
		entries = append(entries, in)
	}
	if f.Out != "" {
		cfg.Output = f.Out
	}
	if f.Dev {
		cfg.Mode = config.ModeDevelopment
	}
	if len(entries) > 0 {
		// entry mode validates against the common ancestor inside glace.New
		return entries, nil
	}
	return nil, cfg.Validate()
}

// session bundles the optional sinks around a builder.
type session struct {
	builder  *glace.Builder
	journal  *eventstore.Journal
	registry *prom.Registry
	tracer   *sdktrace.TracerProvider
}

func newSession(ctx context.Context, cfg *config.Config, entries []string) (*session, error) {
	s := &session{}
	opts := []glace.Option{glace.WithLogger(slog.Default())}
	if len(entries) > 0 {
		opts = append(opts, glace.WithEntries(entries...))
	}

	if cfg.Metrics.Enabled {
		s.registry = prom.NewRegistry()
		opts = append(opts, glace.WithRecorder(metrics.NewPrometheusRecorder(s.registry)))
	}

	if journal := openJournal(ctx, cfg); journal != nil {
		s.journal = journal
		opts = append(opts, glace.WithObserver(glace.JournalObserver{Journal: journal}))
	}

	tp, err := tracing.NewProvider(ctx, cfg.Tracing, os.Stderr)
	if err != nil {
		s.close()
		return nil, err
	}
	if tp != nil {
		s.tracer = tp
		opts = append(opts, glace.WithObserver(glace.NewTracingObserver(tp.Tracer(tracing.InstrumentationName))))
	}

	b, err := glace.New(cfg, opts...)
	if err != nil {
		s.close()
		return nil, err
	}
	s.builder = b
	return s, nil
}

// openJournal wires the configured event sinks. Sink failures only warn.
func openJournal(ctx context.Context, cfg *config.Config) *eventstore.Journal {
	var store eventstore.Store
	if cfg.Events.SQLite != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Events.SQLite), 0o750); err != nil {
			slog.Warn("Cannot create event log directory", logfields.Error(err))
		} else if st, err := eventstore.NewSQLiteStore(cfg.Events.SQLite); err != nil {
			slog.Warn("Event log disabled", logfields.Error(err))
		} else {
			store = st
		}
	}
	var publisher eventstore.Publisher
	if cfg.Events.NATSURL != "" {
		p, err := eventstore.NewNATSPublisher(ctx, cfg.Events.NATSURL, cfg.Events.NATSSubject)
		if err != nil {
			slog.Warn("Event publishing disabled", logfields.Error(err))
		} else {
			publisher = p
		}
	}
	if store == nil && publisher == nil {
		return nil
	}
	return eventstore.NewJournal(store, publisher, slog.Default())
}

// serveMetrics exposes the registry in the background until ctx is done.
func (s *session) serveMetrics(ctx context.Context, addr string) {
	if s.registry == nil {
		return
	}
	go func() {
		if err := metrics.Serve(ctx, addr, s.registry); err != nil {
			slog.Warn("Metrics server stopped", logfields.Error(err))
		}
	}()
}

func (s *session) close() {
	if s.builder != nil {
		if err := s.builder.Close(); err != nil {
			slog.Warn("Failed to release builder", logfields.Error(err))
		}
	}
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			slog.Warn("Failed to close event log", logfields.Error(err))
		}
	}
	if s.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.tracer.Shutdown(ctx); err != nil {
			slog.Warn("Failed to flush traces", logfields.Error(err))
		}
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
