package glace

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/hazae41/glace/internal/bundle"
	"github.com/hazae41/glace/internal/cartesian"
	"github.com/hazae41/glace/internal/config"
	"github.com/hazae41/glace/internal/document"
	"github.com/hazae41/glace/internal/foundation/errors"
	"github.com/hazae41/glace/internal/logfields"
	"github.com/hazae41/glace/internal/metrics"
	"github.com/hazae41/glace/internal/pathalg"
	"github.com/hazae41/glace/internal/workspace"
)

// Builder owns the two bundle invokers and the staging directory. It is
// reusable: consecutive builds (watch mode) share the bundler contexts.
// Builds never overlap.
type Builder struct {
	cfg      *config.Config
	root     string
	entries  []string // entry-file mode: the only documents to build
	logger   *slog.Logger
	recorder metrics.Recorder
	observer BuildObserver
	scanner  *document.Scanner

	staging *workspace.Staging
	scratch *workspace.Manager
	client  *bundle.Invoker
	server  *bundle.Invoker

	mu sync.Mutex
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithRecorder injects a metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(b *Builder) {
		if r != nil {
			b.recorder = r
		}
	}
}

// WithObserver adds a build observer.
func WithObserver(o BuildObserver) Option {
	return func(b *Builder) {
		if o == nil {
			return
		}
		if m, ok := b.observer.(multiObserver); ok {
			b.observer = append(m, o)
			return
		}
		b.observer = multiObserver{b.observer, o}
	}
}

// WithEntries restricts the build to the given HTML files. The source root
// becomes their closest common ancestor directory.
func WithEntries(files ...string) Option {
	return func(b *Builder) { b.entries = append(b.entries, files...) }
}

// WithScratchDir sets where server bundles are written. It defaults to a
// directory below the system temp dir derived from the output path.
func WithScratchDir(dir string) Option {
	return func(b *Builder) { b.scratch = workspace.NewPersistentManager(filepath.Dir(dir), filepath.Base(dir)) }
}

// New validates the configuration and prepares the invokers. Nothing is
// written until Build.
func New(cfg *config.Config, opts ...Option) (*Builder, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	b := &Builder{
		cfg:      cfg,
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
		observer: NoopObserver{},
	}
	for _, opt := range opts {
		opt(b)
	}
	b.observer = withRecorder(b.observer, b.recorder)

	root, err := b.resolveRoot()
	if err != nil {
		return nil, err
	}
	b.root = root

	output, err := filepath.Abs(cfg.Output)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryPath, "failed to resolve output").Build()
	}
	if pathalg.Within(output, root) || pathalg.Within(root, output) {
		return nil, errors.ValidationError("input and output must not contain each other").
			WithContext("input", root).
			WithContext("output", output).
			Build()
	}
	b.staging = workspace.NewStaging(output)

	if b.scratch == nil {
		name := "glace-" + uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+output)).String()
		b.scratch = workspace.NewPersistentManager(os.TempDir(), name)
	}

	scanner, err := document.NewScanner(cfg.Directive)
	if err != nil {
		return nil, err
	}
	b.scanner = scanner

	b.client = bundle.New(bundle.Options{
		Platform:    bundle.PlatformBrowser,
		Development: cfg.Mode.Development(),
		Root:        root,
		OutDir:      b.staging.Dir(),
		External:    cfg.External,
		Expand:      func(rel string) []string { return cartesian.Paths(rel, cfg.Params) },
		Logger:      b.logger,
	})
	b.server = bundle.New(bundle.Options{
		Platform:    bundle.PlatformServer,
		Development: cfg.Mode.Development(),
		Root:        root,
		OutDir:      filepath.Join(b.scratch.Path(), "server"),
		External:    cfg.External,
		Logger:      b.logger,
	})
	return b, nil
}

func withRecorder(o BuildObserver, rec metrics.Recorder) BuildObserver {
	if _, noop := rec.(metrics.NoopRecorder); noop {
		return o
	}
	if m, ok := o.(multiObserver); ok {
		return append(m, recorderObserver{rec})
	}
	return multiObserver{o, recorderObserver{rec}}
}

func (b *Builder) resolveRoot() (string, error) {
	if len(b.entries) == 0 {
		root, err := filepath.Abs(b.cfg.Input)
		if err != nil {
			return "", errors.WrapError(err, errors.CategoryPath, "failed to resolve input").Build()
		}
		return root, nil
	}
	abs := make([]string, len(b.entries))
	for i, f := range b.entries {
		p, err := filepath.Abs(f)
		if err != nil {
			return "", errors.WrapError(err, errors.CategoryPath, "failed to resolve entry").WithContext("path", f).Build()
		}
		abs[i] = p
	}
	b.entries = abs
	return pathalg.Ancestor(abs)
}

// Root returns the source root.
func (b *Builder) Root() string { return b.root }

// Output returns the output directory.
func (b *Builder) Output() string { return b.staging.Output() }

// Generated reports whether p lies in a directory the builder writes to.
func (b *Builder) Generated(p string) bool {
	output := b.staging.Output()
	return pathalg.Within(output, p) ||
		pathalg.Within(b.staging.Dir(), p) ||
		pathalg.Within(output+".prev", p)
}

// Build runs one complete build. trigger labels the build in reports and
// events ("cli", "watch", "schedule"). The returned report is never nil.
func (b *Builder) Build(ctx context.Context, trigger string) (*BuildReport, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	report := newBuildReport(uuid.NewString(), trigger)
	report.Mode = string(b.cfg.Mode)
	report.Input = b.root
	report.Output = b.staging.Output()
	logger := b.logger.With(logfields.BuildID(report.BuildID))

	logger.Info("Building...", logfields.Input(b.root), logfields.Output(b.staging.Output()), slog.String("mode", report.Mode))
	b.observer.OnBuildStart(report)

	bs := newBuildState(b, report, logger)
	err := runStages(ctx, bs, pipeline())
	bs.cleanup()
	if err != nil {
		b.staging.Abort()
	}
	report.Warnings = b.client.Warnings() + b.server.Warnings()
	report.finish(err, stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded))
	b.observer.OnBuildComplete(report)

	if err != nil {
		logger.Error("Build failed",
			logfields.Phase(string(report.FailedStage)),
			logfields.Outcome(string(report.Outcome)),
			logfields.Error(err))
		return report, err
	}
	logger.Info("Built", slog.String("summary", report.Summary()), logfields.DurationMS(float64(report.Duration().Milliseconds())))
	return report, nil
}

// Close releases the bundler contexts and the scratch directory.
func (b *Builder) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.client.Dispose()
	b.server.Dispose()
	if err := os.RemoveAll(b.scratch.Path()); err != nil {
		return errors.FileSystemError("failed to remove scratch directory").WithCause(err).WithContext("path", b.scratch.Path()).Build()
	}
	return nil
}
