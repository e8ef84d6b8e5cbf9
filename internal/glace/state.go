package glace

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/hazae41/glace/internal/bundle"
	"github.com/hazae41/glace/internal/cartesian"
	"github.com/hazae41/glace/internal/document"
	"github.com/hazae41/glace/internal/foundation/errors"
	"github.com/hazae41/glace/internal/logfields"
	"github.com/hazae41/glace/internal/render"
	"github.com/hazae41/glace/internal/walk"
)

// buildState carries mutable state across the stages of one build.
type buildState struct {
	b      *Builder
	report *BuildReport
	logger *slog.Logger

	ignore   *walk.Ignore
	entries  []walk.Entry
	executor *render.Executor

	copied     map[string]bool // source paths copied byte-for-byte
	docs       []*docTask
	prerenders []*prerenderTask

	rendered    atomic.Int64
	prerendered atomic.Int64
	skipped     atomic.Int64

	mu        sync.Mutex
	synthetic map[string]bool // inline element files written into the source tree
}

func newBuildState(b *Builder, report *BuildReport, logger *slog.Logger) *buildState {
	return &buildState{
		b:         b,
		report:    report,
		logger:    logger,
		copied:    make(map[string]bool),
		synthetic: make(map[string]bool),
	}
}

// docTask is one document under one parameter assignment.
type docTask struct {
	src        string // absolute source path
	rel        string // resolved output path relative to the output root
	assignment cartesian.Assignment
	out        string // absolute path in staging
	final      string // absolute path in the output directory
	doc        *document.Document
	state      document.State
	assets     []*assetTask
	// integrity maps module script links to their integrity for the import map.
	integrity map[string]string
}

// assetTask is one directive-bearing element of a document.
type assetTask struct {
	document.Asset
	input  string // absolute path of the referenced or synthetic file
	client *bundle.Ticket
	server *bundle.Ticket
}

// prerenderTask executes a standalone server bundle into a file.
type prerenderTask struct {
	entry      walk.Entry
	ticket     bundle.Ticket
	assignment cartesian.Assignment
	out        string
	final      string
}

// advance moves t forward by exactly one state.
func (t *docTask) advance(to document.State) error {
	if t.state.Next() != to || t.state == to {
		return errors.InternalError("document state out of order").
			WithContext("document", t.src).
			WithContext("from", t.state.String()).
			WithContext("to", to.String()).
			Build()
	}
	t.state = to
	return nil
}

// group returns an errgroup bounded by the configured concurrency.
func (bs *buildState) group(ctx context.Context) (*errgroup.Group, context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bs.b.cfg.Concurrency)
	return g, gctx
}

// forEachDoc runs fn for every document concurrently and waits for all of
// them. It is the barrier between two phases.
func (bs *buildState) forEachDoc(ctx context.Context, fn func(context.Context, *docTask) error) error {
	g, gctx := bs.group(ctx)
	for _, t := range bs.docs {
		g.Go(func() error { return fn(gctx, t) })
	}
	return g.Wait()
}

func (bs *buildState) matchesPrerender(rel string) bool {
	for _, p := range bs.b.cfg.Prerender {
		if doublestar.MatchUnvalidated(p, rel) {
			return true
		}
	}
	return false
}

// writeSynthetic writes data at p once per build.
func (bs *buildState) writeSynthetic(p string, data []byte) error {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	if bs.synthetic[p] {
		return nil
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return errors.FileSystemError("failed to write inline element").WithCause(err).WithContext("path", p).Build()
	}
	bs.synthetic[p] = true
	return nil
}

// cleanup removes every synthetic file from the source tree.
func (bs *buildState) cleanup() {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	for p := range bs.synthetic {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			bs.logger.Warn("Failed to remove inline element file", logfields.Path(p), logfields.Error(err))
		}
	}
	bs.synthetic = make(map[string]bool)
}
