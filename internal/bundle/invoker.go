// Package bundle adapts the esbuild Go API into a register-then-run invoker:
// inputs are registered and receive a planned output path immediately, one
// bundling pass then resolves them all.
package bundle

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/hazae41/glace/internal/digest"
	ferrors "github.com/hazae41/glace/internal/foundation/errors"
	"github.com/hazae41/glace/internal/logfields"
	"github.com/hazae41/glace/internal/pathalg"
)

// Options configures one invoker.
type Options struct {
	Platform    Platform
	Development bool
	// Root is the source root. Inputs must lie below it and output paths
	// mirror their position relative to it.
	Root string
	// OutDir receives persisted artifacts.
	OutDir   string
	External []string
	// Expand materializes an output path relative to OutDir into concrete
	// paths. Nil writes every path as is.
	Expand func(rel string) []string
	Logger *slog.Logger
}

// Ticket identifies one registration. It is only valid for the build it was
// issued in.
type Ticket struct {
	ID      int
	Input   string
	Planned string
	Naming  Naming
	build   int
}

// Artifact is one resolved output.
type Artifact struct {
	Input string
	// Path is the persisted location below OutDir. It may still contain
	// parameter placeholders when the input lives in a templated directory.
	Path   string
	Data   []byte
	Digest digest.Hash
}

type entry struct {
	input   string
	planned string
	namings map[Naming]bool
}

type resolved struct {
	data   []byte
	digest digest.Hash
}

// Invoker owns one esbuild context for one platform.
type Invoker struct {
	opts   Options
	logger *slog.Logger

	mu         sync.Mutex
	build      int
	nextID     int
	entries    map[string]*entry
	generation int
	ranGen     int
	results    map[string]resolved
	artifacts  []Artifact
	warnings   int

	ctx    api.BuildContext
	ctxKey string
	// written remembers the digest last persisted at each path.
	written map[string]digest.Hash
}

// New creates an idle invoker.
func New(opts Options) *Invoker {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Invoker{
		opts:    opts,
		logger:  logger.With(logfields.Platform(string(opts.Platform))),
		entries: make(map[string]*entry),
		ranGen:  -1,
		written: make(map[string]digest.Hash),
	}
}

// Platform returns the invoker's target platform.
func (iv *Invoker) Platform() Platform { return iv.opts.Platform }

// OutDir returns the directory artifacts are written to.
func (iv *Invoker) OutDir() string { return iv.opts.OutDir }

// Reset forgets every registration and result so the invoker can serve a new
// build. The compiled esbuild context is kept for reuse.
func (iv *Invoker) Reset() {
	iv.mu.Lock()
	defer iv.mu.Unlock()
	iv.build++
	iv.entries = make(map[string]*entry)
	iv.results = nil
	iv.artifacts = nil
	iv.warnings = 0
	iv.generation = 0
	iv.ranGen = -1
}

// Plan returns the planned output path for input without registering it.
func (iv *Invoker) Plan(input string) (string, error) {
	abs, err := filepath.Abs(input)
	if err != nil {
		return "", err
	}
	if !pathalg.Within(iv.opts.Root, abs) {
		return "", ferrors.ErrOutOfBoundReference.
			WithContext("input", abs).
			WithContext("root", iv.opts.Root)
	}
	ext := OutputExt(abs)
	if ext == "" {
		return "", ferrors.ValidationError("not a bundleable file").WithContext("input", abs).Build()
	}
	rel, err := filepath.Rel(iv.opts.Root, abs)
	if err != nil {
		return "", err
	}
	return filepath.Join(iv.opts.OutDir, strings.TrimSuffix(rel, filepath.Ext(rel))+ext), nil
}

// Register adds input to the next pass and returns its planned output. Any
// registration that changes the input set invalidates the previous pass.
func (iv *Invoker) Register(input string, naming Naming) (Ticket, error) {
	planned, err := iv.Plan(input)
	if err != nil {
		return Ticket{}, err
	}
	abs, _ := filepath.Abs(input)

	iv.mu.Lock()
	defer iv.mu.Unlock()
	e, ok := iv.entries[abs]
	if !ok {
		e = &entry{input: abs, planned: planned, namings: map[Naming]bool{}}
		iv.entries[abs] = e
		iv.generation++
	}
	if !e.namings[naming] {
		e.namings[naming] = true
		iv.generation++
	}
	iv.nextID++
	return Ticket{ID: iv.nextID, Input: abs, Planned: planned, Naming: naming, build: iv.build}, nil
}

// Inputs returns the registered inputs in sorted order.
func (iv *Invoker) Inputs() []string {
	iv.mu.Lock()
	defer iv.mu.Unlock()
	return iv.sortedInputs()
}

func (iv *Invoker) sortedInputs() []string {
	out := make([]string, 0, len(iv.entries))
	for k := range iv.entries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Ran reports whether a pass has run since the last registration.
func (iv *Invoker) Ran() bool {
	iv.mu.Lock()
	defer iv.mu.Unlock()
	return iv.ranGen == iv.generation
}

// Warnings returns the number of warnings reported by the last pass.
func (iv *Invoker) Warnings() int {
	iv.mu.Lock()
	defer iv.mu.Unlock()
	return iv.warnings
}

// Output resolves a ticket. It fails with ErrOutputNotFound when the pass has
// not run since the input set last changed or the ticket is unknown.
func (iv *Invoker) Output(t Ticket) (Artifact, error) {
	iv.mu.Lock()
	defer iv.mu.Unlock()
	notFound := func(reason string) error {
		return ferrors.ErrOutputNotFound.
			WithContext("input", t.Input).
			WithContext("platform", string(iv.opts.Platform)).
			WithContext("reason", reason)
	}
	if t.build != iv.build {
		return Artifact{}, notFound("ticket from another build")
	}
	e, ok := iv.entries[t.Input]
	if !ok || !e.namings[t.Naming] {
		return Artifact{}, notFound("input not registered")
	}
	if iv.ranGen != iv.generation {
		return Artifact{}, notFound("pass has not run since registration")
	}
	r, ok := iv.results[t.Input]
	if !ok {
		return Artifact{}, notFound("no output for input")
	}
	return Artifact{Input: t.Input, Path: finalPath(e.planned, t.Naming, r.data), Data: r.data, Digest: r.digest}, nil
}

// Artifacts returns every artifact persisted by the last pass.
func (iv *Invoker) Artifacts() []Artifact {
	iv.mu.Lock()
	defer iv.mu.Unlock()
	return append([]Artifact(nil), iv.artifacts...)
}

// Dispose releases the esbuild context.
func (iv *Invoker) Dispose() {
	iv.mu.Lock()
	defer iv.mu.Unlock()
	if iv.ctx != nil {
		iv.ctx.Dispose()
		iv.ctx = nil
		iv.ctxKey = ""
	}
}

func finalPath(planned string, naming Naming, data []byte) string {
	if naming == NamingHashed {
		return digest.Rename(planned, data)
	}
	return planned
}

func formatMessage(m api.Message) string {
	if m.Location == nil {
		return m.Text
	}
	return fmt.Sprintf("%s:%d:%d: %s", m.Location.File, m.Location.Line, m.Location.Column, m.Text)
}

func (iv *Invoker) failed(msgs []api.Message) error {
	for _, m := range msgs {
		iv.logger.Error("Bundler error", "message", formatMessage(m))
	}
	first := "unknown error"
	if len(msgs) > 0 {
		first = formatMessage(msgs[0])
	}
	return ferrors.Wrap(ferrors.ErrBundleFailed, stderrors.New(first)).
		WithContext("platform", string(iv.opts.Platform)).
		WithContext("errors", len(msgs)).
		Build()
}

func (iv *Invoker) writeFile(path string, data []byte, sum digest.Hash) (bool, error) {
	if prev, ok := iv.written[path]; ok && prev == sum {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, err
	}
	iv.written[path] = sum
	return true, nil
}
