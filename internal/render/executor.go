// Package render executes server-targeted bundles at build time.
//
// All modules share one JavaScript runtime and one set of ambient globals
// (window, document, location). An Executor serializes access to that surface:
// a context is installed, exactly one module runs against it, and the globals
// are removed again before the next caller is admitted.
package render

import (
	"context"
	"log/slog"
	"path"
	"sync/atomic"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/require"
	"golang.org/x/sync/semaphore"

	"github.com/hazae41/glace/internal/document"
	ferrors "github.com/hazae41/glace/internal/foundation/errors"
	"github.com/hazae41/glace/internal/logfields"
)

// ambient lists the globals installed for the duration of one execution.
var ambient = []string{"window", "document", "location"}

// Context is what a module observes while it runs.
type Context struct {
	// Document is the page being rendered. Nil for standalone prerenders.
	Document *document.Document
	// Location is the href exposed as window.location, usually
	// "file://<output path>?<params>".
	Location string
	Params   map[string]string
}

// Executor owns the shared runtime. It is scoped to one build.
type Executor struct {
	sem      *semaphore.Weighted
	vm       *goja.Runtime
	require  goja.Value
	logger   *slog.Logger
	executed atomic.Int64
}

// NewExecutor creates a runtime with the node-style require registry and
// console installed.
func NewExecutor(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	vm := goja.New()
	registry := require.NewRegistry()
	registry.Enable(vm)
	console.Enable(vm)
	req := vm.Get("require")
	_ = vm.Set("__glaceRequire", req)
	return &Executor{
		sem:     semaphore.NewWeighted(1),
		vm:      vm,
		require: req,
		logger:  logger,
	}
}

// Executed returns how many modules ran.
func (e *Executor) Executed() int64 { return e.executed.Load() }

// WithContext waits for exclusive use of the runtime, installs ec as the
// ambient globals and calls fn. The globals are removed and the lock released
// when fn returns, fails or panics. Waiters are admitted in FIFO order.
func (e *Executor) WithContext(ctx context.Context, ec Context, fn func(vm *goja.Runtime) error) error {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer e.sem.Release(1)

	if err := e.install(ec); err != nil {
		e.teardown()
		return err
	}
	defer e.teardown()
	return fn(e.vm)
}

func (e *Executor) install(ec Context) error {
	loc, err := newLocation(e.vm, ec.Location)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryRender, "invalid location").
			Fatal().WithContext("location", ec.Location).Build()
	}
	win := e.vm.NewObject()
	var doc goja.Value = goja.Null()
	if ec.Document != nil {
		doc = newDocumentFacade(e.vm, ec.Document, ec.Location)
	}
	params := e.vm.NewObject()
	for k, v := range ec.Params {
		_ = params.Set(k, v)
	}
	_ = win.Set("window", win)
	_ = win.Set("self", win)
	_ = win.Set("document", doc)
	_ = win.Set("location", loc)
	_ = win.Set("params", params)

	global := e.vm.GlobalObject()
	for _, kv := range []struct {
		k string
		v goja.Value
	}{{"window", win}, {"document", doc}, {"location", loc}} {
		if err := global.Set(kv.k, kv.v); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) teardown() {
	global := e.vm.GlobalObject()
	for _, k := range ambient {
		_ = global.Delete(k)
	}
	e.vm.ClearInterrupt()
}

// Render evaluates code, a CommonJS bundle, under ec and returns the markup
// its default (or "render") export produces. The export may be a string, or
// a function returning a string or a promise of one; functions receive the
// window object. A module exporting nothing renders the empty string.
func (e *Executor) Render(ctx context.Context, ec Context, filename string, code []byte) (string, error) {
	var markup string
	err := e.WithContext(ctx, ec, func(vm *goja.Runtime) error {
		started := e.executed.Add(1)
		e.logger.Debug("Executing static module", logfields.Path(filename), logfields.Count(int(started)))

		exports, err := e.load(vm, filename, code)
		if err != nil {
			return err
		}
		out, err := e.invoke(vm, exports)
		if err != nil {
			return err
		}
		markup = out
		return nil
	})
	if err != nil {
		if _, ok := ferrors.AsClassified(err); ok {
			return "", err
		}
		return "", ferrors.WrapError(err, ferrors.CategoryRender, "static module failed").
			Fatal().WithContext("module", filename).Build()
	}
	return markup, nil
}

// load runs code inside a CommonJS wrapper and returns module.exports.
func (e *Executor) load(vm *goja.Runtime, filename string, code []byte) (goja.Value, error) {
	src := "(function (exports, require, module, __filename, __dirname) {" + string(code) + "\n})"
	prg, err := goja.Compile(filename, src, false)
	if err != nil {
		return nil, err
	}
	wrapperVal, err := vm.RunProgram(prg)
	if err != nil {
		return nil, err
	}
	wrapper, ok := goja.AssertFunction(wrapperVal)
	if !ok {
		return nil, ferrors.InternalError("module wrapper is not callable").Build()
	}
	module := vm.NewObject()
	exports := vm.NewObject()
	_ = module.Set("exports", exports)
	_, err = wrapper(goja.Undefined(), exports, e.require, module,
		vm.ToValue(filename), vm.ToValue(path.Dir(filename)))
	if err != nil {
		return nil, err
	}
	return module.Get("exports"), nil
}

func (e *Executor) invoke(vm *goja.Runtime, exports goja.Value) (string, error) {
	target := exports
	if obj, ok := exports.(*goja.Object); ok {
		if _, callable := goja.AssertFunction(obj); !callable {
			target = obj.Get("default")
			if isNullish(target) {
				target = obj.Get("render")
			}
		}
	}
	if isNullish(target) {
		return "", nil
	}
	if fn, ok := goja.AssertFunction(target); ok {
		out, err := fn(goja.Undefined(), vm.Get("window"))
		if err != nil {
			return "", err
		}
		target = out
	}
	return settle(target)
}

// settle unwraps a promise. Jobs queued by the call have already run when
// control returns to Go, so a still-pending promise never resolves.
func settle(v goja.Value) (string, error) {
	if p, ok := v.Export().(*goja.Promise); ok {
		switch p.State() {
		case goja.PromiseStateFulfilled:
			v = p.Result()
		case goja.PromiseStateRejected:
			return "", ferrors.RenderError("static module rejected").
				WithContext("reason", p.Result().String()).Build()
		default:
			return "", ferrors.RenderError("static module returned a pending promise").Build()
		}
	}
	if isNullish(v) {
		return "", nil
	}
	return v.String(), nil
}

func isNullish(v goja.Value) bool {
	return v == nil || goja.IsUndefined(v) || goja.IsNull(v)
}
