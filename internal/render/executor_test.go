package render

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazae41/glace/internal/document"
	ferrors "github.com/hazae41/glace/internal/foundation/errors"
)

func TestRenderExports(t *testing.T) {
	e := NewExecutor(nil)
	ctx := context.Background()
	d, err := document.Parse(strings.NewReader(`<html lang="en"><head><title>Home</title></head><body><h1 id="t">x</h1></body></html>`), "file:///src/index.html")
	require.NoError(t, err)
	ec := Context{Document: d, Location: "file:///dst/en/index.html?locale=en", Params: map[string]string{"locale": "en"}}

	tests := []struct {
		name string
		code string
		want string
	}{
		{"string default", `exports.default = "<p>static</p>"`, "<p>static</p>"},
		{"function default", `exports.default = function (w) { return "<p>" + w.params.locale + "</p>" }`, "<p>en</p>"},
		{"render export", `exports.render = () => "<i>" + document.title + "</i>"`, "<i>Home</i>"},
		{"module.exports function", `module.exports = () => location.searchParams.get("locale")`, "en"},
		{"async function", `exports.default = async () => { await null; return document.querySelector("#t").textContent }`, "x"},
		{"no export", `var x = 1`, ""},
		{"lang and pathname", `exports.default = () => document.documentElement.lang + location.pathname`, "en/dst/en/index.html"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Render(ctx, ec, "/tmp/mod.js", []byte(tt.code))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, int64(len(tests)), e.Executed())
}

func TestRenderFailures(t *testing.T) {
	e := NewExecutor(nil)
	ctx := context.Background()
	ec := Context{Location: "file:///dst/index.html"}

	_, err := e.Render(ctx, ec, "throw.js", []byte(`throw new Error("boom")`))
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryRender))
	assert.Contains(t, err.Error(), "boom")

	_, err = e.Render(ctx, ec, "reject.js", []byte(`exports.default = () => Promise.reject("nope")`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected")

	_, err = e.Render(ctx, ec, "pending.js", []byte(`exports.default = () => new Promise(() => {})`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pending")

	// Globals are removed even after a failing module.
	err = e.WithContext(ctx, ec, func(vm *goja.Runtime) error { return nil })
	require.NoError(t, err)
	assert.True(t, goja.IsUndefined(e.vm.Get("window")) || e.vm.Get("window") == nil)
}

func TestRequireShimAndBuiltins(t *testing.T) {
	e := NewExecutor(nil)
	out, err := e.Render(context.Background(), Context{Location: "file:///x.html"}, "shim.js", []byte(
		`if (typeof require === "undefined") { var require = globalThis.__glaceRequire; }
		 var util = require("util");
		 exports.default = util.format("%s-%d", "a", 1)`))
	require.NoError(t, err)
	assert.Equal(t, "a-1", out)
}

// Every import must see only its own installed context, and no two imports
// may hold the shared globals at the same time.
func TestWithContextNeverOverlaps(t *testing.T) {
	e := NewExecutor(nil)
	const workers = 8

	var (
		active  atomic.Int32
		overlap atomic.Bool
		mu      sync.Mutex
		seen    = map[string]string{}
		wg      sync.WaitGroup
	)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			href := fmt.Sprintf("file:///dst/%d.html", i)
			err := e.WithContext(context.Background(), Context{Location: href}, func(vm *goja.Runtime) error {
				if active.Add(1) != 1 {
					overlap.Store(true)
				}
				defer active.Add(-1)
				before := vm.Get("location").ToObject(vm).Get("href").String()
				time.Sleep(5 * time.Millisecond)
				after, err := vm.RunString("window.location.href")
				if err != nil {
					return err
				}
				mu.Lock()
				seen[href] = before + "|" + after.String()
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.False(t, overlap.Load(), "two contexts were installed at once")
	require.Len(t, seen, workers)
	for href, observed := range seen {
		assert.Equal(t, href+"|"+href, observed)
	}
}

func TestWithContextHonorsCancellationWhileWaiting(t *testing.T) {
	e := NewExecutor(nil)
	release := make(chan struct{})
	entered := make(chan struct{})
	go func() {
		_ = e.WithContext(context.Background(), Context{Location: "file:///a"}, func(*goja.Runtime) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := e.WithContext(ctx, Context{Location: "file:///b"}, func(*goja.Runtime) error { return nil })
	require.ErrorIs(t, err, context.DeadlineExceeded)
	close(release)
}
