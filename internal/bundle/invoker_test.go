package bundle

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazae41/glace/internal/cartesian"
	"github.com/hazae41/glace/internal/digest"
	ferrors "github.com/hazae41/glace/internal/foundation/errors"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, body := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
}

func newInvoker(t *testing.T, platform Platform) (*Invoker, string, string) {
	t.Helper()
	base := t.TempDir()
	src, out := filepath.Join(base, "src"), filepath.Join(base, "out")
	require.NoError(t, os.MkdirAll(src, 0o755))
	iv := New(Options{Platform: platform, Root: src, OutDir: out})
	t.Cleanup(iv.Dispose)
	return iv, src, out
}

func TestRegisterPlansBeforeRun(t *testing.T) {
	iv, src, out := newInvoker(t, PlatformBrowser)
	writeTree(t, src, map[string]string{
		"app/main.ts":  "import { greet } from './lib'\ngreet('x')\n",
		"app/lib.ts":   "export function greet(n: string) { console.log('hi ' + n) }\n",
		"app/main.css": "body { color: red }\n",
	})

	ticket, err := iv.Register(filepath.Join(src, "app/main.ts"), NamingHashed)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "app/main.js"), ticket.Planned)

	_, err = iv.Output(ticket)
	require.ErrorIs(t, err, ferrors.ErrOutputNotFound)

	require.NoError(t, iv.Run(context.Background()))

	art, err := iv.Output(ticket)
	require.NoError(t, err)
	assert.Equal(t, digest.Rename(filepath.Join(out, "app/main.js"), art.Data), art.Path)
	assert.Equal(t, digest.Sum(art.Data), art.Digest)

	onDisk, err := os.ReadFile(art.Path)
	require.NoError(t, err)
	assert.Equal(t, art.Data, onDisk)
	assert.Contains(t, string(onDisk), "hi ")
	assert.NoFileExists(t, ticket.Planned, "hashed outputs are not written at the planned path")

	// A new registration invalidates the previous pass.
	css, err := iv.Register(filepath.Join(src, "app/main.css"), NamingPinned)
	require.NoError(t, err)
	_, err = iv.Output(ticket)
	require.ErrorIs(t, err, ferrors.ErrOutputNotFound)

	require.NoError(t, iv.Run(context.Background()))
	cssArt, err := iv.Output(css)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "app/main.css"), cssArt.Path)
	assert.FileExists(t, cssArt.Path)
}

func TestRunReusesContextForSameInputs(t *testing.T) {
	iv, src, _ := newInvoker(t, PlatformBrowser)
	writeTree(t, src, map[string]string{"a.js": "console.log('a')\n"})

	first := func() Artifact {
		iv.Reset()
		tk, err := iv.Register(filepath.Join(src, "a.js"), NamingHashed)
		require.NoError(t, err)
		require.NoError(t, iv.Run(context.Background()))
		art, err := iv.Output(tk)
		require.NoError(t, err)
		return art
	}

	cold := first()
	ctxBefore := iv.ctx
	warm := first()
	assert.Equal(t, ctxBefore, iv.ctx, "same input set must reuse the compiled context")
	assert.Equal(t, cold.Digest, warm.Digest)
	assert.Equal(t, cold.Path, warm.Path)

	// Running again without new registrations is a no-op.
	require.NoError(t, iv.Run(context.Background()))
	assert.True(t, iv.Ran())
}

func TestStaleTicketFromPreviousBuild(t *testing.T) {
	iv, src, _ := newInvoker(t, PlatformBrowser)
	writeTree(t, src, map[string]string{"a.js": "console.log('a')\n"})
	tk, err := iv.Register(filepath.Join(src, "a.js"), NamingPinned)
	require.NoError(t, err)
	require.NoError(t, iv.Run(context.Background()))

	iv.Reset()
	_, err = iv.Output(tk)
	require.ErrorIs(t, err, ferrors.ErrOutputNotFound)
}

func TestBundleErrorsFailThePass(t *testing.T) {
	iv, src, _ := newInvoker(t, PlatformBrowser)
	writeTree(t, src, map[string]string{"bad.js": "import './missing.js'\nlet = ;\n"})
	_, err := iv.Register(filepath.Join(src, "bad.js"), NamingHashed)
	require.NoError(t, err)

	err = iv.Run(context.Background())
	require.ErrorIs(t, err, ferrors.ErrBundleFailed)
	assert.False(t, iv.Ran())
}

func TestRegisterRejectsOutOfRootAndUnknownKinds(t *testing.T) {
	iv, src, _ := newInvoker(t, PlatformBrowser)
	_, err := iv.Register(filepath.Join(src, "..", "secret.js"), NamingHashed)
	require.ErrorIs(t, err, ferrors.ErrOutOfBoundReference)

	_, err = iv.Register(filepath.Join(src, "logo.png"), NamingHashed)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
}

func TestServerPassEmitsCommonJS(t *testing.T) {
	iv, src, out := newInvoker(t, PlatformServer)
	writeTree(t, src, map[string]string{
		"render.tsx": "import path from 'path'\nexport default function render() { return '<p>' + path.sep + '</p>' }\n",
	})
	tk, err := iv.Register(filepath.Join(src, "render.tsx"), NamingPinned)
	require.NoError(t, err)
	require.NoError(t, iv.Run(context.Background()))

	art, err := iv.Output(tk)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "render.js"), art.Path)
	code := string(art.Data)
	assert.True(t, strings.HasPrefix(code, requireShim))
	assert.Contains(t, code, "module.exports")
	assert.Contains(t, code, `require("path")`)
}

func TestTemplatedOutputsAreMaterialized(t *testing.T) {
	base := t.TempDir()
	src, out := filepath.Join(base, "src"), filepath.Join(base, "out")
	writeTree(t, src, map[string]string{"[locale]/app.js": "console.log(1)\n"})
	table := cartesian.Table{{Key: "locale", Values: []string{"en", "fr"}}}
	iv := New(Options{
		Platform: PlatformBrowser,
		Root:     src,
		OutDir:   out,
		Expand:   func(rel string) []string { return cartesian.Paths(rel, table) },
	})
	t.Cleanup(iv.Dispose)

	tk, err := iv.Register(filepath.Join(src, "[locale]/app.js"), NamingPinned)
	require.NoError(t, err)
	require.NoError(t, iv.Run(context.Background()))

	assert.FileExists(t, filepath.Join(out, "en/app.js"))
	assert.FileExists(t, filepath.Join(out, "fr/app.js"))
	assert.NoFileExists(t, tk.Planned)
}
