package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazae41/glace/internal/config"
	"github.com/hazae41/glace/internal/eventstore"
	"github.com/hazae41/glace/internal/foundation/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestParseDefaultsToBuild(t *testing.T) {
	var cli CLI
	parser, err := kong.New(&cli, kong.Name("glace"), kong.Vars{"version": "test"}, kong.Exit(func(int) {}))
	require.NoError(t, err)

	dir := t.TempDir()
	_, err = parser.Parse([]string{dir, "--out", filepath.Join(dir, "..", "site"), "--dev"})
	require.NoError(t, err)

	require.Len(t, cli.Build.Inputs, 1)
	assert.Equal(t, filepath.Base(dir), filepath.Base(cli.Build.Inputs[0]))
	assert.True(t, cli.Build.Dev)
	assert.Equal(t, "site", filepath.Base(cli.Build.Out))
}

func TestBuildFlagsApply(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	require.NoError(t, os.MkdirAll(src, 0o750))

	t.Run("directory input", func(t *testing.T) {
		cfg := config.Default()
		flags := BuildFlags{Inputs: []string{src}, Out: filepath.Join(dir, "dst"), Dev: true}
		entries, err := flags.apply(cfg)
		require.NoError(t, err)
		assert.Empty(t, entries)
		assert.Equal(t, src, cfg.Input)
		assert.Equal(t, filepath.Join(dir, "dst"), cfg.Output)
		assert.Equal(t, config.ModeDevelopment, cfg.Mode)
	})

	t.Run("entry files", func(t *testing.T) {
		cfg := config.Default()
		a := filepath.Join(src, "a.html")
		b := filepath.Join(src, "sub", "b.html")
		entries, err := (&BuildFlags{Inputs: []string{a, b}}).apply(cfg)
		require.NoError(t, err)
		assert.Equal(t, []string{a, b}, entries)
	})

	t.Run("nested output", func(t *testing.T) {
		cfg := config.Default()
		_, err := (&BuildFlags{Inputs: []string{src}, Out: filepath.Join(src, "dst")}).apply(cfg)
		require.Error(t, err)
		assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
	})
}

func TestBuildCommandWritesSite(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	out := filepath.Join(dir, "dst")
	writeFile(t, filepath.Join(src, "index.html"), `<!DOCTYPE html><html><head></head><body><p>hello</p></body></html>`)
	writeFile(t, filepath.Join(src, "robots.txt"), "User-agent: *\n")

	cmd := &BuildCmd{BuildFlags{Inputs: []string{src}, Out: out}}
	require.NoError(t, cmd.Run(&Global{}, &CLI{}))

	html, err := os.ReadFile(filepath.Join(out, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(html), "<p>hello</p>")
	assert.FileExists(t, filepath.Join(out, "robots.txt"))
}

func TestHistoryRequiresEventLog(t *testing.T) {
	err := (&HistoryCmd{DB: filepath.Join(t.TempDir(), "missing.sqlite")}).Run(&Global{}, &CLI{})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryNotFound))
}

func TestPrintHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.sqlite")
	store, err := eventstore.NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	started, err := eventstore.NewBuildStarted("0123456789abcdef", eventstore.BuildStartedMeta{Trigger: "cli", Mode: "production"})
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, started))
	completed, err := eventstore.NewBuildCompleted("0123456789abcdef", eventstore.BuildCompletedMeta{
		Outcome:    "failed",
		Documents:  3,
		DurationMS: 42,
		ErrorStage: "client_pass",
		Error:      "bundle failed",
	})
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, completed))

	projection := eventstore.NewBuildHistoryProjection(store, 10)
	require.NoError(t, projection.Rebuild(ctx))

	var buf bytes.Buffer
	require.NoError(t, printHistory(&buf, projection.History()))
	out := buf.String()
	assert.Contains(t, out, "BUILD")
	assert.Contains(t, out, "01234567")
	assert.NotContains(t, out, "0123456789abcdef")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "client_pass: bundle failed")
}
