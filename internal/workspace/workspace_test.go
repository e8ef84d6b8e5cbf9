package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_EphemeralMode(t *testing.T) {
	mgr := NewManager(t.TempDir())
	require.NoError(t, mgr.Create())

	dir := mgr.Path()
	assert.True(t, strings.HasPrefix(filepath.Base(dir), "glace-"))
	assert.DirExists(t, dir)

	sub, err := mgr.Subdir("server")
	require.NoError(t, err)
	assert.DirExists(t, sub)

	require.NoError(t, mgr.Cleanup())
	assert.NoDirExists(t, dir)
	assert.Empty(t, mgr.Path())
}

func TestManager_PersistentMode(t *testing.T) {
	base := t.TempDir()
	mgr := NewPersistentManager(base, "")
	require.NoError(t, mgr.Create())
	assert.Equal(t, filepath.Join(base, "glace-cache"), mgr.Path())

	require.NoError(t, mgr.Cleanup())
	assert.DirExists(t, mgr.Path())
}

func TestManager_SubdirBeforeCreate(t *testing.T) {
	_, err := NewManager(t.TempDir()).Subdir("x")
	assert.Error(t, err)
}

func TestStagingPromote(t *testing.T) {
	out := filepath.Join(t.TempDir(), "dst")
	require.NoError(t, os.MkdirAll(out, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(out, "old.html"), []byte("old"), 0o644))

	s := NewStaging(out)
	require.NoError(t, s.Begin())
	assert.Equal(t, out+"_stage", s.Dir())
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "new.html"), []byte("new"), 0o644))
	require.NoError(t, s.Promote())

	assert.FileExists(t, filepath.Join(out, "new.html"))
	assert.NoFileExists(t, filepath.Join(out, "old.html"))
	assert.NoDirExists(t, s.Dir())
	assert.NoDirExists(t, out+".prev")

	assert.Error(t, s.Promote(), "promote twice without Begin")
}

func TestStagingAbortKeepsOutput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "dst")
	require.NoError(t, os.MkdirAll(out, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(out, "index.html"), []byte("good"), 0o644))

	s := NewStaging(out)
	require.NoError(t, s.Begin())
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "index.html"), []byte("partial"), 0o644))
	s.Abort()

	data, err := os.ReadFile(filepath.Join(out, "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "good", string(data))
	assert.NoDirExists(t, s.Dir())
}
