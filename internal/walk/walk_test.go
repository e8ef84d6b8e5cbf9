package walk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func TestClassify(t *testing.T) {
	cases := map[string]Kind{
		"index.html":    KindHTML,
		"a.JS":          KindScript,
		"b.tsx":         KindScript,
		"c.mts":         KindScript,
		"style.css":     KindStyle,
		"logo.png":      KindOther,
		"manifest.json": KindOther,
		"README":        KindOther,
	}
	for name, want := range cases {
		assert.Equal(t, want, Classify(name), name)
	}
}

func TestWalkSortedSkipsHidden(t *testing.T) {
	root := t.TempDir()
	write(t, root, "z.html", "")
	write(t, root, "a/b.ts", "")
	write(t, root, "a/.glace-x.js", "")
	write(t, root, ".git/config", "")
	write(t, root, "vendor/lib.js", "")
	write(t, root, "img/logo.png", "")

	ig, err := ParseIgnore([]byte("# comment\n\nvendor/\n"))
	require.NoError(t, err)

	entries, err := Walk(root, ig, nil)
	require.NoError(t, err)

	var rels []string
	for _, e := range entries {
		rels = append(rels, e.Rel)
	}
	assert.Equal(t, []string{"a/b.ts", "img/logo.png", "vendor/lib.js", "z.html"}, rels)
	assert.Equal(t, KindScript, entries[0].Kind)
	assert.True(t, entries[2].Ignored)
	assert.False(t, entries[0].Ignored)
	assert.Equal(t, filepath.Join(root, "z.html"), entries[3].Path)
}

func TestWalkSkipFunc(t *testing.T) {
	root := t.TempDir()
	write(t, root, "index.html", "")
	write(t, root, "out/index.html", "")

	out := filepath.Join(root, "out")
	entries, err := Walk(root, nil, func(p string) bool { return p == out })
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "index.html", entries[0].Rel)
}

func TestIgnoreMatch(t *testing.T) {
	ig, err := ParseIgnore([]byte("**/*.test.js\n/drafts\n*.md\n"))
	require.NoError(t, err)
	assert.Equal(t, 3, ig.Len())

	assert.True(t, ig.Match("x/y/a.test.js"))
	assert.True(t, ig.Match("drafts/post.html"))
	assert.True(t, ig.Match("notes.md"))
	assert.False(t, ig.Match("docs/notes.md"))
	assert.False(t, ig.Match("a.js"))

	var nilIgnore *Ignore
	assert.False(t, nilIgnore.Match("a.js"))
}

func TestParseIgnoreInvalid(t *testing.T) {
	_, err := ParseIgnore([]byte("[unclosed\n"))
	require.Error(t, err)
}

func TestLoadIgnoreMissing(t *testing.T) {
	ig, err := LoadIgnore(filepath.Join(t.TempDir(), ".bundleignore"))
	require.NoError(t, err)
	assert.Equal(t, 0, ig.Len())
}

func TestWalkMissingRoot(t *testing.T) {
	_, err := Walk(filepath.Join(t.TempDir(), "nope"), nil, nil)
	require.Error(t, err)
}
