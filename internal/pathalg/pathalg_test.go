package pathalg

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "github.com/hazae41/glace/internal/foundation/errors"
)

func TestAncestorPOSIX(t *testing.T) {
	tests := []struct {
		name  string
		paths []string
		want  string
	}{
		{"shared prefix", []string{"/aaa/bbbb/ccc/index.html", "/aaa/ddd/index.html"}, "/aaa"},
		{"root fallback", []string{"/aaa/index.html", "/bbb/index.html"}, "/"},
		{"single file", []string{"/aaa/bbb/index.html"}, "/aaa/bbb"},
		{"segment boundary", []string{"/aa/x.js", "/aab/y.js"}, "/"},
		{"same dir", []string{"/src/a.js", "/src/b.js"}, "/src"},
		{"nested", []string{"/src/a/b/c.js", "/src/a/b/d/e.js"}, "/src/a/b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AncestorPOSIX(tt.paths)
			assert.Equal(t, tt.want, got)
			for _, p := range tt.paths {
				dir := filepath.ToSlash(filepath.Dir(p))
				assert.True(t, got == "/" || dir == got || strings.HasPrefix(dir, got+"/"), "%s is not under %s", p, got)
			}
		})
	}
}

func TestAncestorWin32(t *testing.T) {
	got, err := AncestorWin32([]string{`C:\aaa\bbbb\ccc\index.html`, `C:\aaa\ddd\index.html`})
	require.NoError(t, err)
	assert.Equal(t, `C:\aaa`, got)

	got, err = AncestorWin32([]string{`C:\aaa\index.html`, `c:\bbb\index.html`})
	require.NoError(t, err)
	assert.Equal(t, `C:\`, got)

	_, err = AncestorWin32([]string{`C:\aaa\index.html`, `D:\aaa\index.html`})
	require.Error(t, err)
	assert.ErrorIs(t, err, ferrors.ErrNoCommonRoot)
}

func TestRedot(t *testing.T) {
	assert.Equal(t, "./style.css", Redot("style.css"))
	assert.Equal(t, "./style.css", Redot("./style.css"))
	assert.Equal(t, "../style.css", Redot("../style.css"))
	assert.Equal(t, "./.hidden/x.js", Redot(".hidden/x.js"))
	assert.Equal(t, "./", Redot("."))
}

func TestLinkAndWithin(t *testing.T) {
	link, err := Link("/dst/en", "/dst/en/abc.js")
	require.NoError(t, err)
	assert.Equal(t, "./abc.js", link)

	link, err = Link("/dst/en/blog", "/dst/chunks/c.js")
	require.NoError(t, err)
	assert.Equal(t, "../../chunks/c.js", link)

	assert.True(t, Within("/src", "/src/a.js"))
	assert.True(t, Within("/src", "/src"))
	assert.False(t, Within("/src", "/srcx/a.js"))
	assert.False(t, Within("/src", "/etc/passwd"))
	assert.True(t, Within("/src", "/src/..a/b.js"))
}
