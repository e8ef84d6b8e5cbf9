// Package walk enumerates a source tree in deterministic order and
// classifies every file for the build.
package walk

import (
	"bufio"
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/hazae41/glace/internal/foundation/errors"
)

// Kind classifies a source file.
type Kind int

const (
	KindOther Kind = iota
	KindHTML
	KindScript
	KindStyle
)

func (k Kind) String() string {
	switch k {
	case KindHTML:
		return "html"
	case KindScript:
		return "script"
	case KindStyle:
		return "style"
	default:
		return "other"
	}
}

var scriptExts = map[string]struct{}{
	".js": {}, ".jsx": {}, ".ts": {}, ".tsx": {},
	".mjs": {}, ".mts": {}, ".cjs": {}, ".cts": {},
}

// Classify returns the kind of a file name by extension.
func Classify(name string) Kind {
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case ext == ".html":
		return KindHTML
	case ext == ".css":
		return KindStyle
	default:
		if _, ok := scriptExts[ext]; ok {
			return KindScript
		}
		return KindOther
	}
}

// Entry is one discovered file.
type Entry struct {
	Path string // absolute
	Rel  string // slash-separated, relative to the root
	Kind Kind
	// Ignored entries matched the ignore list. They are copied verbatim
	// and never bundled.
	Ignored bool
}

// Ignore is a parsed ignore list.
type Ignore struct {
	patterns []string
}

// ParseIgnore reads one doublestar pattern per line. Blank lines and lines
// starting with # are skipped; a trailing slash matches everything below.
func ParseIgnore(data []byte) (*Ignore, error) {
	ig := &Ignore{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for sc.Scan() {
		line++
		p := strings.TrimSpace(sc.Text())
		if p == "" || strings.HasPrefix(p, "#") {
			continue
		}
		p = strings.TrimPrefix(p, "./")
		p = strings.TrimPrefix(p, "/")
		if strings.HasSuffix(p, "/") {
			p += "**"
		}
		if !doublestar.ValidatePattern(p) {
			return nil, errors.ValidationError("invalid ignore pattern").
				WithContext("pattern", p).
				WithContext("line", line).
				Build()
		}
		ig.patterns = append(ig.patterns, p)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to read ignore list").Build()
	}
	return ig, nil
}

// LoadIgnore reads the ignore list at path. A missing file is an empty list.
func LoadIgnore(path string) (*Ignore, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Ignore{}, nil
	}
	if err != nil {
		return nil, errors.FileSystemError("failed to read ignore list").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	return ParseIgnore(data)
}

// Match reports whether rel (slash-separated) is ignored. A file below an
// ignored directory is ignored too.
func (ig *Ignore) Match(rel string) bool {
	if ig == nil {
		return false
	}
	for _, p := range ig.patterns {
		if doublestar.MatchUnvalidated(p, rel) {
			return true
		}
		for dir := rel; ; {
			i := strings.LastIndexByte(dir, '/')
			if i < 0 {
				break
			}
			dir = dir[:i]
			if doublestar.MatchUnvalidated(p, dir) {
				return true
			}
		}
	}
	return false
}

// Len is the number of patterns.
func (ig *Ignore) Len() int {
	if ig == nil {
		return 0
	}
	return len(ig.patterns)
}

// Hidden reports whether a base name is a dotfile.
func Hidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// Walk lists every regular file under root in lexical order. Dotfiles and
// dot-directories are skipped. skip, when non-nil, prunes absolute paths
// (such as the output directory nested in the source).
func Walk(root string, ig *Ignore, skip func(string) bool) ([]Entry, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryPath, "failed to resolve source root").Build()
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.NotFoundError("source root not found").
			WithCause(err).
			WithContext("path", root).
			Build()
	}
	if !info.IsDir() {
		return nil, errors.ValidationError("source root is not a directory").
			WithContext("path", root).
			Build()
	}

	var entries []Entry
	// WalkDir visits in lexical order.
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if p == root {
			return nil
		}
		if Hidden(d.Name()) || (skip != nil && skip(p)) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		entries = append(entries, Entry{
			Path:    p,
			Rel:     rel,
			Kind:    Classify(p),
			Ignored: ig.Match(rel),
		})
		return nil
	})
	if err != nil {
		return nil, errors.FileSystemError("failed to walk source tree").
			WithCause(err).
			WithContext("path", root).
			Build()
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Rel < entries[j].Rel })
	return entries, nil
}
