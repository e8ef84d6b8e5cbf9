// Package pathalg holds the small amount of path arithmetic the build needs:
// common ancestors of scattered inputs, explicit relative specifiers, and
// containment checks against the source root.
package pathalg

import (
	"path"
	"path/filepath"
	"runtime"
	"strings"

	ferrors "github.com/hazae41/glace/internal/foundation/errors"
)

// Ancestor returns the deepest directory containing every path, using the
// host's path flavor.
func Ancestor(paths []string) (string, error) {
	if runtime.GOOS == "windows" {
		return AncestorWin32(paths)
	}
	return AncestorPOSIX(paths), nil
}

// AncestorPOSIX returns the deepest common directory of the parents of paths.
// Paths sharing nothing but the root yield "/". Empty input yields "/".
func AncestorPOSIX(paths []string) string {
	var common []string
	for i, p := range paths {
		dir := strings.Split(strings.Trim(path.Dir(path.Clean("/"+p)), "/"), "/")
		if len(dir) == 1 && dir[0] == "" {
			dir = nil
		}
		if i == 0 {
			common = dir
			continue
		}
		common = commonPrefix(common, dir, func(a, b string) bool { return a == b })
	}
	return "/" + strings.Join(common, "/")
}

// AncestorWin32 is the drive-letter variant of AncestorPOSIX. Paths on
// different volumes have no common ancestor and yield ErrNoCommonRoot.
func AncestorWin32(paths []string) (string, error) {
	var (
		volume string
		common []string
	)
	for i, p := range paths {
		vol, dir := splitWin32(p)
		if i == 0 {
			volume, common = vol, dir
			continue
		}
		if !strings.EqualFold(vol, volume) {
			return "", ferrors.ErrNoCommonRoot.
				WithContext("first", paths[0]).
				WithContext("other", p)
		}
		common = commonPrefix(common, dir, strings.EqualFold)
	}
	return volume + `\` + strings.Join(common, `\`), nil
}

// splitWin32 returns the volume and the directory segments of p's parent.
func splitWin32(p string) (string, []string) {
	p = strings.ReplaceAll(p, "/", `\`)
	var vol string
	switch {
	case len(p) >= 2 && p[1] == ':':
		vol, p = p[:2], p[2:]
	case strings.HasPrefix(p, `\\`):
		parts := strings.SplitN(strings.TrimPrefix(p, `\\`), `\`, 3)
		if len(parts) >= 2 {
			vol = `\\` + parts[0] + `\` + parts[1]
			p = ""
			if len(parts) == 3 {
				p = parts[2]
			}
		}
	}
	segs := make([]string, 0, 8)
	for _, s := range strings.Split(p, `\`) {
		switch s {
		case "", ".":
		case "..":
			if len(segs) > 0 {
				segs = segs[:len(segs)-1]
			}
		default:
			segs = append(segs, s)
		}
	}
	if len(segs) > 0 {
		segs = segs[:len(segs)-1]
	}
	return vol, segs
}

func commonPrefix(a, b []string, eq func(string, string) bool) []string {
	n := 0
	for n < len(a) && n < len(b) && eq(a[n], b[n]) {
		n++
	}
	return a[:n]
}

// Within reports whether p is root itself or lies below it.
func Within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
