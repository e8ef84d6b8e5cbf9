package pathalg

import (
	"path/filepath"
	"strings"
)

// Redot makes a relative path an explicit relative specifier: "style.css"
// becomes "./style.css", while "./x" and "../x" are returned unchanged.
func Redot(rel string) string {
	if rel == "." || rel == ".." {
		return rel + "/"
	}
	if strings.HasPrefix(rel, "./") || strings.HasPrefix(rel, "../") {
		return rel
	}
	return "./" + rel
}

// Link returns the redotted, slash-separated path from directory fromDir to
// target, suitable for src and href attributes.
func Link(fromDir, target string) (string, error) {
	rel, err := filepath.Rel(fromDir, target)
	if err != nil {
		return "", err
	}
	return Redot(filepath.ToSlash(rel)), nil
}
