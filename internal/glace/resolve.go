package glace

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/hazae41/glace/internal/cartesian"
	"github.com/hazae41/glace/internal/foundation/errors"
	"github.com/hazae41/glace/internal/pathalg"
)

// resolveRef maps a src or href found in the document at docSrc to a file
// below the source root. Relative references resolve against the document's
// directory, "/"-prefixed ones against the root. References with any scheme
// other than file: fail with ErrUnsupportedProtocol and are left alone by
// callers.
func (bs *buildState) resolveRef(docSrc, ref string) (string, error) {
	root := bs.b.root
	u, err := url.Parse(ref)
	if err != nil {
		return "", errors.DocumentError("invalid reference").
			WithCause(err).
			WithContext("document", docSrc).
			WithContext("reference", ref).
			Build()
	}

	var p string
	switch {
	case u.Scheme == "file":
		p = filepath.FromSlash(u.Path)
	case u.Scheme != "" || u.Host != "":
		return "", errors.ErrUnsupportedProtocol.
			WithContext("reference", ref).
			WithContext("document", docSrc)
	case u.Path == "":
		return "", errors.DocumentError("empty reference").
			WithContext("document", docSrc).
			WithContext("reference", ref).
			Build()
	case strings.HasPrefix(u.Path, "/"):
		p = filepath.Join(root, filepath.FromSlash(u.Path))
	default:
		p = filepath.Join(filepath.Dir(docSrc), filepath.FromSlash(u.Path))
	}

	if !pathalg.Within(root, p) {
		return "", errors.ErrOutOfBoundReference.
			WithContext("reference", ref).
			WithContext("document", docSrc)
	}
	info, err := os.Stat(p)
	if err != nil || info.IsDir() {
		return "", errors.NotFoundError("referenced file not found").
			Fatal().
			WithContext("reference", ref).
			WithContext("document", docSrc).
			WithContext("path", p).
			Build()
	}
	return p, nil
}

// fileURL is the location a document observes: its final output path plus
// the parameter assignment as query string.
func fileURL(final string, a cartesian.Assignment) string {
	u := url.URL{Scheme: "file", Path: "/" + strings.TrimPrefix(filepath.ToSlash(final), "/"), RawQuery: a.Query()}
	return u.String()
}
