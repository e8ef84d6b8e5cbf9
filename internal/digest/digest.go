// Package digest derives content addresses from output bytes: SHA-256 sums,
// subresource-integrity tokens and cache-busting file names.
package digest

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"path/filepath"
)

// Hash is a SHA-256 digest.
type Hash [sha256.Size]byte

// Sum digests the exact bytes that are written to disk.
func Sum(data []byte) Hash {
	return sha256.Sum256(data)
}

// Hex returns the lowercase hexadecimal form.
func (h Hash) Hex() string {
	return hex.EncodeToString(h[:])
}

// Integrity returns the subresource-integrity token "sha256-<base64>".
func (h Hash) Integrity() string {
	return "sha256-" + base64.StdEncoding.EncodeToString(h[:])
}

func (h Hash) IsZero() bool {
	return h == Hash{}
}

// Integrity is shorthand for Sum(data).Integrity().
func Integrity(data []byte) string {
	return Sum(data).Integrity()
}

// name returns the content-addressed file name for data: its hex digest
// followed by ext (".js", ".css"...).
func name(data []byte, ext string) string {
	return Sum(data).Hex() + ext
}

// Rename replaces the base name of p with the content-addressed name of data,
// keeping p's directory and extension.
func Rename(p string, data []byte) string {
	return filepath.Join(filepath.Dir(p), name(data, filepath.Ext(p)))
}
