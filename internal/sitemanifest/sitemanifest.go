// Package sitemanifest stamps content hashes of a finished output tree into
// the web app manifest and its service worker.
package sitemanifest

import (
	"bytes"
	"encoding/json"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hazae41/glace/internal/digest"
	"github.com/hazae41/glace/internal/foundation/errors"
)

// Placeholders replaced in the service worker.
const (
	FilesToken        = "FILES"
	ManifestHashToken = "MANIFEST_HASH"
)

// File is one output file listed in the manifest.
type File struct {
	Src       string `json:"src"`
	Integrity string `json:"integrity"`
}

// Manifest is a web app manifest. Unknown keys survive a round trip.
type Manifest struct {
	raw map[string]json.RawMessage

	Background struct {
		ServiceWorker string `json:"service_worker,omitempty"`
	}
	Files []File
}

// FromJSON parses a manifest.
func FromJSON(data []byte) (*Manifest, error) {
	m := &Manifest{raw: map[string]json.RawMessage{}}
	if err := json.Unmarshal(data, &m.raw); err != nil {
		return nil, errors.ValidationError("invalid manifest").WithCause(err).Build()
	}
	if bg, ok := m.raw["background"]; ok {
		if err := json.Unmarshal(bg, &m.Background); err != nil {
			return nil, errors.ValidationError("invalid manifest background").WithCause(err).Build()
		}
	}
	return m, nil
}

// ToJSON serializes the manifest with its files list.
func (m *Manifest) ToJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(m.raw)+1)
	for k, v := range m.raw {
		out[k] = v
	}
	list := m.Files
	if list == nil {
		list = []File{}
	}
	files, err := json.Marshal(list)
	if err != nil {
		return nil, errors.InternalError("marshal manifest files").WithCause(err).Build()
	}
	out["files"] = files
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, errors.InternalError("marshal manifest").WithCause(err).Build()
	}
	return append(data, '\n'), nil
}

// Result describes what Stamp changed.
type Result struct {
	Files         int
	Manifest      string // absolute path, empty when absent
	ManifestHash  string
	ServiceWorker string // absolute path, empty when absent
}

// Stamp lists every file under root (except the manifest and the service
// worker), writes the list into the manifest found at root/name and
// substitutes the placeholders in the service worker it declares. A missing
// manifest leaves the tree untouched.
func Stamp(root, name string) (Result, error) {
	var res Result
	manifestPath := filepath.Join(root, filepath.FromSlash(name))
	data, err := os.ReadFile(manifestPath)
	if os.IsNotExist(err) {
		return res, nil
	}
	if err != nil {
		return res, errors.FileSystemError("failed to read manifest").WithCause(err).WithContext("path", manifestPath).Build()
	}
	m, err := FromJSON(data)
	if err != nil {
		return res, err
	}
	res.Manifest = manifestPath

	var workerPath string
	if sw := m.Background.ServiceWorker; sw != "" {
		workerPath = filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(sw, "/")))
	}

	files, err := List(root, manifestPath, workerPath)
	if err != nil {
		return res, err
	}
	m.Files = files
	res.Files = len(files)

	out, err := m.ToJSON()
	if err != nil {
		return res, err
	}
	if err := os.WriteFile(manifestPath, out, 0o644); err != nil {
		return res, errors.FileSystemError("failed to write manifest").WithCause(err).WithContext("path", manifestPath).Build()
	}
	res.ManifestHash = digest.Integrity(out)

	if workerPath == "" {
		return res, nil
	}
	worker, err := os.ReadFile(workerPath)
	if os.IsNotExist(err) {
		return res, nil
	}
	if err != nil {
		return res, errors.FileSystemError("failed to read service worker").WithCause(err).WithContext("path", workerPath).Build()
	}
	pairs := make([][2]string, len(files))
	for i, f := range files {
		pairs[i] = [2]string{f.Src, f.Integrity}
	}
	filesJSON, err := json.Marshal(pairs)
	if err != nil {
		return res, errors.InternalError("marshal service worker files").WithCause(err).Build()
	}
	hashJSON, _ := json.Marshal(res.ManifestHash)
	worker = bytes.ReplaceAll(worker, []byte(ManifestHashToken), hashJSON)
	worker = bytes.ReplaceAll(worker, []byte(FilesToken), filesJSON)
	if err := os.WriteFile(workerPath, worker, 0o644); err != nil {
		return res, errors.FileSystemError("failed to write service worker").WithCause(err).WithContext("path", workerPath).Build()
	}
	res.ServiceWorker = workerPath
	return res, nil
}

// List returns every regular file under root as a root-relative URL path
// with its integrity, sorted by path. Paths in exclude are left out.
func List(root string, exclude ...string) ([]File, error) {
	skip := make(map[string]struct{}, len(exclude))
	for _, p := range exclude {
		if p != "" {
			skip[filepath.Clean(p)] = struct{}{}
		}
	}
	var files []File
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if _, ok := skip[p]; ok {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		files = append(files, File{
			Src:       path.Join("/", filepath.ToSlash(rel)),
			Integrity: digest.Integrity(data),
		})
		return nil
	})
	if err != nil {
		return nil, errors.FileSystemError("failed to list output tree").WithCause(err).WithContext("path", root).Build()
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Src < files[j].Src })
	return files, nil
}
