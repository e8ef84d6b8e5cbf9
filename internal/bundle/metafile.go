package bundle

import (
	"encoding/json"
	"path/filepath"
	"strings"
)

// metafile is the subset of esbuild's metafile JSON the invoker reads.
type metafile struct {
	Inputs  map[string]metafileInput  `json:"inputs"`
	Outputs map[string]metafileOutput `json:"outputs"`
}

type metafileInput struct {
	Bytes   int              `json:"bytes"`
	Imports []metafileImport `json:"imports"`
}

type metafileImport struct {
	Path     string `json:"path"`
	Kind     string `json:"kind"`
	External bool   `json:"external,omitempty"`
}

type metafileOutput struct {
	Bytes      int              `json:"bytes"`
	Imports    []metafileImport `json:"imports"`
	Exports    []string         `json:"exports"`
	EntryPoint string           `json:"entryPoint,omitempty"`
	CSSBundle  string           `json:"cssBundle,omitempty"`
}

func parseMetafile(raw string) (*metafile, error) {
	var m metafile
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// entryOutputs maps each absolute entry input to the absolute output whose
// extension is want(input). Metafile paths are relative to workDir.
func (m *metafile) entryOutputs(workDir string, want func(string) string) map[string]string {
	out := make(map[string]string)
	for rel, o := range m.Outputs {
		if o.EntryPoint == "" {
			continue
		}
		input := filepath.Join(workDir, filepath.FromSlash(o.EntryPoint))
		abs := filepath.Join(workDir, filepath.FromSlash(rel))
		if !strings.EqualFold(filepath.Ext(abs), want(input)) {
			continue
		}
		out[input] = abs
	}
	return out
}

// externals lists the bare specifiers left unbundled across all outputs.
func (m *metafile) externals() []string {
	seen := map[string]bool{}
	var out []string
	for _, o := range m.Outputs {
		for _, imp := range o.Imports {
			if imp.External && !seen[imp.Path] {
				seen[imp.Path] = true
				out = append(out, imp.Path)
			}
		}
	}
	return out
}
