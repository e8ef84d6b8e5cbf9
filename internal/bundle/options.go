package bundle

import (
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// Platform selects the environment a pass targets.
type Platform string

const (
	// PlatformBrowser output is shipped to end users.
	PlatformBrowser Platform = "browser"
	// PlatformServer output is executed once at build time and never shipped.
	PlatformServer Platform = "server"
)

// Naming decides where an entry's output is persisted.
type Naming int

const (
	// NamingPinned keeps the planned path (standalone files, server pass).
	NamingPinned Naming = iota
	// NamingHashed renames the output to the digest of its bytes.
	NamingHashed
	// NamingInline keeps the output in memory only; its text is inlined.
	NamingInline
)

func (n Naming) String() string {
	switch n {
	case NamingHashed:
		return "hashed"
	case NamingInline:
		return "inline"
	default:
		return "pinned"
	}
}

// nodeBuiltins are never bundled on either platform.
var nodeBuiltins = []string{
	"assert", "buffer", "child_process", "crypto", "events", "fs", "fs/promises",
	"http", "https", "module", "net", "os", "path", "process", "querystring",
	"stream", "string_decoder", "timers", "tty", "url", "util", "worker_threads", "zlib",
	"node:*",
}

// requireShim gives server output a require binding when it is evaluated
// without the module wrapper. Inside the wrapper the parameter wins.
const requireShim = `if (typeof require === "undefined") { var require = globalThis.__glaceRequire; }`

var scriptExts = map[string]bool{
	".js": true, ".mjs": true, ".cjs": true, ".jsx": true,
	".ts": true, ".mts": true, ".cts": true, ".tsx": true,
}

// IsScript reports whether p has a script or module extension.
func IsScript(p string) bool { return scriptExts[strings.ToLower(filepath.Ext(p))] }

// IsStyle reports whether p is a stylesheet.
func IsStyle(p string) bool { return strings.EqualFold(filepath.Ext(p), ".css") }

// OutputExt normalizes a source extension: every script kind becomes ".js".
func OutputExt(p string) string {
	switch {
	case IsScript(p):
		return ".js"
	case IsStyle(p):
		return ".css"
	}
	return ""
}

var fileLoaders = []string{
	".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".avif", ".ico",
	".woff", ".woff2", ".ttf", ".otf", ".eot", ".mp4", ".webm", ".mp3", ".wasm",
}

func (iv *Invoker) buildOptions(entries []string) api.BuildOptions {
	o := iv.opts
	nodeEnv := "production"
	if o.Development {
		nodeEnv = "development"
	}
	loaders := make(map[string]api.Loader, len(fileLoaders)+1)
	for _, ext := range fileLoaders {
		loaders[ext] = api.LoaderFile
	}

	opts := api.BuildOptions{
		EntryPoints:   entries,
		Bundle:        true,
		Write:         false,
		Metafile:      true,
		LogLevel:      api.LogLevelSilent,
		AbsWorkingDir: o.Root,
		Outbase:       o.Root,
		Outdir:        o.OutDir,
		EntryNames:    "[dir]/[name]",
		AssetNames:    "assets/[name]-[hash]",
		External:      append(append([]string{}, nodeBuiltins...), o.External...),
		Loader:        loaders,
		Define:        map[string]string{"process.env.NODE_ENV": `"` + nodeEnv + `"`},
	}

	if o.Development {
		opts.Sourcemap = api.SourceMapInline
	} else {
		opts.Sourcemap = api.SourceMapNone
		opts.MinifyWhitespace = true
		opts.MinifyIdentifiers = true
		opts.MinifySyntax = true
	}

	switch o.Platform {
	case PlatformServer:
		opts.Platform = api.PlatformNode
		opts.Format = api.FormatCommonJS
		opts.Target = api.ES2017
		opts.Banner = map[string]string{"js": requireShim}
		loaders[".css"] = api.LoaderEmpty
	default:
		opts.Platform = api.PlatformBrowser
		opts.Format = api.FormatESModule
		opts.Target = api.ES2020
		opts.Splitting = true
		opts.ChunkNames = "chunks/[name]-[hash]"
	}
	return opts
}
