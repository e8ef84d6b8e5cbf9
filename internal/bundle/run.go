package bundle

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/hazae41/glace/internal/digest"
	ferrors "github.com/hazae41/glace/internal/foundation/errors"
	"github.com/hazae41/glace/internal/logfields"
)

// Run executes one bundling pass over every registered input and persists
// the results. It is a no-op when nothing was registered since the last
// successful pass. When the input set equals the one the current esbuild
// context was created for, the context is rebuilt incrementally instead of
// recreated.
func (iv *Invoker) Run(ctx context.Context) error {
	iv.mu.Lock()
	defer iv.mu.Unlock()

	if iv.ranGen == iv.generation && iv.results != nil {
		iv.logger.Debug("Bundling pass up to date")
		return nil
	}
	inputs := iv.sortedInputs()
	if len(inputs) == 0 {
		iv.results = map[string]resolved{}
		iv.artifacts = nil
		iv.ranGen = iv.generation
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	key := strings.Join(inputs, "\n")
	if iv.ctx == nil || iv.ctxKey != key {
		if iv.ctx != nil {
			iv.ctx.Dispose()
			iv.ctx, iv.ctxKey = nil, ""
		}
		bctx, cerr := api.Context(iv.buildOptions(inputs))
		if cerr != nil {
			return iv.failed(cerr.Errors)
		}
		iv.ctx, iv.ctxKey = bctx, key
		iv.logger.Debug("Created bundler context", logfields.Count(len(inputs)))
	} else {
		iv.logger.Debug("Reusing bundler context", logfields.Count(len(inputs)))
	}

	start := time.Now()
	result := iv.rebuild(ctx)
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, w := range result.Warnings {
		iv.logger.Warn("Bundler warning", "message", formatMessage(w))
	}
	iv.warnings = len(result.Warnings)
	if len(result.Errors) > 0 {
		return iv.failed(result.Errors)
	}

	meta, err := parseMetafile(result.Metafile)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryInternal, "unreadable bundler metafile").Fatal().Build()
	}
	contents := make(map[string][]byte, len(result.OutputFiles))
	for _, f := range result.OutputFiles {
		contents[f.Path] = f.Contents
	}

	entryOut := meta.entryOutputs(iv.opts.Root, OutputExt)
	results := make(map[string]resolved, len(inputs))
	claimed := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		out, ok := entryOut[in]
		if !ok {
			return ferrors.InternalError("bundler produced no output for input").WithContext("input", in).Build()
		}
		data := contents[out]
		results[in] = resolved{data: data, digest: digest.Sum(data)}
		claimed[out] = true
	}

	var (
		artifacts []Artifact
		written   int
	)
	persist := func(p, input string, data []byte, sum digest.Hash) error {
		n, err := iv.persist(p, data, sum)
		if err != nil {
			return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to write bundle output").
				WithContext("path", p).Build()
		}
		written += n
		artifacts = append(artifacts, Artifact{Input: input, Path: p, Data: data, Digest: sum})
		return nil
	}
	for _, in := range inputs {
		e, r := iv.entries[in], results[in]
		for _, n := range []Naming{NamingPinned, NamingHashed} {
			if !e.namings[n] {
				continue
			}
			if err := persist(finalPath(e.planned, n, r.data), in, r.data, r.digest); err != nil {
				return err
			}
		}
	}
	for _, f := range result.OutputFiles {
		if claimed[f.Path] {
			continue
		}
		if err := persist(f.Path, "", f.Contents, digest.Sum(f.Contents)); err != nil {
			return err
		}
	}
	if ext := meta.externals(); len(ext) > 0 {
		iv.logger.Debug("Left external imports unbundled", "externals", ext)
	}

	iv.results = results
	iv.artifacts = artifacts
	iv.ranGen = iv.generation
	iv.logger.Info("Bundling pass complete",
		logfields.Count(len(inputs)),
		slog.Int("written", written),
		logfields.Elapsed(start))
	return nil
}

// rebuild runs the context, cancelling it if ctx ends first.
func (iv *Invoker) rebuild(ctx context.Context) api.BuildResult {
	done := make(chan struct{})
	defer close(done)
	bctx := iv.ctx
	go func() {
		select {
		case <-ctx.Done():
			bctx.Cancel()
		case <-done:
		}
	}()
	return bctx.Rebuild()
}

// persist writes data at p, an absolute path below OutDir, once per
// materialized variant. It returns how many files were actually written.
func (iv *Invoker) persist(p string, data []byte, sum digest.Hash) (int, error) {
	targets := []string{p}
	if iv.opts.Expand != nil {
		rel, err := filepath.Rel(iv.opts.OutDir, p)
		if err != nil {
			return 0, err
		}
		targets = targets[:0]
		for _, r := range iv.opts.Expand(filepath.ToSlash(rel)) {
			targets = append(targets, filepath.Join(iv.opts.OutDir, filepath.FromSlash(r)))
		}
	}
	n := 0
	for _, t := range targets {
		wrote, err := iv.writeFile(t, data, sum)
		if err != nil {
			return n, err
		}
		if wrote {
			n++
		}
	}
	return n, nil
}
