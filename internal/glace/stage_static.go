package glace

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/net/html"

	"github.com/hazae41/glace/internal/bundle"
	"github.com/hazae41/glace/internal/document"
	"github.com/hazae41/glace/internal/foundation/errors"
	"github.com/hazae41/glace/internal/logfields"
	"github.com/hazae41/glace/internal/render"
)

// targetAttr selects where static markup goes. It defaults to body.
const targetAttr = "data-target"

func stageStaticPass(ctx context.Context, bs *buildState) error {
	start := time.Now()
	if err := bs.b.server.Run(ctx); err != nil {
		return err
	}
	bs.b.recorder.ObservePassDuration(string(bundle.PlatformServer), time.Since(start))
	return nil
}

// stageStaticResolve is the third barrier: static modules run one at a time
// against their document, and standalone prerenders are written.
func stageStaticResolve(ctx context.Context, bs *buildState) error {
	if err := requirePass(bs.b.server); err != nil {
		return err
	}
	g, gctx := bs.group(ctx)
	for _, t := range bs.docs {
		g.Go(func() error { return bs.resolveStatic(gctx, t) })
	}
	for _, p := range bs.prerenders {
		g.Go(func() error { return bs.prerender(gctx, p) })
	}
	err := g.Wait()
	bs.report.Rendered = int(bs.rendered.Load())
	bs.report.Prerendered = int(bs.prerendered.Load())
	bs.report.Skipped = int(bs.skipped.Load())
	if n := bs.executor.Executed(); n > 0 {
		bs.logger.Debug("Executed static modules", logfields.Count(int(n)))
	}
	return err
}

func (bs *buildState) resolveStatic(ctx context.Context, t *docTask) error {
	managed := make(map[*html.Node]bool)
	for _, at := range t.assets {
		if at.client != nil {
			managed[at.Node] = true
		}
	}
	keep := func(n *html.Node) bool { return managed[n] }

	for _, at := range t.assets {
		if at.server == nil {
			continue
		}
		art, err := bs.b.server.Output(*at.server)
		if err != nil {
			return withDocument(err, t)
		}

		start := time.Now()
		markup, err := bs.executor.Render(ctx, render.Context{
			Document: t.doc,
			Location: fileURL(t.final, t.assignment),
			Params:   t.assignment.Map(),
		}, art.Path, art.Data)
		if err != nil {
			return withDocument(err, t)
		}
		bs.b.recorder.ObserveRenderDuration(time.Since(start))
		bs.rendered.Add(1)

		if markup != "" {
			selector := "body"
			if v, ok := document.Attr(at.Node, targetAttr); ok && v != "" {
				selector = v
			}
			target, err := t.doc.Query(selector)
			if err != nil {
				return withDocument(err, t)
			}
			if target == nil {
				return errors.DocumentError("render target not found").
					WithContext("document", t.src).
					WithContext("target", selector).
					Build()
			}
			if err := document.ReplaceChildren(target, markup, keep); err != nil {
				return errors.DocumentError("failed to parse rendered markup").
					WithCause(err).
					WithContext("document", t.src).
					Build()
			}
		}
		if at.client == nil {
			document.Remove(at.Node)
		}
	}
	return t.advance(document.StaticResolved)
}

func (bs *buildState) prerender(ctx context.Context, p *prerenderTask) error {
	art, err := bs.b.server.Output(p.ticket)
	if err != nil {
		return err
	}
	start := time.Now()
	out, err := bs.executor.Render(ctx, render.Context{
		Location: fileURL(p.final, p.assignment),
		Params:   p.assignment.Map(),
	}, art.Path, art.Data)
	if err != nil {
		return err
	}
	bs.b.recorder.ObserveRenderDuration(time.Since(start))
	if err := os.MkdirAll(filepath.Dir(p.out), 0o755); err != nil {
		return errors.FileSystemError("failed to create directory").WithCause(err).WithContext("path", p.out).Build()
	}
	if err := os.WriteFile(p.out, []byte(out), 0o644); err != nil {
		return errors.FileSystemError("failed to write prerendered file").WithCause(err).WithContext("path", p.out).Build()
	}
	bs.prerendered.Add(1)
	return nil
}
