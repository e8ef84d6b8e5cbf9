package glace

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/hazae41/glace/internal/bundle"
	"github.com/hazae41/glace/internal/cartesian"
	"github.com/hazae41/glace/internal/document"
	"github.com/hazae41/glace/internal/foundation/errors"
	"github.com/hazae41/glace/internal/logfields"
	"github.com/hazae41/glace/internal/walk"
)

// inlineNamespace derives stable names for inline element files, so the
// browser invoker sees the same input set on every build of an unchanged
// tree.
var inlineNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("glace:inline"))

// stageRegister is the first barrier: every document registers its
// references, standalone files are registered and everything else is copied.
func stageRegister(ctx context.Context, bs *buildState) error {
	b := bs.b
	params := b.cfg.Params
	g, gctx := bs.group(ctx)

	for _, e := range bs.entries {
		switch {
		case e.Ignored || e.Kind == walk.KindOther:
			bs.copied[e.Path] = true
			for a := range cartesian.Expand(e.Rel, params) {
				dst := bs.stagePath(cartesian.Resolve(e.Rel, a))
				bs.report.Copied++
				g.Go(func() error { return copyFile(e.Path, dst) })
			}

		case e.Kind == walk.KindHTML:
			for a := range cartesian.Expand(e.Rel, params) {
				rel := cartesian.Resolve(e.Rel, a)
				t := &docTask{
					src:        e.Path,
					rel:        rel,
					assignment: a,
					out:        bs.stagePath(rel),
					final:      filepath.Join(b.staging.Output(), filepath.FromSlash(rel)),
					integrity:  make(map[string]string),
				}
				bs.docs = append(bs.docs, t)
				g.Go(func() error { return bs.registerDocument(gctx, t) })
			}

		case e.Kind == walk.KindScript && bs.matchesPrerender(e.Rel):
			ticket, err := b.server.Register(e.Path, bundle.NamingPinned)
			if err != nil {
				_ = g.Wait()
				return err
			}
			base := strings.TrimSuffix(e.Rel, filepath.Ext(e.Rel))
			for a := range cartesian.Expand(base, params) {
				rel := cartesian.Resolve(base, a)
				bs.prerenders = append(bs.prerenders, &prerenderTask{
					entry:      e,
					ticket:     ticket,
					assignment: a,
					out:        bs.stagePath(rel),
					final:      filepath.Join(b.staging.Output(), filepath.FromSlash(rel)),
				})
			}

		default:
			if _, err := b.client.Register(e.Path, bundle.NamingPinned); err != nil {
				_ = g.Wait()
				return err
			}
			bs.report.Standalone++
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}
	bs.report.Documents = len(bs.docs)
	bs.logger.Info("Registered bundle inputs",
		logfields.Count(len(bs.docs)),
		logfields.Platform(string(bundle.PlatformBrowser)),
		"inputs", len(b.client.Inputs()),
		"server_inputs", len(b.server.Inputs()),
		"copied", bs.report.Copied)
	return nil
}

func (bs *buildState) stagePath(rel string) string {
	return filepath.Join(bs.b.staging.Dir(), filepath.FromSlash(rel))
}

// registerDocument parses the document and registers every directive-bearing
// element with the invokers of its targets.
func (bs *buildState) registerDocument(_ context.Context, t *docTask) error {
	b := bs.b
	data, err := os.ReadFile(t.src)
	if err != nil {
		return errors.FileSystemError("failed to read document").WithCause(err).WithContext("document", t.src).Build()
	}
	doc, err := document.Parse(bytes.NewReader(data), fileURL(t.final, t.assignment))
	if err != nil {
		return errors.DocumentError("failed to parse document").WithCause(err).WithContext("document", t.src).Build()
	}
	t.doc = doc
	logger := bs.logger.With(logfields.Document(t.rel))

	for i, a := range b.scanner.Scan(doc) {
		if len(a.Unknown) > 0 {
			logger.Warn("Unknown bundle targets", "targets", strings.Join(a.Unknown, ","))
		}
		at := &assetTask{Asset: a}
		naming := bundle.NamingHashed

		if a.Inline() {
			naming = bundle.NamingInline
			content := document.TextContent(a.Node)
			id := uuid.NewSHA1(inlineNamespace, []byte(t.src+"#"+strconv.Itoa(i)+"\n"+content))
			at.input = filepath.Join(filepath.Dir(t.src), ".glace-"+id.String()+a.Kind.Ext())
			if err := bs.writeSynthetic(at.input, []byte(content)); err != nil {
				return err
			}
		} else {
			input, err := bs.resolveRef(t.src, a.Ref)
			if stderrors.Is(err, errors.ErrUnsupportedProtocol) {
				bs.skipped.Add(1)
				logger.Debug("Leaving reference untouched", logfields.Target(a.Ref))
				document.RemoveAttr(a.Node, b.cfg.Directive)
				continue
			}
			if err != nil {
				return err
			}
			at.input = input
		}

		if a.Targets.Has(document.TargetClient) {
			ticket, err := b.client.Register(at.input, naming)
			if err != nil {
				return withDocument(err, t)
			}
			at.client = &ticket
		}
		if a.Targets.Has(document.TargetStatic) {
			if a.Kind != document.KindScript {
				logger.Debug("Ignoring static target on stylesheet", logfields.Target(a.Ref))
			} else {
				ticket, err := b.server.Register(at.input, bundle.NamingPinned)
				if err != nil {
					return withDocument(err, t)
				}
				at.server = &ticket
			}
		}
		t.assets = append(t.assets, at)
	}
	return t.advance(document.ScriptsRegistered)
}

func withDocument(err error, t *docTask) error {
	if ce, ok := errors.AsClassified(err); ok {
		return ce.WithContext("document", t.src)
	}
	return err
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return errors.FileSystemError("failed to read file").WithCause(err).WithContext("path", src).Build()
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return errors.FileSystemError("failed to create directory").WithCause(err).WithContext("path", dst).Build()
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return errors.FileSystemError("failed to copy file").WithCause(err).WithContext("path", dst).Build()
	}
	return nil
}
