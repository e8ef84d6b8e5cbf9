package glace

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"golang.org/x/net/html/atom"

	"github.com/hazae41/glace/internal/digest"
	"github.com/hazae41/glace/internal/document"
	"github.com/hazae41/glace/internal/foundation/errors"
	"github.com/hazae41/glace/internal/logfields"
	"github.com/hazae41/glace/internal/sitemanifest"
)

func stageFinalize(ctx context.Context, bs *buildState) error {
	return bs.forEachDoc(ctx, bs.finalize)
}

// finalize strips directives, stamps preload and import map integrity and
// writes the document.
func (bs *buildState) finalize(_ context.Context, t *docTask) error {
	directive := bs.b.cfg.Directive
	for _, at := range t.assets {
		document.RemoveAttr(at.Node, directive)
		document.RemoveAttr(at.Node, targetAttr)
	}

	for _, n := range bs.b.scanner.Preloads(t.doc) {
		if _, ok := document.Attr(n, "integrity"); ok {
			continue
		}
		href, _ := document.Attr(n, "href")
		p, err := bs.resolveRef(t.src, href)
		if err != nil || !bs.copied[p] {
			continue
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return errors.FileSystemError("failed to read preloaded file").WithCause(err).WithContext("path", p).Build()
		}
		document.SetAttr(n, "integrity", digest.Integrity(data))
	}

	if head := t.doc.Head(); head != nil && len(t.integrity) > 0 {
		data, err := json.Marshal(struct {
			Integrity map[string]string `json:"integrity"`
		}{t.integrity})
		if err != nil {
			return errors.InternalError("failed to encode import map").WithCause(err).Build()
		}
		importmap := document.NewElement(atom.Script, "type", "importmap")
		document.SetText(importmap, string(data))
		document.Prepend(head, importmap)
	}

	data, err := t.doc.Bytes()
	if err != nil {
		return errors.DocumentError("failed to serialize document").WithCause(err).WithContext("document", t.src).Build()
	}
	if err := os.MkdirAll(filepath.Dir(t.out), 0o755); err != nil {
		return errors.FileSystemError("failed to create directory").WithCause(err).WithContext("path", t.out).Build()
	}
	if err := os.WriteFile(t.out, data, 0o644); err != nil {
		return errors.FileSystemError("failed to write document").WithCause(err).WithContext("path", t.out).Build()
	}
	return t.advance(document.Finalized)
}

func stagePostProcess(_ context.Context, bs *buildState) error {
	res, err := sitemanifest.Stamp(bs.b.staging.Dir(), bs.b.cfg.Manifest)
	if err != nil {
		return err
	}
	if res.Manifest != "" {
		bs.logger.Info("Stamped manifest",
			logfields.Count(res.Files),
			"integrity", res.ManifestHash,
			"service_worker", res.ServiceWorker != "")
	}
	return nil
}

func stagePromote(_ context.Context, bs *buildState) error {
	if err := bs.b.staging.Promote(); err != nil {
		return errors.FileSystemError("failed to promote staging directory").
			WithCause(err).
			WithContext("output", bs.b.staging.Output()).
			Build()
	}
	return nil
}
