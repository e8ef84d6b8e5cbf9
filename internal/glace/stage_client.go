package glace

import (
	"context"
	"path/filepath"
	"time"

	"golang.org/x/net/html/atom"

	"github.com/hazae41/glace/internal/bundle"
	"github.com/hazae41/glace/internal/cartesian"
	"github.com/hazae41/glace/internal/document"
	"github.com/hazae41/glace/internal/foundation/errors"
	"github.com/hazae41/glace/internal/pathalg"
)

func stageClientPass(ctx context.Context, bs *buildState) error {
	start := time.Now()
	if err := bs.b.client.Run(ctx); err != nil {
		return err
	}
	bs.b.recorder.ObservePassDuration(string(bundle.PlatformBrowser), time.Since(start))
	bs.report.Artifacts = len(bs.b.client.Artifacts())
	return nil
}

// stageClientResolve is the second barrier: every client element points at
// its bundled output.
func stageClientResolve(ctx context.Context, bs *buildState) error {
	if err := requirePass(bs.b.client); err != nil {
		return err
	}
	return bs.forEachDoc(ctx, bs.resolveClient)
}

// requirePass fails with ErrOutputNotFound when iv holds registrations that
// no pass has compiled yet.
func requirePass(iv *bundle.Invoker) error {
	if iv.Ran() {
		return nil
	}
	return errors.ErrOutputNotFound.
		WithContext("platform", string(iv.Platform())).
		WithContext("reason", "pass has not run since registration")
}

func (bs *buildState) resolveClient(_ context.Context, t *docTask) error {
	client := bs.b.client
	docDir := filepath.Dir(t.out)
	head := t.doc.Head()

	for _, at := range t.assets {
		if at.client == nil {
			continue
		}
		art, err := client.Output(*at.client)
		if err != nil {
			return withDocument(err, t)
		}

		if at.Inline() {
			document.SetText(at.Node, string(art.Data))
			if at.Kind == document.KindScript {
				document.SetAttr(at.Node, "type", "module")
			}
			continue
		}

		link, err := pathalg.Link(docDir, cartesian.Resolve(art.Path, t.assignment))
		if err != nil {
			return err
		}
		integrity := art.Digest.Integrity()
		document.SetAttr(at.Node, at.RefAttr(), link)
		document.SetAttr(at.Node, "integrity", integrity)

		if at.Kind == document.KindScript {
			document.SetAttr(at.Node, "type", "module")
			t.integrity[link] = integrity
			if head != nil {
				document.Prepend(head, document.NewElement(atom.Link,
					"rel", "modulepreload",
					"href", link,
					"integrity", integrity))
			}
		}
	}
	return t.advance(document.ClientResolved)
}
