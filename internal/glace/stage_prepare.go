package glace

import (
	"context"
	"path/filepath"

	"github.com/hazae41/glace/internal/logfields"
	"github.com/hazae41/glace/internal/render"
	"github.com/hazae41/glace/internal/walk"
)

func stagePrepare(_ context.Context, bs *buildState) error {
	b := bs.b
	if err := b.staging.Begin(); err != nil {
		return err
	}
	if err := b.scratch.Create(); err != nil {
		return err
	}
	if _, err := b.scratch.Subdir("server"); err != nil {
		return err
	}
	b.client.Reset()
	b.server.Reset()
	bs.executor = render.NewExecutor(bs.logger)

	ignore, err := walk.LoadIgnore(filepath.Join(b.root, b.cfg.IgnoreFile))
	if err != nil {
		return err
	}
	bs.ignore = ignore
	if ignore.Len() > 0 {
		bs.logger.Debug("Loaded ignore list", logfields.Count(ignore.Len()))
	}
	return nil
}

func stageWalk(_ context.Context, bs *buildState) error {
	b := bs.b
	if len(b.entries) > 0 {
		bs.entries = make([]walk.Entry, 0, len(b.entries))
		for _, p := range b.entries {
			rel, err := filepath.Rel(b.root, p)
			if err != nil {
				return err
			}
			bs.entries = append(bs.entries, walk.Entry{Path: p, Rel: filepath.ToSlash(rel), Kind: walk.Classify(p)})
		}
		return nil
	}

	entries, err := walk.Walk(b.root, bs.ignore, b.Generated)
	if err != nil {
		return err
	}
	bs.entries = entries
	bs.logger.Info("Discovered source files", logfields.Count(len(entries)))
	return nil
}
