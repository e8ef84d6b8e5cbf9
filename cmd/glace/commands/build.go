package commands

import (
	"fmt"
	"log/slog"

	"github.com/hazae41/glace/internal/logfields"
)

// TriggerCLI marks builds started from the command line.
const TriggerCLI = "cli"

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	BuildFlags
}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	entries, err := b.apply(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	s, err := newSession(ctx, cfg, entries)
	if err != nil {
		return err
	}
	defer s.close()
	s.serveMetrics(ctx, cfg.Metrics.Addr)

	report, err := s.builder.Build(ctx, TriggerCLI)
	if err != nil {
		return err
	}
	slog.Info("Site written", logfields.Output(s.builder.Output()), logfields.Outcome(string(report.Outcome)))
	fmt.Println(report.Summary())
	return nil
}
