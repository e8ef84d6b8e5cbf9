package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/hazae41/glace/internal/eventstore"
	"github.com/hazae41/glace/internal/foundation/errors"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int    `short:"n" help:"Number of builds to show" default:"10"`
	DB    string `name:"db" help:"Event log database (defaults to events.sqlite from the configuration)" type:"path"`
}

func (h *HistoryCmd) Run(_ *Global, root *CLI) error {
	path := h.DB
	if path == "" {
		cfg, err := root.loadConfig()
		if err != nil {
			return err
		}
		path = cfg.Events.SQLite
	}
	if path == "" {
		return errors.ConfigError("no event log configured").
			WithContext("hint", "set events.sqlite or pass --db").Build()
	}
	if _, err := os.Stat(path); err != nil {
		return errors.NotFoundError("event log not found").WithContext("path", path).Build()
	}

	store, err := eventstore.NewSQLiteStore(path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	projection := eventstore.NewBuildHistoryProjection(store, h.Limit)
	if err := projection.Rebuild(context.Background()); err != nil {
		return err
	}
	return printHistory(os.Stdout, projection.History())
}

func printHistory(w io.Writer, builds []eventstore.BuildSummary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "BUILD\tSTARTED\tTRIGGER\tSTATUS\tDOCS\tARTIFACTS\tDURATION\tERROR")
	for _, b := range builds {
		errText := b.Error
		if b.ErrorStage != "" {
			errText = b.ErrorStage + ": " + errText
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			shortID(b.BuildID), b.StartedAt.Local().Format(time.DateTime), b.Trigger, b.Status,
			b.Documents, b.Artifacts, b.Duration.Truncate(time.Millisecond), errText)
	}
	return tw.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
