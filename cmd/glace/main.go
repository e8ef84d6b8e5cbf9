package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"github.com/hazae41/glace/cmd/glace/commands"
	"github.com/hazae41/glace/internal/foundation/errors"
	"github.com/hazae41/glace/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("glace"),
		kong.Description("Bundle an HTML source tree into a deployable static site."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)
	if err := parser.Run(&commands.Global{Logger: slog.Default()}, cli); err != nil {
		errors.NewCLIErrorAdapter(cli.Verbose, nil).HandleError(err)
	}
}
