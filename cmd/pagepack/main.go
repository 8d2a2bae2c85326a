package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/pagepack/cmd/pagepack/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Debug   bool `help:"Enable debug mode."`
		Version kong.VersionFlag
		Build   commands.BuildCmd  `cmd:"" help:"Bundle the configured entries into the output directory"`
		Serve   commands.ServeCmd  `cmd:"" help:"Build once and serve the output directory"`
		Config  commands.ConfigCmd `cmd:"" help:"Manage the build configuration"`
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("pagepack"),
		kong.Description("Bundle a browser application into content hashed static files."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
