package commands

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/pagepack/internal/logger"
)

// BuildCmd runs a single build.
type BuildCmd struct {
	ConfigFlags `embed:""`

	Metafile string `help:"write the esbuild metafile to this path" default:"" env:"PAGEPACK_METAFILE"`
	Tracing  bool   `help:"enable tracing" default:"false" env:"PAGEPACK_TRACING"`
}

func (c *BuildCmd) Run(ctx context.Context, globals *Globals) error {
	log.Logger = logger.Setup(globals.Debug)

	log.Info().Str("version", globals.Version).Str("config", c.Config).Msg("Starting build")

	stop := startTelemetry(ctx, c.Tracing, globals.Version)
	defer stop()

	cfg, err := c.load()
	if err != nil {
		return err
	}

	result, err := runBuild(ctx, cfg, c.Metafile)
	if err != nil {
		return err
	}

	for name, entry := range result.Entries {
		log.Info().Str("entry", name).Strs("scripts", entry.Scripts).Strs("styles", entry.Styles).Msg("Entry built")
	}
	log.Info().Str("output", result.OutputDir).Str("build_id", result.BuildID).Dur("duration", result.Duration).Msg("Build finished")

	return nil
}
