package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/pagepack/internal/buildconfig"
	"github.com/wolfeidau/pagepack/internal/logger"
)

type ConfigCmd struct {
	Init     ConfigInitCmd     `cmd:"" help:"Write the stock configuration file"`
	Show     ConfigShowCmd     `cmd:"" help:"Print the effective configuration"`
	Validate ConfigValidateCmd `cmd:"" help:"Check the configuration for errors"`
}

type ConfigInitCmd struct {
	Path  string `arg:"" optional:"" default:"pagepack.yaml" help:"Where to write the configuration"`
	Force bool   `help:"Overwrite an existing file" default:"false"`
}

func (c *ConfigInitCmd) Run(ctx context.Context, globals *Globals) error {
	log.Logger = logger.Setup(globals.Debug)

	if _, err := os.Stat(c.Path); err == nil && !c.Force {
		return fmt.Errorf("%s already exists, use --force to overwrite", c.Path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to stat %s: %w", c.Path, err)
	}

	if err := buildconfig.Save(c.Path, buildconfig.Default()); err != nil {
		return err
	}

	log.Info().Str("path", c.Path).Msg("Configuration written")
	return nil
}

type ConfigShowCmd struct {
	ConfigFlags `embed:""`
}

func (c *ConfigShowCmd) Run(ctx context.Context, globals *Globals) error {
	log.Logger = logger.Setup(globals.Debug)
	return c.show(os.Stdout)
}

func (c *ConfigShowCmd) show(w io.Writer) error {
	cfg, err := c.load()
	if err != nil {
		return err
	}

	data, err := buildconfig.Marshal(cfg)
	if err != nil {
		return err
	}

	_, err = w.Write(data)
	return err
}

type ConfigValidateCmd struct {
	ConfigFlags `embed:""`
}

func (c *ConfigValidateCmd) Run(ctx context.Context, globals *Globals) error {
	log.Logger = logger.Setup(globals.Debug)

	cfg, err := c.load()
	if err != nil {
		return err
	}

	log.Info().Str("context", cfg.Context).Strs("entries", cfg.Entry.Names()).Msg("Configuration is valid")
	return nil
}
