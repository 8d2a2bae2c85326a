package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/pagepack/internal/assets"
	"github.com/wolfeidau/pagepack/internal/buildconfig"
	"github.com/wolfeidau/pagepack/internal/plugins"
	"github.com/wolfeidau/pagepack/internal/telemetry"
)

type Globals struct {
	Debug   bool
	Version string
}

// ConfigFlags locate the configuration file and override parts of it.
type ConfigFlags struct {
	Config     string `help:"path to the build configuration" default:"pagepack.yaml" env:"PAGEPACK_CONFIG"`
	Mode       string `help:"override mode (production or development)" default:"" env:"PAGEPACK_MODE"`
	OutputPath string `help:"override output.path" default:"" env:"PAGEPACK_OUTPUT_PATH"`
	Devtool    string `help:"override devtool (none, source-map or inline-source-map)" default:"" env:"PAGEPACK_DEVTOOL"`
}

// load reads the configuration file, falling back to the stock configuration
// rooted at the working directory when the default file does not exist.
func (f ConfigFlags) load() (*buildconfig.Config, error) {
	cfg, err := buildconfig.Load(f.Config)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist) && (f.Config == "" || f.Config == buildconfig.DefaultConfigFile):
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		log.Debug().Str("context", wd).Msg("No configuration file, using defaults")
		cfg = buildconfig.Default()
		cfg.SetContext(wd)
	default:
		return nil, err
	}

	if f.Mode != "" {
		cfg.Mode = f.Mode
	}
	if f.OutputPath != "" {
		cfg.Output.Path = f.OutputPath
	}
	if f.Devtool != "" {
		cfg.Devtool = f.Devtool
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runBuild compiles the configuration into a pipeline and runs it once.
func runBuild(ctx context.Context, cfg *buildconfig.Config, metafile string) (*assets.Result, error) {
	config, err := assets.ConfigFrom(cfg)
	if err != nil {
		return nil, err
	}
	config.MetafilePath = metafile

	hooks, err := plugins.FromConfig(cfg)
	if err != nil {
		return nil, err
	}

	return assets.New(config, hooks...).Build(ctx)
}

// startTelemetry wires the OTLP exporters when enabled and returns a func
// flushing them.
func startTelemetry(ctx context.Context, enabled bool, version string) func() {
	if !enabled {
		return func() {}
	}

	log.Info().Msg("Tracing is enabled")
	shutdown, err := telemetry.InitTelemetry(ctx, telemetry.Options{
		ServiceName:    "pagepack",
		Version:        version,
		Traces:         true,
		Metrics:        true,
		MetricInterval: time.Second,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
		return func() {}
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Failed to shutdown telemetry")
		}
	}
}

func configureHTTPServer(addr string, handler http.Handler) *http.Server {
	// Create HTTP server
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       5 * time.Minute,
		MaxHeaderBytes:    8 * 1024, // 8KiB
	}
}
