package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	httpmiddleware "github.com/wolfeidau/pagepack/internal/http"
	"github.com/wolfeidau/pagepack/internal/logger"
)

// ServeCmd builds once then serves the output directory for local preview.
type ServeCmd struct {
	ConfigFlags `embed:""`

	Listen      string   `help:"HTTP server listen address" default:"127.0.0.1:8080" env:"PAGEPACK_LISTEN"`
	CORSOrigins []string `help:"allowed CORS origins" env:"PAGEPACK_CORS_ORIGINS"`
	Tracing     bool     `help:"enable tracing" default:"false" env:"PAGEPACK_TRACING"`
}

func (c *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	log.Logger = logger.Setup(globals.Debug)

	stop := startTelemetry(ctx, c.Tracing, globals.Version)
	defer stop()

	cfg, err := c.load()
	if err != nil {
		return err
	}

	result, err := runBuild(ctx, cfg, "")
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv := configureHTTPServer(c.Listen, newHandler(result.OutputDir, c.CORSOrigins, log.Logger))

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", c.Listen).Str("dir", result.OutputDir).Msg("Starting HTTP server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info().Msg("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// newHandler serves dir with cache headers, access logging and optional CORS.
func newHandler(dir string, origins []string, l zerolog.Logger) http.Handler {
	handler := httpmiddleware.CacheControlMiddleware()(http.FileServer(http.Dir(dir)))

	if len(origins) > 0 {
		handler = cors.New(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodGet, http.MethodHead},
		}).Handler(handler)
	}

	return logger.NewHTTPRequests(l).Wrap(handler)
}
