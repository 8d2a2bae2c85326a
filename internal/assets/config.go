package assets

import (
	"fmt"
	"path/filepath"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/wolfeidau/pagepack/internal/buildconfig"
	"github.com/wolfeidau/pagepack/internal/naming"
	"github.com/wolfeidau/pagepack/internal/rules"
)

// DefaultFilename is the bundle naming template used when none is configured.
const DefaultFilename = "[name].[hash:20].js"

type Config struct {
	// Base directory relative paths and metafile keys are resolved against
	BaseDir string
	// Entry points keyed by logical bundle name, absolute paths
	Entries map[string]string
	// Output directory for built files
	OutputDir string
	// Naming template for bundles (e.g., "[name].[hash:20].js")
	Filename naming.Template
	// Prefix for URLs referencing emitted files
	PublicPath string
	// Whether to minify output
	Minify bool
	// Source map mode
	SourceMap api.SourceMap
	// Compiled module rules
	Rules *rules.Set
	// Optional path to write the esbuild metafile to
	MetafilePath string
}

// ConfigFrom compiles a build configuration into pipeline settings.
func ConfigFrom(cfg *buildconfig.Config) (Config, error) {
	base, err := filepath.Abs(cfg.Context)
	if err != nil {
		return Config{}, fmt.Errorf("failed to resolve context: %w", err)
	}
	anchored := *cfg
	anchored.Context = base

	pattern := cfg.Output.Filename
	if pattern == "" {
		pattern = DefaultFilename
	}
	filename, err := naming.Parse(pattern)
	if err != nil {
		return Config{}, fmt.Errorf("output.filename: %w", err)
	}

	set, err := rules.Compile(cfg.Module)
	if err != nil {
		return Config{}, err
	}

	entries := make(map[string]string, len(cfg.Entry))
	for name, path := range cfg.Entry {
		entries[name] = anchored.Resolve(path)
	}

	return Config{
		BaseDir:    base,
		Entries:    entries,
		OutputDir:  anchored.OutputDir(),
		Filename:   filename,
		PublicPath: cfg.Output.PublicPath,
		Minify:     cfg.IsProduction(),
		SourceMap:  sourceMapFor(cfg.Devtool),
		Rules:      set,
	}, nil
}

func sourceMapFor(devtool string) api.SourceMap {
	switch devtool {
	case buildconfig.DevtoolSourceMap:
		return api.SourceMapLinked
	case buildconfig.DevtoolInlineSourceMap:
		return api.SourceMapInline
	default:
		return api.SourceMapNone
	}
}
