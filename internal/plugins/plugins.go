// Package plugins implements the build lifecycle hooks: clean before build,
// and html, compress and manifest after emit.
package plugins

import (
	"fmt"

	"github.com/wolfeidau/pagepack/internal/assets"
	"github.com/wolfeidau/pagepack/internal/buildconfig"
)

// FromConfig builds the configured plugins in declaration order.
func FromConfig(cfg *buildconfig.Config) ([]assets.Plugin, error) {
	plugins := make([]assets.Plugin, 0, len(cfg.Plugins))

	for i, p := range cfg.Plugins {
		name, ok := buildconfig.CanonicalPlugin(p.Name)
		if !ok {
			return nil, fmt.Errorf("plugins[%d]: unknown plugin %q", i, p.Name)
		}

		opts := p.Options
		switch name {
		case buildconfig.PluginClean:
			paths := make([]string, 0, len(opts.Paths))
			for _, path := range opts.Paths {
				paths = append(paths, cfg.Resolve(path))
			}
			plugins = append(plugins, &Clean{Root: cfg.Context, Paths: paths, Exclude: opts.Exclude})

		case buildconfig.PluginHTML:
			h := &HTML{Filename: opts.Filename, Title: opts.Title, Inject: opts.Inject}
			if opts.Template != "" {
				h.Template = cfg.Resolve(opts.Template)
			}
			plugins = append(plugins, h)

		case buildconfig.PluginCompress:
			c, err := NewCompress(opts.Algorithms, opts.Threshold)
			if err != nil {
				return nil, fmt.Errorf("plugins[%d]: %w", i, err)
			}
			plugins = append(plugins, c)

		case buildconfig.PluginManifest:
			plugins = append(plugins, &Manifest{Filename: opts.Filename})
		}
	}

	return plugins, nil
}
