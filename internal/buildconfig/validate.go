package buildconfig

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/wolfeidau/pagepack/internal/naming"
)

// Canonical loader names
const (
	LoaderTranspile = "transpile"
	LoaderURL       = "url"
	LoaderFile      = "file"
	LoaderText      = "text"
)

// Canonical plugin names
const (
	PluginHTML     = "html"
	PluginClean    = "clean"
	PluginCompress = "compress"
	PluginManifest = "manifest"
)

var loaderAliases = map[string]string{
	"babel":        LoaderTranspile,
	"babel-loader": LoaderTranspile,
	"transpile":    LoaderTranspile,
	"url":          LoaderURL,
	"url-loader":   LoaderURL,
	"file":         LoaderFile,
	"file-loader":  LoaderFile,
	"raw":          LoaderText,
	"raw-loader":   LoaderText,
	"text":         LoaderText,
}

var pluginAliases = map[string]string{
	"html":                       PluginHTML,
	"html-webpack-plugin":        PluginHTML,
	"clean":                      PluginClean,
	"clean-webpack-plugin":       PluginClean,
	"compress":                   PluginCompress,
	"compression-webpack-plugin": PluginCompress,
	"manifest":                   PluginManifest,
	"webpack-manifest-plugin":    PluginManifest,
}

// html plugin inject positions, "true" is the same as "body"
var injectPositions = map[string]bool{
	"":      true,
	"body":  true,
	"head":  true,
	"true":  true,
	"false": true,
}

var presets = map[string]bool{
	"env":    true,
	"es2015": true,
	"es2017": true,
	"es2020": true,
	"esnext": true,
}

// CanonicalLoader maps a loader name or alias to its canonical name.
func CanonicalLoader(name string) (string, bool) {
	canonical, ok := loaderAliases[name]
	return canonical, ok
}

// CanonicalPlugin maps a plugin name or alias to its canonical name.
func CanonicalPlugin(name string) (string, bool) {
	canonical, ok := pluginAliases[name]
	return canonical, ok
}

// Validate reports every problem found in the configuration.
func (c *Config) Validate() error {
	var errs []error

	switch c.Mode {
	case "", ModeProduction, ModeDevelopment:
	default:
		errs = append(errs, fmt.Errorf("unknown mode %q", c.Mode))
	}

	switch c.Devtool {
	case "", DevtoolNone, DevtoolSourceMap, DevtoolInlineSourceMap:
	default:
		errs = append(errs, fmt.Errorf("unknown devtool %q", c.Devtool))
	}

	if len(c.Entry) == 0 {
		errs = append(errs, ErrNoEntries)
	}
	for name, path := range c.Entry {
		if name == "" || path == "" {
			errs = append(errs, fmt.Errorf("entry %q: name and path are required", name))
		}
	}

	if c.Output.Path == "" {
		errs = append(errs, errors.New("output.path is required"))
	}
	if c.Output.Filename != "" {
		if _, err := naming.Parse(c.Output.Filename); err != nil {
			errs = append(errs, fmt.Errorf("output.filename: %w", err))
		}
	}

	for i, rule := range c.Module.Rules {
		errs = append(errs, validateRule(i, rule)...)
	}

	for i, p := range c.Plugins {
		if _, ok := CanonicalPlugin(p.Name); !ok {
			errs = append(errs, fmt.Errorf("plugins[%d]: unknown plugin %q", i, p.Name))
		}
		if !injectPositions[p.Options.Inject] {
			errs = append(errs, fmt.Errorf("plugins[%d]: unknown inject position %q (body, head, true or false)", i, p.Options.Inject))
		}
		if p.Options.Threshold < 0 {
			errs = append(errs, fmt.Errorf("plugins[%d]: threshold must not be negative", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

func validateRule(i int, rule Rule) []error {
	var errs []error

	if rule.Test == "" {
		errs = append(errs, fmt.Errorf("rules[%d]: test is required", i))
	}
	for _, field := range []struct{ name, expr string }{
		{"test", rule.Test},
		{"exclude", rule.Exclude},
		{"include", rule.Include},
	} {
		if field.expr == "" {
			continue
		}
		if _, err := regexp.Compile(field.expr); err != nil {
			errs = append(errs, fmt.Errorf("rules[%d].%s: %w", i, field.name, err))
		}
	}

	chain := rule.Chain()
	if len(chain) == 0 {
		errs = append(errs, fmt.Errorf("rules[%d]: a loader is required", i))
	}
	for j, use := range chain {
		loader, ok := CanonicalLoader(use.Loader)
		if !ok {
			errs = append(errs, fmt.Errorf("rules[%d].use[%d]: unknown loader %q", i, j, use.Loader))
			continue
		}
		if use.Options.Limit < 0 {
			errs = append(errs, fmt.Errorf("rules[%d].use[%d]: limit must not be negative", i, j))
		}
		if use.Options.Fallback != "" {
			if fb, _ := CanonicalLoader(use.Options.Fallback); fb != LoaderFile {
				errs = append(errs, fmt.Errorf("rules[%d].use[%d]: unsupported fallback %q", i, j, use.Options.Fallback))
			}
		}
		if use.Options.Name != "" {
			if _, err := naming.Parse(use.Options.Name); err != nil {
				errs = append(errs, fmt.Errorf("rules[%d].use[%d].name: %w", i, j, err))
			}
		}
		if loader == LoaderTranspile {
			for _, preset := range use.Options.Presets {
				if !presets[preset] {
					errs = append(errs, fmt.Errorf("rules[%d].use[%d]: unknown preset %q", i, j, preset))
				}
			}
		}
	}

	return errs
}
