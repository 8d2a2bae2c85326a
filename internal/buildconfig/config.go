package buildconfig

import (
	"path/filepath"
)

// Build modes
const (
	ModeProduction  = "production"
	ModeDevelopment = "development"
)

// Devtool values controlling source map output
const (
	DevtoolNone            = "none"
	DevtoolSourceMap       = "source-map"
	DevtoolInlineSourceMap = "inline-source-map"
)

// DefaultEntryName is the logical name given to a single unnamed entry.
const DefaultEntryName = "main"

// DefaultInlineLimit is the size in bytes at or below which images are inlined.
const DefaultInlineLimit = 8192

// Config is the declarative build configuration record.
type Config struct {
	// Mode selects production (minified) or development output
	Mode string `yaml:"mode,omitempty"`
	// Devtool selects source map generation
	Devtool string `yaml:"devtool,omitempty"`
	// Context is the base directory relative paths are resolved against
	Context string `yaml:"context,omitempty"`
	// Entry maps logical bundle names to entry module paths
	Entry   Entries  `yaml:"entry"`
	Output  Output   `yaml:"output"`
	Module  Module   `yaml:"module,omitempty"`
	Plugins []Plugin `yaml:"plugins,omitempty"`
}

type Output struct {
	// Path is the directory generated artifacts are written to
	Path string `yaml:"path"`
	// Filename is the naming template for emitted bundles (e.g., "[name].[hash:20].js")
	Filename string `yaml:"filename,omitempty"`
	// PublicPath is prefixed to asset URLs referenced from bundles and HTML
	PublicPath string `yaml:"publicPath,omitempty"`
}

type Module struct {
	Rules []Rule `yaml:"rules,omitempty"`
}

// Rule routes files matching Test through a loader chain.
type Rule struct {
	Test    string `yaml:"test"`
	Exclude string `yaml:"exclude,omitempty"`
	Include string `yaml:"include,omitempty"`
	// Loader and Options are shorthand for a single element Use
	Loader  string        `yaml:"loader,omitempty"`
	Options LoaderOptions `yaml:"options,omitempty"`
	Use     []Use         `yaml:"use,omitempty"`
}

type Use struct {
	Loader  string        `yaml:"loader"`
	Options LoaderOptions `yaml:"options,omitempty"`
}

type LoaderOptions struct {
	// Presets selects the transpile target (e.g., "env")
	Presets []string `yaml:"presets,omitempty"`
	// Name is the naming template for emitted files
	Name string `yaml:"name,omitempty"`
	// Limit is the inline threshold in bytes for the url loader
	Limit int64 `yaml:"limit,omitempty"`
	// Fallback is the loader used above Limit, only "file" is supported
	Fallback string `yaml:"fallback,omitempty"`
}

// Plugin is a build lifecycle hook declaration.
type Plugin struct {
	Name    string        `yaml:"name"`
	Options PluginOptions `yaml:"options,omitempty"`
}

type PluginOptions struct {
	// html
	Template string `yaml:"template,omitempty"`
	Filename string `yaml:"filename,omitempty"`
	Title    string `yaml:"title,omitempty"`
	Inject   string `yaml:"inject,omitempty"`

	// clean
	Paths   []string `yaml:"paths,omitempty"`
	Exclude []string `yaml:"exclude,omitempty"`

	// compress
	Algorithms []string `yaml:"algorithms,omitempty"`
	Threshold  int64    `yaml:"threshold,omitempty"`
}

// Chain returns the loader chain for the rule, expanding the Loader shorthand.
func (r Rule) Chain() []Use {
	if r.Loader != "" {
		return append([]Use{{Loader: r.Loader, Options: r.Options}}, r.Use...)
	}
	return r.Use
}

// Resolve returns p as an absolute path, relative paths are joined to Context.
func (c *Config) Resolve(p string) string {
	if p == "" {
		return c.Context
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(c.Context, p)
}

// OutputDir returns the absolute output directory.
func (c *Config) OutputDir() string {
	return c.Resolve(c.Output.Path)
}

// IsProduction reports whether output should be minified.
func (c *Config) IsProduction() bool {
	return c.Mode == "" || c.Mode == ModeProduction
}

// Default returns the stock configuration: a single babel transpiled entry,
// url loaded images, an html page and a clean output directory.
func Default() *Config {
	return &Config{
		Devtool: DevtoolSourceMap,
		Entry:   Entries{DefaultEntryName: "./lib/js/src/index.js"},
		Output: Output{
			Path:     "docs/src",
			Filename: "[name].[hash:20].js",
		},
		Module: Module{
			Rules: []Rule{
				{
					Test:    `\.js$`,
					Exclude: `node_modules`,
					Loader:  "babel-loader",
					Options: LoaderOptions{Presets: []string{"env"}},
				},
				{
					Test: `\.(png|jpg|gif)$`,
					Use: []Use{
						{
							Loader: "url-loader",
							Options: LoaderOptions{
								Name:  "[name].[hash:20].[ext]",
								Limit: DefaultInlineLimit,
							},
						},
					},
				},
			},
		},
		Plugins: []Plugin{
			{Name: "html", Options: PluginOptions{Template: "./index.html", Inject: "body"}},
			{Name: "clean", Options: PluginOptions{Paths: []string{"docs/src"}}},
		},
	}
}
