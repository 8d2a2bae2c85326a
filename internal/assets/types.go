package assets

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

type BuildMetadata struct {
	Outputs map[string]OutputInfo `json:"outputs"`
}

type OutputInfo struct {
	EntryPoint string       `json:"entryPoint"`
	Imports    []ImportInfo `json:"imports"`
	CSSBundle  string       `json:"cssBundle"`
	Bytes      int64        `json:"bytes"`
}

type ImportInfo struct {
	Path string `json:"path"`
	Kind string `json:"kind"`
}

// Plugin is a build lifecycle hook. Hooks are discovered by implementing
// BeforeBuilder and/or AfterEmitter and run in declaration order.
type Plugin interface {
	Name() string
}

// BeforeBuilder runs before esbuild is invoked.
type BeforeBuilder interface {
	BeforeBuild(ctx context.Context, config Config) error
}

// AfterEmitter runs once bundles and loader files have been written.
type AfterEmitter interface {
	AfterEmit(ctx context.Context, result *Result) error
}

type AssetKind string

const (
	KindScript     AssetKind = "script"
	KindStylesheet AssetKind = "stylesheet"
	KindSourceMap  AssetKind = "sourcemap"
	KindFile       AssetKind = "file"
	KindDocument   AssetKind = "document"
	KindCompressed AssetKind = "compressed"
	KindManifest   AssetKind = "manifest"
)

// Asset is a file written to the output directory.
type Asset struct {
	// Slash separated path relative to the output directory
	Name string `json:"name"`
	// Logical name the file was derived from (entry name or source base name)
	Logical string    `json:"logical,omitempty"`
	Kind    AssetKind `json:"kind"`
	Size    int64     `json:"size"`
	// Source file for loader emitted assets
	Source   string `json:"source,omitempty"`
	Contents []byte `json:"-"`
}

// InlinedAsset records a source file embedded as a data URI.
type InlinedAsset struct {
	Source string `json:"source"`
	Size   int64  `json:"size"`
}

// EntryOutput lists the asset names an entry needs, in load order.
type EntryOutput struct {
	Scripts []string `json:"scripts"`
	Styles  []string `json:"styles,omitempty"`
}

// Result describes the outcome of a build.
type Result struct {
	BuildID    string
	OutputDir  string
	PublicPath string
	Assets     []Asset
	Entries    map[string]EntryOutput
	Inlined    []InlinedAsset
	Transpiled []string
	Duration   time.Duration

	mu sync.Mutex
}

// URL returns the public URL of an emitted asset name.
func (r *Result) URL(name string) string {
	return r.PublicPath + name
}

// Asset returns the emitted asset with the given name.
func (r *Result) Asset(name string) (Asset, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.Assets {
		if a.Name == name {
			return a, true
		}
	}
	return Asset{}, false
}

// Snapshot returns a copy of the asset list sorted by name.
func (r *Result) Snapshot() []Asset {
	r.mu.Lock()
	defer r.mu.Unlock()

	assets := make([]Asset, len(r.Assets))
	copy(assets, r.Assets)
	sort.Slice(assets, func(i, j int) bool { return assets[i].Name < assets[j].Name })
	return assets
}

// Emit writes contents to name inside the output directory and records it.
func (r *Result) Emit(name string, kind AssetKind, logical string, contents []byte) error {
	if err := writeFile(r.OutputDir, name, contents); err != nil {
		return err
	}
	r.record(Asset{Name: name, Logical: logical, Kind: kind, Size: int64(len(contents)), Contents: contents})
	return nil
}

func (r *Result) record(a Asset) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.Assets {
		if r.Assets[i].Name == a.Name {
			r.Assets[i] = a
			return
		}
	}
	r.Assets = append(r.Assets, a)
}

func writeFile(dir, name string, contents []byte) error {
	clean := path.Clean("/" + name)[1:]
	if clean == "" {
		return fmt.Errorf("invalid asset name %q", name)
	}
	target := filepath.Join(dir, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	//nolint:gosec // build output is served to browsers and must be world readable
	if err := os.WriteFile(target, contents, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// Pipeline manages the asset build process and script loading
type Pipeline struct {
	config   Config
	plugins  []Plugin
	metadata *BuildMetadata
	mu       sync.RWMutex
}

// New creates a new asset pipeline with the given configuration and lifecycle plugins
func New(config Config, plugins ...Plugin) *Pipeline {
	return &Pipeline{
		config:  config,
		plugins: plugins,
	}
}
