package assets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/pagepack/internal/buildconfig"
	"github.com/wolfeidau/pagepack/internal/naming"
	"github.com/wolfeidau/pagepack/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/wolfeidau/pagepack/internal/assets"

var sourceMapMarker = []byte("# sourceMappingURL=")

// Build runs the lifecycle hooks and esbuild with the configured settings
func (p *Pipeline) Build(ctx context.Context) (*Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	started := time.Now()
	metrics := telemetry.GetMetrics()

	ctx, span := otel.Tracer(tracerName).Start(ctx, "assets.Build")
	defer span.End()

	result, err := p.build(ctx)
	elapsed := time.Since(started)

	metrics.BuildsTotal.Add(ctx, 1)
	metrics.BuildDuration.Record(ctx, float64(elapsed.Milliseconds()))
	if err != nil {
		metrics.BuildErrorsTotal.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	result.Duration = elapsed
	span.SetAttributes(
		attribute.String("build.id", result.BuildID),
		attribute.Int("build.assets", len(result.Assets)),
		attribute.Int("build.inlined", len(result.Inlined)),
	)

	log.Info().
		Str("build_id", result.BuildID).
		Int("assets", len(result.Assets)).
		Int("inlined", len(result.Inlined)).
		Dur("duration", elapsed).
		Msg("Build complete")

	return result, nil
}

func (p *Pipeline) build(ctx context.Context) (*Result, error) {
	result := &Result{
		BuildID:    uuid.NewString(),
		OutputDir:  p.config.OutputDir,
		PublicPath: p.config.PublicPath,
		Entries:    map[string]EntryOutput{},
	}

	if err := p.runBeforeBuild(ctx); err != nil {
		return nil, err
	}

	entryPoints, err := p.entryPoints()
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entryPoints))
	for _, ep := range entryPoints {
		names = append(names, ep.InputPath)
	}
	log.Info().Strs("entrypoints", names).Msg("Building assets")

	state := newLoadState(p.config)
	built, err := p.bundle(ctx, entryPoints, state)
	if err != nil {
		return nil, err
	}

	outputs, metadata, err := p.nameOutputs(built)
	if err != nil {
		return nil, err
	}

	if err := p.write(ctx, result, outputs, state, built.Metafile); err != nil {
		return nil, err
	}

	p.metadata = metadata
	for name := range p.config.Entries {
		scripts, styles := p.entryAssets(name, outputs, metadata)
		result.Entries[name] = EntryOutput{Scripts: scripts, Styles: styles}
	}

	if err := p.runAfterEmit(ctx, result); err != nil {
		return nil, err
	}

	return result, nil
}

func (p *Pipeline) runBeforeBuild(ctx context.Context) error {
	_, span := otel.Tracer(tracerName).Start(ctx, "assets.BeforeBuild")
	defer span.End()

	for _, plugin := range p.plugins {
		hook, ok := plugin.(BeforeBuilder)
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		log.Debug().Str("plugin", plugin.Name()).Msg("Running before build hook")
		if err := hook.BeforeBuild(ctx, p.config); err != nil {
			return fmt.Errorf("plugin %s: %w", plugin.Name(), err)
		}
	}
	return nil
}

func (p *Pipeline) runAfterEmit(ctx context.Context, result *Result) error {
	_, span := otel.Tracer(tracerName).Start(ctx, "assets.AfterEmit")
	defer span.End()

	for _, plugin := range p.plugins {
		hook, ok := plugin.(AfterEmitter)
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		log.Debug().Str("plugin", plugin.Name()).Msg("Running after emit hook")
		if err := hook.AfterEmit(ctx, result); err != nil {
			return fmt.Errorf("plugin %s: %w", plugin.Name(), err)
		}
	}
	return nil
}

func (p *Pipeline) entryPoints() ([]api.EntryPoint, error) {
	if len(p.config.Entries) == 0 {
		return nil, ErrNoEntryPoints
	}

	names := buildconfig.Entries(p.config.Entries).Names()
	entryPoints := make([]api.EntryPoint, 0, len(names))
	for _, name := range names {
		input := p.config.Entries[name]
		info, err := os.Stat(input)
		if err != nil || info.IsDir() {
			return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, input)
		}
		entryPoints = append(entryPoints, api.EntryPoint{InputPath: input, OutputPath: name})
	}
	return entryPoints, nil
}

func (p *Pipeline) bundle(ctx context.Context, entryPoints []api.EntryPoint, state *loadState) (api.BuildResult, error) {
	_, span := otel.Tracer(tracerName).Start(ctx, "assets.Bundle", trace.WithAttributes(
		attribute.Int("build.entrypoints", len(entryPoints)),
	))
	defer span.End()

	outdir := p.config.OutputDir
	result := api.Build(api.BuildOptions{
		EntryPointsAdvanced: entryPoints,
		AbsWorkingDir:       p.config.BaseDir,
		Bundle:              true,
		Write:               false,
		Outdir:              outdir,
		Format:              api.FormatIIFE,
		Platform:            api.PlatformBrowser,
		PublicPath:          p.config.PublicPath,
		MinifyWhitespace:    p.config.Minify,
		MinifyIdentifiers:   p.config.Minify,
		// syntax minification may reintroduce syntax a transpile rule lowered
		MinifySyntax: p.config.Minify && (p.config.Rules == nil || !p.config.Rules.HasLoader(buildconfig.LoaderTranspile)),
		Sourcemap:    p.config.SourceMap,
		Metafile:     true,
		LogLevel:     api.LogLevelSilent,
		Plugins:      []api.Plugin{state.plugin()},
	})

	for _, msg := range result.Warnings {
		log.Warn().Str("warning", msg.Text).Msg("Build warning")
	}

	if len(result.Errors) > 0 {
		for _, msg := range result.Errors {
			event := log.Error().Str("error", msg.Text)
			if msg.Location != nil {
				event = event.Str("file", msg.Location.File).Int("line", msg.Location.Line)
			}
			event.Msg("Build error")
		}
		return result, &BuildError{Messages: result.Errors}
	}

	return result, nil
}

// namedOutput is an esbuild output file after content hash naming.
type namedOutput struct {
	rel      string // esbuild name relative to the output dir
	asset    Asset
	mapOwner string // for source maps, rel of the file the map belongs to
}

// nameOutputs applies the output filename template to every bundle and
// renames source maps to follow the file they describe.
func (p *Pipeline) nameOutputs(built api.BuildResult) (map[string]*namedOutput, *BuildMetadata, error) {
	outputs := map[string]*namedOutput{}
	var maps []*namedOutput

	for _, file := range built.OutputFiles {
		rel, err := filepath.Rel(p.config.OutputDir, file.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("output %s outside output dir: %w", file.Path, err)
		}
		rel = filepath.ToSlash(rel)

		if strings.HasSuffix(rel, ".map") {
			maps = append(maps, &namedOutput{rel: rel, mapOwner: strings.TrimSuffix(rel, ".map"), asset: Asset{Kind: KindSourceMap, Contents: file.Contents}})
			continue
		}

		ext := path.Ext(rel)
		logical := strings.TrimSuffix(rel, ext)
		kind := KindScript
		tmpl := p.config.Filename
		if ext != ".js" {
			kind = KindStylesheet
			if ext != ".css" {
				kind = KindFile
			}
			if tmpl, err = naming.Parse(naming.WithExt(tmpl.String(), strings.TrimPrefix(ext, "."))); err != nil {
				return nil, nil, err
			}
		}

		body, hasMapRef := splitSourceMapRef(file.Contents, path.Base(rel)+".map")
		name := tmpl.Execute(logical, strings.TrimPrefix(ext, "."), body)

		contents := body
		if hasMapRef {
			contents = appendSourceMapRef(body, path.Base(name)+".map", ext == ".css")
		}

		outputs[rel] = &namedOutput{
			rel: rel,
			asset: Asset{
				Name:     name,
				Logical:  logical,
				Kind:     kind,
				Size:     int64(len(contents)),
				Contents: contents,
			},
		}
	}

	for _, m := range maps {
		owner, ok := outputs[m.mapOwner]
		if !ok {
			return nil, nil, fmt.Errorf("source map %s has no matching output", m.rel)
		}
		m.asset.Name = owner.asset.Name + ".map"
		m.asset.Logical = owner.asset.Logical
		m.asset.Size = int64(len(m.asset.Contents))
		outputs[m.rel] = m
	}

	metadata, err := p.renameMetadata(built.Metafile, outputs)
	if err != nil {
		return nil, nil, err
	}

	return outputs, metadata, nil
}

// renameMetadata parses the esbuild metafile and rekeys outputs by their
// final output directory relative names.
func (p *Pipeline) renameMetadata(metafile string, outputs map[string]*namedOutput) (*BuildMetadata, error) {
	var raw BuildMetadata
	if err := json.Unmarshal([]byte(metafile), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse metafile: %w", err)
	}

	rename := func(key string) string {
		rel, err := filepath.Rel(p.config.OutputDir, filepath.Join(p.config.BaseDir, filepath.FromSlash(key)))
		if err != nil {
			return key
		}
		if out, ok := outputs[filepath.ToSlash(rel)]; ok {
			return out.asset.Name
		}
		return key
	}

	metadata := &BuildMetadata{Outputs: make(map[string]OutputInfo, len(raw.Outputs))}
	for key, info := range raw.Outputs {
		renamed := OutputInfo{EntryPoint: info.EntryPoint, Bytes: info.Bytes}
		for _, imp := range info.Imports {
			renamed.Imports = append(renamed.Imports, ImportInfo{Path: rename(imp.Path), Kind: imp.Kind})
		}
		if info.CSSBundle != "" {
			renamed.CSSBundle = rename(info.CSSBundle)
		}
		metadata.Outputs[rename(key)] = renamed
	}
	return metadata, nil
}

func (p *Pipeline) write(ctx context.Context, result *Result, outputs map[string]*namedOutput, state *loadState, metafile string) error {
	_, span := otel.Tracer(tracerName).Start(ctx, "assets.Write")
	defer span.End()

	metrics := telemetry.GetMetrics()

	var assets []Asset
	for _, out := range outputs {
		assets = append(assets, out.asset)
	}
	state.mu.Lock()
	for _, a := range state.emitted {
		assets = append(assets, a)
	}
	result.Inlined = append(result.Inlined, state.inlined...)
	result.Transpiled = append(result.Transpiled, state.transpiled...)
	state.mu.Unlock()

	sort.Slice(assets, func(i, j int) bool { return assets[i].Name < assets[j].Name })
	sort.Slice(result.Inlined, func(i, j int) bool { return result.Inlined[i].Source < result.Inlined[j].Source })
	sort.Strings(result.Transpiled)

	var written int64
	for _, a := range assets {
		if err := writeFile(p.config.OutputDir, a.Name, a.Contents); err != nil {
			return err
		}
		written += a.Size
		log.Info().Str("file", a.Name).Str("kind", string(a.Kind)).Int64("size", a.Size).Msg("Built file")
	}
	result.Assets = assets

	metrics.AssetsEmittedTotal.Add(ctx, int64(len(assets)))
	metrics.AssetsInlinedTotal.Add(ctx, int64(len(result.Inlined)))
	metrics.BytesWrittenTotal.Add(ctx, written)

	// Write metafile
	if p.config.MetafilePath != "" {
		if err := os.WriteFile(p.config.MetafilePath, []byte(metafile), 0600); err != nil {
			return err
		}
	}

	return nil
}

func (p *Pipeline) entryAssets(name string, outputs map[string]*namedOutput, metadata *BuildMetadata) ([]string, []string) {
	js, ok := outputs[name+".js"]
	if !ok {
		return nil, nil
	}

	scripts := []string{js.asset.Name}
	visited := map[string]bool{js.asset.Name: true}
	var styles []string

	if info, ok := metadata.Outputs[js.asset.Name]; ok {
		p.addDependencies(info, &scripts, visited)
		if info.CSSBundle != "" {
			styles = append(styles, info.CSSBundle)
		}
	}
	if len(styles) == 0 {
		if css, ok := outputs[name+".css"]; ok {
			styles = append(styles, css.asset.Name)
		}
	}

	return scripts, styles
}

// LoadScripts returns the ordered list of script URLs needed for the given
// entrypoint source path and the main entrypoint file URL
func (p *Pipeline) LoadScripts(entryPointPath string) ([]string, string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.metadata == nil {
		return nil, "", ErrNotBuilt
	}

	entryPointPath = filepath.ToSlash(entryPointPath)
	visited := make(map[string]bool)

	// Find the output file for this entrypoint
	for outputPath, info := range p.metadata.Outputs {
		if info.EntryPoint == entryPointPath {
			scripts := []string{outputPath}
			visited[outputPath] = true
			p.addDependencies(info, &scripts, visited)
			for i := range scripts {
				scripts[i] = p.config.PublicPath + scripts[i]
			}
			return scripts, scripts[0], nil
		}
	}

	return nil, "", errors.New("entrypoint not found in metadata")
}

func (p *Pipeline) addDependencies(output OutputInfo, scripts *[]string, visited map[string]bool) {
	for _, imp := range output.Imports {
		if !visited[imp.Path] {
			visited[imp.Path] = true
			*scripts = append(*scripts, imp.Path)

			if chunkInfo, exists := p.metadata.Outputs[imp.Path]; exists {
				p.addDependencies(chunkInfo, scripts, visited)
			}
		}
	}
}

// splitSourceMapRef strips a trailing sourceMappingURL comment pointing at
// mapName so the content hash covers only the code.
func splitSourceMapRef(content []byte, mapName string) ([]byte, bool) {
	idx := bytes.LastIndex(content, sourceMapMarker)
	if idx < 2 {
		return content, false
	}
	start := idx - 2
	if start > 0 && content[start-1] != '\n' {
		return content, false
	}

	ref := content[idx+len(sourceMapMarker):]
	ref = bytes.TrimSpace(ref)
	ref = bytes.TrimSpace(bytes.TrimSuffix(ref, []byte("*/")))
	if string(ref) != mapName {
		return content, false
	}
	return content[:start], true
}

func appendSourceMapRef(body []byte, mapName string, css bool) []byte {
	out := make([]byte, 0, len(body)+len(mapName)+32)
	out = append(out, body...)
	if css {
		out = append(out, "/*# sourceMappingURL="+mapName+" */\n"...)
	} else {
		out = append(out, "//# sourceMappingURL="+mapName+"\n"...)
	}
	return out
}
