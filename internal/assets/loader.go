package assets

import (
	"encoding/base64"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/pagepack/internal/naming"
	"github.com/wolfeidau/pagepack/internal/rules"
)

// loadState routes files esbuild loads through the module rules and collects
// what the loaders produced. esbuild calls OnLoad concurrently.
type loadState struct {
	rules      *rules.Set
	publicPath string
	sourceMap  bool

	mu         sync.Mutex
	emitted    map[string]Asset
	inlined    []InlinedAsset
	transpiled []string
}

func newLoadState(config Config) *loadState {
	return &loadState{
		rules:      config.Rules,
		publicPath: config.PublicPath,
		sourceMap:  config.SourceMap != api.SourceMapNone,
		emitted:    map[string]Asset{},
	}
}

func (s *loadState) plugin() api.Plugin {
	return api.Plugin{
		Name: "pagepack-rules",
		Setup: func(build api.PluginBuild) {
			build.OnLoad(api.OnLoadOptions{Filter: `.*`, Namespace: "file"}, s.onLoad)
		},
	}
}

func (s *loadState) onLoad(args api.OnLoadArgs) (api.OnLoadResult, error) {
	if s.rules == nil {
		return api.OnLoadResult{}, nil
	}
	rule, ok := s.rules.Match(args.Path)
	if !ok {
		return api.OnLoadResult{}, nil
	}

	content, err := os.ReadFile(args.Path)
	if err != nil {
		return api.OnLoadResult{}, err
	}

	disposition := rule.Decide(int64(len(content)))
	log.Debug().Str("path", args.Path).Int("rule", rule.Index).Str("disposition", disposition.String()).Msg("Loading file")

	switch disposition {
	case rules.Transpile:
		return s.transpile(args.Path, content, rule)
	case rules.Inline:
		return s.inline(args.Path, content), nil
	case rules.Emit:
		return s.emit(args.Path, content, rule)
	case rules.Text:
		text := string(content)
		return api.OnLoadResult{Contents: &text, Loader: api.LoaderText}, nil
	default:
		return api.OnLoadResult{}, nil
	}
}

func (s *loadState) transpile(path string, content []byte, rule *rules.Rule) (api.OnLoadResult, error) {
	result := api.Transform(string(content), api.TransformOptions{
		Loader:     sourceLoader(path),
		Target:     rule.Target,
		Sourcefile: path,
		Sourcemap:  cond(s.sourceMap, api.SourceMapInline, api.SourceMapNone),
	})
	if len(result.Errors) > 0 {
		return api.OnLoadResult{Errors: result.Errors, Warnings: result.Warnings}, nil
	}

	s.mu.Lock()
	s.transpiled = append(s.transpiled, path)
	s.mu.Unlock()

	code := string(result.Code)
	return api.OnLoadResult{Contents: &code, Loader: api.LoaderJS, Warnings: result.Warnings}, nil
}

func (s *loadState) inline(path string, content []byte) api.OnLoadResult {
	uri := "data:" + mimeType(path) + ";base64," + base64.StdEncoding.EncodeToString(content)

	s.mu.Lock()
	s.inlined = append(s.inlined, InlinedAsset{Source: path, Size: int64(len(content))})
	s.mu.Unlock()

	return exportString(uri)
}

func (s *loadState) emit(path string, content []byte, rule *rules.Rule) (api.OnLoadResult, error) {
	base := filepath.Base(path)
	ext := strings.TrimPrefix(filepath.Ext(base), ".")
	logical := strings.TrimSuffix(base, filepath.Ext(base))

	name, err := naming.Interpolate(rule.Name, logical, ext, content)
	if err != nil {
		return api.OnLoadResult{}, err
	}

	s.mu.Lock()
	s.emitted[name] = Asset{
		Name:     name,
		Logical:  logical,
		Kind:     KindFile,
		Size:     int64(len(content)),
		Source:   path,
		Contents: content,
	}
	s.mu.Unlock()

	return exportString(s.publicPath + name), nil
}

func exportString(value string) api.OnLoadResult {
	contents := "export default " + strconv.Quote(value) + ";\n"
	return api.OnLoadResult{Contents: &contents, Loader: api.LoaderJS}
}

func sourceLoader(path string) api.Loader {
	switch filepath.Ext(path) {
	case ".jsx":
		return api.LoaderJSX
	case ".ts", ".mts", ".cts":
		return api.LoaderTS
	case ".tsx":
		return api.LoaderTSX
	default:
		return api.LoaderJS
	}
}

func mimeType(path string) string {
	t := mime.TypeByExtension(filepath.Ext(path))
	if t == "" {
		return "application/octet-stream"
	}
	// drop parameters such as charset, data URIs only need the media type
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	return t
}

func cond[T any](condition bool, trueVal, falseVal T) T {
	if condition {
		return trueVal
	}
	return falseVal
}
