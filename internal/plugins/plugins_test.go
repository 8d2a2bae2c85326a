package plugins

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/pagepack/internal/assets"
	"github.com/wolfeidau/pagepack/internal/buildconfig"
)

const bundleName = "main.0123456789abcdef0123.js"

func newResult(t *testing.T) *assets.Result {
	t.Helper()
	dir := t.TempDir()

	r := &assets.Result{
		BuildID:   "build-1",
		OutputDir: dir,
		Entries: map[string]assets.EntryOutput{
			"main": {Scripts: []string{bundleName}, Styles: []string{"main.0123456789abcdef0123.css"}},
		},
	}
	require.NoError(t, r.Emit(bundleName, assets.KindScript, "main", []byte(strings.Repeat("console.log('hello world');\n", 200))))
	require.NoError(t, r.Emit("main.0123456789abcdef0123.css", assets.KindStylesheet, "main", []byte("body{color:red}")))
	return r
}

func TestClean_BeforeBuild(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "docs", "src")
	require.NoError(t, os.MkdirAll(filepath.Join(out, "old", "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(out, "main.stale.js"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(out, "CNAME"), []byte("example.com"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "keep.txt"), []byte("x"), 0o600))

	c := &Clean{Root: root, Paths: []string{out}, Exclude: []string{"CNAME"}}
	require.NoError(t, c.BeforeBuild(context.Background(), assets.Config{BaseDir: root, OutputDir: out}))

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "CNAME", entries[0].Name())

	_, err = os.Stat(filepath.Join(root, "keep.txt"))
	require.NoError(t, err, "files outside the cleaned path survive")
}

func TestClean_defaultsToOutputDir(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "dist")

	c := &Clean{}
	require.NoError(t, c.BeforeBuild(context.Background(), assets.Config{BaseDir: root, OutputDir: out}))

	info, err := os.Stat(out)
	require.NoError(t, err, "missing output dir is created")
	require.True(t, info.IsDir())
}

func TestClean_outsideRoot(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		name string
		path string
	}{
		{name: "root itself", path: root},
		{name: "parent", path: filepath.Dir(root)},
		{name: "sibling", path: filepath.Join(filepath.Dir(root), "other")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Clean{Root: root, Paths: []string{tt.path}}
			err := c.BeforeBuild(context.Background(), assets.Config{BaseDir: root})
			require.ErrorIs(t, err, ErrOutsideRoot)
		})
	}
}

func TestHTML_injectBody(t *testing.T) {
	r := newResult(t)
	tmpl := filepath.Join(t.TempDir(), "index.html")
	require.NoError(t, os.WriteFile(tmpl, []byte(`<!DOCTYPE html>
<html>
<head><title>{{.Title}}</title></head>
<body>
<div id="root"></div>
</body>
</html>
`), 0o600))

	h := &HTML{Template: tmpl, Title: "Demo", Inject: InjectBody}
	require.NoError(t, h.AfterEmit(context.Background(), r))

	page, err := os.ReadFile(filepath.Join(r.OutputDir, "index.html"))
	require.NoError(t, err)
	doc := string(page)

	require.Contains(t, doc, "<title>Demo</title>")
	script := `<script type="text/javascript" src="` + bundleName + `"></script>`
	require.Contains(t, doc, script)
	require.True(t, strings.HasSuffix(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(doc), "</html>")), script+"</body>"),
		"script must be the last element of body: %s", doc)
	require.Less(t, strings.Index(doc, `<div id="root">`), strings.Index(doc, script))

	link := `<link href="main.0123456789abcdef0123.css" rel="stylesheet"/>`
	require.Contains(t, doc, link)
	require.Less(t, strings.Index(doc, link), strings.Index(doc, "</head>"))

	a, ok := r.Asset("index.html")
	require.True(t, ok)
	require.Equal(t, assets.KindDocument, a.Kind)
}

func TestHTML_injectHeadAndPublicPath(t *testing.T) {
	r := newResult(t)
	r.PublicPath = "/static/"

	h := &HTML{Inject: InjectHead, Filename: "app.html"}
	require.NoError(t, h.AfterEmit(context.Background(), r))

	page, err := os.ReadFile(filepath.Join(r.OutputDir, "app.html"))
	require.NoError(t, err)
	doc := string(page)

	require.Contains(t, doc, "<title>App</title>")
	script := `src="/static/` + bundleName + `"`
	require.Contains(t, doc, script)
	require.Less(t, strings.Index(doc, script), strings.Index(doc, "</head>"))
}

func TestHTML_injectNone(t *testing.T) {
	r := newResult(t)
	tmpl := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(tmpl, []byte(`<html><body>{{range .Scripts}}<script src="{{.}}" defer></script>{{end}}<pre>{{marshal .BuildID}}</pre></body></html>`), 0o600))

	h := &HTML{Template: tmpl, Inject: InjectNone}
	require.NoError(t, h.AfterEmit(context.Background(), r))

	page, err := os.ReadFile(filepath.Join(r.OutputDir, "index.html"))
	require.NoError(t, err)
	require.Equal(t, 1, strings.Count(string(page), "<script"))
	require.Contains(t, string(page), `&#34;build-1&#34;`)
}

func TestHTML_templateErrors(t *testing.T) {
	r := newResult(t)

	h := &HTML{Template: filepath.Join(t.TempDir(), "missing.html")}
	require.ErrorIs(t, h.AfterEmit(context.Background(), r), ErrTemplate)

	bad := filepath.Join(t.TempDir(), "bad.html")
	require.NoError(t, os.WriteFile(bad, []byte(`<html>{{.Title`), 0o600))
	h = &HTML{Template: bad}
	require.ErrorIs(t, h.AfterEmit(context.Background(), r), ErrTemplate)
}

func TestCompress_AfterEmit(t *testing.T) {
	r := newResult(t)

	c, err := NewCompress([]string{AlgorithmGzip, AlgorithmZstd}, 1024)
	require.NoError(t, err)
	require.NoError(t, c.AfterEmit(context.Background(), r))

	original, ok := r.Asset(bundleName)
	require.True(t, ok)

	gz, ok := r.Asset(bundleName + ".gz")
	require.True(t, ok)
	require.Equal(t, assets.KindCompressed, gz.Kind)
	zr, err := gzip.NewReader(bytes.NewReader(gz.Contents))
	require.NoError(t, err)
	plain, err := io.ReadAll(zr)
	require.NoError(t, err)
	require.Equal(t, original.Contents, plain)

	zst, ok := r.Asset(bundleName + ".zst")
	require.True(t, ok)
	dec, err := zstd.NewReader(nil)
	require.NoError(t, err)
	defer dec.Close()
	plain, err = dec.DecodeAll(zst.Contents, nil)
	require.NoError(t, err)
	require.Equal(t, original.Contents, plain)

	_, ok = r.Asset("main.0123456789abcdef0123.css.gz")
	require.False(t, ok, "files below the threshold are not compressed")

	_, err = os.Stat(filepath.Join(r.OutputDir, bundleName+".gz"))
	require.NoError(t, err)
}

func TestNewCompress_unknown(t *testing.T) {
	_, err := NewCompress([]string{"brotli"}, 0)
	require.ErrorIs(t, err, ErrUnknownCompression)

	c, err := NewCompress(nil, 0)
	require.NoError(t, err)
	require.Equal(t, []string{AlgorithmGzip}, c.algorithms)
}

func TestManifest_AfterEmit(t *testing.T) {
	r := newResult(t)
	require.NoError(t, r.Emit("logo.89abcdef01234567.png", assets.KindFile, "logo", []byte("png")))
	require.NoError(t, r.Emit(bundleName+".map", assets.KindSourceMap, "main", []byte("{}")))

	m := &Manifest{}
	require.NoError(t, m.AfterEmit(context.Background(), r))

	data, err := os.ReadFile(filepath.Join(r.OutputDir, "manifest.json"))
	require.NoError(t, err)

	var manifest ManifestFile
	require.NoError(t, json.Unmarshal(data, &manifest))

	assert.Equal(t, "build-1", manifest.BuildID)
	assert.Equal(t, bundleName, manifest.Files["main.js"])
	assert.Equal(t, bundleName+".map", manifest.Files["main.js.map"])
	assert.Equal(t, "main.0123456789abcdef0123.css", manifest.Files["main.css"])
	assert.Equal(t, "logo.89abcdef01234567.png", manifest.Files["logo.png"])
	assert.Equal(t, []string{bundleName}, manifest.Entrypoints["main"].Scripts)
	require.Len(t, manifest.Assets, 4)
	for _, a := range manifest.Assets {
		assert.Len(t, a.CRC64, 16)
	}
}

func TestManifestKey(t *testing.T) {
	tests := []struct {
		asset    assets.Asset
		expected string
	}{
		{assets.Asset{Name: "main.abc.js.map.gz", Logical: "main"}, "main.js.map.gz"},
		{assets.Asset{Name: "main.abc.css.zst", Logical: "main"}, "main.css.zst"},
		{assets.Asset{Name: "index.html", Logical: "index"}, "index.html"},
		{assets.Asset{Name: "img/logo.abc.png", Logical: "logo", Kind: assets.KindFile}, "img/logo.png"},
		{assets.Asset{Name: "raw.bin"}, "raw.bin"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			require.Equal(t, tt.expected, manifestKey(tt.asset))
		})
	}
}

func TestFromConfig(t *testing.T) {
	cfg := buildconfig.Default()
	cfg.SetContext("/project")
	cfg.Plugins = append(cfg.Plugins,
		buildconfig.Plugin{Name: "compression-webpack-plugin", Options: buildconfig.PluginOptions{Algorithms: []string{"zstd"}}},
		buildconfig.Plugin{Name: "manifest"},
	)

	plugins, err := FromConfig(cfg)
	require.NoError(t, err)
	require.Len(t, plugins, 4)

	html, ok := plugins[0].(*HTML)
	require.True(t, ok)
	require.Equal(t, filepath.Join("/project", "index.html"), html.Template)
	require.Equal(t, InjectBody, html.Inject)

	clean, ok := plugins[1].(*Clean)
	require.True(t, ok)
	require.Equal(t, []string{filepath.Join("/project", "docs", "src")}, clean.Paths)
	require.Equal(t, "/project", clean.Root)

	require.Equal(t, "compress", plugins[2].Name())
	require.Equal(t, "manifest", plugins[3].Name())

	cfg.Plugins = []buildconfig.Plugin{{Name: "compress", Options: buildconfig.PluginOptions{Algorithms: []string{"lz4"}}}}
	_, err = FromConfig(cfg)
	require.ErrorIs(t, err, ErrUnknownCompression)
}
