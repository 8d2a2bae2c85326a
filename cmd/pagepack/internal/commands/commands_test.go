package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/pagepack/internal/buildconfig"
	"github.com/wolfeidau/pagepack/internal/plugins"
)

const projectConfig = `mode: development
entry: ./src/index.js
output:
  path: dist
  filename: "[name].[contenthash:8].js"
plugins:
  - name: clean
  - name: html
    options:
      title: Preview
  - name: manifest
`

func writeProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "index.js"), []byte("console.log('preview');\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "pagepack.yaml"), []byte(projectConfig), 0o600))
	return root
}

func TestBuildCmd_Run(t *testing.T) {
	root := writeProject(t)
	metafile := filepath.Join(t.TempDir(), "meta.json")

	cmd := &BuildCmd{
		ConfigFlags: ConfigFlags{Config: filepath.Join(root, "pagepack.yaml")},
		Metafile:    metafile,
	}
	require.NoError(t, cmd.Run(context.Background(), &Globals{}))

	dist := filepath.Join(root, "dist")
	entries, err := os.ReadDir(dist)
	require.NoError(t, err)

	var bundle string
	for _, e := range entries {
		if regexp.MustCompile(`^main\.[0-9a-f]{8}\.js$`).MatchString(e.Name()) {
			bundle = e.Name()
		}
	}
	require.NotEmpty(t, bundle, "bundle missing from %v", entries)

	page, err := os.ReadFile(filepath.Join(dist, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), `src="`+bundle+`"`)
	assert.Contains(t, string(page), "<title>Preview</title>")

	data, err := os.ReadFile(filepath.Join(dist, "manifest.json"))
	require.NoError(t, err)
	var manifest plugins.ManifestFile
	require.NoError(t, json.Unmarshal(data, &manifest))
	assert.Equal(t, bundle, manifest.Files["main.js"])

	_, err = os.Stat(metafile)
	require.NoError(t, err)
}

func TestBuildCmd_overrides(t *testing.T) {
	root := writeProject(t)

	cmd := &BuildCmd{ConfigFlags: ConfigFlags{
		Config:     filepath.Join(root, "pagepack.yaml"),
		OutputPath: "public",
		Devtool:    buildconfig.DevtoolNone,
	}}
	require.NoError(t, cmd.Run(context.Background(), &Globals{}))

	_, err := os.Stat(filepath.Join(root, "public", "index.html"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, "dist"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestConfigFlags_load(t *testing.T) {
	root := writeProject(t)

	t.Run("file", func(t *testing.T) {
		cfg, err := ConfigFlags{Config: filepath.Join(root, "pagepack.yaml"), Mode: buildconfig.ModeProduction}.load()
		require.NoError(t, err)
		assert.Equal(t, root, cfg.Context)
		assert.Equal(t, buildconfig.ModeProduction, cfg.Mode)
	})

	t.Run("invalid override", func(t *testing.T) {
		_, err := ConfigFlags{Config: filepath.Join(root, "pagepack.yaml"), Mode: "fast"}.load()
		require.ErrorIs(t, err, buildconfig.ErrInvalidConfig)
	})

	t.Run("missing explicit file", func(t *testing.T) {
		_, err := ConfigFlags{Config: filepath.Join(root, "other.yaml")}.load()
		require.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("missing default file", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)

		cfg, err := ConfigFlags{Config: buildconfig.DefaultConfigFile}.load()
		require.NoError(t, err)
		wd, err := os.Getwd()
		require.NoError(t, err)
		assert.Equal(t, wd, cfg.Context)
		assert.Equal(t, buildconfig.Default().Entry, cfg.Entry)
	})
}

func TestConfigInitCmd_Run(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pagepack.yaml")

	cmd := &ConfigInitCmd{Path: path}
	require.NoError(t, cmd.Run(context.Background(), &Globals{}))

	cfg, err := buildconfig.Load(path)
	require.NoError(t, err)
	assert.Equal(t, buildconfig.Default().Output, cfg.Output)

	err = cmd.Run(context.Background(), &Globals{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	cmd.Force = true
	require.NoError(t, cmd.Run(context.Background(), &Globals{}))
}

func TestConfigShowCmd_show(t *testing.T) {
	root := writeProject(t)

	cmd := &ConfigShowCmd{ConfigFlags: ConfigFlags{Config: filepath.Join(root, "pagepack.yaml")}}
	buf := new(bytes.Buffer)
	require.NoError(t, cmd.show(buf))

	cfg, err := buildconfig.Parse(buf.Bytes(), root)
	require.NoError(t, err)
	assert.Equal(t, buildconfig.ModeDevelopment, cfg.Mode)
	assert.Equal(t, "dist", cfg.Output.Path)
	assert.Len(t, cfg.Plugins, 3)
}

func TestConfigValidateCmd_Run(t *testing.T) {
	root := writeProject(t)
	path := filepath.Join(root, "pagepack.yaml")

	cmd := &ConfigValidateCmd{ConfigFlags: ConfigFlags{Config: path}}
	require.NoError(t, cmd.Run(context.Background(), &Globals{}))

	require.NoError(t, os.WriteFile(path, []byte("entry: ./src/index.js\noutput:\n  path: dist\nplugins:\n  - name: minify\n"), 0o600))
	err := cmd.Run(context.Background(), &Globals{})
	require.ErrorIs(t, err, buildconfig.ErrInvalidConfig)
}

func TestNewHandler(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.0123456789abcdef0123.js"), []byte("console.log(1);"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html></html>"), 0o600))

	handler := newHandler(dir, []string{"https://example.com"}, zerolog.Nop())

	tests := []struct {
		name         string
		path         string
		status       int
		cacheControl string
	}{
		{name: "hashed bundle", path: "/main.0123456789abcdef0123.js", status: http.StatusOK, cacheControl: "public, max-age=31536000, immutable"},
		{name: "document", path: "/index.html", status: http.StatusMovedPermanently, cacheControl: "no-cache"},
		{name: "root", path: "/", status: http.StatusOK, cacheControl: "no-cache"},
		{name: "missing", path: "/nope.js", status: http.StatusNotFound, cacheControl: "no-cache"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.Header.Set("Origin", "https://example.com")
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.cacheControl, rec.Header().Get("Cache-Control"))
			assert.Equal(t, "https://example.com", rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}
