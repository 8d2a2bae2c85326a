package plugins

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/minio/crc64nvme"
	"github.com/wolfeidau/pagepack/internal/assets"
)

const defaultManifestFilename = "manifest.json"

var _ assets.AfterEmitter = (*Manifest)(nil)

// Manifest writes a JSON index mapping logical file names to emitted names.
type Manifest struct {
	Filename string
}

type ManifestFile struct {
	BuildID     string                        `json:"buildId"`
	Entrypoints map[string]assets.EntryOutput `json:"entrypoints"`
	Files       map[string]string             `json:"files"`
	Assets      []ManifestAsset               `json:"assets"`
}

type ManifestAsset struct {
	Name  string           `json:"name"`
	Kind  assets.AssetKind `json:"kind"`
	Size  int64            `json:"size"`
	CRC64 string           `json:"crc64"`
}

func (m *Manifest) Name() string { return "manifest" }

func (m *Manifest) AfterEmit(ctx context.Context, result *assets.Result) error {
	filename := m.Filename
	if filename == "" {
		filename = defaultManifestFilename
	}

	manifest := ManifestFile{
		BuildID:     result.BuildID,
		Entrypoints: result.Entries,
		Files:       map[string]string{},
	}

	for _, a := range result.Snapshot() {
		if a.Kind == assets.KindManifest || a.Name == filename {
			continue
		}
		manifest.Files[manifestKey(a)] = result.URL(a.Name)
		manifest.Assets = append(manifest.Assets, ManifestAsset{
			Name:  a.Name,
			Kind:  a.Kind,
			Size:  a.Size,
			CRC64: checksum(a.Contents),
		})
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	return result.Emit(filename, assets.KindManifest, strings.TrimSuffix(filename, path.Ext(filename)), append(data, '\n'))
}

// manifestKey rebuilds the unhashed name, e.g. "main.js.map" for
// "main.0123abcd.js.map".
func manifestKey(a assets.Asset) string {
	name := a.Name
	suffix := ""
	for _, s := range []string{".gz", ".zst", ".map"} {
		if strings.HasSuffix(name, s) {
			suffix = s + suffix
			name = strings.TrimSuffix(name, s)
		}
	}
	if a.Logical == "" {
		return a.Name
	}
	dir := path.Dir(a.Name)
	key := a.Logical + path.Ext(name) + suffix
	if a.Kind == assets.KindFile && dir != "." && !strings.Contains(a.Logical, "/") {
		key = dir + "/" + key
	}
	return key
}

func checksum(data []byte) string {
	h := crc64nvme.New()
	h.Write(data)
	return fmt.Sprintf("%016x", h.Sum64())
}
