package plugins

import (
	"bytes"
	"context"
	"fmt"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/pagepack/internal/assets"
)

// Compression algorithms
const (
	AlgorithmGzip = "gzip"
	AlgorithmZstd = "zstd"
)

// compressed output is kept only below this fraction of the original size
const minRatio = 0.8

var compressible = map[assets.AssetKind]bool{
	assets.KindScript:     true,
	assets.KindStylesheet: true,
	assets.KindSourceMap:  true,
	assets.KindDocument:   true,
	assets.KindManifest:   true,
}

var extensions = map[string]string{
	AlgorithmGzip: ".gz",
	AlgorithmZstd: ".zst",
}

var _ assets.AfterEmitter = (*Compress)(nil)

// Compress writes precompressed siblings of text assets for static hosting.
type Compress struct {
	algorithms []string
	threshold  int64
}

// NewCompress validates the algorithms, gzip is used when none are given.
func NewCompress(algorithms []string, threshold int64) (*Compress, error) {
	if len(algorithms) == 0 {
		algorithms = []string{AlgorithmGzip}
	}
	for _, a := range algorithms {
		if _, ok := extensions[a]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCompression, a)
		}
	}
	return &Compress{algorithms: algorithms, threshold: threshold}, nil
}

func (c *Compress) Name() string { return "compress" }

func (c *Compress) AfterEmit(ctx context.Context, result *assets.Result) error {
	for _, a := range result.Snapshot() {
		if !compressible[a.Kind] || a.Size < c.threshold || a.Size == 0 {
			continue
		}
		for _, algo := range c.algorithms {
			if err := ctx.Err(); err != nil {
				return err
			}

			out, err := compress(algo, a.Contents)
			if err != nil {
				return fmt.Errorf("failed to compress %s: %w", a.Name, err)
			}
			if float64(len(out)) >= float64(a.Size)*minRatio {
				log.Debug().Str("file", a.Name).Str("algorithm", algo).Msg("Skipping poorly compressible file")
				continue
			}

			if err := result.Emit(a.Name+extensions[algo], assets.KindCompressed, a.Logical, out); err != nil {
				return err
			}
		}
	}
	return nil
}

func compress(algo string, data []byte) ([]byte, error) {
	switch algo {
	case AlgorithmGzip:
		buf := new(bytes.Buffer)
		w, err := gzip.NewWriterLevel(buf, gzip.BestCompression)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil

	case AlgorithmZstd:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		return enc.EncodeAll(data, nil), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCompression, algo)
	}
}
