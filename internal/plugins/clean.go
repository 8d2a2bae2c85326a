package plugins

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/pagepack/internal/assets"
)

var _ assets.BeforeBuilder = (*Clean)(nil)

// Clean empties directories before each build so stale artifacts never
// accumulate in the output.
type Clean struct {
	// Root bounds what may be removed, defaults to the pipeline base dir
	Root string
	// Paths to empty, defaults to the output directory
	Paths []string
	// Exclude lists entry names kept inside each path
	Exclude []string
}

func (c *Clean) Name() string { return "clean" }

func (c *Clean) BeforeBuild(ctx context.Context, config assets.Config) error {
	root := c.Root
	if root == "" {
		root = config.BaseDir
	}

	paths := c.Paths
	if len(paths) == 0 {
		paths = []string{config.OutputDir}
	}

	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := checkInside(root, p); err != nil {
			return err
		}
		if err := c.empty(p); err != nil {
			return err
		}
	}

	return nil
}

func (c *Clean) empty(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", dir, err)
	}

	removed := 0
	for _, entry := range entries {
		if slices.Contains(c.Exclude, entry.Name()) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return fmt.Errorf("failed to remove %s: %w", entry.Name(), err)
		}
		removed++
	}

	log.Info().Str("dir", dir).Int("removed", removed).Msg("Cleaned output")
	return nil
}

// checkInside rejects the root itself and anything outside it.
func checkInside(root, p string) error {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(p))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: %s (root %s)", ErrOutsideRoot, p, root)
	}
	return nil
}
