package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"subgrab/internal/consts"
)

// SweepParts removes partial files left behind by an interrupted run.
func (f *Folder) SweepParts() (int, error) {
	entries, err := os.ReadDir(f.path)
	if err != nil {
		return 0, fmt.Errorf("read output folder: %w", err)
	}

	removed := 0

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), consts.PartSuffix) {
			continue
		}

		name := filepath.Join(f.path, entry.Name())

		err := os.Remove(name)
		if err != nil && !os.IsNotExist(err) {
			f.log.Error("failed to delete part file", slog.String("filename", name), slog.Any("error", err))

			continue
		}

		removed++

		f.log.Debug("deleted part file", slog.String("filename", name))
	}

	if removed > 0 {
		f.log.Info("part files swept", slog.String("path", f.path), slog.Int("count", removed))
	}

	return removed, nil
}
