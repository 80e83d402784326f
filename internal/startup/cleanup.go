// Package startup holds one-shot housekeeping run before the server begins
// accepting connections.
package startup

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// TempDirPrefix marks scratch directories hanatv itself creates under
// config.StorageConfig.TempDir (e.g. per-run muxer staging), distinguishing
// them from anything else an operator might keep in that directory.
const TempDirPrefix = "hanatv-"

// DefaultCleanupAge is how old an orphaned scratch directory must be before
// CleanupOrphanedTempDirs removes it.
const DefaultCleanupAge = 1 * time.Hour

// CleanupOrphanedTempDirs removes TempDirPrefix-matching subdirectories of
// baseDir whose modification time is older than maxAge: scratch directories
// left behind by a process that crashed or was killed before it could clean
// up after itself. Returns the number removed.
func CleanupOrphanedTempDirs(logger *slog.Logger, baseDir string, maxAge time.Duration) (int, error) {
	if _, err := os.Stat(baseDir); os.IsNotExist(err) {
		return 0, nil
	}

	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	var removed int

	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), TempDirPrefix) {
			continue
		}

		dirPath := filepath.Join(baseDir, entry.Name())

		info, err := entry.Info()
		if err != nil {
			logger.Warn("failed to stat temp directory", slog.String("path", dirPath), slog.String("error", err.Error()))
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		if err := os.RemoveAll(dirPath); err != nil {
			logger.Warn("failed to remove orphaned temp directory", slog.String("path", dirPath), slog.String("error", err.Error()))
			continue
		}
		logger.Info("removed orphaned temp directory",
			slog.String("path", dirPath),
			slog.Duration("age", time.Since(info.ModTime()).Round(time.Second)),
		)
		removed++
	}

	return removed, nil
}
