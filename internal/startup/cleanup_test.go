package startup

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestCleanupOrphanedTempDirsRemovesOldDirectories(t *testing.T) {
	baseDir := t.TempDir()

	oldDir := filepath.Join(baseDir, "hanatv-gr011-1080p-stale")
	require.NoError(t, os.Mkdir(oldDir, 0o755))
	oldTime := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(oldDir, oldTime, oldTime))

	count, err := CleanupOrphanedTempDirs(newTestLogger(), baseDir, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = os.Stat(oldDir)
	assert.True(t, os.IsNotExist(err))
}

func TestCleanupOrphanedTempDirsPreservesRecentDirectories(t *testing.T) {
	baseDir := t.TempDir()

	recentDir := filepath.Join(baseDir, "hanatv-gr011-1080p-fresh")
	require.NoError(t, os.Mkdir(recentDir, 0o755))
	recentTime := time.Now().Add(-30 * time.Minute)
	require.NoError(t, os.Chtimes(recentDir, recentTime, recentTime))

	count, err := CleanupOrphanedTempDirs(newTestLogger(), baseDir, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	_, err = os.Stat(recentDir)
	assert.NoError(t, err)
}

func TestCleanupOrphanedTempDirsIgnoresNonMatchingEntries(t *testing.T) {
	baseDir := t.TempDir()

	unrelatedDir := filepath.Join(baseDir, "not-ours")
	require.NoError(t, os.Mkdir(unrelatedDir, 0o755))
	oldTime := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(unrelatedDir, oldTime, oldTime))

	unrelatedFile := filepath.Join(baseDir, "hanatv-not-a-dir")
	require.NoError(t, os.WriteFile(unrelatedFile, []byte("x"), 0o644))
	require.NoError(t, os.Chtimes(unrelatedFile, oldTime, oldTime))

	count, err := CleanupOrphanedTempDirs(newTestLogger(), baseDir, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestCleanupOrphanedTempDirsSkipsMissingBaseDir(t *testing.T) {
	count, err := CleanupOrphanedTempDirs(newTestLogger(), filepath.Join(t.TempDir(), "does-not-exist"), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
