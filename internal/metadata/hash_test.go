package metadata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanatv/hanatv/internal/models"
)

func TestComputeFileHashRejectsSmallFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "small.ts")
	require.NoError(t, os.WriteFile(path, []byte("too small"), 0o644))

	_, err := ComputeFileHash(path)
	assert.ErrorIs(t, err, ErrFileTooSmallToHash)
}

func TestComputeFileHashIsStableAcrossCalls(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recording.ts")
	data := make([]byte, models.MinHashableFileSize+1024)
	for i := range data {
		data[i] = byte(i % 251)
	}
	require.NoError(t, os.WriteFile(path, data, 0o644))

	h1, err := ComputeFileHash(path)
	require.NoError(t, err)
	h2, err := ComputeFileHash(path)
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64) // hex-encoded sha256
}

func TestComputeFileHashDiffersOnContentChange(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.ts")
	pathB := filepath.Join(dir, "b.ts")

	dataA := make([]byte, models.MinHashableFileSize+1024)
	dataB := make([]byte, models.MinHashableFileSize+1024)
	for i := range dataB {
		dataB[i] = byte(i%251) + 1
	}
	require.NoError(t, os.WriteFile(pathA, dataA, 0o644))
	require.NoError(t, os.WriteFile(pathB, dataB, 0o644))

	hA, err := ComputeFileHash(pathA)
	require.NoError(t, err)
	hB, err := ComputeFileHash(pathB)
	require.NoError(t, err)

	assert.NotEqual(t, hA, hB)
}
