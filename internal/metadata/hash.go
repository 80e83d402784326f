package metadata

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/hanatv/hanatv/internal/models"
)

// hashChunkSize is the size of each of the three sampled regions used to
// compute a file's identity hash, per spec.md §3/§8.
const hashChunkSize = 1 * 1024 * 1024

// ErrFileTooSmallToHash is returned by ComputeFileHash for files below
// models.MinHashableFileSize, per spec.md §8.
var ErrFileTooSmallToHash = fmt.Errorf("metadata: file smaller than %d bytes cannot be hashed", models.MinHashableFileSize)

// ComputeFileHash hashes three 1MiB chunks of path, sampled at 1/4, 1/2, and
// 3/4 of the file's length, into a single SHA-256 digest. Grounded on
// original_source/server/app/metadata/MetadataAnalyzer.py's partial-hash
// scheme: hashing entire recordings (often tens of gigabytes) up front would
// make the scanner's dedup pass impractically slow, so only three
// representative windows are sampled.
func ComputeFileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("metadata: opening %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("metadata: stat %s: %w", path, err)
	}
	if info.Size() < models.MinHashableFileSize {
		return "", ErrFileTooSmallToHash
	}

	h := sha256.New()
	for _, fraction := range [...]float64{0.25, 0.5, 0.75} {
		offset := int64(float64(info.Size()) * fraction)
		if remaining := info.Size() - offset; remaining < hashChunkSize {
			offset = info.Size() - hashChunkSize
		}
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			return "", fmt.Errorf("metadata: seeking %s: %w", path, err)
		}
		if _, err := io.CopyN(h, f, hashChunkSize); err != nil {
			return "", fmt.Errorf("metadata: reading chunk of %s: %w", path, err)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
