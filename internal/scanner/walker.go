package scanner

import (
	"os"
	"path/filepath"
	"strings"
)

// RecordingExtensions lists the file extensions a storage root is walked
// and watched for. Kept as a plain var, matching the full-HD channel
// allowlist's precedent elsewhere in this codebase: the set of containers
// an ISDB-T/ISDB-S recorder actually writes is an empirical fact, not
// something spec.md derives from first principles.
var RecordingExtensions = []string{".ts", ".m2ts"}

func hasRecordingExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, want := range RecordingExtensions {
		if ext == want {
			return true
		}
	}
	return false
}

// walkRoots lists every recording file under roots, non-recursive-symlink
// safe (filepath.WalkDir never follows symlinks), returning each as a
// PrioritizedFile keyed by its modification time — the closest stand-in
// for original_source's file_created_at on filesystems that don't expose a
// true birth time.
func walkRoots(roots []string) ([]PrioritizedFile, error) {
	var files []PrioritizedFile
	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !hasRecordingExtension(path) {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			files = append(files, PrioritizedFile{FilePath: path, CreatedAt: info.ModTime()})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}
