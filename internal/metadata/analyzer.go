package metadata

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hanatv/hanatv/internal/ffmpeg"
	"github.com/hanatv/hanatv/internal/models"
)

// Analyzer ties together the individual metadata passes (hashing, ffprobe,
// keyframe scanning, CM-section sidecar parsing, and EIT-backed program
// synthesis) into the single pass that the scanner (internal/scanner) runs
// once per newly-discovered recording, matching original_source's
// MetadataAnalyzer.py's role as a one-file-in, one-record-out entry point.
type Analyzer struct {
	prober *ffmpeg.Prober
}

// NewAnalyzer builds an Analyzer around the given ffprobe binary path.
func NewAnalyzer(ffprobePath string) *Analyzer {
	return &Analyzer{prober: ffmpeg.NewProber(ffprobePath)}
}

// Result is the combined output of one analysis pass.
type Result struct {
	Video   *models.RecordedVideo
	Program *models.RecordedProgram
}

// AnalyzeFile runs every metadata pass against path and returns the
// combined RecordedVideo/RecordedProgram pair ready for repository
// persistence. A file below models.MinHashableFileSize is probed and
// keyframe-scanned normally but left without a content hash, since
// ComputeFileHash refuses files that small (spec.md §4.J); the caller
// decides whether that disqualifies the file from dedup.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) (*Result, error) {
	video, err := ProbeFile(ctx, a.prober, path)
	if err != nil {
		return nil, fmt.Errorf("metadata: analyzing %s: %w", path, err)
	}

	hash, err := ComputeFileHash(path)
	switch {
	case err == nil:
		video.FileHash = hash
	case err == ErrFileTooSmallToHash:
		// leave FileHash empty; caller decides how to treat undedupable files
	default:
		return nil, fmt.Errorf("metadata: hashing %s: %w", path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("metadata: opening %s for keyframe scan: %w", path, err)
	}
	keyFrames, err := ScanKeyFrames(f, video.VideoCodec == "hevc")
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("metadata: scanning keyframes in %s: %w", path, err)
	}
	video.KeyFrames = keyFrames

	cmSections, err := ParseChapterSidecar(chapterSidecarPath(path), video.Duration)
	if err != nil {
		return nil, fmt.Errorf("metadata: parsing chapter sidecar for %s: %w", path, err)
	}
	video.CMSections = cmSections

	program := BuildRecordedProgram(video, psiArchiveSidecarPath(path), 0)

	return &Result{Video: video, Program: program}, nil
}

func chapterSidecarPath(videoPath string) string {
	return strings.TrimSuffix(videoPath, extOf(videoPath)) + ".chapter.txt"
}

func psiArchiveSidecarPath(videoPath string) string {
	return strings.TrimSuffix(videoPath, extOf(videoPath)) + ".psc"
}

func extOf(path string) string {
	for i := len(path) - 1; i >= 0 && path[i] != '/'; i-- {
		if path[i] == '.' {
			return path[i:]
		}
	}
	return ""
}
