package metadata

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hanatv/hanatv/internal/ffmpeg"
	"github.com/hanatv/hanatv/internal/models"
)

// startTimeBias compensates for the probed start time being truncated to
// whole seconds: it is half of the duration's sub-second remainder,
// (duration_ms mod 1000) / 2, and ProbeFile subtracts it from the file's
// mtime to derive RecordingStartAt. Left as a documented empirical constant
// rather than derived, per spec.md §9's Open Question on the same subject
// (see DESIGN.md).
func startTimeBias(d time.Duration) time.Duration {
	return time.Duration(d.Milliseconds()%1000) * time.Millisecond / 2
}

// ProbeFile runs ffprobe against path and fills in RecordedVideo's
// container/codec/resolution/audio fields plus RecordingStartAt/EndAt,
// applying startTimeBias. Grounded on internal/ffmpeg/prober.go's
// JSON-invocation idiom (same Prober the live encoder health-checks with),
// reused here for a file instead of a live URL.
func ProbeFile(ctx context.Context, prober *ffmpeg.Prober, path string) (*models.RecordedVideo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("metadata: stat %s: %w", path, err)
	}

	result, err := prober.Probe(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("metadata: probing %s: %w", path, err)
	}

	v := &models.RecordedVideo{
		FilePath:       path,
		FileSize:       info.Size(),
		FileModifiedAt: info.ModTime(),
		Container:      containerFromFormat(result.Format.FormatName),
	}

	durationMs := result.Duration()
	v.Duration = time.Duration(durationMs) * time.Millisecond

	biasedStart := info.ModTime().Add(-startTimeBias(v.Duration))
	v.RecordingStartAt = biasedStart
	v.RecordingEndAt = biasedStart.Add(v.Duration)
	v.FileCreatedAt = info.ModTime()

	if vs := result.GetVideoStream(); vs != nil {
		v.VideoCodec = vs.CodecName
		v.VideoProfile = vs.Profile
		v.VideoWidth = vs.Width
		v.VideoHeight = vs.Height
		v.VideoFPS = vs.Framerate()
		v.VideoScanType = scanTypeFromFieldOrder(vs.FieldOrder)
	}

	audioStreams := result.GetStreamsByType("audio")
	if len(audioStreams) > 0 {
		v.PrimaryAudio = audioTrackFromProbe(audioStreams[0])
	}
	if len(audioStreams) > 1 {
		secondary := audioTrackFromProbe(audioStreams[1])
		v.SecondaryAudio = &secondary
	}

	return v, nil
}

func containerFromFormat(formatName string) models.Container {
	if formatName == "mpegts" {
		return models.ContainerMPEGTS
	}
	return models.ContainerMPEG4
}

// scanTypeFromFieldOrder maps ffprobe's field_order to spec.md §3's
// two-valued ScanType. An empty field_order (ffprobe could not determine
// it) defaults to progressive; any other non-"progressive" value is one of
// ffprobe's interlaced field orders (tt/bb/tb/bt).
func scanTypeFromFieldOrder(fieldOrder string) models.ScanType {
	if fieldOrder == "progressive" || fieldOrder == "" {
		return models.ScanTypeProgressive
	}
	return models.ScanTypeInterlaced
}

func audioTrackFromProbe(s ffmpeg.ProbeStream) models.AudioTrack {
	return models.AudioTrack{
		Codec:          s.CodecName,
		SamplingRateHz: atoiSafe(s.SampleRate),
	}
}

func atoiSafe(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}
