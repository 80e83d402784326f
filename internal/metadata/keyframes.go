package metadata

import (
	"fmt"
	"io"

	"github.com/bluenviron/mediacommon/v2/pkg/formats/mpegts"

	"github.com/hanatv/hanatv/internal/llhls"
	"github.com/hanatv/hanatv/internal/models"
)

// countingReader tracks the total byte count read from the underlying
// reader, used to approximate the file offset of each access unit so the
// recorded-video planner (internal/recorded.Plan) can seek a replay close to
// a keyframe. The mpegts.Reader buffers internally, so this offset lands at
// the nearest following packet boundary rather than the exact byte — fine
// for a re-encode seek target, which only needs to land on or shortly before
// an IDR.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// ScanKeyFrames demuxes r's video track and records one models.KeyFrame per
// IDR access unit, per spec.md §4.J ("keyframe index scanning"). Grounded on
// internal/recorded/remux.go's identical mpegts.Reader wiring — this reuses
// the same teacher-derived demux idiom rather than hand-rolling PES
// reassembly a second time.
func ScanKeyFrames(r io.Reader, isHEVC bool) (models.KeyFrames, error) {
	cr := &countingReader{r: r}
	reader := &mpegts.Reader{R: cr}
	if err := reader.Initialize(); err != nil {
		return nil, fmt.Errorf("metadata: initializing mpegts reader: %w", err)
	}

	var keyFrames models.KeyFrames
	for _, track := range reader.Tracks() {
		switch track.Codec.(type) {
		case *mpegts.CodecH264:
			reader.OnDataH264(track, func(_, dts int64, au [][]byte) error {
				if containsH264IDR(au) {
					keyFrames = append(keyFrames, models.KeyFrame{DTS: uint64(dts), Offset: uint64(cr.n)})
				}
				return nil
			})
		case *mpegts.CodecH265:
			reader.OnDataH265(track, func(_, dts int64, au [][]byte) error {
				if containsH265IDR(au) {
					keyFrames = append(keyFrames, models.KeyFrame{DTS: uint64(dts), Offset: uint64(cr.n)})
				}
				return nil
			})
		}
	}

	for {
		if err := reader.Read(); err != nil {
			if err == io.EOF {
				break
			}
			return keyFrames, err
		}
	}
	return keyFrames, nil
}

func containsH264IDR(au [][]byte) bool {
	for _, nal := range au {
		if len(nal) == 0 {
			continue
		}
		if llhls.H264NALType(nal) == llhls.H264NALIDR {
			return true
		}
	}
	return false
}

func containsH265IDR(au [][]byte) bool {
	for _, nal := range au {
		if len(nal) == 0 {
			continue
		}
		if llhls.IsH265IDR(llhls.H265NALType(nal)) {
			return true
		}
	}
	return false
}
