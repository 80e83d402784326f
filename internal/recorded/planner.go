// Package recorded implements the recorded-video segment planner, per-session
// encode-ahead task, and PTS-continuous remux of spec.md §4.H/§4.I.
package recorded

import (
	"github.com/hanatv/hanatv/internal/models"
)

// PCRClockHz is the clock rate key_frames.dts and segment boundaries are
// expressed in, per spec.md §3/§4.H.
const PCRClockHz = 90000

// Segment is one planned group of consecutive GOPs, per spec.md §4.H.
type Segment struct {
	Index             int
	StartFilePosition uint64
	StartDTS          uint64
	DurationSeconds   float64
}

// Plan greedily groups consecutive keyframes into segments so each spans at
// least targetSeconds (the final segment may be shorter), per spec.md §4.H:
// "group so that each segment's duration ((next_group_start_dts −
// group_start_dts) / 90000) is ≥ target (the last segment may be shorter)."
// totalDurationSeconds is the recording's overall duration, needed to compute
// the final segment's length since there is no keyframe past it.
func Plan(keyFrames []models.KeyFrame, targetSeconds, totalDurationSeconds float64) []Segment {
	if len(keyFrames) == 0 {
		return nil
	}

	var segments []Segment
	groupStart := 0
	for i := 1; i < len(keyFrames); i++ {
		elapsed := float64(keyFrames[i].DTS-keyFrames[groupStart].DTS) / PCRClockHz
		if elapsed >= targetSeconds {
			segments = append(segments, newSegment(len(segments), keyFrames, groupStart, i, totalDurationSeconds))
			groupStart = i
		}
	}
	segments = append(segments, newSegment(len(segments), keyFrames, groupStart, len(keyFrames), totalDurationSeconds))
	return segments
}

func newSegment(index int, keyFrames []models.KeyFrame, start, end int, totalDurationSeconds float64) Segment {
	seg := Segment{
		Index:             index,
		StartFilePosition: keyFrames[start].Offset,
		StartDTS:          keyFrames[start].DTS,
	}
	startSeconds := float64(keyFrames[start].DTS) / PCRClockHz
	if end < len(keyFrames) {
		seg.DurationSeconds = float64(keyFrames[end].DTS-keyFrames[start].DTS) / PCRClockHz
	} else {
		seg.DurationSeconds = totalDurationSeconds - startSeconds
	}
	return seg
}
