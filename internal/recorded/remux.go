package recorded

import (
	"fmt"
	"io"

	"github.com/bluenviron/mediacommon/v2/pkg/formats/mpegts"
)

// segmentSink is the io.Writer the mpegts.Writer writes into; Take pops and
// clears whatever has accumulated since the last segment boundary.
type segmentSink struct {
	buf []byte
}

func (s *segmentSink) Write(p []byte) (int, error) {
	s.buf = append(s.buf, p...)
	return len(p), nil
}

func (s *segmentSink) Take() []byte {
	data := s.buf
	s.buf = nil
	return data
}

// Remuxer re-parses one encoder run's MPEG-TS output via mpegts.Reader and
// re-emits it via mpegts.Writer, per spec.md §4.I. Grounded on
// internal/relay/ts_demuxer.go's mpegts.Reader callback wiring feeding
// internal/relay/ts_muxer.go's mpegts.Writer — the teacher does not hand-roll
// PAT/PMT/continuity-counter bookkeeping, the mpegts package does it.
//
// The teacher's SwappableWriter keeps one mpegts.Writer alive across segment
// boundaries (continuous relay, no per-segment self-containment needed).
// Recorded segments must each be independently seekable (spec.md §4.I/§8:
// "the returned TS begins with PAT+PMT"), so Reinitialize below instead
// starts a fresh mpegts.Writer per segment, which writes PAT+PMT immediately.
type Remuxer struct {
	sink   *segmentSink
	reader *mpegts.Reader
	writer *mpegts.Writer
	tracks []*mpegts.Track

	videoTrack *mpegts.Track
	audioTrack *mpegts.Track
}

// NewRemuxer constructs a Remuxer writing re-muxed bytes into sink.
func NewRemuxer(sink *segmentSink) *Remuxer {
	return &Remuxer{sink: sink}
}

// Reinitialize starts a fresh mpegts.Writer against the same tracks, which
// writes a new PAT+PMT immediately — used to give each sealed segment a
// self-contained, standalone-seekable PAT+PMT header, per spec.md §4.I:
// "a fresh copy of the latest PAT+PMT is prepended to the new segment."
func (rx *Remuxer) Reinitialize() error {
	rx.writer = &mpegts.Writer{W: rx.sink, Tracks: rx.tracks}
	return rx.writer.Initialize()
}

// Run consumes r until EOF, invoking onVideo/onAudio for every demuxed
// access unit's presentation/decode timestamps (so the caller can detect a
// segment-boundary crossing and call Reinitialize/Take at the right point)
// and writing re-muxed bytes into the sink via the current writer.
func (rx *Remuxer) Run(r io.Reader, onVideo func(pts, dts int64), onAudio func(pts int64)) error {
	rx.reader = &mpegts.Reader{R: r}
	if err := rx.reader.Initialize(); err != nil {
		return fmt.Errorf("recorded: initializing mpegts reader: %w", err)
	}

	for _, track := range rx.reader.Tracks() {
		switch track.Codec.(type) {
		case *mpegts.CodecH264:
			rx.videoTrack = track
			rx.tracks = append(rx.tracks, track)
			rx.reader.OnDataH264(track, func(pts, dts int64, au [][]byte) error {
				if onVideo != nil {
					onVideo(pts, dts)
				}
				return rx.writer.WriteH264(rx.videoTrack, pts, dts, au)
			})
		case *mpegts.CodecH265:
			rx.videoTrack = track
			rx.tracks = append(rx.tracks, track)
			rx.reader.OnDataH265(track, func(pts, dts int64, au [][]byte) error {
				if onVideo != nil {
					onVideo(pts, dts)
				}
				return rx.writer.WriteH265(rx.videoTrack, pts, dts, au)
			})
		case *mpegts.CodecMPEG4Audio:
			rx.audioTrack = track
			rx.tracks = append(rx.tracks, track)
			rx.reader.OnDataMPEG4Audio(track, func(pts int64, aus [][]byte) error {
				if onAudio != nil {
					onAudio(pts)
				}
				return rx.writer.WriteMPEG4Audio(rx.audioTrack, pts, aus)
			})
		}
	}

	if err := rx.Reinitialize(); err != nil {
		return fmt.Errorf("recorded: initializing mpegts writer: %w", err)
	}

	for {
		if err := rx.reader.Read(); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}
