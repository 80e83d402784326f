package llhls

import (
	"fmt"
	"io"

	"github.com/bluenviron/mediacommon/v2/pkg/formats/mpegts"
)

// Feeder demuxes one encoder's live MPEG-TS output into access units and
// forwards them to a Muxer, implementing the F→G data flow of spec.md §2.
// Grounded on the teacher's internal/relay/ts_demuxer.go, which drives the
// same mpegts.Reader to feed its own HLS muxer. The TS's first MPEG4Audio
// track is assigned to the muxer's primary rendition and a second, if
// present, to the secondary rendition, per spec.md §4.G's "two AAC PES, one
// per audio PID".
type Feeder struct {
	muxer *Muxer
}

// NewFeeder constructs a Feeder writing into muxer.
func NewFeeder(muxer *Muxer) *Feeder {
	return &Feeder{muxer: muxer}
}

// Run consumes r until EOF or a parse error, feeding every demuxed access
// unit to the Muxer.
func (f *Feeder) Run(r io.Reader) error {
	reader := &mpegts.Reader{R: r}
	if err := reader.Initialize(); err != nil {
		return fmt.Errorf("llhls: initializing mpegts reader: %w", err)
	}

	audioTracks := 0
	for _, track := range reader.Tracks() {
		switch codec := track.Codec.(type) {
		case *mpegts.CodecH264:
			reader.OnDataH264(track, func(pts, dts int64, au [][]byte) error {
				return f.muxer.WriteVideoAccessUnit(pts, dts, au)
			})

		case *mpegts.CodecH265:
			reader.OnDataH265(track, func(pts, dts int64, au [][]byte) error {
				return f.muxer.WriteVideoAccessUnit(pts, dts, au)
			})

		case *mpegts.CodecMPEG4Audio:
			if audioTracks > 1 {
				continue // spec.md §4.G: at most primary + secondary audio
			}
			which := audioTracks
			audioTracks++
			cfg := codec.Config
			reader.OnDataMPEG4Audio(track, func(pts int64, aus [][]byte) error {
				for _, au := range aus {
					if err := f.muxer.WriteAudioAccessUnit(which, pts, cfg, au); err != nil {
						return err
					}
				}
				return nil
			})
		}
	}

	for {
		if err := reader.Read(); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}
