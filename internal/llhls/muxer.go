package llhls

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	gohlslib "github.com/bluenviron/gohlslib/v2"
	"github.com/bluenviron/gohlslib/v2/pkg/codecs"
	"github.com/bluenviron/mediacommon/v2/pkg/codecs/mpeg4audio"
)

// partMinDuration is the fixed LL-HLS part boundary, per spec.md §4.G.
const partMinDuration = 500 * time.Millisecond

// segmentCount is the sliding playlist window, per spec.md §4.G.
const segmentCount = 10

// segmentMinDuration and segmentMaxSize mirror the teacher's
// DefaultHLSMuxerConfig in internal/relay/hls_muxer.go.
const (
	segmentMinDuration = 1 * time.Second
	segmentMaxSize     = 50 * 1024 * 1024
)

var errRenditionNotStarted = errors.New("llhls: rendition not started")

// rendition wraps one gohlslib.Muxer configured for MuxerVariantLowLatency,
// which is the actual LL-HLS implementation named by spec.md §4.G (CMAF
// moof+mdat parts, blocking _HLS_msn/_HLS_part playlist requests,
// EXT-X-PART-INF/SERVER-CONTROL/MAP/PART/PROGRAM-DATE-TIME tags): gohlslib
// already implements this contract, so the segmenter's job is reduced to
// feeding it parsed access units. Grounded on the teacher's HLSMuxer wrapper
// in internal/relay/hls_muxer.go, which wraps the identical gohlslib.Muxer
// for its own HLS-to-HLS repackaging path.
type rendition struct {
	mu         sync.Mutex
	muxer      *gohlslib.Muxer
	videoTrack *gohlslib.Track
	audioTrack *gohlslib.Track
}

func newRendition() *rendition { return &rendition{} }

func (r *rendition) start(videoCodec, audioCodec codecs.Codec) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.muxer != nil {
		return nil
	}
	r.videoTrack = &gohlslib.Track{Codec: videoCodec}
	r.audioTrack = &gohlslib.Track{Codec: audioCodec}
	r.muxer = &gohlslib.Muxer{
		Variant:            gohlslib.MuxerVariantLowLatency,
		SegmentCount:       segmentCount,
		SegmentMinDuration: segmentMinDuration,
		PartMinDuration:    partMinDuration,
		SegmentMaxSize:     segmentMaxSize,
		Tracks:             []*gohlslib.Track{r.videoTrack, r.audioTrack},
	}
	if err := r.muxer.Start(); err != nil {
		r.muxer = nil
		return fmt.Errorf("llhls: starting gohlslib muxer: %w", err)
	}
	return nil
}

func (r *rendition) started() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.muxer != nil
}

func (r *rendition) writeH264(ntp time.Time, pts int64, au [][]byte) error {
	r.mu.Lock()
	m, track := r.muxer, r.videoTrack
	r.mu.Unlock()
	if m == nil {
		return errRenditionNotStarted
	}
	return m.WriteH264(track, ntp, pts, au)
}

func (r *rendition) writeH265(ntp time.Time, pts int64, au [][]byte) error {
	r.mu.Lock()
	m, track := r.muxer, r.videoTrack
	r.mu.Unlock()
	if m == nil {
		return errRenditionNotStarted
	}
	return m.WriteH265(track, ntp, pts, au)
}

func (r *rendition) writeAudio(ntp time.Time, pts int64, aus [][]byte) error {
	r.mu.Lock()
	m, track := r.muxer, r.audioTrack
	r.mu.Unlock()
	if m == nil {
		return errRenditionNotStarted
	}
	return m.WriteMPEG4Audio(track, ntp, pts, aus)
}

// ServeHTTP delegates directly to gohlslib.Muxer.Handle, which implements
// spec.md §4.G/§6's blocking (_HLS_msn, _HLS_part) playlist contract.
func (r *rendition) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	m := r.muxer
	r.mu.Unlock()
	if m == nil {
		http.Error(w, "rendition not ready", http.StatusServiceUnavailable)
		return
	}
	m.Handle(w, req)
}

// Close stops the underlying gohlslib.Muxer, if started.
func (r *rendition) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.muxer != nil {
		r.muxer.Close()
		r.muxer = nil
	}
}

// Muxer feeds one encoded elementary stream's video and (up to two) audio
// tracks into the two logical LL-HLS renditions named by spec.md §4.G
// ("primary-audio", "secondary-audio" — one shared video track, each with
// its own AAC track). It accumulates parameter sets (SPS/PPS, or VPS/SPS/PPS
// for HEVC) and starts a rendition's gohlslib muxer once they and that
// rendition's own AudioSpecificConfig are known; the two renditions start
// independently of each other.
type Muxer struct {
	isHEVC bool

	mu sync.Mutex

	h264SPS, h264PPS          []byte
	h265VPS, h265SPS, h265PPS []byte
	audioConfig               [2]*mpeg4audio.AudioSpecificConfig

	pcrAnchorWall  time.Time
	pcrAnchorTicks int64
	haveAnchor     bool

	Primary   *rendition
	Secondary *rendition
}

// NewMuxer constructs a Muxer for either H.264 or H.265 video.
func NewMuxer(isHEVC bool) *Muxer {
	return &Muxer{isHEVC: isHEVC, Primary: newRendition(), Secondary: newRendition()}
}

func (m *Muxer) haveVideoParams() bool {
	if m.isHEVC {
		return len(m.h265VPS) > 0 && len(m.h265SPS) > 0 && len(m.h265PPS) > 0
	}
	return len(m.h264SPS) > 0 && len(m.h264PPS) > 0
}

func (m *Muxer) videoCodec() codecs.Codec {
	if m.isHEVC {
		return &codecs.H265{VPS: m.h265VPS, SPS: m.h265SPS, PPS: m.h265PPS}
	}
	return &codecs.H264{SPS: m.h264SPS, PPS: m.h264PPS}
}

// ntpFor derives wall-clock time for a 90kHz PTS from the first access
// unit's arrival time, per spec.md §4.G's PCR-anchored EXT-X-PROGRAM-DATE-TIME.
func (m *Muxer) ntpFor(pts int64) time.Time {
	if !m.haveAnchor {
		m.pcrAnchorWall = time.Now()
		m.pcrAnchorTicks = pts
		m.haveAnchor = true
	}
	elapsed := time.Duration(pts-m.pcrAnchorTicks) * time.Second / 90000
	return m.pcrAnchorWall.Add(elapsed)
}

// WriteVideoAccessUnit ingests one access unit's NAL units (Annex-B split
// already performed by the caller), extracting SPS/PPS/VPS as they appear
// and forwarding the access unit to whichever renditions are already
// started, per spec.md §4.G.
func (m *Muxer) WriteVideoAccessUnit(pts, dts int64, nalus [][]byte) error {
	m.mu.Lock()
	for _, nal := range nalus {
		if m.isHEVC {
			switch H265NALType(nal) {
			case H265NALVPS:
				m.h265VPS = cloneBytes(nal)
			case H265NALSPS:
				m.h265SPS = cloneBytes(nal)
			case H265NALPPS:
				m.h265PPS = cloneBytes(nal)
			}
		} else {
			switch H264NALType(nal) {
			case H264NALSPS:
				m.h264SPS = cloneBytes(nal)
			case H264NALPPS:
				m.h264PPS = cloneBytes(nal)
			}
		}
	}

	if m.haveVideoParams() {
		videoCodec := m.videoCodec()
		if m.audioConfig[0] != nil && !m.Primary.started() {
			_ = m.Primary.start(videoCodec, &codecs.MPEG4Audio{Config: *m.audioConfig[0]})
		}
		if m.audioConfig[1] != nil && !m.Secondary.started() {
			_ = m.Secondary.start(m.videoCodec(), &codecs.MPEG4Audio{Config: *m.audioConfig[1]})
		}
	}

	ntp := m.ntpFor(pts)
	m.mu.Unlock()

	var firstErr error
	if m.isHEVC {
		if err := m.Primary.writeH265(ntp, pts, nalus); err != nil && !errors.Is(err, errRenditionNotStarted) {
			firstErr = err
		}
		if err := m.Secondary.writeH265(ntp, pts, nalus); err != nil && !errors.Is(err, errRenditionNotStarted) && firstErr == nil {
			firstErr = err
		}
	} else {
		if err := m.Primary.writeH264(ntp, pts, nalus); err != nil && !errors.Is(err, errRenditionNotStarted) {
			firstErr = err
		}
		if err := m.Secondary.writeH264(ntp, pts, nalus); err != nil && !errors.Is(err, errRenditionNotStarted) && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// WriteAudioAccessUnit ingests one AAC frame for playlist index 0 (primary)
// or 1 (secondary), per spec.md §4.G ("AAC PES x2, one per audio PID").
func (m *Muxer) WriteAudioAccessUnit(which int, pts int64, cfg mpeg4audio.AudioSpecificConfig, payload []byte) error {
	m.mu.Lock()
	if m.audioConfig[which] == nil {
		c := cfg
		m.audioConfig[which] = &c
	}
	ntp := m.ntpFor(pts)
	rend := m.renditionAt(which)
	m.mu.Unlock()

	err := rend.writeAudio(ntp, pts, [][]byte{payload})
	if errors.Is(err, errRenditionNotStarted) {
		return nil
	}
	return err
}

func (m *Muxer) renditionAt(which int) *rendition {
	if which == 0 {
		return m.Primary
	}
	return m.Secondary
}

// Close stops both renditions.
func (m *Muxer) Close() {
	m.Primary.Close()
	m.Secondary.Close()
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
