package llhls

import (
	"bytes"
	"testing"

	"github.com/bluenviron/mediacommon/v2/pkg/formats/mpegts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodeTestTS produces a minimal valid MPEG-TS stream with one H.264 video
// track and one AAC audio track, standing in for an encoder's stdout.
func encodeTestTS(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer

	videoTrack := &mpegts.Track{PID: 0x100, Codec: &mpegts.CodecH264{}}
	audioTrack := &mpegts.Track{PID: 0x101, Codec: &mpegts.CodecMPEG4Audio{
		Config: aacConfig(),
	}}
	w := &mpegts.Writer{W: &buf, Tracks: []*mpegts.Track{videoTrack, audioTrack}}
	require.NoError(t, w.Initialize())

	require.NoError(t, w.WriteH264(videoTrack, 0, 0, [][]byte{sps(), pps(), idrSlice()}))
	require.NoError(t, w.WriteMPEG4Audio(audioTrack, 0, [][]byte{make([]byte, 100)}))

	return buf.Bytes()
}

func TestFeederStartsPrimaryRenditionFromDemuxedTS(t *testing.T) {
	m := NewMuxer(false)
	defer m.Close()

	f := NewFeeder(m)
	require.NoError(t, f.Run(bytes.NewReader(encodeTestTS(t))))

	assert.True(t, m.Primary.started())
	assert.False(t, m.Secondary.started())
}

func TestFeederIgnoresAThirdAudioTrack(t *testing.T) {
	var buf bytes.Buffer
	videoTrack := &mpegts.Track{PID: 0x100, Codec: &mpegts.CodecH264{}}
	audio1 := &mpegts.Track{PID: 0x101, Codec: &mpegts.CodecMPEG4Audio{Config: aacConfig()}}
	audio2 := &mpegts.Track{PID: 0x102, Codec: &mpegts.CodecMPEG4Audio{Config: aacConfig()}}
	audio3 := &mpegts.Track{PID: 0x103, Codec: &mpegts.CodecMPEG4Audio{Config: aacConfig()}}
	w := &mpegts.Writer{W: &buf, Tracks: []*mpegts.Track{videoTrack, audio1, audio2, audio3}}
	require.NoError(t, w.Initialize())
	require.NoError(t, w.WriteH264(videoTrack, 0, 0, [][]byte{sps(), pps(), idrSlice()}))
	require.NoError(t, w.WriteMPEG4Audio(audio1, 0, [][]byte{make([]byte, 100)}))
	require.NoError(t, w.WriteMPEG4Audio(audio2, 0, [][]byte{make([]byte, 100)}))
	require.NoError(t, w.WriteMPEG4Audio(audio3, 0, [][]byte{make([]byte, 100)}))

	m := NewMuxer(false)
	defer m.Close()
	f := NewFeeder(m)
	require.NoError(t, f.Run(bytes.NewReader(buf.Bytes())))

	assert.True(t, m.Primary.started())
	assert.True(t, m.Secondary.started())
}
