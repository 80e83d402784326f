package metadata

import (
	"bytes"
	"testing"

	"github.com/bluenviron/mediacommon/v2/pkg/formats/mpegts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodeKeyframeTestTS writes an H.264 stream with an IDR at t=0 and t=2s,
// plus a non-IDR slice in between, mirroring internal/recorded's test helper.
func encodeKeyframeTestTS(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer

	track := &mpegts.Track{PID: 0x100, Codec: &mpegts.CodecH264{}}
	w := &mpegts.Writer{W: &buf, Tracks: []*mpegts.Track{track}}
	require.NoError(t, w.Initialize())

	sps := []byte{0x67, 0x42, 0x00, 0x1e}
	pps := []byte{0x68, 0xce, 0x3c, 0x80}
	idr := append([]byte{0x65}, make([]byte, 32)...)
	nonIDR := append([]byte{0x41}, make([]byte, 32)...)

	require.NoError(t, w.WriteH264(track, 0, 0, [][]byte{sps, pps, idr}))
	require.NoError(t, w.WriteH264(track, 90000, 90000, [][]byte{nonIDR}))
	require.NoError(t, w.WriteH264(track, 180000, 180000, [][]byte{idr}))

	return buf.Bytes()
}

func TestScanKeyFramesFindsOnlyIDRAccessUnits(t *testing.T) {
	src := encodeKeyframeTestTS(t)

	frames, err := ScanKeyFrames(bytes.NewReader(src), false)
	require.NoError(t, err)

	require.Len(t, frames, 2)
	assert.Equal(t, uint64(0), frames[0].DTS)
	assert.Equal(t, uint64(180000), frames[1].DTS)
}
