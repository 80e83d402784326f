package llhls

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitAnnexBSplitsOnThreeAndFourByteStartCodes(t *testing.T) {
	data := []byte{0x00, 0x00, 0x00, 0x01, 0x67, 0xaa, 0x00, 0x00, 0x01, 0x68, 0xbb}
	units := SplitAnnexB(data)
	require.Len(t, units, 2)
	assert.Equal(t, []byte{0x67, 0xaa}, units[0])
	assert.Equal(t, []byte{0x68, 0xbb}, units[1])
}

func TestH264NALTypeMasksLowFiveBits(t *testing.T) {
	assert.Equal(t, byte(7), H264NALType([]byte{0x67}))
	assert.Equal(t, byte(5), H264NALType([]byte{0x65}))
}

func TestH265NALTypeShiftsOutForbiddenBit(t *testing.T) {
	assert.Equal(t, byte(32), H265NALType([]byte{0x40}))
}

func TestIsH265IDRRecognizesRandomAccessTypes(t *testing.T) {
	assert.True(t, IsH265IDR(19))
	assert.True(t, IsH265IDR(20))
	assert.True(t, IsH265IDR(21))
	assert.False(t, IsH265IDR(1))
}

func TestParseADTSFramesSplitsBackToBackFrames(t *testing.T) {
	// two 10-byte ADTS frames (7-byte header, 3-byte payload each), no CRC,
	// channel_config=2 (stereo), frame_length=10.
	frame := func(payload byte) []byte {
		return []byte{0xFF, 0xF1, 0x4C, 0x80, 0x01, 0x40, 0x00, payload, payload, payload}
	}
	data := append(frame(0x11), frame(0x22)...)

	hdr, payloads, err := ParseADTSFrames(data)
	require.NoError(t, err)
	require.Len(t, payloads, 2)
	assert.Equal(t, []byte{0x11, 0x11, 0x11}, payloads[0])
	assert.Equal(t, []byte{0x22, 0x22, 0x22}, payloads[1])
	assert.Equal(t, byte(2), hdr.ChannelConfig)
}

func TestParseADTSFramesRejectsBadSync(t *testing.T) {
	_, _, err := ParseADTSFrames([]byte{0x00, 0x00, 0, 0, 0, 0, 0})
	assert.ErrorIs(t, err, ErrPESParse)
}
