package psiarchive

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTripPreservesSectionBytes(t *testing.T) {
	sections := []Section{
		{PID: 0x0000, Time: 1000, Data: []byte{0x00, 0x01, 0x02}},
		{PID: 0x0012, Time: 1001, Data: []byte("eit-section-bytes")},
	}

	chunk := WriteChunk(sections)
	r := NewReader(bytes.NewReader(chunk))

	got, err := r.Next()
	require.NoError(t, err)
	require.Len(t, got, len(sections))

	for i, s := range sections {
		assert.Equal(t, s.PID, got[i].PID)
		assert.Equal(t, s.Data, got[i].Data)
	}
}

func TestSynthesizePacketsProduceValidTSFraming(t *testing.T) {
	sections := []Section{{PID: 0x0000, Time: 1, Data: bytes.Repeat([]byte{0xAB}, 300)}}
	chunk := WriteChunk(sections)
	r := NewReader(bytes.NewReader(chunk))
	got, err := r.Next()
	require.NoError(t, err)

	packets := SynthesizePackets(got, map[uint16]bool{0x0000: true})
	require.NotEmpty(t, packets)
	for _, p := range packets {
		require.Len(t, p, 188)
		assert.Equal(t, byte(0x47), p[0])
	}
	assert.True(t, packets[0][1]&0x40 != 0, "first packet carries payload_unit_start")
}

func TestNextReturnsEOFOnEmptyStream(t *testing.T) {
	r := NewReader(bytes.NewReader(nil))
	_, err := r.Next()
	assert.ErrorIs(t, err, io.EOF)
}
