package tsutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDescriptorLoop(t *testing.T) {
	b := []byte{0x48, 0x02, 0xAA, 0xBB, 0x4D, 0x01, 0xCC}
	descs := ParseDescriptorLoop(b)
	require.Len(t, descs, 2)
	assert.Equal(t, uint8(0x48), descs[0].Tag)
	assert.Equal(t, []byte{0xAA, 0xBB}, descs[0].Data)
	assert.Equal(t, uint8(0x4D), descs[1].Tag)
}

func TestParseDescriptorLoopDropsTrailingGarbage(t *testing.T) {
	// declares a length longer than the remaining bytes
	b := []byte{0x48, 0x05, 0xAA}
	descs := ParseDescriptorLoop(b)
	assert.Empty(t, descs)
}

func TestParseServiceDescriptor(t *testing.T) {
	b := []byte{0x01, 1, 'P', 3, 'A', 'B', 'C'}
	d := RawDescriptor{Tag: DescTagService, Data: b}
	sd, err := ParseServiceDescriptor(d)
	require.NoError(t, err)
	assert.Equal(t, "P", sd.ProviderName)
	assert.Equal(t, "ABC", sd.ServiceName)
}

func TestParseTSInformationDescriptorRemoconID(t *testing.T) {
	d := RawDescriptor{Tag: DescTagTSInformation, Data: []byte{0x04 << 2}}
	ti, err := ParseTSInformationDescriptor(d)
	require.NoError(t, err)
	assert.Equal(t, uint8(4), ti.RemoteControlKeyID)
}

func TestParseContentDescriptorRewritesExtendedGenre(t *testing.T) {
	d := RawDescriptor{Tag: DescTagContent, Data: []byte{0xE0, 0x30}}
	cd, err := ParseContentDescriptor(d)
	require.NoError(t, err)
	assert.Equal(t, uint8(0xE), cd.Major)
	assert.Equal(t, uint8(3), cd.Middle)
}

func TestParseExtendedEventDescriptorStripsHeadingMarker(t *testing.T) {
	heading := append([]byte{0x81, 0x9E}, "heading"...) // "◇" in Shift-JIS
	body := []byte("body")
	items := append([]byte{byte(len(heading))}, heading...)
	items = append(items, byte(len(body)))
	items = append(items, body...)

	data := append([]byte{0x10, 'j', 'p', 'n', byte(len(items))}, items...)
	d := RawDescriptor{Tag: DescTagExtendedEvent, Data: data}

	ee, err := ParseExtendedEventDescriptor(d)
	require.NoError(t, err)
	require.Len(t, ee.Items, 1)
	assert.Equal(t, "heading", ee.Items[0].Heading)
	assert.Equal(t, "body", ee.Items[0].Body)
}
