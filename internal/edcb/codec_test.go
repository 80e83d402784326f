package edcb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemTimeRoundTrip(t *testing.T) {
	in := time.Date(2026, 7, 31, 21, 5, 3, 0, JST)
	st := SystemTimeFromTime(in)

	w := NewWriter()
	w.SystemTime(st)

	r := NewReader(w.Bytes())
	got, err := r.SystemTime()
	require.NoError(t, err)

	assert.True(t, in.Equal(got.Time()))
}

func TestStringRoundTrip(t *testing.T) {
	for _, s := range []string{"", "hello", "日本語テスト"} {
		w := NewWriter()
		w.String(s)

		r := NewReader(w.Bytes())
		got, err := r.String()
		require.NoError(t, err)
		assert.Equal(t, s, got)
		assert.Equal(t, 0, r.Remaining())
	}
}

func TestReaderShortBufferNeverPanics(t *testing.T) {
	r := NewReader([]byte{1, 2})
	_, err := r.U32()
	assert.ErrorIs(t, err, ErrShortBuffer)

	_, err = r.String()
	assert.Error(t, err)

	_, err = r.SystemTime()
	assert.Error(t, err)
}

func TestStructSizeHonoursDeclaredLength(t *testing.T) {
	w := NewWriter()
	body := StructBody(func(w *Writer) {
		w.U16(1)
		w.U16(2)
		w.U16(3) // extra trailing field a simpler decoder might not know about
	})
	w.buf.Write(body)

	r := NewReader(w.Bytes())
	sub, err := r.StructSize()
	require.NoError(t, err)

	v, err := sub.U16()
	require.NoError(t, err)
	assert.Equal(t, uint16(1), v)

	// Remaining bytes in the outer reader are zero: StructSize consumed the
	// whole declared size, including fields this decoder never reads.
	assert.Equal(t, 0, r.Remaining())
}
