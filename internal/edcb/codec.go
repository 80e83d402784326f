// Package edcb implements the binary length-prefixed RPC client used to
// reach the Windows-originated recorder control daemon (EDCB's CtrlCmd
// protocol), per spec.md §4.A.
package edcb

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"
	"unicode/utf16"
)

// ErrShortBuffer is returned by every Reader method when fewer bytes remain
// than a field declares it needs. Per spec.md §4.A, this must never panic.
var ErrShortBuffer = errors.New("edcb: short buffer")

// ErrMalformed wraps ErrShortBuffer and other structural decode failures.
type ErrMalformed struct {
	Field string
	Err   error
}

func (e *ErrMalformed) Error() string {
	return fmt.Sprintf("edcb: malformed field %s: %v", e.Field, e.Err)
}

func (e *ErrMalformed) Unwrap() error { return e.Err }

func malformed(field string, err error) error {
	return &ErrMalformed{Field: field, Err: err}
}

// Reader wraps a byte slice cursor over an already-received payload.
type Reader struct {
	buf []byte
	pos int
}

// NewReader creates a Reader over buf.
func NewReader(buf []byte) *Reader { return &Reader{buf: buf} }

// Remaining reports how many bytes are left unread.
func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

func (r *Reader) need(n int) error {
	if r.Remaining() < n {
		return ErrShortBuffer
	}
	return nil
}

// Skip advances the cursor by n bytes, or returns ErrShortBuffer.
func (r *Reader) Skip(n int) error {
	if err := r.need(n); err != nil {
		return malformed("skip", err)
	}
	r.pos += n
	return nil
}

// Bytes reads n raw bytes.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, malformed("bytes", err)
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// U8 reads an unsigned 8-bit integer.
func (r *Reader) U8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, malformed("u8", err)
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

// U16 reads a little-endian unsigned 16-bit integer.
func (r *Reader) U16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, malformed("u16", err)
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

// U32 reads a little-endian unsigned 32-bit integer.
func (r *Reader) U32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, malformed("u32", err)
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

// I32 reads a little-endian signed 32-bit integer.
func (r *Reader) I32() (int32, error) {
	v, err := r.U32()
	return int32(v), err
}

// U64 reads a little-endian unsigned 64-bit integer.
func (r *Reader) U64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, malformed("u64", err)
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

// StructSize reads the u32 total-size prefix that precedes every composite
// struct and vector, and returns a *Reader bounded to exactly that many bytes
// (including the 4-byte prefix itself), so unknown trailing fields can be
// skipped by the caller per spec.md §4.A.
func (r *Reader) StructSize() (*Reader, error) {
	size, err := r.U32()
	if err != nil {
		return nil, malformed("struct_size", err)
	}
	if size < 4 {
		return nil, malformed("struct_size", fmt.Errorf("declared size %d smaller than prefix", size))
	}
	body := size - 4
	if err := r.need(int(body)); err != nil {
		return nil, malformed("struct_body", err)
	}
	sub := &Reader{buf: r.buf[r.pos : r.pos+int(body)]}
	r.pos += int(body)
	return sub, nil
}

// String reads a length-prefixed UTF-16LE string: u32 byte-count (including
// the prefix and the trailing NUL16), then the UTF-16LE body, then a
// terminating u16 0.
func (r *Reader) String() (string, error) {
	totalLen, err := r.U32()
	if err != nil {
		return "", malformed("string_len", err)
	}
	if totalLen < 4+2 {
		return "", malformed("string_len", fmt.Errorf("declared length %d too small", totalLen))
	}
	bodyLen := int(totalLen) - 4
	raw, err := r.Bytes(bodyLen)
	if err != nil {
		return "", malformed("string_body", err)
	}
	if len(raw) < 2 {
		return "", malformed("string_body", fmt.Errorf("missing NUL terminator"))
	}
	// Strip the trailing u16 0 terminator before decoding.
	codeUnits := make([]uint16, (len(raw)-2)/2)
	for i := range codeUnits {
		codeUnits[i] = binary.LittleEndian.Uint16(raw[i*2:])
	}
	return string(utf16.Decode(codeUnits)), nil
}

// VecU64 reads a vec<u64>: u32 total-bytes, u32 element-count, elements.
func (r *Reader) VecU64() ([]uint64, error) {
	_, err := r.U32() // total byte count, unused: element count is authoritative
	if err != nil {
		return nil, malformed("vec_u64_total", err)
	}
	count, err := r.U32()
	if err != nil {
		return nil, malformed("vec_u64_count", err)
	}
	out := make([]uint64, 0, count)
	for i := uint32(0); i < count; i++ {
		v, err := r.U64()
		if err != nil {
			return nil, malformed("vec_u64_elem", err)
		}
		out = append(out, v)
	}
	return out, nil
}

// SystemTime is the Windows SYSTEMTIME wire representation: eight
// little-endian u16 fields, always JST (UTC+9) regardless of host timezone.
type SystemTime struct {
	Year         uint16
	Month        uint16
	DayOfWeek    uint16
	Day          uint16
	Hour         uint16
	Minute       uint16
	Second       uint16
	Milliseconds uint16
}

// JST is the fixed UTC+9 location SYSTEMTIME values are expressed in.
var JST = time.FixedZone("JST", 9*60*60)

// Time converts the SYSTEMTIME into a time.Time in JST.
func (s SystemTime) Time() time.Time {
	return time.Date(int(s.Year), time.Month(s.Month), int(s.Day),
		int(s.Hour), int(s.Minute), int(s.Second), int(s.Milliseconds)*1e6, JST)
}

// SystemTimeFromTime converts t (interpreted in JST) into a SYSTEMTIME.
func SystemTimeFromTime(t time.Time) SystemTime {
	t = t.In(JST)
	return SystemTime{
		Year:         uint16(t.Year()),
		Month:        uint16(t.Month()),
		DayOfWeek:    uint16(t.Weekday()),
		Day:          uint16(t.Day()),
		Hour:         uint16(t.Hour()),
		Minute:       uint16(t.Minute()),
		Second:       uint16(t.Second()),
		Milliseconds: uint16(t.Nanosecond() / 1e6),
	}
}

// SystemTime reads an eight-field SYSTEMTIME.
func (r *Reader) SystemTime() (SystemTime, error) {
	var s SystemTime
	fields := []*uint16{&s.Year, &s.Month, &s.DayOfWeek, &s.Day, &s.Hour, &s.Minute, &s.Second, &s.Milliseconds}
	for _, f := range fields {
		v, err := r.U16()
		if err != nil {
			return SystemTime{}, malformed("system_time", err)
		}
		*f = v
	}
	return s, nil
}

// Writer builds a payload using the same primitives as Reader consumes.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer { return &Writer{} }

// Bytes returns the accumulated payload.
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

func (w *Writer) U8(v uint8)   { w.buf.WriteByte(v) }
func (w *Writer) U16(v uint16) { var b [2]byte; binary.LittleEndian.PutUint16(b[:], v); w.buf.Write(b[:]) }
func (w *Writer) U32(v uint32) { var b [4]byte; binary.LittleEndian.PutUint32(b[:], v); w.buf.Write(b[:]) }
func (w *Writer) I32(v int32)  { w.U32(uint32(v)) }
func (w *Writer) U64(v uint64) { var b [8]byte; binary.LittleEndian.PutUint64(b[:], v); w.buf.Write(b[:]) }

// String writes a length-prefixed UTF-16LE string with the trailing NUL16.
func (w *Writer) String(s string) {
	units := utf16.Encode([]rune(s))
	body := make([]byte, len(units)*2+2)
	for i, u := range units {
		binary.LittleEndian.PutUint16(body[i*2:], u)
	}
	// trailing u16 0 is already zero-valued in the allocated slice
	w.U32(uint32(4 + len(body)))
	w.buf.Write(body)
}

// SystemTime writes an eight-field SYSTEMTIME.
func (w *Writer) SystemTime(s SystemTime) {
	for _, v := range []uint16{s.Year, s.Month, s.DayOfWeek, s.Day, s.Hour, s.Minute, s.Second, s.Milliseconds} {
		w.U16(v)
	}
}

// StructBody wraps the bytes written by fn with the u32 total-size prefix
// (including the prefix itself) that every composite struct requires.
func StructBody(fn func(w *Writer)) []byte {
	inner := NewWriter()
	fn(inner)
	out := NewWriter()
	out.U32(uint32(4 + inner.buf.Len()))
	out.buf.Write(inner.Bytes())
	return out.Bytes()
}
