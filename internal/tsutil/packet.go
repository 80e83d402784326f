// Package tsutil implements MPEG-TS packet framing, PCR extraction, and
// ARIB-specific PSI/SI descriptor decoding for ISDB-T/ISDB-S streams, per
// spec.md §4.C. Generic DVB-shaped section demuxing (PAT/PMT/EIT/SDT/NIT/
// TOT) and H.264/H.265/AAC elementary-stream parsing are delegated to
// github.com/asticode/go-astits and github.com/bluenviron/mediacommon/v2;
// this file hand-rolls only what those libraries do not expose at the
// granularity this spec needs: raw packet resync and PCR arithmetic.
package tsutil

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// PacketSize is the fixed MPEG-TS packet length.
const PacketSize = 188

// SyncByte is the required first byte of every TS packet.
const SyncByte = 0x47

// ErrTSParse is the sentinel error kind for invalid sync, bad CRC, or
// impossible PES length, per spec.md §7. Recoverable: callers drop the
// offending section/packet and continue.
var ErrTSParse = errors.New("tsutil: ts parse error")

// Packet is a parsed 188-byte MPEG-TS packet header plus its payload slice.
type Packet struct {
	PID                   uint16
	PayloadUnitStart      bool
	AdaptationFieldControl uint8 // 1=payload only, 2=adaptation only, 3=both
	ContinuityCounter     uint8
	HasPCR                bool
	PCR                   PCRClock
	Payload               []byte // points into the caller's buffer; copy if retained
	Raw                   []byte // the full 188-byte packet, including header
}

const (
	afControlPayloadOnly = 1
	afControlAdaptOnly   = 2
	afControlBoth        = 3
)

// ParsePacket decodes one already-resynced 188-byte buffer.
func ParsePacket(buf []byte) (Packet, error) {
	if len(buf) != PacketSize {
		return Packet{}, fmt.Errorf("%w: packet length %d != %d", ErrTSParse, len(buf), PacketSize)
	}
	if buf[0] != SyncByte {
		return Packet{}, fmt.Errorf("%w: bad sync byte 0x%02x", ErrTSParse, buf[0])
	}

	pid := uint16(buf[1]&0x1F)<<8 | uint16(buf[2])
	pusi := buf[1]&0x40 != 0
	afc := (buf[3] >> 4) & 0x3
	cc := buf[3] & 0xF

	p := Packet{
		PID:                   pid,
		PayloadUnitStart:      pusi,
		AdaptationFieldControl: afc,
		ContinuityCounter:     cc,
		Raw:                   buf,
	}

	cursor := 4
	if afc == afControlAdaptOnly || afc == afControlBoth {
		if cursor >= len(buf) {
			return Packet{}, fmt.Errorf("%w: truncated adaptation field", ErrTSParse)
		}
		afLen := int(buf[cursor])
		afStart := cursor + 1
		if afStart+afLen > len(buf) {
			return Packet{}, fmt.Errorf("%w: adaptation field length %d exceeds packet", ErrTSParse, afLen)
		}
		if afLen > 0 {
			flags := buf[afStart]
			hasPCR := flags&0x10 != 0
			if hasPCR {
				if afLen < 7 {
					return Packet{}, fmt.Errorf("%w: adaptation field too short for PCR", ErrTSParse)
				}
				pcr, err := parsePCRField(buf[afStart+1 : afStart+7])
				if err != nil {
					return Packet{}, err
				}
				p.HasPCR = true
				p.PCR = pcr
			}
		}
		cursor = afStart + afLen
	}

	if afc == afControlPayloadOnly || afc == afControlBoth {
		if cursor > len(buf) {
			return Packet{}, fmt.Errorf("%w: payload starts past packet end", ErrTSParse)
		}
		p.Payload = buf[cursor:]
	}

	return p, nil
}

// PCRCycle is the wrap modulus (90kHz terms) used by the segmenter for
// PROGRAM-DATE-TIME derivation across PCR wraps, per spec.md §4.C.
const PCRCycle = uint64(1) << 33

// PCRClock is a 42-bit extended PCR value: a 33-bit base at 90kHz plus a
// 9-bit (0-299) extension at 27MHz.
type PCRClock struct {
	Base      uint64 // 0..2^33-1, 90kHz ticks
	Extension uint16 // 0..299, 27MHz sub-ticks within one 90kHz tick
}

// Ticks90kHz returns the PCR value expressed purely in 90kHz ticks
// (truncating the 27MHz extension), modulo PCRCycle.
func (p PCRClock) Ticks90kHz() uint64 { return p.Base % PCRCycle }

// Sub computes a-b as a signed duration in 90kHz ticks, correctly handling
// one wraparound of PCRCycle in either direction, per spec.md §8 ("two TS
// packets whose PCRs straddle 2^33 produce a monotonically increasing
// PROGRAM-DATE-TIME").
func (a PCRClock) Sub(b PCRClock) int64 {
	diff := int64(a.Ticks90kHz()) - int64(b.Ticks90kHz())
	half := int64(PCRCycle / 2)
	if diff > half {
		diff -= int64(PCRCycle)
	} else if diff < -half {
		diff += int64(PCRCycle)
	}
	return diff
}

func parsePCRField(b []byte) (PCRClock, error) {
	if len(b) != 6 {
		return PCRClock{}, fmt.Errorf("%w: pcr field must be 6 bytes", ErrTSParse)
	}
	raw := uint64(b[0])<<40 | uint64(b[1])<<32 | uint64(b[2])<<24 | uint64(b[3])<<16 | uint64(b[4])<<8 | uint64(b[5])
	base := (raw >> 15) & 0x1FFFFFFFF // top 33 bits
	ext := uint16(raw & 0x1FF)        // bottom 9 bits (6 reserved bits sit between them)
	return PCRClock{Base: base, Extension: ext}, nil
}

// PacketReader re-synchronizes on a TS byte stream: on a sync-byte mismatch
// it scans forward one byte at a time to the next SyncByte and reads a
// packet from there; the byte 188 positions later is not checked.
type PacketReader struct {
	r   *bufio.Reader
	buf [PacketSize]byte
}

// NewPacketReader wraps r for packet-at-a-time reading.
func NewPacketReader(r io.Reader) *PacketReader {
	return &PacketReader{r: bufio.NewReaderSize(r, 188*256)}
}

// Next reads and parses the next packet, resyncing past corrupt bytes as
// needed. Returns io.EOF when the underlying reader is exhausted cleanly.
func (pr *PacketReader) Next() (Packet, error) {
	if err := pr.fillAligned(); err != nil {
		return Packet{}, err
	}
	return ParsePacket(pr.buf[:])
}

func (pr *PacketReader) fillAligned() error {
	if _, err := io.ReadFull(pr.r, pr.buf[:1]); err != nil {
		return err
	}
	for pr.buf[0] != SyncByte {
		b, err := pr.r.ReadByte()
		if err != nil {
			return err
		}
		pr.buf[0] = b
	}
	if _, err := io.ReadFull(pr.r, pr.buf[1:]); err != nil {
		return err
	}
	return nil
}
