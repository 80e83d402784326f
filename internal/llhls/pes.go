// Package llhls implements the Low-Latency HLS segmenter of spec.md §4.G: it
// turns one encoded MPEG-TS stream into fMP4 init/media/partial segments and
// serves blocking playlist requests.
package llhls

import (
	"errors"
)

// ErrPESParse is returned for malformed PES framing.
var ErrPESParse = errors.New("llhls: malformed PES packet")

// H.264/H.265 NAL unit type identification, per spec.md §4.G.
const (
	H264NALSPS = 7
	H264NALPPS = 8
	H264NALAUD = 9
	H264NALSEI = 6
	H264NALIDR = 5

	H265NALVPS = 32
	H265NALSPS = 33
	H265NALPPS = 34
	H265NALAUD = 35
	H265NALSEI = 39
)

// IsH265IDR reports whether naluType is one of the three H.265 IDR/CRA types
// that mark a random-access point, per spec.md §4.G.
func IsH265IDR(naluType byte) bool {
	return naluType == 19 || naluType == 20 || naluType == 21
}

// SplitAnnexB splits Annex-B (start-code-delimited) elementary stream data
// into individual NAL units, stripping the 00 00 01 / 00 00 00 01 prefixes.
func SplitAnnexB(data []byte) [][]byte {
	var units [][]byte
	starts := findStartCodes(data)
	for i, s := range starts {
		end := len(data)
		if i+1 < len(starts) {
			end = starts[i+1].pos
		}
		nal := data[s.pos+s.len : end]
		if len(nal) > 0 {
			units = append(units, nal)
		}
	}
	return units
}

type startCode struct {
	pos int
	len int
}

func findStartCodes(data []byte) []startCode {
	var out []startCode
	for i := 0; i+2 < len(data); i++ {
		if data[i] == 0 && data[i+1] == 0 {
			if data[i+2] == 1 {
				out = append(out, startCode{pos: i, len: 3})
				i += 2
				continue
			}
			if i+3 < len(data) && data[i+2] == 0 && data[i+3] == 1 {
				out = append(out, startCode{pos: i, len: 4})
				i += 3
				continue
			}
		}
	}
	return out
}

// H264NALType extracts the NAL unit type from an Annex-B NAL (header byte
// stripped, low 5 bits).
func H264NALType(nal []byte) byte {
	if len(nal) == 0 {
		return 0
	}
	return nal[0] & 0x1F
}

// H265NALType extracts the NAL unit type from an H.265 NAL (bits 1-6 of the
// first byte).
func H265NALType(nal []byte) byte {
	if len(nal) == 0 {
		return 0
	}
	return (nal[0] >> 1) & 0x3F
}

// ADTSHeader is the fixed 7-byte ADTS header fields needed to build an AAC
// AudioSpecificConfig, per spec.md §4.G.
type ADTSHeader struct {
	ProfileObjectType byte // MPEG-4 audio object type minus 1
	SampleRateIndex   byte
	ChannelConfig     byte
	FrameLength       int
}

// ParseADTSFrames splits a run of back-to-back ADTS frames (as tsreadex/the
// encoder emit them) into their raw AAC payloads plus the header of the
// first frame, for AudioSpecificConfig derivation.
func ParseADTSFrames(data []byte) (hdr ADTSHeader, payloads [][]byte, err error) {
	first := true
	for len(data) >= 7 {
		if data[0] != 0xFF || data[1]&0xF0 != 0xF0 {
			return hdr, nil, ErrPESParse
		}
		frameLen := int(data[3]&0x03)<<11 | int(data[4])<<3 | int(data[5]>>5)
		if frameLen < 7 || frameLen > len(data) {
			return hdr, nil, ErrPESParse
		}
		headerLen := 7
		if data[1]&0x01 == 0 {
			headerLen = 9 // CRC present
		}
		if first {
			hdr = ADTSHeader{
				ProfileObjectType: (data[2] >> 6) & 0x03,
				SampleRateIndex:   (data[2] >> 2) & 0x0F,
				ChannelConfig:     (data[2]&0x01)<<2 | (data[3]>>6)&0x03,
				FrameLength:       frameLen,
			}
			first = false
		}
		if headerLen > frameLen {
			return hdr, nil, ErrPESParse
		}
		payloads = append(payloads, data[headerLen:frameLen])
		data = data[frameLen:]
	}
	return hdr, payloads, nil
}
