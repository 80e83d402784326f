package psiarchive

import (
	"bytes"
	"encoding/binary"
)

// WriteChunk encodes sections as a single `.psc` chunk with a fresh
// dictionary (no cross-chunk back-references), the simplest valid encoding
// and the one exercised by round-trip tests. Every entry gets an absolute
// timestamp.
func WriteChunk(sections []Section) []byte {
	var dict bytes.Buffer
	var timeList bytes.Buffer

	for i, s := range sections {
		binary.Write(&dict, binary.LittleEndian, s.PID)
		binary.Write(&dict, binary.LittleEndian, uint32(len(s.Data)))
		dict.Write(s.Data)

		// dictionary index is "entries back from the newest", and
		// WriteChunk appends in order, so the index for entry i (out of n)
		// once fully written is (n-1-i).
		binary.Write(&timeList, binary.LittleEndian, s.Time|absoluteTimeFlag)
		binary.Write(&timeList, binary.LittleEndian, uint16(len(sections)-1-i))
	}

	var out bytes.Buffer
	out.Write(Magic[:])
	binary.Write(&out, binary.LittleEndian, uint32(0)) // reserved
	binary.Write(&out, binary.LittleEndian, uint16(len(sections)))
	binary.Write(&out, binary.LittleEndian, uint16(len(sections)))
	binary.Write(&out, binary.LittleEndian, uint16(MaxDictionaryWindow))
	binary.Write(&out, binary.LittleEndian, uint32(dict.Len()))
	binary.Write(&out, binary.LittleEndian, uint32(dict.Len()))
	binary.Write(&out, binary.LittleEndian, uint32(timeList.Len()))
	out.Write(dict.Bytes())
	out.Write(timeList.Bytes())
	return out.Bytes()
}
