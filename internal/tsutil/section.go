package tsutil

import (
	"context"
	"errors"
	"io"

	"github.com/asticode/go-astits"
)

// SectionPIDs are the fixed PIDs of the generic DVB/ARIB-shaped SI tables
// consumed by this core, per spec.md §4.C.
const (
	PIDPAT = 0x0000
	PIDNIT = 0x0010
	PIDSDT = 0x0011
	PIDTOT = 0x0014
	PIDEIT = 0x0012
)

// SectionEvent is one demuxed PSI/SI table, as produced by astits'
// generic (DVB-shaped) section reassembly and CRC validation — ARIB SI uses
// the same table syntax as DVB, differing only in descriptor content, which
// ParseDescriptorLoop and the ParseXxxDescriptor helpers in arib.go decode.
type SectionEvent struct {
	PAT *astits.PATData
	PMT *astits.PMTData
	SDT *astits.SDTData
	NIT *astits.NITData
	TOT *astits.TOTData
	EIT *astits.EITData
}

// WalkSections demuxes r, invoking onEvent for every PAT/PMT/SDT/NIT/TOT/EIT
// table. PMT tables are only produced once astits has learned the relevant
// program map PID from a preceding PAT, matching spec.md §4.C's "PMT (PID
// discovered via PAT)". TS parse errors on individual sections are dropped
// and logged by the caller via onError, per spec.md §7 (TSParseError is
// recoverable).
func WalkSections(ctx context.Context, r io.Reader, onEvent func(SectionEvent), onError func(error)) error {
	dmx := astits.NewDemuxer(ctx, r)
	for {
		data, err := dmx.NextData()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if onError != nil {
				onError(err)
			}
			continue
		}
		ev := SectionEvent{}
		switch {
		case data.PAT != nil:
			ev.PAT = data.PAT
		case data.PMT != nil:
			ev.PMT = data.PMT
		case data.SDT != nil:
			ev.SDT = data.SDT
		case data.NIT != nil:
			ev.NIT = data.NIT
		case data.TOT != nil:
			ev.TOT = data.TOT
		case data.EIT != nil:
			ev.EIT = data.EIT
		default:
			continue
		}
		onEvent(ev)

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}
