package metadata

import (
	"encoding/binary"
	"errors"
	"time"

	"github.com/hanatv/hanatv/internal/models"
	"github.com/hanatv/hanatv/internal/tsutil"
)

// ErrEITSection is returned for a malformed EIT section.
var ErrEITSection = errors.New("metadata: malformed eit section")

// eitEvent is one decoded EIT event, enough to populate RecordedProgram.
type eitEvent struct {
	ServiceID uint16
	EventID   uint16
	StartAt   time.Time
	Duration  time.Duration
	Title     string
	Detail    models.DetailSections
	Genres    models.GenreList
}

// decodeEITSection parses one full EIT section (ISO 13818-1 §2.4.4.4,
// ARIB STD-B10's extension of the same table syntax), extracting every event
// it carries. Grounded on internal/tsutil/arib.go's descriptor decoders,
// which this reuses rather than re-implementing ARIB descriptor parsing;
// the section-header/event-loop framing itself has no pack dependency (it
// is identical across PAT/PMT/EIT but astits's typed EITData is built for
// live demuxing, not for sections recovered byte-for-byte out of a
// PSI archive), so it is hand-rolled here in tsutil's byte-cursor style.
func decodeEITSection(data []byte) ([]eitEvent, error) {
	if len(data) < 14 {
		return nil, ErrEITSection
	}
	sectionLength := int(data[1]&0x0F)<<8 | int(data[2])
	end := 3 + sectionLength
	if end > len(data) {
		end = len(data)
	}
	if end < 4 {
		return nil, ErrEITSection
	}
	body := data[3 : end-4] // drop the trailing 4-byte CRC32

	serviceID := binary.BigEndian.Uint16(data[3:5])

	cursor := 11 // past service_id, version/current_next, section_number,
	// last_section_number, transport_stream_id, original_network_id,
	// segment_last_section_number, last_table_id (offsets relative to data[3:])
	var events []eitEvent
	for cursor+12 <= len(body) {
		eventID := binary.BigEndian.Uint16(body[cursor : cursor+2])
		startAt, _ := decodeMJDBCDTime(body[cursor+2 : cursor+7]) // malformed field yields a zero time, not an abort
		cursor += 7
		durDelta := decodeBCDDuration(body[cursor : cursor+3])
		cursor += 3
		descLoopLen := int(body[cursor]&0x0F)<<8 | int(body[cursor+1])
		cursor += 2
		if cursor+descLoopLen > len(body) {
			break
		}
		descs := tsutil.ParseDescriptorLoop(body[cursor : cursor+descLoopLen])
		cursor += descLoopLen

		ev := eitEvent{ServiceID: serviceID, EventID: eventID, StartAt: startAt, Duration: durDelta}
		var extended tsutil.ExtendedEventDescriptor
		for _, d := range descs {
			switch d.Tag {
			case tsutil.DescTagShortEvent:
				if se, err := tsutil.ParseShortEventDescriptor(d); err == nil {
					ev.Title = se.Title
					if se.Description != "" {
						ev.Detail = append(ev.Detail, models.DetailSection{Heading: "概要", Body: se.Description})
					}
				}
			case tsutil.DescTagExtendedEvent:
				if ee, err := tsutil.ParseExtendedEventDescriptor(d); err == nil {
					extended.Items = append(extended.Items, ee.Items...)
				}
			case tsutil.DescTagContent:
				if cd, err := tsutil.ParseContentDescriptor(d); err == nil {
					ev.Genres = append(ev.Genres, models.Genre{
						Major:  genreMajorName(cd.Major),
						Middle: genreMiddleName(cd.Major, cd.Middle),
					})
				}
			}
		}
		for _, item := range extended.Items {
			ev.Detail = append(ev.Detail, models.DetailSection{Heading: item.Heading, Body: item.Body})
		}
		events = append(events, ev)
	}
	return events, nil
}

// decodeMJDBCDTime decodes a 5-byte MJD+BCD start_time field (JST, no
// timezone conversion needed — ARIB broadcasts are always JST).
func decodeMJDBCDTime(b []byte) (time.Time, error) {
	if len(b) != 5 {
		return time.Time{}, ErrEITSection
	}
	mjd := int(b[0])<<8 | int(b[1])
	if mjd == 0 {
		return time.Time{}, nil
	}
	hour := bcdToInt(b[2])
	minute := bcdToInt(b[3])
	second := bcdToInt(b[4])

	// MJD epoch: 1858-11-17.
	jst := time.FixedZone("JST", 9*60*60)
	epoch := time.Date(1858, time.November, 17, 0, 0, 0, 0, jst)
	day := epoch.AddDate(0, 0, mjd)
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, second, 0, jst), nil
}

func decodeBCDDuration(b []byte) time.Duration {
	if len(b) != 3 {
		return 0
	}
	hours := bcdToInt(b[0])
	minutes := bcdToInt(b[1])
	seconds := bcdToInt(b[2])
	return time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute + time.Duration(seconds)*time.Second
}

func bcdToInt(b byte) int {
	return int(b>>4)*10 + int(b&0x0F)
}

// genreMajorName gives a human label to the ARIB content descriptor's major
// nibble, labelling unrecognized codes "その他"; genreMiddleName returns the
// middle nibble modulo 10 as a single digit. Neither fails.
func genreMajorName(major uint8) string {
	names := map[uint8]string{
		0x0: "ニュース/報道", 0x1: "スポーツ", 0x2: "情報/ワイドショー", 0x3: "ドラマ",
		0x4: "音楽", 0x5: "バラエティ", 0x6: "映画", 0x7: "アニメ/特撮",
		0x8: "ドキュメンタリー/教養", 0x9: "劇場/公演", 0xA: "趣味/教育", 0xB: "福祉",
	}
	if name, ok := names[major]; ok {
		return name
	}
	return "その他"
}

func genreMiddleName(_ uint8, middle uint8) string {
	return string(rune('0' + middle%10))
}
