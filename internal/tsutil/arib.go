package tsutil

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// Descriptor tags used by ARIB STD-B10/B24 SI tables, per spec.md §4.C.
const (
	DescTagShortEvent       = 0x4D
	DescTagExtendedEvent    = 0x4E
	DescTagContent          = 0x54
	DescTagAudioComponent   = 0xC4
	DescTagService          = 0x48
	DescTagTSInformation    = 0xCD
)

// RawDescriptor is one TLV descriptor as it appears in a PSI/SI section:
// tag, length, and raw body bytes.
type RawDescriptor struct {
	Tag  uint8
	Data []byte
}

// ParseDescriptorLoop walks a descriptor_loop_length-bounded byte range,
// splitting it into RawDescriptor entries. Any trailing bytes that don't
// form a complete tag+length+body are dropped, per spec.md §9's
// "partial data is discarded, not propagated".
func ParseDescriptorLoop(b []byte) []RawDescriptor {
	var out []RawDescriptor
	for len(b) >= 2 {
		tag := b[0]
		length := int(b[1])
		if 2+length > len(b) {
			break
		}
		out = append(out, RawDescriptor{Tag: tag, Data: b[2 : 2+length]})
		b = b[2+length:]
	}
	return out
}

// ServiceDescriptor carries the broadcaster-assigned service (channel) name.
type ServiceDescriptor struct {
	ServiceType byte
	ProviderName string
	ServiceName  string
}

// ParseServiceDescriptor decodes tag 0x48 (SDT's ServiceDescriptor).
func ParseServiceDescriptor(d RawDescriptor) (ServiceDescriptor, error) {
	if d.Tag != DescTagService {
		return ServiceDescriptor{}, fmt.Errorf("%w: expected service descriptor, got tag 0x%02x", ErrTSParse, d.Tag)
	}
	b := d.Data
	if len(b) < 2 {
		return ServiceDescriptor{}, fmt.Errorf("%w: service descriptor too short", ErrTSParse)
	}
	svcType := b[0]
	providerLen := int(b[1])
	if 2+providerLen > len(b) {
		return ServiceDescriptor{}, fmt.Errorf("%w: provider name length exceeds descriptor", ErrTSParse)
	}
	provider := DecodeARIBString(b[2 : 2+providerLen])
	rest := b[2+providerLen:]
	if len(rest) < 1 {
		return ServiceDescriptor{}, fmt.Errorf("%w: missing service name length", ErrTSParse)
	}
	nameLen := int(rest[0])
	if 1+nameLen > len(rest) {
		return ServiceDescriptor{}, fmt.Errorf("%w: service name length exceeds descriptor", ErrTSParse)
	}
	name := DecodeARIBString(rest[1 : 1+nameLen])
	return ServiceDescriptor{ServiceType: svcType, ProviderName: provider, ServiceName: name}, nil
}

// TSInformationDescriptor carries the broadcaster's single-digit remote
// control preset (remocon id), distinct from the service id.
type TSInformationDescriptor struct {
	RemoteControlKeyID uint8
}

// ParseTSInformationDescriptor decodes tag 0xCD (NIT's TSInformationDescriptor).
func ParseTSInformationDescriptor(d RawDescriptor) (TSInformationDescriptor, error) {
	if d.Tag != DescTagTSInformation {
		return TSInformationDescriptor{}, fmt.Errorf("%w: expected ts_information descriptor, got tag 0x%02x", ErrTSParse, d.Tag)
	}
	if len(d.Data) < 1 {
		return TSInformationDescriptor{}, fmt.Errorf("%w: ts_information descriptor too short", ErrTSParse)
	}
	return TSInformationDescriptor{RemoteControlKeyID: d.Data[0] >> 2}, nil
}

// ShortEventDescriptor carries the current event's title and short description.
type ShortEventDescriptor struct {
	Title       string
	Description string
}

// ParseShortEventDescriptor decodes tag 0x4D.
func ParseShortEventDescriptor(d RawDescriptor) (ShortEventDescriptor, error) {
	if d.Tag != DescTagShortEvent {
		return ShortEventDescriptor{}, fmt.Errorf("%w: expected short_event descriptor, got tag 0x%02x", ErrTSParse, d.Tag)
	}
	b := d.Data
	if len(b) < 4 {
		return ShortEventDescriptor{}, fmt.Errorf("%w: short_event descriptor too short", ErrTSParse)
	}
	b = b[3:] // skip ISO_639_language_code
	if len(b) < 1 {
		return ShortEventDescriptor{}, fmt.Errorf("%w: missing event_name_length", ErrTSParse)
	}
	nameLen := int(b[0])
	if 1+nameLen > len(b) {
		return ShortEventDescriptor{}, fmt.Errorf("%w: event_name_length exceeds descriptor", ErrTSParse)
	}
	title := DecodeARIBString(b[1 : 1+nameLen])
	rest := b[1+nameLen:]
	if len(rest) < 1 {
		return ShortEventDescriptor{Title: title}, nil
	}
	descLen := int(rest[0])
	if 1+descLen > len(rest) {
		return ShortEventDescriptor{}, fmt.Errorf("%w: text_length exceeds descriptor", ErrTSParse)
	}
	desc := DecodeARIBString(rest[1 : 1+descLen])
	return ShortEventDescriptor{Title: title, Description: desc}, nil
}

// ExtendedEventDescriptor is an ordered heading→body map, per spec.md §3/§4.C.
// Headings starting with "◇" are stripped, matching the original extractor.
type ExtendedEventDescriptor struct {
	Items []struct {
		Heading string
		Body    string
	}
}

// ParseExtendedEventDescriptor decodes tag 0x4E. A broadcast event's
// extended description may span multiple descriptors (descriptor_number /
// last_descriptor_number); callers concatenate item lists across them.
func ParseExtendedEventDescriptor(d RawDescriptor) (ExtendedEventDescriptor, error) {
	if d.Tag != DescTagExtendedEvent {
		return ExtendedEventDescriptor{}, fmt.Errorf("%w: expected extended_event descriptor, got tag 0x%02x", ErrTSParse, d.Tag)
	}
	b := d.Data
	if len(b) < 5 {
		return ExtendedEventDescriptor{}, fmt.Errorf("%w: extended_event descriptor too short", ErrTSParse)
	}
	b = b[4:] // skip descriptor_number/last_descriptor_number nibble pair + ISO_639_language_code(3)... consumed below
	if len(b) < 1 {
		return ExtendedEventDescriptor{}, fmt.Errorf("%w: missing length_of_items", ErrTSParse)
	}
	itemsLen := int(b[0])
	if 1+itemsLen > len(b) {
		return ExtendedEventDescriptor{}, fmt.Errorf("%w: length_of_items exceeds descriptor", ErrTSParse)
	}
	cur := b[1 : 1+itemsLen]

	var out ExtendedEventDescriptor
	for len(cur) >= 2 {
		headingLen := int(cur[0])
		if 1+headingLen > len(cur) {
			break
		}
		heading := DecodeARIBString(cur[1 : 1+headingLen])
		cur = cur[1+headingLen:]
		if len(cur) < 1 {
			break
		}
		bodyLen := int(cur[0])
		if 1+bodyLen > len(cur) {
			break
		}
		body := DecodeARIBString(cur[1 : 1+bodyLen])
		cur = cur[1+bodyLen:]

		heading = strings.TrimPrefix(heading, "◇")
		out.Items = append(out.Items, struct {
			Heading string
			Body    string
		}{Heading: heading, Body: body})
	}
	return out, nil
}

// ContentDescriptor is the major/middle genre classification.
type ContentDescriptor struct {
	Major  uint8
	Middle uint8
}

// ParseContentDescriptor decodes tag 0x54's first genre entry. A "拡張"
// major genre (0xE) with a BS/terrestrial-digital middle nibble is rewritten
// using the trailing user_nibble, per spec.md §4.C.
func ParseContentDescriptor(d RawDescriptor) (ContentDescriptor, error) {
	if d.Tag != DescTagContent {
		return ContentDescriptor{}, fmt.Errorf("%w: expected content descriptor, got tag 0x%02x", ErrTSParse, d.Tag)
	}
	if len(d.Data) < 2 {
		return ContentDescriptor{}, fmt.Errorf("%w: content descriptor too short", ErrTSParse)
	}
	major := d.Data[0] >> 4
	middle := d.Data[0] & 0x0F
	const extendedGenre = 0xE
	const bsTerrestrialMiddle = 0x0
	if major == extendedGenre && middle == bsTerrestrialMiddle {
		userNibble := d.Data[1] >> 4
		middle = userNibble
	}
	return ContentDescriptor{Major: major, Middle: middle}, nil
}

// AudioComponentDescriptor describes one audio elementary stream's
// component type, language, and dual-mono status.
type AudioComponentDescriptor struct {
	ComponentType string
	Language      string
	IsDualMono    bool
}

// componentTypeNames maps the ARIB component_type byte to a human label for
// the subset actually consumed (stereo / dual mono / multichannel).
var componentTypeNames = map[byte]string{
	0x01: "mono",
	0x02: "dual-mono",
	0x03: "stereo",
	0x09: "5.1ch",
}

// ParseAudioComponentDescriptor decodes tag 0xC4.
func ParseAudioComponentDescriptor(d RawDescriptor) (AudioComponentDescriptor, error) {
	if d.Tag != DescTagAudioComponent {
		return AudioComponentDescriptor{}, fmt.Errorf("%w: expected audio_component descriptor, got tag 0x%02x", ErrTSParse, d.Tag)
	}
	b := d.Data
	if len(b) < 9 {
		return AudioComponentDescriptor{}, fmt.Errorf("%w: audio_component descriptor too short", ErrTSParse)
	}
	componentType := b[1]
	simulcastGroupTag := b[2]
	_ = simulcastGroupTag
	mainComponentFlag := b[4]&0x08 != 0
	_ = mainComponentFlag
	qualityIndicator := b[4] & 0x03
	isDual := componentType == 0x02 && qualityIndicator != 0
	lang := string(b[6:9])
	return AudioComponentDescriptor{
		ComponentType: componentTypeNames[componentType],
		Language:      lang,
		IsDualMono:    isDual,
	}, nil
}

// DecodeARIBString decodes an ARIB STD-B24 8-unit-coded-character-set
// string. Full 8-unit coded character set decoding (control sequences,
// mosaic graphics, gaiji substitution) is out of scope for this core per
// spec.md §1 ("EPG-text formatting helpers" is an explicit Non-goal);
// within that scope, this passes through ASCII-range bytes directly and
// best-effort transcodes everything else through Shift-JIS so Kanji
// titles and half-width katakana remain legible instead of collapsing to
// replacement runes, never panicking on malformed input.
func DecodeARIBString(b []byte) string {
	// ARIB's 2-byte rows track JIS X 0208 closely enough that running them
	// through Shift-JIS recovers real Kanji text; it's not a byte-for-byte
	// match (ARIB adds gaiji and mosaic rows Shift-JIS has no concept of),
	// so any lead byte that doesn't decode cleanly falls back to a
	// replacement rune rather than desyncing the rest of the string. A
	// fresh decoder per call avoids sharing transformer state across the
	// concurrent EIT/SDT parsing internal/metadata and internal/psiarchive
	// do.
	decoder := japanese.ShiftJIS.NewDecoder()
	var sb strings.Builder
	for i := 0; i < len(b); {
		c := b[i]
		if c >= 0x20 && c < 0x7F {
			sb.WriteByte(c)
			i++
			continue
		}
		if c == 0x00 {
			i++
			continue
		}

		n := aribRuneWidth(c)
		if i+n > len(b) {
			sb.WriteRune('�')
			i++
			continue
		}
		decoded, _, err := transform.Bytes(decoder, b[i:i+n])
		if err != nil || len(decoded) == 0 {
			sb.WriteRune('�')
			i++
			continue
		}
		sb.Write(decoded)
		i += n
	}
	return sb.String()
}

// aribRuneWidth reports how many bytes the character starting with lead
// belongs to, using Shift-JIS's lead-byte ranges as the ARIB approximation.
func aribRuneWidth(lead byte) int {
	if lead >= 0x81 && lead <= 0x9F || lead >= 0xE0 && lead <= 0xFC {
		return 2
	}
	return 1
}
