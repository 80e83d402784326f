package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Genre is a two-level ARIB content genre classification.
type Genre struct {
	Major string `json:"major"`
	Middle string `json:"middle"`
}

// GenreList is a JSON-serialized column, following the teacher's pattern of
// storing loosely-structured slices (e.g. StreamSource.Extra) as a JSON blob
// rather than a join table.
type GenreList []Genre

func (g GenreList) Value() (driver.Value, error) {
	if g == nil {
		return "[]", nil
	}
	b, err := json.Marshal(g)
	return string(b), err
}

func (g *GenreList) Scan(value any) error {
	if value == nil {
		*g = nil
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into GenreList", value)
	}
	return json.Unmarshal(b, g)
}

// DetailSection is one heading/body pair of a Program's ordered detail map.
type DetailSection struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

// DetailSections preserves insertion order, unlike a plain map[string]string.
type DetailSections []DetailSection

func (d DetailSections) Value() (driver.Value, error) {
	if d == nil {
		return "[]", nil
	}
	b, err := json.Marshal(d)
	return string(b), err
}

func (d *DetailSections) Scan(value any) error {
	if value == nil {
		*d = nil
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into DetailSections", value)
	}
	return json.Unmarshal(b, d)
}

// AudioTrack describes one audio component of a Program or RecordedProgram.
type AudioTrack struct {
	Codec          string `json:"codec"`
	Language       string `json:"language"`
	SamplingRateHz int    `json:"sampling_rate_hz"`
}

// Program is identified by NID{nid}-SID{sid:03}-EID{eid}; inserted/updated by
// periodic EPG refresh. Programs whose end is more than one hour in the past
// are garbage-collected by internal/scheduler.
type Program struct {
	BaseModel

	NetworkID uint16 `gorm:"not null;index:idx_program_identity,unique" json:"network_id"`
	ServiceID uint16 `gorm:"not null;index:idx_program_identity,unique" json:"service_id"`
	EventID   uint16 `gorm:"not null;index:idx_program_identity,unique" json:"event_id"`

	ChannelID ULID `gorm:"type:varchar(26);not null;index" json:"channel_id"`

	StartAt  time.Time `gorm:"not null;index" json:"start_at"`
	EndAt    time.Time `gorm:"not null" json:"end_at"`
	Duration float64   `json:"duration_seconds"`

	Title       string         `gorm:"size:512" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Detail      DetailSections `gorm:"type:text" json:"detail"`
	Genres      GenreList      `gorm:"type:text" json:"genres"`

	VideoCodec      string `gorm:"size:32" json:"video_codec,omitempty"`
	VideoResolution string `gorm:"size:16" json:"video_resolution,omitempty"`
	VideoType       string `gorm:"size:32" json:"video_type,omitempty"`

	PrimaryAudio   AudioTrack  `gorm:"embedded;embeddedPrefix:primary_audio_" json:"primary_audio"`
	SecondaryAudio *AudioTrack `gorm:"embedded;embeddedPrefix:secondary_audio_" json:"secondary_audio,omitempty"`

	IsFree bool `gorm:"default:true" json:"is_free"`
}

// UndeterminedDuration is the sentinel duration (5 minutes) used when an EIT
// event carries no duration field ("未定"/TBD), per spec.md §8.
const UndeterminedDuration = 5 * time.Minute

// Validate checks invariants beyond what GORM tags express.
func (p *Program) Validate() error {
	if p.ChannelID.IsZero() {
		return ErrChannelIDRequired
	}
	if p.Title == "" {
		return ErrTitleRequired
	}
	if p.StartAt.IsZero() {
		return ErrStartTimeRequired
	}
	if !p.EndAt.After(p.StartAt) {
		return ErrInvalidTimeRange
	}
	return nil
}

// Key returns the program's composite identity string, NID{nid}-SID{sid:03}-EID{eid}.
func (p *Program) Key() string {
	return fmt.Sprintf("NID%d-SID%03d-EID%d", p.NetworkID, p.ServiceID, p.EventID)
}
