package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Container is the wrapper format of a recorded file.
type Container string

const (
	ContainerMPEGTS Container = "MPEG-TS"
	ContainerMPEG4  Container = "MPEG-4"
)

// ScanType is the interlace/progressive scan mode of a recorded video stream.
type ScanType string

const (
	ScanTypeInterlaced ScanType = "Interlaced"
	ScanTypeProgressive ScanType = "Progressive"
)

// KeyFrame is one GOP boundary in a recording: a recording's key frames are
// strictly ascending in both dts and offset, per spec.md §3.
type KeyFrame struct {
	DTS    uint64 `json:"dts"`
	Offset uint64 `json:"offset"`
}

// KeyFrames is a JSON column; recordings can carry tens of thousands of
// entries so it is stored as a single blob rather than a join table, mirroring
// how the teacher stores EncodingProfile.VideoFilters as a JSON column.
type KeyFrames []KeyFrame

func (k KeyFrames) Value() (driver.Value, error) {
	if k == nil {
		return "[]", nil
	}
	b, err := json.Marshal(k)
	return string(b), err
}

func (k *KeyFrames) Scan(value any) error {
	if value == nil {
		*k = nil
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into KeyFrames", value)
	}
	return json.Unmarshal(b, k)
}

// Validate enforces the strict-ascending invariant from spec.md §3/§8.
func (k KeyFrames) Validate() error {
	for i := 1; i < len(k); i++ {
		if k[i].DTS <= k[i-1].DTS || k[i].Offset <= k[i-1].Offset {
			return ErrInvalidKeyFrames
		}
	}
	return nil
}

// CMSection is a commercial-break interval, in seconds from the start of the
// recording, as extracted from the `.chapter.txt` sidecar.
type CMSection struct {
	StartSeconds float64 `json:"start_seconds"`
	EndSeconds   float64 `json:"end_seconds"`
}

type CMSections []CMSection

func (c CMSections) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}
	b, err := json.Marshal(c)
	return string(b), err
}

func (c *CMSections) Scan(value any) error {
	if value == nil {
		*c = nil
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into CMSections", value)
	}
	return json.Unmarshal(b, c)
}

// RecordedVideo is the file-level record of a recording, deduplicated by
// FileHash (see internal/metadata for hash computation).
type RecordedVideo struct {
	BaseModel

	FilePath string `gorm:"size:4096;not null" json:"file_path"`
	FileHash string `gorm:"size:64;index:idx_recorded_video_hash,unique" json:"file_hash"`
	FileSize int64  `json:"file_size"`

	FileCreatedAt  time.Time `json:"file_created_at"`
	FileModifiedAt time.Time `json:"file_modified_at"`

	RecordingStartAt time.Time     `json:"recording_start_at"`
	RecordingEndAt   time.Time     `json:"recording_end_at"`
	Duration         time.Duration `json:"duration"`

	Container Container `gorm:"size:16" json:"container"`

	VideoCodec      string   `gorm:"size:32" json:"video_codec"`
	VideoProfile    string   `gorm:"size:32" json:"video_profile"`
	VideoScanType   ScanType `gorm:"size:16" json:"video_scan_type"`
	VideoFPS        float64  `json:"video_fps"`
	VideoWidth      int      `json:"video_width"`
	VideoHeight     int      `json:"video_height"`

	PrimaryAudio   AudioTrack  `gorm:"embedded;embeddedPrefix:primary_audio_" json:"primary_audio"`
	SecondaryAudio *AudioTrack `gorm:"embedded;embeddedPrefix:secondary_audio_" json:"secondary_audio,omitempty"`

	KeyFrames  KeyFrames  `gorm:"type:text" json:"key_frames"`
	CMSections CMSections `gorm:"type:text" json:"cm_sections"`
}

// MinHashableFileSize is the minimum file size (3 MiB) below which hashing is
// refused, per spec.md §3/§8.
const MinHashableFileSize = 3 * 1024 * 1024

// Validate checks invariants beyond what GORM tags express.
func (v *RecordedVideo) Validate() error {
	if v.FilePath == "" {
		return ErrFilePathRequired
	}
	if v.FileHash == "" {
		return ErrFileHashRequired
	}
	if err := v.KeyFrames.Validate(); err != nil {
		return err
	}
	if len(v.KeyFrames) > 0 {
		last := v.KeyFrames[len(v.KeyFrames)-1]
		if v.Duration < time.Duration(float64(last.DTS)/90000*float64(time.Second)) {
			return fmt.Errorf("duration %s shorter than last key frame dts implies", v.Duration)
		}
	}
	return nil
}
