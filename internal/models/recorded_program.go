package models

import "time"

// RecordedProgram is 1:1 with a RecordedVideo, carrying the same
// Program-shaped metadata plus recording-specific margins. Produced by
// internal/metadata from embedded EIT, a PSI/SI archive, or (last resort) the
// file's name stem.
type RecordedProgram struct {
	BaseModel

	RecordedVideoID ULID `gorm:"type:varchar(26);not null;index:idx_recorded_program_video,unique" json:"recorded_video_id"`
	ChannelID       *ULID `gorm:"type:varchar(26);index" json:"channel_id,omitempty"`

	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`

	Title       string         `gorm:"size:512" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Detail      DetailSections `gorm:"type:text" json:"detail"`
	Genres      GenreList      `gorm:"type:text" json:"genres"`
	IsFree      bool           `json:"is_free"`

	RecordingStartMargin time.Duration `json:"recording_start_margin"`
	RecordingEndMargin   time.Duration `json:"recording_end_margin"`
	IsPartiallyRecorded  bool          `json:"is_partially_recorded"`
}

// Validate checks invariants beyond what GORM tags express.
func (p *RecordedProgram) Validate() error {
	if p.RecordedVideoID.IsZero() {
		return ErrRecordedVideoID
	}
	if p.Title == "" {
		return ErrTitleRequired
	}
	return nil
}
