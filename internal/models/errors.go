package models

import (
	"errors"
	"fmt"
)

// ErrValidation represents a validation error with field and message.
type ErrValidation struct {
	Field   string
	Message string
}

func (e ErrValidation) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// Common validation errors for models.
var (
	ErrChannelIDRequired  = errors.New("channel identity (network_id, service_id) is required")
	ErrNameRequired       = errors.New("name is required")
	ErrInvalidChannelType = errors.New("invalid channel type")
	ErrTitleRequired      = errors.New("title is required")
	ErrStartTimeRequired  = errors.New("start time is required")
	ErrInvalidTimeRange   = errors.New("end time must be after start time")
	ErrFilePathRequired   = errors.New("file path is required")
	ErrFileHashRequired   = errors.New("file hash is required")
	ErrInvalidKeyFrames   = errors.New("key frames must be strictly ascending on both dts and offset")
	ErrRecordedVideoID    = errors.New("recorded_video_id is required")
)
