// Package repository defines data access interfaces for hanatv's persisted
// entities. All database access goes through these interfaces so the HTTP
// API, scheduler, and scanner never depend on GORM directly.
package repository

import (
	"context"
	"time"

	"github.com/hanatv/hanatv/internal/models"
)

// ChannelRepository defines operations for channel persistence. Channels are
// rebuilt wholesale on every EPG refresh, so the repository is built around
// replacing the whole table rather than per-row upserts.
type ChannelRepository interface {
	// ReplaceAll deletes every channel and inserts channels in one transaction,
	// the unit in which a full EPG refresh is applied.
	ReplaceAll(ctx context.Context, channels []*models.Channel) error
	// GetByID retrieves a channel by ID.
	GetByID(ctx context.Context, id models.ULID) (*models.Channel, error)
	// GetByIdentity retrieves a channel by (network_id, service_id).
	GetByIdentity(ctx context.Context, networkID, serviceID uint16) (*models.Channel, error)
	// GetByDisplayChannelID retrieves a channel by its lower(type)+number key.
	GetByDisplayChannelID(ctx context.Context, displayChannelID string) (*models.Channel, error)
	// GetAll retrieves every channel, ordered by channel number.
	GetAll(ctx context.Context) ([]*models.Channel, error)
	// GetWatchable retrieves channels with IsWatchable set.
	GetWatchable(ctx context.Context) ([]*models.Channel, error)
}

// ProgramRepository defines operations for EPG program persistence.
type ProgramRepository interface {
	// UpsertBatch creates or updates programs, keyed on (network_id,
	// service_id, event_id).
	UpsertBatch(ctx context.Context, programs []*models.Program) error
	// GetByID retrieves a program by ID.
	GetByID(ctx context.Context, id models.ULID) (*models.Program, error)
	// GetByChannelID retrieves programs for a channel within [from, to), ordered by start time.
	GetByChannelID(ctx context.Context, channelID models.ULID, from, to time.Time) ([]*models.Program, error)
	// GetCurrent retrieves the program airing on a channel at the given instant, if any.
	GetCurrent(ctx context.Context, channelID models.ULID, at time.Time) (*models.Program, error)
	// DeleteEndedBefore deletes programs whose EndAt is before cutoff, returning the count removed.
	DeleteEndedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RecordedVideoRepository defines operations for recorded-file metadata.
type RecordedVideoRepository interface {
	// Create creates a new recorded video row.
	Create(ctx context.Context, video *models.RecordedVideo) error
	// GetByID retrieves a recorded video by ID.
	GetByID(ctx context.Context, id models.ULID) (*models.RecordedVideo, error)
	// GetByFilePath retrieves a recorded video by its source file path.
	GetByFilePath(ctx context.Context, path string) (*models.RecordedVideo, error)
	// GetByFileHash retrieves a recorded video by content hash, used to
	// detect duplicate recordings of the same broadcast.
	GetByFileHash(ctx context.Context, hash string) (*models.RecordedVideo, error)
	// GetAll retrieves every recorded video, newest first.
	GetAll(ctx context.Context) ([]*models.RecordedVideo, error)
	// Delete deletes a recorded video by ID.
	Delete(ctx context.Context, id models.ULID) error
}

// RecordedProgramRepository defines operations for the metadata synthesized
// alongside each recorded video.
type RecordedProgramRepository interface {
	// Create creates a new recorded program row.
	Create(ctx context.Context, program *models.RecordedProgram) error
	// GetByRecordedVideoID retrieves the program for a recorded video, if any.
	GetByRecordedVideoID(ctx context.Context, videoID models.ULID) (*models.RecordedProgram, error)
	// GetAll retrieves every recorded program, newest start time first.
	GetAll(ctx context.Context) ([]*models.RecordedProgram, error)
	// Delete deletes a recorded program by ID.
	Delete(ctx context.Context, id models.ULID) error
}
