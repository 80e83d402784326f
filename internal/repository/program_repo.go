package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/hanatv/hanatv/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// programRepo implements ProgramRepository using GORM.
type programRepo struct {
	db *gorm.DB
}

// NewProgramRepository creates a new ProgramRepository.
func NewProgramRepository(db *gorm.DB) *programRepo {
	return &programRepo{db: db}
}

// UpsertBatch creates or updates programs, keyed on (network_id, service_id,
// event_id) — the same triple an EIT event is identified by, so re-running
// an EPG refresh never duplicates a program that hasn't changed.
func (r *programRepo) UpsertBatch(ctx context.Context, programs []*models.Program) error {
	if len(programs) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "network_id"}, {Name: "service_id"}, {Name: "event_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"channel_id", "start_at", "end_at", "duration",
			"title", "description", "detail", "genres",
			"video_codec", "video_resolution", "video_type",
			"primary_audio_codec", "primary_audio_language", "primary_audio_sampling_rate_hz",
			"secondary_audio_codec", "secondary_audio_language", "secondary_audio_sampling_rate_hz",
			"is_free", "updated_at",
		}),
	}).CreateInBatches(programs, 200).Error
	if err != nil {
		return fmt.Errorf("upserting program batch: %w", err)
	}
	return nil
}

// GetByID retrieves a program by ID.
func (r *programRepo) GetByID(ctx context.Context, id models.ULID) (*models.Program, error) {
	var program models.Program
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&program).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting program by ID: %w", err)
	}
	return &program, nil
}

// GetByChannelID retrieves programs for a channel within [from, to), ordered by start time.
func (r *programRepo) GetByChannelID(ctx context.Context, channelID models.ULID, from, to time.Time) ([]*models.Program, error) {
	var programs []*models.Program
	err := r.db.WithContext(ctx).
		Where("channel_id = ? AND start_at >= ? AND start_at < ?", channelID, from, to).
		Order("start_at ASC").
		Find(&programs).Error
	if err != nil {
		return nil, fmt.Errorf("getting programs by channel ID: %w", err)
	}
	return programs, nil
}

// GetCurrent retrieves the program airing on a channel at the given instant, if any.
func (r *programRepo) GetCurrent(ctx context.Context, channelID models.ULID, at time.Time) (*models.Program, error) {
	var program models.Program
	err := r.db.WithContext(ctx).
		Where("channel_id = ? AND start_at <= ? AND end_at > ?", channelID, at, at).
		Order("start_at DESC").
		First(&program).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting current program: %w", err)
	}
	return &program, nil
}

// DeleteEndedBefore deletes programs whose EndAt is before cutoff, returning
// the count removed. internal/scheduler calls this to garbage-collect
// programs more than an hour in the past.
func (r *programRepo) DeleteEndedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Unscoped().Where("end_at < ?", cutoff).Delete(&models.Program{})
	if result.Error != nil {
		return 0, fmt.Errorf("deleting ended programs: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Ensure programRepo implements ProgramRepository at compile time.
var _ ProgramRepository = (*programRepo)(nil)
