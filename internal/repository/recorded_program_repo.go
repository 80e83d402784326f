package repository

import (
	"context"
	"fmt"

	"github.com/hanatv/hanatv/internal/models"
	"gorm.io/gorm"
)

// recordedProgramRepo implements RecordedProgramRepository using GORM.
type recordedProgramRepo struct {
	db *gorm.DB
}

// NewRecordedProgramRepository creates a new RecordedProgramRepository.
func NewRecordedProgramRepository(db *gorm.DB) *recordedProgramRepo {
	return &recordedProgramRepo{db: db}
}

// Create creates a new recorded program row.
func (r *recordedProgramRepo) Create(ctx context.Context, program *models.RecordedProgram) error {
	if err := r.db.WithContext(ctx).Create(program).Error; err != nil {
		return fmt.Errorf("creating recorded program: %w", err)
	}
	return nil
}

// GetByRecordedVideoID retrieves the program for a recorded video, if any.
func (r *recordedProgramRepo) GetByRecordedVideoID(ctx context.Context, videoID models.ULID) (*models.RecordedProgram, error) {
	var program models.RecordedProgram
	err := r.db.WithContext(ctx).Where("recorded_video_id = ?", videoID).First(&program).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting recorded program by video ID: %w", err)
	}
	return &program, nil
}

// GetAll retrieves every recorded program, newest start time first.
func (r *recordedProgramRepo) GetAll(ctx context.Context) ([]*models.RecordedProgram, error) {
	var programs []*models.RecordedProgram
	if err := r.db.WithContext(ctx).Order("start_at DESC").Find(&programs).Error; err != nil {
		return nil, fmt.Errorf("getting all recorded programs: %w", err)
	}
	return programs, nil
}

// Delete deletes a recorded program by ID.
func (r *recordedProgramRepo) Delete(ctx context.Context, id models.ULID) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.RecordedProgram{}).Error; err != nil {
		return fmt.Errorf("deleting recorded program: %w", err)
	}
	return nil
}

// Ensure recordedProgramRepo implements RecordedProgramRepository at compile time.
var _ RecordedProgramRepository = (*recordedProgramRepo)(nil)
