package repository

import (
	"context"
	"fmt"

	"github.com/hanatv/hanatv/internal/models"
	"gorm.io/gorm"
)

// recordedVideoRepo implements RecordedVideoRepository using GORM.
type recordedVideoRepo struct {
	db *gorm.DB
}

// NewRecordedVideoRepository creates a new RecordedVideoRepository.
func NewRecordedVideoRepository(db *gorm.DB) *recordedVideoRepo {
	return &recordedVideoRepo{db: db}
}

// Create creates a new recorded video row.
func (r *recordedVideoRepo) Create(ctx context.Context, video *models.RecordedVideo) error {
	if err := r.db.WithContext(ctx).Create(video).Error; err != nil {
		return fmt.Errorf("creating recorded video: %w", err)
	}
	return nil
}

// GetByID retrieves a recorded video by ID.
func (r *recordedVideoRepo) GetByID(ctx context.Context, id models.ULID) (*models.RecordedVideo, error) {
	var video models.RecordedVideo
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&video).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting recorded video by ID: %w", err)
	}
	return &video, nil
}

// GetByFilePath retrieves a recorded video by its source file path.
func (r *recordedVideoRepo) GetByFilePath(ctx context.Context, path string) (*models.RecordedVideo, error) {
	var video models.RecordedVideo
	if err := r.db.WithContext(ctx).Where("file_path = ?", path).First(&video).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting recorded video by file path: %w", err)
	}
	return &video, nil
}

// GetByFileHash retrieves a recorded video by content hash.
func (r *recordedVideoRepo) GetByFileHash(ctx context.Context, hash string) (*models.RecordedVideo, error) {
	var video models.RecordedVideo
	if err := r.db.WithContext(ctx).Where("file_hash = ?", hash).First(&video).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting recorded video by file hash: %w", err)
	}
	return &video, nil
}

// GetAll retrieves every recorded video, newest first.
func (r *recordedVideoRepo) GetAll(ctx context.Context) ([]*models.RecordedVideo, error) {
	var videos []*models.RecordedVideo
	if err := r.db.WithContext(ctx).Order("recording_start_at DESC").Find(&videos).Error; err != nil {
		return nil, fmt.Errorf("getting all recorded videos: %w", err)
	}
	return videos, nil
}

// Delete deletes a recorded video by ID.
func (r *recordedVideoRepo) Delete(ctx context.Context, id models.ULID) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.RecordedVideo{}).Error; err != nil {
		return fmt.Errorf("deleting recorded video: %w", err)
	}
	return nil
}

// Ensure recordedVideoRepo implements RecordedVideoRepository at compile time.
var _ RecordedVideoRepository = (*recordedVideoRepo)(nil)
