package repository

import (
	"context"
	"fmt"

	"github.com/hanatv/hanatv/internal/models"
	"gorm.io/gorm"
)

// channelRepo implements ChannelRepository using GORM.
type channelRepo struct {
	db *gorm.DB
}

// NewChannelRepository creates a new ChannelRepository.
func NewChannelRepository(db *gorm.DB) *channelRepo {
	return &channelRepo{db: db}
}

// ReplaceAll deletes every channel and inserts channels in one transaction.
func (r *channelRepo) ReplaceAll(ctx context.Context, channels []*models.Channel) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(&models.Channel{}).Error; err != nil {
			return fmt.Errorf("clearing channels: %w", err)
		}
		if len(channels) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(channels, 200).Error; err != nil {
			return fmt.Errorf("inserting channels: %w", err)
		}
		return nil
	})
}

// GetByID retrieves a channel by ID.
func (r *channelRepo) GetByID(ctx context.Context, id models.ULID) (*models.Channel, error) {
	var channel models.Channel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&channel).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting channel by ID: %w", err)
	}
	return &channel, nil
}

// GetByIdentity retrieves a channel by (network_id, service_id).
func (r *channelRepo) GetByIdentity(ctx context.Context, networkID, serviceID uint16) (*models.Channel, error) {
	var channel models.Channel
	err := r.db.WithContext(ctx).
		Where("network_id = ? AND service_id = ?", networkID, serviceID).
		First(&channel).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting channel by identity: %w", err)
	}
	return &channel, nil
}

// GetByDisplayChannelID retrieves a channel by its lower(type)+number key.
// DisplayChannelID is derived, not stored, so this scans every channel
// rather than a direct column match; the table is small enough (low
// hundreds of rows at most) for this to be cheap.
func (r *channelRepo) GetByDisplayChannelID(ctx context.Context, displayChannelID string) (*models.Channel, error) {
	channels, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range channels {
		if c.DisplayChannelID() == displayChannelID {
			return c, nil
		}
	}
	return nil, nil
}

// GetAll retrieves every channel, ordered by channel number.
func (r *channelRepo) GetAll(ctx context.Context) ([]*models.Channel, error) {
	var channels []*models.Channel
	if err := r.db.WithContext(ctx).Order("channel_number ASC").Find(&channels).Error; err != nil {
		return nil, fmt.Errorf("getting all channels: %w", err)
	}
	return channels, nil
}

// GetWatchable retrieves channels with IsWatchable set.
func (r *channelRepo) GetWatchable(ctx context.Context) ([]*models.Channel, error) {
	var channels []*models.Channel
	err := r.db.WithContext(ctx).
		Where("is_watchable = ?", true).
		Order("channel_number ASC").
		Find(&channels).Error
	if err != nil {
		return nil, fmt.Errorf("getting watchable channels: %w", err)
	}
	return channels, nil
}

// Ensure channelRepo implements ChannelRepository at compile time.
var _ ChannelRepository = (*channelRepo)(nil)
