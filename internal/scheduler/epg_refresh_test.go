package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/hanatv/hanatv/internal/edcb"
	"github.com/hanatv/hanatv/internal/models"
	"github.com/hanatv/hanatv/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeEPGSource struct {
	services []edcb.ServiceInfo
	events   []edcb.ServiceEventInfo
}

func (f *fakeEPGSource) EnumService(ctx context.Context) ([]edcb.ServiceInfo, error) {
	return f.services, nil
}

func (f *fakeEPGSource) EnumPgInfoEx(ctx context.Context, filter []uint64) ([]edcb.ServiceEventInfo, error) {
	return f.events, nil
}

func setupEPGTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Channel{}, &models.Program{}))
	return db
}

func TestEPGRefresherReplacesChannelsAndUpsertsPrograms(t *testing.T) {
	db := setupEPGTestDB(t)
	channelRepo := repository.NewChannelRepository(db)
	programRepo := repository.NewProgramRepository(db)

	source := &fakeEPGSource{
		services: []edcb.ServiceInfo{
			{OriginalNetworkID: 0x7880, ServiceID: 101, ServiceName: "Channel 1", RemoteControlKeyID: 1},
		},
		events: []edcb.ServiceEventInfo{
			{
				OriginalNetworkID: 0x7880, ServiceID: 101, EventID: 1,
				StartTime: time.Date(2026, 7, 31, 20, 0, 0, 0, time.UTC),
				DurationSeconds: 1800, Title: "Evening News", ShortDescription: "Today's news",
			},
		},
	}

	refresher := NewEPGRefresher(source, channelRepo, programRepo)
	require.NoError(t, refresher.Refresh(context.Background()))

	channels, err := channelRepo.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, channels, 1)
	assert.Equal(t, models.ChannelTypeGR, channels[0].Type)

	programs, err := programRepo.GetByChannelID(context.Background(), channels[0].ID,
		time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC), time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, programs, 1)
	assert.Equal(t, "Evening News", programs[0].Title)
}

func TestEPGRefresherUsesUndeterminedDurationForTBDEvents(t *testing.T) {
	db := setupEPGTestDB(t)
	channelRepo := repository.NewChannelRepository(db)
	programRepo := repository.NewProgramRepository(db)

	source := &fakeEPGSource{
		services: []edcb.ServiceInfo{{OriginalNetworkID: 0x7880, ServiceID: 101, ServiceName: "Channel 1"}},
		events: []edcb.ServiceEventInfo{
			{
				OriginalNetworkID: 0x7880, ServiceID: 101, EventID: 1,
				StartTime: time.Date(2026, 7, 31, 20, 0, 0, 0, time.UTC),
				HasUndeterminedDuration: true, Title: "Special",
			},
		},
	}

	require.NoError(t, NewEPGRefresher(source, channelRepo, programRepo).Refresh(context.Background()))

	channels, err := channelRepo.GetAll(context.Background())
	require.NoError(t, err)
	programs, err := programRepo.GetByChannelID(context.Background(), channels[0].ID,
		time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC), time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, programs, 1)
	assert.Equal(t, models.UndeterminedDuration, programs[0].EndAt.Sub(programs[0].StartAt))
}

func TestEPGRefresherSkipsEventsForUnknownChannels(t *testing.T) {
	db := setupEPGTestDB(t)
	channelRepo := repository.NewChannelRepository(db)
	programRepo := repository.NewProgramRepository(db)

	source := &fakeEPGSource{
		services: []edcb.ServiceInfo{{OriginalNetworkID: 0x7880, ServiceID: 101, ServiceName: "Channel 1"}},
		events: []edcb.ServiceEventInfo{
			{OriginalNetworkID: 0x7880, ServiceID: 999, EventID: 1, StartTime: time.Now(), DurationSeconds: 1800, Title: "Orphan"},
		},
	}

	require.NoError(t, NewEPGRefresher(source, channelRepo, programRepo).Refresh(context.Background()))

	channels, err := channelRepo.GetAll(context.Background())
	require.NoError(t, err)
	programs, err := programRepo.GetByChannelID(context.Background(), channels[0].ID, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, programs)
}
