package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/hanatv/hanatv/internal/edcb"
	"github.com/hanatv/hanatv/internal/models"
	"github.com/hanatv/hanatv/internal/repository"
)

// EPGSource pulls the live channel list and program events from the tuner
// backend. internal/edcb.Client satisfies this directly.
type EPGSource interface {
	EnumService(ctx context.Context) ([]edcb.ServiceInfo, error)
	EnumPgInfoEx(ctx context.Context, filter []uint64) ([]edcb.ServiceEventInfo, error)
}

// EPGRefresher rebuilds the channel table and upserts program events from
// the tuner backend, per spec.md §4.C's channel_id derivation and §8's
// undetermined-duration handling.
type EPGRefresher struct {
	source      EPGSource
	channelRepo repository.ChannelRepository
	programRepo repository.ProgramRepository
}

// NewEPGRefresher creates an EPGRefresher.
func NewEPGRefresher(source EPGSource, channelRepo repository.ChannelRepository, programRepo repository.ProgramRepository) *EPGRefresher {
	return &EPGRefresher{source: source, channelRepo: channelRepo, programRepo: programRepo}
}

// Refresh fetches the current service list and program schedule, replaces
// the channel table wholesale, and upserts every program event.
func (r *EPGRefresher) Refresh(ctx context.Context) error {
	services, err := r.source.EnumService(ctx)
	if err != nil {
		return fmt.Errorf("scheduler: enumerating services: %w", err)
	}

	channels := make([]*models.Channel, 0, len(services))
	for _, svc := range services {
		channel := &models.Channel{
			NetworkID:     svc.OriginalNetworkID,
			ServiceID:     svc.ServiceID,
			RemoconID:     svc.RemoteControlKeyID,
			ChannelNumber: fmt.Sprintf("%d", svc.ServiceID),
			Type:          models.ChannelTypeFromNetworkID(svc.OriginalNetworkID),
			Name:          svc.ServiceName,
			IsWatchable:   true,
		}
		if svc.TransportStreamID != 0 {
			tsid := svc.TransportStreamID
			channel.TransportStreamID = &tsid
		}
		channels = append(channels, channel)
	}

	if err := r.channelRepo.ReplaceAll(ctx, channels); err != nil {
		return fmt.Errorf("scheduler: replacing channels: %w", err)
	}

	// ReplaceAll assigns IDs via BeforeCreate; re-fetch so programs can
	// reference the persisted channel rows.
	stored, err := r.channelRepo.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("scheduler: reloading channels: %w", err)
	}
	channelIDByIdentity := make(map[[2]uint16]models.ULID, len(stored))
	for _, c := range stored {
		channelIDByIdentity[[2]uint16{c.NetworkID, c.ServiceID}] = c.ID
	}

	events, err := r.source.EnumPgInfoEx(ctx, nil)
	if err != nil {
		return fmt.Errorf("scheduler: enumerating program events: %w", err)
	}

	programs := make([]*models.Program, 0, len(events))
	for _, ev := range events {
		channelID, ok := channelIDByIdentity[[2]uint16{ev.OriginalNetworkID, ev.ServiceID}]
		if !ok {
			continue
		}

		duration := time.Duration(ev.DurationSeconds) * time.Second
		if ev.HasUndeterminedDuration || duration <= 0 {
			duration = models.UndeterminedDuration
		}

		var detail models.DetailSections
		if ev.ExtendedText != "" {
			detail = models.DetailSections{{Heading: "概要", Body: ev.ExtendedText}}
		}

		programs = append(programs, &models.Program{
			NetworkID:   ev.OriginalNetworkID,
			ServiceID:   ev.ServiceID,
			EventID:     ev.EventID,
			ChannelID:   channelID,
			StartAt:     ev.StartTime,
			EndAt:       ev.StartTime.Add(duration),
			Duration:    duration.Seconds(),
			Title:       ev.Title,
			Description: ev.ShortDescription,
			Detail:      detail,
			IsFree:      true,
		})
	}

	if err := r.programRepo.UpsertBatch(ctx, programs); err != nil {
		return fmt.Errorf("scheduler: upserting programs: %w", err)
	}

	return nil
}
