package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/nextgendevs/ng-backend/internal/models"
)

func feedChannel(deviceID string) string { return "feeds/device:" + deviceID }

// RedisFeed fans stored measurements out to live subscribers over Redis pub/sub,
// so every server instance sees every device's updates.
type RedisFeed struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisFeed(client *redis.Client, logger *slog.Logger) *RedisFeed {
	return &RedisFeed{client: client, logger: logger}
}

func (f *RedisFeed) Publish(ctx context.Context, event models.MeasurementEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := f.client.Publish(ctx, feedChannel(event.DeviceID), data).Err(); err != nil {
		return fmt.Errorf("publish measurement: %w", err)
	}
	return nil
}

// Subscribe streams events for deviceID until ctx is cancelled. The returned
// channel is closed when the subscription ends.
func (f *RedisFeed) Subscribe(ctx context.Context, deviceID string) (<-chan models.MeasurementEvent, error) {
	sub := f.client.Subscribe(ctx, feedChannel(deviceID))
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", deviceID, err)
	}

	out := make(chan models.MeasurementEvent, 16)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var event models.MeasurementEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					f.logger.Warn("dropping malformed feed message", "device_id", deviceID, "error", err)
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
