package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextgendevs/ng-backend/internal/logging"
	"github.com/nextgendevs/ng-backend/internal/models"
)

func TestRedisFeed_PublishSubscribe(t *testing.T) {
	_, client := newMiniredis(t)
	feed := NewRedisFeed(client, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := feed.Subscribe(ctx, "dev00001")
	require.NoError(t, err)

	sent := models.MeasurementEvent{DeviceID: "dev00001", BatteryLevel: 80, Risk: models.RiskLow, UpdatedAt: time.Now().UTC().Truncate(time.Second)}
	require.NoError(t, feed.Publish(ctx, models.MeasurementEvent{DeviceID: "other001", Risk: models.RiskHigh}))
	require.NoError(t, feed.Publish(ctx, sent))

	select {
	case got := <-events:
		assert.Equal(t, sent, got)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}

	cancel()
	assert.Eventually(t, func() bool {
		_, open := <-events
		return !open
	}, 2*time.Second, 10*time.Millisecond)
}
