package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/nextgendevs/ng-backend/internal/apperr"
	"github.com/nextgendevs/ng-backend/internal/metrics"
	"github.com/nextgendevs/ng-backend/internal/models"
	"github.com/nextgendevs/ng-backend/internal/respond"
)

const (
	liveWriteWait  = 10 * time.Second
	livePongWait   = 90 * time.Second
	livePingPeriod = livePongWait * 9 / 10
)

type Subscriber interface {
	Subscribe(ctx context.Context, deviceID string) (<-chan models.MeasurementEvent, error)
}

// LiveHandler streams a device's stored measurements to its owner over a WebSocket
type LiveHandler struct {
	feed     Subscriber
	upgrader websocket.Upgrader
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewLiveHandler(feed Subscriber, allowedOrigins []string, m *metrics.Metrics, logger *slog.Logger) *LiveHandler {
	return &LiveHandler{
		feed: feed,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				for _, allowed := range allowedOrigins {
					if strings.EqualFold(origin, allowed) {
						return true
					}
				}
				return false
			},
		},
		metrics: m,
		logger:  logger,
	}
}

// Stream handles GET /api/devices/{deviceId}/live. The client only listens;
// anything it sends is discarded.
func (h *LiveHandler) Stream(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceId")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events, err := h.feed.Subscribe(ctx, deviceID)
	if err != nil {
		respond.Error(w, r, apperr.Unexpected(apperr.MsgNoCacheConnection, err))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error
		return
	}
	defer conn.Close()

	h.metrics.LiveSubscribers.Inc()
	defer h.metrics.LiveSubscribers.Dec()
	h.logger.Info("live feed opened", "device_id", deviceID)

	go func() {
		defer cancel()
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(livePongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(livePongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(livePingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("live feed closed", "device_id", deviceID)
			return
		case event, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(liveWriteWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(liveWriteWait)); err != nil {
				return
			}
		}
	}
}
