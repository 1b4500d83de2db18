package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nextgendevs/ng-backend/internal/respond"
)

const healthTimeout = 2 * time.Second

type apiInfo struct {
	Host        string `json:"host"`
	Environment string `json:"environment"`
	Build       string `json:"build"`
	Uptime      int64  `json:"uptime"`
}

type rootResponse struct {
	API   apiInfo `json:"api"`
	About struct {
		Description string `json:"description"`
	} `json:"about"`
	Resources []string `json:"resources"`
}

type healthResponse struct {
	Status   string `json:"status"`
	Postgres string `json:"postgres"`
	Redis    string `json:"redis"`
}

// SystemHandler serves the root info and health endpoints
type SystemHandler struct {
	environment string
	build       string
	started     time.Time
	db          *sql.DB
	redis       *redis.Client
}

func NewSystemHandler(environment, build string, db *sql.DB, rdb *redis.Client) *SystemHandler {
	return &SystemHandler{
		environment: environment,
		build:       build,
		started:     time.Now(),
		db:          db,
		redis:       rdb,
	}
}

func (h *SystemHandler) Root(w http.ResponseWriter, r *http.Request) {
	var resp rootResponse
	resp.API = apiInfo{
		Host:        r.Host,
		Environment: h.environment,
		Build:       h.build,
		Uptime:      int64(time.Since(h.started).Seconds()),
	}
	resp.About.Description = "This REST API authenticates users, manages water-quality devices and serves their measurements"
	resp.Resources = []string{"/auth", "/users", "/devices"}
	respond.JSON(w, http.StatusOK, resp)
}

// Health pings Postgres and Redis. Either one down makes the whole service unavailable.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := healthResponse{Status: "ok", Postgres: "ok", Redis: "ok"}
	status := http.StatusOK

	if err := h.db.PingContext(ctx); err != nil {
		resp.Postgres = "down"
	}
	if err := h.redis.Ping(ctx).Err(); err != nil {
		resp.Redis = "down"
	}
	if resp.Postgres != "ok" || resp.Redis != "ok" {
		resp.Status = "unavailable"
		status = http.StatusServiceUnavailable
	}

	respond.JSON(w, status, resp)
}
