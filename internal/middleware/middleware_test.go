package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/nextgendevs/ng-backend/internal/apperr"
	"github.com/nextgendevs/ng-backend/internal/logging"
	"github.com/nextgendevs/ng-backend/internal/metrics"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func get(h http.Handler, path string, mods ...func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "203.0.113.5:4000"
	for _, m := range mods {
		m(req)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorType(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Type string `json:"type"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Type
}

func TestRateLimiter_BlocksAfterLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	m := metrics.New()
	h := NewRateLimiter(client, time.Minute, 2, false, m, logging.Discard()).Handler(ok)

	first := get(h, "/")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusOK, get(h, "/").Code)

	third := get(h, "/")
	assert.Equal(t, http.StatusTooManyRequests, third.Code)
	assert.Equal(t, "0", third.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "60", third.Header().Get("Retry-After"))
	assert.Equal(t, "TooManyRequests", errorType(t, third))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimitedTotal.WithLabelValues("window")))

	// Other clients have their own window
	other := get(h, "/", func(r *http.Request) { r.RemoteAddr = "198.51.100.1:1" })
	assert.Equal(t, http.StatusOK, other.Code)

	mr.FastForward(time.Minute + time.Second)
	assert.Equal(t, http.StatusOK, get(h, "/").Code)
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	h := NewRateLimiter(client, time.Minute, 1, false, nil, logging.Discard()).Handler(ok)
	mr.Close()

	assert.Equal(t, http.StatusOK, get(h, "/").Code)
	assert.Equal(t, http.StatusOK, get(h, "/").Code)
}

func TestIPLimiter_PathsAndBurst(t *testing.T) {
	m := metrics.New()
	l := NewIPLimiter("login", rate.Every(time.Hour), 1, false, m, "slow down", "/api/auth/login")
	h := l.Handler(ok)

	assert.Equal(t, http.StatusOK, get(h, "/api/auth/login").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(h, "/api/auth/login").Code)
	assert.Equal(t, http.StatusOK, get(h, "/api/devices").Code, "other paths are not limited")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimitedTotal.WithLabelValues("login")))

	l.Sweep(-time.Second)
	assert.Equal(t, http.StatusOK, get(h, "/api/auth/login").Code, "sweep resets idle buckets")
}

func TestHostCheck(t *testing.T) {
	h := HostCheck("api.example.com")(ok)

	assert.Equal(t, http.StatusOK, get(h, "/", func(r *http.Request) { r.Host = "API.example.com:443" }).Code)
	assert.Equal(t, http.StatusForbidden, get(h, "/", func(r *http.Request) { r.Host = "evil.example.com" }).Code)
	assert.Equal(t, http.StatusOK, get(HostCheck("")(ok), "/").Code)
}

func TestSecurityHeaders(t *testing.T) {
	rec := get(SecurityHeaders(ok), "/")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://app.example.com"})(ok)

	req := httptest.NewRequest(http.MethodOptions, "/api/devices", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "PATCH")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	rec = get(h, "/", func(r *http.Request) { r.Header.Set("Origin", "https://evil.example.com") })
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf, "info", "json")

	var seenID string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = logging.RequestID(r.Context())
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("hi"))
	})
	h := chimw.RequestID(RequestLogger(logger)(inner))

	get(h, "/api/devices")

	assert.NotEmpty(t, seenID)
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "http request", line["msg"])
	assert.Equal(t, float64(http.StatusCreated), line["status"])
	assert.Equal(t, float64(2), line["bytes"])
	assert.Equal(t, seenID, line["request_id"])
}

type fakeSessions map[string]string

func (f fakeSessions) ParseSession(_ context.Context, token string) (string, error) {
	if id, ok := f[token]; ok {
		return id, nil
	}
	if token == "" {
		return "", apperr.Unauthorized(apperr.MsgNotLoggedIn)
	}
	return "", apperr.Unauthorized(apperr.MsgInvalidToken)
}

type fakeAccess struct {
	owners map[string]string // device -> owner
	keys   map[string]string // device -> key
}

func (f fakeAccess) Authorize(_ context.Context, sessionUserID, userID string) error {
	if sessionUserID != userID {
		return apperr.Forbidden(apperr.MsgNoPermissionToUser)
	}
	return nil
}

func (f fakeAccess) AuthorizeOwner(_ context.Context, userID, deviceID string) error {
	owner, ok := f.owners[deviceID]
	if !ok {
		return apperr.NotFound(apperr.MsgDeviceNotFound(deviceID))
	}
	if owner != userID {
		return apperr.Forbidden(apperr.MsgNoPermissionToDevice)
	}
	return nil
}

func (f fakeAccess) AuthenticateAccessKey(_ context.Context, deviceID, key string) error {
	if key == "" {
		return apperr.Unauthorized(apperr.MsgMissingAccessKey)
	}
	if f.keys[deviceID] != key {
		return apperr.Unauthorized(apperr.MsgInvalidAccessKey)
	}
	return nil
}

func guardRouter() http.Handler {
	access := fakeAccess{
		owners: map[string]string{"dev00001": "usr00001"},
		keys:   map[string]string{"dev00001": "device-key"},
	}
	g := NewGuard(fakeSessions{"alice-session": "usr00001", "bob-session": "usr00002"}, access, access)

	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(UserID(r.Context())))
	})

	r := chi.NewRouter()
	r.With(g.RejectIfLoggedIn).Post("/login", echo)
	r.Group(func(r chi.Router) {
		r.Use(g.RequireSession)
		r.With(g.RequireUserAccess).Get("/users/{userId}", echo)
		r.With(g.RequireDeviceOwner).Get("/devices/{deviceId}", echo)
	})
	r.With(g.RequireAccessKey).Post("/devices/{deviceId}/measurements", echo)
	return r
}

func request(method, path string, mods ...func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for _, m := range mods {
		m(req)
	}
	rec := httptest.NewRecorder()
	guardRouter().ServeHTTP(rec, req)
	return rec
}

func cookie(token string) func(*http.Request) {
	return func(r *http.Request) { r.AddCookie(&http.Cookie{Name: SessionCookie, Value: token}) }
}

func bearerAuth(token string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func TestGuard_Session(t *testing.T) {
	rec := request(http.MethodGet, "/users/usr00001")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = request(http.MethodGet, "/users/usr00001", cookie("alice-session"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "usr00001", rec.Body.String())

	rec = request(http.MethodGet, "/users/usr00001", bearerAuth("alice-session"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = request(http.MethodGet, "/users/usr00001", cookie("bob-session"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGuard_DeviceOwner(t *testing.T) {
	assert.Equal(t, http.StatusOK, request(http.MethodGet, "/devices/dev00001", cookie("alice-session")).Code)
	assert.Equal(t, http.StatusForbidden, request(http.MethodGet, "/devices/dev00001", cookie("bob-session")).Code)
	assert.Equal(t, http.StatusNotFound, request(http.MethodGet, "/devices/dev00009", cookie("alice-session")).Code)
}

func TestGuard_AccessKey(t *testing.T) {
	path := "/devices/dev00001/measurements"

	assert.Equal(t, http.StatusUnauthorized, request(http.MethodPost, path).Code)
	assert.Equal(t, http.StatusOK, request(http.MethodPost, path, bearerAuth("device-key")).Code)
	assert.Equal(t, http.StatusOK, request(http.MethodPost, path+"?accessKey=device-key").Code)
	assert.Equal(t, http.StatusUnauthorized, request(http.MethodPost, path+"?accessKey=wrong").Code)
}

func TestGuard_RejectIfLoggedIn(t *testing.T) {
	rec := request(http.MethodPost, "/login", cookie("alice-session"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Forbidden", errorType(t, rec))

	assert.Equal(t, http.StatusOK, request(http.MethodPost, "/login").Code)
	assert.Equal(t, http.StatusOK, request(http.MethodPost, "/login", cookie("expired")).Code)
}
