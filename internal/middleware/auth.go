package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nextgendevs/ng-backend/internal/apperr"
	"github.com/nextgendevs/ng-backend/internal/respond"
)

// SessionCookie carries the session token set at signup and login
const SessionCookie = "token"

type userIDKey struct{}

type SessionParser interface {
	ParseSession(ctx context.Context, token string) (string, error)
}

type UserAuthorizer interface {
	Authorize(ctx context.Context, sessionUserID, userID string) error
}

type DeviceAuthorizer interface {
	AuthorizeOwner(ctx context.Context, userID, deviceID string) error
	AuthenticateAccessKey(ctx context.Context, deviceID, accessKey string) error
}

// Guard holds the route-level access checks
type Guard struct {
	sessions SessionParser
	users    UserAuthorizer
	devices  DeviceAuthorizer
}

func NewGuard(sessions SessionParser, users UserAuthorizer, devices DeviceAuthorizer) *Guard {
	return &Guard{sessions: sessions, users: users, devices: devices}
}

// UserID returns the session user stored by RequireSession
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}

// SessionToken reads the session cookie, falling back to a Bearer token
func SessionToken(r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return bearer(r)
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func (g *Guard) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := g.sessions.ParseSession(r.Context(), SessionToken(r))
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey{}, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireUserAccess must run after RequireSession; it checks the {userId} path parameter.
func (g *Guard) RequireUserAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := g.users.Authorize(r.Context(), UserID(r.Context()), chi.URLParam(r, "userId")); err != nil {
			respond.Error(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireDeviceOwner must run after RequireSession; it checks the {deviceId} path parameter.
func (g *Guard) RequireDeviceOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := g.devices.AuthorizeOwner(r.Context(), UserID(r.Context()), chi.URLParam(r, "deviceId")); err != nil {
			respond.Error(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAccessKey authenticates a device by Bearer token or ?accessKey=
func (g *Guard) RequireAccessKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := bearer(r)
		if key == "" {
			key = r.URL.Query().Get("accessKey")
		}
		if err := g.devices.AuthenticateAccessKey(r.Context(), chi.URLParam(r, "deviceId"), key); err != nil {
			respond.Error(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RejectIfLoggedIn refuses signup and login while a valid session exists.
// Expired or garbage tokens count as logged out.
func (g *Guard) RejectIfLoggedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := SessionToken(r); token != "" {
			if _, err := g.sessions.ParseSession(r.Context(), token); err == nil {
				respond.Error(w, r, apperr.Forbidden(apperr.MsgAlreadyLoggedIn))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
