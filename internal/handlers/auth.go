package handlers

import (
	"net/http"
	"time"

	"github.com/nextgendevs/ng-backend/internal/middleware"
	"github.com/nextgendevs/ng-backend/internal/respond"
	"github.com/nextgendevs/ng-backend/internal/services"
)

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthHandler struct {
	auth         *services.AuthService
	secureCookie bool
}

// NewAuthHandler builds the auth endpoints. secureCookie marks the session
// cookie Secure, which browsers only send over HTTPS.
func NewAuthHandler(auth *services.AuthService, secureCookie bool) *AuthHandler {
	return &AuthHandler{auth: auth, secureCookie: secureCookie}
}

func (h *AuthHandler) setSession(w http.ResponseWriter, token string) {
	ttl := h.auth.SessionTTL()
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// Signup handles POST /api/auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	token, err := h.auth.Signup(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	h.setSession(w, token)
	respond.Message(w, http.StatusOK, "Check your inbox for a verification email")
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	user, token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	h.setSession(w, token)
	respond.JSON(w, http.StatusOK, user)
}

// Activate handles GET /api/auth/activate?token=
func (h *AuthHandler) Activate(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Activate(r.Context(), r.URL.Query().Get("token")); err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.Message(w, http.StatusCreated, "User created successfully")
}

// Logout revokes the current session, if any, and clears the cookie
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), middleware.SessionToken(r)); err != nil {
		respond.Error(w, r, err)
		return
	}
	h.clearSession(w)
	respond.Message(w, http.StatusOK, "You have been logged out")
}
