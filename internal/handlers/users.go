package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nextgendevs/ng-backend/internal/models"
	"github.com/nextgendevs/ng-backend/internal/respond"
	"github.com/nextgendevs/ng-backend/internal/services"
)

type patchUserRequest struct {
	Update   models.UserUpdate `json:"update"`
	Password string            `json:"password"`
}

type updatedUser struct {
	OldUser *models.User `json:"oldUser"`
	NewUser *models.User `json:"newUser"`
}

type deactivateRequest struct {
	Password string `json:"password"`
}

type UserHandler struct {
	users *services.UserService
	auth  *AuthHandler
}

// NewUserHandler needs the auth handler to drop the session cookie on deactivation
func NewUserHandler(users *services.UserService, auth *AuthHandler) *UserHandler {
	return &UserHandler{users: users, auth: auth}
}

func (h *UserHandler) GetCredentials(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Credentials(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, user)
}

func (h *UserHandler) PatchCredentials(w http.ResponseWriter, r *http.Request) {
	var req patchUserRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	oldUser, newUser, err := h.users.UpdateCredentials(r.Context(), chi.URLParam(r, "userId"), req.Update, req.Password)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, updatedUser{OldUser: oldUser, NewUser: newUser})
}

// Deactivate handles DELETE /api/users/{userId}. The account is kept until the
// purge job removes it.
func (h *UserHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	var req deactivateRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	if err := h.users.Deactivate(r.Context(), chi.URLParam(r, "userId"), req.Password); err != nil {
		respond.Error(w, r, err)
		return
	}

	h.auth.clearSession(w)
	respond.Message(w, http.StatusOK, "Your account has been deactivated")
}
