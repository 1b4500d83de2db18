package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nextgendevs/ng-backend/internal/apperr"
	"github.com/nextgendevs/ng-backend/internal/database"
	"github.com/nextgendevs/ng-backend/internal/models"
	"github.com/nextgendevs/ng-backend/pkg/utils"
)

type UserService struct {
	users    UserStore
	devices  DeviceStore
	cache    Cache
	sessions Sessions
	logger   *slog.Logger
	now      func() time.Time
}

func NewUserService(users UserStore, devices DeviceStore, cache Cache, sessions Sessions, logger *slog.Logger) *UserService {
	return &UserService{users: users, devices: devices, cache: cache, sessions: sessions, logger: logger, now: time.Now}
}

func (s *UserService) get(ctx context.Context, userID string) (*models.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperr.NotFound(apperr.MsgUserNotFound(userID))
	}
	if err != nil {
		return nil, apperr.Unexpected(apperr.MsgNoDatabaseConnection, err)
	}
	return u, nil
}

// Authorize allows a session to act on userID only if it is that user and the
// account is activated and not deactivated.
func (s *UserService) Authorize(ctx context.Context, sessionUserID, userID string) error {
	if err := validateID("userId", userID); err != nil {
		return err
	}
	if sessionUserID != userID {
		return apperr.Forbidden(apperr.MsgNoPermissionToUser)
	}
	u, err := s.get(ctx, userID)
	if err != nil {
		return err
	}
	if !u.Activated {
		return apperr.Unauthorized(apperr.MsgAccountNotActivated)
	}
	if u.Deactivated {
		return apperr.Forbidden(apperr.MsgAccountDeactivated)
	}
	return nil
}

func (s *UserService) Credentials(ctx context.Context, userID string) (*models.UserWithDevices, error) {
	u, err := s.get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return withDeviceIDs(ctx, s.devices, u)
}

// UpdateCredentials changes name, email and/or password after checking the
// current password. New values must differ from the old ones.
func (s *UserService) UpdateCredentials(ctx context.Context, userID string, update models.UserUpdate, currentPassword string) (*models.User, *models.User, error) {
	if err := ValidateUserUpdateBody(update); err != nil {
		return nil, nil, err
	}
	if currentPassword == "" {
		return nil, nil, apperr.InvalidParameter("password", apperr.MsgIsRequired("password"))
	}

	old, err := s.get(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	if update.Name != nil && *update.Name == old.Name {
		return nil, nil, apperr.InvalidParameter("name", apperr.MsgDifferentValues)
	}
	if update.Email != nil && *update.Email == old.Email {
		return nil, nil, apperr.InvalidParameter("email", apperr.MsgDifferentValues)
	}
	if update.Password != nil {
		same, err := utils.VerifyPassword(*update.Password, old.Password)
		if err != nil {
			return nil, nil, apperr.Unexpected(apperr.MsgSomethingWentWrong, err)
		}
		if same {
			return nil, nil, apperr.InvalidParameter("password", apperr.MsgDifferentValues)
		}
	}

	if update.Email != nil {
		if err := s.emailAvailable(ctx, *update.Email); err != nil {
			return nil, nil, err
		}
	}

	ok, err := utils.VerifyPassword(currentPassword, old.Password)
	if err != nil {
		return nil, nil, apperr.Unexpected(apperr.MsgSomethingWentWrong, err)
	}
	if !ok {
		return nil, nil, apperr.Unauthorized(apperr.MsgInvalidCredentials)
	}

	if update.Password != nil {
		hash, err := utils.HashPassword(*update.Password)
		if err != nil {
			return nil, nil, apperr.Unexpected(apperr.MsgSomethingWentWrong, err)
		}
		update.Password = &hash
	}

	updated, err := s.users.Update(ctx, userID, update)
	switch {
	case errors.Is(err, database.ErrDuplicate):
		return nil, nil, apperr.Conflict("email", apperr.MsgEmailAlreadyExists)
	case errors.Is(err, database.ErrNotFound):
		return nil, nil, apperr.NotFound(apperr.MsgUserNotFound(userID))
	case err != nil:
		return nil, nil, apperr.Unexpected(apperr.MsgNoDatabaseConnection, err)
	}

	s.logger.Info("user credentials updated", "user_id", userID)
	return old, updated, nil
}

func (s *UserService) emailAvailable(ctx context.Context, email string) error {
	exists, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return apperr.Unexpected(apperr.MsgNoDatabaseConnection, err)
	}
	if !exists {
		exists, err = s.cache.Exists(ctx, VerifyEmailKey(email))
		if err != nil {
			return apperr.Unexpected(apperr.MsgNoCacheConnection, err)
		}
	}
	if exists {
		return apperr.Conflict("email", apperr.MsgEmailAlreadyExists)
	}
	return nil
}

// Deactivate soft-deletes the account. It is removed for good by the purge job
// once the retention window has passed.
func (s *UserService) Deactivate(ctx context.Context, userID, password string) error {
	if password == "" {
		return apperr.InvalidParameter("password", apperr.MsgIsRequired("password"))
	}
	u, err := s.get(ctx, userID)
	if err != nil {
		return err
	}
	ok, err := utils.VerifyPassword(password, u.Password)
	if err != nil {
		return apperr.Unexpected(apperr.MsgSomethingWentWrong, err)
	}
	if !ok {
		return apperr.Unauthorized(apperr.MsgInvalidCredentials)
	}

	at := s.now().UTC()
	if err := s.users.Deactivate(ctx, userID, at); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return apperr.NotFound(apperr.MsgUserNotFound(userID))
		}
		return apperr.Unexpected(apperr.MsgNoDatabaseConnection, err)
	}
	if err := s.sessions.RevokeUser(ctx, userID, at); err != nil {
		s.logger.Warn("failed to revoke sessions", "user_id", userID, "error", err)
	}

	s.logger.Info("user deactivated", "user_id", userID)
	return nil
}
