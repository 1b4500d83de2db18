package services

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/nextgendevs/ng-backend/internal/apperr"
	"github.com/nextgendevs/ng-backend/internal/auth"
	"github.com/nextgendevs/ng-backend/internal/database"
	"github.com/nextgendevs/ng-backend/internal/metrics"
	"github.com/nextgendevs/ng-backend/internal/models"
	"github.com/nextgendevs/ng-backend/pkg/utils"
)

type AuthConfig struct {
	BaseURL    string
	SessionTTL time.Duration
	SignupTTL  time.Duration
}

// AuthService runs signup with email verification, activation and login
type AuthService struct {
	users    UserStore
	devices  DeviceStore
	cache    Cache
	sessions Sessions
	mailer   Mailer
	signer   *auth.Signer
	metrics  *metrics.Metrics
	logger   *slog.Logger
	cfg      AuthConfig
}

func NewAuthService(users UserStore, devices DeviceStore, cache Cache, sessions Sessions, mailer Mailer, signer *auth.Signer, m *metrics.Metrics, logger *slog.Logger, cfg AuthConfig) *AuthService {
	return &AuthService{
		users:    users,
		devices:  devices,
		cache:    cache,
		sessions: sessions,
		mailer:   mailer,
		signer:   signer,
		metrics:  m,
		logger:   logger,
		cfg:      cfg,
	}
}

// SessionTTL is how long issued session tokens stay valid
func (s *AuthService) SessionTTL() time.Duration {
	return s.cfg.SessionTTL
}

// Signup parks the account in the cache and mails a verification link. It
// returns a session token for the pending user id.
func (s *AuthService) Signup(ctx context.Context, name, email, password string) (string, error) {
	if err := validateName("name", name, utils.MaxUserNameLength); err != nil {
		return "", err
	}
	if err := validateEmail(email); err != nil {
		return "", err
	}
	if err := validatePassword("password", password); err != nil {
		return "", err
	}

	exists, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return "", apperr.Unexpected(apperr.MsgNoDatabaseConnection, err)
	}
	if exists {
		return "", apperr.Conflict("email", apperr.MsgEmailAlreadyExists)
	}

	// The marker doubles as a lock so two signups for one address cannot both proceed.
	claimed, err := s.cache.SetNX(ctx, VerifyEmailKey(email), true, s.cfg.SignupTTL)
	if err != nil {
		return "", apperr.Unexpected(apperr.MsgNoCacheConnection, err)
	}
	if !claimed {
		return "", apperr.Conflict("email", apperr.MsgEmailAlreadyExists)
	}

	token, err := s.startSignup(ctx, name, email, password)
	if err != nil {
		if derr := s.cache.Delete(ctx, VerifyEmailKey(email)); derr != nil {
			s.logger.Warn("failed to release signup marker", "error", derr)
		}
		return "", err
	}

	s.metrics.SignupsTotal.Inc()
	return token, nil
}

func (s *AuthService) startSignup(ctx context.Context, name, email, password string) (string, error) {
	userID, err := utils.NewID()
	if err != nil {
		return "", apperr.Unexpected(apperr.MsgSomethingWentWrong, err)
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return "", apperr.Unexpected(apperr.MsgSomethingWentWrong, err)
	}

	temp := models.TemporaryUser{UserID: userID, Name: name, Email: email, PasswordHash: hash}
	if err := s.cache.Set(ctx, TempUserKey(userID), temp, s.cfg.SignupTTL); err != nil {
		return "", apperr.Unexpected(apperr.MsgNoCacheConnection, err)
	}

	session, err := s.signer.Issue(auth.AudienceSession, userID, s.cfg.SessionTTL)
	if err != nil {
		return "", apperr.Unexpected(apperr.MsgSomethingWentWrong, err)
	}
	verification, err := s.signer.Issue(auth.AudienceVerifyEmail, userID, s.cfg.SignupTTL)
	if err != nil {
		return "", apperr.Unexpected(apperr.MsgSomethingWentWrong, err)
	}

	link := s.cfg.BaseURL + "/api/auth/activate?token=" + url.QueryEscape(verification)
	if err := s.mailer.SendVerification(ctx, email, link); err != nil {
		if derr := s.cache.Delete(ctx, TempUserKey(userID)); derr != nil {
			s.logger.Warn("failed to drop temporary user", "user_id", userID, "error", derr)
		}
		return "", apperr.Unexpected(apperr.MsgSomethingWentWrong, err)
	}

	s.logger.Info("signup pending verification", "user_id", userID)
	return session, nil
}

// Activate exchanges a verification token for a persisted, activated account.
// Each token works once.
func (s *AuthService) Activate(ctx context.Context, token string) error {
	if token == "" {
		return apperr.InvalidParameter("token", apperr.MsgIsRequired("token"))
	}

	userID, err := s.signer.Verify(token, auth.AudienceVerifyEmail)
	if errors.Is(err, auth.ErrTokenExpired) {
		return apperr.Unauthorized(apperr.MsgTokenExpired("register"))
	}
	if err != nil {
		return apperr.Unauthorized(apperr.MsgInvalidToken)
	}

	claimed, err := s.cache.SetNX(ctx, UsedTokenKey(token), true, s.cfg.SignupTTL)
	if err != nil {
		return apperr.Unexpected(apperr.MsgNoCacheConnection, err)
	}
	if !claimed {
		return apperr.Unauthorized(apperr.MsgInvalidToken)
	}

	var temp models.TemporaryUser
	found, err := s.cache.Get(ctx, TempUserKey(userID), &temp)
	if err != nil {
		s.releaseToken(ctx, token)
		return apperr.Unexpected(apperr.MsgNoCacheConnection, err)
	}
	if !found {
		return apperr.Unexpected(apperr.MsgNoCacheUser, nil)
	}

	_, err = s.users.Create(ctx, &models.User{
		UserID:    temp.UserID,
		Name:      temp.Name,
		Email:     temp.Email,
		Password:  temp.PasswordHash,
		Activated: true,
	})
	if err != nil {
		s.releaseToken(ctx, token)
		if errors.Is(err, database.ErrDuplicate) {
			return apperr.Conflict("email", apperr.MsgEmailAlreadyExists)
		}
		return apperr.Unexpected(apperr.MsgNoDatabaseConnection, err)
	}

	if err := s.cache.Delete(ctx, TempUserKey(userID), VerifyEmailKey(temp.Email)); err != nil {
		s.logger.Warn("failed to clear signup state", "user_id", userID, "error", err)
	}

	s.metrics.ActivationsTotal.Inc()
	s.logger.Info("account activated", "user_id", userID)
	return nil
}

func (s *AuthService) releaseToken(ctx context.Context, token string) {
	if err := s.cache.Delete(ctx, UsedTokenKey(token)); err != nil {
		s.logger.Warn("failed to release verification token", "error", err)
	}
}

// Login checks credentials and returns the user with owned device ids and a session token
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.UserWithDevices, string, error) {
	if err := validateEmail(email); err != nil {
		return nil, "", err
	}
	if password == "" {
		return nil, "", apperr.InvalidParameter("password", apperr.MsgIsRequired("password"))
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, database.ErrNotFound) {
		return nil, "", apperr.NotFound(apperr.MsgUserEmailNotFound(email))
	}
	if err != nil {
		return nil, "", apperr.Unexpected(apperr.MsgNoDatabaseConnection, err)
	}

	ok, err := utils.VerifyPassword(password, user.Password)
	if err != nil {
		return nil, "", apperr.Unexpected(apperr.MsgSomethingWentWrong, err)
	}
	if !ok {
		return nil, "", apperr.Unauthorized(apperr.MsgInvalidCredentials)
	}
	if user.Deactivated {
		return nil, "", apperr.Forbidden(apperr.MsgAccountDeactivated)
	}

	withDevices, err := withDeviceIDs(ctx, s.devices, user)
	if err != nil {
		return nil, "", err
	}

	session, err := s.signer.Issue(auth.AudienceSession, user.UserID, s.cfg.SessionTTL)
	if err != nil {
		return nil, "", apperr.Unexpected(apperr.MsgSomethingWentWrong, err)
	}

	s.logger.Info("user logged in", "user_id", user.UserID)
	return withDevices, session, nil
}

// ParseSession returns the user id carried by a live session token
func (s *AuthService) ParseSession(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", apperr.Unauthorized(apperr.MsgNotLoggedIn)
	}
	claims, err := s.signer.Parse(token, auth.AudienceSession)
	if errors.Is(err, auth.ErrTokenExpired) {
		return "", apperr.Unauthorized(apperr.MsgTokenExpired("login"))
	}
	if err != nil {
		return "", apperr.Unauthorized(apperr.MsgInvalidToken)
	}

	revoked, err := s.sessions.Revoked(ctx, claims)
	if err != nil {
		return "", apperr.Unexpected(apperr.MsgNoCacheConnection, err)
	}
	if revoked {
		return "", apperr.Unauthorized(apperr.MsgNotLoggedIn)
	}
	return claims.Subject, nil
}

// Logout revokes the session token. Missing, expired or invalid tokens have
// nothing left to revoke.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	claims, err := s.signer.Parse(token, auth.AudienceSession)
	if err != nil {
		return nil
	}
	if err := s.sessions.Revoke(ctx, claims); err != nil {
		return apperr.Unexpected(apperr.MsgNoCacheConnection, err)
	}
	s.logger.Info("user logged out", "user_id", claims.Subject)
	return nil
}

func withDeviceIDs(ctx context.Context, devices DeviceStore, user *models.User) (*models.UserWithDevices, error) {
	ids, err := devices.ListIDsByOwner(ctx, user.UserID)
	if err != nil {
		return nil, apperr.Unexpected(apperr.MsgNoDatabaseConnection, err)
	}
	return &models.UserWithDevices{User: *user, Devices: ids}, nil
}
