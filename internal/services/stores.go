package services

import (
	"context"
	"time"

	"github.com/nextgendevs/ng-backend/internal/auth"
	"github.com/nextgendevs/ng-backend/internal/models"
)

// DeviceStore is the persistence the device service needs. Implementations
// return database.ErrNotFound and database.ErrDuplicate.
type DeviceStore interface {
	Create(ctx context.Context, d *models.Device) (*models.Device, error)
	GetByID(ctx context.Context, deviceID string) (*models.Device, error)
	ListIDs(ctx context.Context) ([]string, error)
	ListIDsByOwner(ctx context.Context, ownerID string) ([]string, error)
	NameTaken(ctx context.Context, ownerID, name, excludeDeviceID string) (bool, error)
	UpdateCredentials(ctx context.Context, deviceID string, update models.DeviceUpdate) (*models.Device, error)
	SaveMeasurement(ctx context.Context, deviceID string, m models.Measurement) error
	Locations(ctx context.Context) ([]models.DeviceLocation, error)
}

type UserStore interface {
	GetByID(ctx context.Context, userID string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, u *models.User) (*models.User, error)
	Update(ctx context.Context, userID string, update models.UserUpdate) (*models.User, error)
	Deactivate(ctx context.Context, userID string, at time.Time) error
	DeleteDeactivatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Cache holds short-lived signup state
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Sessions tracks session tokens revoked before their expiry
type Sessions interface {
	Revoke(ctx context.Context, c auth.Claims) error
	RevokeUser(ctx context.Context, userID string, at time.Time) error
	Revoked(ctx context.Context, c auth.Claims) (bool, error)
}

type Mailer interface {
	SendVerification(ctx context.Context, to, link string) error
}

type Publisher interface {
	Publish(ctx context.Context, event models.MeasurementEvent) error
}
