package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nextgendevs/ng-backend/internal/apperr"
	"github.com/nextgendevs/ng-backend/internal/auth"
	"github.com/nextgendevs/ng-backend/internal/database"
	"github.com/nextgendevs/ng-backend/internal/metrics"
	"github.com/nextgendevs/ng-backend/internal/models"
	"github.com/nextgendevs/ng-backend/pkg/utils"
)

type DeviceService struct {
	devices DeviceStore
	cipher  *utils.Cipher
	signer  *auth.Signer
	feed    Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewDeviceService wires the device operations. feed may be nil.
func NewDeviceService(devices DeviceStore, cipher *utils.Cipher, signer *auth.Signer, feed Publisher, m *metrics.Metrics, logger *slog.Logger) *DeviceService {
	return &DeviceService{
		devices: devices,
		cipher:  cipher,
		signer:  signer,
		feed:    feed,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *DeviceService) get(ctx context.Context, deviceID string) (*models.Device, error) {
	if err := validateID("deviceId", deviceID); err != nil {
		return nil, err
	}
	d, err := s.devices.GetByID(ctx, deviceID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperr.NotFound(apperr.MsgDeviceNotFound(deviceID))
	}
	if err != nil {
		return nil, apperr.Unexpected(apperr.MsgNoDatabaseConnection, err)
	}
	return d, nil
}

// AuthorizeOwner fails unless userID owns deviceID
func (s *DeviceService) AuthorizeOwner(ctx context.Context, userID, deviceID string) error {
	d, err := s.get(ctx, deviceID)
	if err != nil {
		return err
	}
	if d.OwnerID != userID {
		return apperr.Forbidden(apperr.MsgNoPermissionToDevice)
	}
	return nil
}

// AuthenticateAccessKey verifies a device access credential for deviceID.
// The key must be a valid device token for that id and equal the stored key.
func (s *DeviceService) AuthenticateAccessKey(ctx context.Context, deviceID, accessKey string) error {
	if accessKey == "" {
		return apperr.Unauthorized(apperr.MsgMissingAccessKey)
	}

	subject, err := s.signer.Verify(accessKey, auth.AudienceDevice)
	if err != nil {
		return apperr.Unauthorized(apperr.MsgInvalidAccessKey)
	}
	if subject != deviceID {
		return apperr.Forbidden(apperr.MsgNoPermissionToDevice)
	}

	d, err := s.get(ctx, deviceID)
	if err != nil {
		return err
	}

	stored, err := s.cipher.Decrypt(d.AccessKey)
	if err != nil {
		return apperr.Unexpected(apperr.MsgSomethingWentWrong, fmt.Errorf("decrypt access key of %s: %w", deviceID, err))
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(accessKey)) != 1 {
		return apperr.Unauthorized(apperr.MsgInvalidAccessKey)
	}
	return nil
}

// ValidateUpdate checks a proposed credential update against the current device.
// The first failing rule wins.
func (s *DeviceService) ValidateUpdate(ctx context.Context, existing *models.Device, proposed models.DeviceUpdate) error {
	if proposed.Name == nil && proposed.Emoji == nil {
		return apperr.InvalidParameter("update", apperr.MsgMinimumOptionRequired)
	}
	if proposed.Name != nil && *proposed.Name == existing.Name {
		return apperr.InvalidParameter("name", apperr.MsgDifferentValues)
	}
	if proposed.Emoji != nil && *proposed.Emoji == existing.Emoji {
		return apperr.InvalidParameter("emoji", apperr.MsgDifferentValues)
	}
	if proposed.Name != nil {
		taken, err := s.devices.NameTaken(ctx, existing.OwnerID, *proposed.Name, existing.DeviceID)
		if err != nil {
			return apperr.Unexpected(apperr.MsgNoDatabaseConnection, err)
		}
		if taken {
			return apperr.Conflict("name", apperr.MsgDuplicateDeviceName)
		}
	}
	return nil
}

// UpdateCredentials applies a name/emoji update and returns the before and after views
func (s *DeviceService) UpdateCredentials(ctx context.Context, deviceID string, update models.DeviceUpdate) (models.DeviceCredentials, models.DeviceCredentials, error) {
	var none models.DeviceCredentials

	if err := ValidateDeviceUpdateBody(update); err != nil {
		return none, none, err
	}
	existing, err := s.get(ctx, deviceID)
	if err != nil {
		return none, none, err
	}
	if err := s.ValidateUpdate(ctx, existing, update); err != nil {
		return none, none, err
	}

	updated, err := s.devices.UpdateCredentials(ctx, deviceID, update)
	switch {
	case errors.Is(err, database.ErrDuplicate):
		return none, none, apperr.Conflict("name", apperr.MsgDuplicateDeviceName)
	case errors.Is(err, database.ErrNotFound):
		return none, none, apperr.NotFound(apperr.MsgDeviceNotFound(deviceID))
	case err != nil:
		return none, none, apperr.Unexpected(apperr.MsgNoDatabaseConnection, err)
	}

	s.logger.Info("device credentials updated", "device_id", deviceID)
	return existing.Credentials(), updated.Credentials(), nil
}

// Ingest validates a measurement from an authenticated device, classifies it
// and stores it together with the risk.
func (s *DeviceService) Ingest(ctx context.Context, deviceID string, payload models.MeasurementPayload) error {
	m, err := ValidateMeasurement(payload)
	if err != nil {
		s.metrics.IngestRejectedTotal.WithLabelValues(string(apperr.KindOf(err))).Inc()
		return err
	}

	m.Risk = Classify(m.TDS, m.WaterTemperature, m.Turbidity, m.PH)
	m.RecordedAt = s.now().UTC()

	err = s.devices.SaveMeasurement(ctx, deviceID, m)
	if errors.Is(err, database.ErrNotFound) {
		s.metrics.IngestRejectedTotal.WithLabelValues(string(apperr.KindNotFound)).Inc()
		return apperr.NotFound(apperr.MsgDeviceNotFound(deviceID))
	}
	if err != nil {
		return apperr.Unexpected(apperr.MsgNoDatabaseConnection, err)
	}

	s.metrics.MeasurementsTotal.WithLabelValues(string(m.Risk)).Inc()
	s.logger.Info("device measurements updated", "device_id", deviceID, "risk", m.Risk)

	if s.feed != nil {
		event := models.MeasurementEvent{
			DeviceID:         deviceID,
			TDS:              m.TDS,
			PH:               m.PH,
			Turbidity:        m.Turbidity,
			WaterTemperature: m.WaterTemperature,
			BatteryLevel:     m.BatteryLevel,
			Coordinates:      m.Coordinates,
			Risk:             m.Risk,
			UpdatedAt:        m.RecordedAt,
		}
		if err := s.feed.Publish(ctx, event); err != nil {
			s.logger.Warn("live feed publish failed", "device_id", deviceID, "error", err)
		}
	}
	return nil
}

func (s *DeviceService) Credentials(ctx context.Context, deviceID string) (models.DeviceCredentials, error) {
	d, err := s.get(ctx, deviceID)
	if err != nil {
		return models.DeviceCredentials{}, err
	}
	return d.Credentials(), nil
}

func (s *DeviceService) Measurements(ctx context.Context, deviceID string) (models.DeviceMeasurements, error) {
	d, err := s.get(ctx, deviceID)
	if err != nil {
		return models.DeviceMeasurements{}, err
	}
	return d.Measurements(), nil
}

func (s *DeviceService) List(ctx context.Context) ([]models.DeviceSummary, error) {
	ids, err := s.devices.ListIDs(ctx)
	if err != nil {
		return nil, apperr.Unexpected(apperr.MsgNoDatabaseConnection, err)
	}
	out := make([]models.DeviceSummary, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.DeviceSummary{DeviceID: id})
	}
	return out, nil
}

// NearestLocation resolves the named device location closest to query
func (s *DeviceService) NearestLocation(ctx context.Context, query models.Coordinates) (*models.Location, error) {
	if !ValidCoordinates(query) {
		return nil, apperr.InvalidParameter("coordinates", apperr.MsgInvalidType("coordinates", "lat/long"))
	}
	candidates, err := s.devices.Locations(ctx)
	if err != nil {
		return nil, apperr.Unexpected(apperr.MsgNoDatabaseConnection, err)
	}
	loc, ok := Nearest(query, candidates)
	if !ok {
		return nil, apperr.NotFound(apperr.MsgNoLocationFound)
	}
	return loc, nil
}

// Provision registers a new device for ownerID and returns it with the
// plaintext access key. The key is only ever shown here.
func (s *DeviceService) Provision(ctx context.Context, ownerID, name, emoji string, location *string) (*models.Device, string, error) {
	if err := validateID("ownerId", ownerID); err != nil {
		return nil, "", err
	}
	if err := ValidateDeviceUpdateBody(models.DeviceUpdate{Name: &name, Emoji: &emoji}); err != nil {
		return nil, "", err
	}
	taken, err := s.devices.NameTaken(ctx, ownerID, name, "")
	if err != nil {
		return nil, "", apperr.Unexpected(apperr.MsgNoDatabaseConnection, err)
	}
	if taken {
		return nil, "", apperr.Conflict("name", apperr.MsgDuplicateDeviceName)
	}

	deviceID, err := utils.NewID()
	if err != nil {
		return nil, "", apperr.Unexpected(apperr.MsgSomethingWentWrong, err)
	}
	accessKey, err := s.signer.Issue(auth.AudienceDevice, deviceID, 0)
	if err != nil {
		return nil, "", apperr.Unexpected(apperr.MsgSomethingWentWrong, err)
	}
	encrypted, err := s.cipher.Encrypt(accessKey)
	if err != nil {
		return nil, "", apperr.Unexpected(apperr.MsgSomethingWentWrong, err)
	}

	created, err := s.devices.Create(ctx, &models.Device{
		DeviceID:  deviceID,
		OwnerID:   ownerID,
		Name:      name,
		Emoji:     emoji,
		Location:  location,
		AccessKey: encrypted,
	})
	if errors.Is(err, database.ErrDuplicate) {
		return nil, "", apperr.Conflict("name", apperr.MsgDuplicateDeviceName)
	}
	if err != nil {
		return nil, "", apperr.Unexpected(apperr.MsgNoDatabaseConnection, err)
	}

	s.logger.Info("device provisioned", "device_id", deviceID, "owner_id", ownerID)
	return created, accessKey, nil
}
