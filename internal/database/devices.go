package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nextgendevs/ng-backend/internal/models"
)

const deviceColumns = `device_id, owner_id, name, emoji, location, access_key, created_at,
	tds, ph, turbidity, water_temperature, battery_level, lat, long, risk, updated_at`

// DeviceRepository stores devices and their last known measurement in Postgres
type DeviceRepository struct {
	db *sql.DB
}

func NewDeviceRepository(db *sql.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

func scanDevice(row interface{ Scan(...any) error }) (*models.Device, error) {
	var (
		d                                        models.Device
		location, risk                           sql.NullString
		tds, ph, turbidity, temperature, battery sql.NullFloat64
		lat, long                                sql.NullFloat64
		updatedAt                                sql.NullTime
	)
	err := row.Scan(&d.DeviceID, &d.OwnerID, &d.Name, &d.Emoji, &location, &d.AccessKey, &d.CreatedAt,
		&tds, &ph, &turbidity, &temperature, &battery, &lat, &long, &risk, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	d.Location = stringPtr(location)
	d.TDS = floatPtr(tds)
	d.PH = floatPtr(ph)
	d.Turbidity = floatPtr(turbidity)
	d.WaterTemperature = floatPtr(temperature)
	d.BatteryLevel = floatPtr(battery)
	if lat.Valid && long.Valid {
		d.Coordinates = &models.Coordinates{Lat: lat.Float64, Long: long.Float64}
	}
	if risk.Valid {
		level := models.RiskLevel(risk.String)
		d.Risk = &level
	}
	d.UpdatedAt = timePtr(updatedAt)
	return &d, nil
}

// Create inserts a freshly provisioned device. AccessKey must already be encrypted.
func (r *DeviceRepository) Create(ctx context.Context, d *models.Device) (*models.Device, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO devices (device_id, owner_id, name, emoji, location, access_key)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+deviceColumns,
		d.DeviceID, d.OwnerID, d.Name, d.Emoji, d.Location, d.AccessKey)
	created, err := scanDevice(row)
	if err != nil && isUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	return created, err
}

func (r *DeviceRepository) GetByID(ctx context.Context, deviceID string) (*models.Device, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+deviceColumns+` FROM devices WHERE device_id = $1`, deviceID)
	return scanDevice(row)
}

func (r *DeviceRepository) ListIDs(ctx context.Context) ([]string, error) {
	return r.ids(ctx, `SELECT device_id FROM devices ORDER BY created_at, device_id`)
}

func (r *DeviceRepository) ListIDsByOwner(ctx context.Context, ownerID string) ([]string, error) {
	return r.ids(ctx, `SELECT device_id FROM devices WHERE owner_id = $1 ORDER BY created_at, device_id`, ownerID)
}

func (r *DeviceRepository) ids(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return ids, nil
}

// NameTaken reports whether another device of ownerID already uses name
func (r *DeviceRepository) NameTaken(ctx context.Context, ownerID, name, excludeDeviceID string) (bool, error) {
	var taken bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM devices WHERE owner_id = $1 AND name = $2 AND device_id <> $3)`,
		ownerID, name, excludeDeviceID).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return taken, nil
}

// UpdateCredentials applies a partial name/emoji update. A concurrent rename to
// the same name trips the (owner_id, name) constraint and yields ErrDuplicate.
func (r *DeviceRepository) UpdateCredentials(ctx context.Context, deviceID string, update models.DeviceUpdate) (*models.Device, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE devices SET
			name = COALESCE($2, name),
			emoji = COALESCE($3, emoji)
		WHERE device_id = $1
		RETURNING `+deviceColumns,
		deviceID, update.Name, update.Emoji)
	updated, err := scanDevice(row)
	if err != nil && isUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	return updated, err
}

// SaveMeasurement writes a measurement, its risk and timestamp in one statement.
// Optional readings missing from m keep their stored value.
func (r *DeviceRepository) SaveMeasurement(ctx context.Context, deviceID string, m models.Measurement) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE devices SET
			tds = COALESCE($2, tds),
			ph = COALESCE($3, ph),
			turbidity = COALESCE($4, turbidity),
			water_temperature = COALESCE($5, water_temperature),
			battery_level = $6,
			lat = $7,
			long = $8,
			risk = $9,
			updated_at = $10
		WHERE device_id = $1`,
		deviceID, nullFloat(m.TDS), nullFloat(m.PH), nullFloat(m.Turbidity), nullFloat(m.WaterTemperature),
		m.BatteryLevel, m.Coordinates.Lat, m.Coordinates.Long, string(m.Risk), m.RecordedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Locations returns every device's location name and coordinates, unfiltered
func (r *DeviceRepository) Locations(ctx context.Context) ([]models.DeviceLocation, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT COALESCE(location, ''), lat, long FROM devices`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.DeviceLocation
	for rows.Next() {
		var loc models.DeviceLocation
		var lat, long sql.NullFloat64
		if err := rows.Scan(&loc.Name, &lat, &long); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if lat.Valid && long.Valid {
			loc.Coordinates = &models.Coordinates{Lat: lat.Float64, Long: long.Float64}
		}
		out = append(out, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
