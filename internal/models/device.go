package models

import "time"

// RiskLevel classifies water safety from the latest sensor readings
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskModerate RiskLevel = "MODERATE"
	RiskHigh     RiskLevel = "HIGH"
	RiskUnknown  RiskLevel = "UNKNOWN"
)

// Coordinates is a WGS84 lat/long pair
type Coordinates struct {
	Lat  float64 `json:"lat"`
	Long float64 `json:"long"`
}

type Device struct {
	DeviceID  string    `json:"deviceId"`
	OwnerID   string    `json:"ownerId"`
	Name      string    `json:"name"`
	Emoji     string    `json:"emoji"`
	Location  *string   `json:"location"`
	AccessKey string    `json:"-"` // Never returned to clients
	CreatedAt time.Time `json:"createdAt"`

	// Last known measurement values
	TDS              *float64     `json:"tds"`
	PH               *float64     `json:"ph"`
	Turbidity        *float64     `json:"turbidity"`
	WaterTemperature *float64     `json:"waterTemperature"`
	BatteryLevel     *float64     `json:"batteryLevel"`
	Coordinates      *Coordinates `json:"coordinates"`
	Risk             *RiskLevel   `json:"risk"`
	UpdatedAt        *time.Time   `json:"updatedAt"`
}

// DeviceCredentials is the identity-management view of a device: no secret, no measurements
type DeviceCredentials struct {
	DeviceID  string    `json:"deviceId"`
	OwnerID   string    `json:"ownerId"`
	Name      string    `json:"name"`
	Emoji     string    `json:"emoji"`
	Location  *string   `json:"location"`
	CreatedAt time.Time `json:"createdAt"`
}

// Credentials strips the access key and every measurement field
func (d *Device) Credentials() DeviceCredentials {
	return DeviceCredentials{
		DeviceID:  d.DeviceID,
		OwnerID:   d.OwnerID,
		Name:      d.Name,
		Emoji:     d.Emoji,
		Location:  d.Location,
		CreatedAt: d.CreatedAt,
	}
}

// DeviceMeasurements is the public measurement view of a device
type DeviceMeasurements struct {
	PH               *float64   `json:"ph"`
	TDS              *float64   `json:"tds"`
	Turbidity        *float64   `json:"turbidity"`
	WaterTemperature *float64   `json:"waterTemperature"`
	Risk             *RiskLevel `json:"risk"`
	UpdatedAt        *time.Time `json:"updatedAt"`
}

func (d *Device) Measurements() DeviceMeasurements {
	return DeviceMeasurements{
		PH:               d.PH,
		TDS:              d.TDS,
		Turbidity:        d.Turbidity,
		WaterTemperature: d.WaterTemperature,
		Risk:             d.Risk,
		UpdatedAt:        d.UpdatedAt,
	}
}

// DeviceUpdate is a partial update of the protected device fields; nil means "leave as is"
type DeviceUpdate struct {
	Name  *string `json:"name,omitempty"`
	Emoji *string `json:"emoji,omitempty"`
}

// DeviceSummary is the list entry returned by GET /api/devices
type DeviceSummary struct {
	DeviceID string `json:"deviceId"`
}

// MeasurementPayload is what a physical device submits
type MeasurementPayload struct {
	TDS              *float64          `json:"tds,omitempty"`
	PH               *float64          `json:"ph,omitempty"`
	Turbidity        *float64          `json:"turbidity,omitempty"`
	WaterTemperature *float64          `json:"waterTemperature,omitempty"`
	BatteryLevel     *float64          `json:"batteryLevel"`
	Coordinates      *CoordinatesInput `json:"coordinates"`
}

// CoordinatesInput keeps absent lat/long distinguishable from zero
type CoordinatesInput struct {
	Lat  *float64 `json:"lat"`
	Long *float64 `json:"long"`
}

// Measurement is a validated payload together with its derived risk
type Measurement struct {
	TDS              *float64
	PH               *float64
	Turbidity        *float64
	WaterTemperature *float64
	BatteryLevel     float64
	Coordinates      Coordinates
	Risk             RiskLevel
	RecordedAt       time.Time
}

// MeasurementEvent is pushed to live subscribers after a measurement is stored
type MeasurementEvent struct {
	DeviceID         string      `json:"deviceId"`
	TDS              *float64    `json:"tds"`
	PH               *float64    `json:"ph"`
	Turbidity        *float64    `json:"turbidity"`
	WaterTemperature *float64    `json:"waterTemperature"`
	BatteryLevel     float64     `json:"batteryLevel"`
	Coordinates      Coordinates `json:"coordinates"`
	Risk             RiskLevel   `json:"risk"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}

// DeviceLocation is a nearest-location candidate as stored; fields may be missing
type DeviceLocation struct {
	Name        string
	Coordinates *Coordinates
}

// Location is a resolved, named point
type Location struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Long float64 `json:"long"`
}
