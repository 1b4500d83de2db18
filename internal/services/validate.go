package services

import (
	"strings"

	"github.com/nextgendevs/ng-backend/internal/apperr"
	"github.com/nextgendevs/ng-backend/internal/models"
	"github.com/nextgendevs/ng-backend/pkg/utils"
)

type bounds struct{ min, max float64 }

var (
	tdsRange         = bounds{1, 3000}
	phRange          = bounds{1, 14}
	turbidityRange   = bounds{1, 3000}
	temperatureRange = bounds{-55, 125}
	batteryRange     = bounds{0, 100}
)

func checkRange(field string, v *float64, b bounds) error {
	if v != nil && (*v < b.min || *v > b.max) {
		return apperr.InvalidParameter(field, apperr.MsgOutOfRange(field, b.min, b.max))
	}
	return nil
}

// ValidateMeasurement checks a device payload and returns it as a Measurement
// without risk or timestamp.
func ValidateMeasurement(p models.MeasurementPayload) (models.Measurement, error) {
	optional := []struct {
		field string
		v     *float64
		b     bounds
	}{
		{"tds", p.TDS, tdsRange},
		{"ph", p.PH, phRange},
		{"turbidity", p.Turbidity, turbidityRange},
		{"waterTemperature", p.WaterTemperature, temperatureRange},
	}
	for _, o := range optional {
		if err := checkRange(o.field, o.v, o.b); err != nil {
			return models.Measurement{}, err
		}
	}

	if p.BatteryLevel == nil {
		return models.Measurement{}, apperr.InvalidParameter("batteryLevel", apperr.MsgIsRequired("batteryLevel"))
	}
	if err := checkRange("batteryLevel", p.BatteryLevel, batteryRange); err != nil {
		return models.Measurement{}, err
	}

	if p.Coordinates == nil {
		return models.Measurement{}, apperr.InvalidParameter("coordinates", apperr.MsgIsRequired("coordinates"))
	}
	if p.Coordinates.Lat == nil {
		return models.Measurement{}, apperr.InvalidParameter("coordinates.lat", apperr.MsgIsRequired("coordinates.lat"))
	}
	if p.Coordinates.Long == nil {
		return models.Measurement{}, apperr.InvalidParameter("coordinates.long", apperr.MsgIsRequired("coordinates.long"))
	}

	return models.Measurement{
		TDS:              p.TDS,
		PH:               p.PH,
		Turbidity:        p.Turbidity,
		WaterTemperature: p.WaterTemperature,
		BatteryLevel:     *p.BatteryLevel,
		Coordinates:      models.Coordinates{Lat: *p.Coordinates.Lat, Long: *p.Coordinates.Long},
	}, nil
}

// ValidateDeviceUpdateBody checks the shape of a credential update before any lookup
func ValidateDeviceUpdateBody(u models.DeviceUpdate) error {
	if u.Name == nil && u.Emoji == nil {
		return apperr.InvalidParameter("update", apperr.MsgMinimumOptionRequired)
	}
	if u.Name != nil {
		if err := validateName("name", *u.Name, utils.MaxDeviceNameLen); err != nil {
			return err
		}
	}
	if u.Emoji != nil && !utils.IsEmoji(*u.Emoji) {
		return apperr.InvalidParameter("emoji", apperr.MsgInvalidFixedLength("emoji", utils.EmojiLength))
	}
	return nil
}

// ValidateUserUpdateBody checks the shape of a user credential update
func ValidateUserUpdateBody(u models.UserUpdate) error {
	if u.Name == nil && u.Email == nil && u.Password == nil {
		return apperr.InvalidParameter("update", apperr.MsgMinimumOptionRequired)
	}
	if u.Name != nil {
		if err := validateName("name", *u.Name, utils.MaxUserNameLength); err != nil {
			return err
		}
	}
	if u.Email != nil {
		if err := validateEmail(*u.Email); err != nil {
			return err
		}
	}
	if u.Password != nil {
		if err := validatePassword("password", *u.Password); err != nil {
			return err
		}
	}
	return nil
}

func validateName(field, name string, max int) error {
	if strings.TrimSpace(name) == "" {
		return apperr.InvalidParameter(field, apperr.MsgIsRequired(field))
	}
	if utils.TextLength(name) > max {
		return apperr.InvalidParameter(field, apperr.MsgInvalidMaxLength(field, max))
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return apperr.InvalidParameter("email", apperr.MsgIsRequired("email"))
	}
	if !utils.IsValidEmail(email) {
		return apperr.InvalidParameter("email", apperr.MsgInvalidEmail)
	}
	return nil
}

func validatePassword(field, password string) error {
	switch n := utils.TextLength(password); {
	case n == 0:
		return apperr.InvalidParameter(field, apperr.MsgIsRequired(field))
	case n < utils.MinPasswordLength:
		return apperr.InvalidParameter(field, apperr.MsgInvalidMinLength(field, utils.MinPasswordLength))
	case n > utils.MaxPasswordLength:
		return apperr.InvalidParameter(field, apperr.MsgInvalidMaxLength(field, utils.MaxPasswordLength))
	}
	if !utils.IsStrongPassword(password) {
		return apperr.InvalidParameter(field, apperr.MsgWeakPassword)
	}
	return nil
}

func validateID(field, id string) error {
	if !utils.IsValidID(id) {
		return apperr.InvalidParameter(field, apperr.MsgInvalidFixedLength(field, utils.IDLength))
	}
	return nil
}
