package services

import "github.com/nextgendevs/ng-backend/internal/models"

// Classify scores four readings into a swimming-risk level. A missing or zero
// reading yields RiskUnknown. Every row of the table is tested independently,
// so readings on a band edge can score in two bands.
func Classify(tds, waterTemperature, turbidity, ph *float64) models.RiskLevel {
	if missing(tds) || missing(waterTemperature) || missing(turbidity) || missing(ph) {
		return models.RiskUnknown
	}
	t, temp, turb, p := *tds, *waterTemperature, *turbidity, *ph

	score := 0

	// tds
	if t > 2500 {
		score += 2
	}
	if t >= 1500 && t <= 2500 {
		score++
	}

	// turbidity. The moderate band is gated on tds, not turbidity; a turbidity in
	// [50,400] with tds above 400 scores nothing here.
	if turb > 400 {
		score += 3
	}
	if turb >= 50 && t <= 400 {
		score += 2
	}
	if turb < 50 {
		score++
	}

	// water temperature
	if temp < 12 {
		score += 6
	}
	if temp >= 12 && temp <= 16 {
		score += 3
	}
	if temp > 16 {
		score++
	}

	// ph
	if p < 7 || p > 8 {
		score += 5
	}
	if (p >= 7 && p <= 7.2) || (p >= 7.8 && p <= 8) {
		score += 3
	}
	if p >= 7.2 && p <= 7.8 {
		score++
	}

	switch {
	case score > 10:
		return models.RiskHigh
	case score >= 6:
		return models.RiskModerate
	default:
		return models.RiskLow
	}
}

func missing(v *float64) bool {
	return v == nil || *v == 0
}
