package services

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/nextgendevs/ng-backend/internal/models"
)

// Nearest returns the named location closest to query by great-circle distance.
// Candidates without coordinates, with coordinates outside WGS84 bounds or
// without a name are skipped. The bool is false when nothing usable remains.
func Nearest(query models.Coordinates, candidates []models.DeviceLocation) (*models.Location, bool) {
	origin := orb.Point{query.Long, query.Lat}

	var (
		best     *models.Location
		bestDist = math.Inf(1)
	)
	for _, c := range candidates {
		if c.Name == "" || c.Coordinates == nil || !ValidCoordinates(*c.Coordinates) {
			continue
		}
		d := geo.DistanceHaversine(origin, orb.Point{c.Coordinates.Long, c.Coordinates.Lat})
		if d < bestDist {
			bestDist = d
			best = &models.Location{Name: c.Name, Lat: c.Coordinates.Lat, Long: c.Coordinates.Long}
		}
	}

	return best, best != nil
}

// ValidCoordinates reports whether c is a finite point within lat/long bounds
func ValidCoordinates(c models.Coordinates) bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Long) || math.IsInf(c.Lat, 0) || math.IsInf(c.Long, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Long >= -180 && c.Long <= 180
}
