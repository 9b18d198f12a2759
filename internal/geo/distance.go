// Package geo provides great-circle distance calculations over GPS fixes
// using the haversine formula.
package geo

import (
	"errors"
	"math"

	"github.com/co2quest/carbon-tracker/internal/models"
)

// EarthRadiusKm is the mean Earth radius in kilometers.
const EarthRadiusKm = 6371.0

// ErrInsufficientSamples is returned when a trip buffer holds fewer than two
// fixes, which is not enough to derive any distance.
var ErrInsufficientSamples = errors.New("insufficient samples")

// HaversineKm calculates the great-circle distance in kilometers between two
// points given in decimal degrees.
func HaversineKm(a, b models.Location) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLon := toRad(b.Lon - a.Lon)
	lat1 := toRad(a.Lat)
	lat2 := toRad(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusKm * c
}

// TripDistanceKm reduces an ordered sequence of fixes into the total
// distance travelled, summing consecutive pairwise haversine distances.
// Near-duplicate fixes contribute near-zero but never negative terms, so
// the total is monotonically non-decreasing in the sequence length.
func TripDistanceKm(samples []models.GeoSample) (float64, error) {
	if len(samples) < 2 {
		return 0, ErrInsufficientSamples
	}

	total := 0.0
	for i := 1; i < len(samples); i++ {
		total += HaversineKm(samples[i-1].Location, samples[i].Location)
	}
	return total, nil
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
