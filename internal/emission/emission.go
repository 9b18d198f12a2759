// Package emission converts fuel consumption into a CO2 mass using
// fuel-type emission factors.
package emission

import (
	"errors"
	"math"
	"time"

	"github.com/co2quest/carbon-tracker/internal/models"
)

var (
	ErrUnsupportedFuelType = errors.New("unsupported fuel type")
	ErrInvalidFuelVolume   = errors.New("fuel volume must be a positive number")
)

// Regional default emission factors in kg CO2 per liter.
var factors = map[models.FuelType]float64{
	models.FuelPetrol: 2.32,
	models.FuelDiesel: 2.68,
	models.FuelLPG:    1.51,
}

// Factor returns the emission factor for a fuel type. Lookup is total:
// an unrecognized fuel type is an error, never a silent default.
func Factor(fuelType models.FuelType) (float64, error) {
	f, ok := factors[fuelType]
	if !ok {
		return 0, ErrUnsupportedFuelType
	}
	return f, nil
}

// Calculate returns the CO2 mass in kg for burning fuelLitre liters of the
// given fuel type, rounded to 2 decimal places.
func Calculate(fuelLitre float64, fuelType models.FuelType) (float64, error) {
	if math.IsNaN(fuelLitre) || fuelLitre <= 0 {
		return 0, ErrInvalidFuelVolume
	}
	factor, err := Factor(fuelType)
	if err != nil {
		return 0, err
	}
	return math.Round(fuelLitre*factor*100) / 100, nil
}

// NewTripRecord builds the immutable record persisted for a completed trip.
func NewTripRecord(vehicle *models.Vehicle, fuelLitre float64, fuelType models.FuelType, distanceKm float64, at time.Time) (models.TripRecord, error) {
	kg, err := Calculate(fuelLitre, fuelType)
	if err != nil {
		return models.TripRecord{}, err
	}
	return models.TripRecord{
		VehicleName:      vehicle.Name,
		VehicleCategory:  vehicle.Category,
		FuelType:         fuelType,
		DistanceKm:       distanceKm,
		FuelLitre:        fuelLitre,
		CarbonEmissionKg: kg,
		Timestamp:        at,
	}, nil
}
