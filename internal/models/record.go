package models

import "time"

// FuelType identifies the fuel burned on a trip. LPG is only offered by the
// standalone calculator; vehicle trips record Petrol or Diesel.
type FuelType string

const (
	FuelPetrol FuelType = "Petrol"
	FuelDiesel FuelType = "Diesel"
	FuelLPG    FuelType = "LPG"
)

// DayFormat is the calendar-day key format for the per-user record document.
// Fixed-width ISO so lexicographic sort equals chronological sort.
const DayFormat = "2006-01-02"

// TripRecord is one completed, persisted trip. Records are immutable once
// written: the store only ever appends them under the trip's calendar day.
type TripRecord struct {
	VehicleName       string          `bson:"vehicleName" json:"vehicleName"`
	VehicleCategory   VehicleCategory `bson:"vehicleType" json:"vehicleType"`
	FuelType          FuelType        `bson:"fuelType" json:"fuelType"`
	DistanceKm        float64         `bson:"distanceKm" json:"distanceKm"`
	FuelLitre         float64         `bson:"fuelLitre" json:"fuelLitre"`
	CarbonEmissionKg  float64         `bson:"carbonEmissionKg" json:"carbonEmissionKg"`
	Timestamp         time.Time       `bson:"timestamp" json:"timestamp"`
}

// UserRecordDoc is the per-user record document. DailyPoints is the
// append-only raw log keyed by calendar day; TotalCarbonDaily is the
// denormalized daily-total view maintained in the same atomic update.
type UserRecordDoc struct {
	UserID           string                  `bson:"_id" json:"user_id"`
	DailyPoints      map[string][]TripRecord `bson:"dailyPoints" json:"dailyPoints"`
	TotalCarbonDaily map[string]float64      `bson:"totalCarbonDaily" json:"totalCarbonDaily"`
}

// Day returns the record's calendar-day key.
func (r TripRecord) Day() string {
	return r.Timestamp.Format(DayFormat)
}
