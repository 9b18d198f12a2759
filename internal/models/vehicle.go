package models

import "time"

// VehicleCategory classifies a user's vehicle.
type VehicleCategory string

const (
	CategoryCar   VehicleCategory = "Car"
	CategoryVan   VehicleCategory = "Van"
	CategoryLorry VehicleCategory = "Lorry"
)

// IsValidCategory checks if a vehicle category is valid.
func IsValidCategory(c VehicleCategory) bool {
	switch c {
	case CategoryCar, CategoryVan, CategoryLorry:
		return true
	default:
		return false
	}
}

// Vehicle represents a user's vehicle. TotalDistanceKm is cumulative over
// all completed trips and only ever advances at trip completion.
type Vehicle struct {
	ID              string          `bson:"_id" json:"id"`
	UserID          string          `bson:"user_id" json:"user_id"`
	Name            string          `bson:"name" json:"name"`
	Category        VehicleCategory `bson:"category" json:"category"`
	TotalDistanceKm float64         `bson:"total_distance_km" json:"total_distance_km"`
	CreatedAt       time.Time       `bson:"created_at" json:"created_at"`
}
