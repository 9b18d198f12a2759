package db

import (
	"context"

	"github.com/co2quest/carbon-tracker/internal/models"
)

// RecordStore defines the per-user trip record operations. The model is
// append-only: records are never updated or deleted once written.
type RecordStore interface {
	// AppendRecord atomically appends a record to the array under the
	// record's calendar day in the user's document. Concurrent appends to
	// the same user/day key must both land; read-modify-write of the whole
	// array is not acceptable here.
	AppendRecord(ctx context.Context, userID string, rec models.TripRecord) error
	// ReadUserDocument point-reads the user's record document. A missing
	// document means "no history yet" and is returned as (nil, nil).
	ReadUserDocument(ctx context.Context, userID string) (*models.UserRecordDoc, error)
}

// VehicleStore defines the vehicle data operations.
type VehicleStore interface {
	InsertVehicle(ctx context.Context, vehicle models.Vehicle) error
	FindVehiclesByUser(ctx context.Context, userID string) ([]models.Vehicle, error)
	FindVehicleByID(ctx context.Context, id string) (*models.Vehicle, error)
	// AddDistance advances a vehicle's cumulative distance. Distance only
	// ever grows, and only at trip completion.
	AddDistance(ctx context.Context, id string, km float64) error
}
