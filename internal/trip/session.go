// Package trip implements the per-user trip tracking state machine:
// Idle -> Tracking -> AwaitingFuelInput -> Recorded (and back to Idle).
package trip

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/co2quest/carbon-tracker/internal/db"
	"github.com/co2quest/carbon-tracker/internal/emission"
	"github.com/co2quest/carbon-tracker/internal/geo"
	"github.com/co2quest/carbon-tracker/internal/location"
	"github.com/co2quest/carbon-tracker/internal/models"
)

// State names the observable states of a session. Recorded is transient:
// persisting the record immediately resets the session to Idle.
type State string

const (
	StateIdle         State = "idle"
	StateTracking     State = "tracking"
	StateAwaitingFuel State = "awaiting_fuel_input"
)

var (
	ErrTripInProgress   = errors.New("a trip is already in progress")
	ErrNotTracking      = errors.New("no trip is being tracked")
	ErrNoFuelPending    = errors.New("no trip is awaiting fuel input")
	ErrInsufficientData = errors.New("insufficient trip data")
)

// Session owns at most one active trip for a user. The active trip
// exclusively owns its sample buffer and its live fix subscription; both
// are released on every exit path.
type Session struct {
	userID   string
	provider location.Provider
	vehicles db.VehicleStore
	records  db.RecordStore
	log      *log.Entry

	mu         sync.Mutex
	state      State
	vehicle    *models.Vehicle
	samples    []models.GeoSample
	distanceKm float64
	sub        location.Subscription
}

// NewSession creates an idle session for a user.
func NewSession(userID string, provider location.Provider, vehicles db.VehicleStore, records db.RecordStore) *Session {
	return &Session{
		userID:   userID,
		provider: provider,
		vehicles: vehicles,
		records:  records,
		state:    StateIdle,
		log:      log.WithField("user_id", userID),
	}
}

// Start begins tracking a trip for the given vehicle. The fix stream must
// open successfully; a permission refusal leaves the session Idle.
func (s *Session) Start(ctx context.Context, vehicleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return ErrTripInProgress
	}

	vehicle, err := s.vehicles.FindVehicleByID(ctx, vehicleID)
	if err != nil {
		return err
	}
	if vehicle.UserID != s.userID {
		return db.ErrVehicleNotFound
	}

	sub, err := s.provider.Subscribe(ctx, s.userID)
	if err != nil {
		return err
	}

	s.state = StateTracking
	s.vehicle = vehicle
	s.samples = nil
	s.distanceKm = 0
	s.sub = sub
	go s.pump(sub)

	s.log.WithField("vehicle_id", vehicleID).Info("Trip tracking started")
	return nil
}

// pump appends arriving fixes to the buffer. Only the live subscription of
// a Tracking session may touch the buffer; stale pumps fall through.
func (s *Session) pump(sub location.Subscription) {
	for fix := range sub.Fixes() {
		s.mu.Lock()
		if s.state == StateTracking && s.sub == sub {
			s.samples = append(s.samples, fix)
		}
		s.mu.Unlock()
	}
}

// Stop finalizes sampling. It requires at least two buffered fixes; with
// fewer it fails and the session keeps Tracking so the caller can resume or
// cancel. On success the trip distance is computed once over the whole
// buffer, added to the vehicle's cumulative distance (irreversibly), and
// the session awaits fuel input.
func (s *Session) Stop(ctx context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateTracking {
		return 0, ErrNotTracking
	}

	distance, err := geo.TripDistanceKm(s.samples)
	if err != nil {
		return 0, fmt.Errorf("%w: %d samples collected", ErrInsufficientData, len(s.samples))
	}

	if err := s.vehicles.AddDistance(ctx, s.vehicle.ID, distance); err != nil {
		// The trip stays Tracking; the caller may retry the stop.
		return 0, fmt.Errorf("record vehicle distance: %w", err)
	}
	s.vehicle.TotalDistanceKm += distance

	s.sub.Cancel()
	s.sub = nil
	s.state = StateAwaitingFuel
	s.distanceKm = distance

	s.log.WithFields(log.Fields{
		"vehicle_id":  s.vehicle.ID,
		"samples":     len(s.samples),
		"distance_km": distance,
	}).Info("Trip tracking stopped")
	return distance, nil
}

// RecordFuel converts the stopped trip into a persisted TripRecord. Fuel
// volume must be positive and the fuel type one a vehicle can burn (LPG is
// only offered by the standalone calculator). On success the session resets
// to Idle and the sample buffer is discarded.
func (s *Session) RecordFuel(ctx context.Context, fuelLitre float64, fuelType models.FuelType) (models.TripRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateAwaitingFuel {
		return models.TripRecord{}, ErrNoFuelPending
	}
	if fuelType != models.FuelPetrol && fuelType != models.FuelDiesel {
		return models.TripRecord{}, emission.ErrUnsupportedFuelType
	}

	rec, err := emission.NewTripRecord(s.vehicle, fuelLitre, fuelType, s.distanceKm, time.Now())
	if err != nil {
		return models.TripRecord{}, err
	}

	if err := s.records.AppendRecord(ctx, s.userID, rec); err != nil {
		// Session keeps awaiting fuel; the caller may retry.
		return models.TripRecord{}, fmt.Errorf("persist trip record: %w", err)
	}

	s.log.WithFields(log.Fields{
		"vehicle_id":  s.vehicle.ID,
		"distance_km": rec.DistanceKm,
		"emission_kg": rec.CarbonEmissionKg,
		"day":         rec.Day(),
	}).Info("Trip recorded")

	s.reset()
	return rec, nil
}

// Cancel aborts the active trip from any state and returns the session to
// Idle, discarding buffered samples. A cumulative distance change already
// committed by Stop is deliberately not reverted. Safe to call when Idle.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		s.log.WithField("state", s.state).Info("Trip cancelled")
	}
	s.reset()
}

// reset releases the subscription and clears trip state. Callers hold s.mu.
func (s *Session) reset() {
	if s.sub != nil {
		s.sub.Cancel()
		s.sub = nil
	}
	s.state = StateIdle
	s.vehicle = nil
	s.samples = nil
	s.distanceKm = 0
}

// Status describes the session for the API surface.
type Status struct {
	State      State   `json:"state"`
	VehicleID  string  `json:"vehicle_id,omitempty"`
	Samples    int     `json:"samples"`
	DistanceKm float64 `json:"distance_km"`
}

// Status reports the current state of the session.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		State:      s.state,
		Samples:    len(s.samples),
		DistanceKm: s.distanceKm,
	}
	if s.vehicle != nil {
		st.VehicleID = s.vehicle.ID
	}
	return st
}
