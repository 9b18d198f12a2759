package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/co2quest/carbon-tracker/internal/db"
	"github.com/co2quest/carbon-tracker/internal/emission"
	"github.com/co2quest/carbon-tracker/internal/location"
	"github.com/co2quest/carbon-tracker/internal/middleware"
	"github.com/co2quest/carbon-tracker/internal/models"
	"github.com/co2quest/carbon-tracker/internal/trip"
)

// TripHandler exposes the trip state machine over HTTP.
type TripHandler struct {
	manager *trip.Manager
}

// NewTripHandler creates a trip handler.
func NewTripHandler(manager *trip.Manager) *TripHandler {
	return &TripHandler{manager: manager}
}

func (h *TripHandler) session(w http.ResponseWriter, r *http.Request) (*trip.Session, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return nil, false
	}
	return h.manager.Session(claims.UserID), true
}

type startTripRequest struct {
	VehicleID string `json:"vehicle_id"`
}

// Start begins tracking a trip: POST /api/trips/start.
func (h *TripHandler) Start(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req startTripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.VehicleID == "" {
		http.Error(w, "vehicle_id is required", http.StatusBadRequest)
		return
	}

	if err := session.Start(r.Context(), req.VehicleID); err != nil {
		switch {
		case errors.Is(err, location.ErrPermissionDenied):
			http.Error(w, "Location permission is required", http.StatusForbidden)
		case errors.Is(err, db.ErrVehicleNotFound):
			http.Error(w, "Vehicle not found", http.StatusNotFound)
		case errors.Is(err, trip.ErrTripInProgress):
			http.Error(w, "A trip is already in progress", http.StatusConflict)
		default:
			http.Error(w, "Failed to start trip", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(session.Status())
}

// Stop finalizes sampling: POST /api/trips/stop.
func (h *TripHandler) Stop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	distance, err := session.Stop(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, trip.ErrInsufficientData):
			http.Error(w, "Not enough data points collected", http.StatusBadRequest)
		case errors.Is(err, trip.ErrNotTracking):
			http.Error(w, "No trip is being tracked", http.StatusConflict)
		default:
			http.Error(w, "Failed to stop trip", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]float64{"distance_km": distance})
}

type fuelRequest struct {
	FuelLitre json.Number     `json:"fuel_litre"`
	FuelType  models.FuelType `json:"fuel_type"`
}

// Fuel records the completed trip: POST /api/trips/fuel.
func (h *TripHandler) Fuel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req fuelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	litre, err := req.FuelLitre.Float64()
	if err != nil {
		http.Error(w, "Please enter a valid fuel amount in liters", http.StatusBadRequest)
		return
	}

	rec, err := session.RecordFuel(r.Context(), litre, req.FuelType)
	if err != nil {
		switch {
		case errors.Is(err, emission.ErrInvalidFuelVolume):
			http.Error(w, "Please enter a valid fuel amount in liters", http.StatusBadRequest)
		case errors.Is(err, emission.ErrUnsupportedFuelType):
			http.Error(w, "Unsupported fuel type", http.StatusBadRequest)
		case errors.Is(err, trip.ErrNoFuelPending):
			http.Error(w, "No trip is awaiting fuel input", http.StatusConflict)
		default:
			http.Error(w, "Failed to save trip", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(rec)
}

// Cancel aborts the active trip: POST /api/trips/cancel.
func (h *TripHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	session.Cancel()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(session.Status())
}

// Status reports the session state: GET /api/trips/status.
func (h *TripHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(session.Status())
}
