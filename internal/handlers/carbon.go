package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/co2quest/carbon-tracker/internal/advisor"
	"github.com/co2quest/carbon-tracker/internal/aggregate"
	"github.com/co2quest/carbon-tracker/internal/db"
	"github.com/co2quest/carbon-tracker/internal/emission"
	"github.com/co2quest/carbon-tracker/internal/middleware"
	"github.com/co2quest/carbon-tracker/internal/models"
)

// Predictor is the forecast endpoint contract the dashboard depends on.
type Predictor interface {
	Predict(ctx context.Context, win aggregate.ForecastWindow) (float64, error)
}

// Recommender is the text-generation contract the advisor endpoint uses.
type Recommender interface {
	Recommend(ctx context.Context, doc *models.UserRecordDoc) (string, error)
}

// CarbonHandler serves the calculator, dashboard, chart and advisor views.
type CarbonHandler struct {
	records     db.RecordStore
	predictor   Predictor
	recommender Recommender
}

// NewCarbonHandler creates a carbon handler.
func NewCarbonHandler(records db.RecordStore, predictor Predictor, recommender Recommender) *CarbonHandler {
	return &CarbonHandler{records: records, predictor: predictor, recommender: recommender}
}

type calculatorRequest struct {
	FuelLitre json.Number     `json:"fuel_litre"`
	FuelType  models.FuelType `json:"fuel_type"`
}

// Calculator is the standalone emission calculator: POST /api/calculator.
// It persists nothing and accepts LPG in addition to the vehicle fuels.
func (h *CarbonHandler) Calculator(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req calculatorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	litre, err := req.FuelLitre.Float64()
	if err != nil {
		http.Error(w, "Please enter a valid fuel amount in liters", http.StatusBadRequest)
		return
	}

	kg, err := emission.Calculate(litre, req.FuelType)
	if err != nil {
		switch {
		case errors.Is(err, emission.ErrInvalidFuelVolume):
			http.Error(w, "Please enter a valid fuel amount in liters", http.StatusBadRequest)
		case errors.Is(err, emission.ErrUnsupportedFuelType):
			http.Error(w, "Unsupported fuel type", http.StatusBadRequest)
		default:
			http.Error(w, "Failed to calculate emission", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]float64{"carbon_emission_kg": kg})
}

type dashboardResponse struct {
	TodayTotal    float64  `json:"today_total"`
	Prediction    *float64 `json:"prediction,omitempty"`
	ForecastError string   `json:"forecast_error,omitempty"`
}

// Dashboard serves today's total plus tomorrow's prediction:
// GET /api/dashboard. A forecast failure is reported alongside today's
// total so the client keeps whatever prediction it last displayed.
func (h *CarbonHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	doc, err := h.records.ReadUserDocument(r.Context(), claims.UserID)
	if err != nil {
		log.WithError(err).Error("Failed to read record document")
		http.Error(w, "Failed to fetch data", http.StatusInternalServerError)
		return
	}

	totals := aggregate.TotalsByDay(doc)
	resp := dashboardResponse{
		TodayTotal: totals[time.Now().Format(models.DayFormat)],
	}

	prediction, err := h.predictor.Predict(r.Context(), aggregate.Forecast(totals))
	if err != nil {
		log.WithError(err).Warn("Forecast unavailable")
		resp.ForecastError = err.Error()
	} else {
		resp.Prediction = &prediction
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

type chartResponse struct {
	Labels []string  `json:"labels"`
	Points []float64 `json:"points"`
}

// Chart serves the weekly emission chart window: GET /api/chart.
func (h *CarbonHandler) Chart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	doc, err := h.records.ReadUserDocument(r.Context(), claims.UserID)
	if err != nil {
		log.WithError(err).Error("Failed to read record document")
		http.Error(w, "Failed to fetch data", http.StatusInternalServerError)
		return
	}

	window := aggregate.ChartWindow(aggregate.TotalsByDay(doc))
	resp := chartResponse{
		Labels: make([]string, 0, len(window)),
		Points: make([]float64, 0, len(window)),
	}
	for _, p := range window {
		resp.Labels = append(resp.Labels, p.Label)
		resp.Points = append(resp.Points, p.Total)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// Advisor serves personalized reduction suggestions: GET /api/advisor.
func (h *CarbonHandler) Advisor(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	doc, err := h.records.ReadUserDocument(r.Context(), claims.UserID)
	if err != nil {
		log.WithError(err).Error("Failed to read record document")
		http.Error(w, "Failed to fetch data", http.StatusInternalServerError)
		return
	}

	text, err := h.recommender.Recommend(r.Context(), doc)
	if err != nil {
		switch {
		case errors.Is(err, advisor.ErrNoHistory):
			http.Error(w, "Please track your carbon emission first", http.StatusNotFound)
		default:
			log.WithError(err).Warn("Advisor unavailable")
			http.Error(w, "Failed to get recommendations", http.StatusBadGateway)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"recommendation": text})
}
