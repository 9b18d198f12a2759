package handlers

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/co2quest/carbon-tracker/internal/db"
	"github.com/co2quest/carbon-tracker/internal/middleware"
)

// Reward is one redeemable partner offer.
type Reward struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// PointsPerTrip is the eco-point award for each recorded trip.
const PointsPerTrip = 100

var rewardCatalogue = []Reward{
	{Title: "10% Discount - Starbucks SME Plan", Description: "Enjoy 10% off for your business meetings at Starbucks outlets."},
	{Title: "50% Promo - Grab for Business", Description: "Get 50% off your first 10 delivery rides when using Grab for Business."},
	{Title: "RM500 Credit - Google Ads SME", Description: "Kickstart your online marketing with free Google Ads credit for SMEs."},
	{Title: "Free Training - Digital Marketing", Description: "Enroll in a free course to boost your small enterprise's digital presence."},
	{Title: "Office Supplies Voucher", Description: "Claim RM100 worth of office supplies from our SME partners."},
}

// RewardsHandler serves the partner-offer catalogue and eco points.
type RewardsHandler struct {
	records db.RecordStore
}

// NewRewardsHandler creates a rewards handler.
func NewRewardsHandler(records db.RecordStore) *RewardsHandler {
	return &RewardsHandler{records: records}
}

// Catalogue serves GET /api/rewards.
func (h *RewardsHandler) Catalogue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rewardCatalogue)
}

// Points serves GET /api/points. Every recorded trip earns PointsPerTrip.
func (h *RewardsHandler) Points(w http.ResponseWriter, r *http.Request) {
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

	trips := 0
	if doc != nil {
		for _, records := range doc.DailyPoints {
			trips += len(records)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"points": trips * PointsPerTrip})
}
