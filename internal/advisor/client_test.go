package advisor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/co2quest/carbon-tracker/internal/models"
)

func historyDoc() *models.UserRecordDoc {
	return &models.UserRecordDoc{
		UserID: "user-1",
		DailyPoints: map[string][]models.TripRecord{
			"2024-06-01": {{
				VehicleName:      "Delivery Van",
				VehicleCategory:  models.CategoryVan,
				FuelType:         models.FuelDiesel,
				DistanceKm:       42.5,
				FuelLitre:        5,
				CarbonEmissionKg: 13.4,
				Timestamp:        time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
			}},
			"2024-05-31": {{
				VehicleName:      "Car 1",
				CarbonEmissionKg: 4.64,
				DistanceKm:       10,
			}},
		},
	}
}

func TestFormatHistory(t *testing.T) {
	text, err := FormatHistory(historyDoc())
	require.NoError(t, err)
	// Day order, one clause per record.
	assert.Equal(t, "4.64 kg CO2 using Car 1 over 10.00 km on 2024-05-31, 13.40 kg CO2 using Delivery Van over 42.50 km on 2024-06-01", text)
}

func TestFormatHistory_NoHistory(t *testing.T) {
	_, err := FormatHistory(nil)
	assert.ErrorIs(t, err, ErrNoHistory)

	_, err = FormatHistory(&models.UserRecordDoc{UserID: "user-1"})
	assert.ErrorIs(t, err, ErrNoHistory)
}

func TestClient_Recommend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-1.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		assert.Contains(t, req.Contents[0].Parts[0].Text, "Delivery Van")
		require.NotNil(t, req.SystemInstruction)

		json.NewEncoder(w).Encode(generateResponse{
			Candidates: []struct {
				Content content `json:"content"`
			}{{Content: content{Parts: []part{{Text: "Consider consolidating delivery routes."}}}}},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	text, err := client.Recommend(context.Background(), historyDoc())
	assert.NoError(t, err)
	assert.Equal(t, "Consider consolidating delivery routes.", text)
}

func TestClient_Recommend_NoHistory(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", "test-key")
	_, err := client.Recommend(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoHistory)
}

func TestClient_Recommend_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"message":"API key not valid"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "bad-key")
	_, err := client.Recommend(context.Background(), historyDoc())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "API key not valid")
}

func TestClient_Recommend_MalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{}"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	_, err := client.Recommend(context.Background(), historyDoc())
	assert.ErrorIs(t, err, ErrMalformedResponse)
}
