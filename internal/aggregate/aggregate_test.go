package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/co2quest/carbon-tracker/internal/models"
)

func recordOn(day string, kg float64) models.TripRecord {
	ts, _ := time.Parse(models.DayFormat, day)
	return models.TripRecord{
		VehicleName:      "Car 1",
		VehicleCategory:  models.CategoryCar,
		FuelType:         models.FuelPetrol,
		CarbonEmissionKg: kg,
		Timestamp:        ts,
	}
}

func TestTotalsByDay(t *testing.T) {
	doc := &models.UserRecordDoc{
		UserID: "user-1",
		DailyPoints: map[string][]models.TripRecord{
			"2024-06-01": {recordOn("2024-06-01", 5), recordOn("2024-06-01", 2.5)},
			"2024-06-02": {recordOn("2024-06-02", 1.2)},
		},
	}

	totals := TotalsByDay(doc)
	assert.Len(t, totals, 2)
	assert.InDelta(t, 7.5, totals["2024-06-01"], 1e-9)
	assert.InDelta(t, 1.2, totals["2024-06-02"], 1e-9)
}

func TestTotalsByDay_NoHistory(t *testing.T) {
	assert.Empty(t, TotalsByDay(nil))
	assert.Empty(t, TotalsByDay(&models.UserRecordDoc{UserID: "user-1"}))
}

func TestDayTotal(t *testing.T) {
	doc := &models.UserRecordDoc{
		DailyPoints: map[string][]models.TripRecord{
			"2024-06-01": {recordOn("2024-06-01", 3), recordOn("2024-06-01", 4)},
		},
	}
	assert.InDelta(t, 7.0, DayTotal(doc, "2024-06-01"), 1e-9)
	assert.Equal(t, 0.0, DayTotal(doc, "2024-06-02"))
}

func TestChartWindow_TakesLastSeven(t *testing.T) {
	totals := map[string]float64{
		"2024-05-25": 1, "2024-05-26": 2, "2024-05-27": 3,
		"2024-05-28": 4, "2024-05-29": 5, "2024-05-30": 6,
		"2024-05-31": 7, "2024-06-01": 8, "2024-06-02": 9,
	}

	points := ChartWindow(totals)
	assert.Len(t, points, 7)
	assert.Equal(t, "2024-05-27", points[0].Day)
	assert.Equal(t, "05/27", points[0].Label)
	assert.Equal(t, 3.0, points[0].Total)
	assert.Equal(t, "2024-06-02", points[6].Day)
	assert.Equal(t, "06/02", points[6].Label)
	assert.Equal(t, 9.0, points[6].Total)
}

func TestChartWindow_ShortHistory(t *testing.T) {
	points := ChartWindow(map[string]float64{"2024-06-01": 4.2})
	assert.Len(t, points, 1)
	assert.Equal(t, 4.2, points[0].Total)
}

func TestChartWindow_NoHistoryPlaceholders(t *testing.T) {
	points := ChartWindow(map[string]float64{})
	assert.Len(t, points, ChartDays)
	for _, p := range points {
		assert.Equal(t, "-", p.Label)
		assert.Equal(t, 0.0, p.Total)
	}
}

func TestForecast_SlotMapping(t *testing.T) {
	// Oldest day maps to prev3, most recent to prev1.
	win := Forecast(map[string]float64{
		"2024-05-30": 10,
		"2024-05-31": 0,
		"2024-06-01": 5,
	})
	assert.Equal(t, ForecastWindow{Prev3: 10, Prev2: 0, Prev1: 5}, win)
}

func TestForecast_ShortHistoryContributesZero(t *testing.T) {
	win := Forecast(map[string]float64{"2024-06-01": 5})
	assert.Equal(t, ForecastWindow{Prev3: 0, Prev2: 0, Prev1: 5}, win)

	assert.Equal(t, ForecastWindow{}, Forecast(map[string]float64{}))
}

func TestForecast_IgnoresOlderDays(t *testing.T) {
	win := Forecast(map[string]float64{
		"2024-05-01": 99,
		"2024-05-30": 1,
		"2024-05-31": 2,
		"2024-06-01": 3,
	})
	assert.Equal(t, ForecastWindow{Prev3: 1, Prev2: 2, Prev1: 3}, win)
}
