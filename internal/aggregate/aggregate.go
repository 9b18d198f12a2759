// Package aggregate derives daily emission totals from a user's raw trip
// log and extracts the rolling windows consumed by the chart and the
// forecast request.
//
// The raw dailyPoints log is the canonical source: totals are recomputed on
// every read, so there is no staleness to maintain and both windows always
// agree with the persisted records.
package aggregate

import (
	"sort"

	"github.com/co2quest/carbon-tracker/internal/models"
)

// ChartDays is the width of the chart window in calendar days.
const ChartDays = 7

// ChartPoint is one day on the weekly chart.
type ChartPoint struct {
	Day   string  `json:"day"`
	Label string  `json:"label"` // MM/DD
	Total float64 `json:"total"`
}

// ForecastWindow holds the three most recent daily totals, oldest first.
// Slot names match the forecast request body exactly: the furthest day maps
// to Prev3 and the most recent to Prev1.
type ForecastWindow struct {
	Prev3 float64 `json:"prev3"`
	Prev2 float64 `json:"prev2"`
	Prev1 float64 `json:"prev1"`
}

// TotalsByDay sums emission mass per calendar day across the raw log.
// A nil document (no history) yields an empty map.
func TotalsByDay(doc *models.UserRecordDoc) map[string]float64 {
	totals := make(map[string]float64)
	if doc == nil {
		return totals
	}
	for day, records := range doc.DailyPoints {
		sum := 0.0
		for _, rec := range records {
			sum += rec.CarbonEmissionKg
		}
		totals[day] = sum
	}
	return totals
}

// DayTotal returns the total for a single calendar day.
func DayTotal(doc *models.UserRecordDoc, day string) float64 {
	return TotalsByDay(doc)[day]
}

// sortedDays returns the map's days in chronological order. Lexicographic
// sort is valid because the day format is fixed-width ISO YYYY-MM-DD.
func sortedDays(totals map[string]float64) []string {
	days := make([]string, 0, len(totals))
	for day := range totals {
		days = append(days, day)
	}
	sort.Strings(days)
	return days
}

// ChartWindow returns the last seven days of history as chart points,
// fewer if history is shorter. With no history at all it degenerates to a
// full set of placeholder zero points.
func ChartWindow(totals map[string]float64) []ChartPoint {
	days := sortedDays(totals)
	if len(days) > ChartDays {
		days = days[len(days)-ChartDays:]
	}

	if len(days) == 0 {
		points := make([]ChartPoint, ChartDays)
		for i := range points {
			points[i] = ChartPoint{Label: "-"}
		}
		return points
	}

	points := make([]ChartPoint, 0, len(days))
	for _, day := range days {
		points = append(points, ChartPoint{
			Day:   day,
			Label: day[5:7] + "/" + day[8:10],
			Total: totals[day],
		})
	}
	return points
}

// Forecast returns the forecast window over the last three days of history.
// Days missing from a short history contribute 0.
func Forecast(totals map[string]float64) ForecastWindow {
	days := sortedDays(totals)

	at := func(back int) float64 {
		idx := len(days) - back
		if idx < 0 {
			return 0
		}
		return totals[days[idx]]
	}

	return ForecastWindow{
		Prev3: at(3),
		Prev2: at(2),
		Prev1: at(1),
	}
}
