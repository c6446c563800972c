package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"checkoutupsell/api/models"
	"checkoutupsell/api/store"
)

const dayLayout = "2006-01-02"

// ChartStart is midnight UTC of the oldest day shown in the chart ending at now.
func ChartStart(now time.Time) time.Time {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return today.AddDate(0, 0, -(ChartDays - 1))
}

// BuildDailySeries buckets rows into ChartDays UTC days ending today, oldest first.
// Days without rows are present with zero values; rows outside the window are ignored.
func BuildDailySeries(rows []store.DailyRow, now time.Time) []models.DailyPoint {
	start := ChartStart(now)
	points := make([]models.DailyPoint, ChartDays)
	index := make(map[string]int, ChartDays)
	for i := range points {
		day := start.AddDate(0, 0, i).Format(dayLayout)
		points[i] = models.DailyPoint{Date: day, Revenue: decimal.Zero}
		index[day] = i
	}

	for _, row := range rows {
		i, ok := index[row.CreatedAt.UTC().Format(dayLayout)]
		if !ok {
			continue
		}
		points[i].Clicks++
		if row.AddedToCart {
			points[i].Conversions++
			points[i].Revenue = points[i].Revenue.Add(row.Price)
		}
	}
	return points
}
