package connector

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"
)

// Seed defaults matching the sample datasets shipped with the service.
const (
	DefaultCustomerCount = 50
	DefaultTicketCount   = 50
	DefaultAnalyticsDays = 30
)

// analyticsMetrics are the metric series generated for the analytics source.
var analyticsMetrics = []string{
	"daily_active_users",
	"page_views",
	"api_calls",
	"error_rate",
	"avg_response_time_ms",
}

// GenerateCustomers produces count CRM customer records with creation dates
// spread over the last year.
func GenerateCustomers(rng *rand.Rand, now time.Time, count int) []Record {
	statuses := []string{"active", "inactive"}
	records := make([]Record, 0, count)
	for i := 1; i <= count; i++ {
		created := now.AddDate(0, 0, -(1 + rng.Intn(365)))
		records = append(records, Record{
			"customer_id": i,
			"name":        fmt.Sprintf("Customer %d", i),
			"email":       fmt.Sprintf("user%d@example.com", i),
			"created_at":  created.UTC().Format(time.RFC3339),
			"status":      statuses[rng.Intn(len(statuses))],
		})
	}
	return records
}

// GenerateTickets produces count support ticket records owned by customers in
// [1, maxCustomerID].
func GenerateTickets(rng *rand.Rand, now time.Time, count, maxCustomerID int) []Record {
	priorities := []string{"low", "medium", "high"}
	statuses := []string{"open", "closed"}
	records := make([]Record, 0, count)
	for i := 1; i <= count; i++ {
		created := now.AddDate(0, 0, -rng.Intn(31))
		records = append(records, Record{
			"ticket_id":   i,
			"customer_id": 1 + rng.Intn(maxCustomerID),
			"subject":     fmt.Sprintf("Issue %d", i),
			"priority":    priorities[rng.Intn(len(priorities))],
			"created_at":  created.UTC().Format(time.RFC3339),
			"status":      statuses[rng.Intn(len(statuses))],
		})
	}
	return records
}

// GenerateAnalytics produces days of daily data points for each metric series.
func GenerateAnalytics(rng *rand.Rand, now time.Time, days int) []Record {
	records := make([]Record, 0, days*len(analyticsMetrics))
	today := now.UTC().Truncate(24 * time.Hour)
	for _, metric := range analyticsMetrics {
		for d := 0; d < days; d++ {
			date := today.AddDate(0, 0, -d)
			var value any
			switch metric {
			case "error_rate":
				value = float64(int(rng.Float64()*490+10)) / 100 // 0.10..5.00
			case "avg_response_time_ms":
				value = 50 + rng.Intn(451)
			default:
				value = 100 + rng.Intn(901)
			}
			records = append(records, Record{
				"metric": metric,
				"date":   date.Format("2006-01-02"),
				"value":  value,
			})
		}
	}
	return records
}

// SeedDataDir regenerates the sample JSON data files consumed by FileStore.
func SeedDataDir(dir string, rng *rand.Rand, now time.Time) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("connector: create data dir: %w", err)
	}
	batches := map[Source][]Record{
		SourceCRM:       GenerateCustomers(rng, now, DefaultCustomerCount),
		SourceSupport:   GenerateTickets(rng, now, DefaultTicketCount, DefaultCustomerCount),
		SourceAnalytics: GenerateAnalytics(rng, now, DefaultAnalyticsDays),
	}
	for source, records := range batches {
		raw, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return fmt.Errorf("connector: encode %s: %w", source, err)
		}
		path := filepath.Join(dir, fileNames[source])
		if err := os.WriteFile(path, raw, 0o644); err != nil {
			return fmt.Errorf("connector: write %s: %w", path, err)
		}
	}
	return nil
}
