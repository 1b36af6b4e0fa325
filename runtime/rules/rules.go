// Package rules implements the pure business-rule transforms applied to raw
// record batches: AND-composed equality filters, date-range filtering,
// newest-first ordering, pagination, and the hard voice result cap. All
// functions are order-independent pure functions of their inputs; malformed
// record data is treated as absent, never as an error.
package rules

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/unidatahq/udc/runtime/connector"
)

// Filters carries the optional equality and date-range predicates for one
// query. Zero values mean "not supplied".
type Filters struct {
	TicketID   int
	CustomerID int
	Status     string
	Priority   string
	Metric     string
	StartDate  string
	EndDate    string
}

// timestampFields is the candidate order used to locate a record's
// best-available timestamp. The priority is a policy constant carried over
// from the source datasets.
var timestampFields = [...]string{"updated_at", "created_at", "date", "timestamp"}

// ParseTime parses an ISO-8601 timestamp value, tolerating a trailing "Z"
// and date-only strings (midnight UTC assumed). Non-string values are
// stringified first. Returns false when the value is absent or unparseable.
func ParseTime(value any) (time.Time, bool) {
	if value == nil {
		return time.Time{}, false
	}
	text := strings.TrimSpace(toString(value))
	if text == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
		"2006-01-02",
	} {
		if ts, err := time.Parse(layout, text); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

// BestTimestamp returns the first parseable timestamp among the candidate
// fields of a record.
func BestTimestamp(record connector.Record) (time.Time, bool) {
	for _, field := range timestampFields {
		if ts, ok := ParseTime(record[field]); ok {
			return ts, true
		}
	}
	return time.Time{}, false
}

// Apply narrows records to those satisfying every supplied predicate.
// String predicates compare case-insensitively, identifier predicates
// exactly. When either date bound is set, records without a parseable
// timestamp are dropped.
func Apply(records []connector.Record, f Filters) []connector.Record {
	start, hasStart := ParseTime(f.StartDate)
	end, hasEnd := ParseTime(f.EndDate)
	rangeSet := f.StartDate != "" || f.EndDate != ""

	out := make([]connector.Record, 0, len(records))
	for _, record := range records {
		if f.TicketID > 0 && !intFieldEquals(record, "ticket_id", f.TicketID) {
			continue
		}
		if f.CustomerID > 0 && !intFieldEquals(record, "customer_id", f.CustomerID) {
			continue
		}
		if f.Status != "" && !stringFieldEquals(record, "status", f.Status) {
			continue
		}
		if f.Priority != "" && !stringFieldEquals(record, "priority", f.Priority) {
			continue
		}
		if f.Metric != "" && !stringFieldEquals(record, "metric", f.Metric) {
			continue
		}
		if rangeSet {
			ts, ok := BestTimestamp(record)
			if !ok {
				continue
			}
			if hasStart && ts.Before(start) {
				continue
			}
			if hasEnd && ts.After(end) {
				continue
			}
		}
		out = append(out, record)
	}
	return out
}

// SortNewestFirst orders records descending by best-available timestamp.
// Records without a parseable timestamp sort last. The input is not mutated.
func SortNewestFirst(records []connector.Record) []connector.Record {
	out := make([]connector.Record, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		ti, _ := BestTimestamp(out[i])
		tj, _ := BestTimestamp(out[j])
		return ti.After(tj)
	})
	return out
}

// Paginate slices records into 1-indexed pages. Page and size are clamped to
// a minimum of 1. The returned total page count is at least 1 even for an
// empty input, and hasNext reports whether a later page exists.
func Paginate(records []connector.Record, page, size int) (pageRows []connector.Record, totalPages int, hasNext bool) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 1
	}
	totalPages = (len(records) + size - 1) / size
	if totalPages < 1 {
		totalPages = 1
	}
	start := (page - 1) * size
	if start >= len(records) {
		return []connector.Record{}, totalPages, page < totalPages
	}
	end := start + size
	if end > len(records) {
		end = len(records)
	}
	return records[start:end], totalPages, page < totalPages
}

// Cap truncates records to min(requested, max) rows. It protects downstream
// voice consumers from oversized pages regardless of the requested size.
func Cap(records []connector.Record, requested, max int) []connector.Record {
	limit := requested
	if max > 0 && (limit <= 0 || limit > max) {
		limit = max
	}
	if limit <= 0 || len(records) <= limit {
		return records
	}
	return records[:limit]
}

func toString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}

func stringFieldEquals(record connector.Record, field, want string) bool {
	value, ok := record[field]
	if !ok {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(toString(value)), strings.TrimSpace(want))
}

func intFieldEquals(record connector.Record, field string, want int) bool {
	switch v := record[field].(type) {
	case int:
		return v == want
	case int64:
		return v == int64(want)
	case float64:
		return v == float64(want)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return err == nil && n == want
	default:
		return false
	}
}
