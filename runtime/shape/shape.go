// Package shape classifies record batches by structural sampling and applies
// shape-specific transforms. Classification looks only at the first record of
// a batch; it is a cheap heuristic over homogeneous source data, not
// per-record validation.
package shape

import (
	"fmt"
	"sort"
	"time"

	"github.com/unidatahq/udc/runtime/connector"
	"github.com/unidatahq/udc/runtime/rules"
)

// Kind tags the detected structure of a record batch.
type Kind string

// Batch shape tags.
const (
	KindEmpty        Kind = "empty"
	KindHierarchical Kind = "hierarchical"
	KindTimeSeries   Kind = "time_series"
	KindTabular      Kind = "tabular"
	KindUnknown      Kind = "unknown"
)

// Staleness buckets the age of a batch's newest timestamp.
type Staleness string

// Staleness tiers. The 24h/7d boundaries are policy constants carried over
// from the source behavior.
const (
	StalenessFresh     Staleness = "fresh"
	StalenessStale     Staleness = "stale"
	StalenessVeryStale Staleness = "very_stale"
	StalenessUnknown   Staleness = "unknown"
)

// Freshness describes how current a batch is, derived from the maximum
// parseable timestamp found across all records.
type Freshness struct {
	// Description is a human-readable freshness string for response metadata.
	Description string
	// Tier is the staleness bucket.
	Tier Staleness
}

// Classify inspects the first record of a batch: any nested structure value
// means hierarchical, else a date field means time_series, else an
// identifying id field means tabular. An empty batch is empty, anything
// else unknown.
func Classify(records []connector.Record) Kind {
	if len(records) == 0 {
		return KindEmpty
	}
	first := records[0]
	for _, value := range first {
		switch value.(type) {
		case map[string]any, []any:
			return KindHierarchical
		}
	}
	if _, ok := first["date"]; ok {
		return KindTimeSeries
	}
	if _, ok := first["customer_id"]; ok {
		return KindTabular
	}
	if _, ok := first["ticket_id"]; ok {
		return KindTabular
	}
	return KindUnknown
}

// Transform applies the shape-specific transform to records: time-series
// batches are re-sorted descending by their date field, hierarchical records
// have one level of nested-object fields flattened into dotted keys. Nested
// lists are left intact; deeper flattening was never part of the source
// behavior. Other shapes pass through unchanged.
func Transform(records []connector.Record, kind Kind) []connector.Record {
	if len(records) == 0 {
		return records
	}
	switch kind {
	case KindTimeSeries:
		return sortByDateDesc(records)
	case KindHierarchical:
		out := make([]connector.Record, len(records))
		for i, record := range records {
			out[i] = flatten(record)
		}
		return out
	default:
		return records
	}
}

// Inspect computes the freshness of a batch by scanning every record for its
// first populated timestamp candidate and bucketing the age of the newest
// one found, relative to now.
func Inspect(records []connector.Record, now time.Time) Freshness {
	if len(records) == 0 {
		return Freshness{Description: "No data available", Tier: StalenessUnknown}
	}
	var latest time.Time
	found := false
	for _, record := range records {
		ts, ok := rules.BestTimestamp(record)
		if !ok {
			continue
		}
		if !found || ts.After(latest) {
			latest = ts
			found = true
		}
	}
	if !found {
		return Freshness{Description: "Timestamp unavailable", Tier: StalenessUnknown}
	}
	age := now.Sub(latest)
	tier := StalenessVeryStale
	switch {
	case age <= 24*time.Hour:
		tier = StalenessFresh
	case age <= 7*24*time.Hour:
		tier = StalenessStale
	}
	return Freshness{
		Description: fmt.Sprintf("Data as of %s", latest.Format(time.RFC3339)),
		Tier:        tier,
	}
}

func sortByDateDesc(records []connector.Record) []connector.Record {
	out := make([]connector.Record, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		ti, _ := rules.ParseTime(out[i]["date"])
		tj, _ := rules.ParseTime(out[j]["date"])
		return ti.After(tj)
	})
	return out
}

func flatten(record connector.Record) connector.Record {
	out := make(connector.Record, len(record))
	for key, value := range record {
		nested, ok := value.(map[string]any)
		if !ok {
			out[key] = value
			continue
		}
		for nestedKey, nestedValue := range nested {
			out[key+"."+nestedKey] = nestedValue
		}
	}
	return out
}
