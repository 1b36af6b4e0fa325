// Package connector supplies raw records for the three fixed business data
// sources (CRM customers, support tickets, analytics metrics). Stores return
// ordered batches of open-schema records; the query pipeline never mutates
// them, only derives copies.
package connector

import (
	"context"
	"errors"
	"fmt"
)

type (
	// Record is one open-schema data item from a source. Values may be
	// strings, numbers, or nested structures; no schema is enforced beyond
	// the identifying fields each source is expected to carry.
	Record = map[string]any

	// Source identifies one of the fixed data domains.
	Source string

	// Store fetches the full raw batch for a source. Implementations must
	// return records in stable order so identical queries yield identical
	// results.
	Store interface {
		Fetch(ctx context.Context, source Source) ([]Record, error)
	}
)

// Supported data sources.
const (
	SourceCRM       Source = "crm"
	SourceSupport   Source = "support"
	SourceAnalytics Source = "analytics"
)

// ErrSourceUnavailable indicates the backing data for a source is missing or
// corrupt. It is surfaced to callers as a service-unavailable condition and is
// never downgraded to an empty result.
var ErrSourceUnavailable = errors.New("connector: source unavailable")

// ErrUnknownSource indicates a source identifier outside the supported set.
var ErrUnknownSource = errors.New("connector: unknown source")

// ParseSource validates a source identifier.
func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case SourceCRM, SourceSupport, SourceAnalytics:
		return Source(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSource, s)
}

// Sources lists the supported source identifiers in a stable order.
func Sources() []Source {
	return []Source{SourceCRM, SourceSupport, SourceAnalytics}
}
