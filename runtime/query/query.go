// Package query composes the record stores, business rules, shape transforms,
// and voice summarizer into one deterministic pipeline. Service.GetUnifiedData
// is the sole entry point for the data query endpoint: repeating the same
// criteria against an unchanged store yields byte-identical results, which is
// what boundary-level response caching relies on.
package query

import (
	"errors"
	"fmt"

	"github.com/unidatahq/udc/runtime/connector"
	"github.com/unidatahq/udc/runtime/shape"
)

type (
	// Criteria is the immutable filter/pagination value object for one query.
	// Zero values mean "not supplied"; Page and PageSize default to 1 and
	// DefaultPageSize when unset.
	Criteria struct {
		Page       int    `json:"page,omitempty"`
		PageSize   int    `json:"page_size,omitempty"`
		TicketID   int    `json:"ticket_id,omitempty"`
		CustomerID int    `json:"customer_id,omitempty"`
		Status     string `json:"status,omitempty"`
		Priority   string `json:"priority,omitempty"`
		Metric     string `json:"metric,omitempty"`
		StartDate  string `json:"start_date,omitempty"`
		EndDate    string `json:"end_date,omitempty"`
	}

	// Metadata describes a page of results for voice consumers.
	Metadata struct {
		TotalResults       int             `json:"total_results"`
		ReturnedResults    int             `json:"returned_results"`
		DataFreshness      string          `json:"data_freshness"`
		StalenessIndicator shape.Staleness `json:"staleness_indicator"`
		DataType           shape.Kind      `json:"data_type"`
		VoiceContext       string          `json:"voice_context"`
		Page               int             `json:"page"`
		PageSize           int             `json:"page_size"`
		TotalPages         int             `json:"total_pages"`
		HasNext            bool            `json:"has_next"`
	}

	// Result is the response envelope produced by the pipeline.
	Result struct {
		Data     []connector.Record `json:"data"`
		Metadata Metadata           `json:"metadata"`
	}

	// Config carries the pipeline policy thresholds. Thresholds are threaded
	// explicitly so the pipeline stages stay pure and independently testable.
	Config struct {
		// MaxResults is the hard cap on returned rows regardless of the
		// requested page size.
		MaxResults int
		// SummaryThreshold is the returned-row count above which a page is
		// collapsed into a single summary record.
		SummaryThreshold int
		// MaxPageSize bounds the caller-supplied page size.
		MaxPageSize int
	}
)

// Default policy thresholds, matching the shipped configuration.
const (
	DefaultPageSize         = 10
	DefaultMaxResults       = 10
	DefaultSummaryThreshold = 10
	DefaultMaxPageSize      = 50
)

// ErrInvalidCriteria indicates caller-supplied criteria fail structural
// constraints.
var ErrInvalidCriteria = errors.New("query: invalid criteria")

// DefaultConfig returns the shipped policy thresholds.
func DefaultConfig() Config {
	return Config{
		MaxResults:       DefaultMaxResults,
		SummaryThreshold: DefaultSummaryThreshold,
		MaxPageSize:      DefaultMaxPageSize,
	}
}

// withDefaults fills zero fields with the shipped thresholds.
func (c Config) withDefaults() Config {
	if c.MaxResults <= 0 {
		c.MaxResults = DefaultMaxResults
	}
	if c.SummaryThreshold <= 0 {
		c.SummaryThreshold = DefaultSummaryThreshold
	}
	if c.MaxPageSize <= 0 {
		c.MaxPageSize = DefaultMaxPageSize
	}
	return c
}

// normalized returns a copy with pagination defaults applied.
func (c Criteria) normalized() Criteria {
	if c.Page == 0 {
		c.Page = 1
	}
	if c.PageSize == 0 {
		c.PageSize = DefaultPageSize
	}
	return c
}

// Validate checks the structural constraints on caller-supplied criteria.
func (c Criteria) Validate(maxPageSize int) error {
	if c.Page < 0 {
		return fmt.Errorf("%w: page must be >= 1", ErrInvalidCriteria)
	}
	if c.PageSize < 0 {
		return fmt.Errorf("%w: page_size must be >= 1", ErrInvalidCriteria)
	}
	if maxPageSize > 0 && c.PageSize > maxPageSize {
		return fmt.Errorf("%w: page_size must be <= %d", ErrInvalidCriteria, maxPageSize)
	}
	if c.TicketID < 0 || c.CustomerID < 0 {
		return fmt.Errorf("%w: identifiers must be >= 1", ErrInvalidCriteria)
	}
	return nil
}
