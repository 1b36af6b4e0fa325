package query

import (
	"context"
	"fmt"
	"time"

	"goa.design/clue/log"

	"github.com/unidatahq/udc/runtime/connector"
	"github.com/unidatahq/udc/runtime/rules"
	"github.com/unidatahq/udc/runtime/shape"
)

// Service runs the unified query pipeline against a record store. It holds no
// mutable state; concurrent calls are independent.
type Service struct {
	store connector.Store
	cfg   Config
	now   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the freshness clock. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService builds a query service over the given store with the supplied
// policy thresholds (zero fields fall back to the shipped defaults).
func NewService(store connector.Store, cfg Config, opts ...Option) *Service {
	s := &Service{store: store, cfg: cfg.withDefaults(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the effective policy thresholds.
func (s *Service) Config() Config { return s.cfg }

// GetUnifiedData fetches, filters, sorts, paginates, caps, transforms, and
// summarizes records from source, returning the envelope with voice-friendly
// metadata. Store failures propagate as connector.ErrSourceUnavailable; they
// are never downgraded to an empty page.
func (s *Service) GetUnifiedData(ctx context.Context, source connector.Source, criteria Criteria) (*Result, error) {
	if err := criteria.Validate(s.cfg.MaxPageSize); err != nil {
		return nil, err
	}
	criteria = criteria.normalized()

	raw, err := s.store.Fetch(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("query: fetch %s: %w", source, err)
	}

	filtered := rules.Apply(raw, rules.Filters{
		TicketID:   criteria.TicketID,
		CustomerID: criteria.CustomerID,
		Status:     criteria.Status,
		Priority:   criteria.Priority,
		Metric:     criteria.Metric,
		StartDate:  criteria.StartDate,
		EndDate:    criteria.EndDate,
	})

	sorted := rules.SortNewestFirst(filtered)
	paged, totalPages, hasNext := rules.Paginate(sorted, criteria.Page, criteria.PageSize)
	capped := rules.Cap(paged, criteria.PageSize, s.cfg.MaxResults)

	// Shape is classified on the raw batch so an empty filtered page still
	// reports the source's structure; the transform applies to the page only.
	kind := shape.Classify(raw)
	transformed := shape.Transform(capped, kind)

	optimized := SummarizeIfLarge(transformed, len(filtered), s.cfg.SummaryThreshold)

	freshness := shape.Inspect(raw, s.now())

	log.Print(ctx, log.KV{K: "source", V: string(source)},
		log.KV{K: "total", V: len(filtered)},
		log.KV{K: "returned", V: len(optimized)},
		log.KV{K: "shape", V: string(kind)})

	return &Result{
		Data: optimized,
		Metadata: Metadata{
			TotalResults:       len(filtered),
			ReturnedResults:    len(optimized),
			DataFreshness:      freshness.Description,
			StalenessIndicator: freshness.Tier,
			DataType:           kind,
			VoiceContext:       fmt.Sprintf("Showing %d of %d results", len(optimized), len(filtered)),
			Page:               criteria.Page,
			PageSize:           criteria.PageSize,
			TotalPages:         totalPages,
			HasNext:            hasNext,
		},
	}, nil
}
