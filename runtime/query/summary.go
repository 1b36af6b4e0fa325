package query

import (
	"fmt"

	"github.com/unidatahq/udc/runtime/connector"
)

// SummarizeIfLarge collapses an over-large page into a single synthetic
// summary record when the returned row count exceeds threshold. The summary
// quotes the true filtered total, not the page size; preview_count records
// how many rows were replaced. Below threshold the page passes through
// unchanged. Must run after pagination and capping.
func SummarizeIfLarge(records []connector.Record, totalCount, threshold int) []connector.Record {
	returned := len(records)
	if threshold <= 0 || returned <= threshold {
		return records
	}
	return []connector.Record{{
		"summary":       fmt.Sprintf("%d records found. Returning a concise voice summary.", totalCount),
		"preview_count": returned,
	}}
}
