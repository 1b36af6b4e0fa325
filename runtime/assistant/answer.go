package assistant

import (
	"fmt"

	"github.com/unidatahq/udc/runtime/connector"
	"github.com/unidatahq/udc/runtime/query"
)

// buildFinalAnswer synthesizes a deterministic answer from an executed tool
// call. Used by the text-fallback recovery path, where the model's own prose
// described a tool call instead of performing one and cannot be trusted to
// reflect the actual result.
func buildFinalAnswer(source connector.Source, criteria query.Criteria, result *query.Result) string {
	if source == connector.SourceAnalytics && criteria.Metric == "daily_active_users" &&
		criteria.StartDate != "" && criteria.StartDate == criteria.EndDate {
		if len(result.Data) > 0 {
			return fmt.Sprintf("Total daily users on %s: %v.", criteria.StartDate, recordValue(result.Data[0]))
		}
		return fmt.Sprintf("No daily_active_users data found for %s.", criteria.StartDate)
	}
	if source == connector.SourceCRM && criteria.Status == "active" {
		return fmt.Sprintf("Total active users: %d.", result.Metadata.TotalResults)
	}
	return fmt.Sprintf("Fetched %d of %d records from %s.",
		result.Metadata.ReturnedResults, result.Metadata.TotalResults, source)
}
