package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/unidatahq/udc/runtime/connector"
	"github.com/unidatahq/udc/runtime/query"
)

// Deterministic fast paths. Free-text LLM tool calling is not reliably
// deterministic for these high-value lookups, so recognized patterns
// short-circuit the provider entirely and produce a reproducible answer plus
// one synthetic tool call record.

func detectDailyUsersDate(userQuery string) string {
	text := strings.ToLower(userQuery)
	if !containsAny(text, "daily users", "daily active users", "dau") {
		return ""
	}
	return extractISODate(text)
}

func isTotalActiveUsersQuery(userQuery string) bool {
	text := strings.ToLower(userQuery)
	return containsAny(text, "total", "count", "how many") &&
		containsAny(text, "active user", "active customer")
}

func detectTicketID(userQuery string) int {
	return matchID(ticketRefPattern, userQuery)
}

func detectCustomerID(userQuery string) int {
	return matchID(customerRefPattern, userQuery)
}

func (s *Service) runTicketLookup(ctx context.Context, req TurnRequest, ticketID int) (*TurnResponse, error) {
	criteria := query.Criteria{TicketID: ticketID, Page: 1, PageSize: 1}
	result, err := s.execute(ctx, connector.SourceSupport, criteria)
	if err != nil {
		return nil, err
	}
	answer := fmt.Sprintf("Ticket %d was not found in support data.", ticketID)
	if len(result.Data) > 0 {
		ticket := result.Data[0]
		answer = fmt.Sprintf("Ticket %d is %s with %s priority, created at %s.",
			ticketID, recordString(ticket, "status"), recordString(ticket, "priority"),
			recordString(ticket, "created_at"))
	}
	return s.fastPathResponse(req, answer, connector.SourceSupport, criteria, result), nil
}

func (s *Service) runCustomerLookup(ctx context.Context, req TurnRequest, customerID int) (*TurnResponse, error) {
	criteria := query.Criteria{CustomerID: customerID, Page: 1, PageSize: 1}
	result, err := s.execute(ctx, connector.SourceCRM, criteria)
	if err != nil {
		return nil, err
	}
	answer := fmt.Sprintf("Customer %d was not found in CRM data.", customerID)
	if len(result.Data) > 0 {
		customer := result.Data[0]
		answer = fmt.Sprintf("Customer %d is %s (%s) with status %s.",
			customerID, recordString(customer, "name"), recordString(customer, "email"),
			recordString(customer, "status"))
	}
	return s.fastPathResponse(req, answer, connector.SourceCRM, criteria, result), nil
}

func (s *Service) runTotalActiveUsers(ctx context.Context, req TurnRequest) (*TurnResponse, error) {
	activeCriteria := query.Criteria{Status: "active", Page: 1, PageSize: 1}
	active, err := s.execute(ctx, connector.SourceCRM, activeCriteria)
	if err != nil {
		return nil, err
	}
	total, err := s.execute(ctx, connector.SourceCRM, query.Criteria{Page: 1, PageSize: 1})
	if err != nil {
		return nil, err
	}
	answer := fmt.Sprintf("Total active users: %d out of %d customers.",
		active.Metadata.TotalResults, total.Metadata.TotalResults)
	return s.fastPathResponse(req, answer, connector.SourceCRM, activeCriteria, active), nil
}

func (s *Service) runDailyUsersForDate(ctx context.Context, req TurnRequest, targetDate string) (*TurnResponse, error) {
	criteria := query.Criteria{
		Metric:    "daily_active_users",
		StartDate: targetDate,
		EndDate:   targetDate,
		Page:      1,
		PageSize:  1,
	}
	result, err := s.execute(ctx, connector.SourceAnalytics, criteria)
	if err != nil {
		return nil, err
	}
	answer := fmt.Sprintf("No daily_active_users data found for %s.", targetDate)
	if len(result.Data) > 0 {
		answer = fmt.Sprintf("Total daily users on %s: %v.", targetDate, recordValue(result.Data[0]))
	}
	return s.fastPathResponse(req, answer, connector.SourceAnalytics, criteria, result), nil
}

func (s *Service) fastPathResponse(req TurnRequest, answer string, source connector.Source, criteria query.Criteria, result *query.Result) *TurnResponse {
	return &TurnResponse{
		Provider: req.Provider,
		Model:    s.resolveModel(req),
		Answer:   answer,
		ToolCalls: []ToolCallRecord{{
			ToolName:  ToolName,
			Arguments: executedArgs(source, criteria),
			Result:    result,
		}},
	}
}

func recordString(record connector.Record, key string) string {
	if v, ok := record[key].(string); ok && v != "" {
		return v
	}
	return "unknown"
}

func recordValue(record connector.Record) any {
	if v, ok := record["value"]; ok {
		return v
	}
	return "unknown"
}
