package assistant

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeDataSourceAlias(t *testing.T) {
	args, err := normalizeArguments(map[string]any{"data_source": "support"})
	require.NoError(t, err)
	require.Equal(t, "support", args["source"])
}

func TestNormalizeActiveUsersQuery(t *testing.T) {
	args, err := normalizeArguments(map[string]any{"query": "How many active users do we have?"})
	require.NoError(t, err)
	require.Equal(t, "crm", args["source"])
	require.Equal(t, "active", args["status"])
	require.Equal(t, 1, args["page"])
	require.Equal(t, 1, args["page_size"])
}

func TestNormalizeActiveUsersKeepsExplicitFilters(t *testing.T) {
	args, err := normalizeArguments(map[string]any{
		"query":  "count of active customers",
		"status": "trial",
		"page":   3,
	})
	require.NoError(t, err)
	require.Equal(t, "crm", args["source"])
	// setdefault semantics: explicit values survive.
	require.Equal(t, "trial", args["status"])
	require.Equal(t, 3, args["page"])
}

func TestNormalizeActiveUsersOverridesConflictingSource(t *testing.T) {
	args, err := normalizeArguments(map[string]any{
		"data_source": "analytics",
		"query":       "total active users",
	})
	require.NoError(t, err)
	// The recognized pattern wins over a mismatched source argument.
	require.Equal(t, "crm", args["source"])
	require.Equal(t, "active", args["status"])
	require.Equal(t, 1, args["page"])
	require.Equal(t, 1, args["page_size"])
}

func TestNormalizeDailyUsersDate(t *testing.T) {
	args, err := normalizeArguments(map[string]any{"query": "daily users for 2024-06-01 please"})
	require.NoError(t, err)
	require.Equal(t, "analytics", args["source"])
	require.Equal(t, "daily_active_users", args["metric"])
	require.Equal(t, "2024-06-01", args["start_date"])
	require.Equal(t, "2024-06-01", args["end_date"])
}

func TestNormalizeTicketReference(t *testing.T) {
	args, err := normalizeArguments(map[string]any{"query": "status of Ticket #123"})
	require.NoError(t, err)
	require.Equal(t, "support", args["source"])
	require.Equal(t, 123, args["ticket_id"])
}

func TestNormalizeCustomerReference(t *testing.T) {
	args, err := normalizeArguments(map[string]any{"query": "show customer 42"})
	require.NoError(t, err)
	require.Equal(t, "crm", args["source"])
	require.Equal(t, 42, args["customer_id"])
}

func TestNormalizeExplicitTicketIDNotOverwritten(t *testing.T) {
	args, err := normalizeArguments(map[string]any{
		"source":    "support",
		"ticket_id": float64(9),
		"query":     "compare with ticket #123",
	})
	require.NoError(t, err)
	require.Equal(t, float64(9), args["ticket_id"])
}

func TestNormalizeUnresolvedSource(t *testing.T) {
	_, err := normalizeArguments(map[string]any{"query": "tell me something"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestExtractToolArgsFromText(t *testing.T) {
	args := extractToolArgsFromText(
		"Sure, I'll run fetch_data(source=\"crm\", status='active', page=1, page_size=10) now.")
	require.Equal(t, map[string]any{
		"source":    "crm",
		"status":    "active",
		"page":      1,
		"page_size": 10,
	}, args)
}

func TestExtractToolArgsFromTextMultiline(t *testing.T) {
	args := extractToolArgsFromText("```\nFETCH_DATA(source=\"analytics\",\n  metric=\"page_views\")\n```")
	require.Equal(t, "analytics", args["source"])
	require.Equal(t, "page_views", args["metric"])
}

func TestExtractToolArgsFromTextNoCall(t *testing.T) {
	require.Nil(t, extractToolArgsFromText("There are 42 active customers."))
	require.Nil(t, extractToolArgsFromText("call fetch_data() with the right filters"))
}

func TestValidateToolArguments(t *testing.T) {
	require.NoError(t, validateToolArguments(map[string]any{
		"source":    "crm",
		"status":    "active",
		"page":      1,
		"page_size": 10,
	}))

	err := validateToolArguments(map[string]any{"source": "warehouse"})
	require.ErrorIs(t, err, ErrValidation)

	err = validateToolArguments(map[string]any{"source": "crm", "page_size": 51})
	require.ErrorIs(t, err, ErrValidation)

	err = validateToolArguments(map[string]any{"source": "crm", "ticket_id": 0})
	require.ErrorIs(t, err, ErrValidation)

	err = validateToolArguments(map[string]any{"source": "crm", "unexpected": true})
	require.ErrorIs(t, err, ErrValidation)
}

func TestCriteriaFromArgs(t *testing.T) {
	source, criteria, err := criteriaFromArgs(map[string]any{
		"source":     "analytics",
		"metric":     "page_views",
		"start_date": "2024-06-01",
		"end_date":   "2024-06-30",
		"page":       float64(2),
		"page_size":  float64(20),
	})
	require.NoError(t, err)
	require.Equal(t, "analytics", string(source))
	require.Equal(t, "page_views", criteria.Metric)
	require.Equal(t, 2, criteria.Page)
	require.Equal(t, 20, criteria.PageSize)

	_, _, err = criteriaFromArgs(map[string]any{"source": "nope"})
	require.ErrorIs(t, err, ErrValidation)
}
