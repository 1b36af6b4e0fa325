package assistant

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	isoDatePattern     = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	ticketRefPattern   = regexp.MustCompile(`(?i)\bticket\s*#?\s*(\d+)\b`)
	customerRefPattern = regexp.MustCompile(`(?i)\bcustomer\s*#?\s*(\d+)\b`)
)

// normalizeArguments applies the argument recovery heuristics in order, each
// rule only filling fields not already set. Models frequently put the intent
// in a free-text query field instead of the structured filters; these rules
// translate the recognizable patterns into executable arguments. An argument
// set with no resolvable source fails with a validation error rather than
// defaulting to a source.
func normalizeArguments(args map[string]any) (map[string]any, error) {
	normalized := make(map[string]any, len(args))
	for k, v := range args {
		normalized[k] = v
	}

	if argString(normalized, "source") == "" && argString(normalized, "data_source") != "" {
		normalized["source"] = normalized["data_source"]
	}

	freeText := strings.ToLower(argString(normalized, "query"))

	if strings.Contains(freeText, "active users") || strings.Contains(freeText, "active customers") {
		normalized["source"] = "crm"
		setDefault(normalized, "status", "active")
		setDefault(normalized, "page", 1)
		setDefault(normalized, "page_size", 1)
	}

	if date := extractISODate(freeText); date != "" && containsAny(freeText, "daily users", "daily active users", "dau") {
		normalized["source"] = "analytics"
		setDefault(normalized, "metric", "daily_active_users")
		setDefault(normalized, "start_date", date)
		setDefault(normalized, "end_date", date)
		setDefault(normalized, "page", 1)
		setDefault(normalized, "page_size", 1)
	}

	if argInt(normalized, "ticket_id") == 0 {
		if id := matchID(ticketRefPattern, freeText); id > 0 {
			normalized["ticket_id"] = id
			setDefault(normalized, "source", "support")
			setDefault(normalized, "page", 1)
			setDefault(normalized, "page_size", 1)
		}
	}

	if argInt(normalized, "customer_id") == 0 {
		if id := matchID(customerRefPattern, freeText); id > 0 {
			normalized["customer_id"] = id
			setDefault(normalized, "source", "crm")
			setDefault(normalized, "page", 1)
			setDefault(normalized, "page_size", 1)
		}
	}

	if argString(normalized, "source") == "" {
		return nil, fmt.Errorf("%w: fetch_data requires source (crm/support/analytics)", ErrValidation)
	}
	return normalized, nil
}

// setDefault sets key only when it is absent or empty.
func setDefault(args map[string]any, key string, value any) {
	if existing, ok := args[key]; ok {
		switch v := existing.(type) {
		case string:
			if v != "" {
				return
			}
		case nil:
		default:
			return
		}
	}
	args[key] = value
}

func extractISODate(text string) string {
	m := isoDatePattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

func matchID(pattern *regexp.Regexp, text string) int {
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return id
}

func containsAny(text string, tokens ...string) bool {
	for _, token := range tokens {
		if strings.Contains(text, token) {
			return true
		}
	}
	return false
}
