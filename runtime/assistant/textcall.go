package assistant

import (
	"regexp"
	"strconv"
	"strings"
)

// Some models describe the tool call in prose instead of emitting the
// provider's structured format, typically as a fetch_data(key="value", ...)
// snippet inside a code fence. The parser below recovers such pseudo-calls
// with a permissive key=value grammar: numeric literals unquoted, strings
// single- or double-quoted. It is deliberately independent of the structured
// provider parsing; both feed the same normalization and execution step.
var (
	textCallPattern = regexp.MustCompile(`(?is)fetch_data\((.*?)\)`)
	textArgPattern  = regexp.MustCompile(`(\w+)\s*=\s*("[^"]*"|'[^']*'|\d+)`)
)

// extractToolArgsFromText parses a textual fetch_data pseudo-call out of a
// model answer. Returns nil when the answer contains no parseable call.
func extractToolArgsFromText(answer string) map[string]any {
	call := textCallPattern.FindStringSubmatch(answer)
	if call == nil {
		return nil
	}
	pairs := textArgPattern.FindAllStringSubmatch(call[1], -1)
	if len(pairs) == 0 {
		return nil
	}
	args := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value := pair[1], pair[2]
		if n, err := strconv.Atoi(value); err == nil {
			args[key] = n
			continue
		}
		args[key] = strings.Trim(value, `"'`)
	}
	return args
}
