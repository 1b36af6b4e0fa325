package assistant

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/unidatahq/udc/features/model"
	"github.com/unidatahq/udc/runtime/connector"
	"github.com/unidatahq/udc/runtime/query"
)

// ToolName is the single tool exposed to all providers.
const ToolName = "fetch_data"

// SystemPrompt is the fixed instruction sent with every provider call.
const SystemPrompt = "You are a data assistant for a SaaS company. " +
	"Use the fetch_data tool whenever user asks for CRM, support, or analytics information. " +
	"Always prefer precise filtered retrieval and respond concisely for voice interactions."

// toolInputSchema is the JSON Schema for fetch_data arguments, shared by all
// provider adapters and used to validate normalized arguments before
// execution.
func toolInputSchema() map[string]any {
	sourceEnum := []any{"crm", "support", "analytics"}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"source":      map[string]any{"type": "string", "enum": sourceEnum},
			"data_source": map[string]any{"type": "string", "enum": sourceEnum},
			"query":       map[string]any{"type": "string"},
			"ticket_id":   map[string]any{"type": "integer", "minimum": 1},
			"customer_id": map[string]any{"type": "integer", "minimum": 1},
			"page":        map[string]any{"type": "integer", "minimum": 1, "default": 1},
			"page_size":   map[string]any{"type": "integer", "minimum": 1, "maximum": 50, "default": 10},
			"status":      map[string]any{"type": "string"},
			"priority":    map[string]any{"type": "string"},
			"metric":      map[string]any{"type": "string"},
			"start_date":  map[string]any{"type": "string"},
			"end_date":    map[string]any{"type": "string"},
		},
		"required":             []any{"source"},
		"additionalProperties": false,
	}
}

// toolDefinition returns the fetch_data schema in the provider-agnostic form.
func toolDefinition() model.ToolDefinition {
	return model.ToolDefinition{
		Name:        ToolName,
		Description: "Fetch filtered business data from crm/support/analytics.",
		InputSchema: toolInputSchema(),
	}
}

var (
	compiledSchema     *jsonschema.Schema
	compileSchemaOnce  sync.Once
	compileSchemaError error
)

// validateToolArguments checks a normalized argument map against the
// fetch_data JSON Schema. Violations are reported as validation errors.
func validateToolArguments(args map[string]any) error {
	compileSchemaOnce.Do(func() {
		raw, err := json.Marshal(toolInputSchema())
		if err != nil {
			compileSchemaError = err
			return
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			compileSchemaError = err
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("tool:fetch_data", doc); err != nil {
			compileSchemaError = err
			return
		}
		compiledSchema, compileSchemaError = compiler.Compile("tool:fetch_data")
	})
	if compileSchemaError != nil {
		return fmt.Errorf("%w: compile tool schema: %v", ErrRuntime, compileSchemaError)
	}
	// Round-trip through JSON so numbers take their canonical decoded form.
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("%w: encode tool arguments: %v", ErrValidation, err)
	}
	value, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("%w: decode tool arguments: %v", ErrValidation, err)
	}
	if err := compiledSchema.Validate(value); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

// criteriaFromArgs converts a normalized argument map into the source and
// query criteria executed against the pipeline.
func criteriaFromArgs(args map[string]any) (connector.Source, query.Criteria, error) {
	source, err := connector.ParseSource(argString(args, "source"))
	if err != nil {
		return "", query.Criteria{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return source, query.Criteria{
		Page:       argInt(args, "page"),
		PageSize:   argInt(args, "page_size"),
		TicketID:   argInt(args, "ticket_id"),
		CustomerID: argInt(args, "customer_id"),
		Status:     argString(args, "status"),
		Priority:   argString(args, "priority"),
		Metric:     argString(args, "metric"),
		StartDate:  argString(args, "start_date"),
		EndDate:    argString(args, "end_date"),
	}, nil
}

// executedArgs renders the argument set actually executed, for the tool call
// record. Unset fields are omitted.
func executedArgs(source connector.Source, c query.Criteria) map[string]any {
	args := map[string]any{"source": string(source)}
	if c.Page > 0 {
		args["page"] = c.Page
	}
	if c.PageSize > 0 {
		args["page_size"] = c.PageSize
	}
	if c.TicketID > 0 {
		args["ticket_id"] = c.TicketID
	}
	if c.CustomerID > 0 {
		args["customer_id"] = c.CustomerID
	}
	if c.Status != "" {
		args["status"] = c.Status
	}
	if c.Priority != "" {
		args["priority"] = c.Priority
	}
	if c.Metric != "" {
		args["metric"] = c.Metric
	}
	if c.StartDate != "" {
		args["start_date"] = c.StartDate
	}
	if c.EndDate != "" {
		args["end_date"] = c.EndDate
	}
	return args
}

func argString(args map[string]any, key string) string {
	switch v := args[key].(type) {
	case string:
		return v
	default:
		return ""
	}
}

func argInt(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	}
	return 0
}
