package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"goa.design/clue/log"

	"github.com/unidatahq/udc/features/model"
	"github.com/unidatahq/udc/runtime/connector"
	"github.com/unidatahq/udc/runtime/query"
)

// DefaultTemperature is applied when a turn request does not set one.
const DefaultTemperature float32 = 0.2

// Config carries the orchestrator settings.
type Config struct {
	// Models holds the default model identifier per provider.
	Models Models
	// MaxTokens caps provider completions. Zero uses adapter defaults.
	MaxTokens int
}

// Service runs assistant turns against the unified query pipeline. Each turn
// is a pure function of the request, the store contents, and the provider's
// replies; no state is shared across turns.
type Service struct {
	data     *query.Service
	resolver CredentialResolver
	factory  ClientFactory
	cfg      Config
}

// NewService builds the tool-calling orchestrator.
func NewService(data *query.Service, resolver CredentialResolver, factory ClientFactory, cfg Config) *Service {
	return &Service{data: data, resolver: resolver, factory: factory, cfg: cfg}
}

// Run executes one assistant turn: deterministic fast paths first, then
// provider dispatch with the two round-trip tool-calling loop, then
// text-fallback recovery when the model failed to emit a structured call.
func (s *Service) Run(ctx context.Context, req TurnRequest) (*TurnResponse, error) {
	if _, err := ParseProvider(string(req.Provider)); err != nil {
		return nil, err
	}
	if req.UserQuery == "" {
		return nil, fmt.Errorf("%w: user_query is required", ErrValidation)
	}

	if date := detectDailyUsersDate(req.UserQuery); date != "" {
		log.Printf(ctx, "assistant.fastpath daily_users date=%s", date)
		return s.runDailyUsersForDate(ctx, req, date)
	}
	if isTotalActiveUsersQuery(req.UserQuery) {
		log.Printf(ctx, "assistant.fastpath total_active_users")
		return s.runTotalActiveUsers(ctx, req)
	}
	if id := detectTicketID(req.UserQuery); id > 0 {
		log.Printf(ctx, "assistant.fastpath ticket_lookup id=%d", id)
		return s.runTicketLookup(ctx, req, id)
	}
	if id := detectCustomerID(req.UserQuery); id > 0 {
		log.Printf(ctx, "assistant.fastpath customer_lookup id=%d", id)
		return s.runCustomerLookup(ctx, req, id)
	}

	return s.runProvider(ctx, req)
}

func (s *Service) resolveModel(req TurnRequest) string {
	if req.Model != "" {
		return req.Model
	}
	return s.cfg.Models.Default(req.Provider)
}

// execute runs one pipeline query on behalf of a tool call or fast path.
// Criteria violations surface as validation errors, store and pipeline
// failures as runtime errors.
func (s *Service) execute(ctx context.Context, source connector.Source, criteria query.Criteria) (*query.Result, error) {
	result, err := s.data.GetUnifiedData(ctx, source, criteria)
	if err != nil {
		if isValidation(err) {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return nil, fmt.Errorf("%w: execute %s: %w", ErrRuntime, ToolName, err)
	}
	return result, nil
}

// executeToolCall normalizes, validates, and executes one tool invocation.
func (s *Service) executeToolCall(ctx context.Context, rawArgs map[string]any) (ToolCallRecord, connector.Source, query.Criteria, error) {
	normalized, err := normalizeArguments(rawArgs)
	if err != nil {
		return ToolCallRecord{}, "", query.Criteria{}, err
	}
	if err := validateToolArguments(normalized); err != nil {
		return ToolCallRecord{}, "", query.Criteria{}, err
	}
	source, criteria, err := criteriaFromArgs(normalized)
	if err != nil {
		return ToolCallRecord{}, "", query.Criteria{}, err
	}
	result, err := s.execute(ctx, source, criteria)
	if err != nil {
		return ToolCallRecord{}, "", query.Criteria{}, err
	}
	record := ToolCallRecord{
		ToolName:  ToolName,
		Arguments: executedArgs(source, criteria),
		Result:    result,
	}
	return record, source, criteria, nil
}

// runProvider performs the two round-trip tool-calling conversation with the
// selected provider.
func (s *Service) runProvider(ctx context.Context, req TurnRequest) (*TurnResponse, error) {
	apiKey, err := s.resolver.Resolve(ctx, req.Provider, req.APIKey, req.APIKeyID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	client, err := s.factory.Client(req.Provider, apiKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	modelName := s.resolveModel(req)
	temperature := req.Temperature
	if temperature == 0 {
		temperature = DefaultTemperature
	}
	userMessage := model.Message{
		Role:  model.RoleUser,
		Parts: []model.Part{model.TextPart{Text: req.UserQuery}},
	}
	request := model.Request{
		Model:       modelName,
		System:      SystemPrompt,
		Messages:    []model.Message{userMessage},
		Temperature: temperature,
		MaxTokens:   s.cfg.MaxTokens,
		Tools:       []model.ToolDefinition{toolDefinition()},
	}

	first, err := client.Complete(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRuntime, req.Provider, err)
	}

	var (
		records     []ToolCallRecord
		resultParts []model.Part
	)
	for _, call := range first.ToolCalls {
		if call.Name != ToolName {
			continue
		}
		record, _, _, err := s.executeToolCall(ctx, call.Arguments)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
		payload, err := json.Marshal(record.Result)
		if err != nil {
			return nil, fmt.Errorf("%w: encode tool result: %v", ErrRuntime, err)
		}
		resultParts = append(resultParts, model.ToolResultPart{
			ToolUseID: call.ID,
			Content:   string(payload),
		})
	}

	// Nothing executed, either because the model emitted no tool calls or
	// because every call named an unknown tool. Echoing such a response back
	// would leave tool_use blocks without paired results, so the turn ends
	// here: recover a call from the text if possible, else pass the text
	// through.
	if len(records) == 0 {
		answer := first.Text()
		if recovered, err := s.recoverFromText(ctx, req, modelName, answer, first.Usage); err != nil {
			return nil, err
		} else if recovered != nil {
			return recovered, nil
		}
		return &TurnResponse{
			Provider:  req.Provider,
			Model:     modelName,
			Answer:    answer,
			ToolCalls: []ToolCallRecord{},
			Usage:     first.Usage,
		}, nil
	}

	// The second round trip echoes the assistant message with its typed
	// parts intact so tool_use blocks stay paired with their results. The
	// tool is not offered again: its results are already in the history and
	// a second call could never be executed.
	request.Messages = []model.Message{
		userMessage,
		first.Message,
		{Role: model.RoleUser, Parts: resultParts},
	}
	request.Tools = nil
	second, err := client.Complete(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRuntime, req.Provider, err)
	}

	return &TurnResponse{
		Provider:  req.Provider,
		Model:     modelName,
		Answer:    second.Text(),
		ToolCalls: records,
		Usage:     second.Usage,
	}, nil
}

// recoverFromText salvages a turn where the model described a fetch_data call
// in its answer text instead of emitting a structured tool call. The parsed
// call runs through the same normalization and execution step, and the final
// answer is synthesized from the result metadata rather than trusting the
// model's prose.
func (s *Service) recoverFromText(ctx context.Context, req TurnRequest, modelName, answer string, usage model.TokenUsage) (*TurnResponse, error) {
	args := extractToolArgsFromText(answer)
	if args == nil {
		return nil, nil
	}
	log.Printf(ctx, "assistant.recover_text_tool_call provider=%s", req.Provider)
	record, source, criteria, err := s.executeToolCall(ctx, args)
	if err != nil {
		return nil, err
	}
	return &TurnResponse{
		Provider:  req.Provider,
		Model:     modelName,
		Answer:    buildFinalAnswer(source, criteria, record.Result),
		ToolCalls: []ToolCallRecord{record},
		Usage:     usage,
	}, nil
}

func isValidation(err error) bool {
	return errors.Is(err, query.ErrInvalidCriteria)
}
