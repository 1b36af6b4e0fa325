// Package assistant implements the tool-calling orchestrator. It owns the
// conversation protocol per LLM provider, the fetch_data tool schema,
// argument normalization and recovery heuristics, and the deterministic fast
// paths that bypass the LLM entirely for recognized query patterns. A turn is
// constructed per request, computed synchronously, and discarded; no
// conversation state persists across turns.
package assistant

import (
	"context"
	"errors"
	"fmt"

	"github.com/unidatahq/udc/features/model"
	"github.com/unidatahq/udc/runtime/query"
)

type (
	// Provider identifies an LLM provider family.
	Provider string

	// TurnRequest is the input for one assistant turn.
	TurnRequest struct {
		Provider Provider `json:"provider"`
		// UserQuery is the natural-language question.
		UserQuery string `json:"user_query"`
		// Model optionally overrides the configured provider model.
		Model string `json:"model,omitempty"`
		// Temperature defaults to 0.2 when zero.
		Temperature float32 `json:"temperature,omitempty"`
		// APIKeyID references a stored provider key.
		APIKeyID string `json:"api_key_id,omitempty"`
		// APIKey supplies an explicit provider key for this request only.
		APIKey string `json:"api_key,omitempty"`
	}

	// ToolCallRecord captures one orchestrator-to-pipeline invocation during
	// a turn: the normalized argument set actually executed and its result.
	// Recorded for response transparency, never re-read.
	ToolCallRecord struct {
		ToolName  string         `json:"tool_name"`
		Arguments map[string]any `json:"arguments"`
		Result    *query.Result  `json:"result"`
	}

	// TurnResponse is the output of one assistant turn.
	TurnResponse struct {
		Provider  Provider         `json:"provider"`
		Model     string           `json:"model"`
		Answer    string           `json:"answer"`
		ToolCalls []ToolCallRecord `json:"tool_calls"`
		Usage     model.TokenUsage `json:"usage"`
	}

	// CredentialResolver resolves the provider API key for a turn: explicit
	// request key, then stored key by id, then the configured default.
	// Implementations return ErrNotConfigured when no tier yields a key.
	CredentialResolver interface {
		Resolve(ctx context.Context, provider Provider, explicitKey, storedKeyID string) (string, error)
	}

	// ClientFactory builds a provider client bound to a resolved credential.
	// Injected so tests can substitute mock clients and fast-path tests can
	// assert no client is ever constructed.
	ClientFactory interface {
		Client(provider Provider, apiKey string) (model.Client, error)
	}

	// Models carries the configured default model identifiers per provider.
	Models struct {
		OpenAI    string
		Anthropic string
		Gemini    string
	}
)

// Supported providers.
const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
)

// Error classes. Configuration errors mean the caller must fix setup;
// runtime errors mean the provider call or tool execution failed after
// credentials were resolved and may be retried; validation errors mean the
// supplied or normalized arguments fail structural constraints.
var (
	ErrConfiguration = errors.New("assistant: configuration error")
	ErrRuntime       = errors.New("assistant: runtime error")
	ErrValidation    = errors.New("assistant: validation error")
	ErrNotConfigured = errors.New("assistant: api key not configured")
)

// ParseProvider validates a provider identifier.
func ParseProvider(s string) (Provider, error) {
	switch Provider(s) {
	case ProviderOpenAI, ProviderAnthropic, ProviderGemini:
		return Provider(s), nil
	}
	return "", fmt.Errorf("%w: unsupported provider %q", ErrConfiguration, s)
}

// Default returns the configured model identifier for provider.
func (m Models) Default(p Provider) string {
	switch p {
	case ProviderOpenAI:
		return m.OpenAI
	case ProviderAnthropic:
		return m.Anthropic
	case ProviderGemini:
		return m.Gemini
	}
	return "unknown"
}
