// Package model defines the provider-agnostic contract for LLM chat/tool-call
// clients. The assistant orchestrator owns the conversation and the tool
// schema; adapters (openai, anthropic) own their wire formats and translate
// these normalized types to and from provider-specific requests. Implementing
// clients must be safe for concurrent use.
package model

import (
	"context"
	"errors"
	"strings"
)

type (
	// Client sends one chat completion round trip to a provider. The second
	// round trip of a tool-calling turn reuses Complete with the prior
	// assistant message and tool results appended to Messages, so adapters
	// that pair tool_use and tool_result blocks can re-encode the full typed
	// history.
	Client interface {
		Complete(ctx context.Context, req Request) (*Response, error)
	}

	// Request captures the normalized parameters for one provider call.
	Request struct {
		// Model is the provider-specific model identifier.
		Model string
		// System is the system instruction, sent the way the provider
		// expects (leading system message or top-level field).
		System string
		// Messages is the ordered conversation history.
		Messages []Message
		// Temperature controls sampling (0.0–1.0 for the supported
		// providers).
		Temperature float32
		// MaxTokens caps completion length. Zero means the adapter default.
		MaxTokens int
		// Tools lists the tool schemas exposed for function calling.
		Tools []ToolDefinition
	}

	// Message is one conversation entry. Parts keeps the provider-visible
	// ordering of text and tool blocks so typed histories survive a round
	// trip intact.
	Message struct {
		Role  Role
		Parts []Part
	}

	// Role is a conversation role.
	Role string

	// Part is one typed content block within a message.
	Part interface{ part() }

	// TextPart is plain assistant/user text.
	TextPart struct {
		Text string
	}

	// ToolUsePart is a tool invocation requested by the model.
	ToolUsePart struct {
		ID    string
		Name  string
		Input map[string]any
	}

	// ToolResultPart feeds a tool execution result back to the model. It
	// must reference the ID of the tool_use it answers.
	ToolResultPart struct {
		ToolUseID string
		Content   string
		IsError   bool
	}

	// ToolDefinition describes one tool schema passed to the provider.
	ToolDefinition struct {
		Name        string
		Description string
		InputSchema map[string]any
	}

	// ToolCall is a tool invocation extracted from a provider response, with
	// arguments decoded into a plain map.
	ToolCall struct {
		ID        string
		Name      string
		Arguments map[string]any
	}

	// Response is the normalized provider reply for one round trip.
	Response struct {
		// Message is the assistant message with its ordered typed parts,
		// suitable for echoing back verbatim on the next round trip.
		Message Message
		// ToolCalls lists the tool invocations the model requested, in
		// order. Empty when the model answered with text only.
		ToolCalls []ToolCall
		// Usage reports token accounting when the provider supplies it.
		Usage TokenUsage
		// StopReason is the provider-specific termination reason.
		StopReason string
	}

	// TokenUsage records prompt/completion token counts.
	TokenUsage struct {
		InputTokens  int `json:"input_tokens,omitempty"`
		OutputTokens int `json:"output_tokens,omitempty"`
		TotalTokens  int `json:"total_tokens,omitempty"`
	}
)

// Conversation roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (TextPart) part()       {}
func (ToolUsePart) part()    {}
func (ToolResultPart) part() {}

// ErrEmptyRequest indicates a request with no messages.
var ErrEmptyRequest = errors.New("model: messages are required")

// Text joins the response's text parts with newlines, mirroring how typed
// content blocks are rendered into a spoken answer.
func (r *Response) Text() string {
	var texts []string
	for _, p := range r.Message.Parts {
		if tp, ok := p.(TextPart); ok && tp.Text != "" {
			texts = append(texts, tp.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// Add appends usage counts from another round trip.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens += other.TotalTokens
}
