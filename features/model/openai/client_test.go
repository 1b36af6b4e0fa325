package openai_test

import (
	"context"
	"encoding/json"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	"github.com/unidatahq/udc/features/model"
	openaimodel "github.com/unidatahq/udc/features/model/openai"
)

type mockChatClient struct {
	response openai.ChatCompletionResponse
	err      error
	captured openai.ChatCompletionRequest
}

func (m *mockChatClient) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.captured = req
	return m.response, m.err
}

func TestClientComplete(t *testing.T) {
	mock := &mockChatClient{}
	client, err := openaimodel.New(openaimodel.Options{Client: mock, DefaultModel: "gpt-4o-mini"})
	require.NoError(t, err)

	mock.response = openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{
				FinishReason: "tool_calls",
				Message: openai.ChatCompletionMessage{
					Role:    "assistant",
					Content: "checking the data",
					ToolCalls: []openai.ToolCall{
						{
							ID:   "call_1",
							Type: openai.ToolTypeFunction,
							Function: openai.FunctionCall{
								Name:      "fetch_data",
								Arguments: `{"source":"crm","status":"active"}`,
							},
						},
					},
				},
			},
		},
		Usage: openai.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}

	resp, err := client.Complete(context.Background(), model.Request{
		System:   "be terse",
		Messages: []model.Message{{Role: model.RoleUser, Parts: []model.Part{model.TextPart{Text: "list active customers"}}}},
		Tools: []model.ToolDefinition{{
			Name:        "fetch_data",
			Description: "Fetch business data",
			InputSchema: map[string]any{"type": "object"},
		}},
	})
	require.NoError(t, err)
	require.Equal(t, "checking the data", resp.Text())
	require.Len(t, resp.ToolCalls, 1)
	require.Equal(t, "call_1", resp.ToolCalls[0].ID)
	require.Equal(t, "fetch_data", resp.ToolCalls[0].Name)
	require.Equal(t, "crm", resp.ToolCalls[0].Arguments["source"])
	require.Equal(t, "tool_calls", resp.StopReason)
	require.Equal(t, 15, resp.Usage.TotalTokens)

	req := mock.captured
	require.Equal(t, "gpt-4o-mini", req.Model)
	require.Len(t, req.Messages, 2)
	require.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
	require.Equal(t, "be terse", req.Messages[0].Content)
	require.Equal(t, "list active customers", req.Messages[1].Content)
	require.Len(t, req.Tools, 1)
	require.Equal(t, openai.ToolTypeFunction, req.Tools[0].Type)
	params, ok := req.Tools[0].Function.Parameters.(json.RawMessage)
	require.True(t, ok)
	require.JSONEq(t, `{"type":"object"}`, string(params))
}

func TestClientCompleteEncodesToolHistory(t *testing.T) {
	mock := &mockChatClient{response: openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			FinishReason: "stop",
			Message:      openai.ChatCompletionMessage{Role: "assistant", Content: "42 records"},
		}},
	}}
	client, err := openaimodel.New(openaimodel.Options{Client: mock, DefaultModel: "gpt-4o-mini"})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), model.Request{
		Messages: []model.Message{
			{Role: model.RoleUser, Parts: []model.Part{model.TextPart{Text: "how many tickets?"}}},
			{Role: model.RoleAssistant, Parts: []model.Part{
				model.ToolUsePart{ID: "call_1", Name: "fetch_data", Input: map[string]any{"source": "support"}},
			}},
			{Role: model.RoleUser, Parts: []model.Part{
				model.ToolResultPart{ToolUseID: "call_1", Content: `{"data":[]}`},
			}},
		},
	})
	require.NoError(t, err)

	msgs := mock.captured.Messages
	require.Len(t, msgs, 3)
	require.Equal(t, "user", msgs[0].Role)
	require.Equal(t, "assistant", msgs[1].Role)
	require.Len(t, msgs[1].ToolCalls, 1)
	require.Equal(t, "call_1", msgs[1].ToolCalls[0].ID)
	require.JSONEq(t, `{"source":"support"}`, msgs[1].ToolCalls[0].Function.Arguments)
	require.Equal(t, openai.ChatMessageRoleTool, msgs[2].Role)
	require.Equal(t, "call_1", msgs[2].ToolCallID)
	require.Equal(t, `{"data":[]}`, msgs[2].Content)
}

func TestClientCompleteEmptyRequest(t *testing.T) {
	client, err := openaimodel.New(openaimodel.Options{Client: &mockChatClient{}, DefaultModel: "gpt-4o-mini"})
	require.NoError(t, err)
	_, err = client.Complete(context.Background(), model.Request{})
	require.ErrorIs(t, err, model.ErrEmptyRequest)
}

func TestClientCompleteBadToolArguments(t *testing.T) {
	mock := &mockChatClient{response: openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{
				Role: "assistant",
				ToolCalls: []openai.ToolCall{{
					ID:       "call_1",
					Type:     openai.ToolTypeFunction,
					Function: openai.FunctionCall{Name: "fetch_data", Arguments: "{not json"},
				}},
			},
		}},
	}}
	client, err := openaimodel.New(openaimodel.Options{Client: mock, DefaultModel: "gpt-4o-mini"})
	require.NoError(t, err)
	_, err = client.Complete(context.Background(), model.Request{
		Messages: []model.Message{{Role: model.RoleUser, Parts: []model.Part{model.TextPart{Text: "hi"}}}},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "fetch_data")
}
