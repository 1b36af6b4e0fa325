package anthropic

import (
	"context"
	"encoding/json"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/require"

	"github.com/unidatahq/udc/features/model"
)

type mockMessages struct {
	response *sdk.Message
	err      error
	captured sdk.MessageNewParams
}

func (m *mockMessages) New(_ context.Context, body sdk.MessageNewParams, _ ...option.RequestOption) (*sdk.Message, error) {
	m.captured = body
	return m.response, m.err
}

func TestCompleteTranslatesToolUse(t *testing.T) {
	mock := &mockMessages{response: &sdk.Message{
		StopReason: "tool_use",
		Content: []sdk.ContentBlockUnion{
			{Type: "text", Text: "let me look that up"},
			{
				Type:  "tool_use",
				ID:    "toolu_1",
				Name:  "fetch_data",
				Input: json.RawMessage(`{"source":"support","priority":"high"}`),
			},
		},
		Usage: sdk.Usage{InputTokens: 20, OutputTokens: 8},
	}}
	client, err := New(mock, Options{DefaultModel: "claude-sonnet-4-20250514"})
	require.NoError(t, err)

	resp, err := client.Complete(context.Background(), model.Request{
		System:      "answer briefly",
		Temperature: 0.2,
		Messages: []model.Message{{
			Role:  model.RoleUser,
			Parts: []model.Part{model.TextPart{Text: "any high priority tickets?"}},
		}},
		Tools: []model.ToolDefinition{{
			Name:        "fetch_data",
			Description: "Fetch business data",
			InputSchema: map[string]any{"type": "object"},
		}},
	})
	require.NoError(t, err)
	require.Equal(t, "let me look that up", resp.Text())
	require.Len(t, resp.ToolCalls, 1)
	require.Equal(t, "toolu_1", resp.ToolCalls[0].ID)
	require.Equal(t, "fetch_data", resp.ToolCalls[0].Name)
	require.Equal(t, "support", resp.ToolCalls[0].Arguments["source"])
	require.Equal(t, "tool_use", resp.StopReason)
	require.Equal(t, 28, resp.Usage.TotalTokens)

	params := mock.captured
	require.Equal(t, sdk.Model("claude-sonnet-4-20250514"), params.Model)
	require.Equal(t, int64(defaultMaxTokens), params.MaxTokens)
	require.Len(t, params.System, 1)
	require.Equal(t, "answer briefly", params.System[0].Text)
	require.Len(t, params.Tools, 1)
	require.Len(t, params.Messages, 1)
}

func TestCompleteEchoesToolHistory(t *testing.T) {
	mock := &mockMessages{response: &sdk.Message{
		StopReason: "end_turn",
		Content:    []sdk.ContentBlockUnion{{Type: "text", Text: "3 open tickets"}},
	}}
	client, err := New(mock, Options{DefaultModel: "claude-sonnet-4-20250514"})
	require.NoError(t, err)

	resp, err := client.Complete(context.Background(), model.Request{
		Messages: []model.Message{
			{Role: model.RoleUser, Parts: []model.Part{model.TextPart{Text: "open tickets?"}}},
			{Role: model.RoleAssistant, Parts: []model.Part{
				model.TextPart{Text: "checking"},
				model.ToolUsePart{ID: "toolu_1", Name: "fetch_data", Input: map[string]any{"source": "support", "status": "open"}},
			}},
			{Role: model.RoleUser, Parts: []model.Part{
				model.ToolResultPart{ToolUseID: "toolu_1", Content: `{"data":[1,2,3]}`},
			}},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "3 open tickets", resp.Text())
	require.Empty(t, resp.ToolCalls)

	msgs := mock.captured.Messages
	require.Len(t, msgs, 3)
	require.Equal(t, sdk.MessageParamRoleUser, msgs[0].Role)
	require.Equal(t, sdk.MessageParamRoleAssistant, msgs[1].Role)
	require.Len(t, msgs[1].Content, 2)
	require.Equal(t, sdk.MessageParamRoleUser, msgs[2].Role)
	require.Len(t, msgs[2].Content, 1)
}

func TestCompleteEmptyRequest(t *testing.T) {
	client, err := New(&mockMessages{}, Options{DefaultModel: "claude-sonnet-4-20250514"})
	require.NoError(t, err)
	_, err = client.Complete(context.Background(), model.Request{})
	require.ErrorIs(t, err, model.ErrEmptyRequest)
}

func TestEncodeMessagesRejectsUnknownRole(t *testing.T) {
	_, err := encodeMessages([]model.Message{
		{Role: "system", Parts: []model.Part{model.TextPart{Text: "nope"}}},
	})
	require.Error(t, err)
}

func TestNewRequiresModel(t *testing.T) {
	_, err := New(&mockMessages{}, Options{})
	require.Error(t, err)
}
