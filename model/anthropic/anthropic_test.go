package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentchat/core"
	"github.com/hupe1980/agentchat/internal/testutil"
	"github.com/hupe1980/agentchat/model"
)

var _ model.Model = (*Model)(nil)

func newTestModel(t *testing.T, status int, reply string, captured *map[string]any) *Model {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		if captured != nil {
			require.NoError(t, json.Unmarshal(body, captured))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)

	return NewModel(func(o *Options) {
		o.APIKey = "test"
		o.BaseURL = srv.URL
	})
}

func TestModel_CompleteToolUse(t *testing.T) {
	var captured map[string]any
	m := newTestModel(t, http.StatusOK, `{
		"id": "msg_1", "type": "message", "role": "assistant", "model": "claude-sonnet-4-20250514",
		"content": [{"type": "tool_use", "id": "toolu_1", "name": "quote_amount", "input": {"amount": 100, "from": "USD", "to": "EUR"}}],
		"stop_reason": "tool_use", "usage": {"input_tokens": 10, "output_tokens": 5}
	}`, &captured)

	resp, err := m.Complete(context.Background(), model.Request{
		Instructions: "You are a currency dealer.",
		Speaker:      "Dealer",
		Counterpart:  "Customer",
		Messages:     testutil.DealerHistory().Messages()[:1],
		Functions: []model.FunctionDefinition{{
			Name:        "quote_amount",
			Description: "Quote an amount",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{"amount": map[string]any{"type": "number"}},
				"required":   []any{"amount"},
			},
		}},
	})
	require.NoError(t, err)

	fc, ok := core.AsFunctionCall(resp.Content)
	require.True(t, ok)
	assert.Equal(t, "quote_amount", fc.Name)
	assert.JSONEq(t, `{"amount":100,"from":"USD","to":"EUR"}`, string(fc.Arguments))
	assert.Equal(t, "tool_use", resp.FinishReason)
	assert.Equal(t, 15, resp.Usage.TotalTokens)

	system := captured["system"].([]any)
	assert.Equal(t, "You are a currency dealer.", system[0].(map[string]any)["text"])

	tools := captured["tools"].([]any)
	require.Len(t, tools, 1)
	tool := tools[0].(map[string]any)
	assert.Equal(t, "quote_amount", tool["name"])
	assert.Equal(t, "Quote an amount", tool["description"])
}

func TestModel_CompleteText(t *testing.T) {
	m := newTestModel(t, http.StatusOK, `{
		"id": "msg_2", "type": "message", "role": "assistant", "model": "claude-sonnet-4-20250514",
		"content": [{"type": "text", "text": "100 USD is 110 EUR."}],
		"stop_reason": "end_turn", "usage": {"input_tokens": 10, "output_tokens": 5}
	}`, nil)

	resp, err := m.Complete(context.Background(), model.Request{Speaker: "Dealer"})
	require.NoError(t, err)

	assert.Equal(t, core.Text("100 USD is 110 EUR."), resp.Content)
	assert.Equal(t, "end_turn", resp.FinishReason)
}

func TestModel_CompleteErrorIsModelFailure(t *testing.T) {
	m := newTestModel(t, http.StatusBadRequest,
		`{"type": "error", "error": {"type": "invalid_request_error", "message": "bad"}}`, nil)

	_, err := m.Complete(context.Background(), model.Request{Speaker: "A"})

	assert.ErrorIs(t, err, model.ErrModelFailure)
}

func TestBuildMessages_ToolResultFollowsToolUse(t *testing.T) {
	req := model.Request{Speaker: "Dealer", Counterpart: "Customer", Messages: testutil.DealerHistory().Messages()}

	messages := buildMessages(req)

	require.Len(t, messages, 4)
	roles := []string{string(messages[0].Role), string(messages[1].Role), string(messages[2].Role), string(messages[3].Role)}
	assert.Equal(t, []string{"user", "assistant", "user", "assistant"}, roles)

	require.Len(t, messages[1].Content, 1)
	require.NotNil(t, messages[1].Content[0].OfToolUse)
	assert.Equal(t, "call_m2", messages[1].Content[0].OfToolUse.ID)

	require.NotNil(t, messages[2].Content[0].OfToolResult)
	assert.Equal(t, "call_m2", messages[2].Content[0].OfToolResult.ToolUseID)
}

func TestBuildMessages_EmptyHistoryGetsOpening(t *testing.T) {
	messages := buildMessages(model.Request{Speaker: "A", Counterpart: "B"})

	require.Len(t, messages, 1)
	assert.Equal(t, "user", string(messages[0].Role))
	require.NotNil(t, messages[0].Content[0].OfText)
	assert.Equal(t, "Start the conversation with B.", messages[0].Content[0].OfText.Text)
}

func TestBuildMessages_MergesConsecutiveRoles(t *testing.T) {
	msgs := testutil.NewConversationBuilder().
		Say("B", "A", "one").
		Say("B", "A", "two").
		Messages()

	messages := buildMessages(model.Request{Speaker: "A", Messages: msgs})

	require.Len(t, messages, 1)
	assert.Len(t, messages[0].Content, 2)
}
