package ollama

import (
	"context"
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

func TestModel_CompleteToolCall(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"model":"llama3.1","created_at":"2025-01-01T00:00:00Z",`+
			`"message":{"role":"assistant","content":"","tool_calls":[{"function":{"name":"quote_amount","arguments":{"amount":100,"from":"USD","to":"EUR"}}}]},`+
			`"done":true,"done_reason":"stop","prompt_eval_count":10,"eval_count":5}`)
	}))
	defer srv.Close()

	m, err := NewModel(func(o *Options) {
		o.BaseURL = srv.URL
		o.Extra = map[string]any{"num_ctx": 8192}
	})
	require.NoError(t, err)

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
				"properties": map[string]any{"amount": map[string]any{"type": "number", "description": "Amount"}},
				"required":   []string{"amount"},
			},
		}},
	})
	require.NoError(t, err)

	fc, ok := core.AsFunctionCall(resp.Content)
	require.True(t, ok)
	assert.Equal(t, "quote_amount", fc.Name)
	assert.JSONEq(t, `{"amount":100,"from":"USD","to":"EUR"}`, string(fc.Arguments))
	assert.Equal(t, 15, resp.Usage.TotalTokens)

	assert.Equal(t, false, captured["stream"])
	options := captured["options"].(map[string]any)
	assert.Equal(t, float64(8192), options["num_ctx"])
	messages := captured["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Len(t, captured["tools"], 1)
}

func TestModel_CompleteErrorIsModelFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"model 'nope' not found"}`)
	}))
	defer srv.Close()

	m, err := NewModel(func(o *Options) {
		o.BaseURL = srv.URL
		o.Model = "nope"
	})
	require.NoError(t, err)

	_, err = m.Complete(context.Background(), model.Request{Speaker: "A"})

	assert.ErrorIs(t, err, model.ErrModelFailure)
}

func TestBuildMessages_ToolResult(t *testing.T) {
	req := model.Request{Speaker: "Dealer", Messages: testutil.DealerHistory().Messages()}

	messages, err := buildMessages(req)
	require.NoError(t, err)

	require.Len(t, messages, 4)
	assert.Equal(t, "user", messages[0].Role)
	assert.Equal(t, "assistant", messages[1].Role)
	require.Len(t, messages[1].ToolCalls, 1)
	assert.Equal(t, "quote_amount", messages[1].ToolCalls[0].Function.Name)
	assert.Equal(t, "tool", messages[2].Role)
	assert.Equal(t, "110 EUR", messages[2].Content)
	assert.Equal(t, messages[1].ToolCalls[0].ID, messages[2].ToolCallID)
	assert.Equal(t, "assistant", messages[3].Role)
}
