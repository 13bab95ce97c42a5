// Package ollama provides an implementation of model.Model for a local or
// remote Ollama server using its chat endpoint without streaming.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	jsoniter "github.com/json-iterator/go"
	"github.com/ollama/ollama/api"

	"github.com/hupe1980/agentchat/core"
	"github.com/hupe1980/agentchat/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Options configures the Ollama model adapter. Extra holds raw model options
// such as num_ctx and is merged over Temperature.
type Options struct {
	Model       string
	Temperature float64
	BaseURL     string
	Extra       map[string]any
}

// Model wraps the Ollama chat API behind the generic model.Model interface.
type Model struct {
	client *api.Client
	opts   Options
}

func defaultOptions() Options {
	return Options{
		Model:       "llama3.1",
		Temperature: 0,
	}
}

// NewModel creates a model talking to BaseURL, or to OLLAMA_HOST when empty.
func NewModel(optFns ...func(o *Options)) (*Model, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.BaseURL == "" {
		client, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("create ollama client: %w", err)
		}
		return &Model{client: client, opts: opts}, nil
	}

	u, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	return &Model{client: api.NewClient(u, http.DefaultClient), opts: opts}, nil
}

// NewModelFromClient creates a new Ollama model from an existing client.
func NewModelFromClient(client *api.Client, optFns ...func(o *Options)) *Model {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Model{client: client, opts: opts}
}

// Complete implements model.Model.
func (m *Model) Complete(ctx context.Context, req model.Request) (*model.Response, error) {
	messages, err := buildMessages(req)
	if err != nil {
		return nil, model.NewError(m.opts.Model, err)
	}

	tools, err := buildTools(req.Functions)
	if err != nil {
		return nil, model.NewError(m.opts.Model, err)
	}

	options := map[string]any{"temperature": m.opts.Temperature}
	for k, v := range m.opts.Extra {
		options[k] = v
	}

	stream := false
	chatReq := &api.ChatRequest{
		Model:    m.opts.Model,
		Messages: messages,
		Tools:    tools,
		Options:  options,
		Stream:   &stream,
	}

	var final api.ChatResponse
	err = m.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		final = resp
		return nil
	})
	if err != nil {
		return nil, model.NewError(m.opts.Model, fmt.Errorf("ollama api error: %w", err))
	}

	calls := make([]core.FunctionCall, 0, len(final.Message.ToolCalls))
	for _, tc := range final.Message.ToolCalls {
		args, err := json.Marshal(tc.Function.Arguments)
		if err != nil || string(args) == "null" {
			args = []byte("{}")
		}
		calls = append(calls, core.FunctionCall{Name: tc.Function.Name, Arguments: args})
	}

	var content core.Content = core.Text(final.Message.Content)
	if folded := model.FoldCalls(req, calls); folded != nil {
		content = folded
	}

	finishReason := final.DoneReason
	if finishReason == "" {
		finishReason = "stop"
	}

	return &model.Response{
		Content:      content,
		FinishReason: finishReason,
		Usage: &model.TokenUsage{
			PromptTokens:     final.PromptEvalCount,
			CompletionTokens: final.EvalCount,
			TotalTokens:      final.PromptEvalCount + final.EvalCount,
		},
	}, nil
}

// buildMessages converts the history to Ollama chat messages. Function results
// become tool messages referencing the assistant tool call.
func buildMessages(req model.Request) ([]api.Message, error) {
	var messages []api.Message
	if req.Instructions != "" {
		messages = append(messages, api.Message{Role: "system", Content: req.Instructions})
	}

	for _, e := range model.Entries(req) {
		if e.Call == nil {
			messages = append(messages, api.Message{Role: string(e.Role), Content: e.Text})
			continue
		}

		// api.ToolCallFunctionArguments only decodes from JSON.
		var args api.ToolCallFunctionArguments
		raw := e.Call.Arguments
		if len(raw) == 0 {
			raw = []byte("{}")
		}
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, fmt.Errorf("decode arguments of %s: %w", e.Call.Name, err)
		}

		messages = append(messages,
			api.Message{
				Role: "assistant",
				ToolCalls: []api.ToolCall{{
					ID:       e.CallID,
					Function: api.ToolCallFunction{Name: e.Call.Name, Arguments: args},
				}},
			},
			api.Message{Role: "tool", Content: e.Result, ToolCallID: e.CallID},
		)
	}

	return messages, nil
}

// buildTools converts function definitions through JSON, which is the only
// stable way to fill the SDK's schema types.
func buildTools(defs []model.FunctionDefinition) ([]api.Tool, error) {
	if len(defs) == 0 {
		return nil, nil
	}

	raw := make([]map[string]any, len(defs))
	for i, def := range defs {
		raw[i] = map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        def.Name,
				"description": def.Description,
				"parameters":  def.Parameters,
			},
		}
	}

	b, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode tools: %w", err)
	}

	var tools []api.Tool
	if err := json.Unmarshal(b, &tools); err != nil {
		return nil, fmt.Errorf("decode tools: %w", err)
	}

	return tools, nil
}

// Info returns metadata describing this Ollama model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:          m.opts.Model,
		Provider:      "ollama",
		SupportsTools: true,
	}
}
