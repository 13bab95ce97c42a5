// Package gemini provides an implementation of model.Model on top of the
// Google GenAI SDK (Gemini API or Vertex AI backend).
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"google.golang.org/genai"

	"github.com/hupe1980/agentchat/core"
	"github.com/hupe1980/agentchat/model"
)

// Options configures the Gemini model adapter.
type Options struct {
	Model           string
	Temperature     float32
	MaxOutputTokens int32
	APIKey          string
	BaseURL         string
}

// Model wraps genai's GenerateContent behind the generic model.Model interface.
type Model struct {
	client *genai.Client
	opts   Options
}

func defaultOptions() Options {
	return Options{
		Model:           "gemini-2.5-flash",
		Temperature:     0,
		MaxOutputTokens: 4096,
	}
}

// NewModel creates a client for the Gemini API backend. Without an APIKey the
// SDK falls back to GOOGLE_API_KEY / GEMINI_API_KEY.
func NewModel(ctx context.Context, optFns ...func(o *Options)) (*Model, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	cfg := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Model{client: client, opts: opts}, nil
}

// NewModelFromClient creates a new Gemini model from an existing client.
func NewModelFromClient(client *genai.Client, optFns ...func(o *Options)) *Model {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Model{client: client, opts: opts}
}

// Complete implements model.Model.
func (m *Model) Complete(ctx context.Context, req model.Request) (*model.Response, error) {
	contents, err := buildContents(req)
	if err != nil {
		return nil, model.NewError(m.opts.Model, err)
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(m.opts.Temperature),
		MaxOutputTokens: m.opts.MaxOutputTokens,
		Tools:           buildTools(req.Functions),
	}
	if req.Instructions != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.Instructions, genai.RoleUser)
	}

	resp, err := m.client.Models.GenerateContent(ctx, m.opts.Model, contents, cfg)
	if err != nil {
		return nil, model.NewError(m.opts.Model, fmt.Errorf("gemini api error: %w", err))
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, model.NewError(m.opts.Model, errors.New("no candidates returned"))
	}

	cand := resp.Candidates[0]

	var (
		text  strings.Builder
		calls []core.FunctionCall
	)
	for _, part := range cand.Content.Parts {
		if part.Thought {
			continue
		}
		if part.Text != "" {
			text.WriteString(part.Text)
		}
		if part.FunctionCall != nil {
			args, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(part.FunctionCall.Args)
			if err != nil || string(args) == "null" {
				args = []byte("{}")
			}
			calls = append(calls, core.FunctionCall{Name: part.FunctionCall.Name, Arguments: args})
		}
	}

	var content core.Content = core.Text(text.String())
	if folded := model.FoldCalls(req, calls); folded != nil {
		content = folded
	}

	out := &model.Response{
		Content:      content,
		FinishReason: strings.ToLower(string(cand.FinishReason)),
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = &model.TokenUsage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}

	return out, nil
}

// buildContents converts the history to genai contents. Function results are
// sent as a user turn holding a FunctionResponse part right after the model's
// FunctionCall part.
func buildContents(req model.Request) ([]*genai.Content, error) {
	var contents []*genai.Content

	for _, e := range model.Entries(req) {
		switch {
		case e.Call != nil:
			args, err := model.ArgumentsMap(*e.Call)
			if err != nil {
				return nil, err
			}
			contents = append(contents,
				&genai.Content{Role: string(genai.RoleModel), Parts: []*genai.Part{{
					FunctionCall: &genai.FunctionCall{ID: e.CallID, Name: e.Call.Name, Args: args},
				}}},
				&genai.Content{Role: string(genai.RoleUser), Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{
						ID:       e.CallID,
						Name:     e.Call.Name,
						Response: map[string]any{"output": e.Result},
					},
				}}},
			)
		case e.Text == "":
			continue
		case e.Role == model.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(e.Text, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(e.Text, genai.RoleUser))
		}
	}

	if len(contents) == 0 || contents[0].Role != string(genai.RoleUser) {
		opening := genai.NewContentFromText(model.Opening(req), genai.RoleUser)
		contents = append([]*genai.Content{opening}, contents...)
	}

	return contents, nil
}

// buildTools declares the functions with their JSON schema as-is.
func buildTools(defs []model.FunctionDefinition) []*genai.Tool {
	if len(defs) == 0 {
		return nil
	}

	fds := make([]*genai.FunctionDeclaration, len(defs))
	for i, def := range defs {
		fds[i] = &genai.FunctionDeclaration{
			Name:                 def.Name,
			Description:          def.Description,
			ParametersJsonSchema: def.Parameters,
		}
	}

	return []*genai.Tool{{FunctionDeclarations: fds}}
}

// Info returns metadata describing this Gemini model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:          m.opts.Model,
		Provider:      "gemini",
		SupportsTools: true,
	}
}
