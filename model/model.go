package model

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/agentchat/core"
)

// ErrModelFailure is matched by every error returned from a failed completion.
var ErrModelFailure = errors.New("model completion failed")

// Error wraps a provider failure with the model that produced it.
type Error struct {
	Model string
	Err   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("model %s: %v", e.Model, e.Err)
}

// Unwrap returns the provider error.
func (e *Error) Unwrap() error { return e.Err }

// Is reports ErrModelFailure so callers can classify without knowing the provider.
func (e *Error) Is(target error) bool { return target == ErrModelFailure }

// NewError wraps err as a completion failure of the named model.
func NewError(modelName string, err error) error {
	return &Error{Model: modelName, Err: err}
}

// FunctionDefinition describes an individual function exposed to the model.
// Parameters is a JSON Schema object (draft agnostic, minimal subset expected).
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request captures the normalized model input built by an agent for one call.
type Request struct {
	// Instructions is the resolved system message.
	Instructions string `json:"instructions"`
	// Speaker is the identity of the agent asking for its next turn. Messages
	// sent by the speaker map to the assistant role.
	Speaker string `json:"speaker"`
	// Counterpart is the identity of the other participant.
	Counterpart string `json:"counterpart"`
	// Messages is the full ordered history, including staged messages of the
	// current turn.
	Messages  []core.Message       `json:"messages"`
	Functions []FunctionDefinition `json:"functions,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response holds exactly one next Content.
type Response struct {
	Content      core.Content `json:"content"`
	FinishReason string       `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
	Usage        *TokenUsage  `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "gemini", "ollama", "mock"
	SupportsTools bool   `json:"supports_tools"`
}

// Model turns an instruction plus history into the next Content. Errors are
// fatal to the calling turn.
type Model interface {
	Complete(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}
