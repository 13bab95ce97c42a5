// Package function implements the callable functions an agent can resolve
// function-call content against: AgentFunction, the Registry that dispatches
// calls by name, and the Multicall meta-function.
package function

import (
	"bytes"
	"context"
	"encoding/json"

	jsoniter "github.com/json-iterator/go"

	"github.com/hupe1980/agentchat/internal/util"
)

// strict decodes call arguments and rejects fields the parameter struct does
// not declare.
var strict = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	DisallowUnknownFields:  true,
}.Froze()

// Callback is the type-erased form of a function implementation. It receives the
// registry the call was dispatched from so meta-functions can re-enter it.
type Callback func(ctx context.Context, r *Registry, args json.RawMessage) (string, error)

// AgentFunction is a named, described, schema-carrying callback. The schema is
// computed once at construction and never changes.
type AgentFunction struct {
	name        string
	description string
	parameters  map[string]any
	call        Callback
}

// New exposes fn as an AgentFunction. The parameter schema is derived from P
// by reflection (json and description struct tags).
//
// Example:
//
//	type QuoteArgs struct {
//	  Amount float64 `json:"amount" description:"Amount to convert"`
//	  From   string  `json:"from" description:"Source currency"`
//	  To     string  `json:"to" description:"Target currency"`
//	}
//
//	quote := function.New("quote_amount", "Quote an amount in another currency",
//	  func(ctx context.Context, _ *function.Registry, p QuoteArgs) (string, error) {
//	    return fmt.Sprintf("%g %s", p.Amount*1.1, p.To), nil
//	  })
func New[P any](
	name, description string,
	fn func(ctx context.Context, r *Registry, params P) (string, error),
) *AgentFunction {
	var zero P
	schema := util.CreateSchema(zero)

	return &AgentFunction{
		name:        name,
		description: description,
		parameters:  schema,
		call: func(ctx context.Context, r *Registry, args json.RawMessage) (string, error) {
			var params P
			if err := decodeArguments(name, args, schema, &params); err != nil {
				return "", err
			}
			return fn(ctx, r, params)
		},
	}
}

// NewRaw exposes fn with an explicit schema. Arguments are validated against
// the schema and handed over as a generic map.
func NewRaw(
	name, description string,
	parameters map[string]any,
	fn func(ctx context.Context, r *Registry, args map[string]any) (string, error),
) *AgentFunction {
	return &AgentFunction{
		name:        name,
		description: description,
		parameters:  parameters,
		call: func(ctx context.Context, r *Registry, args json.RawMessage) (string, error) {
			m, err := validateArguments(name, args, parameters)
			if err != nil {
				return "", err
			}
			return fn(ctx, r, m)
		},
	}
}

// Name returns the unique function name used in declarations and routing.
func (f *AgentFunction) Name() string { return f.name }

// Description returns the natural language description exposed to models.
func (f *AgentFunction) Description() string { return f.description }

// Parameters returns the JSON schema describing expected arguments.
func (f *AgentFunction) Parameters() map[string]any { return f.parameters }

func normalizeArguments(args json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(args)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return json.RawMessage("{}")
	}
	// Some providers encode nested arguments as a JSON string.
	if trimmed[0] == '"' {
		var inner string
		if err := json.Unmarshal(trimmed, &inner); err == nil {
			return normalizeArguments(json.RawMessage(inner))
		}
	}
	return trimmed
}

func validateArguments(name string, args json.RawMessage, schema map[string]any) (map[string]any, error) {
	args = normalizeArguments(args)

	var m map[string]any
	if err := strict.Unmarshal(args, &m); err != nil {
		return nil, newSchemaMismatch(name, err)
	}
	if err := util.ValidateParameters(m, schema); err != nil {
		return nil, newSchemaMismatch(name, err)
	}

	return m, nil
}

func decodeArguments(name string, args json.RawMessage, schema map[string]any, out any) error {
	args = normalizeArguments(args)

	if _, err := validateArguments(name, args, schema); err != nil {
		return err
	}
	if err := strict.Unmarshal(args, out); err != nil {
		return newSchemaMismatch(name, err)
	}

	return nil
}
