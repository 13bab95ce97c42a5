package core

import (
	"encoding/json"
	"fmt"
)

// Content represents what was said in a turn. Concrete content types implement
// the unexported isContent marker enabling a closed set: Text and FunctionCall.
type Content interface {
	isContent()
	String() string
}

// Text is plain free-form content.
type Text string

// isContent implements the Content interface for Text.
func (Text) isContent() {}

// String returns the text unchanged.
func (t Text) String() string { return string(t) }

// FunctionCall describes a function invocation request. Arguments are kept as
// raw JSON and only decoded against the target schema at dispatch time.
type FunctionCall struct {
	Name      string          `json:"name" description:"Name of the function to call"`
	Arguments json.RawMessage `json:"arguments" description:"JSON object with the function arguments"`
}

// isContent implements the Content interface for FunctionCall.
func (FunctionCall) isContent() {}

// String renders the call as name(arguments).
func (fc FunctionCall) String() string {
	args := string(fc.Arguments)
	if args == "" {
		args = "{}"
	}
	return fmt.Sprintf("%s(%s)", fc.Name, args)
}

// NewFunctionCall marshals args into a FunctionCall. Passing a json.RawMessage
// or []byte uses the bytes as-is.
func NewFunctionCall(name string, args any) (FunctionCall, error) {
	switch v := args.(type) {
	case nil:
		return FunctionCall{Name: name, Arguments: json.RawMessage("{}")}, nil
	case json.RawMessage:
		return FunctionCall{Name: name, Arguments: v}, nil
	case []byte:
		return FunctionCall{Name: name, Arguments: json.RawMessage(v)}, nil
	}

	raw, err := json.Marshal(args)
	if err != nil {
		return FunctionCall{}, fmt.Errorf("marshal arguments for %s: %w", name, err)
	}

	return FunctionCall{Name: name, Arguments: raw}, nil
}

// AsText returns the Text held by c, if any.
func AsText(c Content) (Text, bool) {
	t, ok := c.(Text)
	return t, ok
}

// AsFunctionCall returns the FunctionCall held by c, if any.
func AsFunctionCall(c Content) (FunctionCall, bool) {
	fc, ok := c.(FunctionCall)
	return fc, ok
}

const (
	contentTypeText         = "text"
	contentTypeFunctionCall = "function_call"
)

// contentEnvelope is the JSON shape used to persist Content.
type contentEnvelope struct {
	Type         string        `json:"type"`
	Text         *string       `json:"text,omitempty"`
	FunctionCall *FunctionCall `json:"function_call,omitempty"`
}

// MarshalContent encodes c into its tagged JSON envelope.
func MarshalContent(c Content) ([]byte, error) {
	switch v := c.(type) {
	case Text:
		s := string(v)
		return json.Marshal(contentEnvelope{Type: contentTypeText, Text: &s})
	case FunctionCall:
		return json.Marshal(contentEnvelope{Type: contentTypeFunctionCall, FunctionCall: &v})
	case nil:
		return nil, fmt.Errorf("marshal content: nil content")
	default:
		return nil, fmt.Errorf("marshal content: unsupported type %T", c)
	}
}

// UnmarshalContent decodes a tagged JSON envelope produced by MarshalContent.
func UnmarshalContent(data []byte) (Content, error) {
	var env contentEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal content: %w", err)
	}

	switch env.Type {
	case contentTypeText:
		if env.Text == nil {
			return Text(""), nil
		}
		return Text(*env.Text), nil
	case contentTypeFunctionCall:
		if env.FunctionCall == nil {
			return nil, fmt.Errorf("unmarshal content: function_call envelope without payload")
		}
		return *env.FunctionCall, nil
	default:
		return nil, fmt.Errorf("unmarshal content: unknown type %q", env.Type)
	}
}
