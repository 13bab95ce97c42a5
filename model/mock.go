package model

import (
	"context"
	"errors"
	"sync"

	"github.com/hupe1980/agentchat/core"
)

// ErrScriptExhausted is returned by MockModel when no scripted reply is left
// and no fallback was configured.
var ErrScriptExhausted = errors.New("mock model: script exhausted")

// Responder computes a reply from the request. It is consulted once the script
// is empty.
type Responder func(ctx context.Context, req Request) (core.Content, error)

// MockModel is a lightweight in-memory Model useful for tests and examples.
// It replays scripted contents in order, then falls back to the responder.
// Every received request is recorded.
type MockModel struct {
	info      Info
	mu        sync.Mutex
	script    []core.Content
	responder Responder
	requests  []Request
}

// NewMockModel constructs a MockModel that replays replies in order.
func NewMockModel(name string, replies ...core.Content) *MockModel {
	return &MockModel{
		info: Info{
			Name:          name,
			Provider:      "mock",
			SupportsTools: true,
		},
		script: append([]core.Content(nil), replies...),
	}
}

// NewMockModelFunc constructs a MockModel that always delegates to fn.
func NewMockModelFunc(name string, fn Responder) *MockModel {
	m := NewMockModel(name)
	m.responder = fn
	return m
}

// Enqueue appends replies to the script.
func (m *MockModel) Enqueue(replies ...core.Content) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, replies...)
}

// SetResponder sets the fallback used after the script is drained.
func (m *MockModel) SetResponder(fn Responder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responder = fn
}

// Complete implements Model.
func (m *MockModel) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewError(m.info.Name, err)
	}

	m.mu.Lock()
	m.requests = append(m.requests, req)
	var next core.Content
	if len(m.script) > 0 {
		next = m.script[0]
		m.script = m.script[1:]
	}
	responder := m.responder
	m.mu.Unlock()

	if next == nil {
		if responder == nil {
			return nil, NewError(m.info.Name, ErrScriptExhausted)
		}
		content, err := responder(ctx, req)
		if err != nil {
			return nil, NewError(m.info.Name, err)
		}
		next = content
	}

	finish := "stop"
	if _, ok := next.(core.FunctionCall); ok {
		finish = "tool_calls"
	}

	return &Response{Content: next, FinishReason: finish}, nil
}

// Requests returns a copy of all requests received so far.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Calls returns the number of Complete invocations.
func (m *MockModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }
