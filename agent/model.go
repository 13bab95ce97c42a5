package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/agentchat/core"
	"github.com/hupe1980/agentchat/function"
	"github.com/hupe1980/agentchat/logging"
	"github.com/hupe1980/agentchat/model"
)

// UnresolvedPolicy decides what a ModelAgent does when the model asks for a
// function its registry does not know.
type UnresolvedPolicy int

const (
	// UnresolvedHalt records the self-addressed call and ends the dialogue.
	UnresolvedHalt UnresolvedPolicy = iota
	// UnresolvedForward sends the raw call to the counterpart and passes the turn.
	UnresolvedForward
	// UnresolvedFail aborts with function.ErrUnknownFunction. Nothing is recorded.
	UnresolvedFail
)

// String returns the policy name used in configuration.
func (p UnresolvedPolicy) String() string {
	switch p {
	case UnresolvedHalt:
		return "halt"
	case UnresolvedForward:
		return "forward"
	case UnresolvedFail:
		return "fail"
	default:
		return "unknown"
	}
}

// ParseUnresolvedPolicy converts a configuration value into a policy.
func ParseUnresolvedPolicy(s string) (UnresolvedPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "halt":
		return UnresolvedHalt, nil
	case "forward":
		return UnresolvedForward, nil
	case "fail":
		return UnresolvedFail, nil
	default:
		return UnresolvedHalt, fmt.Errorf("unknown unresolved function policy %q", s)
	}
}

// ModelAgentOptions configures a ModelAgent.
type ModelAgentOptions struct {
	// Description is a human readable summary of the agent's purpose.
	Description string
	// Instruction holds the system message and the function registry.
	Instruction Instruction
	// Hook runs at the start of every receive.
	Hook Hook
	// AllowMulticall registers the multicall function into the registry.
	AllowMulticall bool
	// MulticallMissing applies when AllowMulticall is set.
	MulticallMissing function.MissingPolicy
	// Unresolved decides how calls to unknown functions are handled.
	Unresolved UnresolvedPolicy
	// Logger defaults to NoOpLogger.
	Logger logging.Logger
	// Recorder receives call timings. Defaults to a no-op.
	Recorder Recorder
}

// WithInstruction sets the system message text.
func WithInstruction(text string) func(o *ModelAgentOptions) {
	return func(o *ModelAgentOptions) {
		o.Instruction = NewInstructionFromText(text).WithRegistry(o.Instruction.Functions())
	}
}

// WithFunctions registers fns into the agent's registry. Duplicate names panic
// because this runs during static setup.
func WithFunctions(fns ...*function.AgentFunction) func(o *ModelAgentOptions) {
	return func(o *ModelAgentOptions) {
		inst, err := o.Instruction.WithFunctions(fns...)
		if err != nil {
			panic(fmt.Sprintf("agent: %v", err))
		}
		o.Instruction = inst
	}
}

// WithHook sets the notification hook.
func WithHook(h Hook) func(o *ModelAgentOptions) {
	return func(o *ModelAgentOptions) { o.Hook = h }
}

// WithMulticall opts in to the multicall function.
func WithMulticall() func(o *ModelAgentOptions) {
	return func(o *ModelAgentOptions) { o.AllowMulticall = true }
}

// WithUnresolvedPolicy sets how unknown function calls are handled.
func WithUnresolvedPolicy(p UnresolvedPolicy) func(o *ModelAgentOptions) {
	return func(o *ModelAgentOptions) { o.Unresolved = p }
}

// ModelAgent is a model-backed participant. On every turn it asks its model for
// the next content, executes at most one function call locally and forwards
// the reply to its counterpart.
type ModelAgent struct {
	BaseAgent
	model       model.Model
	instruction Instruction
	unresolved  UnresolvedPolicy
	logger      logging.Logger
	recorder    Recorder
}

// NewModelAgent creates a ModelAgent named name backed by m.
func NewModelAgent(name string, m model.Model, optFns ...func(o *ModelAgentOptions)) *ModelAgent {
	opts := ModelAgentOptions{
		Unresolved:       UnresolvedHalt,
		MulticallMissing: function.MissingOmit,
		Logger:           logging.NoOpLogger{},
		Recorder:         noopRecorder{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	inst := opts.Instruction
	if inst.Functions() == nil {
		inst = inst.WithRegistry(function.NewRegistry())
	}
	if opts.AllowMulticall {
		// The registry may be shared with other agents that did not opt in.
		functions := inst.Functions().Clone()
		functions.Unregister(function.MulticallName)

		missing := opts.MulticallMissing
		functions.MustRegister(function.NewMulticall(func(o *function.MulticallOptions) { o.Missing = missing }))
		inst = inst.WithRegistry(functions)
	}

	base := NewBaseAgent(name)
	if opts.Description != "" {
		base.SetDescription(opts.Description)
	}
	base.SetHook(opts.Hook)

	return &ModelAgent{
		BaseAgent:   base,
		model:       m,
		instruction: inst,
		unresolved:  opts.Unresolved,
		logger:      logging.With(opts.Logger, "agent", name),
		recorder:    opts.Recorder,
	}
}

// Instruction returns the agent's instruction.
func (a *ModelAgent) Instruction() Instruction { return a.instruction }

// Functions returns the agent's function registry.
func (a *ModelAgent) Functions() *function.Registry { return a.instruction.Functions() }

// Model returns the backing model.
func (a *ModelAgent) Model() model.Model { return a.model }

// turn buffers the messages of one receive so that a failed model call leaves
// the conversation untouched.
type turn struct {
	sender Communicator
	conv   *core.Conversation
	staged []core.Message
}

func (t *turn) stage(msg core.Message) { t.staged = append(t.staged, msg) }

func (t *turn) history() []core.Message {
	return append(t.conv.History(), t.staged...)
}

func (t *turn) commit() {
	for _, msg := range t.staged {
		t.conv.AddMessage(msg)
	}
	t.staged = nil
}

// Receive implements Communicator.
//
// Steps:
//
//	run hook -> stop if terminated -> ask model
//	FunctionCall: stage call (self) -> dispatch -> stage result (self) -> ask model again
//	forward content to sender -> commit -> Pass
func (a *ModelAgent) Receive(ctx context.Context, sender Communicator, conv *core.Conversation) (Outcome, error) {
	a.Notify(conv)
	if conv.HasTerminated() {
		a.logger.Debug("agent.receive.terminated")
		return Halt, nil
	}

	t := &turn{sender: sender, conv: conv}

	content, err := a.complete(ctx, t)
	if err != nil {
		return Halt, err
	}

	if fc, ok := content.(core.FunctionCall); ok {
		t.stage(core.NewMessage(fc).Sign(a, a))

		result, resolved, err := a.dispatch(ctx, fc)
		if err != nil {
			return Halt, fmt.Errorf("%s: %w", fc.Name, err)
		}
		if !resolved {
			return a.handleUnresolved(t, fc)
		}

		t.stage(core.NewMessage(core.Text(result)).Sign(a, a))

		content, err = a.complete(ctx, t)
		if err != nil {
			return Halt, err
		}
	}

	t.stage(core.NewMessage(content).Sign(a, sender))
	t.commit()

	return Pass, nil
}

func (a *ModelAgent) complete(ctx context.Context, t *turn) (core.Content, error) {
	history := t.history()
	info := a.model.Info()

	system, err := a.instruction.Resolve(InstructionContext{
		Name:         a.Name(),
		Counterpart:  t.sender.Name(),
		Turn:         len(history),
		Conversation: t.conv,
	})
	if err != nil {
		return nil, fmt.Errorf("resolve instruction: %w", err)
	}

	req := model.Request{
		Instructions: system,
		Speaker:      a.Name(),
		Counterpart:  t.sender.Name(),
		Messages:     history,
		Functions:    a.instruction.Functions().Definitions(),
	}

	start := time.Now()
	resp, err := a.model.Complete(ctx, req)
	dur := time.Since(start)

	if err == nil && (resp == nil || resp.Content == nil) {
		err = errors.New("empty response")
	}
	if err != nil && !errors.Is(err, model.ErrModelFailure) {
		err = model.NewError(info.Name, err)
	}

	a.recorder.ModelCall(a.Name(), info.Name, dur, err)

	if err != nil {
		a.logger.Error("agent.model.error", "model", info.Name, "duration_ms", dur.Milliseconds(), "error", err.Error())
		return nil, err
	}

	a.logger.Debug("agent.model.call",
		"model", info.Name,
		"finish_reason", resp.FinishReason,
		"duration_ms", dur.Milliseconds(),
		"messages", len(history),
	)

	return resp.Content, nil
}

func (a *ModelAgent) dispatch(ctx context.Context, fc core.FunctionCall) (string, bool, error) {
	start := time.Now()
	result, resolved, err := a.instruction.Functions().Call(ctx, fc)
	a.recorder.FunctionCall(a.Name(), fc.Name, time.Since(start), resolved, err)
	return result, resolved, err
}

func (a *ModelAgent) handleUnresolved(t *turn, fc core.FunctionCall) (Outcome, error) {
	a.logger.Warn("agent.function.unresolved", "function", fc.Name, "policy", a.unresolved.String())

	switch a.unresolved {
	case UnresolvedForward:
		t.staged = nil
		t.stage(core.NewMessage(fc).Sign(a, t.sender))
		t.commit()
		return Pass, nil
	case UnresolvedFail:
		return Halt, function.UnknownFunctionError(fc.Name)
	default:
		t.commit()
		return Halt, nil
	}
}
