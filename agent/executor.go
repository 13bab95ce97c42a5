package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/agentchat/core"
	"github.com/hupe1980/agentchat/function"
	"github.com/hupe1980/agentchat/logging"
)

// DefaultExecutorName is the identity of an ExecutorAgent unless overridden.
const DefaultExecutorName = "Function Executor"

// ExecutorAgentOptions configures an ExecutorAgent.
type ExecutorAgentOptions struct {
	Name     string
	Hook     Hook
	Logger   logging.Logger
	Recorder Recorder
}

// ExecutorAgent is a model-free participant. When the last message is a
// function call it executes it and replies with the result. Any other turn is
// declined.
type ExecutorAgent struct {
	BaseAgent
	functions *function.Registry
	logger    logging.Logger
	recorder  Recorder
}

// NewExecutorAgent creates an ExecutorAgent resolving calls against functions.
func NewExecutorAgent(functions *function.Registry, optFns ...func(o *ExecutorAgentOptions)) *ExecutorAgent {
	opts := ExecutorAgentOptions{
		Name:     DefaultExecutorName,
		Logger:   logging.NoOpLogger{},
		Recorder: noopRecorder{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if functions == nil {
		functions = function.NewRegistry()
	}

	base := NewBaseAgent(opts.Name)
	base.SetDescription("Executes function calls sent by its counterpart")
	base.SetHook(opts.Hook)

	return &ExecutorAgent{
		BaseAgent: base,
		functions: functions,
		logger:    logging.With(opts.Logger, "agent", opts.Name),
		recorder:  opts.Recorder,
	}
}

// Functions returns the registry calls are resolved against.
func (e *ExecutorAgent) Functions() *function.Registry { return e.functions }

// Receive implements Communicator.
func (e *ExecutorAgent) Receive(ctx context.Context, sender Communicator, conv *core.Conversation) (Outcome, error) {
	e.Notify(conv)
	if conv.HasTerminated() {
		return Halt, nil
	}

	last, ok := conv.LastMessage()
	if !ok {
		e.logger.Debug("agent.executor.empty_history")
		return Halt, nil
	}

	fc, ok := core.AsFunctionCall(last.Content)
	if !ok {
		e.logger.Debug("agent.executor.no_call", "from", last.From)
		return Halt, nil
	}

	start := time.Now()
	result, resolved, err := e.functions.Call(ctx, fc)
	e.recorder.FunctionCall(e.Name(), fc.Name, time.Since(start), resolved, err)

	if err != nil {
		return Halt, fmt.Errorf("%s: %w", fc.Name, err)
	}
	if !resolved {
		e.logger.Warn("agent.function.unresolved", "function", fc.Name)
		return Halt, nil
	}

	conv.AddMessage(core.NewMessage(core.Text(result)).Sign(e, sender))

	return Pass, nil
}
