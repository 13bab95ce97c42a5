// Package agentchat provides a high-level façade over the agent, transcript and
// metrics packages. Most applications interact with it by:
//  1. Creating an AgentChat via New() or FromConfig()
//  2. Building participants with NewModelAgent / NewExecutorAgent so they share
//     the façade's logger, recorder and function call policies
//  3. Running dialogues with InitiateChat or TalkTo, and continuing stored ones
//     with Resume
//
// Every conversation started through the façade is mirrored into the
// configured transcript store and counted by the metrics collector.
package agentchat

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/agentchat/agent"
	"github.com/hupe1980/agentchat/config"
	"github.com/hupe1980/agentchat/core"
	"github.com/hupe1980/agentchat/function"
	"github.com/hupe1980/agentchat/logging"
	"github.com/hupe1980/agentchat/metrics"
	"github.com/hupe1980/agentchat/model"
	"github.com/hupe1980/agentchat/transcript"
)

// ErrNoStore is returned by Resume when no transcript store is configured.
var ErrNoStore = errors.New("agentchat: no transcript store configured")

// Options configures the AgentChat instance.
type Options struct {
	// Store persists transcripts. Nil disables persistence.
	Store core.TranscriptStore
	// Metrics records calls and messages. Nil disables metrics.
	Metrics *metrics.Collector
	// Observers are attached to every conversation in addition to the store
	// and metrics observers.
	Observers []core.Observer
	// MaxTurns caps every dialogue. 0 means unbounded.
	MaxTurns int
	// MaxModelCalls caps the completions of each agent built by NewModelAgent.
	// 0 means unbounded.
	MaxModelCalls int
	// AgentDefaults are applied to every ModelAgent before caller options.
	AgentDefaults []func(o *agent.ModelAgentOptions)
	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// AgentChat wires stores, metrics and logging into agents and dialogues.
type AgentChat struct {
	opts      Options
	observers []core.Observer
	recorder  agent.Recorder
}

// New creates a new AgentChat instance with optional overrides.
func New(optFns ...func(o *Options)) *AgentChat {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	ac := &AgentChat{opts: opts}

	if opts.Store != nil {
		ac.observers = append(ac.observers, transcript.NewObserver(opts.Store, func(o *transcript.ObserverOptions) {
			o.Logger = opts.Logger
		}))
	}
	if opts.Metrics != nil {
		ac.observers = append(ac.observers, opts.Metrics)
		ac.recorder = opts.Metrics
	}
	ac.observers = append(ac.observers, opts.Observers...)

	return ac
}

// FromConfig builds an AgentChat from cfg. It opens the configured store,
// selects the logger backend and registers metrics with reg when enabled. The
// caller must Close the returned instance.
func FromConfig(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) (*AgentChat, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := NewLogger(cfg.Log)
	if err != nil {
		return nil, err
	}

	unresolved, err := agent.ParseUnresolvedPolicy(cfg.Chat.UnresolvedPolicy)
	if err != nil {
		return nil, err
	}

	missing, err := function.ParseMissingPolicy(cfg.Chat.MulticallMissing)
	if err != nil {
		return nil, err
	}

	store, err := transcript.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open transcript store: %w", err)
	}

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Metrics.Namespace, reg)
	}

	return New(func(o *Options) {
		if store != nil {
			o.Store = store
		}
		o.Metrics = collector
		o.Logger = logger
		o.MaxTurns = cfg.Chat.MaxTurns
		o.MaxModelCalls = cfg.Chat.MaxModelCalls
		o.AgentDefaults = append(o.AgentDefaults, func(ao *agent.ModelAgentOptions) {
			ao.Unresolved = unresolved
			ao.AllowMulticall = cfg.Chat.Multicall
			ao.MulticallMissing = missing
		})
	}), nil
}

// NewLogger selects the logging backend described by cfg.
func NewLogger(cfg config.LogConfig) (logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case "", "slog":
		return logging.NewSlogLogger(level, cfg.Format), nil
	case "zap":
		return logging.NewZapLogger(level, cfg.Format)
	default:
		return nil, fmt.Errorf("unsupported log backend: %s", cfg.Backend)
	}
}

// Logger returns the configured logger.
func (ac *AgentChat) Logger() logging.Logger { return ac.opts.Logger }

// Store returns the configured transcript store or nil.
func (ac *AgentChat) Store() core.TranscriptStore { return ac.opts.Store }

// NewModelAgent creates a ModelAgent sharing the façade's logger, recorder,
// call budget and agent defaults. optFns override the defaults.
func (ac *AgentChat) NewModelAgent(name string, m model.Model, optFns ...func(o *agent.ModelAgentOptions)) *agent.ModelAgent {
	if ac.opts.MaxModelCalls > 0 {
		m = model.WithCallLimit(m, ac.opts.MaxModelCalls)
	}

	fns := make([]func(o *agent.ModelAgentOptions), 0, len(ac.opts.AgentDefaults)+len(optFns)+1)
	fns = append(fns, func(o *agent.ModelAgentOptions) {
		o.Logger = ac.opts.Logger
		if ac.recorder != nil {
			o.Recorder = ac.recorder
		}
	})
	fns = append(fns, ac.opts.AgentDefaults...)
	fns = append(fns, optFns...)

	return agent.NewModelAgent(name, m, fns...)
}

// NewExecutorAgent creates an ExecutorAgent sharing the façade's logger and
// recorder.
func (ac *AgentChat) NewExecutorAgent(functions *function.Registry, optFns ...func(o *agent.ExecutorAgentOptions)) *agent.ExecutorAgent {
	fns := append([]func(o *agent.ExecutorAgentOptions){func(o *agent.ExecutorAgentOptions) {
		o.Logger = ac.opts.Logger
		if ac.recorder != nil {
			o.Recorder = ac.recorder
		}
	}}, optFns...)

	return agent.NewExecutorAgent(functions, fns...)
}

// InitiateChat starts a conversation seeded with opening. See agent.InitiateChat.
func (ac *AgentChat) InitiateChat(
	ctx context.Context,
	initiator, recipient agent.Communicator,
	opening core.Content,
	optFns ...func(o *agent.ChatOptions),
) (*core.Conversation, error) {
	return agent.InitiateChat(ctx, initiator, recipient, opening, ac.chatOptions(optFns))
}

// TalkTo starts a conversation with an empty history. See agent.TalkTo.
func (ac *AgentChat) TalkTo(ctx context.Context, a, b agent.Communicator, optFns ...func(o *agent.ChatOptions)) (*core.Conversation, error) {
	return agent.TalkTo(ctx, a, b, ac.chatOptions(optFns))
}

// Resume restores conversationID from the store and continues it by sending
// content from from to to. A terminated conversation is returned unchanged; an
// id the store does not know fails with transcript.ErrConversationNotFound.
func (ac *AgentChat) Resume(
	ctx context.Context,
	conversationID string,
	from, to agent.Communicator,
	content core.Content,
	optFns ...func(o *agent.ChatOptions),
) (*core.Conversation, error) {
	if ac.opts.Store == nil {
		return nil, ErrNoStore
	}

	conv, err := transcript.Restore(ctx, ac.opts.Store, conversationID, ac.observers...)
	if err != nil {
		return nil, err
	}

	if conv.HasTerminated() {
		ac.opts.Logger.Info("chat.resume.terminated", "conversation_id", conversationID)
		return conv, nil
	}

	return conv, agent.Send(ctx, from, to, conv, content, ac.chatOptions(optFns))
}

// Close releases the transcript store when it owns resources.
func (ac *AgentChat) Close() error {
	if c, ok := ac.opts.Store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// chatOptions applies the façade defaults, then optFns, and finally puts the
// façade observers in front of any caller supplied ones.
func (ac *AgentChat) chatOptions(optFns []func(o *agent.ChatOptions)) func(o *agent.ChatOptions) {
	return func(o *agent.ChatOptions) {
		o.MaxTurns = ac.opts.MaxTurns
		o.Logger = ac.opts.Logger
		for _, fn := range optFns {
			fn(o)
		}
		o.Observers = append(append([]core.Observer(nil), ac.observers...), o.Observers...)
	}
}
