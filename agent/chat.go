package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/agentchat/core"
	"github.com/hupe1980/agentchat/logging"
)

// ChatOptions configures InitiateChat, TalkTo and Send.
type ChatOptions struct {
	// ConversationID is used for the new conversation. Generated when empty.
	ConversationID string
	// Observers are attached to the new conversation.
	Observers []core.Observer
	// MaxTurns caps the number of receive steps. 0 means unbounded. When the cap
	// is hit the conversation is terminated.
	MaxTurns int
	// Logger defaults to NoOpLogger.
	Logger logging.Logger
}

func newChatOptions(optFns []func(o *ChatOptions)) ChatOptions {
	opts := ChatOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return opts
}

func (o ChatOptions) newConversation() *core.Conversation {
	return core.NewConversation(func(co *core.ConversationOptions) {
		co.ID = o.ConversationID
		co.Observers = o.Observers
	})
}

// InitiateChat starts a conversation seeded with opening, signed from initiator
// to recipient. The recipient takes the first turn; the initiator never asks
// its model for the opening. The conversation is returned even on error.
func InitiateChat(
	ctx context.Context,
	initiator, recipient Communicator,
	opening core.Content,
	optFns ...func(o *ChatOptions),
) (*core.Conversation, error) {
	opts := newChatOptions(optFns)
	conv := opts.newConversation()

	err := Send(ctx, initiator, recipient, conv, opening, func(o *ChatOptions) { *o = opts })

	return conv, err
}

// TalkTo starts a conversation with an empty history. a takes the first turn.
func TalkTo(ctx context.Context, a, b Communicator, optFns ...func(o *ChatOptions)) (*core.Conversation, error) {
	opts := newChatOptions(optFns)
	conv := opts.newConversation()

	return conv, converse(ctx, a, b, conv, opts)
}

// converse is the turn loop. It swaps the speakers on Pass and stops on Halt,
// on error or when ctx is done.
func converse(ctx context.Context, active, passive Communicator, conv *core.Conversation, opts ChatOptions) error {
	logger := logging.With(opts.Logger, "conversation_id", conv.ID())
	start := time.Now()

	logger.Info("chat.start", "active", active.Name(), "passive", passive.Name(), "messages", conv.Len())

	turns := 0
	for {
		if err := ctx.Err(); err != nil {
			logger.Warn("chat.cancelled", "turns", turns, "error", err.Error())
			return err
		}

		if opts.MaxTurns > 0 && turns >= opts.MaxTurns {
			logger.Warn("chat.max_turns", "turns", turns)
			conv.Terminate()
			break
		}

		turns++
		logger.Debug("chat.turn", "turn", turns, "speaker", active.Name(), "counterpart", passive.Name())

		outcome, err := active.Receive(ctx, passive, conv)
		if err != nil {
			logger.Error("chat.error", "turn", turns, "speaker", active.Name(), "error", err.Error())
			return fmt.Errorf("turn %d of %s: %w", turns, active.Name(), err)
		}

		if outcome == Halt {
			break
		}

		active, passive = passive, active
	}

	logger.Info("chat.end",
		"turns", turns,
		"messages", conv.Len(),
		"terminated", conv.HasTerminated(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}
