package transcript

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/agentchat/core"
	"github.com/hupe1980/agentchat/logging"
)

// ObserverOptions configures an Observer.
type ObserverOptions struct {
	// Timeout bounds each store call. Defaults to 5s.
	Timeout time.Duration
	// Logger receives store errors. Defaults to NoOpLogger.
	Logger logging.Logger
	// OnError is called for every failed store call, after logging.
	OnError func(conversationID string, err error)
}

// ErrConversationNotFound is returned by Restore when the store holds neither
// messages nor a termination mark for the requested id.
var ErrConversationNotFound = errors.New("conversation not found")

// Observer mirrors live conversations into a store. Attach it to a
// conversation via core.ConversationOptions.Observers. Store failures never
// interrupt the dialogue; they are logged and reported to OnError.
type Observer struct {
	store core.TranscriptStore
	opts  ObserverOptions
}

var (
	_ core.Observer            = (*Observer)(nil)
	_ core.TerminationObserver = (*Observer)(nil)
)

// NewObserver creates an Observer writing to store.
func NewObserver(store core.TranscriptStore, optFns ...func(o *ObserverOptions)) *Observer {
	opts := ObserverOptions{
		Timeout: 5 * time.Second,
		Logger:  logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Observer{store: store, opts: opts}
}

// MessageAppended implements core.Observer.
func (o *Observer) MessageAppended(conv *core.Conversation, msg core.Message) {
	ctx, cancel := o.context()
	defer cancel()

	if err := o.store.Append(ctx, conv.ID(), msg); err != nil {
		o.fail(conv.ID(), "store.append.error", err)
	}
}

// ConversationTerminated implements core.TerminationObserver.
func (o *Observer) ConversationTerminated(conv *core.Conversation) {
	ctx, cancel := o.context()
	defer cancel()

	if err := o.store.MarkTerminated(ctx, conv.ID()); err != nil {
		o.fail(conv.ID(), "store.terminate.error", err)
	}
}

func (o *Observer) context() (context.Context, context.CancelFunc) {
	if o.opts.Timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), o.opts.Timeout)
}

func (o *Observer) fail(conversationID, event string, err error) {
	o.opts.Logger.Error(event, "conversation_id", conversationID, "error", err.Error())
	if o.opts.OnError != nil {
		o.opts.OnError(conversationID, err)
	}
}

// Restore rebuilds a conversation from store. The returned conversation has
// the stored id, history and termination flag. observers are attached
// afterwards and are not notified about the restored messages.
func Restore(
	ctx context.Context,
	store core.TranscriptStore,
	conversationID string,
	observers ...core.Observer,
) (*core.Conversation, error) {
	msgs, err := store.Load(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load transcript %s: %w", conversationID, err)
	}

	terminated, err := store.Terminated(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load termination of %s: %w", conversationID, err)
	}

	if len(msgs) == 0 && !terminated {
		return nil, fmt.Errorf("restore %s: %w", conversationID, ErrConversationNotFound)
	}

	conv := core.NewConversation(func(o *core.ConversationOptions) { o.ID = conversationID })
	for _, msg := range msgs {
		conv.AddMessage(msg)
	}
	if terminated {
		conv.Terminate()
	}

	for _, obs := range observers {
		conv.Observe(obs)
	}

	return conv, nil
}
