package core

import (
	"context"
	"sync"
	"time"
)

// Observer receives every message appended to a conversation. Implementations
// must not call back into AddMessage.
type Observer interface {
	MessageAppended(conv *Conversation, msg Message)
}

// ObserverFunc adapts an ordinary function to the Observer interface.
type ObserverFunc func(conv *Conversation, msg Message)

// MessageAppended implements Observer.
func (f ObserverFunc) MessageAppended(conv *Conversation, msg Message) { f(conv, msg) }

// TerminationObserver is optionally implemented by observers that want to learn
// when a conversation is terminated.
type TerminationObserver interface {
	ConversationTerminated(conv *Conversation)
}

// TranscriptStore persists the messages of conversations. Implementations must
// be safe for concurrent use.
type TranscriptStore interface {
	// Append records msg as the next message of conversationID.
	Append(ctx context.Context, conversationID string, msg Message) error
	// Load returns all recorded messages of conversationID in append order.
	Load(ctx context.Context, conversationID string) ([]Message, error)
	// MarkTerminated records that conversationID has terminated.
	MarkTerminated(ctx context.Context, conversationID string) error
	// Terminated reports whether conversationID was marked terminated.
	Terminated(ctx context.Context, conversationID string) (bool, error)
}

// ConversationOptions configures NewConversation.
type ConversationOptions struct {
	// ID identifies the conversation in logs and stores. Generated when empty.
	ID string
	// Observers are notified after each append, in order.
	Observers []Observer
}

// Conversation is the ordered, append-only message history of one dialogue
// plus its terminal flag. Once terminated it never resets.
type Conversation struct {
	id         string
	history    []Message
	terminated bool
	created    time.Time
	observers  []Observer
	mu         sync.RWMutex
}

// NewConversation creates an empty conversation.
func NewConversation(optFns ...func(o *ConversationOptions)) *Conversation {
	opts := ConversationOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.ID == "" {
		opts.ID = NewID()
	}

	return &Conversation{
		id:        opts.ID,
		history:   []Message{},
		created:   time.Now(),
		observers: append([]Observer(nil), opts.Observers...),
	}
}

// ID returns the conversation identifier.
func (c *Conversation) ID() string { return c.id }

// Created returns the creation timestamp.
func (c *Conversation) Created() time.Time { return c.created }

// Observe attaches obs. It only sees messages appended from now on.
func (c *Conversation) Observe(obs Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, obs)
}

// AddMessage appends msg to the history and notifies observers.
func (c *Conversation) AddMessage(msg Message) {
	c.mu.Lock()
	c.history = append(c.history, msg)
	observers := c.observers
	c.mu.Unlock()

	for _, o := range observers {
		o.MessageAppended(c, msg)
	}
}

// LastMessage returns the most recently appended message. The boolean is false
// when the history is empty.
func (c *Conversation) LastMessage() (Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.history) == 0 {
		return Message{}, false
	}

	return c.history[len(c.history)-1], true
}

// History returns a copy of the full message history.
func (c *Conversation) History() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	history := make([]Message, len(c.history))
	copy(history, c.history)

	return history
}

// Len returns the number of appended messages.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.history)
}

// Terminate marks the conversation as terminated. Calling it again is a no-op.
func (c *Conversation) Terminate() {
	c.mu.Lock()
	if c.terminated {
		c.mu.Unlock()
		return
	}
	c.terminated = true
	observers := c.observers
	c.mu.Unlock()

	for _, o := range observers {
		if to, ok := o.(TerminationObserver); ok {
			to.ConversationTerminated(c)
		}
	}
}

// HasTerminated reports whether Terminate was called.
func (c *Conversation) HasTerminated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.terminated
}
