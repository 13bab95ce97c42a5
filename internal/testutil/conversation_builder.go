package testutil

import (
	"fmt"

	"github.com/hupe1980/agentchat/core"
)

// Party is a bare identity for signing messages in tests.
type Party string

// Name implements core.Identity.
func (p Party) Name() string { return string(p) }

// ConversationBuilder helps construct message histories with fluent chaining.
// Example:
//
//	msgs := NewConversationBuilder().Say("Customer", "Dealer", "hi").Messages()
type ConversationBuilder struct {
	id       string
	messages []core.Message
}

// NewConversationBuilder creates an empty builder.
func NewConversationBuilder() *ConversationBuilder {
	return &ConversationBuilder{}
}

// ID sets the conversation id used by Build (chainable).
func (b *ConversationBuilder) ID(id string) *ConversationBuilder {
	b.id = id
	return b
}

// Say appends a text message signed from -> to (chainable).
func (b *ConversationBuilder) Say(from, to, text string) *ConversationBuilder {
	return b.Content(from, to, core.Text(text))
}

// Call appends a function call signed from -> to (chainable). It panics when
// args cannot be encoded.
func (b *ConversationBuilder) Call(from, to, name string, args any) *ConversationBuilder {
	fc, err := core.NewFunctionCall(name, args)
	if err != nil {
		panic(fmt.Sprintf("testutil: %v", err))
	}
	return b.Content(from, to, fc)
}

// Content appends arbitrary content signed from -> to (chainable).
func (b *ConversationBuilder) Content(from, to string, c core.Content) *ConversationBuilder {
	msg := core.NewMessage(c).Sign(Party(from), Party(to))
	msg.ID = fmt.Sprintf("m%d", len(b.messages)+1)
	b.messages = append(b.messages, msg)
	return b
}

// Messages returns the built history.
func (b *ConversationBuilder) Messages() []core.Message {
	return append([]core.Message(nil), b.messages...)
}

// Build returns a *core.Conversation holding the built history.
func (b *ConversationBuilder) Build() *core.Conversation {
	conv := core.NewConversation(func(o *core.ConversationOptions) { o.ID = b.id })
	for _, msg := range b.messages {
		conv.AddMessage(msg)
	}
	return conv
}

// DealerHistory is the four message currency dealer exchange as seen after
// the dealer's reply.
func DealerHistory() *ConversationBuilder {
	return NewConversationBuilder().
		Say("Customer", "Dealer", "How much is 100 USD in EUR?").
		Call("Dealer", "Dealer", "quote_amount", map[string]any{"amount": 100, "from": "USD", "to": "EUR"}).
		Say("Dealer", "Dealer", "110 EUR").
		Say("Dealer", "Customer", "100 USD is 110 EUR.")
}
