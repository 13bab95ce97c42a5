package agent

import (
	"testing"

	"github.com/hupe1980/agentchat/core"
	"github.com/stretchr/testify/assert"
)

type identity string

func (i identity) Name() string { return string(i) }

func conversationWith(contents ...core.Content) *core.Conversation {
	conv := core.NewConversation()
	for _, c := range contents {
		conv.AddMessage(core.NewMessage(c).Sign(identity("A"), identity("B")))
	}
	return conv
}

func TestTerminateOnText(t *testing.T) {
	tests := []struct {
		name     string
		contents []core.Content
		want     bool
	}{
		{"empty history", nil, false},
		{"marker in last message", []core.Content{core.Text("Thank you!")}, true},
		{"marker only in earlier message", []core.Content{core.Text("Thank you"), core.Text("bye")}, false},
		{"function call is ignored", []core.Content{core.FunctionCall{Name: "Thank you"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv := conversationWith(tt.contents...)
			TerminateOnText("Thank you")(conv)
			assert.Equal(t, tt.want, conv.HasTerminated())
		})
	}
}

func TestTerminateAfterMessages(t *testing.T) {
	conv := conversationWith(core.Text("1"), core.Text("2"))

	TerminateAfterMessages(3)(conv)
	assert.False(t, conv.HasTerminated())

	conv.AddMessage(core.NewMessage(core.Text("3")).Sign(identity("B"), identity("A")))
	TerminateAfterMessages(3)(conv)
	assert.True(t, conv.HasTerminated())
}

func TestChainHooks(t *testing.T) {
	var order []string
	first := func(*core.Conversation) { order = append(order, "first") }
	second := func(*core.Conversation) { order = append(order, "second") }

	ChainHooks(first, nil, second)(core.NewConversation())

	assert.Equal(t, []string{"first", "second"}, order)
}

func TestBaseAgent(t *testing.T) {
	calls := 0
	b := NewBaseAgent("Dealer")
	b.Notify(core.NewConversation())

	b.SetHook(func(*core.Conversation) { calls++ })
	b.SetDescription("sells currency")
	b.Notify(core.NewConversation())

	assert.Equal(t, "Dealer", b.Name())
	assert.Equal(t, "sells currency", b.Description())
	assert.Equal(t, 1, calls)
}
