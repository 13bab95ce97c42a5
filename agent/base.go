package agent

import (
	"fmt"

	"github.com/hupe1980/agentchat/core"
)

// BaseAgent bundles identity and the notification hook shared by every agent
// variant. Embed it in concrete agents and supply Receive to satisfy Communicator.
type BaseAgent struct {
	name        string // Participant identity used to sign messages
	description string // Detailed description of agent's purpose
	hook        Hook   // Optional notification hook
}

// NewBaseAgent constructs a BaseAgent with generated description (customizable via SetDescription).
func NewBaseAgent(name string) BaseAgent {
	return BaseAgent{
		name:        name,
		description: fmt.Sprintf("Agent %s", name),
	}
}

// Name returns the participant identity.
func (b *BaseAgent) Name() string { return b.name }

// Description returns a detailed description of this agent's purpose.
func (b *BaseAgent) Description() string { return b.description }

// SetDescription updates the agent's description.
func (b *BaseAgent) SetDescription(desc string) { b.description = desc }

// SetHook replaces the notification hook. Must not be called during a conversation.
func (b *BaseAgent) SetHook(h Hook) { b.hook = h }

// Notify runs the notification hook, if any.
func (b *BaseAgent) Notify(conv *core.Conversation) {
	if b.hook != nil {
		b.hook(conv)
	}
}
