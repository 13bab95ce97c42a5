package agent

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentchat/core"
)

// Outcome reports what a participant did with its turn.
type Outcome int

const (
	// Halt means the participant declined to keep the turn. The chat loop stops.
	Halt Outcome = iota
	// Pass means the participant appended its reply and hands the turn to the counterpart.
	Pass
)

// String returns a readable outcome name.
func (o Outcome) String() string {
	if o == Pass {
		return "pass"
	}
	return "halt"
}

// Communicator is a named conversation participant. Receive performs a single
// turn against conv, with sender being the counterpart that handed over the
// turn. It never calls back into the counterpart; the chat loop does that.
type Communicator interface {
	Name() string
	Receive(ctx context.Context, sender Communicator, conv *core.Conversation) (Outcome, error)
}

// Send signs content from from to to, appends it to conv and then drives the
// turn loop with to as the active speaker until the conversation halts.
func Send(
	ctx context.Context,
	from, to Communicator,
	conv *core.Conversation,
	content core.Content,
	optFns ...func(o *ChatOptions),
) error {
	if content == nil {
		return fmt.Errorf("send from %s: nil content", from.Name())
	}

	opts := newChatOptions(optFns)
	conv.AddMessage(core.NewMessage(content).Sign(from, to))

	return converse(ctx, to, from, conv, opts)
}
