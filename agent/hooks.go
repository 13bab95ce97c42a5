package agent

import (
	"strings"

	"github.com/hupe1980/agentchat/core"
)

// Hook is a notification hook. It runs at the start of every receive with the
// live conversation and may call conv.Terminate.
type Hook func(conv *core.Conversation)

// TerminateOnText terminates once the last message is text containing marker.
func TerminateOnText(marker string) Hook {
	return func(conv *core.Conversation) {
		last, ok := conv.LastMessage()
		if !ok {
			return
		}
		if text, ok := core.AsText(last.Content); ok && strings.Contains(string(text), marker) {
			conv.Terminate()
		}
	}
}

// TerminateAfterMessages terminates once the history holds at least n messages.
func TerminateAfterMessages(n int) Hook {
	return func(conv *core.Conversation) {
		if conv.Len() >= n {
			conv.Terminate()
		}
	}
}

// ChainHooks runs hooks in order. Nil entries are skipped.
func ChainHooks(hooks ...Hook) Hook {
	return func(conv *core.Conversation) {
		for _, h := range hooks {
			if h != nil {
				h(conv)
			}
		}
	}
}
