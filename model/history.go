package model

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/hupe1980/agentchat/core"
)

// MulticallFunction is the name under which the multicall function is exposed
// to models. Adapters fold parallel tool calls into it when it is offered.
const MulticallFunction = "multicall"

// Role is the chat role of a history entry as seen by the speaker.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Entry is one history message mapped to the speaker's point of view.
//
// A self-addressed function call of the speaker followed by its self-addressed
// result becomes a single entry with Call and Result set. Every other function
// call is rendered as text because no provider accepts a dangling tool call.
type Entry struct {
	Role      Role
	Text      string
	Call      *core.FunctionCall
	CallID    string
	Result    string
	HasResult bool
}

// Entries maps req.Messages to role-tagged entries. Messages sent by the
// speaker are assistant turns; everything else is user input. Messages not
// addressed to the speaker are prefixed with their signature.
func Entries(req Request) []Entry {
	msgs := req.Messages
	entries := make([]Entry, 0, len(msgs))

	for i := 0; i < len(msgs); i++ {
		msg := msgs[i]

		if msg.From != req.Speaker {
			text := msg.Content.String()
			if msg.To != req.Speaker {
				text = msg.String()
			}
			entries = append(entries, Entry{Role: RoleUser, Text: text})
			continue
		}

		fc, isCall := core.AsFunctionCall(msg.Content)
		if !isCall {
			entries = append(entries, Entry{Role: RoleAssistant, Text: msg.Content.String()})
			continue
		}

		if msg.IsSelfAddressed() && i+1 < len(msgs) {
			next := msgs[i+1]
			if result, ok := core.AsText(next.Content); ok && next.From == req.Speaker && next.IsSelfAddressed() {
				call := fc
				entries = append(entries, Entry{
					Role:      RoleAssistant,
					Call:      &call,
					CallID:    callID(msg, i),
					Result:    string(result),
					HasResult: true,
				})
				i++
				continue
			}
		}

		entries = append(entries, Entry{Role: RoleAssistant, Text: fc.String()})
	}

	return entries
}

// Opening is the user prompt adapters send when the history is empty and the
// provider insists on at least one user turn.
func Opening(req Request) string {
	if req.Counterpart == "" {
		return "Start the conversation."
	}
	return fmt.Sprintf("Start the conversation with %s.", req.Counterpart)
}

// ArgumentsMap decodes call arguments into a JSON object. Empty arguments
// decode to an empty map.
func ArgumentsMap(fc core.FunctionCall) (map[string]any, error) {
	args := map[string]any{}
	if len(fc.Arguments) == 0 {
		return args, nil
	}
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(fc.Arguments, &args); err != nil {
		return nil, fmt.Errorf("decode arguments of %s: %w", fc.Name, err)
	}
	return args, nil
}

// FoldCalls reduces the tool calls of one provider response to a single
// Content. Several calls are folded into one multicall when the request offered
// it; otherwise only the first call is kept.
func FoldCalls(req Request, calls []core.FunctionCall) core.Content {
	switch len(calls) {
	case 0:
		return nil
	case 1:
		return calls[0]
	}

	for _, def := range req.Functions {
		if def.Name != MulticallFunction {
			continue
		}
		fc, err := core.NewFunctionCall(MulticallFunction, map[string]any{"calls": calls})
		if err == nil {
			return fc
		}
	}

	return calls[0]
}

func callID(msg core.Message, index int) string {
	if msg.ID != "" {
		return "call_" + msg.ID
	}
	return fmt.Sprintf("call_%d", index)
}
