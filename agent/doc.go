// Package agent contains the conversation participants and the turn-passing
// loop that drives them. The package focuses on three concerns:
//
//  1. The participant contract (Communicator) plus shared identity and hook plumbing (BaseAgent)
//  2. Concrete participants: the model-backed ModelAgent and the model-free ExecutorAgent
//  3. Entry points running the turn loop (InitiateChat, TalkTo, Send)
//
// Execution Model:
//   - Exactly one participant is active at a time; Receive performs one turn
//   - Receive returns Pass to hand the turn over or Halt to end the dialogue
//   - The loop is iterative, so long conversations do not grow the stack
//   - Conversation.Terminate (usually from a Hook) is the only cancellation
//     signal besides ctx
//
// A ModelAgent turn that makes a function call appends two self-addressed
// messages (the call and its result) before the reply to the counterpart.
// Messages of a turn are committed together, so a failed model call leaves the
// conversation as it was before the turn.
package agent
