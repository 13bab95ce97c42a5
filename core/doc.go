// Package core provides the foundational domain types shared by every other
// package in agentchat:
//
//   - Content (closed variant of Text and FunctionCall)
//   - Message (content plus signed provenance)
//   - Conversation (append-only history plus a terminal flag)
//   - Observer / TranscriptStore (pluggable sinks for appended messages)
//
// Concrete agents, model adapters and stores live in their own packages and
// depend on core, never the other way round.
package core
