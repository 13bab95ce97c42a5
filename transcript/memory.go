// Package transcript persists conversation histories. It provides an
// in-memory core.TranscriptStore, an Observer that mirrors live conversations
// into any store, Restore to rebuild a conversation and Open to select a
// backend from configuration. Durable backends live in the redisstore and
// sqlstore subpackages.
package transcript

import (
	"context"
	"sync"

	"github.com/hupe1980/agentchat/core"
)

var _ core.TranscriptStore = (*MemoryStore)(nil)

type memoryEntry struct {
	messages   []core.Message
	terminated bool
}

// MemoryStore is a volatile TranscriptStore keeping transcripts in a process
// local map. It is safe for concurrent access and best suited for tests or
// single-process runs. Load returns copies so callers cannot mutate stored
// history.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*memoryEntry)}
}

// Append records msg as the next message of conversationID.
func (s *MemoryStore) Append(ctx context.Context, conversationID string, msg core.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entryLocked(conversationID)
	e.messages = append(e.messages, msg)
	return nil
}

// Load returns the recorded messages of conversationID. Unknown ids yield an
// empty history.
func (s *MemoryStore) Load(ctx context.Context, conversationID string) ([]core.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[conversationID]
	if !ok {
		return nil, nil
	}
	return append([]core.Message(nil), e.messages...), nil
}

// MarkTerminated records that conversationID has terminated.
func (s *MemoryStore) MarkTerminated(ctx context.Context, conversationID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entryLocked(conversationID).terminated = true
	return nil
}

// Terminated reports whether conversationID was marked terminated.
func (s *MemoryStore) Terminated(ctx context.Context, conversationID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[conversationID]
	return ok && e.terminated, nil
}

// Conversations returns the ids of all stored conversations.
func (s *MemoryStore) Conversations() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	return ids
}

// Close implements io.Closer. It is a no-op.
func (s *MemoryStore) Close() error { return nil }

// entryLocked returns the entry for id, creating it; caller must hold the
// write lock.
func (s *MemoryStore) entryLocked(id string) *memoryEntry {
	e, ok := s.entries[id]
	if !ok {
		e = &memoryEntry{}
		s.entries[id] = e
	}
	return e
}
