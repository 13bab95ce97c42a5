package core

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Identity is anything with a stable participant name. Communicators satisfy it.
type Identity interface {
	Name() string
}

// Message is one turn: content plus provenance. From and To are assigned by
// Sign at the moment the message is about to be recorded.
type Message struct {
	ID        string
	From      string
	To        string
	Content   Content
	CreatedAt time.Time
}

// NewMessage creates an unsigned message carrying content.
func NewMessage(content Content) Message {
	return Message{
		ID:        NewID(),
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// Sign overwrites provenance with the identities of the two communicating
// parties and returns the signed message.
func (m Message) Sign(from, to Identity) Message {
	m.From = from.Name()
	m.To = to.Name()
	return m
}

// IsSelfAddressed reports whether the message was sent by a participant to itself.
func (m Message) IsSelfAddressed() bool { return m.From == m.To }

// String renders "<from> (to <to>):\n<content>\n".
func (m Message) String() string {
	content := ""
	if m.Content != nil {
		content = m.Content.String()
	}
	return fmt.Sprintf("%s (to %s):\n%s\n", m.From, m.To, content)
}

// messageJSON is the persisted form of a Message.
type messageJSON struct {
	ID        string          `json:"id"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Content   json.RawMessage `json:"content"`
	CreatedAt time.Time       `json:"created_at"`
}

// MarshalJSON implements json.Marshaler using the tagged content envelope.
func (m Message) MarshalJSON() ([]byte, error) {
	content, err := MarshalContent(m.Content)
	if err != nil {
		return nil, err
	}

	return json.Marshal(messageJSON{
		ID:        m.ID,
		From:      m.From,
		To:        m.To,
		Content:   content,
		CreatedAt: m.CreatedAt,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw messageJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	content, err := UnmarshalContent(raw.Content)
	if err != nil {
		return err
	}

	*m = Message{
		ID:        raw.ID,
		From:      raw.From,
		To:        raw.To,
		Content:   content,
		CreatedAt: raw.CreatedAt,
	}

	return nil
}

// NewID returns a random identifier for conversations and messages.
func NewID() string {
	return uuid.NewString()
}
