package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrUnknownPartType is returned when a message part carries a type tag this
// client does not understand.
var ErrUnknownPartType = errors.New("unknown message part type")

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the conversation roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is one entry of the conversation log. Parts are ordered and only ever
// appended to (or updated in place by callId) while the owning turn streams.
type Message struct {
	ID    string `json:"id"`
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`
}

// NewUserMessage creates a user message holding a single text part.
func NewUserMessage(text string) Message {
	return Message{
		ID:    NewID(),
		Role:  RoleUser,
		Parts: []Part{TextPart{Text: text}},
	}
}

// NewAssistantMessage creates an empty assistant message. An empty id gets a
// generated one.
func NewAssistantMessage(id string) Message {
	if id == "" {
		id = NewID()
	}
	return Message{ID: id, Role: RoleAssistant}
}

// NewID returns a fresh message or call identifier.
func NewID() string {
	return uuid.NewString()
}

// Text concatenates every text part of the message.
func (m Message) Text() string {
	var b strings.Builder
	for _, p := range m.Parts {
		if t, ok := p.(TextPart); ok {
			b.WriteString(t.Text)
		}
	}
	return b.String()
}

// ToolPart returns the tool part with the given call id and its index.
func (m Message) ToolPart(callID string) (ToolPart, int, bool) {
	for i, p := range m.Parts {
		if t, ok := p.(ToolPart); ok && t.CallID == callID {
			return t, i, true
		}
	}
	return ToolPart{}, -1, false
}

// Clone returns a deep copy so snapshots handed to the UI never alias the log.
func (m Message) Clone() Message {
	out := m
	if m.Parts != nil {
		out.Parts = make([]Part, len(m.Parts))
		for i, p := range m.Parts {
			out.Parts[i] = clonePart(p)
		}
	}
	return out
}

// CloneMessages deep-copies a message slice.
func CloneMessages(in []Message) []Message {
	if in == nil {
		return nil
	}
	out := make([]Message, len(in))
	for i, m := range in {
		out[i] = m.Clone()
	}
	return out
}

type messageJSON struct {
	ID      string            `json:"id"`
	Role    Role              `json:"role"`
	Parts   []json.RawMessage `json:"parts"`
	Content string            `json:"content,omitempty"`
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var raw messageJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if !raw.Role.Valid() {
		return fmt.Errorf("message %q: unsupported role %q", raw.ID, raw.Role)
	}

	parts := make([]Part, 0, len(raw.Parts))
	for i, rp := range raw.Parts {
		p, err := UnmarshalPart(rp)
		if err != nil {
			return fmt.Errorf("message %q part %d: %w", raw.ID, i, err)
		}
		parts = append(parts, p)
	}
	// Older clients send a flat content string instead of parts.
	if len(parts) == 0 && raw.Content != "" {
		parts = append(parts, TextPart{Text: raw.Content})
	}

	*m = Message{ID: raw.ID, Role: raw.Role, Parts: parts}
	return nil
}
