package session

import (
	"fmt"
	"time"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ContentPart is one element of a multimodal message body.
type ContentPart struct {
	Type     string `json:"type"` // "text" or "image_url"
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"` // data: URI with base64 payload
}

// Message represents a single chat message. Content carries plain text;
// Parts is set instead when the turn is multimodal.
type Message struct {
	Role      string        `json:"role"`
	Content   string        `json:"content"`
	Parts     []ContentPart `json:"parts,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// Session represents a chat session. The first message is always the
// system persona turn; history is append-only between resets.
type Session struct {
	ID        string    `json:"id"`
	StartTime time.Time `json:"start_time"`
	Persona   string    `json:"persona"`
	messages  []Message
}

// New creates a session seeded with the persona system message.
func New(persona string) *Session {
	s := &Session{
		ID:        fmt.Sprintf("session_%d", time.Now().UnixNano()),
		StartTime: time.Now(),
		Persona:   persona,
	}
	s.messages = []Message{systemTurn(persona)}
	return s
}

func systemTurn(persona string) Message {
	return Message{Role: RoleSystem, Content: persona, Timestamp: time.Now()}
}

// AppendUser appends a plain-text user turn.
func (s *Session) AppendUser(text string) {
	s.messages = append(s.messages, Message{
		Role:      RoleUser,
		Content:   text,
		Timestamp: time.Now(),
	})
}

// AppendUserParts appends a multimodal user turn.
func (s *Session) AppendUserParts(parts []ContentPart) {
	s.messages = append(s.messages, Message{
		Role:      RoleUser,
		Parts:     parts,
		Timestamp: time.Now(),
	})
}

// AppendAssistant appends an assistant turn.
func (s *Session) AppendAssistant(text string) {
	s.messages = append(s.messages, Message{
		Role:      RoleAssistant,
		Content:   text,
		Timestamp: time.Now(),
	})
}

// Reset discards all turns except a fresh persona system message.
// There is no undo.
func (s *Session) Reset() {
	s.messages = []Message{systemTurn(s.Persona)}
}

// Truncate drops every turn at index n and after. Used by the orchestrator
// to restore the pre-call state when a completion fails mid-request.
func (s *Session) Truncate(n int) {
	if n < 1 {
		n = 1 // the persona turn always survives
	}
	if n < len(s.messages) {
		s.messages = s.messages[:n]
	}
}

// Len returns the number of messages including the persona turn.
func (s *Session) Len() int { return len(s.messages) }

// Messages returns a copy of the ordered history for a completion call.
func (s *Session) Messages() []Message {
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}
