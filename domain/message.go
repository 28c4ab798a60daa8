package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

type Message struct {
	ID      string `json:"id,omitempty"`
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func NewMessage(role Role, content string) Message {
	return Message{
		ID:      uuid.NewString(),
		Role:    role,
		Content: content,
	}
}

// Conversation is an append-only ordered message history. Once appended a
// message is never reordered or replaced; streaming grows the content of the
// most recent message through ExtendLast.
type Conversation struct {
	messages []Message
}

func NewConversation() *Conversation {
	return &Conversation{}
}

func (c *Conversation) Append(m Message) {
	c.messages = append(c.messages, m)
}

// ExtendLast appends delta to the content of the most recent message. It is
// a no-op on an empty conversation.
func (c *Conversation) ExtendLast(delta string) {
	if len(c.messages) == 0 {
		return
	}
	c.messages[len(c.messages)-1].Content += delta
}

func (c *Conversation) Last() (Message, bool) {
	if len(c.messages) == 0 {
		return Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}

func (c *Conversation) Len() int {
	return len(c.messages)
}

// Messages returns a copy so callers cannot mutate history in place.
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// RequestTrace correlates one client submission with one upstream invocation
// and its log lines.
type RequestTrace struct {
	RequestID  string
	Model      string
	Path       string
	ReceivedAt time.Time
}

func NewRequestTrace(model, path string) RequestTrace {
	return RequestTrace{
		RequestID:  uuid.NewString(),
		Model:      model,
		Path:       path,
		ReceivedAt: time.Now(),
	}
}
