package memory

import (
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/smallnest/convmem/tokens"
)

// Reply metadata keys under which model clients record provider-reported usage
const (
	MetaPromptTokens     = "prompt_tokens"
	MetaCompletionTokens = "completion_tokens"
)

// Role identifies who authored a message
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single immutable entry in a conversation.
// The token count is computed on first request and cached.
type Message struct {
	id        string
	role      Role
	content   string
	timestamp time.Time
	metadata  map[string]any

	tokensOnce sync.Once
	tokens     int
}

// NewMessage creates a message with a fresh ID and the current timestamp
func NewMessage(role Role, content string) *Message {
	return NewMessageWithMetadata(role, content, nil)
}

// NewMessageWithMetadata creates a message carrying a copy of metadata
func NewMessageWithMetadata(role Role, content string, metadata map[string]any) *Message {
	md := make(map[string]any, len(metadata))
	maps.Copy(md, metadata)
	return &Message{
		id:        uuid.New().String(),
		role:      role,
		content:   content,
		timestamp: time.Now(),
		metadata:  md,
	}
}

// SystemMessage creates a system-role message
func SystemMessage(content string) *Message {
	return NewMessage(RoleSystem, content)
}

// UserMessage creates a user-role message
func UserMessage(content string) *Message {
	return NewMessage(RoleUser, content)
}

// AssistantMessage creates an assistant-role message
func AssistantMessage(content string) *Message {
	return NewMessage(RoleAssistant, content)
}

func (m *Message) ID() string           { return m.id }
func (m *Message) Role() Role           { return m.role }
func (m *Message) Content() string      { return m.content }
func (m *Message) Timestamp() time.Time { return m.timestamp }

// Metadata returns the value stored under key at construction time
func (m *Message) Metadata(key string) (any, bool) {
	v, ok := m.metadata[key]
	return v, ok
}

// ProviderUsage returns the prompt and completion token counts the provider
// reported for this message, if any
func (m *Message) ProviderUsage() (prompt, completion int, ok bool) {
	p, ok1 := m.metadata[MetaPromptTokens].(int)
	c, ok2 := m.metadata[MetaCompletionTokens].(int)
	if !ok1 || !ok2 {
		return 0, 0, false
	}
	return p, c, true
}

// TokenCount returns the token count of the content, computing it with c
// the first time it is called. Later calls return the cached value.
func (m *Message) TokenCount(c tokens.Counter) int {
	m.tokensOnce.Do(func() {
		m.tokens = c.Count(m.content)
	})
	return m.tokens
}

// SameContent reports whether two messages have the same role and content
func SameContent(a, b *Message) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.role == b.role && a.content == b.content
}
