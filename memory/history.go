package memory

import "github.com/smallnest/convmem/tokens"

// History is the append-only ground-truth log of a conversation.
// It is owned by a single conversation loop and is not safe for concurrent use.
type History struct {
	messages []*Message
}

// NewHistory creates an empty conversation history
func NewHistory() *History {
	return &History{messages: make([]*Message, 0)}
}

// Append adds a message to the end of the history
func (h *History) Append(msg *Message) {
	h.messages = append(h.messages, msg)
}

// Messages returns a copy of the history in order
func (h *History) Messages() []*Message {
	out := make([]*Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Len returns the number of messages recorded
func (h *History) Len() int {
	return len(h.messages)
}

// Last returns the most recent message, or nil when empty
func (h *History) Last() *Message {
	if len(h.messages) == 0 {
		return nil
	}
	return h.messages[len(h.messages)-1]
}

// LastOfRole returns the most recent message with the given role, or nil
func (h *History) LastOfRole(role Role) *Message {
	for i := len(h.messages) - 1; i >= 0; i-- {
		if h.messages[i].role == role {
			return h.messages[i]
		}
	}
	return nil
}

// Stats contains statistics about how much of the history a window keeps
type Stats struct {
	TotalMessages   int
	TotalTokens     int
	ActiveMessages  int
	ActiveTokens    int
	CompressionRate float64
}

// Compare computes Stats for a window built from history
func Compare(history []*Message, window *Window, c tokens.Counter) *Stats {
	stats := &Stats{TotalMessages: len(history)}
	for _, msg := range history {
		stats.TotalTokens += msg.TokenCount(c)
	}
	if window != nil {
		for _, msg := range window.msgs {
			if msg.role == RoleSystem {
				continue
			}
			stats.ActiveMessages++
			stats.ActiveTokens += msg.TokenCount(c)
		}
	}
	if stats.TotalTokens > 0 {
		stats.CompressionRate = float64(stats.ActiveTokens) / float64(stats.TotalTokens)
	}
	return stats
}
