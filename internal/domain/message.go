package domain

import "time"

// MessageRole distinguishes the author of a conversation message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// MessageStatus tracks transient delivery state. The zero value means the
// message is settled.
type MessageStatus string

const (
	MessageStatusSending MessageStatus = "sending"
	MessageStatusError   MessageStatus = "error"
)

// Message is a single entry in a conversation log. Messages are immutable
// once appended except for the single in-flight assistant message, whose
// content grows while the model streams and is finalized at end-of-stream.
type Message struct {
	ID        string        `json:"id"`
	Role      MessageRole   `json:"role"`
	Content   string        `json:"content"`
	Timestamp time.Time     `json:"timestamp"`
	Status    MessageStatus `json:"status,omitempty"`
	ImageURLs []string      `json:"imageUrls,omitempty"`
}

// Clone returns a deep copy so snapshots cannot alias the live slice.
func (m Message) Clone() Message {
	out := m
	if len(m.ImageURLs) > 0 {
		out.ImageURLs = append([]string(nil), m.ImageURLs...)
	}
	return out
}
