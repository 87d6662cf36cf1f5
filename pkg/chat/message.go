package chat

import "time"

// Role attributes a message to one side of the conversation.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"

	// RoleSystem is tolerated on read for forward compatibility but is
	// never produced by an exchange.
	RoleSystem Role = "system"
)

// AssistantIDSuffix marks the synthesized assistant half of a collapsed
// turn document (see pkg/storage/mongo).
const AssistantIDSuffix = "_ai"

// Message is one turn of a user's conversation log.
// Timestamp is the sole sort key for the log; when the backend collapses
// a user turn and its reply into one document, the assistant message gets
// a timestamp strictly after the user message so the order survives a sort.
type Message struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
