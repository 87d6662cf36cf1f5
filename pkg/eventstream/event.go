package eventstream

import (
	"time"

	"github.com/synaptideco/synaptide/pkg/chat"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeExchangePersisted is emitted after a user/assistant exchange is persisted.
	EventTypeExchangePersisted = "synaptide.exchange.persisted"
)

// ExchangePersistedEvent is a transport-neutral event payload for a persisted exchange.
type ExchangePersistedEvent struct {
	SchemaVersion int              `json:"schema_version"`
	EventType     string           `json:"event_type"`
	EventID       string           `json:"event_id"`
	EmittedAt     time.Time        `json:"emitted_at"`
	RequestMeta   ExchangeMeta     `json:"request_meta"`
	UserMessage   *chat.Message    `json:"user_message"`
	Reply         *chat.Message    `json:"reply"`
	Profile       *ProfileActivity `json:"profile,omitempty"`
}

// ExchangeMeta captures request lifecycle metadata for the event.
type ExchangeMeta struct {
	UserID      string    `json:"user_id"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`
	HistorySize int       `json:"history_size"`
}

// ProfileActivity records whether the exchange triggered a profile merge.
type ProfileActivity struct {
	Analyzed bool `json:"analyzed"`
	Version  int  `json:"version,omitempty"`
}
