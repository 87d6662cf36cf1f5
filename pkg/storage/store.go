// Package storage defines the persistence contract for conversation state.
// The Store is the single capability interface behind which the durable
// document backend and the in-memory fallback are interchangeable; callers
// never see backend-specific document shapes.
package storage

import (
	"context"
	"time"

	"github.com/synaptideco/synaptide/pkg/chat"
)

// Store persists users, their message logs, and their preference profiles.
// Implementations are selected once at process start (see storeutil), never
// per call. All methods are safe for concurrent use across users; within a
// single user, callers must await an append before issuing a dependent one
// to preserve turn order.
type Store interface {
	// GetUserByName resolves a display name to a user. The name is trimmed
	// of surrounding whitespace before lookup. Returns NotFoundError when
	// no user has that name.
	GetUserByName(ctx context.Context, name string) (*chat.User, error)

	// CreateOrGetUser is the idempotent entry point for first contact: an
	// existing user is returned with lastSeen refreshed, otherwise a new
	// user is created with lastSeen = createdAt = now. Implementations
	// re-check existence before inserting so a racy lookup failure cannot
	// mint a duplicate identity.
	CreateOrGetUser(ctx context.Context, name string) (*chat.User, error)

	// AppendMessage stores one turn and returns the record including its
	// assigned id. A zero timestamp means "now".
	AppendMessage(ctx context.Context, userID string, role chat.Role, content string, timestamp time.Time) (*chat.Message, error)

	// ListMessages returns every message for the user sorted ascending by
	// timestamp. The sort is an explicit stable comparison; backend-native
	// ordering is never relied on.
	ListMessages(ctx context.Context, userID string) ([]*chat.Message, error)

	// ClearMessages deletes every message for the user. Deletion is
	// best-effort per record: a partial failure surfaces as a
	// PartialFailureError without rolling back what already succeeded.
	ClearMessages(ctx context.Context, userID string) error

	// GetProfile returns the user's profile, or NotFoundError when none
	// has been created yet.
	GetProfile(ctx context.Context, userID string) (*chat.Profile, error)

	// MergeProfile folds a delta into the user's profile per the
	// chat.Profile merge semantics, creating the profile on first merge.
	// The merged result is returned.
	MergeProfile(ctx context.Context, userID string, delta chat.ProfileDelta) (*chat.Profile, error)

	// Close releases backend resources.
	Close() error
}
