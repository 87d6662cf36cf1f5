// Package chat defines the domain entities for conversation state:
// users, their message logs, and their evolving preference profiles.
package chat

import "time"

// User is a stable identity resolved from a display name.
// The id never changes once assigned; names are not validated beyond
// trimming, so the directory treats "alice" and " alice " as the same user.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	LastSeen  time.Time `json:"lastSeen"`
}
