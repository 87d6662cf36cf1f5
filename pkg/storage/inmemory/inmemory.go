// Package inmemory provides the non-durable fallback Store: process-local
// keyed maps behind a mutex, selected when the document backend is
// unavailable or in minimal deployments. State does not survive a restart.
package inmemory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/synaptideco/synaptide/pkg/chat"
	"github.com/synaptideco/synaptide/pkg/storage"
)

// Store implements storage.Store with in-memory maps: user-by-id,
// messages-by-user-by-id, profile-by-user.
type Store struct {
	mu sync.RWMutex

	users    map[string]*chat.User
	messages map[string]map[string]*record
	profiles map[string]*chat.Profile

	userSeq    int
	messageSeq int
	profileSeq int
}

// record wraps a message with its insertion sequence so that the sort can
// break timestamp ties deterministically in append order.
type record struct {
	msg *chat.Message
	seq int
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		users:    make(map[string]*chat.User),
		messages: make(map[string]map[string]*record),
		profiles: make(map[string]*chat.Profile),
	}
}

// GetUserByName resolves a trimmed display name to a user.
func (s *Store) GetUserByName(_ context.Context, name string) (*chat.User, error) {
	name = strings.TrimSpace(name)

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Name == name {
			return cloneUser(u), nil
		}
	}
	return nil, storage.NotFoundError{Resource: "user", Key: name}
}

// CreateOrGetUser returns the existing user for the name with lastSeen
// refreshed, or creates a new one.
func (s *Store) CreateOrGetUser(_ context.Context, name string) (*chat.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, storage.ValidationError{Field: "name", Message: "must not be empty"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Name == name {
			u.LastSeen = time.Now()
			return cloneUser(u), nil
		}
	}

	s.userSeq++
	now := time.Now()
	user := &chat.User{
		ID:        fmt.Sprintf("user_%d", s.userSeq),
		Name:      name,
		CreatedAt: now,
		LastSeen:  now,
	}
	s.users[user.ID] = user
	s.messages[user.ID] = make(map[string]*record)
	return cloneUser(user), nil
}

// AppendMessage stores one turn, assigning timestamp = now when the caller
// passes the zero time.
func (s *Store) AppendMessage(_ context.Context, userID string, role chat.Role, content string, timestamp time.Time) (*chat.Message, error) {
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[userID]; !ok {
		s.messages[userID] = make(map[string]*record)
	}

	s.messageSeq++
	msg := &chat.Message{
		ID:        fmt.Sprintf("msg_%d", s.messageSeq),
		UserID:    userID,
		Role:      role,
		Content:   content,
		Timestamp: timestamp,
	}
	s.messages[userID][msg.ID] = &record{msg: msg, seq: s.messageSeq}
	return cloneMessage(msg), nil
}

// ListMessages returns the user's log sorted ascending by timestamp, ties
// broken by append order.
func (s *Store) ListMessages(_ context.Context, userID string) ([]*chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byID, ok := s.messages[userID]
	if !ok {
		return []*chat.Message{}, nil
	}

	recs := make([]*record, 0, len(byID))
	for _, r := range byID {
		recs = append(recs, r)
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].msg.Timestamp.Equal(recs[j].msg.Timestamp) {
			return recs[i].seq < recs[j].seq
		}
		return recs[i].msg.Timestamp.Before(recs[j].msg.Timestamp)
	})

	out := make([]*chat.Message, len(recs))
	for i, r := range recs {
		out[i] = cloneMessage(r.msg)
	}
	return out, nil
}

// ClearMessages drops every message for the user. In-memory deletion
// cannot partially fail.
func (s *Store) ClearMessages(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if byID, ok := s.messages[userID]; ok {
		for id := range byID {
			delete(byID, id)
		}
	}
	return nil
}

// GetProfile returns the user's profile if one has been created.
func (s *Store) GetProfile(_ context.Context, userID string) (*chat.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, storage.NotFoundError{Resource: "profile", Key: userID}
	}
	return cloneProfile(p), nil
}

// MergeProfile folds the delta into the user's profile, creating it on
// first merge. Merges for a single user serialize under the store mutex,
// so no versions are lost here.
func (s *Store) MergeProfile(_ context.Context, userID string, delta chat.ProfileDelta) (*chat.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	p, ok := s.profiles[userID]
	if !ok {
		s.profileSeq++
		p = chat.NewProfile(fmt.Sprintf("profile_%d", s.profileSeq), userID, delta, now)
		s.profiles[userID] = p
		return cloneProfile(p), nil
	}

	p.Merge(delta, now)
	return cloneProfile(p), nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

func cloneUser(u *chat.User) *chat.User {
	c := *u
	return &c
}

func cloneMessage(m *chat.Message) *chat.Message {
	c := *m
	return &c
}

func cloneProfile(p *chat.Profile) *chat.Profile {
	c := *p
	c.Interests = append([]string(nil), p.Interests...)
	c.Traits = append([]string(nil), p.Traits...)
	c.Preferences = make(map[string]string, len(p.Preferences))
	for k, v := range p.Preferences {
		c.Preferences[k] = v
	}
	c.History = append([]chat.ProfileRevision(nil), p.History...)
	return &c
}
