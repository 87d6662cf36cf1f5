package chat

import "time"

// DefaultCommunicationStyle is the style a profile starts with. Incoming
// deltas carrying this value never overwrite an observed style.
const DefaultCommunicationStyle = "neutral"

// Profile accumulates preference signals extracted from a user's
// conversation history. One profile per user, created lazily on first
// merge, never deleted.
type Profile struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`

	// Interests is a deduplicated set kept in first-observed order.
	Interests []string `json:"interests"`

	// CommunicationStyle is the scalar classifier; Traits is the ordered
	// history of observed styles, most recent first. The scalar always
	// matches Traits[0] once any non-default style has been seen.
	CommunicationStyle string   `json:"communicationStyle"`
	Traits             []string `json:"traits,omitempty"`

	Preferences map[string]string `json:"preferences"`

	// Version increments on every merge, whether or not a visible field
	// changed.
	Version     int       `json:"version"`
	LastUpdated time.Time `json:"lastUpdated"`

	// History is the append-only audit trail of merges.
	History []ProfileRevision `json:"versionHistory,omitempty"`
}

// ProfileDelta is an incremental preference update, typically produced by
// the preference analyzer. Zero-value fields mean "no signal".
type ProfileDelta struct {
	Interests          []string          `json:"interests"`
	CommunicationStyle string            `json:"communicationStyle"`
	Preferences        map[string]string `json:"preferences"`
}

// ProfileRevision is one audit entry recorded by a merge.
type ProfileRevision struct {
	Timestamp time.Time       `json:"timestamp"`
	Changes   RevisionChanges `json:"changes"`
}

// RevisionChanges snapshots the merged interest set and preference map at
// the time of a revision.
type RevisionChanges struct {
	Interests   []string          `json:"interests"`
	Preferences map[string]string `json:"preferences"`
}

// NewProfile seeds a profile from a first delta. Missing delta fields get
// their defaults: empty interest set, "neutral" style, empty preferences.
func NewProfile(id, userID string, delta ProfileDelta, now time.Time) *Profile {
	p := &Profile{
		ID:                 id,
		UserID:             userID,
		Interests:          dedup(delta.Interests),
		CommunicationStyle: DefaultCommunicationStyle,
		Preferences:        map[string]string{},
		Version:            1,
		LastUpdated:        now,
	}
	if delta.CommunicationStyle != "" && delta.CommunicationStyle != DefaultCommunicationStyle {
		p.CommunicationStyle = delta.CommunicationStyle
		p.Traits = []string{delta.CommunicationStyle}
	}
	for k, v := range delta.Preferences {
		p.Preferences[k] = v
	}
	return p
}

// Merge folds a delta into the profile: interests become the union of the
// existing set and the incoming values, preferences shallow-merge with
// incoming keys winning, and a non-default incoming style replaces the
// scalar and is pushed onto Traits unless already present there. Version
// and LastUpdated always advance, and an audit revision is appended, even
// when nothing visible changed.
func (p *Profile) Merge(delta ProfileDelta, now time.Time) {
	for _, interest := range delta.Interests {
		if !contains(p.Interests, interest) {
			p.Interests = append(p.Interests, interest)
		}
	}

	if p.Preferences == nil {
		p.Preferences = map[string]string{}
	}
	for k, v := range delta.Preferences {
		p.Preferences[k] = v
	}

	if style := delta.CommunicationStyle; style != "" && style != DefaultCommunicationStyle {
		p.CommunicationStyle = style
		// Presence check keeps the trait history idempotent when the same
		// style is reported on consecutive analyses.
		if !contains(p.Traits, style) {
			p.Traits = append([]string{style}, p.Traits...)
		}
	}

	p.Version++
	p.LastUpdated = now
	p.History = append(p.History, ProfileRevision{
		Timestamp: now,
		Changes: RevisionChanges{
			Interests:   append([]string(nil), p.Interests...),
			Preferences: copyMap(p.Preferences),
		},
	})
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func dedup(list []string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if !contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
