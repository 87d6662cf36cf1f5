package mongo

import (
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/synaptideco/synaptide/pkg/chat"
)

// assistantOffset is added to a collapsed document's timestamp for the
// synthesized assistant message, so a pair stored at the same instant
// still sorts user-first.
const assistantOffset = time.Second

// normalizeTime converts the backend's native timestamp representation to
// time.Time. Historical documents carry a bson datetime, an epoch-millis
// number, or an RFC 3339 string, depending on which writer produced them.
func normalizeTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case bson.DateTime:
		return t.Time()
	case int64:
		return time.UnixMilli(t)
	case int32:
		return time.UnixMilli(int64(t))
	case float64:
		return time.UnixMilli(int64(t))
	case string:
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

func docString(doc bson.M, key string) string {
	if s, ok := doc[key].(string); ok {
		return s
	}
	return ""
}

func docStrings(doc bson.M, key string) []string {
	raw, ok := doc[key].(bson.A)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func docStringMap(doc bson.M, key string) map[string]string {
	out := map[string]string{}
	raw, ok := doc[key].(bson.M)
	if !ok {
		return out
	}
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

func docInt(doc bson.M, key string) int {
	switch n := doc[key].(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

// decodeUser maps a users-collection document to the domain entity.
func decodeUser(doc bson.M) *chat.User {
	return &chat.User{
		ID:        docString(doc, "_id"),
		Name:      docString(doc, "name"),
		CreatedAt: normalizeTime(doc["created_at"]),
		LastSeen:  normalizeTime(doc["last_seen"]),
	}
}

// decodeTurn fans a turn document out into its logical messages. A
// collapsed document yields up to two: the user message when user_input is
// present, and the assistant message when ai_response is present, the
// latter with a derived id and a timestamp strictly after the user's.
// Documents written with explicit role/content fields (system notices)
// yield exactly one message.
func decodeTurn(doc bson.M, userID string) []*chat.Message {
	id := docString(doc, "_id")
	ts := normalizeTime(doc["timestamp"])

	if role := docString(doc, "role"); role != "" {
		if content := docString(doc, "content"); content != "" {
			return []*chat.Message{{
				ID:        id,
				UserID:    userID,
				Role:      chat.Role(role),
				Content:   content,
				Timestamp: ts,
			}}
		}
		return nil
	}

	var out []*chat.Message
	if input := docString(doc, "user_input"); input != "" {
		out = append(out, &chat.Message{
			ID:        id,
			UserID:    userID,
			Role:      chat.RoleUser,
			Content:   input,
			Timestamp: ts,
		})
	}
	if response := docString(doc, "ai_response"); response != "" {
		out = append(out, &chat.Message{
			ID:        id + chat.AssistantIDSuffix,
			UserID:    userID,
			Role:      chat.RoleAssistant,
			Content:   response,
			Timestamp: ts.Add(assistantOffset),
		})
	}
	return out
}

// decodeProfile maps a profiles-collection document to the domain entity.
// Interest lists went through a rename: the newer short_term_interests key
// wins, the legacy interests key is the fallback, and absence of both
// means an empty set.
func decodeProfile(doc bson.M, userID string) *chat.Profile {
	interests := docStrings(doc, "short_term_interests")
	if interests == nil {
		interests = docStrings(doc, "interests")
	}
	if interests == nil {
		interests = []string{}
	}

	var traits []string
	if bio, ok := doc["bio"].(bson.M); ok {
		traits = docStrings(bio, "personality_traits")
	}

	style := chat.DefaultCommunicationStyle
	if len(traits) > 0 {
		style = traits[0]
	}

	version := docInt(doc, "version")
	if version == 0 {
		version = 1
	}

	p := &chat.Profile{
		ID:                 docString(doc, "_id"),
		UserID:             userID,
		Interests:          interests,
		CommunicationStyle: style,
		Traits:             traits,
		Preferences:        docStringMap(doc, "preferences"),
		Version:            version,
		LastUpdated:        normalizeTime(doc["last_updated"]),
	}

	if history, ok := doc["version_history"].(bson.A); ok {
		for _, entry := range history {
			m, ok := entry.(bson.M)
			if !ok {
				continue
			}
			rev := chat.ProfileRevision{Timestamp: normalizeTime(m["timestamp"])}
			if changes, ok := m["changes"].(bson.M); ok {
				// Audit snapshots went through the same key rename as the
				// top-level interest set.
				revInterests := docStrings(changes, "interests")
				if revInterests == nil {
					revInterests = docStrings(changes, "short_term_interests")
				}
				rev.Changes = chat.RevisionChanges{
					Interests:   revInterests,
					Preferences: docStringMap(changes, "preferences"),
				}
			}
			p.History = append(p.History, rev)
		}
	}
	return p
}

// encodeProfile writes the newer document shape. Legacy keys are read, never
// written back.
func encodeProfile(p *chat.Profile) bson.M {
	history := make(bson.A, 0, len(p.History))
	for _, rev := range p.History {
		history = append(history, bson.M{
			"timestamp": rev.Timestamp,
			"changes": bson.M{
				"interests":   toArray(rev.Changes.Interests),
				"preferences": toDoc(rev.Changes.Preferences),
			},
		})
	}
	return bson.M{
		"_id":                  p.ID,
		"user_id":              p.UserID,
		"short_term_interests": toArray(p.Interests),
		"bio": bson.M{
			"personality_traits": toArray(p.Traits),
		},
		"preferences":     toDoc(p.Preferences),
		"version":         p.Version,
		"version_history": history,
		"last_updated":    p.LastUpdated,
	}
}

func toArray(list []string) bson.A {
	out := make(bson.A, len(list))
	for i, v := range list {
		out[i] = v
	}
	return out
}

func toDoc(m map[string]string) bson.M {
	out := bson.M{}
	for k, v := range m {
		out[k] = v
	}
	return out
}

// sortMessages orders messages by timestamp ascending, keeping document
// order for equal timestamps.
func sortMessages(msgs []*chat.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
}
