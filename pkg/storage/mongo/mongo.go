// Package mongo provides the durable Store backed by MongoDB. Turns are
// stored as collapsed documents holding both halves of an exchange; the
// codec in this package translates between those document shapes (and
// their historical variants) and the domain entities.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"github.com/synaptideco/synaptide/pkg/chat"
	"github.com/synaptideco/synaptide/pkg/storage"
)

// DefaultDatabase is used when the config leaves the database name empty.
const DefaultDatabase = "synaptide"

// Config holds connection settings for the Mongo store.
type Config struct {
	// URI is a MongoDB connection string, e.g. "mongodb://localhost:27017".
	URI string

	// Database name; DefaultDatabase when empty.
	Database string
}

// Store implements storage.Store on MongoDB.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

// NewStore connects, pings, and bootstraps indexes. Connection and ping
// failures come back as storage.UnavailableError so the caller can select
// the fallback store.
func NewStore(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, storage.UnavailableError{Err: fmt.Errorf("connecting to mongodb: %w", err)}
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, storage.UnavailableError{Err: fmt.Errorf("pinging mongodb: %w", err)}
	}

	dbName := cfg.Database
	if dbName == "" {
		dbName = DefaultDatabase
	}

	s := &Store{
		client: client,
		db:     client.Database(dbName),
		logger: logger,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, storage.UnavailableError{Err: err}
	}
	return s, nil
}

func (s *Store) users() *mongo.Collection    { return s.db.Collection("users") }
func (s *Store) turns() *mongo.Collection    { return s.db.Collection("turns") }
func (s *Store) profiles() *mongo.Collection { return s.db.Collection("profiles") }

func (s *Store) ensureIndexes(ctx context.Context) error {
	indexes := map[*mongo.Collection][]mongo.IndexModel{
		s.users(): {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		s.turns(): {
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: 1}}},
		},
	}
	for coll, models := range indexes {
		if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("creating indexes for %s: %w", coll.Name(), err)
		}
	}
	return nil
}

// GetUserByName resolves a trimmed display name to a user.
func (s *Store) GetUserByName(ctx context.Context, name string) (*chat.User, error) {
	name = strings.TrimSpace(name)

	var doc bson.M
	err := s.users().FindOne(ctx, bson.M{"name": name}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.NotFoundError{Resource: "user", Key: name}
	}
	if err != nil {
		return nil, storage.UnavailableError{Err: fmt.Errorf("looking up user by name: %w", err)}
	}
	return decodeUser(doc), nil
}

// CreateOrGetUser returns the existing user for the name with last_seen
// refreshed, or inserts a new one. A lookup failure aborts creation rather
// than risking a duplicate identity; the unique name index backstops the
// remaining insert race.
func (s *Store) CreateOrGetUser(ctx context.Context, name string) (*chat.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, storage.ValidationError{Field: "name", Message: "must not be empty"}
	}

	user, err := s.GetUserByName(ctx, name)
	if err == nil {
		return s.touchUser(ctx, user)
	}
	if !storage.IsNotFound(err) {
		return nil, err
	}

	now := time.Now()
	doc := bson.M{
		"_id":        uuid.NewString(),
		"name":       name,
		"created_at": now,
		"last_seen":  now,
	}
	if _, err := s.users().InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Lost the insert race; the winner's record is the identity.
			return s.GetUserByName(ctx, name)
		}
		return nil, storage.UnavailableError{Err: fmt.Errorf("creating user: %w", err)}
	}
	return decodeUser(doc), nil
}

func (s *Store) touchUser(ctx context.Context, user *chat.User) (*chat.User, error) {
	now := time.Now()
	_, err := s.users().UpdateByID(ctx, user.ID, bson.M{"$set": bson.M{"last_seen": now}})
	if err != nil {
		return nil, storage.UnavailableError{Err: fmt.Errorf("refreshing last_seen: %w", err)}
	}
	user.LastSeen = now
	return user, nil
}

// AppendMessage stores one turn. A user turn opens a new collapsed
// document; an assistant turn completes the newest open document for the
// user, or opens a standalone one when no user turn is pending. Other
// roles are stored as explicit role/content documents.
func (s *Store) AppendMessage(ctx context.Context, userID string, role chat.Role, content string, timestamp time.Time) (*chat.Message, error) {
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	switch role {
	case chat.RoleUser:
		return s.appendUserTurn(ctx, userID, content, timestamp)
	case chat.RoleAssistant:
		return s.appendAssistantTurn(ctx, userID, content, timestamp)
	default:
		return s.appendOtherTurn(ctx, userID, role, content, timestamp)
	}
}

func (s *Store) appendUserTurn(ctx context.Context, userID, content string, ts time.Time) (*chat.Message, error) {
	doc := bson.M{
		"_id":        uuid.NewString(),
		"user_id":    userID,
		"user_input": content,
		"timestamp":  ts,
		"version":    1,
	}
	if _, err := s.turns().InsertOne(ctx, doc); err != nil {
		return nil, storage.UnavailableError{Err: fmt.Errorf("appending user turn: %w", err)}
	}
	return &chat.Message{
		ID:        doc["_id"].(string),
		UserID:    userID,
		Role:      chat.RoleUser,
		Content:   content,
		Timestamp: ts,
	}, nil
}

func (s *Store) appendAssistantTurn(ctx context.Context, userID, content string, ts time.Time) (*chat.Message, error) {
	// Complete the most recent document still awaiting its reply.
	filter := bson.M{
		"user_id":     userID,
		"user_input":  bson.M{"$exists": true, "$ne": ""},
		"ai_response": bson.M{"$exists": false},
	}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetReturnDocument(options.After)

	var doc bson.M
	err := s.turns().FindOneAndUpdate(ctx, filter, bson.M{"$set": bson.M{"ai_response": content}}, opts).Decode(&doc)
	if err == nil {
		stored := normalizeTime(doc["timestamp"])
		return &chat.Message{
			ID:        docString(doc, "_id") + chat.AssistantIDSuffix,
			UserID:    userID,
			Role:      chat.RoleAssistant,
			Content:   content,
			Timestamp: stored.Add(assistantOffset),
		}, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.UnavailableError{Err: fmt.Errorf("completing turn: %w", err)}
	}

	// No pending user turn; store the reply standalone.
	standalone := bson.M{
		"_id":         uuid.NewString(),
		"user_id":     userID,
		"user_input":  "",
		"ai_response": content,
		"timestamp":   ts,
		"version":     1,
	}
	if _, err := s.turns().InsertOne(ctx, standalone); err != nil {
		return nil, storage.UnavailableError{Err: fmt.Errorf("appending assistant turn: %w", err)}
	}
	return &chat.Message{
		ID:        standalone["_id"].(string) + chat.AssistantIDSuffix,
		UserID:    userID,
		Role:      chat.RoleAssistant,
		Content:   content,
		Timestamp: ts.Add(assistantOffset),
	}, nil
}

func (s *Store) appendOtherTurn(ctx context.Context, userID string, role chat.Role, content string, ts time.Time) (*chat.Message, error) {
	doc := bson.M{
		"_id":       uuid.NewString(),
		"user_id":   userID,
		"role":      string(role),
		"content":   content,
		"timestamp": ts,
		"version":   1,
	}
	if _, err := s.turns().InsertOne(ctx, doc); err != nil {
		return nil, storage.UnavailableError{Err: fmt.Errorf("appending %s turn: %w", role, err)}
	}
	return &chat.Message{
		ID:        doc["_id"].(string),
		UserID:    userID,
		Role:      role,
		Content:   content,
		Timestamp: ts,
	}, nil
}

// ListMessages fans every turn document out into logical messages and
// sorts them explicitly by timestamp.
func (s *Store) ListMessages(ctx context.Context, userID string) ([]*chat.Message, error) {
	cur, err := s.turns().Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, storage.UnavailableError{Err: fmt.Errorf("listing turns: %w", err)}
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, storage.UnavailableError{Err: fmt.Errorf("decoding turns: %w", err)}
	}

	msgs := make([]*chat.Message, 0, len(docs)*2)
	for _, doc := range docs {
		msgs = append(msgs, decodeTurn(doc, userID)...)
	}
	sortMessages(msgs)
	return msgs, nil
}

// ClearMessages deletes the user's turn documents one by one. Failures are
// collected; the survivors stay deleted and the aggregate surfaces as a
// PartialFailureError.
func (s *Store) ClearMessages(ctx context.Context, userID string) error {
	cur, err := s.turns().Find(ctx, bson.M{"user_id": userID},
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return storage.UnavailableError{Err: fmt.Errorf("listing turns for clear: %w", err)}
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return storage.UnavailableError{Err: fmt.Errorf("decoding turns for clear: %w", err)}
	}

	var errs []error
	for _, doc := range docs {
		if _, err := s.turns().DeleteOne(ctx, bson.M{"_id": doc["_id"]}); err != nil {
			errs = append(errs, fmt.Errorf("deleting turn %v: %w", doc["_id"], err))
		}
	}
	if len(errs) > 0 {
		return storage.PartialFailureError{
			Attempted: len(docs),
			Failed:    len(errs),
			Errs:      errs,
		}
	}
	s.logger.Debug("cleared message log",
		zap.String("user_id", userID),
		zap.Int("deleted", len(docs)),
	)
	return nil
}

// GetProfile returns the user's profile document, decoded.
func (s *Store) GetProfile(ctx context.Context, userID string) (*chat.Profile, error) {
	var doc bson.M
	err := s.profiles().FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.NotFoundError{Resource: "profile", Key: userID}
	}
	if err != nil {
		return nil, storage.UnavailableError{Err: fmt.Errorf("loading profile: %w", err)}
	}
	return decodeProfile(doc, userID), nil
}

// MergeProfile reads, merges, and writes back with a version precondition
// so concurrent merges cannot silently drop each other. A merge that loses
// the precondition re-reads and retries once.
func (s *Store) MergeProfile(ctx context.Context, userID string, delta chat.ProfileDelta) (*chat.Profile, error) {
	for attempt := 0; attempt < 2; attempt++ {
		profile, err := s.GetProfile(ctx, userID)
		if storage.IsNotFound(err) {
			created, err := s.createProfile(ctx, userID, delta)
			if err == nil {
				return created, nil
			}
			if !errors.Is(err, errProfileExists) {
				return nil, err
			}
			// Lost the creation race; merge into the winner's document.
			continue
		}
		if err != nil {
			return nil, err
		}

		previous := profile.Version
		profile.Merge(delta, time.Now())

		res, err := s.profiles().ReplaceOne(ctx,
			bson.M{"_id": userID, "version": previous},
			encodeProfile(profile))
		if err != nil {
			return nil, storage.UnavailableError{Err: fmt.Errorf("writing profile: %w", err)}
		}
		if res.MatchedCount == 1 {
			return profile, nil
		}
		// Version moved underneath us; loop re-reads the fresh document.
		s.logger.Debug("profile merge lost version race, retrying",
			zap.String("user_id", userID),
			zap.Int("version", previous),
		)
	}
	return nil, fmt.Errorf("profile merge for user %s kept losing the version race", userID)
}

var errProfileExists = errors.New("profile already exists")

func (s *Store) createProfile(ctx context.Context, userID string, delta chat.ProfileDelta) (*chat.Profile, error) {
	profile := chat.NewProfile(userID, userID, delta, time.Now())
	if _, err := s.profiles().InsertOne(ctx, encodeProfile(profile)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, errProfileExists
		}
		return nil, storage.UnavailableError{Err: fmt.Errorf("creating profile: %w", err)}
	}
	return profile, nil
}

// Close disconnects from the backend.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
