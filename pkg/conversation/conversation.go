// Package conversation orchestrates a chat exchange: it persists the user
// turn, asks the model for a reply, persists the reply, and periodically
// refreshes the user's preference profile from the accumulated history.
package conversation

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/synaptideco/synaptide/pkg/chat"
	"github.com/synaptideco/synaptide/pkg/eventstream"
	"github.com/synaptideco/synaptide/pkg/llm"
	"github.com/synaptideco/synaptide/pkg/storage"
)

// AnalysisInterval is how many user turns elapse between preference analyses.
const AnalysisInterval = 5

// Service runs exchanges against a store, a generator, and an optional
// analyzer.
type Service struct {
	store     storage.Store
	generator llm.Generator
	analyzer  llm.Analyzer
	publisher eventstream.Publisher
	logger    *zap.Logger
}

// Exchange is the result of one round trip through the service.
type Exchange struct {
	UserMessage *chat.Message `json:"userMessage"`
	Reply       *chat.Message `json:"reply"`
}

// NewService creates a conversation service. The analyzer may be nil, in
// which case profiles are never refreshed.
func NewService(
	store storage.Store,
	generator llm.Generator,
	analyzer llm.Analyzer,
	publisher eventstream.Publisher,
	logger *zap.Logger,
) *Service {
	return &Service{
		store:     store,
		generator: generator,
		analyzer:  analyzer,
		publisher: publisher,
		logger:    logger,
	}
}

// Exchange records the user's message, generates a reply from the full
// history, records the reply, and returns both. Every AnalysisInterval-th
// user turn also triggers a preference analysis; analysis and event
// publication failures are logged but never fail the exchange.
func (s *Service) Exchange(ctx context.Context, userID, content string) (*Exchange, error) {
	if strings.TrimSpace(content) == "" {
		return nil, storage.ValidationError{Field: "content", Message: "must not be empty"}
	}

	startedAt := time.Now()

	userMsg, err := s.store.AppendMessage(ctx, userID, chat.RoleUser, content, time.Time{})
	if err != nil {
		return nil, err
	}

	history, err := s.store.ListMessages(ctx, userID)
	if err != nil {
		return nil, err
	}

	replyText, err := s.generator.Generate(ctx, llm.History(history))
	if err != nil {
		return nil, err
	}

	reply, err := s.store.AppendMessage(ctx, userID, chat.RoleAssistant, replyText, time.Time{})
	if err != nil {
		return nil, err
	}

	var activity *eventstream.ProfileActivity
	if s.dueForAnalysis(history) {
		activity = s.refreshProfile(ctx, userID, history)
	}

	s.publish(ctx, startedAt, userMsg, reply, len(history), activity)

	return &Exchange{UserMessage: userMsg, Reply: reply}, nil
}

// dueForAnalysis reports whether the user-turn count, including the turn
// just appended, is a multiple of AnalysisInterval.
func (s *Service) dueForAnalysis(history []*chat.Message) bool {
	if s.analyzer == nil {
		return false
	}

	userTurns := 0
	for _, m := range history {
		if m.Role == chat.RoleUser {
			userTurns++
		}
	}

	return userTurns > 0 && userTurns%AnalysisInterval == 0
}

func (s *Service) refreshProfile(ctx context.Context, userID string, history []*chat.Message) *eventstream.ProfileActivity {
	delta, err := s.analyzer.Analyze(ctx, llm.History(history))
	if err != nil {
		s.logger.Warn("preference analysis failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return nil
	}

	profile, err := s.store.MergeProfile(ctx, userID, *delta)
	if err != nil {
		s.logger.Warn("profile merge failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return nil
	}

	s.logger.Info("profile refreshed",
		zap.String("user_id", userID),
		zap.Int("version", profile.Version),
	)

	return &eventstream.ProfileActivity{Analyzed: true, Version: profile.Version}
}

func (s *Service) publish(
	ctx context.Context,
	startedAt time.Time,
	userMsg, reply *chat.Message,
	historySize int,
	activity *eventstream.ProfileActivity,
) {
	if s.publisher == nil {
		return
	}

	completedAt := time.Now()
	event := &eventstream.ExchangePersistedEvent{
		SchemaVersion: eventstream.SchemaVersionV1,
		EventType:     eventstream.EventTypeExchangePersisted,
		EventID:       uuid.NewString(),
		EmittedAt:     completedAt,
		RequestMeta: eventstream.ExchangeMeta{
			UserID:      userMsg.UserID,
			StartedAt:   startedAt,
			CompletedAt: completedAt,
			DurationMs:  completedAt.Sub(startedAt).Milliseconds(),
			HistorySize: historySize,
		},
		UserMessage: userMsg,
		Reply:       reply,
		Profile:     activity,
	}

	if err := s.publisher.PublishExchange(ctx, event); err != nil {
		s.logger.Warn("exchange event publication failed",
			zap.String("user_id", userMsg.UserID),
			zap.Error(err),
		)
	}
}
