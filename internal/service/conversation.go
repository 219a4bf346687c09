// Package service provides business logic for the task assistant.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sahwira-ai/sahwira/internal/model"
	"github.com/sahwira-ai/sahwira/pkg/logger"
	"github.com/sahwira-ai/sahwira/pkg/metrics"
)

const (
	// TitleLength is the number of runes of the first user message kept as title.
	TitleLength = 50
	// MaxTitleLength bounds a user-supplied title.
	MaxTitleLength = 256
	// DefaultTitle names a conversation without user messages.
	DefaultTitle = "New Conversation"
)

// ConversationService handles conversation operations. Conversations are owned by user id.
type ConversationService struct {
	store  ConversationStore
	events EventPublisher
	logger *logger.Logger
	now    func() time.Time
}

// NewConversationService creates a new conversation service.
func NewConversationService(store ConversationStore, events EventPublisher, log *logger.Logger) *ConversationService {
	return &ConversationService{
		store:  store,
		events: events,
		logger: log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new conversation titled after its first user message.
func (s *ConversationService) Create(ctx context.Context, userID string, messages []model.Message) (*model.Conversation, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	now := s.now()
	messages, err := s.validateMessages(messages, now)
	if err != nil {
		return nil, err
	}

	conv := &model.Conversation{
		UserID:    userID,
		Title:     DeriveTitle(messages),
		Messages:  messages,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Insert(ctx, conv); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	metrics.ConversationsTotal.Inc()

	publish(ctx, s.events, s.logger, &model.Event{
		Type:      model.EventConversationCreated,
		UserID:    userID,
		SubjectID: conv.ID,
		Data:      map[string]any{"messages": len(messages)},
	})

	s.logger.Info("conversation created",
		zap.String("conversation_id", conv.ID),
		zap.String("user_id", userID),
	)

	return conv, nil
}

// ReplaceMessages overwrites the message list with the full accumulated history.
func (s *ConversationService) ReplaceMessages(ctx context.Context, userID, id string, messages []model.Message) (*model.Conversation, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	now := s.now()
	messages, err := s.validateMessages(messages, now)
	if err != nil {
		return nil, err
	}

	conv, err := s.store.ReplaceMessagesOwned(ctx, id, userID, messages, now)
	if err != nil {
		return nil, err
	}

	publish(ctx, s.events, s.logger, &model.Event{
		Type:      model.EventConversationUpdated,
		UserID:    userID,
		SubjectID: conv.ID,
		Data:      map[string]any{"messages": len(messages)},
	})

	return conv, nil
}

// Rename sets the title of a conversation owned by userID.
func (s *ConversationService) Rename(ctx context.Context, userID, id, title string) (*model.Conversation, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	title = strings.TrimSpace(title)
	if title == "" {
		verr := newValidationError("title is required")
		verr.add("title", "required")
		return nil, verr
	}
	if len([]rune(title)) > MaxTitleLength {
		verr := newValidationError("title too long")
		verr.add("title", fmt.Sprintf("must be at most %d characters", MaxTitleLength))
		return nil, verr
	}

	conv, err := s.store.RenameOwned(ctx, id, userID, title)
	if err != nil {
		return nil, err
	}

	publish(ctx, s.events, s.logger, &model.Event{
		Type:      model.EventConversationRenamed,
		UserID:    userID,
		SubjectID: conv.ID,
		Data:      map[string]any{"title": title},
	})

	return conv, nil
}

// Delete removes a conversation owned by userID.
func (s *ConversationService) Delete(ctx context.Context, userID, id string) error {
	if userID == "" {
		return ErrUnauthorized
	}
	if err := s.store.DeleteOwned(ctx, id, userID); err != nil {
		return err
	}

	publish(ctx, s.events, s.logger, &model.Event{
		Type:      model.EventConversationDeleted,
		UserID:    userID,
		SubjectID: id,
	})

	s.logger.Info("conversation deleted",
		zap.String("conversation_id", id),
		zap.String("user_id", userID),
	)
	return nil
}

// List returns the caller's conversations, most recently updated first.
func (s *ConversationService) List(ctx context.Context, userID string) ([]model.ConversationSummary, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	convs, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return convs, nil
}

// DeriveTitle returns the first user message truncated to TitleLength runes,
// with "..." appended when truncated.
func DeriveTitle(messages []model.Message) string {
	for _, m := range messages {
		if m.Role != model.RoleUser {
			continue
		}
		runes := []rune(strings.TrimSpace(m.Content))
		if len(runes) == 0 {
			continue
		}
		if len(runes) > TitleLength {
			return string(runes[:TitleLength]) + "..."
		}
		return string(runes)
	}
	return DefaultTitle
}

// validateMessages checks roles and content and stamps missing timestamps.
func (s *ConversationService) validateMessages(messages []model.Message, now time.Time) ([]model.Message, error) {
	if len(messages) == 0 {
		verr := newValidationError("messages must be a non-empty array")
		verr.add("messages", "required")
		return nil, verr
	}

	verr := newValidationError("invalid message data")
	out := make([]model.Message, len(messages))
	for i, m := range messages {
		field := fmt.Sprintf("messages[%d]", i)
		if !m.Role.Valid() {
			verr.add(field+".role", "must be one of user, assistant")
		}
		if strings.TrimSpace(m.Content) == "" {
			verr.add(field+".content", "required")
		}
		if m.Timestamp.IsZero() {
			m.Timestamp = now
		}
		out[i] = m
	}
	if err := verr.err(); err != nil {
		return nil, err
	}
	return out, nil
}
