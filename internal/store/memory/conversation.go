package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sahwira-ai/sahwira/internal/model"
)

// ConversationStore keeps conversations in memory.
type ConversationStore struct {
	conversations map[string]*model.Conversation
	mu            sync.RWMutex
}

// NewConversationStore creates an empty conversation store.
func NewConversationStore() *ConversationStore {
	return &ConversationStore{conversations: make(map[string]*model.Conversation)}
}

// Ping always succeeds.
func (s *ConversationStore) Ping(context.Context) error { return nil }

// Insert assigns an id and stores conv.
func (s *ConversationStore) Insert(_ context.Context, conv *model.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv.ID = newID()
	s.conversations[conv.ID] = cloneConversation(conv)
	return nil
}

// ListByUser returns userID's conversations, most recently updated first.
func (s *ConversationStore) ListByUser(_ context.Context, userID string) ([]model.ConversationSummary, error) {
	s.mu.RLock()
	out := make([]model.ConversationSummary, 0)
	for _, c := range s.conversations {
		if c.UserID != userID {
			continue
		}
		out = append(out, model.ConversationSummary{
			ID:        c.ID,
			Title:     c.Title,
			Messages:  append([]model.Message(nil), c.Messages...),
			UpdatedAt: c.UpdatedAt,
		})
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// ReplaceMessagesOwned overwrites the message list of a conversation owned by userID.
func (s *ConversationStore) ReplaceMessagesOwned(_ context.Context, id, userID string, messages []model.Message, at time.Time) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[id]
	if !ok || c.UserID != userID {
		return nil, model.ErrNotFound
	}
	c.Messages = append([]model.Message(nil), messages...)
	c.UpdatedAt = at
	return cloneConversation(c), nil
}

// RenameOwned sets the title of a conversation owned by userID.
func (s *ConversationStore) RenameOwned(_ context.Context, id, userID, title string) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[id]
	if !ok || c.UserID != userID {
		return nil, model.ErrNotFound
	}
	c.Title = title
	return cloneConversation(c), nil
}

// DeleteOwned removes a conversation owned by userID.
func (s *ConversationStore) DeleteOwned(_ context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[id]
	if !ok || c.UserID != userID {
		return model.ErrNotFound
	}
	delete(s.conversations, id)
	return nil
}

// Count returns the number of conversations.
func (s *ConversationStore) Count(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.conversations)), nil
}

// DailyCreated counts conversations created per UTC day since since.
func (s *ConversationStore) DailyCreated(_ context.Context, since time.Time) ([]model.DailyCount, error) {
	s.mu.RLock()
	times := make([]time.Time, 0, len(s.conversations))
	for _, c := range s.conversations {
		times = append(times, c.CreatedAt)
	}
	s.mu.RUnlock()
	return dailyCounts(times, since), nil
}

func cloneConversation(c *model.Conversation) *model.Conversation {
	out := *c
	out.Messages = append([]model.Message(nil), c.Messages...)
	return &out
}
