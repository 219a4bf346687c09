package service

import (
	"context"
	"time"

	"github.com/sahwira-ai/sahwira/internal/model"
)

// TaskStore persists tasks. Owned operations return model.ErrNotFound when the
// record is missing or belongs to another user.
type TaskStore interface {
	InsertMany(ctx context.Context, tasks []*model.Task) error
	Find(ctx context.Context, filter model.TaskFilter) ([]model.Task, error)
	UpdateOwned(ctx context.Context, id, userID string, patch model.TaskPatch, at time.Time) (*model.Task, error)
	CountCompleted(ctx context.Context, userID string) (int64, error)
	// CompletedCounts maps owner email to completed-task count.
	CompletedCounts(ctx context.Context) (map[string]int64, error)
	Count(ctx context.Context) (int64, error)
	DailyCreated(ctx context.Context, since time.Time) ([]model.DailyCount, error)
}

// ConversationStore persists conversations.
type ConversationStore interface {
	Insert(ctx context.Context, conv *model.Conversation) error
	// ListByUser returns summaries ordered by UpdatedAt, newest first.
	ListByUser(ctx context.Context, userID string) ([]model.ConversationSummary, error)
	ReplaceMessagesOwned(ctx context.Context, id, userID string, messages []model.Message, at time.Time) (*model.Conversation, error)
	RenameOwned(ctx context.Context, id, userID, title string) (*model.Conversation, error)
	DeleteOwned(ctx context.Context, id, userID string) error
	Count(ctx context.Context) (int64, error)
	DailyCreated(ctx context.Context, since time.Time) ([]model.DailyCount, error)
}

// UserStore persists user accounts keyed by email.
type UserStore interface {
	// Upsert inserts user or refreshes name and image of the existing record
	// with the same email. The returned flag is true when a record was created.
	Upsert(ctx context.Context, user *model.User) (*model.User, bool, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Count(ctx context.Context) (int64, error)
}

// EventPublisher emits domain events after successful writes.
type EventPublisher interface {
	Publish(ctx context.Context, evt *model.Event) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(context.Context, *model.Event) error { return nil }
