package model

import (
	"time"
)

// EventType names a domain event.
type EventType string

const (
	EventTaskCreated         EventType = "task.created"
	EventTaskUpdated         EventType = "task.updated"
	EventTaskCompleted       EventType = "task.completed"
	EventConversationCreated EventType = "conversation.created"
	EventConversationUpdated EventType = "conversation.updated"
	EventConversationRenamed EventType = "conversation.renamed"
	EventConversationDeleted EventType = "conversation.deleted"
	EventUserSynced          EventType = "user.synced"
)

// Event is a domain event published after a successful write.
type Event struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	UserID     string         `json:"userId"`
	SubjectID  string         `json:"subjectId,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
}
