package model

import (
	"time"
)

// Priority is the urgency of a task.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

// Task is a user-owned to-do item. UserID holds the owner's email.
type Task struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Task      string     `json:"task"`
	Priority  Priority   `json:"priority"`
	Status    TaskStatus `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// NewTask is a task record submitted for creation.
type NewTask struct {
	UserID   string     `json:"userId"`
	Task     string     `json:"task"`
	Priority Priority   `json:"priority"`
	Status   TaskStatus `json:"status"`
}

// ExtractedTask is a task proposed by the extraction pipeline, not yet persisted.
type ExtractedTask struct {
	Task     string   `json:"task"`
	Priority Priority `json:"priority"`
}

// TaskPatch holds the mutable task fields. Nil fields are left untouched.
type TaskPatch struct {
	Task     *string     `json:"task,omitempty"`
	Priority *Priority   `json:"priority,omitempty"`
	Status   *TaskStatus `json:"status,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Task == nil && p.Priority == nil && p.Status == nil
}

// TaskSortField is a sortable task attribute.
type TaskSortField string

const (
	TaskSortCreatedAt TaskSortField = "createdAt"
	TaskSortUpdatedAt TaskSortField = "updatedAt"
	TaskSortPriority  TaskSortField = "priority"
	TaskSortStatus    TaskSortField = "status"
	TaskSortTask      TaskSortField = "task"
)

// TaskSort orders a task listing.
type TaskSort struct {
	Field      TaskSortField
	Descending bool
}

// DefaultTaskSort lists newest tasks first.
var DefaultTaskSort = TaskSort{Field: TaskSortCreatedAt, Descending: true}

// TaskFilter selects tasks for listing. Empty Status/Priority match everything.
type TaskFilter struct {
	UserID   string
	Status   TaskStatus
	Priority Priority
	Sort     TaskSort
}

// CreateTasksRequest is the batch task creation body.
type CreateTasksRequest struct {
	Tasks []NewTask `json:"tasks"`
}

// CreateTasksResponse is returned after a batch create.
type CreateTasksResponse struct {
	Tasks []Task `json:"tasks"`
}

// ListTasksResponse is returned by the task listing.
type ListTasksResponse struct {
	Tasks []Task `json:"tasks"`
}

// ExtractTasksRequest asks the pipeline to extract tasks from a transcript.
type ExtractTasksRequest struct {
	Transcript string `json:"transcript"`
	Save       bool   `json:"save"`
}

// ExtractTasksResponse carries extracted and, when saved, persisted tasks.
type ExtractTasksResponse struct {
	Transcript string          `json:"transcript,omitempty"`
	Tasks      []ExtractedTask `json:"tasks"`
	Fallback   bool            `json:"fallback"`
	Saved      []Task          `json:"saved,omitempty"`
}
