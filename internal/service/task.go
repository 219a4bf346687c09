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

// MaxTaskLength bounds a task description in runes.
const MaxTaskLength = 1000

// TaskService handles task operations. Tasks are owned by email.
type TaskService struct {
	store  TaskStore
	events EventPublisher
	logger *logger.Logger
	now    func() time.Time
}

// NewTaskService creates a new task service.
func NewTaskService(store TaskStore, events EventPublisher, log *logger.Logger) *TaskService {
	return &TaskService{
		store:  store,
		events: events,
		logger: log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateBatch validates every record and inserts them all, or none.
func (s *TaskService) CreateBatch(ctx context.Context, email string, items []model.NewTask) ([]model.Task, error) {
	if email == "" {
		return nil, ErrUnauthorized
	}
	if len(items) == 0 {
		verr := newValidationError("tasks must be a non-empty array")
		verr.add("tasks", "required")
		return nil, verr
	}

	verr := newValidationError("invalid task data")
	for i, item := range items {
		field := fmt.Sprintf("tasks[%d]", i)
		switch {
		case item.UserID == "":
			verr.add(field+".userId", "required")
		case item.UserID != email:
			verr.add(field+".userId", "must match the authenticated user")
		}
		validateDescription(verr, field+".task", item.Task)
		if !item.Priority.Valid() {
			verr.add(field+".priority", "must be one of High, Medium, Low")
		}
		if !item.Status.Valid() {
			verr.add(field+".status", "must be one of pending, in_progress, completed")
		}
	}
	if err := verr.err(); err != nil {
		return nil, err
	}

	now := s.now()
	records := make([]*model.Task, len(items))
	for i, item := range items {
		records[i] = &model.Task{
			UserID:    item.UserID,
			Task:      strings.TrimSpace(item.Task),
			Priority:  item.Priority,
			Status:    item.Status,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}

	if err := s.store.InsertMany(ctx, records); err != nil {
		return nil, fmt.Errorf("failed to insert tasks: %w", err)
	}

	created := make([]model.Task, len(records))
	for i, t := range records {
		created[i] = *t
		publish(ctx, s.events, s.logger, &model.Event{
			Type:      model.EventTaskCreated,
			UserID:    email,
			SubjectID: t.ID,
			Data:      map[string]any{"priority": string(t.Priority), "status": string(t.Status)},
		})
	}
	metrics.TasksCreatedTotal.Add(float64(len(created)))

	s.logger.Info("tasks created",
		zap.String("user_id", email),
		zap.Int("count", len(created)),
	)

	return created, nil
}

// List returns the caller's tasks. Filter values outside the enums are ignored.
func (s *TaskService) List(ctx context.Context, email string, filter model.TaskFilter) ([]model.Task, error) {
	if email == "" {
		return nil, ErrUnauthorized
	}
	filter.UserID = email
	if !filter.Status.Valid() {
		filter.Status = ""
	}
	if !filter.Priority.Valid() {
		filter.Priority = ""
	}
	if filter.Sort.Field == "" {
		filter.Sort = model.DefaultTaskSort
	}

	tasks, err := s.store.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// Update applies patch to a task owned by email.
func (s *TaskService) Update(ctx context.Context, email, id string, patch model.TaskPatch) (*model.Task, error) {
	if email == "" {
		return nil, ErrUnauthorized
	}
	if patch.Empty() {
		verr := newValidationError("no updatable fields supplied")
		verr.add("task", "one of task, priority, status is required")
		return nil, verr
	}

	verr := newValidationError("invalid task data")
	if patch.Task != nil {
		validateDescription(verr, "task", *patch.Task)
		trimmed := strings.TrimSpace(*patch.Task)
		patch.Task = &trimmed
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		verr.add("priority", "must be one of High, Medium, Low")
	}
	if patch.Status != nil && !patch.Status.Valid() {
		verr.add("status", "must be one of pending, in_progress, completed")
	}
	if err := verr.err(); err != nil {
		return nil, err
	}

	task, err := s.store.UpdateOwned(ctx, id, email, patch, s.now())
	if err != nil {
		return nil, err
	}

	publish(ctx, s.events, s.logger, &model.Event{
		Type:      model.EventTaskUpdated,
		UserID:    email,
		SubjectID: task.ID,
		Data:      map[string]any{"priority": string(task.Priority), "status": string(task.Status)},
	})
	if patch.Status != nil && *patch.Status == model.TaskStatusCompleted {
		publish(ctx, s.events, s.logger, &model.Event{
			Type:      model.EventTaskCompleted,
			UserID:    email,
			SubjectID: task.ID,
		})
	}

	return task, nil
}

// ParseTaskSort parses "field" or "-field" into a sort order. Empty selects the default.
func ParseTaskSort(raw string) (model.TaskSort, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return model.DefaultTaskSort, nil
	}

	sort := model.TaskSort{}
	if strings.HasPrefix(raw, "-") {
		sort.Descending = true
		raw = raw[1:]
	}

	switch field := model.TaskSortField(raw); field {
	case model.TaskSortCreatedAt, model.TaskSortUpdatedAt, model.TaskSortPriority, model.TaskSortStatus, model.TaskSortTask:
		sort.Field = field
		return sort, nil
	}

	verr := newValidationError("invalid sort key")
	verr.add("sort", "must be one of createdAt, updatedAt, priority, status, task, optionally prefixed with -")
	return model.TaskSort{}, verr
}

func validateDescription(verr *ValidationError, field, desc string) {
	trimmed := strings.TrimSpace(desc)
	switch {
	case trimmed == "":
		verr.add(field, "required")
	case len([]rune(trimmed)) > MaxTaskLength:
		verr.add(field, fmt.Sprintf("must be at most %d characters", MaxTaskLength))
	}
}
