// Package memory provides in-process stores backed by maps. Data is lost on restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sahwira-ai/sahwira/internal/model"
)

const dateLayout = "2006-01-02"

func newID() string {
	return primitive.NewObjectID().Hex()
}

func dailyCounts(times []time.Time, since time.Time) []model.DailyCount {
	byDate := make(map[string]int64)
	for _, t := range times {
		if t.Before(since) {
			continue
		}
		byDate[t.UTC().Format(dateLayout)]++
	}
	out := make([]model.DailyCount, 0, len(byDate))
	for date, n := range byDate {
		out = append(out, model.DailyCount{Date: date, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// TaskStore keeps tasks in memory.
type TaskStore struct {
	tasks map[string]*model.Task
	mu    sync.RWMutex
}

// NewTaskStore creates an empty task store.
func NewTaskStore() *TaskStore {
	return &TaskStore{tasks: make(map[string]*model.Task)}
}

// Ping always succeeds.
func (s *TaskStore) Ping(context.Context) error { return nil }

// InsertMany assigns ids and stores every task.
func (s *TaskStore) InsertMany(_ context.Context, tasks []*model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range tasks {
		t.ID = newID()
		stored := *t
		s.tasks[t.ID] = &stored
	}
	return nil
}

// Find returns the tasks matching filter in the requested order.
func (s *TaskStore) Find(_ context.Context, filter model.TaskFilter) ([]model.Task, error) {
	s.mu.RLock()
	out := make([]model.Task, 0)
	for _, t := range s.tasks {
		if t.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.Priority != "" && t.Priority != filter.Priority {
			continue
		}
		out = append(out, *t)
	}
	s.mu.RUnlock()

	order := filter.Sort
	if order.Field == "" {
		order = model.DefaultTaskSort
	}
	sort.Slice(out, func(i, j int) bool {
		c := compareTasks(out[i], out[j], order.Field)
		if c == 0 {
			c = compareStrings(out[i].ID, out[j].ID)
		}
		if order.Descending {
			return c > 0
		}
		return c < 0
	})
	return out, nil
}

func compareTasks(a, b model.Task, field model.TaskSortField) int {
	switch field {
	case model.TaskSortUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case model.TaskSortPriority:
		return compareStrings(string(a.Priority), string(b.Priority))
	case model.TaskSortStatus:
		return compareStrings(string(a.Status), string(b.Status))
	case model.TaskSortTask:
		return compareStrings(a.Task, b.Task)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// UpdateOwned patches the task with id when it belongs to userID.
func (s *TaskStore) UpdateOwned(_ context.Context, id, userID string, patch model.TaskPatch, at time.Time) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok || t.UserID != userID {
		return nil, model.ErrNotFound
	}
	if patch.Task != nil {
		t.Task = *patch.Task
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	t.UpdatedAt = at

	out := *t
	return &out, nil
}

// CountCompleted counts completed tasks owned by userID.
func (s *TaskStore) CountCompleted(_ context.Context, userID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, t := range s.tasks {
		if t.UserID == userID && t.Status == model.TaskStatusCompleted {
			n++
		}
	}
	return n, nil
}

// CompletedCounts maps each owner to their completed-task count.
func (s *TaskStore) CompletedCounts(context.Context) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int64)
	for _, t := range s.tasks {
		if t.Status == model.TaskStatusCompleted {
			counts[t.UserID]++
		}
	}
	return counts, nil
}

// Count returns the number of tasks.
func (s *TaskStore) Count(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.tasks)), nil
}

// DailyCreated counts tasks created per UTC day since since.
func (s *TaskStore) DailyCreated(_ context.Context, since time.Time) ([]model.DailyCount, error) {
	s.mu.RLock()
	times := make([]time.Time, 0, len(s.tasks))
	for _, t := range s.tasks {
		times = append(times, t.CreatedAt)
	}
	s.mu.RUnlock()
	return dailyCounts(times, since), nil
}
