package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahwira-ai/sahwira/internal/model"
	"github.com/sahwira-ai/sahwira/internal/store/memory"
	"github.com/sahwira-ai/sahwira/pkg/logger"
)

func newTaskService() (*TaskService, *recordingPublisher) {
	pub := &recordingPublisher{}
	return NewTaskService(memory.NewTaskStore(), pub, logger.NewNop()), pub
}

func TestCreateBatchValidatesEveryRecord(t *testing.T) {
	svc, pub := newTaskService()

	_, err := svc.CreateBatch(context.Background(), "ann@x.io", []model.NewTask{
		{UserID: "ann@x.io", Task: "ok", Priority: model.PriorityHigh, Status: model.TaskStatusPending},
		{UserID: "bob@x.io", Task: "", Priority: "Urgent", Status: "done"},
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, map[string]string{
		"tasks[1].userId":   "must match the authenticated user",
		"tasks[1].task":     "required",
		"tasks[1].priority": "must be one of High, Medium, Low",
		"tasks[1].status":   "must be one of pending, in_progress, completed",
	}, verr.Fields)

	list, err := svc.List(context.Background(), "ann@x.io", model.TaskFilter{})
	require.NoError(t, err)
	assert.Empty(t, list, "nothing is inserted when any record is invalid")
	assert.Empty(t, pub.types())
}

func TestCreateBatchRejectsEmpty(t *testing.T) {
	svc, _ := newTaskService()
	_, err := svc.CreateBatch(context.Background(), "ann@x.io", nil)
	assert.True(t, IsValidation(err))

	_, err = svc.CreateBatch(context.Background(), "", []model.NewTask{{}})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestCreateBatchPublishesEvents(t *testing.T) {
	svc, pub := newTaskService()

	created, err := svc.CreateBatch(context.Background(), "ann@x.io", []model.NewTask{
		{UserID: "ann@x.io", Task: "  one ", Priority: model.PriorityLow, Status: model.TaskStatusPending},
		{UserID: "ann@x.io", Task: "two", Priority: model.PriorityMedium, Status: model.TaskStatusInProgress},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, "one", created[0].Task)
	assert.False(t, created[0].CreatedAt.IsZero())
	assert.Equal(t, []model.EventType{model.EventTaskCreated, model.EventTaskCreated}, pub.types())
}

func TestCreateBatchSurvivesPublisherFailure(t *testing.T) {
	pub := &recordingPublisher{fail: true}
	svc := NewTaskService(memory.NewTaskStore(), pub, logger.NewNop())

	created, err := svc.CreateBatch(context.Background(), "ann@x.io", []model.NewTask{
		{UserID: "ann@x.io", Task: "one", Priority: model.PriorityLow, Status: model.TaskStatusPending},
	})
	require.NoError(t, err)
	assert.Len(t, created, 1)
}

// stalledPublisher never acks; it returns once its context gives up.
type stalledPublisher struct {
	calls int
}

func (p *stalledPublisher) Publish(ctx context.Context, _ *model.Event) error {
	p.calls++
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("publish without deadline")
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestCreateBatchBoundsEachPublish(t *testing.T) {
	orig := eventPublishTimeout
	eventPublishTimeout = 20 * time.Millisecond
	t.Cleanup(func() { eventPublishTimeout = orig })

	pub := &stalledPublisher{}
	svc := NewTaskService(memory.NewTaskStore(), pub, logger.NewNop())

	// A cancelled request still gets its events attempted with their own deadline.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	created, err := svc.CreateBatch(ctx, "ann@x.io", []model.NewTask{
		{UserID: "ann@x.io", Task: "one", Priority: model.PriorityLow, Status: model.TaskStatusPending},
		{UserID: "ann@x.io", Task: "two", Priority: model.PriorityLow, Status: model.TaskStatusPending},
		{UserID: "ann@x.io", Task: "three", Priority: model.PriorityLow, Status: model.TaskStatusPending},
	})
	require.NoError(t, err)
	assert.Len(t, created, 3)
	assert.Equal(t, 3, pub.calls)
	assert.GreaterOrEqual(t, time.Since(start), 3*eventPublishTimeout)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestUpdateOwnership(t *testing.T) {
	svc, pub := newTaskService()
	ctx := context.Background()
	created, err := svc.CreateBatch(ctx, "ann@x.io", []model.NewTask{
		{UserID: "ann@x.io", Task: "one", Priority: model.PriorityLow, Status: model.TaskStatusPending},
	})
	require.NoError(t, err)
	id := created[0].ID

	done := model.TaskStatusCompleted
	_, err = svc.Update(ctx, "bob@x.io", id, model.TaskPatch{Status: &done})
	assert.ErrorIs(t, err, model.ErrNotFound)

	updated, err := svc.Update(ctx, "ann@x.io", id, model.TaskPatch{Status: &done})
	require.NoError(t, err)
	assert.Equal(t, done, updated.Status)
	assert.Contains(t, pub.types(), model.EventTaskCompleted)
}

func TestUpdateValidation(t *testing.T) {
	svc, _ := newTaskService()
	ctx := context.Background()

	_, err := svc.Update(ctx, "ann@x.io", "65f1a2b3c4d5e6f708192a3b", model.TaskPatch{})
	assert.True(t, IsValidation(err))

	bad := model.Priority("Urgent")
	_, err = svc.Update(ctx, "ann@x.io", "65f1a2b3c4d5e6f708192a3b", model.TaskPatch{Priority: &bad})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "priority")
}

func TestListIgnoresUnknownFilters(t *testing.T) {
	svc, _ := newTaskService()
	ctx := context.Background()
	_, err := svc.CreateBatch(ctx, "ann@x.io", []model.NewTask{
		{UserID: "ann@x.io", Task: "one", Priority: model.PriorityLow, Status: model.TaskStatusPending},
		{UserID: "ann@x.io", Task: "two", Priority: model.PriorityHigh, Status: model.TaskStatusCompleted},
	})
	require.NoError(t, err)

	all, err := svc.List(ctx, "ann@x.io", model.TaskFilter{Status: "bogus", Priority: "bogus"})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	done, err := svc.List(ctx, "ann@x.io", model.TaskFilter{Status: model.TaskStatusCompleted})
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, "two", done[0].Task)
}

func TestParseTaskSort(t *testing.T) {
	tests := []struct {
		raw     string
		want    model.TaskSort
		wantErr bool
	}{
		{raw: "", want: model.DefaultTaskSort},
		{raw: "priority", want: model.TaskSort{Field: model.TaskSortPriority}},
		{raw: "-updatedAt", want: model.TaskSort{Field: model.TaskSortUpdatedAt, Descending: true}},
		{raw: "userId", wantErr: true},
		{raw: "-", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseTaskSort(tt.raw)
		if tt.wantErr {
			assert.True(t, IsValidation(err), "raw=%q", tt.raw)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
