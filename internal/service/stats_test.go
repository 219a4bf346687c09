package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahwira-ai/sahwira/internal/model"
	"github.com/sahwira-ai/sahwira/internal/store/memory"
	"github.com/sahwira-ai/sahwira/pkg/logger"
)

type statsFixture struct {
	users *memory.UserStore
	tasks *memory.TaskStore
	convs *memory.ConversationStore
	svc   *StatsService
}

func newStatsFixture() *statsFixture {
	f := &statsFixture{
		users: memory.NewUserStore(),
		tasks: memory.NewTaskStore(),
		convs: memory.NewConversationStore(),
	}
	f.svc = NewStatsService(f.users, f.tasks, f.convs, "admin@x.io", logger.NewNop())
	return f
}

func (f *statsFixture) addUser(t *testing.T, email string) {
	t.Helper()
	_, _, err := f.users.Upsert(context.Background(), &model.User{Name: email, Email: email})
	require.NoError(t, err)
}

func (f *statsFixture) addTasks(t *testing.T, email string, status model.TaskStatus, n int, at time.Time) {
	t.Helper()
	batch := make([]*model.Task, n)
	for i := range batch {
		batch[i] = &model.Task{UserID: email, Task: "t", Priority: model.PriorityMedium, Status: status, CreatedAt: at, UpdatedAt: at}
	}
	require.NoError(t, f.tasks.InsertMany(context.Background(), batch))
}

func TestLeaderboardOrdering(t *testing.T) {
	f := newStatsFixture()
	now := time.Now().UTC()
	f.addUser(t, "a@x.io")
	f.addUser(t, "b@x.io")
	f.addUser(t, "c@x.io")
	f.addTasks(t, "b@x.io", model.TaskStatusCompleted, 3, now)
	f.addTasks(t, "c@x.io", model.TaskStatusCompleted, 1, now)
	f.addTasks(t, "a@x.io", model.TaskStatusCompleted, 1, now)
	f.addTasks(t, "a@x.io", model.TaskStatusPending, 5, now)

	board, err := f.svc.Leaderboard(context.Background())
	require.NoError(t, err)
	require.Len(t, board, 3)
	assert.Equal(t, "b@x.io", board[0].Email)
	assert.Equal(t, int64(30), board[0].Points)
	// a and c tie; creation order is kept.
	assert.Equal(t, "a@x.io", board[1].Email)
	assert.Equal(t, "c@x.io", board[2].Email)
}

func TestUserStats(t *testing.T) {
	f := newStatsFixture()
	f.addTasks(t, "a@x.io", model.TaskStatusCompleted, 10, time.Now())

	stats, err := f.svc.UserStats(context.Background(), "a@x.io")
	require.NoError(t, err)
	assert.Equal(t, int64(10), stats.CompletedTasks)
	assert.Equal(t, int64(100), stats.Points)
	assert.Equal(t, int64(1), stats.Level.Current)
	require.Len(t, stats.Badges, 1)
	assert.Equal(t, "quickStarter", stats.Badges[0].ID)
}

func TestAdminStatsRequiresAdmin(t *testing.T) {
	f := newStatsFixture()
	_, err := f.svc.AdminStats(context.Background(), "a@x.io")
	assert.ErrorIs(t, err, ErrUnauthorized)

	noAdmin := NewStatsService(f.users, f.tasks, f.convs, "", logger.NewNop())
	_, err = noAdmin.AdminStats(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAdminStatsSeries(t *testing.T) {
	f := newStatsFixture()
	now := time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return now }

	f.addUser(t, "a@x.io")
	f.addTasks(t, "a@x.io", model.TaskStatusPending, 2, now.AddDate(0, 0, -1))
	f.addTasks(t, "a@x.io", model.TaskStatusPending, 1, now.AddDate(0, 0, -40))
	require.NoError(t, f.convs.Insert(context.Background(), &model.Conversation{UserID: "u", CreatedAt: now, UpdatedAt: now}))

	stats, err := f.svc.AdminStats(context.Background(), "Admin@x.io")
	require.NoError(t, err)
	assert.Equal(t, model.Totals{Users: 1, Tasks: 3, Conversations: 1}, stats.Stats)
	assert.Equal(t, []model.DailyStat{
		{Date: "2025-03-30", Tasks: 2, Conversations: 0},
		{Date: "2025-03-31", Tasks: 0, Conversations: 1},
	}, stats.DailyStats)
}

func TestJoinDaily(t *testing.T) {
	got := JoinDaily(
		[]model.DailyCount{{Date: "2025-01-02", Count: 4}, {Date: "2025-01-01", Count: 1}},
		[]model.DailyCount{{Date: "2025-01-02", Count: 2}, {Date: "2025-01-03", Count: 7}},
	)
	assert.Equal(t, []model.DailyStat{
		{Date: "2025-01-01", Tasks: 1},
		{Date: "2025-01-02", Tasks: 4, Conversations: 2},
		{Date: "2025-01-03", Conversations: 7},
	}, got)
	assert.Empty(t, JoinDaily(nil, nil))
}
