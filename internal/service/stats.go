package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sahwira-ai/sahwira/internal/gamification"
	"github.com/sahwira-ai/sahwira/internal/model"
	"github.com/sahwira-ai/sahwira/pkg/logger"
)

// StatsWindowDays is the length of the admin daily series.
const StatsWindowDays = 30

// DateLayout formats the days of the admin daily series.
const DateLayout = "2006-01-02"

// StatsService runs the leaderboard and reporting queries.
type StatsService struct {
	users         UserStore
	tasks         TaskStore
	conversations ConversationStore
	adminEmail    string
	logger        *logger.Logger
	now           func() time.Time
}

// NewStatsService creates a new stats service. An empty adminEmail disables admin stats.
func NewStatsService(users UserStore, tasks TaskStore, conversations ConversationStore, adminEmail string, log *logger.Logger) *StatsService {
	return &StatsService{
		users:         users,
		tasks:         tasks,
		conversations: conversations,
		adminEmail:    adminEmail,
		logger:        log,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Leaderboard ranks every user by completed tasks, descending. Ties keep store order.
func (s *StatsService) Leaderboard(ctx context.Context) ([]model.LeaderboardEntry, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	counts, err := s.tasks.CompletedCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count completed tasks: %w", err)
	}

	entries := make([]model.LeaderboardEntry, len(users))
	for i, u := range users {
		completed := counts[u.Email]
		entries[i] = model.LeaderboardEntry{
			ID:             u.ID,
			Name:           u.Name,
			Email:          u.Email,
			Image:          u.Image,
			CompletedTasks: completed,
			Points:         gamification.Points(completed),
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CompletedTasks > entries[j].CompletedTasks
	})

	return entries, nil
}

// UserStats returns the gamification summary of email.
func (s *StatsService) UserStats(ctx context.Context, email string) (*model.UserStats, error) {
	if email == "" {
		return nil, ErrUnauthorized
	}
	completed, err := s.tasks.CountCompleted(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to count completed tasks: %w", err)
	}
	stats := gamification.Stats(completed)
	return &stats, nil
}

// IsAdmin reports whether email is the configured admin.
func (s *StatsService) IsAdmin(email string) bool {
	return s.adminEmail != "" && strings.EqualFold(strings.TrimSpace(email), s.adminEmail)
}

// AdminStats returns global totals and the daily creation series of the last
// StatsWindowDays days. Only the admin may call it.
func (s *StatsService) AdminStats(ctx context.Context, email string) (*model.AdminStats, error) {
	if !s.IsAdmin(email) {
		return nil, ErrUnauthorized
	}

	var totals model.Totals
	var err error
	if totals.Users, err = s.users.Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	if totals.Tasks, err = s.tasks.Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}
	if totals.Conversations, err = s.conversations.Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count conversations: %w", err)
	}

	since := s.now().AddDate(0, 0, -StatsWindowDays)
	taskDays, err := s.tasks.DailyCreated(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate tasks: %w", err)
	}
	convDays, err := s.conversations.DailyCreated(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate conversations: %w", err)
	}

	return &model.AdminStats{
		Stats:      totals,
		DailyStats: JoinDaily(taskDays, convDays),
	}, nil
}

// JoinDaily merges the two series by date, ascending. A date missing from one side counts 0.
func JoinDaily(tasks, conversations []model.DailyCount) []model.DailyStat {
	byDate := make(map[string]*model.DailyStat)
	entry := func(date string) *model.DailyStat {
		d, ok := byDate[date]
		if !ok {
			d = &model.DailyStat{Date: date}
			byDate[date] = d
		}
		return d
	}
	for _, c := range tasks {
		entry(c.Date).Tasks += c.Count
	}
	for _, c := range conversations {
		entry(c.Date).Conversations += c.Count
	}

	days := make([]model.DailyStat, 0, len(byDate))
	for _, d := range byDate {
		days = append(days, *d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days
}
