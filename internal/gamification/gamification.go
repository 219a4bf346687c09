// Package gamification derives points, levels and badges from completed-task counts.
package gamification

import (
	"github.com/sahwira-ai/sahwira/internal/model"
)

const (
	// PointsPerTask is awarded for every completed task.
	PointsPerTask = 10
	// PointsPerLevel is the width of one level.
	PointsPerLevel = 100
)

// Badges is the catalogue ordered by requirement.
var Badges = []model.Badge{
	{ID: "quickStarter", Name: "Quick Starter", Description: "Complete 10 tasks", Requirement: 10, Icon: "🌟"},
	{ID: "productivityNinja", Name: "Productivity Ninja", Description: "Complete 25 tasks", Requirement: 25, Icon: "⚡"},
	{ID: "taskMaster", Name: "Task Master", Description: "Complete 50 tasks", Requirement: 50, Icon: "🏆"},
	{ID: "consistentAchiever", Name: "Consistent Achiever", Description: "Complete 100 tasks", Requirement: 100, Icon: "🎯"},
	{ID: "grandMaster", Name: "Grand Master", Description: "Complete 200 tasks", Requirement: 200, Icon: "👑"},
}

// Points returns the score for a completed-task count.
func Points(completed int64) int64 {
	return completed * PointsPerTask
}

// CalculateLevel returns the level reached with points.
func CalculateLevel(points int64) model.Level {
	if points < 0 {
		points = 0
	}
	current := points / PointsPerLevel
	return model.Level{
		Current:         current,
		NextLevelPoints: (current + 1) * PointsPerLevel,
		Progress:        points % PointsPerLevel,
		TotalPoints:     points,
	}
}

// EarnedBadges returns every badge whose requirement completed meets.
func EarnedBadges(completed int64) []model.Badge {
	earned := make([]model.Badge, 0, len(Badges))
	for _, b := range Badges {
		if completed >= b.Requirement {
			earned = append(earned, b)
		}
	}
	return earned
}

// NextBadge returns the cheapest badge not yet earned, or nil when all are earned.
func NextBadge(completed int64) *model.Badge {
	for _, b := range Badges {
		if completed < b.Requirement {
			next := b
			return &next
		}
	}
	return nil
}

// Stats assembles the full gamification summary for a completed-task count.
func Stats(completed int64) model.UserStats {
	points := Points(completed)
	return model.UserStats{
		CompletedTasks: completed,
		Points:         points,
		Level:          CalculateLevel(points),
		Badges:         EarnedBadges(completed),
		NextBadge:      NextBadge(completed),
	}
}
