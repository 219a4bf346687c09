package model

// LeaderboardEntry is one ranked user.
type LeaderboardEntry struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Image          string `json:"image,omitempty"`
	CompletedTasks int64  `json:"completedTasks"`
	Points         int64  `json:"points"`
}

// Level is the gamification level derived from points.
type Level struct {
	Current         int64 `json:"current"`
	NextLevelPoints int64 `json:"nextLevelPoints"`
	Progress        int64 `json:"progress"`
	TotalPoints     int64 `json:"totalPoints"`
}

// Badge is an achievement unlocked at a completed-task threshold.
type Badge struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Requirement int64  `json:"requirement"`
	Icon        string `json:"icon"`
}

// UserStats is the per-user gamification summary.
type UserStats struct {
	CompletedTasks int64   `json:"completedTasks"`
	Points         int64   `json:"points"`
	Level          Level   `json:"level"`
	Badges         []Badge `json:"badges"`
	NextBadge      *Badge  `json:"nextBadge,omitempty"`
}

// Totals holds global record counts.
type Totals struct {
	Users         int64 `json:"users"`
	Tasks         int64 `json:"tasks"`
	Conversations int64 `json:"conversations"`
}

// DailyCount is a per-day creation count; Date is YYYY-MM-DD in UTC.
type DailyCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// DailyStat joins task and conversation creations for one day.
type DailyStat struct {
	Date          string `json:"date"`
	Tasks         int64  `json:"tasks"`
	Conversations int64  `json:"conversations"`
}

// AdminStats is the admin dashboard payload.
type AdminStats struct {
	Stats      Totals      `json:"stats"`
	DailyStats []DailyStat `json:"dailyStats"`
}
