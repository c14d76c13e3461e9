package models

import "time"

// SessionUpdate changes the given fields of a focus session. Nil fields are
// left as they are.
type SessionUpdate struct {
	Completed         *bool      `json:"completed,omitempty"`
	DistractionCount  *int       `json:"distraction_count,omitempty"`
	ProductivityScore *float64   `json:"productivity_score,omitempty"`
	EndTime           *time.Time `json:"end_time,omitempty"`
}

// DailyStats aggregates the sessions started on one day
type DailyStats struct {
	Date                string  `json:"date"`
	TotalSessions       int     `json:"total_sessions"`
	CompletedSessions   int     `json:"completed_sessions"`
	TotalFocusTime      int     `json:"total_focus_time"`
	AverageProductivity float64 `json:"average_productivity"`
	TotalDistractions   int     `json:"total_distractions"`
}

// ProgressDay is one day of a progress report
type ProgressDay struct {
	Date              string  `json:"date"`
	FocusTimeMinutes  int     `json:"focus_time_minutes"`
	DistractionCount  int     `json:"distraction_count"`
	ProductivityScore float64 `json:"productivity_score"`
	StreakDays        int     `json:"streak_days"`
	IsBreak           bool    `json:"is_break"`
}

// Progress summarizes focus days and streaks over a range of days
type Progress struct {
	Username            string        `json:"username"`
	CurrentStreak       int           `json:"current_streak"`
	LongestStreak       int           `json:"longest_streak"`
	TotalFocusTime      int           `json:"total_focus_time"`
	AverageProductivity float64       `json:"average_productivity"`
	Days                []ProgressDay `json:"progress_data"`
}
