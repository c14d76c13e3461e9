package focus

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/xaenox/focusguard/internal/models"
)

const (
	DefaultProgressDays = 30
	maxProgressDays     = 365
	// streakLookbackDays bounds how far back streaks are computed.
	streakLookbackDays = 365
)

// DailyStats aggregates the sessions the user started on date (UTC).
func (s *Service) DailyStats(ctx context.Context, username, date string) (*models.DailyStats, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}
	if _, err := s.EnsureUser(ctx, username); err != nil {
		return nil, err
	}
	day, _ := time.Parse(models.PlanDateLayout, date)
	days, err := s.dailyStats(ctx, username, day, 1)
	if err != nil {
		return nil, err
	}
	return days[0], nil
}

// WeeklyStats returns the daily stats of the last seven days, today
// included, keyed by date.
func (s *Service) WeeklyStats(ctx context.Context, username string) (map[string]*models.DailyStats, error) {
	if _, err := s.EnsureUser(ctx, username); err != nil {
		return nil, err
	}
	today := startOfDay(s.now())
	days, err := s.dailyStats(ctx, username, today.AddDate(0, 0, -6), 7)
	if err != nil {
		return nil, err
	}
	week := make(map[string]*models.DailyStats, len(days))
	for _, d := range days {
		week[d.Date] = d
	}
	return week, nil
}

// Progress reports the last days of focus time together with the current
// and longest streaks of consecutive days with focus time. A day without
// focus time so far does not break the current streak until it is over.
func (s *Service) Progress(ctx context.Context, username string, days int) (*models.Progress, error) {
	if days <= 0 {
		days = DefaultProgressDays
	}
	if days > maxProgressDays {
		return nil, fmt.Errorf("%w: at most %d days", ErrInvalidInput, maxProgressDays)
	}
	if _, err := s.EnsureUser(ctx, username); err != nil {
		return nil, err
	}

	today := startOfDay(s.now())
	lookback := max(days, streakLookbackDays)
	history, err := s.dailyStats(ctx, username, today.AddDate(0, 0, -(lookback-1)), lookback)
	if err != nil {
		return nil, err
	}

	// runs[i] is the streak length ending on history[i].
	runs := make([]int, len(history))
	longest := 0
	for i, d := range history {
		if d.TotalFocusTime > 0 {
			runs[i] = 1
			if i > 0 {
				runs[i] += runs[i-1]
			}
		}
		longest = max(longest, runs[i])
	}
	last := len(history) - 1
	current := runs[last]
	if current == 0 && last > 0 {
		current = runs[last-1]
	}

	progress := &models.Progress{
		Username:      username,
		CurrentStreak: current,
		LongestStreak: longest,
		Days:          make([]models.ProgressDay, 0, days),
	}
	var scoreSum float64
	scored := 0
	for i := len(history) - days; i < len(history); i++ {
		d := history[i]
		progress.Days = append(progress.Days, models.ProgressDay{
			Date:              d.Date,
			FocusTimeMinutes:  d.TotalFocusTime,
			DistractionCount:  d.TotalDistractions,
			ProductivityScore: d.AverageProductivity,
			StreakDays:        runs[i],
			IsBreak:           d.TotalFocusTime == 0,
		})
		progress.TotalFocusTime += d.TotalFocusTime
		if d.AverageProductivity > 0 {
			scoreSum += d.AverageProductivity
			scored++
		}
	}
	if scored > 0 {
		progress.AverageProductivity = roundTenth(scoreSum / float64(scored))
	}
	return progress, nil
}

// dailyStats returns one entry per day for n days starting at from.
func (s *Service) dailyStats(ctx context.Context, username string, from time.Time, n int) ([]*models.DailyStats, error) {
	sessions, err := s.store.SessionsBetween(ctx, username, from, from.AddDate(0, 0, n))
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	days := make([]*models.DailyStats, n)
	index := make(map[string]*models.DailyStats, n)
	for i := range days {
		date := from.AddDate(0, 0, i).Format(models.PlanDateLayout)
		days[i] = &models.DailyStats{Date: date}
		index[date] = days[i]
	}

	scores := make(map[string]float64, n)
	for _, session := range sessions {
		d, ok := index[session.StartTime.UTC().Format(models.PlanDateLayout)]
		if !ok {
			continue
		}
		d.TotalSessions++
		if session.Completed {
			d.CompletedSessions++
		}
		d.TotalFocusTime += focusMinutes(session)
		d.TotalDistractions += session.DistractionCount
		scores[d.Date] += session.ProductivityScore
	}
	for _, d := range days {
		if d.TotalSessions > 0 {
			d.AverageProductivity = roundTenth(scores[d.Date] / float64(d.TotalSessions))
		}
	}
	return days, nil
}

// focusMinutes is the planned duration, or the elapsed time of a finished
// session that had no planned duration.
func focusMinutes(session *models.FocusSession) int {
	if session.DurationMinutes > 0 {
		return session.DurationMinutes
	}
	if session.EndTime != nil {
		return int(session.EndTime.Sub(session.StartTime).Minutes())
	}
	return 0
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
