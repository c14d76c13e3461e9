package storage

import (
	"context"
	"errors"
	"time"

	"github.com/xaenox/focusguard/internal/models"
)

var ErrNotFound = errors.New("not found")

type Storage interface {
	UserStorage
	SessionStorage
	ActivityStorage
	NotificationStorage
	PlanStorage
	Close() error
}

type UserStorage interface {
	// GetOrCreateUser returns the user, creating it on first sight, and
	// refreshes its last-active time.
	GetOrCreateUser(ctx context.Context, username string) (*models.User, error)
	GetUser(ctx context.Context, username string) (*models.User, error)
	SetCustomAlert(ctx context.Context, username, url string) error
	// CustomAlertURL returns "" when the user has no custom alert.
	CustomAlertURL(ctx context.Context, username string) (string, error)
}

type SessionStorage interface {
	CreateSession(ctx context.Context, session *models.FocusSession) error
	GetSession(ctx context.Context, id string) (*models.FocusSession, error)
	// ListSessions returns the user's sessions, most recently started first.
	ListSessions(ctx context.Context, username string, limit int) ([]*models.FocusSession, error)
	// SessionsBetween returns the user's sessions started within [from, to),
	// oldest first.
	SessionsBetween(ctx context.Context, username string, from, to time.Time) ([]*models.FocusSession, error)
	// UpdateSession applies the non-nil fields and returns the stored session.
	UpdateSession(ctx context.Context, id string, update models.SessionUpdate) (*models.FocusSession, error)
	CompleteSession(ctx context.Context, id string, endedAt time.Time, productivityScore float64) error
	IncrementDistractions(ctx context.Context, sessionID string) error
}

type ActivityStorage interface {
	SaveActivity(ctx context.Context, activity *models.ActivityLog) error
	// ActivityCounts counts activity entries per category within [from, to].
	ActivityCounts(ctx context.Context, username string, from, to time.Time) (map[models.Category]int, error)
}

type NotificationStorage interface {
	SaveNotification(ctx context.Context, n *models.NotificationEvent) error
	// ListNotifications returns the newest notifications first.
	ListNotifications(ctx context.Context, username string, limit int) ([]*models.NotificationEvent, error)
	MarkNotificationRead(ctx context.Context, id string) error
}

type PlanStorage interface {
	// SavePlan inserts the plan or replaces the user's plan for the same
	// date. ID and CreatedAt of an existing plan are kept and written back.
	SavePlan(ctx context.Context, plan *models.DailyPlan) error
	GetPlan(ctx context.Context, username, date string) (*models.DailyPlan, error)
	GetPlanByID(ctx context.Context, id string) (*models.DailyPlan, error)
	// ListPlans returns the user's plans, latest date first.
	ListPlans(ctx context.Context, username string, limit int) ([]*models.DailyPlan, error)
	// PlansForDate returns every user's plan for the date.
	PlansForDate(ctx context.Context, date string) ([]*models.DailyPlan, error)
}
