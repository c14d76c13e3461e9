package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xaenox/focusguard/internal/models"
)

type MemoryStorage struct {
	mu            sync.RWMutex
	users         map[string]*models.User
	sessions      map[string]*models.FocusSession
	activities    []*models.ActivityLog
	notifications map[string]*models.NotificationEvent
	plans         map[string]*models.DailyPlan
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users:         make(map[string]*models.User),
		sessions:      make(map[string]*models.FocusSession),
		notifications: make(map[string]*models.NotificationEvent),
		plans:         make(map[string]*models.DailyPlan),
	}
}

// User methods
func (s *MemoryStorage) GetOrCreateUser(ctx context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	user, exists := s.users[username]
	if !exists {
		user = &models.User{
			ID:        uuid.New().String(),
			Username:  username,
			CreatedAt: now,
		}
		s.users[username] = user
	}
	user.LastActive = now

	copied := *user
	return &copied, nil
}

func (s *MemoryStorage) GetUser(ctx context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[username]
	if !exists {
		return nil, ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *MemoryStorage) SetCustomAlert(ctx context.Context, username, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[username]
	if !exists {
		return ErrNotFound
	}
	user.CustomAlertURL = url
	return nil
}

func (s *MemoryStorage) CustomAlertURL(ctx context.Context, username string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if user, exists := s.users[username]; exists {
		return user.CustomAlertURL, nil
	}
	return "", nil
}

// Session methods
func (s *MemoryStorage) CreateSession(ctx context.Context, session *models.FocusSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	copied := *session
	copied.Keywords = append([]string(nil), session.Keywords...)
	s.sessions[session.ID] = &copied
	return nil
}

func (s *MemoryStorage) GetSession(ctx context.Context, id string) (*models.FocusSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.sessions[id]
	if !exists {
		return nil, ErrNotFound
	}
	copied := *session
	copied.Keywords = append([]string(nil), session.Keywords...)
	return &copied, nil
}

func (s *MemoryStorage) ListSessions(ctx context.Context, username string, limit int) ([]*models.FocusSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.FocusSession
	for _, session := range s.sessions {
		if session.Username == username {
			copied := *session
			copied.Keywords = append([]string(nil), session.Keywords...)
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartTime.After(result[j].StartTime)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *MemoryStorage) SessionsBetween(ctx context.Context, username string, from, to time.Time) ([]*models.FocusSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.FocusSession
	for _, session := range s.sessions {
		if session.Username != username || session.StartTime.Before(from) || !session.StartTime.Before(to) {
			continue
		}
		copied := *session
		copied.Keywords = append([]string(nil), session.Keywords...)
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartTime.Before(result[j].StartTime)
	})
	return result, nil
}

func (s *MemoryStorage) UpdateSession(ctx context.Context, id string, update models.SessionUpdate) (*models.FocusSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[id]
	if !exists {
		return nil, ErrNotFound
	}
	if update.Completed != nil {
		session.Completed = *update.Completed
	}
	if update.DistractionCount != nil {
		session.DistractionCount = *update.DistractionCount
	}
	if update.ProductivityScore != nil {
		session.ProductivityScore = *update.ProductivityScore
	}
	if update.EndTime != nil {
		end := *update.EndTime
		session.EndTime = &end
	}
	copied := *session
	copied.Keywords = append([]string(nil), session.Keywords...)
	return &copied, nil
}

func (s *MemoryStorage) CompleteSession(ctx context.Context, id string, endedAt time.Time, productivityScore float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[id]
	if !exists {
		return ErrNotFound
	}
	session.Completed = true
	session.EndTime = &endedAt
	session.ProductivityScore = productivityScore
	return nil
}

func (s *MemoryStorage) IncrementDistractions(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[sessionID]
	if !exists {
		return ErrNotFound
	}
	session.DistractionCount++
	return nil
}

// Activity methods
func (s *MemoryStorage) SaveActivity(ctx context.Context, activity *models.ActivityLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if activity.ID == "" {
		activity.ID = uuid.New().String()
	}
	copied := *activity
	s.activities = append(s.activities, &copied)
	return nil
}

func (s *MemoryStorage) ActivityCounts(ctx context.Context, username string, from, to time.Time) (map[models.Category]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[models.Category]int)
	for _, a := range s.activities {
		if a.Username != username || a.Timestamp.Before(from) || a.Timestamp.After(to) {
			continue
		}
		counts[a.Category]++
	}
	return counts, nil
}

// Notification methods
func (s *MemoryStorage) SaveNotification(ctx context.Context, n *models.NotificationEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	copied := *n
	s.notifications[n.ID] = &copied
	return nil
}

func (s *MemoryStorage) ListNotifications(ctx context.Context, username string, limit int) ([]*models.NotificationEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.NotificationEvent
	for _, n := range s.notifications {
		if n.Username == username {
			copied := *n
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *MemoryStorage) MarkNotificationRead(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, exists := s.notifications[id]
	if !exists {
		return ErrNotFound
	}
	n.Read = true
	return nil
}

// Plan methods
func (s *MemoryStorage) SavePlan(ctx context.Context, plan *models.DailyPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.plans {
		if existing.Username == plan.Username && existing.Date == plan.Date {
			plan.ID = existing.ID
			plan.CreatedAt = existing.CreatedAt
			break
		}
	}
	if plan.ID == "" {
		plan.ID = uuid.New().String()
	}
	s.plans[plan.ID] = copyPlan(plan)
	return nil
}

func (s *MemoryStorage) GetPlan(ctx context.Context, username, date string) (*models.DailyPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, plan := range s.plans {
		if plan.Username == username && plan.Date == date {
			return copyPlan(plan), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStorage) GetPlanByID(ctx context.Context, id string) (*models.DailyPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	plan, exists := s.plans[id]
	if !exists {
		return nil, ErrNotFound
	}
	return copyPlan(plan), nil
}

func (s *MemoryStorage) ListPlans(ctx context.Context, username string, limit int) ([]*models.DailyPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.DailyPlan
	for _, plan := range s.plans {
		if plan.Username == username {
			result = append(result, copyPlan(plan))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Date > result[j].Date
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *MemoryStorage) PlansForDate(ctx context.Context, date string) ([]*models.DailyPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.DailyPlan
	for _, plan := range s.plans {
		if plan.Date == date {
			result = append(result, copyPlan(plan))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Username < result[j].Username
	})
	return result, nil
}

func copyPlan(plan *models.DailyPlan) *models.DailyPlan {
	copied := *plan
	copied.Tasks = append([]models.TaskItem{}, plan.Tasks...)
	copied.Reminders = append([]models.ReminderItem{}, plan.Reminders...)
	return &copied
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
