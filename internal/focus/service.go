// Package focus runs the classify, track and notify pipeline and the
// session bookkeeping around it.
package focus

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xaenox/focusguard/internal/classifier"
	"github.com/xaenox/focusguard/internal/models"
	"github.com/xaenox/focusguard/internal/notifier"
	"github.com/xaenox/focusguard/internal/storage"
	"github.com/xaenox/focusguard/internal/tracker"
)

// ErrInvalidInput marks a request the service refuses to process.
var ErrInvalidInput = errors.New("invalid input")

// activeSessionWindow bounds how old an open session may be and still
// count as the user's active one.
const activeSessionWindow = 24 * time.Hour

// Emitter delivers fired notifications.
type Emitter interface {
	Emit(ctx context.Context, n *models.NotificationEvent)
}

type Service struct {
	classifier classifier.Classifier
	tracker    *tracker.Tracker
	store      storage.Storage
	emitter    Emitter
	logger     *zap.Logger
	now        func() time.Time
}

type Option func(*Service)

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.now = clock
		}
	}
}

func NewService(clf classifier.Classifier, tr *tracker.Tracker, store storage.Storage, emitter Emitter, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		classifier: clf,
		tracker:    tr,
		store:      store,
		emitter:    emitter,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Classify labels a title without touching any user state.
func (s *Service) Classify(ctx context.Context, title string) models.ClassificationResult {
	return s.classifier.Classify(ctx, title)
}

// ClassifyAndMaybeNotify classifies the title, records the activity and
// feeds the tracker. The returned event is nil unless a notification fired.
func (s *Service) ClassifyAndMaybeNotify(ctx context.Context, username, sessionID, title string, now time.Time) (models.ClassificationResult, *models.NotificationEvent) {
	result, _, event := s.process(ctx, username, sessionID, title, now)
	return result, event
}

func (s *Service) process(ctx context.Context, username, sessionID, title string, now time.Time) (models.ClassificationResult, *models.ActivityLog, *models.NotificationEvent) {
	result := s.classifier.Classify(ctx, title)
	if username == "" {
		return result, nil, nil
	}

	activity := &models.ActivityLog{
		Username:      username,
		SessionID:     sessionID,
		WindowTitle:   title,
		Category:      result.Category,
		Confidence:    result.Confidence,
		IsDistraction: result.IsDistraction,
		Timestamp:     now,
	}
	if err := s.store.SaveActivity(ctx, activity); err != nil {
		s.logger.Error("Failed to save activity",
			zap.Error(err),
			zap.String("username", username),
			zap.String("session_id", sessionID))
	}

	decision := s.tracker.Observe(tracker.Event{
		Username:      username,
		SessionID:     sessionID,
		WindowTitle:   title,
		IsDistraction: result.IsDistraction,
		At:            now,
	})
	if decision.Reset {
		s.logger.Debug("Distraction tracking reset",
			zap.String("username", username),
			zap.String("session_id", sessionID))
	}
	if !decision.Notify {
		return result, activity, nil
	}

	event := s.buildEvent(ctx, username, sessionID, title, now, decision)
	s.logger.Info("Distraction detected",
		zap.String("username", username),
		zap.String("window_title", title),
		zap.Int("count", decision.Count),
		zap.String("tier", string(decision.Tier)),
		zap.Bool("repeated", decision.Repeated))
	s.emitter.Emit(ctx, event)
	return result, activity, event
}

func (s *Service) buildEvent(ctx context.Context, username, sessionID, title string, now time.Time, d tracker.Decision) *models.NotificationEvent {
	var customURL string
	if d.Tier == models.TierEscalated {
		var err error
		customURL, err = s.store.CustomAlertURL(ctx, username)
		if err != nil {
			s.logger.Warn("Failed to load custom alert",
				zap.Error(err),
				zap.String("username", username))
		}
	}
	sound, audioURL := notifier.Sound(d.Tier, customURL)

	return &models.NotificationEvent{
		ID:               uuid.New().String(),
		Username:         username,
		SessionID:        sessionID,
		Message:          notifier.Message(title, d.Tier, d.Repeated),
		Category:         models.NotificationCategoryDistraction,
		Tier:             d.Tier,
		SoundType:        sound,
		CustomAudioURL:   audioURL,
		CreatedAt:        now,
		WindowTitle:      title,
		DistractionCount: d.Count,
		RepeatedCount:    d.RepeatedCount,
		Repeated:         d.Repeated,
	}
}

// LogActivity runs the pipeline for a title reported against a stored
// session.
func (s *Service) LogActivity(ctx context.Context, sessionID, title string) (*models.ActivityLog, *models.NotificationEvent, error) {
	if strings.TrimSpace(title) == "" {
		return nil, nil, fmt.Errorf("%w: window title is required", ErrInvalidInput)
	}
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get session: %w", err)
	}

	_, activity, event := s.process(ctx, session.Username, session.ID, title, s.now())
	return activity, event, nil
}

func (s *Service) EnsureUser(ctx context.Context, username string) (*models.User, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	user, err := s.store.GetOrCreateUser(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUser returns a known user without creating it.
func (s *Service) GetUser(ctx context.Context, username string) (*models.User, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	user, err := s.store.GetUser(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// SetCustomAlert stores the audio played on escalated notifications. An
// empty URL clears it.
func (s *Service) SetCustomAlert(ctx context.Context, username, alertURL string) error {
	if alertURL != "" {
		u, err := url.Parse(alertURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: alert url must be an absolute http(s) url", ErrInvalidInput)
		}
	}
	if _, err := s.EnsureUser(ctx, username); err != nil {
		return err
	}
	if err := s.store.SetCustomAlert(ctx, username, alertURL); err != nil {
		return fmt.Errorf("failed to set custom alert: %w", err)
	}
	return nil
}

// StartSession opens a focus session and restarts distraction tracking
// for the user.
func (s *Service) StartSession(ctx context.Context, username, task string, keywords []string, durationMinutes int) (*models.FocusSession, error) {
	if durationMinutes < 0 {
		return nil, fmt.Errorf("%w: duration must not be negative", ErrInvalidInput)
	}
	if _, err := s.EnsureUser(ctx, username); err != nil {
		return nil, err
	}

	now := s.now()
	session := &models.FocusSession{
		ID:              uuid.New().String(),
		Username:        username,
		TaskDescription: task,
		Keywords:        keywords,
		DurationMinutes: durationMinutes,
		StartTime:       now,
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	s.tracker.ResetSession(username, session.ID, now)

	s.logger.Info("Focus session started",
		zap.String("username", username),
		zap.String("session_id", session.ID),
		zap.Int("duration_minutes", durationMinutes))
	return session, nil
}

// CompleteSession closes the session, scores it and clears the user's
// distraction counters when it is the tracked session.
func (s *Service) CompleteSession(ctx context.Context, sessionID string) (*models.FocusSession, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	now := s.now()
	score, err := s.productivityScore(ctx, session.Username, session.StartTime, now)
	if err != nil {
		s.logger.Warn("Failed to compute productivity score",
			zap.Error(err),
			zap.String("session_id", sessionID))
	}
	if err := s.store.CompleteSession(ctx, sessionID, now, score); err != nil {
		return nil, fmt.Errorf("failed to complete session: %w", err)
	}

	if st, ok := s.tracker.Snapshot(session.Username); ok && st.SessionID == sessionID {
		s.tracker.Complete(session.Username, now)
	}

	session.Completed = true
	session.EndTime = &now
	session.ProductivityScore = score
	s.logger.Info("Focus session completed",
		zap.String("username", session.Username),
		zap.String("session_id", sessionID),
		zap.Float64("productivity_score", score))
	return session, nil
}

// UpdateSession overwrites the given session fields. Marking a session
// completed without an end time stamps it with the current time.
func (s *Service) UpdateSession(ctx context.Context, sessionID string, update models.SessionUpdate) (*models.FocusSession, error) {
	if update.DistractionCount != nil && *update.DistractionCount < 0 {
		return nil, fmt.Errorf("%w: distraction count must not be negative", ErrInvalidInput)
	}
	if p := update.ProductivityScore; p != nil && (*p < 0 || *p > 100) {
		return nil, fmt.Errorf("%w: productivity score must be within 0 and 100", ErrInvalidInput)
	}
	if update.Completed != nil && *update.Completed && update.EndTime == nil {
		current, err := s.store.GetSession(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to get session: %w", err)
		}
		if current.EndTime == nil {
			now := s.now()
			update.EndTime = &now
		}
	}

	session, err := s.store.UpdateSession(ctx, sessionID, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}
	if session.Completed {
		if st, ok := s.tracker.Snapshot(session.Username); ok && st.SessionID == sessionID {
			s.tracker.Complete(session.Username, s.now())
		}
	}
	return session, nil
}

// productivityScore is the share of safe activity between from and to,
// as a percentage.
func (s *Service) productivityScore(ctx context.Context, username string, from, to time.Time) (float64, error) {
	counts, err := s.store.ActivityCounts(ctx, username, from, to)
	if err != nil {
		return 0, err
	}
	var total, safe int
	for category, n := range counts {
		total += n
		if category.IsSafe() {
			safe += n
		}
	}
	if total == 0 {
		return 0, nil
	}
	return math.Round(float64(safe)/float64(total)*1000) / 10, nil
}

func (s *Service) Sessions(ctx context.Context, username string) ([]*models.FocusSession, error) {
	if _, err := s.EnsureUser(ctx, username); err != nil {
		return nil, err
	}
	sessions, err := s.store.ListSessions(ctx, username, 100)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// ActiveSession returns the user's open session started within the last
// day, or nil.
func (s *Service) ActiveSession(ctx context.Context, username string) (*models.FocusSession, error) {
	sessions, err := s.Sessions(ctx, username)
	if err != nil {
		return nil, err
	}
	cutoff := s.now().Add(-activeSessionWindow)
	for _, session := range sessions {
		if !session.Completed && !session.StartTime.Before(cutoff) {
			return session, nil
		}
	}
	return nil, nil
}

func (s *Service) DistractionStats(ctx context.Context, username string) (models.DistractionStats, error) {
	if _, err := s.EnsureUser(ctx, username); err != nil {
		return models.DistractionStats{}, err
	}

	stats := models.DistractionStats{Username: username, LastReset: s.now()}
	if st, ok := s.tracker.Snapshot(username); ok {
		stats.CurrentCount = st.Count
		stats.CurrentSessionID = st.SessionID
		stats.LastReset = st.LastReset
		stats.LastDistractingWindow = st.LastDistractingWindow
		stats.RepeatedCount = st.RepeatedNotificationCount
	}
	stats.NextTier = s.tracker.NextTier(username)

	var customURL string
	if stats.NextTier == models.TierEscalated {
		customURL, _ = s.store.CustomAlertURL(ctx, username)
	}
	stats.NextSoundType, _ = notifier.Sound(stats.NextTier, customURL)
	return stats, nil
}

func (s *Service) Notifications(ctx context.Context, username string, limit int) ([]*models.NotificationEvent, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	list, err := s.store.ListNotifications(ctx, username, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return list, nil
}

func (s *Service) MarkNotificationRead(ctx context.Context, id string) error {
	if err := s.store.MarkNotificationRead(ctx, id); err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

// TimeSpent counts activity entries per category in [from, to]. The main
// buckets are always present.
func (s *Service) TimeSpent(ctx context.Context, username string, from, to time.Time) (map[models.Category]int, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: end is before start", ErrInvalidInput)
	}
	counts, err := s.store.ActivityCounts(ctx, username, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to count activity: %w", err)
	}

	spent := map[models.Category]int{
		models.CategoryWork:          0,
		models.CategoryEducational:   0,
		models.CategoryEntertainment: 0,
		models.CategoryNeutral:       0,
	}
	for category, n := range counts {
		spent[category.Canonical()] += n
	}
	return spent, nil
}

// RunJanitor sweeps stale tracking records until ctx is done.
func (s *Service) RunJanitor(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.tracker.Sweep(s.now()); removed > 0 {
				s.logger.Debug("Swept stale tracking records",
					zap.Int("removed", removed),
					zap.Int("remaining", s.tracker.Len()))
			}
		}
	}
}

func validateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	return nil
}
