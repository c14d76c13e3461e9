package focus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xaenox/focusguard/internal/models"
	"github.com/xaenox/focusguard/internal/storage"
)

// PlanUpdate changes a daily plan. Nil fields keep their stored value; an
// empty, non-nil list clears it.
type PlanUpdate struct {
	PlanText  *string
	Tasks     []models.TaskItem
	Reminders []models.ReminderItem
	Completed *bool
}

// Plans lists the user's plans, latest date first.
func (s *Service) Plans(ctx context.Context, username string) ([]*models.DailyPlan, error) {
	if _, err := s.EnsureUser(ctx, username); err != nil {
		return nil, err
	}
	plans, err := s.store.ListPlans(ctx, username, 100)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return plans, nil
}

// Plan returns the user's plan for date. A date without a plan yields an
// empty plan with no id.
func (s *Service) Plan(ctx context.Context, username, date string) (*models.DailyPlan, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}
	if _, err := s.EnsureUser(ctx, username); err != nil {
		return nil, err
	}
	plan, err := s.store.GetPlan(ctx, username, date)
	if errors.Is(err, storage.ErrNotFound) {
		now := s.now()
		return &models.DailyPlan{
			Username:  username,
			Date:      date,
			Tasks:     []models.TaskItem{},
			Reminders: []models.ReminderItem{},
			CreatedAt: now,
			UpdatedAt: now,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return plan, nil
}

// SavePlan creates or updates the user's plan for date. An empty date
// means today.
func (s *Service) SavePlan(ctx context.Context, username, date string, update PlanUpdate) (*models.DailyPlan, error) {
	if date == "" {
		date = s.now().Format(models.PlanDateLayout)
	}
	if err := validateDate(date); err != nil {
		return nil, err
	}
	if err := validatePlanUpdate(update); err != nil {
		return nil, err
	}
	if _, err := s.EnsureUser(ctx, username); err != nil {
		return nil, err
	}

	plan, err := s.store.GetPlan(ctx, username, date)
	if errors.Is(err, storage.ErrNotFound) {
		plan = &models.DailyPlan{Username: username, Date: date, CreatedAt: s.now()}
	} else if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return s.applyPlanUpdate(ctx, plan, update)
}

// UpdatePlan changes an existing plan by id.
func (s *Service) UpdatePlan(ctx context.Context, planID string, update PlanUpdate) (*models.DailyPlan, error) {
	if err := validatePlanUpdate(update); err != nil {
		return nil, err
	}
	plan, err := s.store.GetPlanByID(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return s.applyPlanUpdate(ctx, plan, update)
}

func (s *Service) applyPlanUpdate(ctx context.Context, plan *models.DailyPlan, update PlanUpdate) (*models.DailyPlan, error) {
	if update.PlanText != nil {
		plan.PlanText = *update.PlanText
	}
	if update.Tasks != nil {
		plan.Tasks = withTaskIDs(update.Tasks)
	}
	if update.Reminders != nil {
		plan.Reminders = mergeReminders(plan.Reminders, update.Reminders)
	}
	if update.Completed != nil {
		plan.Completed = *update.Completed
	}
	if plan.Tasks == nil {
		plan.Tasks = []models.TaskItem{}
	}
	if plan.Reminders == nil {
		plan.Reminders = []models.ReminderItem{}
	}
	plan.UpdatedAt = s.now()

	if err := s.store.SavePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("failed to save plan: %w", err)
	}
	s.logger.Info("Daily plan saved",
		zap.String("username", plan.Username),
		zap.String("date", plan.Date),
		zap.Int("tasks", len(plan.Tasks)),
		zap.Int("reminders", len(plan.Reminders)))
	return plan, nil
}

func withTaskIDs(tasks []models.TaskItem) []models.TaskItem {
	out := make([]models.TaskItem, len(tasks))
	for i, task := range tasks {
		if task.ID == "" {
			task.ID = uuid.New().String()
		}
		out[i] = task
	}
	return out
}

// mergeReminders assigns missing ids and keeps the sent flag of reminders
// whose id and time did not change, so a saved plan does not fire twice.
func mergeReminders(previous, next []models.ReminderItem) []models.ReminderItem {
	sent := make(map[string]string, len(previous))
	for _, r := range previous {
		if r.Sent {
			sent[r.ID] = r.Time
		}
	}

	out := make([]models.ReminderItem, len(next))
	for i, r := range next {
		if r.ID == "" {
			r.ID = uuid.New().String()
		}
		at, ok := sent[r.ID]
		r.Sent = ok && at == r.Time
		out[i] = r
	}
	return out
}

// DispatchReminders fires every due, unsent reminder of today's plans and
// returns how many were sent.
func (s *Service) DispatchReminders(ctx context.Context) (int, error) {
	now := s.now()
	today := now.Format(models.PlanDateLayout)
	plans, err := s.store.PlansForDate(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("failed to list plans: %w", err)
	}

	sent := 0
	for _, plan := range plans {
		changed := false
		for i := range plan.Reminders {
			r := &plan.Reminders[i]
			if r.Sent || r.Completed || !reminderDue(r.Time, today, now) {
				continue
			}
			s.emitter.Emit(ctx, &models.NotificationEvent{
				ID:        uuid.New().String(),
				Username:  plan.Username,
				Message:   "⏰ Reminder: " + r.Text,
				Category:  models.NotificationCategoryReminder,
				Tier:      models.TierStandard,
				SoundType: models.SoundDefault,
				CreatedAt: now,
			})
			r.Sent = true
			changed = true
			sent++
		}
		if !changed {
			continue
		}
		plan.UpdatedAt = now
		if err := s.store.SavePlan(ctx, plan); err != nil {
			s.logger.Error("Failed to mark reminders sent",
				zap.Error(err),
				zap.String("username", plan.Username),
				zap.String("date", plan.Date))
		}
	}
	return sent, nil
}

func reminderDue(hhmm, date string, now time.Time) bool {
	at, err := time.ParseInLocation(models.PlanDateLayout+" "+models.ReminderTimeLayout, date+" "+hhmm, time.UTC)
	if err != nil {
		return false
	}
	return !now.Before(at)
}

// RunReminders dispatches due reminders until ctx is done.
func (s *Service) RunReminders(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sent, err := s.DispatchReminders(ctx)
			if err != nil {
				s.logger.Error("Failed to dispatch reminders", zap.Error(err))
				continue
			}
			if sent > 0 {
				s.logger.Debug("Reminders sent", zap.Int("count", sent))
			}
		}
	}
}

func validateDate(date string) error {
	if _, err := time.Parse(models.PlanDateLayout, date); err != nil {
		return fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidInput)
	}
	return nil
}

func validatePlanUpdate(update PlanUpdate) error {
	for _, task := range update.Tasks {
		if strings.TrimSpace(task.Text) == "" {
			return fmt.Errorf("%w: task text is required", ErrInvalidInput)
		}
		if task.ReminderTime != "" {
			if _, err := time.Parse(models.ReminderTimeLayout, task.ReminderTime); err != nil {
				return fmt.Errorf("%w: reminder time must be HH:MM", ErrInvalidInput)
			}
		}
	}
	for _, r := range update.Reminders {
		if strings.TrimSpace(r.Text) == "" {
			return fmt.Errorf("%w: reminder text is required", ErrInvalidInput)
		}
		if _, err := time.Parse(models.ReminderTimeLayout, r.Time); err != nil {
			return fmt.Errorf("%w: reminder time must be HH:MM", ErrInvalidInput)
		}
	}
	return nil
}
