package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xaenox/focusguard/internal/models"
)

// exerciseStorage runs the behavior every Storage implementation shares.
// user must not exist yet.
func exerciseStorage(t *testing.T, s Storage, user string) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.GetUser(ctx, user); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown user, got %v", err)
	}
	created, err := s.GetOrCreateUser(ctx, user)
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	got, err := s.GetUser(ctx, user)
	if err != nil {
		t.Fatalf("Failed to get user: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("Expected user id %s, got %s", created.ID, got.ID)
	}

	var ids []string
	for i := 0; i < 3; i++ {
		session := &models.FocusSession{
			Username:        user,
			TaskDescription: "write report",
			Keywords:        []string{"report"},
			DurationMinutes: 25,
			StartTime:       t0.Add(time.Duration(i) * 24 * time.Hour),
		}
		if err := s.CreateSession(ctx, session); err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		ids = append(ids, session.ID)
	}

	between, err := s.SessionsBetween(ctx, user, t0, t0.Add(48*time.Hour))
	if err != nil {
		t.Fatalf("Failed to list sessions between: %v", err)
	}
	if len(between) != 2 {
		t.Fatalf("Expected 2 sessions in range, got %d", len(between))
	}
	if between[0].ID != ids[0] || between[1].ID != ids[1] {
		t.Errorf("Expected oldest session first, got %s then %s", between[0].ID, between[1].ID)
	}

	done := true
	count := 4
	end := t0.Add(20 * time.Minute)
	updated, err := s.UpdateSession(ctx, ids[0], models.SessionUpdate{Completed: &done, DistractionCount: &count, EndTime: &end})
	if err != nil {
		t.Fatalf("Failed to update session: %v", err)
	}
	if !updated.Completed || updated.DistractionCount != 4 || updated.EndTime == nil || !updated.EndTime.Equal(end) {
		t.Errorf("Unexpected updated session %+v", updated)
	}
	if updated.TaskDescription != "write report" || updated.DurationMinutes != 25 {
		t.Errorf("Update must keep untouched fields, got %+v", updated)
	}
	if _, err := s.UpdateSession(ctx, "00000000-0000-0000-0000-000000000000", models.SessionUpdate{Completed: &done}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound updating unknown session, got %v", err)
	}

	plan := &models.DailyPlan{
		Username:  user,
		Date:      "2026-10-15",
		PlanText:  "ship it",
		Tasks:     []models.TaskItem{{ID: "t1", Text: "review"}},
		Reminders: []models.ReminderItem{{ID: "r1", Text: "stand-up", Time: "09:30"}},
		CreatedAt: t0,
		UpdatedAt: t0,
	}
	if err := s.SavePlan(ctx, plan); err != nil {
		t.Fatalf("Failed to save plan: %v", err)
	}
	firstID := plan.ID

	replacement := &models.DailyPlan{Username: user, Date: "2026-10-15", PlanText: "ship it today", CreatedAt: t0.Add(time.Hour), UpdatedAt: t0.Add(time.Hour)}
	if err := s.SavePlan(ctx, replacement); err != nil {
		t.Fatalf("Failed to replace plan: %v", err)
	}
	if replacement.ID != firstID {
		t.Errorf("Expected the plan id %s to be kept, got %s", firstID, replacement.ID)
	}
	if !replacement.CreatedAt.Equal(t0) {
		t.Errorf("Expected the creation time to be kept, got %s", replacement.CreatedAt)
	}

	stored, err := s.GetPlan(ctx, user, "2026-10-15")
	if err != nil {
		t.Fatalf("Failed to get plan: %v", err)
	}
	if stored.PlanText != "ship it today" || len(stored.Tasks) != 0 || len(stored.Reminders) != 0 {
		t.Errorf("Unexpected stored plan %+v", stored)
	}
	byID, err := s.GetPlanByID(ctx, firstID)
	if err != nil || byID.Date != "2026-10-15" {
		t.Errorf("Expected plan by id, got %+v (%v)", byID, err)
	}
	if _, err := s.GetPlan(ctx, user, "2026-10-16"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for a date without plan, got %v", err)
	}

	next := &models.DailyPlan{
		Username:  user,
		Date:      "2026-10-16",
		Reminders: []models.ReminderItem{{ID: "r2", Text: "call", Time: "14:00", Sent: true}},
	}
	if err := s.SavePlan(ctx, next); err != nil {
		t.Fatalf("Failed to save plan: %v", err)
	}
	plans, err := s.ListPlans(ctx, user, 0)
	if err != nil {
		t.Fatalf("Failed to list plans: %v", err)
	}
	if len(plans) != 2 || plans[0].Date != "2026-10-16" {
		t.Errorf("Expected latest plan first, got %d plans", len(plans))
	}
	forDate, err := s.PlansForDate(ctx, "2026-10-16")
	if err != nil {
		t.Fatalf("Failed to list plans for date: %v", err)
	}
	var found bool
	for _, p := range forDate {
		if p.Username == user {
			found = true
			if len(p.Reminders) != 1 || !p.Reminders[0].Sent {
				t.Errorf("Expected the sent reminder back, got %+v", p.Reminders)
			}
		}
	}
	if !found {
		t.Error("Expected the user's plan among the plans for the date")
	}
}

func TestMemoryStorageBehavior(t *testing.T) {
	exerciseStorage(t, NewMemoryStorage(), "alice")
}
