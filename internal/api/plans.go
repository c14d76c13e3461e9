package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/xaenox/focusguard/internal/focus"
	"github.com/xaenox/focusguard/internal/models"
)

type planRequest struct {
	Date      string  `json:"date"`
	PlanText  *string `json:"plan_text"`
	Completed *bool   `json:"completed"`
}

type enhancedPlanRequest struct {
	Date      string                `json:"date"`
	Tasks     []models.TaskItem     `json:"tasks"`
	Reminders []models.ReminderItem `json:"reminders"`
	Completed *bool                 `json:"completed"`
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.svc.GetUser(r.Context(), r.PathValue("username"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	var req models.SessionUpdate
	if !s.decode(w, r, &req) {
		return
	}
	session, err := s.svc.UpdateSession(r.Context(), r.PathValue("id"), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.svc.Plans(r.Context(), r.PathValue("username"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if plans == nil {
		plans = []*models.DailyPlan{}
	}
	s.writeJSON(w, http.StatusOK, plans)
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.svc.Plan(r.Context(), r.PathValue("username"), r.PathValue("date"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleSavePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.PlanText == nil {
		s.writeError(w, fmt.Errorf("%w: plan_text is required", focus.ErrInvalidInput))
		return
	}
	plan, err := s.svc.SavePlan(r.Context(), r.PathValue("username"), req.Date, focus.PlanUpdate{PlanText: req.PlanText})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleUpdatePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if !s.decode(w, r, &req) {
		return
	}
	plan, err := s.svc.UpdatePlan(r.Context(), r.PathValue("id"), focus.PlanUpdate{PlanText: req.PlanText, Completed: req.Completed})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, plan)
}

// handleSaveEnhancedPlan replaces the task and reminder lists of the plan.
func (s *Server) handleSaveEnhancedPlan(w http.ResponseWriter, r *http.Request) {
	var req enhancedPlanRequest
	if !s.decode(w, r, &req) {
		return
	}
	update := focus.PlanUpdate{Tasks: req.Tasks, Reminders: req.Reminders, Completed: req.Completed}
	if update.Tasks == nil {
		update.Tasks = []models.TaskItem{}
	}
	if update.Reminders == nil {
		update.Reminders = []models.ReminderItem{}
	}
	plan, err := s.svc.SavePlan(r.Context(), r.PathValue("username"), req.Date, update)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, plan)
}

func (s *Server) handleUpdateEnhancedPlan(w http.ResponseWriter, r *http.Request) {
	var req enhancedPlanRequest
	if !s.decode(w, r, &req) {
		return
	}
	update := focus.PlanUpdate{Tasks: req.Tasks, Reminders: req.Reminders, Completed: req.Completed}
	plan, err := s.svc.SavePlan(r.Context(), r.PathValue("username"), r.PathValue("date"), update)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleDailyStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.DailyStats(r.Context(), r.PathValue("username"), r.PathValue("date"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleWeeklyStats(w http.ResponseWriter, r *http.Request) {
	week, err := s.svc.WeeklyStats(r.Context(), r.PathValue("username"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, week)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	days := focus.DefaultProgressDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, fmt.Errorf("%w: days must be a positive integer", focus.ErrInvalidInput))
			return
		}
		days = n
	}
	progress, err := s.svc.Progress(r.Context(), r.PathValue("username"), days)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, progress)
}
