package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/xaenox/focusguard/internal/focus"
	"github.com/xaenox/focusguard/internal/models"
)

type createUserRequest struct {
	Username string `json:"username"`
}

type setAlertRequest struct {
	CustomAlertURL string `json:"custom_alert_url"`
}

type startSessionRequest struct {
	TaskDescription string   `json:"task_description"`
	Keywords        []string `json:"keywords"`
	DurationMinutes int      `json:"duration_minutes"`
}

type windowRequest struct {
	WindowTitle string `json:"window_title"`
}

type activityResponse struct {
	Activity     *models.ActivityLog       `json:"activity"`
	Notification *models.NotificationEvent `json:"notification"`
}

type activeSessionResponse struct {
	ActiveSession *models.FocusSession `json:"active_session"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !s.decode(w, r, &req) {
		return
	}
	user, err := s.svc.EnsureUser(r.Context(), req.Username)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleSetAlert(w http.ResponseWriter, r *http.Request) {
	var req setAlertRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.svc.SetCustomAlert(r.Context(), r.PathValue("username"), req.CustomAlertURL); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if !s.decode(w, r, &req) {
		return
	}
	session, err := s.svc.StartSession(r.Context(), r.PathValue("username"), req.TaskDescription, req.Keywords, req.DurationMinutes)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.svc.Sessions(r.Context(), r.PathValue("username"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if sessions == nil {
		sessions = []*models.FocusSession{}
	}
	s.writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleActiveSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.svc.ActiveSession(r.Context(), r.PathValue("username"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, activeSessionResponse{ActiveSession: session})
}

func (s *Server) handleCompleteSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.svc.CompleteSession(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	var req windowRequest
	if !s.decode(w, r, &req) {
		return
	}
	activity, notification, err := s.svc.LogActivity(r.Context(), r.PathValue("id"), req.WindowTitle)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, activityResponse{Activity: activity, Notification: notification})
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req windowRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.writeJSON(w, http.StatusOK, s.svc.Classify(r.Context(), req.WindowTitle))
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, fmt.Errorf("%w: limit must be a positive integer", focus.ErrInvalidInput))
			return
		}
		limit = n
	}
	list, err := s.svc.Notifications(r.Context(), r.PathValue("username"), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if list == nil {
		list = []*models.NotificationEvent{}
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.MarkNotificationRead(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDistractionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.DistractionStats(r.Context(), r.PathValue("username"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleTimeSpent(w http.ResponseWriter, r *http.Request) {
	start, err := parseTime(r.URL.Query().Get("start"))
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: start: %v", focus.ErrInvalidInput, err))
		return
	}
	end, err := parseTime(r.URL.Query().Get("end"))
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: end: %v", focus.ErrInvalidInput, err))
		return
	}
	spent, err := s.svc.TimeSpent(r.Context(), r.PathValue("username"), start, end)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, spent)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	if strings.TrimSpace(username) == "" {
		s.writeError(w, fmt.Errorf("%w: username is required", focus.ErrInvalidInput))
		return
	}
	s.hub.ServeWS(w, r, username)
}

// parseTime accepts RFC 3339 timestamps or plain dates.
func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errors.New("missing value")
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
