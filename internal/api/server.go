// Package api exposes the focus service over HTTP and WebSocket.
package api

import (
	"bufio"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/xaenox/focusguard/internal/focus"
	"github.com/xaenox/focusguard/internal/notifier"
	"github.com/xaenox/focusguard/internal/storage"
)

const maxBodyBytes = 1 << 20

type Server struct {
	svc    *focus.Service
	hub    *notifier.Hub
	logger *zap.Logger
}

func NewServer(svc *focus.Service, hub *notifier.Hub, logger *zap.Logger) *Server {
	return &Server{svc: svc, hub: hub, logger: logger}
}

// Handler returns the routed handler with request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("POST /users", s.handleCreateUser)
	mux.HandleFunc("GET /users/{username}", s.handleGetUser)
	mux.HandleFunc("PUT /users/{username}/alert", s.handleSetAlert)
	mux.HandleFunc("POST /users/{username}/sessions", s.handleStartSession)
	mux.HandleFunc("GET /users/{username}/sessions", s.handleListSessions)
	mux.HandleFunc("GET /users/{username}/active-session", s.handleActiveSession)
	mux.HandleFunc("GET /users/{username}/notifications", s.handleNotifications)
	mux.HandleFunc("GET /users/{username}/distraction-stats", s.handleDistractionStats)
	mux.HandleFunc("GET /users/{username}/time-spent", s.handleTimeSpent)
	mux.HandleFunc("GET /users/{username}/stats/weekly", s.handleWeeklyStats)
	mux.HandleFunc("GET /users/{username}/stats/{date}", s.handleDailyStats)
	mux.HandleFunc("GET /users/{username}/progress", s.handleProgress)

	mux.HandleFunc("GET /users/{username}/plans", s.handleListPlans)
	mux.HandleFunc("POST /users/{username}/plans", s.handleSavePlan)
	mux.HandleFunc("GET /users/{username}/plans/{date}", s.handleGetPlan)
	mux.HandleFunc("POST /users/{username}/plans/enhanced", s.handleSaveEnhancedPlan)
	mux.HandleFunc("GET /users/{username}/plans/enhanced/{date}", s.handleGetPlan)
	mux.HandleFunc("PUT /users/{username}/plans/enhanced/{date}", s.handleUpdateEnhancedPlan)
	mux.HandleFunc("PUT /plans/{id}", s.handleUpdatePlan)

	mux.HandleFunc("PUT /sessions/{id}", s.handleUpdateSession)
	mux.HandleFunc("PUT /sessions/{id}/complete", s.handleCompleteSession)
	mux.HandleFunc("POST /sessions/{id}/activity", s.handleActivity)
	mux.HandleFunc("POST /classify", s.handleClassify)
	mux.HandleFunc("PUT /notifications/{id}/read", s.handleMarkRead)

	if s.hub != nil {
		mux.HandleFunc("GET /ws/{username}", s.handleWebSocket)
	}
	return s.logRequests(mux)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets the WebSocket upgrade reach the underlying connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Failed to write response", zap.Error(err))
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, focus.ErrInvalidInput):
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, storage.ErrNotFound):
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	default:
		s.logger.Error("Request failed", zap.Error(err))
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}
