// Package notifier stores fired distraction notifications and delivers
// them to connected clients.
package notifier

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xaenox/focusguard/internal/models"
	"github.com/xaenox/focusguard/internal/storage"
)

// Pusher delivers a notification to a user over some channel.
type Pusher interface {
	Push(ctx context.Context, username string, n *models.NotificationEvent) error
}

// SessionCounter keeps the persisted per-session distraction count.
type SessionCounter interface {
	IncrementDistractions(ctx context.Context, sessionID string) error
}

// DefaultPushTimeout bounds a single delivery attempt.
const DefaultPushTimeout = 5 * time.Second

type Emitter struct {
	store    storage.NotificationStorage
	sessions SessionCounter
	logger   *zap.Logger

	mu          sync.RWMutex
	pushers     []Pusher
	pushTimeout time.Duration

	inflight sync.WaitGroup
}

func NewEmitter(store storage.NotificationStorage, sessions SessionCounter, logger *zap.Logger, pushers ...Pusher) *Emitter {
	return &Emitter{
		store:       store,
		sessions:    sessions,
		logger:      logger,
		pushers:     pushers,
		pushTimeout: DefaultPushTimeout,
	}
}

// SetPushTimeout changes the per-delivery timeout. Non-positive values
// restore the default.
func (e *Emitter) SetPushTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultPushTimeout
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pushTimeout = d
}

// AddPusher registers another delivery channel.
func (e *Emitter) AddPusher(p Pusher) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pushers = append(e.pushers, p)
}

// Emit stores the notification and hands it to every channel. Deliveries
// run in the background, each bounded by the push timeout, so a slow socket
// or broker never holds up the caller. Failures are logged and never
// retried.
func (e *Emitter) Emit(ctx context.Context, n *models.NotificationEvent) {
	if err := e.store.SaveNotification(ctx, n); err != nil {
		e.logger.Error("Failed to store notification",
			zap.Error(err),
			zap.String("username", n.Username),
			zap.String("window_title", n.WindowTitle))
	}

	if e.sessions != nil && n.SessionID != "" {
		err := e.sessions.IncrementDistractions(ctx, n.SessionID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			e.logger.Debug("Notification for unknown session",
				zap.String("session_id", n.SessionID))
		case err != nil:
			e.logger.Error("Failed to update session distraction count",
				zap.Error(err),
				zap.String("session_id", n.SessionID))
		}
	}

	e.mu.RLock()
	pushers := append([]Pusher(nil), e.pushers...)
	timeout := e.pushTimeout
	e.mu.RUnlock()

	// Deliveries outlive the request that triggered them.
	base := context.WithoutCancel(ctx)
	for _, p := range pushers {
		e.inflight.Add(1)
		go func(p Pusher) {
			defer e.inflight.Done()
			pushCtx, cancel := context.WithTimeout(base, timeout)
			defer cancel()
			if err := p.Push(pushCtx, n.Username, n); err != nil {
				e.logger.Warn("Failed to push notification",
					zap.Error(err),
					zap.String("username", n.Username),
					zap.String("notification_id", n.ID))
			}
		}(p)
	}
}

// Wait blocks until every delivery started by Emit has finished.
func (e *Emitter) Wait() {
	e.inflight.Wait()
}
