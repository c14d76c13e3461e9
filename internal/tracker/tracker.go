// Package tracker keeps per-user distraction state and decides when a
// distracting activity should produce a notification.
package tracker

import (
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/xaenox/focusguard/internal/models"
)

const (
	DefaultThrottleInterval = 2 * time.Second
	DefaultRepeatInterval   = 2 * time.Second
	DefaultResetWindow      = time.Hour
	DefaultMaxUsers         = 10000

	// escalationThreshold is the last notification count on the standard tier.
	escalationThreshold = 2
)

type State string

const (
	StateIdle       State = "idle"
	StateDistracted State = "distracted"
)

// Event is one classified activity for a user.
type Event struct {
	Username      string
	SessionID     string
	WindowTitle   string
	IsDistraction bool
	At            time.Time
}

// Decision is the tracker's verdict for an Event.
type Decision struct {
	Notify        bool
	Repeated      bool
	Tier          models.AlertTier
	Count         int
	RepeatedCount int
	State         State
	// Reset is set when the event forced a session or timeout reset.
	Reset bool
}

type Config struct {
	ThrottleInterval time.Duration
	RepeatInterval   time.Duration
	ResetWindow      time.Duration
	MaxUsers         int
}

func (c Config) withDefaults() Config {
	if c.ThrottleInterval <= 0 {
		c.ThrottleInterval = DefaultThrottleInterval
	}
	if c.RepeatInterval <= 0 {
		c.RepeatInterval = DefaultRepeatInterval
	}
	if c.ResetWindow <= 0 {
		c.ResetWindow = DefaultResetWindow
	}
	if c.MaxUsers <= 0 {
		c.MaxUsers = DefaultMaxUsers
	}
	return c
}

type entry struct {
	mu    sync.Mutex
	state models.TrackingState
	// removed is set once the record leaves the cache.
	removed atomic.Bool
}

// Tracker owns the tracking records. Records are kept in a bounded LRU so
// that long-running processes do not grow without limit; each record has
// its own lock so that concurrent events for one user are serialized.
type Tracker struct {
	cfg Config

	mu      sync.Mutex
	entries *lru.Cache[string, *entry]
}

func New(cfg Config) (*Tracker, error) {
	cfg = cfg.withDefaults()
	cache, err := lru.NewWithEvict[string, *entry](cfg.MaxUsers, func(_ string, e *entry) {
		e.removed.Store(true)
	})
	if err != nil {
		return nil, err
	}
	return &Tracker{cfg: cfg, entries: cache}, nil
}

func (t *Tracker) entryFor(username string, sessionID string, at time.Time) *entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.entries.Get(username); ok {
		return e
	}
	e := &entry{state: models.TrackingState{SessionID: sessionID, LastReset: at}}
	t.entries.Add(username, e)
	return e
}

// lockEntry returns the user's record locked. A record that was swept or
// evicted between the lookup and the lock is dropped and looked up again.
func (t *Tracker) lockEntry(username string, sessionID string, at time.Time) *entry {
	for {
		e := t.entryFor(username, sessionID, at)
		e.mu.Lock()
		if !e.removed.Load() {
			return e
		}
		e.mu.Unlock()
	}
}

func (t *Tracker) lookup(username string) (*entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.entries.Get(username)
}

// Observe applies one event to the user's record and returns whether a
// notification should fire.
func (t *Tracker) Observe(ev Event) Decision {
	e := t.lockEntry(ev.Username, ev.SessionID, ev.At)
	defer e.mu.Unlock()

	st := &e.state
	reset := false
	if st.SessionID != ev.SessionID || ev.At.Sub(st.LastReset) > t.cfg.ResetWindow {
		resetState(st, ev.SessionID, ev.At)
		reset = true
	}

	if !ev.IsDistraction {
		st.LastDistractingWindow = ""
		st.RepeatedNotificationCount = 0
		st.LastDistractionActive = false
		return Decision{
			Tier:  tierFor(st.Count + 1),
			Count: st.Count,
			State: StateIdle,
			Reset: reset,
		}
	}

	st.LastDistractionActive = true
	d := Decision{State: StateDistracted, Reset: reset}

	windowChanged := st.LastDistractingWindow != ev.WindowTitle
	neverNotified := st.LastNotificationTime.IsZero()
	elapsed := ev.At.Sub(st.LastNotificationTime)

	switch {
	case !neverNotified && elapsed <= t.cfg.ThrottleInterval:
		// Suppressed. A new window still restarts the repeat streak; the
		// window itself is recorded once it notifies.
		if windowChanged {
			st.RepeatedNotificationCount = 0
		}
	case windowChanged:
		st.RepeatedNotificationCount = 0
		st.LastDistractingWindow = ev.WindowTitle
		d.Notify = true
	case !neverNotified && elapsed <= t.cfg.RepeatInterval:
		// same window, repeat interval not reached
	default:
		st.RepeatedNotificationCount++
		d.Notify = true
		d.Repeated = true
	}

	if d.Notify {
		st.Count++
		st.LastNotificationTime = ev.At
	}
	d.Count = st.Count
	d.RepeatedCount = st.RepeatedNotificationCount
	d.Tier = tierFor(st.Count)
	if !d.Notify {
		d.Tier = tierFor(st.Count + 1)
	}
	return d
}

// ResetSession starts a new session for the user, clearing the counters.
func (t *Tracker) ResetSession(username, sessionID string, at time.Time) {
	e := t.lockEntry(username, sessionID, at)
	defer e.mu.Unlock()
	resetState(&e.state, sessionID, at)
}

// Complete clears the counters after an explicit session completion.
// The session id is kept so the next event of that session does not
// count as a session change.
func (t *Tracker) Complete(username string, at time.Time) {
	e, ok := t.lookup(username)
	if !ok {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	resetState(&e.state, e.state.SessionID, at)
}

// Snapshot returns a copy of the user's record.
func (t *Tracker) Snapshot(username string) (models.TrackingState, bool) {
	e, ok := t.lookup(username)
	if !ok {
		return models.TrackingState{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state, true
}

// NextTier is the tier the user's next notification would use.
func (t *Tracker) NextTier(username string) models.AlertTier {
	st, _ := t.Snapshot(username)
	return tierFor(st.Count + 1)
}

// Sweep drops records that have seen neither a reset nor a notification
// within the reset window. Records locked by an in-flight event are in use
// and skipped. It returns the number of records removed.
func (t *Tracker) Sweep(at time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for _, username := range t.entries.Keys() {
		e, ok := t.entries.Peek(username)
		if !ok {
			continue
		}
		if !e.mu.TryLock() {
			continue
		}
		last := e.state.LastReset
		if e.state.LastNotificationTime.After(last) {
			last = e.state.LastNotificationTime
		}
		if at.Sub(last) > t.cfg.ResetWindow {
			t.entries.Remove(username)
			removed++
		}
		e.mu.Unlock()
	}
	return removed
}

// Len is the number of tracked users.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.entries.Len()
}

func resetState(st *models.TrackingState, sessionID string, at time.Time) {
	st.Count = 0
	st.RepeatedNotificationCount = 0
	st.SessionID = sessionID
	st.LastReset = at
	st.LastDistractionActive = false
	st.LastDistractingWindow = ""
}

func tierFor(count int) models.AlertTier {
	if count > escalationThreshold {
		return models.TierEscalated
	}
	return models.TierStandard
}
