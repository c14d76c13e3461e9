package notifier

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xaenox/focusguard/internal/models"
	"github.com/xaenox/focusguard/internal/storage"
)

type recordingPusher struct {
	mu  sync.Mutex
	got []*models.NotificationEvent
	err error
}

func (p *recordingPusher) Push(_ context.Context, _ string, n *models.NotificationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, n)
	return p.err
}

func (p *recordingPusher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.got)
}

// blockingPusher holds every push until its context ends.
type blockingPusher struct {
	done chan error
}

func (p *blockingPusher) Push(ctx context.Context, _ string, _ *models.NotificationEvent) error {
	<-ctx.Done()
	p.done <- ctx.Err()
	return ctx.Err()
}

func TestMessageTiers(t *testing.T) {
	tests := []struct {
		name     string
		tier     models.AlertTier
		repeated bool
		want     string
	}{
		{"standard", models.TierStandard, false, "⚠️ Distracting activity detected: Netflix"},
		{"repeated", models.TierStandard, true, "⏰ Still distracted: Netflix"},
		{"escalated", models.TierEscalated, false, "🚨 Multiple distractions detected! Stay focused on: Netflix"},
		{"escalated repeat", models.TierEscalated, true, "🚨 Multiple distractions detected! Stay focused on: Netflix"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Message("Netflix", tt.tier, tt.repeated); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestSound(t *testing.T) {
	if s, url := Sound(models.TierStandard, "https://a"); s != models.SoundDefault || url != "" {
		t.Errorf("Expected default sound without url, got %s %q", s, url)
	}
	if s, _ := Sound(models.TierEscalated, ""); s != models.SoundEscalated {
		t.Errorf("Expected escalated sound, got %s", s)
	}
	if s, url := Sound(models.TierEscalated, "https://a"); s != models.SoundCustom || url != "https://a" {
		t.Errorf("Expected custom sound, got %s %q", s, url)
	}
}

func TestEmitStoresCountsAndPushes(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	session := &models.FocusSession{Username: "alice", StartTime: time.Now()}
	if err := store.CreateSession(ctx, session); err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	pusher := &recordingPusher{}
	e := NewEmitter(store, store, zaptest.NewLogger(t), pusher)
	e.Emit(ctx, &models.NotificationEvent{Username: "alice", SessionID: session.ID, Message: "m", CreatedAt: time.Now()})
	e.Wait()

	list, _ := store.ListNotifications(ctx, "alice", 10)
	if len(list) != 1 {
		t.Fatalf("Expected 1 stored notification, got %d", len(list))
	}
	got, _ := store.GetSession(ctx, session.ID)
	if got.DistractionCount != 1 {
		t.Errorf("Expected session distraction count 1, got %d", got.DistractionCount)
	}
	if pusher.count() != 1 {
		t.Errorf("Expected 1 push, got %d", pusher.count())
	}
}

func TestEmitLogsPushFailure(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	failing := &recordingPusher{err: errors.New("boom")}
	healthy := &recordingPusher{}

	e := NewEmitter(storage.NewMemoryStorage(), nil, zap.New(core), failing)
	e.AddPusher(healthy)
	e.Emit(context.Background(), &models.NotificationEvent{Username: "bob"})
	e.Wait()

	if healthy.count() != 1 {
		t.Error("Expected later pushers to run after a failure")
	}
	if logs.FilterMessage("Failed to push notification").Len() != 1 {
		t.Errorf("Expected one push failure log, got %d", logs.Len())
	}
}

func TestEmitDoesNotWaitForSlowPushers(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	slow := &blockingPusher{done: make(chan error, 1)}
	fast := &recordingPusher{}

	e := NewEmitter(storage.NewMemoryStorage(), nil, zap.New(core), slow, fast)
	e.SetPushTimeout(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	start := time.Now()
	e.Emit(ctx, &models.NotificationEvent{Username: "carol"})
	cancel()
	if elapsed := time.Since(start); elapsed > 40*time.Millisecond {
		t.Errorf("Expected Emit to return before delivery, took %s", elapsed)
	}

	select {
	case err := <-slow.done:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Expected the push timeout, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Slow push was never cut off")
	}
	e.Wait()

	if fast.count() != 1 {
		t.Errorf("Expected the fast pusher to deliver, got %d", fast.count())
	}
	if logs.FilterMessage("Failed to push notification").Len() != 1 {
		t.Errorf("Expected one push failure log, got %d", logs.Len())
	}
}

func dialHub(t *testing.T, hub *Hub, username string) (*websocket.Conn, func()) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, username)
	}))
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("Failed to dial: %v", err)
	}
	return conn, func() {
		conn.Close()
		srv.Close()
	}
}

func waitConnected(t *testing.T, hub *Hub, username string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !hub.Connected(username) {
		if time.Now().After(deadline) {
			t.Fatalf("User %s never connected", username)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHubHeartbeat(t *testing.T) {
	hub := NewHub(zaptest.NewLogger(t))
	conn, done := dialHub(t, hub, "alice")
	defer done()

	if err := conn.WriteJSON(Envelope{Type: MessageHeartbeat}); err != nil {
		t.Fatalf("Failed to send heartbeat: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var reply Envelope
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("Failed to read reply: %v", err)
	}
	if reply.Type != MessageHeartbeatResponse || reply.Status != "ok" {
		t.Errorf("Expected heartbeat_response ok, got %+v", reply)
	}
}

func TestHubPush(t *testing.T) {
	hub := NewHub(zaptest.NewLogger(t))
	conn, done := dialHub(t, hub, "alice")
	defer done()
	waitConnected(t, hub, "alice")

	n := &models.NotificationEvent{ID: "n1", Username: "alice", Message: "⚠️ Distracting activity detected: Netflix"}
	if err := hub.Push(context.Background(), "alice", n); err != nil {
		t.Fatalf("Failed to push: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame struct {
		Type string                   `json:"type"`
		Data models.NotificationEvent `json:"data"`
	}
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("Failed to read frame: %v", err)
	}
	if frame.Type != MessageDistraction || frame.Data.ID != "n1" {
		t.Errorf("Unexpected frame %+v", frame)
	}

	reminder := &models.NotificationEvent{ID: "n2", Username: "alice", Message: "⏰ Reminder: stand-up", Category: models.NotificationCategoryReminder}
	if err := hub.Push(context.Background(), "alice", reminder); err != nil {
		t.Fatalf("Failed to push reminder: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("Failed to read frame: %v", err)
	}
	if frame.Type != MessageReminder || frame.Data.ID != "n2" {
		t.Errorf("Expected a reminder frame, got %+v", frame)
	}

	if err := hub.Push(context.Background(), "nobody", n); err != nil {
		t.Errorf("Expected push to offline user to be a no-op, got %v", err)
	}
}

func TestRedisPusherChannel(t *testing.T) {
	p := NewRedisPusher(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), "focusguard:notifications")
	defer p.Close()
	if got := p.Channel("alice"); got != "focusguard:notifications:alice" {
		t.Errorf("Expected channel focusguard:notifications:alice, got %s", got)
	}
}
