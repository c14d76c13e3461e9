package tracker

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/xaenox/focusguard/internal/models"
)

var t0 = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	tr, err := New(Config{})
	if err != nil {
		t.Fatalf("Failed to create tracker: %v", err)
	}
	return tr
}

func distraction(user, session, window string, at time.Time) Event {
	return Event{Username: user, SessionID: session, WindowTitle: window, IsDistraction: true, At: at}
}

func TestRepeatedDistractionOnSameWindow(t *testing.T) {
	tr := newTestTracker(t)

	var notified []Decision
	for i := 0; i < 3; i++ {
		d := tr.Observe(distraction("alice", "s1", "Netflix - Show", t0.Add(time.Duration(i*3)*time.Second)))
		if d.Notify {
			notified = append(notified, d)
		}
	}

	if len(notified) != 3 {
		t.Fatalf("Expected 3 notifications, got %d", len(notified))
	}
	for i, d := range notified {
		if d.RepeatedCount != i {
			t.Errorf("Notification %d: expected repeated count %d, got %d", i, i, d.RepeatedCount)
		}
		if d.Repeated != (i > 0) {
			t.Errorf("Notification %d: expected repeated=%v", i, i > 0)
		}
	}
}

func TestThrottleSuppresses(t *testing.T) {
	tr := newTestTracker(t)

	first := tr.Observe(distraction("bob", "s1", "Netflix - Show", t0))
	second := tr.Observe(distraction("bob", "s1", "Netflix - Show", t0.Add(1500*time.Millisecond)))
	third := tr.Observe(distraction("bob", "s1", "Reddit - Front page", t0.Add(2*time.Second)))

	if !first.Notify {
		t.Fatal("First distraction must notify")
	}
	if second.Notify || third.Notify {
		t.Error("Events within the throttle interval must be suppressed")
	}

	st, _ := tr.Snapshot("bob")
	if !st.LastNotificationTime.Equal(t0) {
		t.Errorf("Suppressed events must not move the notification time, got %s", st.LastNotificationTime)
	}
	if st.Count != 1 {
		t.Errorf("Expected count 1, got %d", st.Count)
	}
}

func TestWindowChangeResetsRepeatedCount(t *testing.T) {
	tr := newTestTracker(t)

	tr.Observe(distraction("carol", "s1", "Netflix - Show", t0))
	d := tr.Observe(distraction("carol", "s1", "Netflix - Show", t0.Add(3*time.Second)))
	if d.RepeatedCount != 1 {
		t.Fatalf("Expected repeated count 1, got %d", d.RepeatedCount)
	}

	d = tr.Observe(distraction("carol", "s1", "Twitch - Stream", t0.Add(6*time.Second)))
	if !d.Notify || d.Repeated || d.RepeatedCount != 0 {
		t.Errorf("Expected a fresh notification for a new window, got %+v", d)
	}
	if d.State != StateDistracted {
		t.Errorf("Expected distracted state, got %s", d.State)
	}
}

func TestThrottledWindowChangeResetsRepeatedCount(t *testing.T) {
	tr := newTestTracker(t)

	tr.Observe(distraction("carol", "s1", "Netflix - Show", t0))
	d := tr.Observe(distraction("carol", "s1", "Netflix - Show", t0.Add(3*time.Second)))
	if d.RepeatedCount != 1 {
		t.Fatalf("Expected repeated count 1, got %d", d.RepeatedCount)
	}

	d = tr.Observe(distraction("carol", "s1", "Twitch - Stream", t0.Add(4*time.Second)))
	if d.Notify {
		t.Fatalf("Expected the window change to be throttled, got %+v", d)
	}
	if d.RepeatedCount != 0 {
		t.Errorf("Expected repeated count reset on window change, got %d", d.RepeatedCount)
	}
	st, _ := tr.Snapshot("carol")
	if st.RepeatedNotificationCount != 0 {
		t.Errorf("Expected stored repeated count 0, got %d", st.RepeatedNotificationCount)
	}

	d = tr.Observe(distraction("carol", "s1", "Twitch - Stream", t0.Add(7*time.Second)))
	if !d.Notify || d.Repeated || d.RepeatedCount != 0 {
		t.Errorf("Expected a fresh notification for the new window, got %+v", d)
	}
}

func TestEscalationOnThirdNotification(t *testing.T) {
	tr := newTestTracker(t)

	windows := []string{"Netflix - A", "Netflix - B", "Netflix - C", "Netflix - D"}
	want := []models.AlertTier{models.TierStandard, models.TierStandard, models.TierEscalated, models.TierEscalated}
	for i, w := range windows {
		d := tr.Observe(distraction("dave", "s1", w, t0.Add(time.Duration(i*5)*time.Second)))
		if !d.Notify {
			t.Fatalf("Event %d should notify", i)
		}
		if d.Count != i+1 {
			t.Errorf("Event %d: expected count %d, got %d", i, i+1, d.Count)
		}
		if d.Tier != want[i] {
			t.Errorf("Event %d: expected tier %s, got %s", i, want[i], d.Tier)
		}
	}
}

func TestNonDistractionBreaksStreak(t *testing.T) {
	tr := newTestTracker(t)

	tr.Observe(distraction("erin", "s1", "Netflix - Show", t0))
	tr.Observe(distraction("erin", "s1", "Netflix - Show", t0.Add(3*time.Second)))
	d := tr.Observe(Event{Username: "erin", SessionID: "s1", WindowTitle: "Visual Studio Code", At: t0.Add(4 * time.Second)})
	if d.Notify || d.State != StateIdle {
		t.Errorf("Expected idle without notification, got %+v", d)
	}

	st, _ := tr.Snapshot("erin")
	if st.LastDistractingWindow != "" || st.RepeatedNotificationCount != 0 || st.LastDistractionActive {
		t.Errorf("Streak not cleared: %+v", st)
	}
	if st.Count != 2 {
		t.Errorf("Non-distractions must not reset the count, got %d", st.Count)
	}

	d = tr.Observe(distraction("erin", "s1", "Netflix - Show", t0.Add(7*time.Second)))
	if !d.Notify || d.Repeated {
		t.Errorf("Returning to the same window after a break is a new distraction, got %+v", d)
	}
}

func TestSessionChangeResets(t *testing.T) {
	tr := newTestTracker(t)

	for i := 0; i < 3; i++ {
		tr.Observe(distraction("frank", "s1", fmt.Sprintf("Game %d", i), t0.Add(time.Duration(i*5)*time.Second)))
	}
	d := tr.Observe(distraction("frank", "s2", "Game 9", t0.Add(20*time.Second)))
	if !d.Reset {
		t.Error("Expected reset on session change")
	}
	if d.Count != 1 || d.Tier != models.TierStandard {
		t.Errorf("Expected count 1 on standard tier, got %+v", d)
	}

	st, _ := tr.Snapshot("frank")
	if st.SessionID != "s2" {
		t.Errorf("Expected session s2, got %s", st.SessionID)
	}
}

func TestResetSessionMidStreak(t *testing.T) {
	tr := newTestTracker(t)

	tr.Observe(distraction("gina", "s1", "A", t0))
	tr.Observe(distraction("gina", "s1", "B", t0.Add(5*time.Second)))
	tr.ResetSession("gina", "s2", t0.Add(6*time.Second))

	st, ok := tr.Snapshot("gina")
	if !ok {
		t.Fatal("Expected a record")
	}
	if st.Count != 0 || st.SessionID != "s2" || st.LastDistractingWindow != "" {
		t.Errorf("Expected a cleared record for s2, got %+v", st)
	}
}

func TestInactivityWindowResets(t *testing.T) {
	tr := newTestTracker(t)

	tr.Observe(distraction("hank", "s1", "A", t0))
	tr.Observe(distraction("hank", "s1", "B", t0.Add(5*time.Second)))
	d := tr.Observe(distraction("hank", "s1", "C", t0.Add(time.Hour+time.Second)))
	if !d.Reset || d.Count != 1 {
		t.Errorf("Expected reset after the inactivity window, got %+v", d)
	}
}

func TestComplete(t *testing.T) {
	tr := newTestTracker(t)

	tr.Complete("nobody", t0)
	if tr.Len() != 0 {
		t.Error("Complete must not create records")
	}

	tr.Observe(distraction("ivy", "s1", "A", t0))
	tr.Complete("ivy", t0.Add(time.Second))
	st, _ := tr.Snapshot("ivy")
	if st.Count != 0 || st.SessionID != "s1" {
		t.Errorf("Expected cleared count in the same session, got %+v", st)
	}
}

func TestConcurrentEventsSerialize(t *testing.T) {
	tr := newTestTracker(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tr.Observe(distraction("jack", "s1", fmt.Sprintf("Window %d", i), t0.Add(time.Duration(i)*time.Minute)))
		}(i)
	}
	wg.Wait()

	st, _ := tr.Snapshot("jack")
	if st.Count < 1 || st.Count > 50 {
		t.Errorf("Count out of range: %d", st.Count)
	}
}

func TestConcurrentDuplicateEventsNotifyOnce(t *testing.T) {
	tr := newTestTracker(t)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		notified int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if d := tr.Observe(distraction("kim", "s1", "Netflix - Show", t0)); d.Notify {
				mu.Lock()
				notified++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if notified != 1 {
		t.Errorf("Expected exactly one notification for duplicate events, got %d", notified)
	}
}

func TestBoundedAndSweep(t *testing.T) {
	tr, err := New(Config{MaxUsers: 3})
	if err != nil {
		t.Fatalf("Failed to create tracker: %v", err)
	}
	for i := 0; i < 5; i++ {
		tr.Observe(distraction(fmt.Sprintf("user%d", i), "s1", "A", t0))
	}
	if tr.Len() != 3 {
		t.Errorf("Expected 3 records, got %d", tr.Len())
	}

	tr.Observe(distraction("user4", "s1", "B", t0.Add(50*time.Minute)))
	removed := tr.Sweep(t0.Add(time.Hour + time.Minute))
	if removed != 2 {
		t.Errorf("Expected 2 stale records removed, got %d", removed)
	}
	if _, ok := tr.Snapshot("user4"); !ok {
		t.Error("Recently active record must survive the sweep")
	}
}

func TestSweepSkipsRecordInUse(t *testing.T) {
	tr := newTestTracker(t)
	tr.Observe(distraction("gina", "s1", "Netflix - Show", t0))

	e, _ := tr.lookup("gina")
	e.mu.Lock()
	removed := tr.Sweep(t0.Add(2 * time.Hour))
	e.mu.Unlock()

	if removed != 0 {
		t.Errorf("Expected a locked record to be skipped, got %d removed", removed)
	}
	if _, ok := tr.Snapshot("gina"); !ok {
		t.Error("Locked record must survive the sweep")
	}
}

func TestObserveAfterSweepUsesLiveRecord(t *testing.T) {
	tr := newTestTracker(t)
	tr.Observe(distraction("hank", "s1", "Netflix - Show", t0))

	// An event that looked the record up just before the sweep removed it.
	stale := tr.entryFor("hank", "s1", t0)
	if tr.Sweep(t0.Add(2*time.Hour)) != 1 {
		t.Fatal("Expected the idle record to be swept")
	}
	if !stale.removed.Load() {
		t.Fatal("Swept record must be marked removed")
	}

	d := tr.Observe(distraction("hank", "s1", "Netflix - Show", t0.Add(2*time.Hour)))
	if !d.Notify || d.Count != 1 {
		t.Errorf("Expected a first notification on a fresh record, got %+v", d)
	}
	st, ok := tr.Snapshot("hank")
	if !ok || st.Count != 1 {
		t.Errorf("Expected the update on the cached record, got %+v (found=%v)", st, ok)
	}
	if stale.state.Count != 1 {
		t.Errorf("Swept record must not be updated, got count %d", stale.state.Count)
	}
}

func TestConcurrentObserveAndSweep(t *testing.T) {
	tr := newTestTracker(t)
	users := []string{"ivy", "jack", "kate", "liam"}

	var wg sync.WaitGroup
	for _, u := range users {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				tr.Observe(distraction(u, "s1", fmt.Sprintf("Netflix - %d", i), t0.Add(time.Duration(i)*time.Hour)))
			}
		}(u)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			tr.Sweep(t0.Add(time.Duration(i+2) * time.Hour))
		}
	}()
	wg.Wait()

	for _, u := range users {
		d := tr.Observe(distraction(u, "s1", "Reddit - Front page", t0.Add(100*time.Hour)))
		st, ok := tr.Snapshot(u)
		if !ok || st.LastDistractingWindow != "Reddit - Front page" {
			t.Errorf("Expected %s's last event on the cached record, got %+v (decision %+v)", u, st, d)
		}
	}
}
