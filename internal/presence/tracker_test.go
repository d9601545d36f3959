package presence

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestTracker() (*Tracker, *fakeClock) {
	c := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return NewTracker(WithClock(c.Now)), c
}

func TestOnlineWithinStalenessWindow(t *testing.T) {
	t.Parallel()

	tracker, c := newTestTracker()
	tracker.Touch("alice")

	c.Advance(9 * time.Minute)
	if !tracker.IsOnline("alice") {
		t.Error("IsOnline after 9m = false, want true")
	}

	c.Advance(2 * time.Minute)
	if tracker.IsOnline("alice") {
		t.Error("IsOnline after 11m = true, want false")
	}
}

func TestExactStalenessBoundaryIsOffline(t *testing.T) {
	t.Parallel()

	tracker, c := newTestTracker()
	tracker.Touch("alice")

	c.Advance(DefaultStaleness)
	if tracker.IsOnline("alice") {
		t.Error("IsOnline at exactly the staleness window = true, want false")
	}
}

func TestUnknownParticipantIsOffline(t *testing.T) {
	t.Parallel()

	tracker, _ := newTestTracker()
	if tracker.IsOnline("ghost") {
		t.Error("IsOnline for unknown participant = true, want false")
	}
}

func TestTouchRevivesStaleParticipant(t *testing.T) {
	t.Parallel()

	tracker, c := newTestTracker()
	tracker.Touch("alice")

	c.Advance(15 * time.Minute)
	if tracker.IsOnline("alice") {
		t.Fatal("IsOnline after 15m = true, want false")
	}

	tracker.Touch("alice")
	if !tracker.IsOnline("alice") {
		t.Error("IsOnline after fresh touch = false, want true")
	}
}

func TestSweepFiresTransitionCallback(t *testing.T) {
	t.Parallel()

	tracker, c := newTestTracker()

	var mu sync.Mutex
	type change struct {
		id     string
		online bool
	}
	var changes []change
	tracker.OnChange(func(id string, online bool) {
		mu.Lock()
		changes = append(changes, change{id, online})
		mu.Unlock()
	})

	tracker.Touch("alice")
	c.Advance(11 * time.Minute)
	tracker.Sweep()
	// Re-sweeping an unchanged state fires nothing.
	tracker.Sweep()

	mu.Lock()
	defer mu.Unlock()
	want := []change{{"alice", true}, {"alice", false}}
	if len(changes) != len(want) {
		t.Fatalf("changes = %+v, want %+v", changes, want)
	}
	for i := range want {
		if changes[i] != want[i] {
			t.Errorf("change %d = %+v, want %+v", i, changes[i], want[i])
		}
	}
}

func TestForgetDropsParticipant(t *testing.T) {
	t.Parallel()

	tracker, _ := newTestTracker()
	tracker.Touch("alice")
	tracker.Forget("alice")

	if tracker.IsOnline("alice") {
		t.Error("IsOnline after Forget = true, want false")
	}
}

func TestOnlineFromDerivesWithoutRegistering(t *testing.T) {
	t.Parallel()

	tracker, c := newTestTracker()

	if !tracker.OnlineFrom(c.Now().Add(-5 * time.Minute)) {
		t.Error("OnlineFrom(5m ago) = false, want true")
	}
	if tracker.OnlineFrom(c.Now().Add(-15 * time.Minute)) {
		t.Error("OnlineFrom(15m ago) = true, want false")
	}
	if tracker.IsOnline("") {
		t.Error("OnlineFrom must not register a participant")
	}
}
