package presence

import (
	"context"
	"sync"
	"time"

	"github.com/shoplive/liveroom/pkg/log"
)

const (
	// DefaultStaleness is how long after the last observed activity a
	// participant still counts as online.
	DefaultStaleness = 10 * time.Minute

	// DefaultInterval is how often known timestamps are re-evaluated.
	DefaultInterval = 30 * time.Second
)

// Tracker derives online/offline for participants from last-activity
// timestamps it has already been told about. It never performs network
// calls to determine liveness; it only reinterprets known data on a
// fixed interval.
type Tracker struct {
	staleness time.Duration
	interval  time.Duration
	now       func() time.Time

	mu           sync.Mutex
	lastActivity map[string]time.Time
	online       map[string]bool
	onChange     func(participantID string, online bool)
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithStaleness overrides the staleness window.
func WithStaleness(d time.Duration) Option {
	return func(t *Tracker) { t.staleness = d }
}

// WithInterval overrides the re-evaluation interval.
func WithInterval(d time.Duration) Option {
	return func(t *Tracker) { t.interval = d }
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// NewTracker creates a presence tracker.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		staleness:    DefaultStaleness,
		interval:     DefaultInterval,
		now:          time.Now,
		lastActivity: make(map[string]time.Time),
		online:       make(map[string]bool),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// OnChange registers a callback invoked when a participant's derived
// state flips. Invoked from Touch and the re-evaluation loop.
func (t *Tracker) OnChange(fn func(participantID string, online bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onChange = fn
}

// Touch records fresh activity for a participant.
func (t *Tracker) Touch(participantID string) {
	t.TouchAt(participantID, t.now())
}

// TouchAt records activity at a known timestamp, e.g. from a fetched
// record rather than a live event.
func (t *Tracker) TouchAt(participantID string, at time.Time) {
	t.mu.Lock()
	t.lastActivity[participantID] = at
	notify := t.applyLocked(participantID)
	t.mu.Unlock()

	if notify != nil {
		notify()
	}
}

// Forget drops a participant entirely.
func (t *Tracker) Forget(participantID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.lastActivity, participantID)
	delete(t.online, participantID)
}

// IsOnline reports whether the participant's last activity is within
// the staleness window.
func (t *Tracker) IsOnline(participantID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	last, ok := t.lastActivity[participantID]
	if !ok {
		return false
	}
	return t.onlineAt(last)
}

// OnlineFrom derives online state directly from a timestamp without
// registering the participant.
func (t *Tracker) OnlineFrom(lastActivityAt time.Time) bool {
	return t.onlineAt(lastActivityAt)
}

// Run re-evaluates all known timestamps on the fixed interval until
// the context is cancelled.
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Sweep()
		}
	}
}

// Sweep re-derives every participant's state once.
func (t *Tracker) Sweep() {
	t.mu.Lock()
	var notifies []func()
	for id := range t.lastActivity {
		if notify := t.applyLocked(id); notify != nil {
			notifies = append(notifies, notify)
		}
	}
	t.mu.Unlock()

	for _, notify := range notifies {
		notify()
	}
	if len(notifies) > 0 {
		log.L().Debug().Int("transitions", len(notifies)).Msg("presence sweep flipped participants")
	}
}

func (t *Tracker) onlineAt(last time.Time) bool {
	return t.now().Sub(last) < t.staleness
}

// applyLocked recomputes one participant and returns a pending change
// notification, or nil. Caller holds t.mu.
func (t *Tracker) applyLocked(id string) func() {
	derived := t.onlineAt(t.lastActivity[id])
	prev, known := t.online[id]
	t.online[id] = derived

	if t.onChange == nil || (known && prev == derived) {
		return nil
	}
	fn := t.onChange
	return func() { fn(id, derived) }
}
