package auction

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shoplive/liveroom/internal/domain"
	"github.com/shoplive/liveroom/internal/realtime"
	"github.com/shoplive/liveroom/internal/repository"
	"github.com/shoplive/liveroom/pkg/pubsub"
)

type fakeSessionRepo struct {
	mu      sync.Mutex
	highest map[string]int64
	bidder  map[string]string
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{
		highest: make(map[string]int64),
		bidder:  make(map[string]string),
	}
}

func (f *fakeSessionRepo) Create(ctx context.Context, s *domain.Session) error { return nil }
func (f *fakeSessionRepo) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	return nil, repository.ErrSessionNotFound
}
func (f *fakeSessionRepo) List(ctx context.Context, page, pageSize int, status string) ([]domain.Session, int, error) {
	return nil, 0, nil
}
func (f *fakeSessionRepo) Close(ctx context.Context, id string) error              { return nil }
func (f *fakeSessionRepo) CountLiveByHost(ctx context.Context, h string) (int, error) { return 0, nil }

func (f *fakeSessionRepo) UpdateHighestBid(ctx context.Context, roomID string, amount int64, bidderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if amount <= f.highest[roomID] {
		return repository.ErrBidTooLow
	}
	f.highest[roomID] = amount
	f.bidder[roomID] = bidderID
	return nil
}

type fakeWalletRepo struct {
	mu       sync.Mutex
	balances map[string]int64
}

func newFakeWalletRepo(balances map[string]int64) *fakeWalletRepo {
	return &fakeWalletRepo{balances: balances}
}

func (f *fakeWalletRepo) Get(ctx context.Context, userID string) (*domain.WalletBalance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &domain.WalletBalance{UserID: userID, Balance: f.balances[userID]}, nil
}

func (f *fakeWalletRepo) Debit(ctx context.Context, userID string, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balances[userID] < amount {
		return repository.ErrInsufficientFunds
	}
	f.balances[userID] -= amount
	return nil
}

func (f *fakeWalletRepo) Credit(ctx context.Context, userID string, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[userID] += amount
	return nil
}

type fakeChatRepo struct {
	mu    sync.Mutex
	chats []domain.ChatEvent
}

func (f *fakeChatRepo) Insert(ctx context.Context, e *domain.ChatEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chats = append(f.chats, *e)
	return nil
}

func (f *fakeChatRepo) ListRecent(ctx context.Context, roomID string, limit int) ([]domain.ChatEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.ChatEvent, len(f.chats))
	copy(out, f.chats)
	return out, nil
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestController(t *testing.T, balances map[string]int64, remaining time.Duration) (*Controller, *clock, *fakeSessionRepo) {
	t.Helper()

	c := &clock{t: time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)}
	sessions := newFakeSessionRepo()
	wallets := newFakeWalletRepo(balances)
	bus := realtime.NewBus(pubsub.NewMemoryPubSub(), &fakeChatRepo{})

	ctrl := NewController(Config{
		RoomID:        "room-1",
		EndsAt:        c.Now().Add(remaining),
		StartingPrice: 100,
	}, sessions, wallets, bus, c.Now)
	return ctrl, c, sessions
}

func TestPlaceBidAcceptsHigherBid(t *testing.T) {
	t.Parallel()

	ctrl, _, sessions := newTestController(t, map[string]int64{"alice": 1000}, time.Minute)

	err := ctrl.PlaceBid(context.Background(), 150, domain.Participant{ID: "alice", DisplayName: "Alice"})
	if err != nil {
		t.Fatalf("PlaceBid(150) = %v, want nil", err)
	}

	highest, by := ctrl.Highest()
	if highest != 150 || by != "alice" {
		t.Errorf("Highest() = %d by %q, want 150 by alice", highest, by)
	}
	if got := sessions.highest["room-1"]; got != 150 {
		t.Errorf("stored highest = %d, want 150", got)
	}
}

func TestPlaceBidRejectsAtOrBelowHighest(t *testing.T) {
	t.Parallel()

	ctrl, _, _ := newTestController(t, map[string]int64{"alice": 1000}, time.Minute)

	if err := ctrl.PlaceBid(context.Background(), 100, domain.Participant{ID: "alice"}); !errors.Is(err, ErrBidTooLow) {
		t.Errorf("PlaceBid(100) = %v, want ErrBidTooLow", err)
	}
	if err := ctrl.PlaceBid(context.Background(), 50, domain.Participant{ID: "alice"}); !errors.Is(err, ErrBidTooLow) {
		t.Errorf("PlaceBid(50) = %v, want ErrBidTooLow", err)
	}
}

func TestPlaceBidRejectsInsufficientBalance(t *testing.T) {
	t.Parallel()

	ctrl, _, _ := newTestController(t, map[string]int64{"bob": 120}, time.Minute)

	if err := ctrl.PlaceBid(context.Background(), 150, domain.Participant{ID: "bob"}); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("PlaceBid(150) with balance 120 = %v, want ErrInsufficientFunds", err)
	}
}

func TestPlaceBidIsNotADebit(t *testing.T) {
	t.Parallel()

	balances := map[string]int64{"alice": 1000}
	ctrl, _, _ := newTestController(t, balances, time.Minute)

	if err := ctrl.PlaceBid(context.Background(), 500, domain.Participant{ID: "alice"}); err != nil {
		t.Fatalf("PlaceBid(500) = %v, want nil", err)
	}
	if balances["alice"] != 1000 {
		t.Errorf("balance after bid = %d, want 1000 (bids reserve, not debit)", balances["alice"])
	}
}

func TestEqualBidsOnlyFirstWins(t *testing.T) {
	t.Parallel()

	ctrl, _, _ := newTestController(t, map[string]int64{"a": 1000, "b": 1000}, time.Minute)
	ctx := context.Background()

	if err := ctrl.PlaceBid(ctx, 550, domain.Participant{ID: "a", DisplayName: "A"}); err != nil {
		t.Fatalf("first 550 bid = %v, want nil", err)
	}
	if err := ctrl.PlaceBid(ctx, 550, domain.Participant{ID: "b", DisplayName: "B"}); !errors.Is(err, ErrBidTooLow) {
		t.Fatalf("second 550 bid = %v, want ErrBidTooLow", err)
	}

	highest, by := ctrl.Highest()
	if highest != 550 || by != "a" {
		t.Errorf("Highest() = %d by %q, want 550 by a", highest, by)
	}
}

func TestStateFollowsDeadline(t *testing.T) {
	t.Parallel()

	ctrl, c, _ := newTestController(t, nil, 5*time.Minute)

	if got := ctrl.State(); got != StateOpen {
		t.Fatalf("State() = %q, want open", got)
	}

	c.Advance(5*time.Minute + time.Second)
	if got := ctrl.State(); got != StateEnded {
		t.Fatalf("State() after deadline = %q, want ended", got)
	}

	// Re-evaluating an ended auction never reopens it.
	if got := ctrl.State(); got != StateEnded {
		t.Errorf("State() re-check = %q, want ended", got)
	}
}

func TestBidAfterDeadlineRejected(t *testing.T) {
	t.Parallel()

	ctrl, c, _ := newTestController(t, map[string]int64{"alice": 1000}, time.Minute)
	c.Advance(2 * time.Minute)

	if err := ctrl.PlaceBid(context.Background(), 200, domain.Participant{ID: "alice"}); !errors.Is(err, ErrNotOpen) {
		t.Errorf("PlaceBid after deadline = %v, want ErrNotOpen", err)
	}
}

func TestOnEndedFiresOnce(t *testing.T) {
	t.Parallel()

	ctrl, c, _ := newTestController(t, map[string]int64{"alice": 1000}, time.Minute)

	var mu sync.Mutex
	fired := 0
	var winner string
	ctrl.OnEnded(func(winnerID string, amount int64) {
		mu.Lock()
		fired++
		winner = winnerID
		mu.Unlock()
	})

	if err := ctrl.PlaceBid(context.Background(), 300, domain.Participant{ID: "alice"}); err != nil {
		t.Fatalf("PlaceBid = %v", err)
	}

	c.Advance(2 * time.Minute)
	ctrl.State()
	ctrl.State()

	mu.Lock()
	defer mu.Unlock()
	if fired != 1 {
		t.Errorf("OnEnded fired %d times, want 1", fired)
	}
	if winner != "alice" {
		t.Errorf("winner = %q, want alice", winner)
	}
}

func TestRemainingDerivedFromDeadline(t *testing.T) {
	t.Parallel()

	ctrl, c, _ := newTestController(t, nil, 10*time.Minute)

	c.Advance(3 * time.Minute)
	if got := ctrl.Remaining(); got != 7*time.Minute {
		t.Errorf("Remaining() = %v, want 7m", got)
	}

	c.Advance(8 * time.Minute)
	if got := ctrl.Remaining(); got != 0 {
		t.Errorf("Remaining() past deadline = %v, want 0", got)
	}
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	cases := []struct {
		d    time.Duration
		want string
	}{
		{247 * time.Second, "4:07"},
		{0, "0:00"},
		{59 * time.Second, "0:59"},
		{60 * time.Second, "1:00"},
		{10*time.Minute + 5*time.Second, "10:05"},
		{-time.Second, "0:00"},
	}
	for _, tc := range cases {
		if got := FormatDuration(tc.d); got != tc.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}

func TestSuggestLowerNeverAtOrBelowHighest(t *testing.T) {
	t.Parallel()

	ctrl, _, _ := newTestController(t, map[string]int64{"alice": 1000}, time.Minute)
	if err := ctrl.PlaceBid(context.Background(), 200, domain.Participant{ID: "alice"}); err != nil {
		t.Fatalf("PlaceBid = %v", err)
	}

	if got := ctrl.SuggestLower(250); got != 240 {
		t.Errorf("SuggestLower(250) = %d, want 240", got)
	}
	// Lowering from one step above the highest must not land on or
	// under it.
	if got := ctrl.SuggestLower(210); got != 210 {
		t.Errorf("SuggestLower(210) = %d, want 210", got)
	}
	if got := ctrl.SuggestHigher(200); got != 210 {
		t.Errorf("SuggestHigher(200) = %d, want 210", got)
	}
}

func TestScheduledOpensAtOpensAt(t *testing.T) {
	t.Parallel()

	c := &clock{t: time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)}
	bus := realtime.NewBus(pubsub.NewMemoryPubSub(), &fakeChatRepo{})
	ctrl := NewController(Config{
		RoomID:        "room-1",
		OpensAt:       c.Now().Add(time.Minute),
		EndsAt:        c.Now().Add(10 * time.Minute),
		StartingPrice: 100,
	}, newFakeSessionRepo(), newFakeWalletRepo(map[string]int64{"alice": 1000}), bus, c.Now)

	if got := ctrl.State(); got != StateScheduled {
		t.Fatalf("State() before opensAt = %q, want scheduled", got)
	}
	if err := ctrl.PlaceBid(context.Background(), 200, domain.Participant{ID: "alice"}); !errors.Is(err, ErrNotOpen) {
		t.Errorf("PlaceBid before open = %v, want ErrNotOpen", err)
	}

	c.Advance(2 * time.Minute)
	if got := ctrl.State(); got != StateOpen {
		t.Errorf("State() after opensAt = %q, want open", got)
	}
}
