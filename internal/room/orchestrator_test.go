package room

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shoplive/liveroom/internal/domain"
	"github.com/shoplive/liveroom/internal/presence"
	"github.com/shoplive/liveroom/internal/realtime"
	"github.com/shoplive/liveroom/pkg/pubsub"
)

type memChatRepo struct {
	mu    sync.Mutex
	chats []domain.ChatEvent
}

func (m *memChatRepo) Insert(ctx context.Context, e *domain.ChatEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chats = append(m.chats, *e)
	return nil
}

func (m *memChatRepo) ListRecent(ctx context.Context, roomID string, limit int) ([]domain.ChatEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.ChatEvent, len(m.chats))
	copy(out, m.chats)
	return out, nil
}

func testDeps() Deps {
	return Deps{
		Bus:      realtime.NewBus(pubsub.NewMemoryPubSub(), &memChatRepo{}),
		Presence: presence.NewTracker(),
	}
}

func captureEmit(orch *Orchestrator) <-chan Outbound {
	ch := make(chan Outbound, 32)
	orch.SetEmit(func(out Outbound) { ch <- out })
	return ch
}

func waitOutbound(t *testing.T, ch <-chan Outbound) Outbound {
	t.Helper()
	select {
	case out := <-ch:
		return out
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for outbound event")
		return Outbound{}
	}
}

func TestSendChatEchoIsConfirmedForSender(t *testing.T) {
	t.Parallel()

	deps := testDeps()
	ctx := context.Background()

	alice, err := Enter(ctx, "room-1", domain.Participant{ID: "alice", Role: domain.RoleViewer, DisplayName: "Alice"}, deps)
	if err != nil {
		t.Fatalf("Enter = %v", err)
	}
	defer alice.Close()
	out := captureEmit(alice)

	eventID, err := alice.SendChat(ctx, "hello room")
	if err != nil {
		t.Fatalf("SendChat = %v", err)
	}

	echo := waitOutbound(t, out)
	if echo.Event.ID != eventID {
		t.Errorf("echo ID = %q, want %q", echo.Event.ID, eventID)
	}
	if !echo.Confirmed {
		t.Error("echo of own chat not marked confirmed")
	}
}

func TestChatFansOutUnconfirmedToOthers(t *testing.T) {
	t.Parallel()

	deps := testDeps()
	ctx := context.Background()

	// One shared subscription room, two entries. Bob enters first so
	// his feed subscription exists before Alice publishes.
	bob, err := Enter(ctx, "room-1", domain.Participant{ID: "bob", Role: domain.RoleViewer, DisplayName: "Bob"}, deps)
	if err != nil {
		t.Fatalf("Enter(bob) = %v", err)
	}
	bobOut := captureEmit(bob)

	alice, err := Enter(ctx, "room-1", domain.Participant{ID: "alice", Role: domain.RoleViewer, DisplayName: "Alice"}, deps)
	if err != nil {
		t.Fatalf("Enter(alice) = %v", err)
	}

	if _, err := alice.SendChat(ctx, "hi bob"); err != nil {
		t.Fatalf("SendChat = %v", err)
	}

	got := waitOutbound(t, bobOut)
	if got.Confirmed {
		t.Error("someone else's chat marked confirmed")
	}
	var payload domain.ChatPayload
	if err := got.Event.UnmarshalPayload(&payload); err != nil {
		t.Fatalf("UnmarshalPayload = %v", err)
	}
	if payload.SenderID != "alice" || payload.Text != "hi bob" {
		t.Errorf("payload = %+v, want hi bob from alice", payload)
	}

	alice.Close()
	bob.Close()
}

func TestSiblingCloseKeepsRemainingEntryReceiving(t *testing.T) {
	t.Parallel()

	deps := testDeps()
	ctx := context.Background()

	bob, err := Enter(ctx, "room-1", domain.Participant{ID: "bob", Role: domain.RoleViewer, DisplayName: "Bob"}, deps)
	if err != nil {
		t.Fatalf("Enter(bob) = %v", err)
	}
	defer bob.Close()
	bobOut := captureEmit(bob)

	alice, err := Enter(ctx, "room-1", domain.Participant{ID: "alice", Role: domain.RoleViewer, DisplayName: "Alice"}, deps)
	if err != nil {
		t.Fatalf("Enter(alice) = %v", err)
	}
	alice.Close()

	if err := bob.SendHeart(ctx); err != nil {
		t.Fatalf("SendHeart = %v", err)
	}

	got := waitOutbound(t, bobOut)
	if got.Event.Kind != string(domain.KindHeart) {
		t.Errorf("event kind = %q, want heart after sibling left", got.Event.Kind)
	}
}

func TestSendChatRejectsEmptyText(t *testing.T) {
	t.Parallel()

	deps := testDeps()
	orch, err := Enter(context.Background(), "room-1", domain.Participant{ID: "alice"}, deps)
	if err != nil {
		t.Fatalf("Enter = %v", err)
	}
	defer orch.Close()

	if _, err := orch.SendChat(context.Background(), "   "); !errors.Is(err, ErrEmptyChat) {
		t.Errorf("SendChat(blank) = %v, want ErrEmptyChat", err)
	}
}

func TestHeartReachesSubscribers(t *testing.T) {
	t.Parallel()

	deps := testDeps()
	ctx := context.Background()

	orch, err := Enter(ctx, "room-1", domain.Participant{ID: "alice"}, deps)
	if err != nil {
		t.Fatalf("Enter = %v", err)
	}
	defer orch.Close()
	out := captureEmit(orch)

	if err := orch.SendHeart(ctx); err != nil {
		t.Fatalf("SendHeart = %v", err)
	}

	got := waitOutbound(t, out)
	if got.Event.Kind != string(domain.KindHeart) {
		t.Errorf("event kind = %q, want heart", got.Event.Kind)
	}
}

func TestPlaceBidWithoutAuction(t *testing.T) {
	t.Parallel()

	deps := testDeps()
	orch, err := Enter(context.Background(), "room-1", domain.Participant{ID: "alice"}, deps)
	if err != nil {
		t.Fatalf("Enter = %v", err)
	}
	defer orch.Close()

	if err := orch.PlaceBid(context.Background(), 200); !errors.Is(err, ErrNotAuctionRoom) {
		t.Errorf("PlaceBid in non-auction room = %v, want ErrNotAuctionRoom", err)
	}
}

func TestViewerCountTickSuppressesUnchanged(t *testing.T) {
	t.Parallel()

	deps := testDeps()
	ctx := context.Background()

	orch, err := Enter(ctx, "room-1", domain.Participant{ID: "alice"}, deps)
	if err != nil {
		t.Fatalf("Enter = %v", err)
	}
	defer orch.Close()
	out := captureEmit(orch)

	if err := orch.PublishViewerCount(ctx, 3); err != nil {
		t.Fatalf("PublishViewerCount(3) = %v", err)
	}
	if err := orch.PublishViewerCount(ctx, 3); err != nil {
		t.Fatalf("PublishViewerCount(3) again = %v", err)
	}
	if err := orch.PublishViewerCount(ctx, 4); err != nil {
		t.Fatalf("PublishViewerCount(4) = %v", err)
	}

	first := waitOutbound(t, out)
	second := waitOutbound(t, out)

	var p1, p2 domain.ViewerCountPayload
	if err := first.Event.UnmarshalPayload(&p1); err != nil {
		t.Fatalf("UnmarshalPayload = %v", err)
	}
	if err := second.Event.UnmarshalPayload(&p2); err != nil {
		t.Fatalf("UnmarshalPayload = %v", err)
	}
	if p1.Count != 3 || p2.Count != 4 {
		t.Errorf("counts = %d,%d, want 3,4 (unchanged tick suppressed)", p1.Count, p2.Count)
	}

	select {
	case extra := <-out:
		t.Errorf("unexpected extra outbound %+v", extra)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCloseRejectsFurtherIntents(t *testing.T) {
	t.Parallel()

	deps := testDeps()
	ctx := context.Background()

	orch, err := Enter(ctx, "room-1", domain.Participant{ID: "alice"}, deps)
	if err != nil {
		t.Fatalf("Enter = %v", err)
	}

	orch.Close()
	orch.Close()

	if _, err := orch.SendChat(ctx, "too late"); !errors.Is(err, ErrClosed) {
		t.Errorf("SendChat after Close = %v, want ErrClosed", err)
	}
	if err := orch.SendHeart(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("SendHeart after Close = %v, want ErrClosed", err)
	}
	if deps.Presence.IsOnline("alice") {
		t.Error("participant still online after Close")
	}
}
