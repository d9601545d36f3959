package realtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shoplive/liveroom/internal/domain"
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
	var out []domain.ChatEvent
	for _, c := range m.chats {
		if c.RoomID == roomID {
			out = append(out, c)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *memChatRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.chats)
}

func collect(t *testing.T, sub *Subscription, kind domain.EventKind) <-chan *pubsub.Event {
	t.Helper()
	ch := make(chan *pubsub.Event, 32)
	sub.On(kind, func(event *pubsub.Event) {
		ch <- event
	})
	return ch
}

func waitEvent(t *testing.T, ch <-chan *pubsub.Event) *pubsub.Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestPublisherReceivesOwnChatThroughFeed(t *testing.T) {
	t.Parallel()

	bus := NewBus(pubsub.NewMemoryPubSub(), &memChatRepo{})
	sub, err := bus.Subscribe(context.Background(), "room-1")
	if err != nil {
		t.Fatalf("Subscribe = %v", err)
	}
	defer sub.Close()

	ch := collect(t, sub, domain.KindChat)

	chat := &domain.ChatEvent{RoomID: "room-1", SenderID: "alice", SenderName: "Alice", Text: "hi", Type: domain.ChatTypeText}
	if err := bus.PublishChat(context.Background(), chat); err != nil {
		t.Fatalf("PublishChat = %v", err)
	}

	event := waitEvent(t, ch)
	if event.ID != chat.ID {
		t.Errorf("feed event ID = %q, want %q (same ID as stored row)", event.ID, chat.ID)
	}

	var payload domain.ChatPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		t.Fatalf("UnmarshalPayload = %v", err)
	}
	if payload.Text != "hi" || payload.SenderID != "alice" {
		t.Errorf("payload = %+v, want hi from alice", payload)
	}
}

func TestChatIsPersistedEphemeralIsNot(t *testing.T) {
	t.Parallel()

	chats := &memChatRepo{}
	bus := NewBus(pubsub.NewMemoryPubSub(), chats)
	ctx := context.Background()

	if err := bus.PublishChat(ctx, &domain.ChatEvent{RoomID: "room-1", SenderID: "a", Text: "stored", Type: domain.ChatTypeText}); err != nil {
		t.Fatalf("PublishChat = %v", err)
	}
	if err := bus.PublishEphemeral(ctx, domain.KindHeart, "room-1", domain.HeartPayload{SenderID: "a"}); err != nil {
		t.Fatalf("PublishEphemeral = %v", err)
	}

	if chats.count() != 1 {
		t.Errorf("stored rows = %d, want 1 (hearts are never stored)", chats.count())
	}
}

func TestLateSubscriberMissesEphemeral(t *testing.T) {
	t.Parallel()

	bus := NewBus(pubsub.NewMemoryPubSub(), &memChatRepo{})
	ctx := context.Background()

	if err := bus.PublishEphemeral(ctx, domain.KindHeart, "room-1", domain.HeartPayload{SenderID: "a"}); err != nil {
		t.Fatalf("PublishEphemeral = %v", err)
	}

	sub, err := bus.Subscribe(ctx, "room-1")
	if err != nil {
		t.Fatalf("Subscribe = %v", err)
	}
	defer sub.Close()
	ch := collect(t, sub, domain.KindHeart)

	select {
	case e := <-ch:
		t.Errorf("late subscriber received %+v, want nothing", e)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestFeedRedeliveryIsDeduped(t *testing.T) {
	t.Parallel()

	transport := pubsub.NewMemoryPubSub()
	bus := NewBus(transport, &memChatRepo{})
	ctx := context.Background()

	sub, err := bus.Subscribe(ctx, "room-1")
	if err != nil {
		t.Fatalf("Subscribe = %v", err)
	}
	defer sub.Close()
	ch := collect(t, sub, domain.KindChat)

	event, err := pubsub.NewEvent("evt-1", string(domain.KindChat), "room-1", domain.ChatPayload{SenderID: "a", Text: "once"})
	if err != nil {
		t.Fatalf("NewEvent = %v", err)
	}
	// The feed is at-least-once; deliver the same event twice.
	transport.Publish(ctx, pubsub.RoomFeedChannel("room-1"), event)
	transport.Publish(ctx, pubsub.RoomFeedChannel("room-1"), event)

	waitEvent(t, ch)
	select {
	case e := <-ch:
		t.Errorf("duplicate feed event %q was dispatched", e.ID)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestEventsOrderedWithinChannel(t *testing.T) {
	t.Parallel()

	bus := NewBus(pubsub.NewMemoryPubSub(), &memChatRepo{})
	ctx := context.Background()

	sub, err := bus.Subscribe(ctx, "room-1")
	if err != nil {
		t.Fatalf("Subscribe = %v", err)
	}
	defer sub.Close()
	ch := collect(t, sub, domain.KindHeart)

	for i := 0; i < 10; i++ {
		if err := bus.PublishEphemeral(ctx, domain.KindHeart, "room-1", domain.HeartPayload{SenderID: string(rune('a' + i))}); err != nil {
			t.Fatalf("PublishEphemeral #%d = %v", i, err)
		}
	}

	for i := 0; i < 10; i++ {
		event := waitEvent(t, ch)
		var payload domain.HeartPayload
		if err := event.UnmarshalPayload(&payload); err != nil {
			t.Fatalf("UnmarshalPayload = %v", err)
		}
		if want := string(rune('a' + i)); payload.SenderID != want {
			t.Fatalf("event %d sender = %q, want %q (FIFO per channel)", i, payload.SenderID, want)
		}
	}
}

func TestRoomsAreIsolated(t *testing.T) {
	t.Parallel()

	bus := NewBus(pubsub.NewMemoryPubSub(), &memChatRepo{})
	ctx := context.Background()

	sub, err := bus.Subscribe(ctx, "room-1")
	if err != nil {
		t.Fatalf("Subscribe = %v", err)
	}
	defer sub.Close()
	ch := collect(t, sub, domain.KindHeart)

	if err := bus.PublishEphemeral(ctx, domain.KindHeart, "room-2", domain.HeartPayload{SenderID: "a"}); err != nil {
		t.Fatalf("PublishEphemeral = %v", err)
	}

	select {
	case e := <-ch:
		t.Errorf("room-1 subscriber received room-2 event %+v", e)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestUnsubscribeHandlerStopsDelivery(t *testing.T) {
	t.Parallel()

	bus := NewBus(pubsub.NewMemoryPubSub(), &memChatRepo{})
	ctx := context.Background()

	sub, err := bus.Subscribe(ctx, "room-1")
	if err != nil {
		t.Fatalf("Subscribe = %v", err)
	}
	defer sub.Close()

	ch := make(chan *pubsub.Event, 8)
	off := sub.On(domain.KindHeart, func(event *pubsub.Event) { ch <- event })

	bus.PublishEphemeral(ctx, domain.KindHeart, "room-1", domain.HeartPayload{SenderID: "a"})
	waitEvent(t, ch)

	off()
	bus.PublishEphemeral(ctx, domain.KindHeart, "room-1", domain.HeartPayload{SenderID: "b"})

	select {
	case e := <-ch:
		t.Errorf("unsubscribed handler received %+v", e)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCloseAffectsOnlyOwnSubscription(t *testing.T) {
	t.Parallel()

	bus := NewBus(pubsub.NewMemoryPubSub(), &memChatRepo{})
	ctx := context.Background()

	first, err := bus.Subscribe(ctx, "room-1")
	if err != nil {
		t.Fatalf("Subscribe = %v", err)
	}
	second, err := bus.Subscribe(ctx, "room-1")
	if err != nil {
		t.Fatalf("Subscribe = %v", err)
	}
	defer second.Close()
	ch := collect(t, second, domain.KindHeart)

	first.Close()

	if err := bus.PublishEphemeral(ctx, domain.KindHeart, "room-1", domain.HeartPayload{SenderID: "a"}); err != nil {
		t.Fatalf("PublishEphemeral = %v", err)
	}

	event := waitEvent(t, ch)
	var payload domain.HeartPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		t.Fatalf("UnmarshalPayload = %v", err)
	}
	if payload.SenderID != "a" {
		t.Errorf("sender = %q, want %q (sibling close must not sever this feed)", payload.SenderID, "a")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	bus := NewBus(pubsub.NewMemoryPubSub(), &memChatRepo{})
	sub, err := bus.Subscribe(context.Background(), "room-1")
	if err != nil {
		t.Fatalf("Subscribe = %v", err)
	}

	sub.Close()
	sub.Close()

	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("Done() not closed after Close")
	}
}

func TestReplayReturnsInsertionOrder(t *testing.T) {
	t.Parallel()

	bus := NewBus(pubsub.NewMemoryPubSub(), &memChatRepo{})
	ctx := context.Background()

	for _, text := range []string{"one", "two", "three"} {
		if err := bus.PublishChat(ctx, &domain.ChatEvent{RoomID: "room-1", SenderID: "a", Text: text, Type: domain.ChatTypeText}); err != nil {
			t.Fatalf("PublishChat(%s) = %v", text, err)
		}
	}

	replay, err := bus.Replay(ctx, "room-1", 2)
	if err != nil {
		t.Fatalf("Replay = %v", err)
	}
	if len(replay) != 2 || replay[0].Text != "two" || replay[1].Text != "three" {
		t.Errorf("Replay = %+v, want the newest two in insertion order", replay)
	}
}
