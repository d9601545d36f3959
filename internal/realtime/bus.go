package realtime

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/shoplive/liveroom/internal/domain"
	"github.com/shoplive/liveroom/internal/repository"
	"github.com/shoplive/liveroom/pkg/log"
	"github.com/shoplive/liveroom/pkg/pubsub"
)

// Bus is the per-room event bus. It carries two delivery classes:
//
//   - persisted (chat): PublishChat durably inserts the event into the
//     store and then announces it on the room feed channel. Delivery to
//     subscribers, the publisher included, happens through the feed, so
//     handlers must dedup by event ID.
//   - ephemeral (heart, bid, gift, viewer_count): PublishEphemeral
//     announces on the broadcast channel only. A subscriber that joins
//     after the announcement never sees it.
//
// Ordering is FIFO within one channel; a bid and a chat published
// near-simultaneously may interleave either way.
type Bus struct {
	transport pubsub.PubSub
	chats     repository.ChatRepository
}

// NewBus creates a new event bus over the given transport and chat store.
func NewBus(transport pubsub.PubSub, chats repository.ChatRepository) *Bus {
	return &Bus{transport: transport, chats: chats}
}

// NewEventID returns a fresh sortable event ID.
func NewEventID() string {
	return ulid.Make().String()
}

// PublishChat durably stores the chat event and announces it on the
// room feed. The stored row and the feed copy share the event ID.
func (b *Bus) PublishChat(ctx context.Context, chat *domain.ChatEvent) error {
	if chat.ID == "" {
		chat.ID = NewEventID()
	}
	if chat.CreatedAt.IsZero() {
		chat.CreatedAt = time.Now()
	}

	if err := b.chats.Insert(ctx, chat); err != nil {
		return err
	}

	event, err := pubsub.NewEvent(chat.ID, string(domain.KindChat), chat.RoomID, domain.ChatPayload{
		SenderID:   chat.SenderID,
		SenderName: chat.SenderName,
		Text:       chat.Text,
		IsSystem:   chat.IsSystem(),
		IsHost:     chat.IsHost,
		SentAt:     chat.CreatedAt,
	})
	if err != nil {
		return err
	}

	if err := b.transport.Publish(ctx, pubsub.RoomFeedChannel(chat.RoomID), event); err != nil {
		// The row is stored; the feed will redeliver it to late joiners
		// via replay, so a failed announce is logged, not fatal.
		log.Ctx(ctx).Warn().Err(err).Str(log.FieldRoomID, chat.RoomID).Msg("failed to announce persisted chat on feed")
	}
	return nil
}

// PublishEphemeral announces an event on the room broadcast channel
// without storing it.
func (b *Bus) PublishEphemeral(ctx context.Context, kind domain.EventKind, roomID string, payload interface{}) error {
	event, err := pubsub.NewEvent(NewEventID(), string(kind), roomID, payload)
	if err != nil {
		return err
	}
	return b.transport.Publish(ctx, pubsub.RoomBroadcastChannel(roomID), event)
}

// Replay returns the most recent persisted chat for a room in
// insertion order.
func (b *Bus) Replay(ctx context.Context, roomID string, limit int) ([]domain.ChatEvent, error) {
	return b.chats.ListRecent(ctx, roomID, limit)
}
