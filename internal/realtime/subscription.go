package realtime

import (
	"context"
	"sync"

	"github.com/shoplive/liveroom/internal/domain"
	"github.com/shoplive/liveroom/pkg/log"
	"github.com/shoplive/liveroom/pkg/pubsub"
)

// Handler receives decoded events of one kind.
type Handler func(event *pubsub.Event)

// Subscription is one room's view of the bus. Handlers run serially on
// the subscription's pump goroutine, so they never race each other.
// Close tears down every handler and both channel subscriptions exactly
// once; it is the single teardown path for all exits.
type Subscription struct {
	roomID    string
	bus       *Bus
	cancel    context.CancelFunc
	feed      pubsub.ChannelSub
	broadcast pubsub.ChannelSub

	mu       sync.Mutex
	handlers map[domain.EventKind][]*registration
	nextID   int

	seen *dedupRing

	closeOnce sync.Once
	done      chan struct{}
}

type registration struct {
	id      int
	handler Handler
}

// Subscribe opens a subscription for one room: the persisted feed and
// the ephemeral broadcast channel, pumped in feed order.
func (b *Bus) Subscribe(ctx context.Context, roomID string) (*Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)

	feed, err := b.transport.Subscribe(ctx, pubsub.RoomFeedChannel(roomID))
	if err != nil {
		cancel()
		return nil, err
	}
	broadcast, err := b.transport.Subscribe(ctx, pubsub.RoomBroadcastChannel(roomID))
	if err != nil {
		feed.Close()
		cancel()
		return nil, err
	}

	s := &Subscription{
		roomID:    roomID,
		bus:       b,
		cancel:    cancel,
		feed:      feed,
		broadcast: broadcast,
		handlers:  make(map[domain.EventKind][]*registration),
		seen:      newDedupRing(512),
		done:      make(chan struct{}),
	}

	go s.pump(ctx, feed.Events(), broadcast.Events())
	return s, nil
}

// On registers a handler for one event kind and returns its
// unsubscribe function.
func (s *Subscription) On(kind domain.EventKind, handler Handler) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	reg := &registration{id: s.nextID, handler: handler}
	s.handlers[kind] = append(s.handlers[kind], reg)

	id := reg.id
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		regs := s.handlers[kind]
		for i, r := range regs {
			if r.id == id {
				s.handlers[kind] = append(regs[:i], regs[i+1:]...)
				return
			}
		}
	}
}

// Close tears the subscription down: both of its own channel handles
// are released and all handlers dropped. Other subscriptions to the
// same room are untouched. Safe to call from any exit path; only the
// first call does work.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.feed.Close()
		s.broadcast.Close()

		s.mu.Lock()
		s.handlers = make(map[domain.EventKind][]*registration)
		s.mu.Unlock()

		close(s.done)
	})
}

// Done is closed when the subscription has been torn down.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

func (s *Subscription) pump(ctx context.Context, feed, broadcast <-chan *pubsub.Event) {
	for feed != nil || broadcast != nil {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-feed:
			if !ok {
				feed = nil
				continue
			}
			// The persisted feed is at-least-once; drop redeliveries.
			if !s.seen.add(event.ID) {
				continue
			}
			s.dispatch(event)
		case event, ok := <-broadcast:
			if !ok {
				broadcast = nil
				continue
			}
			s.dispatch(event)
		}
	}
}

func (s *Subscription) dispatch(event *pubsub.Event) {
	s.mu.Lock()
	regs := make([]*registration, len(s.handlers[domain.EventKind(event.Kind)]))
	copy(regs, s.handlers[domain.EventKind(event.Kind)])
	s.mu.Unlock()

	if len(regs) == 0 && len(event.Kind) > 0 {
		log.L().Trace().Str(log.FieldRoomID, s.roomID).Str(log.FieldEventKind, event.Kind).Msg("no handler for event")
	}
	for _, reg := range regs {
		reg.handler(event)
	}
}
