package pubsub

import (
	"context"
	"sync"
)

// MemoryPubSub is an in-process PubSub for local runs and tests.
// Delivery is FIFO per channel, matching the Redis implementation.
type MemoryPubSub struct {
	mu          sync.Mutex
	subscribers map[string][]*memorySub
	closed      bool
}

// NewMemoryPubSub creates a new in-memory PubSub instance.
func NewMemoryPubSub() *MemoryPubSub {
	return &MemoryPubSub{
		subscribers: make(map[string][]*memorySub),
	}
}

// Publish delivers the event to every current subscriber of the channel.
// A subscriber that joins later never sees it.
func (m *MemoryPubSub) Publish(ctx context.Context, channel string, event *Event) error {
	m.mu.Lock()
	subs := make([]*memorySub, len(m.subscribers[channel]))
	copy(subs, m.subscribers[channel])
	m.mu.Unlock()

	for _, sub := range subs {
		if err := sub.send(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe registers a new subscriber for the channel.
func (m *MemoryPubSub) Subscribe(ctx context.Context, channel string) (ChannelSub, error) {
	sub := &memorySub{
		parent:  m,
		channel: channel,
		ch:      make(chan *Event, 100),
	}

	m.mu.Lock()
	m.subscribers[channel] = append(m.subscribers[channel], sub)
	m.mu.Unlock()

	return sub, nil
}

// Close closes every subscriber.
func (m *MemoryPubSub) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true

	var all []*memorySub
	for channel, subs := range m.subscribers {
		all = append(all, subs...)
		delete(m.subscribers, channel)
	}
	m.mu.Unlock()

	for _, sub := range all {
		sub.Close()
	}
	return nil
}

func (m *MemoryPubSub) remove(sub *memorySub) {
	m.mu.Lock()
	defer m.mu.Unlock()

	subs := m.subscribers[sub.channel]
	for i, s := range subs {
		if s == sub {
			m.subscribers[sub.channel] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(m.subscribers[sub.channel]) == 0 {
		delete(m.subscribers, sub.channel)
	}
}

// memorySub is one subscriber's handle on a channel. Sends and the
// close are serialized on its own mutex so a publisher never writes to
// a closed channel.
type memorySub struct {
	parent  *MemoryPubSub
	channel string

	mu     sync.Mutex
	ch     chan *Event
	closed bool
}

// Events returns the delivery channel. It is closed when the handle is
// closed.
func (s *memorySub) Events() <-chan *Event {
	return s.ch
}

// Close releases this subscriber only.
func (s *memorySub) Close() error {
	s.parent.remove(s)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	return nil
}

func (s *memorySub) send(ctx context.Context, event *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	select {
	case s.ch <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
