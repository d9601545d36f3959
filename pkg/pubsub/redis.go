package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection settings for the event bus.
type RedisConfig struct {
	Address      string        `mapstructure:"address"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// RedisPubSub implements PubSub using Redis.
type RedisPubSub struct {
	client *redis.Client
	mu     sync.Mutex
	subs   map[*redisSub]struct{}
}

// NewRedisPubSub creates a new Redis-based PubSub instance.
func NewRedisPubSub(cfg RedisConfig) (*RedisPubSub, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisPubSub{
		client: client,
		subs:   make(map[*redisSub]struct{}),
	}, nil
}

// Publish publishes an event to the specified channel.
func (r *RedisPubSub) Publish(ctx context.Context, channel string, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	return r.client.Publish(ctx, channel, data).Err()
}

// Subscribe opens a dedicated Redis subscription for one subscriber.
// Each call gets its own handle; closing one does not affect the
// others, even on the same channel.
func (r *RedisPubSub) Subscribe(ctx context.Context, channel string) (ChannelSub, error) {
	sub := &redisSub{
		parent: r,
		pubsub: r.client.Subscribe(ctx, channel),
		events: make(chan *Event, 100),
	}

	r.mu.Lock()
	r.subs[sub] = struct{}{}
	r.mu.Unlock()

	go r.processMessages(ctx, sub.pubsub, sub.events)

	return sub, nil
}

// Close closes all subscriptions and the Redis client.
func (r *RedisPubSub) Close() error {
	r.mu.Lock()
	subs := make([]*redisSub, 0, len(r.subs))
	for s := range r.subs {
		subs = append(subs, s)
	}
	r.subs = make(map[*redisSub]struct{})
	r.mu.Unlock()

	for _, s := range subs {
		s.Close()
	}
	return r.client.Close()
}

func (r *RedisPubSub) forget(s *redisSub) {
	r.mu.Lock()
	delete(r.subs, s)
	r.mu.Unlock()
}

// redisSub is one subscriber's handle. Its event channel is closed by
// processMessages when the underlying Redis subscription closes.
type redisSub struct {
	parent *RedisPubSub
	pubsub *redis.PubSub
	events chan *Event
	once   sync.Once
}

// Events returns the subscriber's delivery channel.
func (s *redisSub) Events() <-chan *Event {
	return s.events
}

// Close releases this subscriber only.
func (s *redisSub) Close() error {
	var err error
	s.once.Do(func() {
		s.parent.forget(s)
		err = s.pubsub.Close()
	})
	return err
}

// processMessages reads messages from the Redis pubsub and sends them
// to the event channel in feed order.
func (r *RedisPubSub) processMessages(ctx context.Context, pubsub *redis.PubSub, eventCh chan<- *Event) {
	defer close(eventCh)

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue
			}

			select {
			case eventCh <- &event:
			case <-ctx.Done():
				return
			}
		}
	}
}
