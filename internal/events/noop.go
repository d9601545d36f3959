package events

import (
	"context"

	"github.com/shoplive/liveroom/internal/domain"
)

// NoopProducer drops settlement events. Used when no broker is
// configured, e.g. local runs.
type NoopProducer struct{}

func (NoopProducer) ProduceOrderCreated(ctx context.Context, order *domain.Order) error {
	return nil
}

func (NoopProducer) ProduceGiftSettled(ctx context.Context, settled *GiftSettled) error {
	return nil
}

func (NoopProducer) Close() error { return nil }
