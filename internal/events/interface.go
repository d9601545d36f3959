package events

import (
	"context"
	"time"

	"github.com/shoplive/liveroom/internal/domain"
)

// OrderCreated is published when a checkout completes, so fulfillment
// and notification collaborators can pick the order up.
type OrderCreated struct {
	OrderID     string    `json:"order_id"`
	BuyerID     string    `json:"buyer_id"`
	TotalAmount int64     `json:"total_amount"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// GiftSettled is published when a gift send has been debited.
type GiftSettled struct {
	RoomID    string    `json:"room_id"`
	GiftID    string    `json:"gift_id"`
	SenderID  string    `json:"sender_id"`
	UnitPrice int64     `json:"unit_price"`
	SettledAt time.Time `json:"settled_at"`
}

// Producer delivers settlement events to external collaborators.
type Producer interface {
	ProduceOrderCreated(ctx context.Context, order *domain.Order) error
	ProduceGiftSettled(ctx context.Context, settled *GiftSettled) error
	Close() error
}
