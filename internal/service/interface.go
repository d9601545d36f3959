package service

import (
	"context"

	"github.com/shoplive/liveroom/internal/domain"
)

// WalletService is the internal ledger for room currency. Settlement
// is immediate: a debit happens at purchase time, with no escrow.
type WalletService interface {
	Balance(ctx context.Context, userID string) (int64, error)
	Debit(ctx context.Context, userID string, amount int64) error
	Credit(ctx context.Context, userID string, amount int64) error
	TopUp(ctx context.Context, userID string, amount int64) (int64, error)
}

// CommerceService owns cart state and the checkout pipeline.
type CommerceService interface {
	AddToCart(ctx context.Context, userID string, productID string, opts domain.ItemOptions) (*domain.CartItem, error)
	Cart(ctx context.Context, userID string) ([]domain.CartItem, error)
	UpdateQuantity(ctx context.Context, userID, itemID string, delta int) (*domain.CartItem, error)
	Checkout(ctx context.Context, userID string, itemIDs []string, shippingAddress string) (*domain.Order, error)
	BuyNow(ctx context.Context, userID, productID string, opts domain.ItemOptions, shippingAddress string) (*domain.Order, error)
	Orders(ctx context.Context, userID string) ([]domain.Order, error)
	Order(ctx context.Context, userID, orderID string) (*domain.Order, error)
}

// GiftService records gift sends and keeps the host-side display log.
type GiftService interface {
	Catalog() []domain.Gift
	SendGift(ctx context.Context, roomID, giftID string, sender domain.Participant) (*domain.GiftEvent, error)
	RecentGifts(roomID string) []domain.GiftEvent
}

// SessionService owns room session lifecycle.
type SessionService interface {
	Open(ctx context.Context, host domain.Participant, req *domain.OpenSessionRequest) (*domain.Session, error)
	Get(ctx context.Context, roomID string) (*domain.Session, error)
	List(ctx context.Context, page, pageSize int, status string) (*domain.ListSessionsResponse, error)
	Close(ctx context.Context, hostID, roomID string) error
}
