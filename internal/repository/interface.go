package repository

import (
	"context"
	"errors"

	"github.com/shoplive/liveroom/internal/domain"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrCartItemNotFound  = errors.New("cart item not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrBidTooLow         = errors.New("bid not above current highest")
)

// SessionRepository persists room sessions and the highest-bid projection.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	List(ctx context.Context, page, pageSize int, status string) ([]domain.Session, int, error)
	Close(ctx context.Context, id string) error
	CountLiveByHost(ctx context.Context, hostID string) (int, error)
	// UpdateHighestBid records a new highest bid. The update is
	// conditional on amount being strictly greater than the stored
	// projection, so two racing bids cannot both win.
	UpdateHighestBid(ctx context.Context, roomID string, amount int64, bidderID string) error
}

// ChatRepository durably stores persisted chat events.
type ChatRepository interface {
	Insert(ctx context.Context, event *domain.ChatEvent) error
	ListRecent(ctx context.Context, roomID string, limit int) ([]domain.ChatEvent, error)
}

// WalletRepository serializes balance mutations at the store layer.
// Debit must be a single conditional step: it fails without mutating
// anything when the stored balance is below the amount, regardless of
// what any client-side check observed.
type WalletRepository interface {
	Get(ctx context.Context, userID string) (*domain.WalletBalance, error)
	Debit(ctx context.Context, userID string, amount int64) error
	Credit(ctx context.Context, userID string, amount int64) error
}

// OrderRepository creates orders with their items as one unit.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]domain.Order, error)
}

// ProductRepository reads the product catalog.
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context) ([]domain.Product, error)
}

// CartRepository persists cart lines.
type CartRepository interface {
	Add(ctx context.Context, item *domain.CartItem) error
	Get(ctx context.Context, itemID string) (*domain.CartItem, error)
	ListByUser(ctx context.Context, userID string) ([]domain.CartItem, error)
	UpdateQuantity(ctx context.Context, itemID string, quantity int) error
	Delete(ctx context.Context, itemIDs ...string) error
}
