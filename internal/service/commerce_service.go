package service

import (
	"context"
	"errors"
	"strings"

	"github.com/shoplive/liveroom/internal/domain"
	"github.com/shoplive/liveroom/internal/events"
	"github.com/shoplive/liveroom/internal/repository"
	"github.com/shoplive/liveroom/pkg/log"
)

var (
	ErrMissingAddress   = errors.New("shipping address is required")
	ErrEmptyCheckout    = errors.New("no items to check out")
	ErrProductNotFound  = errors.New("product not found")
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrInvalidOption    = errors.New("selected option is not offered for this product")
	ErrNotCartOwner     = errors.New("cart item belongs to another user")
	ErrOrderNotFound    = errors.New("order not found")
)

// commerceServiceImpl implements CommerceService.
//
// Checkout is debit-then-persist: if order persistence fails after the
// wallet debit, a compensating credit restores the balance before the
// failure is surfaced.
type commerceServiceImpl struct {
	products repository.ProductRepository
	carts    repository.CartRepository
	orders   repository.OrderRepository
	wallet   WalletService
	producer events.Producer
}

// NewCommerceService creates a new commerce service.
func NewCommerceService(
	products repository.ProductRepository,
	carts repository.CartRepository,
	orders repository.OrderRepository,
	wallet WalletService,
	producer events.Producer,
) CommerceService {
	return &commerceServiceImpl{
		products: products,
		carts:    carts,
		orders:   orders,
		wallet:   wallet,
		producer: producer,
	}
}

// AddToCart appends a cart line with the selected options. Stock is an
// external collaborator concern; no availability check happens here.
func (s *commerceServiceImpl) AddToCart(ctx context.Context, userID string, productID string, opts domain.ItemOptions) (*domain.CartItem, error) {
	item, err := s.buildLine(ctx, userID, productID, opts)
	if err != nil {
		return nil, err
	}

	if err := s.carts.Add(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Cart returns the user's current cart lines.
func (s *commerceServiceImpl) Cart(ctx context.Context, userID string) ([]domain.CartItem, error) {
	return s.carts.ListByUser(ctx, userID)
}

// UpdateQuantity applies a delta to a cart line. The result is clamped
// at a minimum of 1 by removal: a quantity that would reach zero or
// below removes the line instead of persisting it at zero. Returns nil
// when the line was removed.
func (s *commerceServiceImpl) UpdateQuantity(ctx context.Context, userID, itemID string, delta int) (*domain.CartItem, error) {
	item, err := s.carts.Get(ctx, itemID)
	if err != nil {
		if errors.Is(err, repository.ErrCartItemNotFound) {
			return nil, ErrCartItemNotFound
		}
		return nil, err
	}
	if item.UserID != userID {
		return nil, ErrNotCartOwner
	}

	next := item.Quantity + delta
	if next <= 0 {
		if err := s.carts.Delete(ctx, itemID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	if err := s.carts.UpdateQuantity(ctx, itemID, next); err != nil {
		return nil, err
	}
	item.Quantity = next
	return item, nil
}

// Checkout debits the wallet for the cart total and creates the order
// with its item snapshots as one unit. On success the checked-out
// lines, and only those, are cleared.
func (s *commerceServiceImpl) Checkout(ctx context.Context, userID string, itemIDs []string, shippingAddress string) (*domain.Order, error) {
	if strings.TrimSpace(shippingAddress) == "" {
		return nil, ErrMissingAddress
	}
	if len(itemIDs) == 0 {
		return nil, ErrEmptyCheckout
	}

	items := make([]domain.CartItem, 0, len(itemIDs))
	for _, id := range itemIDs {
		item, err := s.carts.Get(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrCartItemNotFound) {
				return nil, ErrCartItemNotFound
			}
			return nil, err
		}
		if item.UserID != userID {
			return nil, ErrNotCartOwner
		}
		items = append(items, *item)
	}

	order, err := s.settle(ctx, userID, items, shippingAddress)
	if err != nil {
		return nil, err
	}

	if err := s.carts.Delete(ctx, itemIDs...); err != nil {
		// The order exists and is paid; a stale cart line is an
		// annoyance, not a correctness failure.
		log.Ctx(ctx).Warn().Err(err).Str(log.FieldOrderID, order.ID).Msg("failed to clear checked-out cart items")
	}

	return order, nil
}

// BuyNow is checkout applied to a single synthesized line, bypassing
// the persistent cart.
func (s *commerceServiceImpl) BuyNow(ctx context.Context, userID, productID string, opts domain.ItemOptions, shippingAddress string) (*domain.Order, error) {
	if strings.TrimSpace(shippingAddress) == "" {
		return nil, ErrMissingAddress
	}

	line, err := s.buildLine(ctx, userID, productID, opts)
	if err != nil {
		return nil, err
	}

	return s.settle(ctx, userID, []domain.CartItem{*line}, shippingAddress)
}

// Orders returns the user's order history, newest first.
func (s *commerceServiceImpl) Orders(ctx context.Context, userID string) ([]domain.Order, error) {
	return s.orders.ListByBuyer(ctx, userID)
}

// Order returns one of the user's orders with its items. Another
// buyer's order reads as not found.
func (s *commerceServiceImpl) Order(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.BuyerID != userID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// buildLine validates the product and options and synthesizes a cart
// line carrying the product snapshot.
func (s *commerceServiceImpl) buildLine(ctx context.Context, userID, productID string, opts domain.ItemOptions) (*domain.CartItem, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	if opts.Quantity < 1 {
		opts.Quantity = 1
	}
	if opts.Color != "" && !product.HasColor(opts.Color) {
		return nil, ErrInvalidOption
	}
	if opts.Size != "" && !product.HasSize(opts.Size) {
		return nil, ErrInvalidOption
	}

	return &domain.CartItem{
		UserID:       userID,
		ProductID:    product.ID,
		ProductName:  product.Name,
		ProductImage: product.ImageRef,
		UnitPrice:    product.UnitPrice,
		Quantity:     opts.Quantity,
		Color:        opts.Color,
		Size:         opts.Size,
	}, nil
}

// settle runs the payment pipeline: total, sufficiency, debit, order.
// Total is computed here, at checkout time, and frozen on the order.
func (s *commerceServiceImpl) settle(ctx context.Context, userID string, items []domain.CartItem, shippingAddress string) (*domain.Order, error) {
	l := log.Ctx(ctx)

	total := domain.CartTotal(items)

	// The client-side sufficiency check gives the fast rejection path;
	// the store-level conditional debit below is what actually guards
	// the balance.
	balance, err := s.wallet.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}
	if balance < total {
		return nil, ErrInsufficientFunds
	}

	if err := s.wallet.Debit(ctx, userID, total); err != nil {
		return nil, err
	}

	orderItems := make([]domain.OrderItem, len(items))
	for i, item := range items {
		orderItems[i] = domain.OrderItem{
			ProductID:    item.ProductID,
			ProductName:  item.ProductName,
			ProductImage: item.ProductImage,
			Quantity:     item.Quantity,
			Price:        item.UnitPrice,
			Color:        item.Color,
			Size:         item.Size,
		}
	}

	order := &domain.Order{
		BuyerID:         userID,
		Items:           orderItems,
		TotalAmount:     total,
		Status:          domain.OrderStatusShipping,
		ShippingAddress: shippingAddress,
	}

	if err := s.orders.Create(ctx, order); err != nil {
		// Compensating credit: the buyer paid for an order that was
		// never recorded, so give the funds back before failing.
		if creditErr := s.wallet.Credit(ctx, userID, total); creditErr != nil {
			l.Error().Err(creditErr).
				Str(log.FieldUserID, userID).
				Int64(log.FieldAmount, total).
				Msg("compensating credit failed after order persist failure")
		}
		return nil, err
	}

	if err := s.producer.ProduceOrderCreated(ctx, order); err != nil {
		l.Warn().Err(err).Str(log.FieldOrderID, order.ID).Msg("failed to publish order-created event")
	}

	l.Info().
		Str(log.FieldUserID, userID).
		Str(log.FieldOrderID, order.ID).
		Int64(log.FieldAmount, total).
		Msg("checkout completed")
	return order, nil
}
