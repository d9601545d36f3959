package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shoplive/liveroom/internal/domain"
	"github.com/shoplive/liveroom/pkg/log"
)

// GormOrderRepository implements OrderRepository using GORM.
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GORM-based order repository.
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Create persists the order and its items in one transaction; either
// all rows land or none do.
func (r *GormOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	l := log.Ctx(ctx)

	if order.ID == "" {
		order.ID = uuid.New().String()
	}

	model := domain.OrderToModel(order)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(model).Error
	})
	if err != nil {
		l.Error().Err(err).Str(log.FieldOrderID, order.ID).Msg("failed to create order in db")
		return err
	}

	order.CreatedAt = model.CreatedAt
	l.Debug().Str(log.FieldOrderID, order.ID).Int64(log.FieldAmount, order.TotalAmount).Msg("order created in db")
	return nil
}

// GetByID retrieves an order with its items.
func (r *GormOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	var model domain.OrderModel
	result := r.db.WithContext(ctx).Preload("Items").First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		log.Ctx(ctx).Error().Err(result.Error).Str(log.FieldOrderID, id).Msg("failed to get order")
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// ListByBuyer retrieves a buyer's orders, newest first.
func (r *GormOrderRepository) ListByBuyer(ctx context.Context, buyerID string) ([]domain.Order, error) {
	var models []domain.OrderModel
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str(log.FieldUserID, buyerID).Msg("failed to list orders")
		return nil, err
	}

	orders := make([]domain.Order, len(models))
	for i, model := range models {
		orders[i] = *model.ToDomain()
	}
	return orders, nil
}

// NewOrderID returns a fresh order identifier.
func NewOrderID() string {
	return uuid.New().String()
}
