package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shoplive/liveroom/internal/domain"
	"github.com/shoplive/liveroom/pkg/log"
)

// GormCartRepository implements CartRepository using GORM.
type GormCartRepository struct {
	db *gorm.DB
}

// NewGormCartRepository creates a new GORM-based cart repository.
func NewGormCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

// Add appends a cart line.
func (r *GormCartRepository) Add(ctx context.Context, item *domain.CartItem) error {
	item.ID = uuid.New().String()

	model := domain.CartItemToModel(item)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		log.Ctx(ctx).Error().Err(err).Str(log.FieldUserID, item.UserID).Msg("failed to add cart item")
		return err
	}
	item.AddedAt = model.CreatedAt
	return nil
}

// Get retrieves a cart line by ID.
func (r *GormCartRepository) Get(ctx context.Context, itemID string) (*domain.CartItem, error) {
	var model domain.CartItemModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", itemID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrCartItemNotFound
		}
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// ListByUser retrieves a user's cart lines, oldest first.
func (r *GormCartRepository) ListByUser(ctx context.Context, userID string) ([]domain.CartItem, error) {
	var models []domain.CartItemModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str(log.FieldUserID, userID).Msg("failed to list cart items")
		return nil, err
	}

	items := make([]domain.CartItem, len(models))
	for i, model := range models {
		items[i] = *model.ToDomain()
	}
	return items, nil
}

// UpdateQuantity sets the quantity of a cart line. Quantity must be
// >= 1; removal of a line is Delete, not a zero quantity.
func (r *GormCartRepository) UpdateQuantity(ctx context.Context, itemID string, quantity int) error {
	result := r.db.WithContext(ctx).Model(&domain.CartItemModel{}).
		Where("id = ?", itemID).
		Update("quantity", quantity)
	if result.Error != nil {
		log.Ctx(ctx).Error().Err(result.Error).Msg("failed to update cart quantity")
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

// Delete removes cart lines by ID.
func (r *GormCartRepository) Delete(ctx context.Context, itemIDs ...string) error {
	if len(itemIDs) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Delete(&domain.CartItemModel{}, "id IN ?", itemIDs).Error
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to delete cart items")
	}
	return err
}
