package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/shoplive/liveroom/internal/domain"
	"github.com/shoplive/liveroom/pkg/log"
)

// GormProductRepository implements ProductRepository using GORM.
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GORM-based product repository.
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// GetByID retrieves a product by ID.
func (r *GormProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	var model domain.ProductModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		log.Ctx(ctx).Error().Err(result.Error).Str("product_id", id).Msg("failed to get product")
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// List retrieves the product catalog.
func (r *GormProductRepository) List(ctx context.Context) ([]domain.Product, error) {
	var models []domain.ProductModel
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&models).Error; err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to list products")
		return nil, err
	}

	products := make([]domain.Product, len(models))
	for i, model := range models {
		products[i] = *model.ToDomain()
	}
	return products, nil
}
