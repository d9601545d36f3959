package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shoplive/liveroom/internal/domain"
	"github.com/shoplive/liveroom/pkg/log"
)

// GormWalletRepository implements WalletRepository using GORM.
//
// Debit runs as a single conditional UPDATE guarded by the stored
// balance, so concurrent debits from independent clients of the same
// user serialize at the database; the balance can never go negative
// no matter what the callers observed beforehand.
type GormWalletRepository struct {
	db *gorm.DB
}

// NewGormWalletRepository creates a new GORM-based wallet repository.
func NewGormWalletRepository(db *gorm.DB) *GormWalletRepository {
	return &GormWalletRepository{db: db}
}

// Get retrieves a user's wallet, creating an empty one on first use.
func (r *GormWalletRepository) Get(ctx context.Context, userID string) (*domain.WalletBalance, error) {
	var model domain.WalletModel
	result := r.db.WithContext(ctx).First(&model, "user_id = ?", userID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return &domain.WalletBalance{UserID: userID, Balance: 0}, nil
		}
		log.Ctx(ctx).Error().Err(result.Error).Str(log.FieldUserID, userID).Msg("failed to get wallet")
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// Debit subtracts amount from the wallet. Fails with
// ErrInsufficientFunds, mutating nothing, when the stored balance is
// below amount.
func (r *GormWalletRepository) Debit(ctx context.Context, userID string, amount int64) error {
	result := r.db.WithContext(ctx).Model(&domain.WalletModel{}).
		Where("user_id = ? AND balance >= ?", userID, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if result.Error != nil {
		log.Ctx(ctx).Error().Err(result.Error).Str(log.FieldUserID, userID).Msg("failed to debit wallet")
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInsufficientFunds
	}
	return nil
}

// Credit adds amount to the wallet, creating the row if missing.
func (r *GormWalletRepository) Credit(ctx context.Context, userID string, amount int64) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"balance": gorm.Expr("wallets.balance + ?", amount)}),
		}).
		Create(&domain.WalletModel{UserID: userID, Balance: amount}).Error
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str(log.FieldUserID, userID).Msg("failed to credit wallet")
	}
	return err
}
