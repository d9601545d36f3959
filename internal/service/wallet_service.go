package service

import (
	"context"
	"errors"

	"github.com/shoplive/liveroom/internal/domain"
	"github.com/shoplive/liveroom/internal/repository"
	"github.com/shoplive/liveroom/pkg/log"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInvalidTopUp      = errors.New("top-up amount is not an offered denomination")
)

// walletServiceImpl implements WalletService over the wallet store.
// The store serializes the check-then-debit, so two clients of the
// same user racing a checkout cannot overspend: whichever debit lands
// second fails against the already-reduced balance.
type walletServiceImpl struct {
	repo repository.WalletRepository
}

// NewWalletService creates a new wallet service.
func NewWalletService(repo repository.WalletRepository) WalletService {
	return &walletServiceImpl{repo: repo}
}

// Balance returns the user's current spendable balance.
func (s *walletServiceImpl) Balance(ctx context.Context, userID string) (int64, error) {
	wallet, err := s.repo.Get(ctx, userID)
	if err != nil {
		return 0, err
	}
	return wallet.Balance, nil
}

// Debit subtracts amount, rejecting without mutation when the stored
// balance is insufficient.
func (s *walletServiceImpl) Debit(ctx context.Context, userID string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if err := s.repo.Debit(ctx, userID, amount); err != nil {
		if errors.Is(err, repository.ErrInsufficientFunds) {
			return ErrInsufficientFunds
		}
		return err
	}
	log.Ctx(ctx).Debug().Str(log.FieldUserID, userID).Int64(log.FieldAmount, amount).Msg("wallet debited")
	return nil
}

// Credit adds amount to the balance.
func (s *walletServiceImpl) Credit(ctx context.Context, userID string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return s.repo.Credit(ctx, userID, amount)
}

// TopUp credits one of the fixed denominations and returns the new
// balance.
func (s *walletServiceImpl) TopUp(ctx context.Context, userID string, amount int64) (int64, error) {
	if !domain.ValidTopUp(amount) {
		return 0, ErrInvalidTopUp
	}
	if err := s.repo.Credit(ctx, userID, amount); err != nil {
		return 0, err
	}

	wallet, err := s.repo.Get(ctx, userID)
	if err != nil {
		return 0, err
	}
	log.Ctx(ctx).Info().Str(log.FieldUserID, userID).Int64(log.FieldAmount, amount).Msg("wallet topped up")
	return wallet.Balance, nil
}
