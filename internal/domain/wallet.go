package domain

import "time"

// WalletBalance is a user's spendable balance. Never negative.
type WalletBalance struct {
	UserID    string    `json:"user_id"`
	Balance   int64     `json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TopUpDenominations is the fixed set of purchasable top-up amounts.
var TopUpDenominations = []int64{100, 300, 500, 1000}

// ValidTopUp reports whether amount is one of the fixed denominations.
func ValidTopUp(amount int64) bool {
	for _, d := range TopUpDenominations {
		if d == amount {
			return true
		}
	}
	return false
}
