package domain

import "time"

type User struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	ReferredBy string    `json:"referred_by,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Wallet holds a user's balance in whole VND. Balances never go negative;
// this engine only credits.
type Wallet struct {
	UserID     string    `json:"user_id"`
	BalanceVnd int64     `json:"balance_vnd"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type WalletTransactionType string

const (
	WalletTxDeposit        WalletTransactionType = "DEPOSIT"
	WalletTxManualDeposit  WalletTransactionType = "MANUAL_DEPOSIT"
	WalletTxReferralReward WalletTransactionType = "REFERRAL_REWARD"
)

// WalletTransaction is one entry of a user's wallet history. ReferenceID ties
// the entry back to the event that produced it (bank transaction key, manual
// deposit request id); (user_id, reference_id, type) is unique so follow-up
// credits stay idempotent.
type WalletTransaction struct {
	ID              string                `json:"id"`
	UserID          string                `json:"user_id"`
	Type            WalletTransactionType `json:"type"`
	AmountVnd       int64                 `json:"amount_vnd"`
	BalanceAfterVnd int64                 `json:"balance_after_vnd"`
	ReferenceID     string                `json:"reference_id"`
	Description     string                `json:"description,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
}
