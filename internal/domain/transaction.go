package domain

import "time"

// Transaction is a canonical bank transaction derived from one raw element of
// a bank API response. It exists only for the duration of a poll cycle; only
// the ProcessedTransaction row it produces is persisted.
type Transaction struct {
	BankConfigID    string
	TransactionID   string
	AmountVnd       int64
	Description     string
	TransactionDate time.Time

	// Raw is the original JSON element, kept for credit-filter evaluation.
	Raw map[string]any
}

// Outcome classifies a ledger row.
type Outcome string

const (
	OutcomeCredited  Outcome = "CREDITED"
	OutcomeUnmatched Outcome = "UNMATCHED"
)

// ProcessedTransaction is one row of the append-only ledger. The
// (BankConfigID, TransactionID) pair is unique; inserting it is what makes
// crediting exactly-once.
type ProcessedTransaction struct {
	BankConfigID          string    `json:"bank_config_id"`
	TransactionID         string    `json:"transaction_id"`
	MatchedUserID         string    `json:"matched_user_id,omitempty"`
	CreditedAmountVnd     int64     `json:"credited_amount_vnd"`
	BonusAmountVnd        int64     `json:"bonus_amount_vnd"`
	ReferralCommissionVnd int64     `json:"referral_commission_vnd"`
	Outcome               Outcome   `json:"outcome"`
	Description           string    `json:"description"`
	TransactionDate       time.Time `json:"transaction_date"`
	ProcessedAt           time.Time `json:"processed_at"`
}
