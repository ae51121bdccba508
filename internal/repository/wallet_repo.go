package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/digimart/depositengine/internal/domain"
)

var (
	// ErrDuplicateTransaction means the (bankConfigID, transactionID) key is
	// already in the processed ledger. Expected on every poll until the bank
	// API stops returning the transaction; not an error condition.
	ErrDuplicateTransaction = errors.New("bank transaction already processed")

	// ErrDuplicateReference means a wallet credit with the same reference id
	// was already applied.
	ErrDuplicateReference = errors.New("wallet credit reference already applied")
)

type WalletRepo struct {
	db *sql.DB
}

func NewWalletRepo(db *sql.DB) *WalletRepo {
	return &WalletRepo{db: db}
}

// DepositCredit is everything needed to settle one matched bank transaction.
type DepositCredit struct {
	Transaction   domain.Transaction
	UserID        string
	BonusVnd      int64
	ReferrerID    string
	CommissionVnd int64
}

// CreditDeposit applies a matched, credit-eligible bank transaction in a
// single SQL transaction: it reserves the dedup key by inserting the ledger
// row, credits the depositor with amount+bonus, credits the referrer's
// commission when one applies, and appends the wallet history rows. A crash
// commits all of it or none of it; a concurrent cycle that raced us gets
// ErrDuplicateTransaction and changes nothing.
func (r *WalletRepo) CreditDeposit(ctx context.Context, dc DepositCredit) (*domain.ProcessedTransaction, error) {
	t := dc.Transaction
	now := time.Now()

	row := &domain.ProcessedTransaction{
		BankConfigID:          t.BankConfigID,
		TransactionID:         t.TransactionID,
		MatchedUserID:         dc.UserID,
		CreditedAmountVnd:     t.AmountVnd + dc.BonusVnd,
		BonusAmountVnd:        dc.BonusVnd,
		ReferralCommissionVnd: dc.CommissionVnd,
		Outcome:               domain.OutcomeCredited,
		Description:           t.Description,
		TransactionDate:       t.TransactionDate,
		ProcessedAt:           now,
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	inserted, err := insertProcessed(ctx, tx, row)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return nil, ErrDuplicateTransaction
	}

	reference := ledgerReference(t.BankConfigID, t.TransactionID)

	if _, err := creditBalance(ctx, tx, creditEntry{
		userID:      dc.UserID,
		txType:      domain.WalletTxDeposit,
		amountVnd:   row.CreditedAmountVnd,
		referenceID: reference,
		description: t.Description,
		now:         now,
	}); err != nil {
		return nil, err
	}

	if dc.CommissionVnd > 0 && dc.ReferrerID != "" {
		if _, err := creditBalance(ctx, tx, creditEntry{
			userID:      dc.ReferrerID,
			txType:      domain.WalletTxReferralReward,
			amountVnd:   dc.CommissionVnd,
			referenceID: reference + ":referral",
			description: fmt.Sprintf("referral commission for deposit by %s", dc.UserID),
			now:         now,
		}); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return row, nil
}

// RecordUnmatched writes the ledger row for a transaction whose description
// carried no resolvable deposit code. No balance changes. Returns false when
// the key was already recorded (an unmatched transfer is observed on every
// poll too).
func (r *WalletRepo) RecordUnmatched(ctx context.Context, t domain.Transaction) (bool, error) {
	row := &domain.ProcessedTransaction{
		BankConfigID:    t.BankConfigID,
		TransactionID:   t.TransactionID,
		Outcome:         domain.OutcomeUnmatched,
		Description:     t.Description,
		TransactionDate: t.TransactionDate,
		ProcessedAt:     time.Now(),
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	inserted, err := insertProcessed(ctx, tx, row)
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

// CreditWallet is the shared credit entry point used by the manual-approval
// deposit flow. Idempotent per (userID, referenceID): re-submitting the same
// approval changes nothing and reports ErrDuplicateReference.
func (r *WalletRepo) CreditWallet(ctx context.Context, userID string, amountVnd, bonusVnd int64, referenceID string) (*domain.WalletTransaction, error) {
	if amountVnd <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	entry, err := creditBalance(ctx, tx, creditEntry{
		userID:      userID,
		txType:      domain.WalletTxManualDeposit,
		amountVnd:   amountVnd + bonusVnd,
		referenceID: referenceID,
		now:         time.Now(),
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return entry, nil
}

func (r *WalletRepo) Balance(ctx context.Context, userID string) (*domain.Wallet, error) {
	w := &domain.Wallet{UserID: userID}
	var updatedAt string
	err := r.db.QueryRowContext(ctx,
		"SELECT balance_vnd, updated_at FROM wallets WHERE user_id = ?", userID,
	).Scan(&w.BalanceVnd, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return w, nil
		}
		return nil, fmt.Errorf("read balance: %w", err)
	}
	w.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return w, nil
}

func (r *WalletRepo) History(ctx context.Context, userID string, limit int) ([]domain.WalletTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, type, amount_vnd, balance_after_vnd, reference_id, description, created_at
		FROM wallet_transactions
		WHERE user_id = ?
		ORDER BY created_at DESC, id
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var history []domain.WalletTransaction
	for rows.Next() {
		var wt domain.WalletTransaction
		var txType, createdAt string
		var description sql.NullString
		if err := rows.Scan(&wt.ID, &wt.UserID, &txType, &wt.AmountVnd,
			&wt.BalanceAfterVnd, &wt.ReferenceID, &description, &createdAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		wt.Type = domain.WalletTransactionType(txType)
		wt.Description = description.String
		wt.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		history = append(history, wt)
	}
	return history, rows.Err()
}

// --- helpers ---

func ledgerReference(bankConfigID, transactionID string) string {
	return bankConfigID + ":" + transactionID
}

// insertProcessed reserves the dedup key inside the caller's transaction.
// INSERT OR IGNORE + RowsAffected tells duplicate apart from error without
// poking at driver-specific constraint errors.
func insertProcessed(ctx context.Context, tx *sql.Tx, row *domain.ProcessedTransaction) (bool, error) {
	var matchedUser any
	if row.MatchedUserID != "" {
		matchedUser = row.MatchedUserID
	}
	res, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO processed_transactions
		(bank_config_id, transaction_id, matched_user_id, credited_amount_vnd,
		 bonus_amount_vnd, referral_commission_vnd, outcome, description,
		 transaction_date, processed_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		row.BankConfigID, row.TransactionID, matchedUser, row.CreditedAmountVnd,
		row.BonusAmountVnd, row.ReferralCommissionVnd, string(row.Outcome),
		row.Description, row.TransactionDate.Format(time.RFC3339),
		row.ProcessedAt.Format(time.RFC3339),
	)
	if err != nil {
		return false, fmt.Errorf("insert processed row: %w", err)
	}
	ra, _ := res.RowsAffected()
	return ra > 0, nil
}

type creditEntry struct {
	userID      string
	txType      domain.WalletTransactionType
	amountVnd   int64
	referenceID string
	description string
	now         time.Time
}

// creditBalance upserts the wallet balance and appends the history row inside
// the caller's transaction. A history row with the same (user, reference,
// type) already present means this credit was applied before: the whole
// transaction must roll back, which the ErrDuplicateReference return forces.
func creditBalance(ctx context.Context, tx *sql.Tx, e creditEntry) (*domain.WalletTransaction, error) {
	nowStr := e.now.Format(time.RFC3339)

	_, err := tx.ExecContext(ctx, `
		INSERT INTO wallets (user_id, balance_vnd, updated_at) VALUES (?,?,?)
		ON CONFLICT(user_id) DO UPDATE SET
			balance_vnd = balance_vnd + excluded.balance_vnd,
			updated_at = excluded.updated_at
	`, e.userID, e.amountVnd, nowStr)
	if err != nil {
		return nil, fmt.Errorf("credit wallet %s: %w", e.userID, err)
	}

	var balanceAfter int64
	if err := tx.QueryRowContext(ctx,
		"SELECT balance_vnd FROM wallets WHERE user_id = ?", e.userID,
	).Scan(&balanceAfter); err != nil {
		return nil, fmt.Errorf("read balance after credit: %w", err)
	}

	entry := &domain.WalletTransaction{
		ID:              uuid.NewString(),
		UserID:          e.userID,
		Type:            e.txType,
		AmountVnd:       e.amountVnd,
		BalanceAfterVnd: balanceAfter,
		ReferenceID:     e.referenceID,
		Description:     e.description,
		CreatedAt:       e.now,
	}

	res, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO wallet_transactions
		(id, user_id, type, amount_vnd, balance_after_vnd, reference_id, description, created_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		entry.ID, entry.UserID, string(entry.Type), entry.AmountVnd,
		entry.BalanceAfterVnd, entry.ReferenceID, entry.Description, nowStr,
	)
	if err != nil {
		return nil, fmt.Errorf("insert wallet transaction: %w", err)
	}
	ra, _ := res.RowsAffected()
	if ra == 0 {
		return nil, ErrDuplicateReference
	}
	return entry, nil
}
