package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/digimart/depositengine/internal/domain"
)

// ProcessedRepo reads the exactly-once ledger. All writes to the ledger go
// through WalletRepo, where they are tied to balance mutations.
type ProcessedRepo struct {
	db *sql.DB
}

func NewProcessedRepo(db *sql.DB) *ProcessedRepo {
	return &ProcessedRepo{db: db}
}

// Exists is a cheap precheck so a cycle can skip matching work on
// transactions it has already settled. The authoritative dedup is the ledger
// insert inside WalletRepo, never this read.
func (r *ProcessedRepo) Exists(ctx context.Context, bankConfigID, transactionID string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM processed_transactions WHERE bank_config_id = ? AND transaction_id = ?",
		bankConfigID, transactionID,
	).Scan(&count)
	return count > 0, err
}

type ProcessedFilter struct {
	BankConfigID string
	Outcome      string
	From         *time.Time
	To           *time.Time
	Page         int
	Limit        int
}

func (r *ProcessedRepo) List(ctx context.Context, f ProcessedFilter) ([]domain.ProcessedTransaction, int, error) {
	where, args := buildProcessedWhere(f)

	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM processed_transactions"+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count: %w", err)
	}

	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	offset := (f.Page - 1) * f.Limit

	query := `SELECT bank_config_id, transaction_id, matched_user_id, credited_amount_vnd,
		bonus_amount_vnd, referral_commission_vnd, outcome, description,
		transaction_date, processed_at
		FROM processed_transactions` + where + " ORDER BY processed_at DESC LIMIT ? OFFSET ?"
	args = append(args, f.Limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var result []domain.ProcessedTransaction
	for rows.Next() {
		pt, err := scanProcessed(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan: %w", err)
		}
		result = append(result, *pt)
	}
	return result, total, rows.Err()
}

// ListUnmatched returns the manual-review queue: transfers observed and
// recorded but never tied to a user.
func (r *ProcessedRepo) ListUnmatched(ctx context.Context, page, limit int) ([]domain.ProcessedTransaction, int, error) {
	return r.List(ctx, ProcessedFilter{
		Outcome: string(domain.OutcomeUnmatched),
		Page:    page,
		Limit:   limit,
	})
}

// LedgerStats holds aggregate reconciliation statistics for the dashboard.
type LedgerStats struct {
	Total         int   `json:"total"`
	Credited      int   `json:"credited"`
	Unmatched     int   `json:"unmatched"`
	CreditedVnd   int64 `json:"credited_vnd"`
	BonusVnd      int64 `json:"bonus_vnd"`
	CommissionVnd int64 `json:"commission_vnd"`
}

func (r *ProcessedRepo) GetStats(ctx context.Context) (*LedgerStats, error) {
	s := &LedgerStats{}
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN outcome='CREDITED' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN outcome='UNMATCHED' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(credited_amount_vnd), 0),
			COALESCE(SUM(bonus_amount_vnd), 0),
			COALESCE(SUM(referral_commission_vnd), 0)
		FROM processed_transactions
	`).Scan(&s.Total, &s.Credited, &s.Unmatched, &s.CreditedVnd, &s.BonusVnd, &s.CommissionVnd)
	return s, err
}

type BankVolume struct {
	BankConfigID string `json:"bank_config_id"`
	Credited     int    `json:"credited"`
	Unmatched    int    `json:"unmatched"`
	CreditedVnd  int64  `json:"credited_vnd"`
}

func (r *ProcessedRepo) GetVolumeByBank(ctx context.Context) ([]BankVolume, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT bank_config_id,
			COALESCE(SUM(CASE WHEN outcome='CREDITED' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN outcome='UNMATCHED' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(credited_amount_vnd), 0)
		FROM processed_transactions GROUP BY bank_config_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []BankVolume
	for rows.Next() {
		var bv BankVolume
		if err := rows.Scan(&bv.BankConfigID, &bv.Credited, &bv.Unmatched, &bv.CreditedVnd); err != nil {
			return nil, err
		}
		result = append(result, bv)
	}
	return result, rows.Err()
}

// --- helpers ---

func buildProcessedWhere(f ProcessedFilter) (string, []any) {
	var clauses []string
	var args []any

	if f.BankConfigID != "" {
		clauses = append(clauses, "bank_config_id = ?")
		args = append(args, f.BankConfigID)
	}
	if f.Outcome != "" {
		clauses = append(clauses, "outcome = ?")
		args = append(args, f.Outcome)
	}
	if f.From != nil {
		clauses = append(clauses, "processed_at >= ?")
		args = append(args, f.From.Format(time.RFC3339))
	}
	if f.To != nil {
		clauses = append(clauses, "processed_at <= ?")
		args = append(args, f.To.Format(time.RFC3339))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanProcessed(rows *sql.Rows) (*domain.ProcessedTransaction, error) {
	var pt domain.ProcessedTransaction
	var outcome, txDate, processedAt string
	var matchedUser, description sql.NullString

	err := rows.Scan(
		&pt.BankConfigID, &pt.TransactionID, &matchedUser, &pt.CreditedAmountVnd,
		&pt.BonusAmountVnd, &pt.ReferralCommissionVnd, &outcome, &description,
		&txDate, &processedAt,
	)
	if err != nil {
		return nil, err
	}

	pt.Outcome = domain.Outcome(outcome)
	pt.MatchedUserID = matchedUser.String
	pt.Description = description.String
	pt.TransactionDate, _ = time.Parse(time.RFC3339, txDate)
	pt.ProcessedAt, _ = time.Parse(time.RFC3339, processedAt)
	return &pt, nil
}
