package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/digimart/depositengine/internal/bank"
	"github.com/digimart/depositengine/internal/domain"
	"github.com/digimart/depositengine/internal/matching"
)

// DrySample is one extracted transaction as the admin "test connection"
// feature reports it.
type DrySample struct {
	TransactionID   string `json:"transaction_id"`
	AmountVnd       int64  `json:"amount_vnd"`
	Description     string `json:"description"`
	TransactionDate string `json:"transaction_date"`
	IsCredit        bool   `json:"is_credit"`
	MatchedUserID   string `json:"matched_user_id,omitempty"`
}

// DryRunResult is returned by the admin test-connection endpoint.
type DryRunResult struct {
	Count   int         `json:"count"`
	Skipped int         `json:"skipped"`
	Samples []DrySample `json:"samples"`
}

// DryRun exercises fetch, extraction, the credit filter and code matching for
// a candidate config and returns up to limit samples. It is strictly
// side-effect free: it never touches the dedup ledger or any wallet.
func (s *Service) DryRun(ctx context.Context, cfg *domain.BankAPIConfig, limit int) (*DryRunResult, error) {
	if err := s.validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config failed validation: %w", err)
	}
	if limit <= 0 {
		limit = 3
	}

	doc, err := s.client.Fetch(ctx, cfg)
	if err != nil {
		return nil, err
	}
	ext, err := bank.Extract(cfg, doc)
	if err != nil {
		return nil, err
	}

	result := &DryRunResult{
		Count:   len(ext.Transactions),
		Skipped: ext.Skipped,
	}

	for i := range ext.Transactions {
		if len(result.Samples) >= limit {
			break
		}
		t := &ext.Transactions[i]

		isCredit, _ := bank.IsCredit(cfg.Filters, t.Raw)

		sample := DrySample{
			TransactionID:   t.TransactionID,
			AmountVnd:       t.AmountVnd,
			Description:     t.Description,
			TransactionDate: t.TransactionDate.Format("2006-01-02 15:04:05"),
			IsCredit:        isCredit,
		}
		if isCredit {
			userID, err := s.matcher.Match(ctx, t.Description)
			if err != nil && !errors.Is(err, matching.ErrNoDepositCode) {
				return nil, fmt.Errorf("match sample: %w", err)
			}
			sample.MatchedUserID = userID
		}
		result.Samples = append(result.Samples, sample)
	}

	return result, nil
}
