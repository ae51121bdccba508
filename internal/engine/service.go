package engine

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/go-playground/validator/v10"

	"github.com/digimart/depositengine/internal/bank"
	"github.com/digimart/depositengine/internal/bonus"
	"github.com/digimart/depositengine/internal/domain"
	"github.com/digimart/depositengine/internal/matching"
	"github.com/digimart/depositengine/internal/repository"
)

// Notifier receives successful credits. Implementations must be best-effort:
// nothing they do may propagate back into the credit pipeline.
type Notifier interface {
	NotifyCredited(pt domain.ProcessedTransaction, bankName string)
}

// CycleResult summarises one poll cycle for one bank.
type CycleResult struct {
	BankConfigID string `json:"bank_config_id"`
	BankName     string `json:"bank_name"`
	Fetched      int    `json:"fetched"`
	Skipped      int    `json:"skipped"`
	FilteredOut  int    `json:"filtered_out"`
	Duplicates   int    `json:"duplicates"`
	Credited     int    `json:"credited"`
	Unmatched    int    `json:"unmatched"`
	Failed       int    `json:"failed"`
}

// Service runs deposit reconciliation cycles: fetch a bank's transactions,
// keep the incoming transfers, match deposit codes and credit wallets
// exactly once.
type Service struct {
	client    *bank.Client
	matcher   *matching.Matcher
	settings  *repository.SettingsRepo
	users     *repository.UserRepo
	wallets   *repository.WalletRepo
	processed *repository.ProcessedRepo
	notifier  Notifier
	validate  *validator.Validate
}

func NewService(
	client *bank.Client,
	matcher *matching.Matcher,
	settings *repository.SettingsRepo,
	users *repository.UserRepo,
	wallets *repository.WalletRepo,
	processed *repository.ProcessedRepo,
	notifier Notifier,
) *Service {
	return &Service{
		client:    client,
		matcher:   matcher,
		settings:  settings,
		users:     users,
		wallets:   wallets,
		processed: processed,
		notifier:  notifier,
		validate:  validator.New(),
	}
}

// ProcessBank runs one poll cycle for one bank config. Transport and mapping
// errors abandon the whole cycle (the next tick is the retry); any single
// transaction's failure only skips that transaction. Cancellation abandons
// the remainder of the batch without reserving any dedup key, so nothing is
// lost.
func (s *Service) ProcessBank(ctx context.Context, cfg *domain.BankAPIConfig) (*CycleResult, error) {
	if err := s.validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config %s failed validation: %w", cfg.ID, err)
	}

	doc, err := s.client.Fetch(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", cfg.Name, err)
	}

	ext, err := bank.Extract(cfg, doc)
	if err != nil {
		// Path not resolving is almost always an admin misconfiguration.
		return nil, fmt.Errorf("extract %s: %w", cfg.Name, err)
	}

	tiers, err := s.settings.LoadBonusTiers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load bonus tiers: %w", err)
	}
	refSettings, err := s.settings.LoadReferralSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load referral settings: %w", err)
	}

	result := &CycleResult{
		BankConfigID: cfg.ID,
		BankName:     cfg.Name,
		Fetched:      len(ext.Transactions),
		Skipped:      ext.Skipped,
	}

	for i := range ext.Transactions {
		if ctx.Err() != nil {
			log.Printf("[engine] %s: cycle cancelled after %d/%d transactions",
				cfg.Name, i, len(ext.Transactions))
			break
		}
		s.processOne(ctx, cfg, &ext.Transactions[i], tiers, refSettings, result)
	}

	log.Printf("[engine] %s: fetched=%d filtered_out=%d duplicates=%d credited=%d unmatched=%d failed=%d",
		cfg.Name, result.Fetched, result.FilteredOut, result.Duplicates,
		result.Credited, result.Unmatched, result.Failed)

	return result, nil
}

func (s *Service) processOne(
	ctx context.Context,
	cfg *domain.BankAPIConfig,
	t *domain.Transaction,
	tiers []domain.BonusTier,
	refSettings domain.ReferralSettings,
	result *CycleResult,
) {
	isCredit, err := bank.IsCredit(cfg.Filters, t.Raw)
	if err != nil {
		// Fail closed: a transaction we cannot classify is not credited.
		log.Printf("[engine] WARNING: %s tx %s: %v, treating as not credit",
			cfg.Name, t.TransactionID, err)
	}
	if !isCredit {
		result.FilteredOut++
		return
	}

	// Cheap precheck; the authoritative dedup is the ledger insert below.
	seen, err := s.processed.Exists(ctx, t.BankConfigID, t.TransactionID)
	if err != nil {
		log.Printf("[engine] %s tx %s: dedup precheck failed: %v", cfg.Name, t.TransactionID, err)
		result.Failed++
		return
	}
	if seen {
		result.Duplicates++
		return
	}

	userID, err := s.matcher.Match(ctx, t.Description)
	if err != nil {
		if errors.Is(err, matching.ErrNoDepositCode) {
			inserted, recErr := s.wallets.RecordUnmatched(ctx, *t)
			if recErr != nil {
				log.Printf("[engine] %s tx %s: record unmatched failed: %v", cfg.Name, t.TransactionID, recErr)
				result.Failed++
				return
			}
			if !inserted {
				result.Duplicates++
				return
			}
			log.Printf("[engine] %s tx %s: no deposit code in %q, queued for manual review",
				cfg.Name, t.TransactionID, t.Description)
			result.Unmatched++
			return
		}
		log.Printf("[engine] %s tx %s: code matching failed: %v", cfg.Name, t.TransactionID, err)
		result.Failed++
		return
	}

	bonusVnd, _ := bonus.Calculate(t.AmountVnd, tiers)

	referrerID, err := s.users.ReferrerOf(ctx, userID)
	if err != nil {
		log.Printf("[engine] %s tx %s: referrer lookup failed: %v", cfg.Name, t.TransactionID, err)
		result.Failed++
		return
	}
	var commission int64
	if referrerID != "" {
		commission = bonus.Commission(t.AmountVnd, refSettings)
	}

	pt, err := s.wallets.CreditDeposit(ctx, repository.DepositCredit{
		Transaction:   *t,
		UserID:        userID,
		BonusVnd:      bonusVnd,
		ReferrerID:    referrerID,
		CommissionVnd: commission,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateTransaction) {
			result.Duplicates++
			return
		}
		// Nothing committed, no dedup key reserved: the next cycle retries.
		log.Printf("[engine] %s tx %s: credit failed: %v", cfg.Name, t.TransactionID, err)
		result.Failed++
		return
	}

	log.Printf("[engine] %s tx %s: credited %d VND to %s (bonus=%d, commission=%d)",
		cfg.Name, t.TransactionID, pt.CreditedAmountVnd, userID, bonusVnd, commission)
	result.Credited++

	if s.notifier != nil {
		s.notifier.NotifyCredited(*pt, cfg.Name)
	}
}

// ProcessAllBanks runs one cycle for every enabled config, sequentially. The
// manual trigger endpoint uses this; scheduled polling goes through Poller,
// which runs banks in parallel.
func (s *Service) ProcessAllBanks(ctx context.Context) []CycleResult {
	configs, err := s.settings.LoadBankConfigs(ctx)
	if err != nil {
		log.Printf("[engine] load bank configs: %v", err)
		return nil
	}

	var results []CycleResult
	for i := range configs {
		cfg := configs[i]
		if !cfg.Enabled {
			continue
		}
		res, err := s.ProcessBank(ctx, &cfg)
		if err != nil {
			log.Printf("[engine] %s: cycle abandoned: %v", cfg.Name, err)
			results = append(results, CycleResult{BankConfigID: cfg.ID, BankName: cfg.Name})
			continue
		}
		results = append(results, *res)
	}
	return results
}
