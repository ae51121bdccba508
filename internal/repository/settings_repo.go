package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/digimart/depositengine/internal/domain"
)

// Settings keys. Values are JSON blobs written by the admin panel; this core
// only reads them (Save exists for seeding and tests).
const (
	KeyBankConfigs      = "bank_api_configs"
	KeyBonusTiers       = "deposit_bonus_tiers"
	KeyReferralSettings = "referral_settings"
	KeyWebhook          = "notification_webhook"
)

type SettingsRepo struct {
	db *sql.DB
}

func NewSettingsRepo(db *sql.DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

func (r *SettingsRepo) get(ctx context.Context, key string, out any) (bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("read setting %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(value), out); err != nil {
		return false, fmt.Errorf("decode setting %s: %w", key, err)
	}
	return true, nil
}

func (r *SettingsRepo) Set(ctx context.Context, key string, v any) error {
	value, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode setting %s: %w", key, err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?,?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, string(value))
	if err != nil {
		return fmt.Errorf("write setting %s: %w", key, err)
	}
	return nil
}

// LoadBankConfigs returns all configured bank APIs. A missing blob means no
// banks are configured yet.
func (r *SettingsRepo) LoadBankConfigs(ctx context.Context) ([]domain.BankAPIConfig, error) {
	var configs []domain.BankAPIConfig
	if _, err := r.get(ctx, KeyBankConfigs, &configs); err != nil {
		return nil, err
	}
	return configs, nil
}

// LoadBonusTiers returns the admin-defined deposit bonus tiers sorted
// ascending by minAmount, the order the bonus calculator expects.
func (r *SettingsRepo) LoadBonusTiers(ctx context.Context) ([]domain.BonusTier, error) {
	var tiers []domain.BonusTier
	if _, err := r.get(ctx, KeyBonusTiers, &tiers); err != nil {
		return nil, err
	}
	sort.SliceStable(tiers, func(i, j int) bool {
		return tiers[i].MinAmount < tiers[j].MinAmount
	})
	return tiers, nil
}

// LoadReferralSettings falls back to the program defaults when nothing is
// configured: enabled, 5%, capped at 250k VND per transaction.
func (r *SettingsRepo) LoadReferralSettings(ctx context.Context) (domain.ReferralSettings, error) {
	var s domain.ReferralSettings
	found, err := r.get(ctx, KeyReferralSettings, &s)
	if err != nil {
		return s, err
	}
	if !found {
		return domain.ReferralSettings{
			Enabled:                            true,
			ReferrerRewardPercent:              5,
			MaxReferrerRewardPerTransactionVnd: 250000,
		}, nil
	}
	return s, nil
}

func (r *SettingsRepo) LoadWebhookConfig(ctx context.Context) (domain.WebhookConfig, error) {
	var w domain.WebhookConfig
	if _, err := r.get(ctx, KeyWebhook, &w); err != nil {
		return w, err
	}
	return w, nil
}
