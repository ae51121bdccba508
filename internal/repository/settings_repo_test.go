package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digimart/depositengine/internal/domain"
)

func TestLoadBonusTiers_SortedAscending(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	settings := NewSettingsRepo(db)

	require.NoError(t, settings.Set(ctx, KeyBonusTiers, []domain.BonusTier{
		{MinAmount: 500_001, MaxAmount: 10_000_000, BonusPercent: 10},
		{MinAmount: 50_000, MaxAmount: 100_000, BonusPercent: 5},
		{MinAmount: 100_001, MaxAmount: 500_000, BonusPercent: 8},
	}))

	tiers, err := settings.LoadBonusTiers(ctx)
	require.NoError(t, err)
	require.Len(t, tiers, 3)
	assert.Equal(t, int64(50_000), tiers[0].MinAmount)
	assert.Equal(t, int64(100_001), tiers[1].MinAmount)
	assert.Equal(t, int64(500_001), tiers[2].MinAmount)
}

func TestLoadBonusTiers_Missing(t *testing.T) {
	db := testDB(t)

	settings := NewSettingsRepo(db)
	tiers, err := settings.LoadBonusTiers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tiers)
}

func TestLoadReferralSettings_Defaults(t *testing.T) {
	db := testDB(t)

	settings := NewSettingsRepo(db)
	s, err := settings.LoadReferralSettings(context.Background())
	require.NoError(t, err)
	assert.True(t, s.Enabled)
	assert.Equal(t, int64(5), s.ReferrerRewardPercent)
	assert.Equal(t, int64(250_000), s.MaxReferrerRewardPerTransactionVnd)
}

func TestLoadReferralSettings_Configured(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	settings := NewSettingsRepo(db)

	require.NoError(t, settings.Set(ctx, KeyReferralSettings, domain.ReferralSettings{
		Enabled:               false,
		ReferrerRewardPercent: 10,
	}))

	s, err := settings.LoadReferralSettings(ctx)
	require.NoError(t, err)
	assert.False(t, s.Enabled)
	assert.Equal(t, int64(10), s.ReferrerRewardPercent)
}

func TestLoadBankConfigs_RoundTrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	settings := NewSettingsRepo(db)

	in := []domain.BankAPIConfig{{
		ID:      "mb-main",
		Name:    "MB Bank",
		Enabled: true,
		APIURL:  "https://bank.example.com/history",
		Method:  "GET",
		FieldMapping: domain.FieldMapping{
			TransactionsPath: "transactionHistoryList",
			Fields: domain.TransactionFields{
				TransactionID:   "refNo",
				Amount:          "creditAmount",
				Description:     "description",
				TransactionDate: "transactionDate",
			},
		},
		Filters: domain.Filters{
			OnlyCredit: true,
			CreditIndicator: &domain.CreditIndicator{
				Field:     "debitAmount",
				Value:     "0",
				Condition: domain.ConditionEquals,
			},
		},
	}}
	require.NoError(t, settings.Set(ctx, KeyBankConfigs, in))

	configs, err := settings.LoadBankConfigs(ctx)
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Equal(t, "mb-main", configs[0].ID)
	assert.Equal(t, "transactionHistoryList", configs[0].FieldMapping.TransactionsPath)
	require.NotNil(t, configs[0].Filters.CreditIndicator)
	assert.Equal(t, domain.ConditionEquals, configs[0].Filters.CreditIndicator.Condition)
}
