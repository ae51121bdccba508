package domain

// BonusTier maps an inclusive deposit amount range to a percentage bonus.
// Tiers are admin-defined; the engine evaluates them in ascending minAmount
// order and takes the first match.
type BonusTier struct {
	MinAmount    int64 `json:"minAmount"`
	MaxAmount    int64 `json:"maxAmount"`
	BonusPercent int64 `json:"bonusPercent"`
}

type ReferralSettings struct {
	Enabled                            bool  `json:"enabled"`
	ReferrerRewardPercent              int64 `json:"referrerRewardPercent"`
	MaxReferrerRewardPerTransactionVnd int64 `json:"maxReferrerRewardPerTransactionVnd"`
}

// WebhookConfig is the admin-configured destination for best-effort credit
// notifications.
type WebhookConfig struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
}
