package bonus

import "github.com/digimart/depositengine/internal/domain"

// Commission computes the referrer's cut of one qualifying deposit:
// floor(amount*percent/100), capped per transaction. Paid on every deposit by
// the referee, not only the first. Returns 0 when the referral program is
// disabled.
func Commission(depositVnd int64, s domain.ReferralSettings) int64 {
	if !s.Enabled || s.ReferrerRewardPercent <= 0 {
		return 0
	}
	c := depositVnd * s.ReferrerRewardPercent / 100
	if s.MaxReferrerRewardPerTransactionVnd > 0 && c > s.MaxReferrerRewardPerTransactionVnd {
		c = s.MaxReferrerRewardPerTransactionVnd
	}
	return c
}
