package bonus

import "github.com/digimart/depositengine/internal/domain"

// Calculate picks the first tier (ascending minAmount order) whose inclusive
// range contains the deposit amount and returns floor(amount*percent/100)
// together with the matched tier. No matching tier means no bonus.
//
// Admin-defined tiers are not validated for overlap server-side; iterating in
// ascending order and taking the first match keeps the result deterministic
// either way.
func Calculate(amountVnd int64, tiers []domain.BonusTier) (int64, *domain.BonusTier) {
	for i := range tiers {
		t := &tiers[i]
		if amountVnd >= t.MinAmount && amountVnd <= t.MaxAmount {
			return amountVnd * t.BonusPercent / 100, t
		}
	}
	return 0, nil
}
