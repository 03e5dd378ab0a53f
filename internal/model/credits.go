package model

// TierNone is the tier reported for accounts with no credit row.
const TierNone = "none"

// CreditBalance is a read-only snapshot of an account's credit row. This
// service never mutates credits; the billing backend owns them.
type CreditBalance struct {
	Balance             float64 `json:"balance"`
	ExpiringCredits     float64 `json:"expiring_credits"`
	NonExpiringCredits  float64 `json:"non_expiring_credits"`
	DailyCreditsBalance float64 `json:"daily_credits_balance"`
	Tier                string  `json:"tier"`
}

// ZeroBalance is the sentinel returned for accounts without a credit row.
// New accounts read as zero-balance rather than erroring.
func ZeroBalance() *CreditBalance {
	return &CreditBalance{Tier: TierNone}
}
