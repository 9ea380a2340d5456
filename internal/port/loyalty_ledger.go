package port

import "context"

type LoyaltyLedger interface {
	// AccruePoints credits points to a customer account. Called after a sale
	// commit, best-effort: a failure never undoes the sale.
	AccruePoints(ctx context.Context, customerRef string, points int64) error

	// Points returns the current balance; 0 for unknown customers.
	Points(ctx context.Context, customerRef string) (int64, error)

	// RedeemReward atomically deducts cost from the balance, returning false
	// if the balance is insufficient.
	RedeemReward(ctx context.Context, customerRef string, cost int64) (bool, error)
}
