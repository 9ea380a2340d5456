package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/retailops/posengine/internal/core/domain"
)

var hundred = decimal.NewFromInt(100)

// Input carries the percent figures applied to a cart. TaxRatePercent comes
// from server configuration; client-side previews are advisory only.
type Input struct {
	DiscountPercent        decimal.Decimal
	LoyaltyDiscountPercent decimal.Decimal
	TaxRatePercent         decimal.Decimal
}

type Totals struct {
	Subtotal        decimal.Decimal
	Discount        decimal.Decimal
	LoyaltyDiscount decimal.Decimal
	Taxable         decimal.Decimal
	Tax             decimal.Decimal
	Total           decimal.Decimal
}

// Compute derives the totals for a cart. Pure: safe to call repeatedly for
// UI previews without committing anything.
//
// Both the discount and the loyalty discount are taken against the original
// subtotal, not compounded against each other. That matches the running
// system's observed arithmetic and is kept for compatibility; see DESIGN.md
// before changing the base.
func Compute(lines []domain.CartLine, in Input) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	discount := subtotal.Mul(in.DiscountPercent).Div(hundred)
	loyalty := subtotal.Mul(in.LoyaltyDiscountPercent).Div(hundred)
	taxable := subtotal.Sub(discount).Sub(loyalty)
	tax := taxable.Mul(in.TaxRatePercent).Div(hundred)

	return Totals{
		Subtotal:        subtotal,
		Discount:        discount,
		LoyaltyDiscount: loyalty,
		Taxable:         taxable,
		Tax:             tax,
		Total:           taxable.Add(tax),
	}
}

// Round returns the presentation-time figures, rounded to two decimal
// places. Intermediate accumulation stays unrounded so rounding error does
// not compound across steps.
func (t Totals) Round() Totals {
	return Totals{
		Subtotal:        t.Subtotal.Round(2),
		Discount:        t.Discount.Round(2),
		LoyaltyDiscount: t.LoyaltyDiscount.Round(2),
		Taxable:         t.Taxable.Round(2),
		Tax:             t.Tax.Round(2),
		Total:           t.Total.Round(2),
	}
}
