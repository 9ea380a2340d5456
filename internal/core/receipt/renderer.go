// Package receipt renders a committed sale into its printable form. The
// renderer is a pure function of the persisted sale data, so reprinting a
// receipt at any later time yields byte-identical output.
package receipt

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/retailops/posengine/internal/core/domain"
)

const width = 40

// Render produces the fixed-layout text receipt for a committed sale.
// customerName is empty for walk-in sales.
func Render(sale domain.Sale, items []domain.SaleLineItem, customerName string, pointsEarned int64) string {
	var b strings.Builder

	rule := strings.Repeat("=", width)
	thin := strings.Repeat("-", width)

	b.WriteString(rule + "\n")
	b.WriteString(center("SALE RECEIPT") + "\n")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Sale:     %s\n", sale.ID)
	fmt.Fprintf(&b, "Date:     %s\n", sale.CreatedAt.UTC().Format("2006-01-02 15:04:05"))
	if customerName != "" {
		fmt.Fprintf(&b, "Customer: %s\n", customerName)
	} else {
		b.WriteString("Customer: walk-in\n")
	}
	fmt.Fprintf(&b, "Payment:  %s\n", sale.PaymentMethod)
	b.WriteString(thin + "\n")

	for _, it := range items {
		lineTotal := it.UnitPriceAtSale.Mul(decimal.NewFromInt(int64(it.Quantity)))
		fmt.Fprintf(&b, "%-16s %3d x %7s %9s\n",
			it.ItemID, it.Quantity, money(it.UnitPriceAtSale), money(lineTotal))
	}

	b.WriteString(thin + "\n")
	fmt.Fprintf(&b, "%-20s %19s\n", "Subtotal:", money(sale.Subtotal))
	if !sale.Discount.IsZero() {
		fmt.Fprintf(&b, "%-20s %19s\n", "Discount:", "-"+money(sale.Discount))
	}
	if !sale.LoyaltyDiscount.IsZero() {
		fmt.Fprintf(&b, "%-20s %19s\n", "Loyalty discount:", "-"+money(sale.LoyaltyDiscount))
	}
	fmt.Fprintf(&b, "%-20s %19s\n", "Tax:", money(sale.Tax))
	fmt.Fprintf(&b, "%-20s %19s\n", "TOTAL:", money(sale.Total))
	if sale.CustomerRef != "" {
		fmt.Fprintf(&b, "%-20s %19d\n", "Points earned:", pointsEarned)
	}
	b.WriteString(rule + "\n")

	return b.String()
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func center(s string) string {
	pad := (width - len(s)) / 2
	if pad < 0 {
		pad = 0
	}
	return strings.Repeat(" ", pad) + s
}
