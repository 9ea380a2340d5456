package receipt

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/retailops/posengine/internal/core/domain"
)

func sampleSale() (domain.Sale, []domain.SaleLineItem) {
	sale := domain.Sale{
		ID:              "9f1d2c3b-0000-4000-8000-000000000001",
		CustomerRef:     "cust-42",
		PaymentMethod:   domain.PaymentCash,
		Subtotal:        decimal.RequireFromString("100.00"),
		Discount:        decimal.RequireFromString("10.00"),
		LoyaltyDiscount: decimal.RequireFromString("5.00"),
		Tax:             decimal.RequireFromString("14.45"),
		Total:           decimal.RequireFromString("99.45"),
		Status:          domain.SaleStatusCompleted,
		CreatedAt:       time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
	}
	items := []domain.SaleLineItem{
		{SaleID: sale.ID, ItemID: "item-a", Quantity: 4, UnitPriceAtSale: decimal.RequireFromString("25.00")},
	}
	return sale, items
}

func TestRender_Idempotent(t *testing.T) {
	sale, items := sampleSale()

	first := Render(sale, items, "Ada Cole", 99)
	second := Render(sale, items, "Ada Cole", 99)

	if first != second {
		t.Error("expected byte-identical output for repeated renders")
	}
}

func TestRender_Content(t *testing.T) {
	sale, items := sampleSale()

	out := Render(sale, items, "Ada Cole", 99)

	for _, want := range []string{
		sale.ID,
		"2026-03-14 09:26:53",
		"Customer: Ada Cole",
		"Payment:  cash",
		"item-a",
		"100.00",
		"-10.00",
		"-5.00",
		"14.45",
		"99.45",
		"Points earned:",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("receipt missing %q:\n%s", want, out)
		}
	}
}

func TestRender_WalkIn(t *testing.T) {
	sale, items := sampleSale()
	sale.CustomerRef = ""
	sale.Discount = decimal.Zero
	sale.LoyaltyDiscount = decimal.Zero

	out := Render(sale, items, "", 0)

	if !strings.Contains(out, "Customer: walk-in") {
		t.Error("expected walk-in customer line")
	}
	if strings.Contains(out, "Points earned:") {
		t.Error("walk-in receipt must not show loyalty points")
	}
	if strings.Contains(out, "Discount:") {
		t.Error("zero discount must be omitted")
	}
}
