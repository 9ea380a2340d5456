package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCredit PaymentMethod = "credit"
	PaymentCard   PaymentMethod = "card"
)

// ParsePaymentMethod validates a wire-level payment method string.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(s) {
	case PaymentCash, PaymentCredit, PaymentCard:
		return PaymentMethod(s), nil
	}
	return "", ErrInvalidPaymentMethod
}

type SaleStatus string

const SaleStatusCompleted SaleStatus = "completed"

// Sale is a committed sale header. It is created exactly once by the
// coordinator's commit and never updated in place; corrections happen via
// separate compensating records.
type Sale struct {
	ID              string
	CustomerRef     string // empty for walk-in sales
	PaymentMethod   PaymentMethod
	Subtotal        decimal.Decimal
	Discount        decimal.Decimal
	LoyaltyDiscount decimal.Decimal
	Tax             decimal.Decimal
	Total           decimal.Decimal
	Status          SaleStatus
	CreatedAt       time.Time
}

// SaleLineItem is one line of a committed sale. UnitPriceAtSale is fixed at
// commit time.
type SaleLineItem struct {
	SaleID          string
	ItemID          string
	Quantity        int
	UnitPriceAtSale decimal.Decimal
}

// SaleSummary is a history-listing row: the sale header joined with totals
// computed from its line items.
type SaleSummary struct {
	ID            string
	CustomerRef   string
	PaymentMethod PaymentMethod
	Total         decimal.Decimal
	LineCount     int
	UnitsSold     int
	LineTotal     decimal.Decimal
	CreatedAt     time.Time
}

// Customer is directory data used to enrich receipts and decide loyalty
// eligibility. Absence of a customer is not an error.
type Customer struct {
	Ref  string
	Name string
}
