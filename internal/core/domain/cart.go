package domain

import "github.com/shopspring/decimal"

// CartLine is a single entry of a not-yet-committed cart. UnitPrice is
// snapshotted from the catalog read at submit time so later catalog price
// changes never affect an in-flight sale.
type CartLine struct {
	ItemID    string
	Quantity  int
	UnitPrice decimal.Decimal
}
