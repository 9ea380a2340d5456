package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InventoryRecord is a catalog store row: current stock and the unit sale
// price. Stock is only decremented through the sale commit's conditional
// decrement and never goes negative.
type InventoryRecord struct {
	ItemID    string
	Name      string
	UnitPrice decimal.Decimal
	Stock     int
	Version   int // bumped on every stock mutation
	UpdatedAt time.Time
}
