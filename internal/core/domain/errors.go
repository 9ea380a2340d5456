package domain

import (
	"errors"
	"fmt"
)

// Validation errors: surfaced before any collaborator is touched, never
// retried automatically.
var (
	ErrEmptyCart            = errors.New("empty cart")
	ErrInvalidQuantity      = errors.New("quantity must be a positive integer")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrInvalidDiscount      = errors.New("discount percent out of range")
	ErrNonPositiveTotal     = errors.New("sale total must be positive")
)

// ErrSaleNotFound is returned by read-only lookups of a committed sale.
var ErrSaleNotFound = errors.New("sale not found")

// ItemNotFoundError reports a cart line referencing an unknown catalog item.
type ItemNotFoundError struct {
	ItemID string
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("catalog item %q not found", e.ItemID)
}

// InsufficientStockError rejects a whole submission the moment any line
// fails its stock check; no sale is ever partially fulfilled.
type InsufficientStockError struct {
	ItemID    string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: requested %d, available %d",
		e.ItemID, e.Requested, e.Available)
}

// PersistenceError means the atomic commit itself failed after validation
// passed. Stock and ledger are guaranteed unchanged; the caller must treat
// the sale as not-happened.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
