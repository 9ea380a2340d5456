package port

import (
	"context"
	"time"

	"github.com/retailops/posengine/internal/core/domain"
)

// HistoryFilter narrows a sale history query. Zero values mean "no bound".
type HistoryFilter struct {
	From        time.Time
	To          time.Time
	CustomerRef string
}

type SaleRepository interface {
	// CreateSale persists the sale header, all of its line items, and the
	// matching conditional stock decrements as one atomic unit. If any
	// decrement finds insufficient stock the whole unit rolls back and an
	// *domain.InsufficientStockError (or *domain.ItemNotFoundError) is
	// returned; no partial state is ever observable.
	CreateSale(ctx context.Context, sale domain.Sale, items []domain.SaleLineItem) error

	// GetInventory retrieves the catalog record by item ID; nil when absent.
	GetInventory(ctx context.Context, itemID string) (*domain.InventoryRecord, error)

	// GetSale retrieves a committed sale with its line items; nils when absent.
	GetSale(ctx context.Context, saleID string) (*domain.Sale, []domain.SaleLineItem, error)

	// ListSales returns committed sale summaries, most recent first.
	ListSales(ctx context.Context, filter HistoryFilter) ([]domain.SaleSummary, error)
}
