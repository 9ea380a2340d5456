package port

import (
	"context"

	"github.com/retailops/posengine/internal/core/domain"
)

type EventPublisher interface {
	// SaleCompleted announces a committed sale to downstream consumers
	// (reporting, dashboards). Best-effort: failures are logged, never
	// surfaced as a sale failure.
	SaleCompleted(ctx context.Context, sale domain.Sale, items []domain.SaleLineItem) error
}
