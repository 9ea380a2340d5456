package port

import (
	"context"

	"github.com/retailops/posengine/internal/core/domain"
)

type CustomerDirectory interface {
	// Lookup resolves a customer reference; nil, nil when unknown. Walk-in
	// sales with no resolvable customer are valid.
	Lookup(ctx context.Context, customerRef string) (*domain.Customer, error)
}
