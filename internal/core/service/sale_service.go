package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/retailops/posengine/internal/core/domain"
	"github.com/retailops/posengine/internal/core/pricing"
	"github.com/retailops/posengine/internal/core/receipt"
	"github.com/retailops/posengine/internal/port"
)

// SubmitLine is a cart line as submitted by the caller; the unit price is
// always taken from a fresh catalog read, never from the client.
type SubmitLine struct {
	ItemID   string
	Quantity int
}

type SubmitSaleRequest struct {
	Lines           []SubmitLine
	CustomerRef     string
	PaymentMethod   string
	DiscountPercent decimal.Decimal
}

type SaleResult struct {
	Sale         domain.Sale
	Items        []domain.SaleLineItem
	Receipt      string
	PointsEarned int64
}

// Accrual is a post-commit loyalty credit handed to the worker pool. It is
// bookkeeping outside the sale's atomic scope: losing one never invalidates
// the sale.
type Accrual struct {
	SaleID      string
	CustomerRef string
	Points      int64
}

type Config struct {
	TaxRatePercent        decimal.Decimal
	MemberDiscountPercent decimal.Decimal
	PointsPerCurrencyUnit int64
	CommitTimeout         time.Duration
	QueueSize             int
}

type SaleService struct {
	repo      port.SaleRepository
	customers port.CustomerDirectory
	events    port.EventPublisher // nil disables event publishing
	cfg       Config
	accruals  chan Accrual
	log       zerolog.Logger
}

func NewSaleService(repo port.SaleRepository, customers port.CustomerDirectory, events port.EventPublisher, cfg Config, log zerolog.Logger) *SaleService {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.PointsPerCurrencyUnit <= 0 {
		cfg.PointsPerCurrencyUnit = 1
	}
	return &SaleService{
		repo:      repo,
		customers: customers,
		events:    events,
		cfg:       cfg,
		accruals:  make(chan Accrual, cfg.QueueSize),
		log:       log,
	}
}

// SubmitSale converts a cart into a durable sale record, or fails leaving no
// trace. Validation happens before any mutation; the stock decrements, sale
// header, and line items commit as one atomic unit in the repository.
func (s *SaleService) SubmitSale(ctx context.Context, req SubmitSaleRequest) (*SaleResult, error) {
	if len(req.Lines) == 0 {
		return nil, domain.ErrEmptyCart
	}
	for _, l := range req.Lines {
		if l.Quantity <= 0 {
			return nil, fmt.Errorf("item %q: %w", l.ItemID, domain.ErrInvalidQuantity)
		}
	}
	method, err := domain.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}
	if req.DiscountPercent.IsNegative() || req.DiscountPercent.GreaterThan(decimal.NewFromInt(100)) {
		return nil, domain.ErrInvalidDiscount
	}

	// Fresh stock read per line, immediately before the commit attempt. The
	// conditional decrement inside the transaction re-checks, so a race here
	// surfaces as a conflict, never as oversell.
	cart := make([]domain.CartLine, 0, len(req.Lines))
	for _, l := range req.Lines {
		inv, err := s.repo.GetInventory(ctx, l.ItemID)
		if err != nil {
			return nil, &domain.PersistenceError{Op: "read inventory", Err: err}
		}
		if inv == nil {
			return nil, &domain.ItemNotFoundError{ItemID: l.ItemID}
		}
		if inv.Stock < l.Quantity {
			return nil, &domain.InsufficientStockError{ItemID: l.ItemID, Requested: l.Quantity, Available: inv.Stock}
		}
		cart = append(cart, domain.CartLine{ItemID: l.ItemID, Quantity: l.Quantity, UnitPrice: inv.UnitPrice})
	}

	customer := s.lookupCustomer(ctx, req.CustomerRef)
	loyaltyPercent := decimal.Zero
	if customer != nil {
		loyaltyPercent = s.cfg.MemberDiscountPercent
	}

	totals := pricing.Compute(cart, pricing.Input{
		DiscountPercent:        req.DiscountPercent,
		LoyaltyDiscountPercent: loyaltyPercent,
		TaxRatePercent:         s.cfg.TaxRatePercent,
	}).Round()
	if !totals.Total.IsPositive() {
		return nil, domain.ErrNonPositiveTotal
	}

	sale := domain.Sale{
		ID:              uuid.NewString(),
		CustomerRef:     req.CustomerRef,
		PaymentMethod:   method,
		Subtotal:        totals.Subtotal,
		Discount:        totals.Discount,
		LoyaltyDiscount: totals.LoyaltyDiscount,
		Tax:             totals.Tax,
		Total:           totals.Total,
		Status:          domain.SaleStatusCompleted,
		CreatedAt:       time.Now().UTC().Truncate(time.Second),
	}
	items := make([]domain.SaleLineItem, 0, len(cart))
	for _, l := range cart {
		items = append(items, domain.SaleLineItem{
			SaleID:          sale.ID,
			ItemID:          l.ItemID,
			Quantity:        l.Quantity,
			UnitPriceAtSale: l.UnitPrice,
		})
	}

	if err := s.commit(ctx, sale, items); err != nil {
		return nil, err
	}

	points := s.pointsFor(sale)
	if sale.CustomerRef != "" {
		s.enqueueAccrual(Accrual{SaleID: sale.ID, CustomerRef: sale.CustomerRef, Points: points})
	}
	s.publishCompleted(ctx, sale, items)

	var customerName string
	if customer != nil {
		customerName = customer.Name
	}
	return &SaleResult{
		Sale:         sale,
		Items:        items,
		Receipt:      receipt.Render(sale, items, customerName, points),
		PointsEarned: points,
	}, nil
}

// commit runs the atomic unit under a bounded deadline. A submission that
// cannot acquire its rows in time fails as a persistence error; the caller
// retries the whole submission, never a partial one.
func (s *SaleService) commit(ctx context.Context, sale domain.Sale, items []domain.SaleLineItem) error {
	if s.cfg.CommitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.CommitTimeout)
		defer cancel()
	}

	err := s.repo.CreateSale(ctx, sale, items)
	if err == nil {
		return nil
	}

	var stockErr *domain.InsufficientStockError
	var notFound *domain.ItemNotFoundError
	if errors.As(err, &stockErr) || errors.As(err, &notFound) {
		return err
	}
	return &domain.PersistenceError{Op: "commit sale", Err: err}
}

// SaleHistory lists committed sales joined with computed line totals, most
// recent first.
func (s *SaleService) SaleHistory(ctx context.Context, filter port.HistoryFilter) ([]domain.SaleSummary, error) {
	summaries, err := s.repo.ListSales(ctx, filter)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list sales", Err: err}
	}
	return summaries, nil
}

// Receipt reprints the receipt for a committed sale from persisted state
// alone, so the output is identical to the one issued at commit time.
func (s *SaleService) Receipt(ctx context.Context, saleID string) (string, error) {
	sale, items, err := s.repo.GetSale(ctx, saleID)
	if err != nil {
		return "", &domain.PersistenceError{Op: "read sale", Err: err}
	}
	if sale == nil {
		return "", domain.ErrSaleNotFound
	}

	var customerName string
	if c := s.lookupCustomer(ctx, sale.CustomerRef); c != nil {
		customerName = c.Name
	}
	return receipt.Render(*sale, items, customerName, s.pointsFor(*sale)), nil
}

func (s *SaleService) pointsFor(sale domain.Sale) int64 {
	return sale.Total.Floor().IntPart() * s.cfg.PointsPerCurrencyUnit
}

// lookupCustomer enriches the sale; a directory failure degrades to a
// walk-in sale rather than failing the submission.
func (s *SaleService) lookupCustomer(ctx context.Context, ref string) *domain.Customer {
	if ref == "" || s.customers == nil {
		return nil
	}
	c, err := s.customers.Lookup(ctx, ref)
	if err != nil {
		s.log.Warn().Err(err).Str("customer_ref", ref).Msg("customer lookup failed, treating as walk-in")
		return nil
	}
	return c
}

func (s *SaleService) enqueueAccrual(a Accrual) {
	select {
	case s.accruals <- a:
	default:
		s.log.Error().Str("sale_id", a.SaleID).Str("customer_ref", a.CustomerRef).
			Msg("accrual queue full, loyalty accrual dropped")
	}
}

func (s *SaleService) publishCompleted(ctx context.Context, sale domain.Sale, items []domain.SaleLineItem) {
	if s.events == nil {
		return
	}
	if err := s.events.SaleCompleted(ctx, sale, items); err != nil {
		s.log.Error().Err(err).Str("sale_id", sale.ID).Msg("sale.completed publish failed")
	}
}

// Accruals exposes the loyalty queue for the worker pool.
func (s *SaleService) Accruals() <-chan Accrual {
	return s.accruals
}

func (s *SaleService) Close() {
	close(s.accruals)
}
