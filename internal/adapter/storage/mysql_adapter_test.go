package storage

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/retailops/posengine/internal/core/domain"
	"github.com/retailops/posengine/internal/port"
)

func getMySQLDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/posengine?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	return db
}

func seedItem(t *testing.T, a *MySQLAdapter, itemID string, price string, stock int) {
	t.Helper()
	if err := a.SeedItem(context.Background(), itemID, itemID, decimal.RequireFromString(price), stock); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
}

func testSale(items ...domain.SaleLineItem) (domain.Sale, []domain.SaleLineItem) {
	sale := domain.Sale{
		ID:              uuid.NewString(),
		PaymentMethod:   domain.PaymentCash,
		Subtotal:        decimal.RequireFromString("30.00"),
		Discount:        decimal.Zero,
		LoyaltyDiscount: decimal.Zero,
		Tax:             decimal.RequireFromString("5.10"),
		Total:           decimal.RequireFromString("35.10"),
		Status:          domain.SaleStatusCompleted,
		CreatedAt:       time.Now().UTC().Truncate(time.Second),
	}
	for i := range items {
		items[i].SaleID = sale.ID
	}
	return sale, items
}

func TestCreateSale_Success(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	seedItem(t, adapter, "test-item", "15.00", 10)

	sale, items := testSale(domain.SaleLineItem{
		ItemID: "test-item", Quantity: 2, UnitPriceAtSale: decimal.RequireFromString("15.00"),
	})

	if err := adapter.CreateSale(ctx, sale, items); err != nil {
		t.Fatalf("CreateSale failed: %v", err)
	}

	inv, err := adapter.GetInventory(ctx, "test-item")
	if err != nil {
		t.Fatalf("GetInventory failed: %v", err)
	}
	if inv.Stock != 8 {
		t.Errorf("expected stock 8, got %d", inv.Stock)
	}

	got, gotItems, err := adapter.GetSale(ctx, sale.ID)
	if err != nil {
		t.Fatalf("GetSale failed: %v", err)
	}
	if got == nil {
		t.Fatal("sale not found after commit")
	}
	if !got.Total.Equal(sale.Total) {
		t.Errorf("expected total %s, got %s", sale.Total, got.Total)
	}
	if len(gotItems) != 1 || gotItems[0].Quantity != 2 {
		t.Errorf("unexpected line items: %+v", gotItems)
	}
}

func TestCreateSale_InsufficientStock(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	seedItem(t, adapter, "scarce-item", "10.00", 3)

	sale, items := testSale(domain.SaleLineItem{
		ItemID: "scarce-item", Quantity: 5, UnitPriceAtSale: decimal.RequireFromString("10.00"),
	})

	err := adapter.CreateSale(ctx, sale, items)

	var stockErr *domain.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got: %v", err)
	}
	if stockErr.Requested != 5 || stockErr.Available != 3 {
		t.Errorf("unexpected error detail: %+v", stockErr)
	}

	inv, _ := adapter.GetInventory(ctx, "scarce-item")
	if inv.Stock != 3 {
		t.Errorf("expected stock unchanged at 3, got %d", inv.Stock)
	}

	got, _, _ := adapter.GetSale(ctx, sale.ID)
	if got != nil {
		t.Error("expected no sale row after rejected commit")
	}
}

// The first line's decrement must be rolled back when a later line conflicts.
func TestCreateSale_RollbackOnSecondLine(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	seedItem(t, adapter, "roll-a", "10.00", 10)
	seedItem(t, adapter, "roll-b", "10.00", 1)

	sale, items := testSale(
		domain.SaleLineItem{ItemID: "roll-a", Quantity: 2, UnitPriceAtSale: decimal.RequireFromString("10.00")},
		domain.SaleLineItem{ItemID: "roll-b", Quantity: 5, UnitPriceAtSale: decimal.RequireFromString("10.00")},
	)

	err := adapter.CreateSale(ctx, sale, items)

	var stockErr *domain.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got: %v", err)
	}
	if stockErr.ItemID != "roll-b" {
		t.Errorf("expected conflict on roll-b, got %s", stockErr.ItemID)
	}

	invA, _ := adapter.GetInventory(ctx, "roll-a")
	if invA.Stock != 10 {
		t.Errorf("expected roll-a stock restored to 10, got %d", invA.Stock)
	}
	invB, _ := adapter.GetInventory(ctx, "roll-b")
	if invB.Stock != 1 {
		t.Errorf("expected roll-b stock unchanged at 1, got %d", invB.Stock)
	}
}

func TestCreateSale_UnknownItem(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	sale, items := testSale(domain.SaleLineItem{
		ItemID: "no-such-item-" + uuid.NewString(), Quantity: 1,
		UnitPriceAtSale: decimal.RequireFromString("10.00"),
	})

	err := adapter.CreateSale(ctx, sale, items)

	var notFound *domain.ItemNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ItemNotFoundError, got: %v", err)
	}
}

func TestCreateSale_Concurrent(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	initialStock := 20
	totalRequests := 50
	seedItem(t, adapter, "concurrent-item", "9.99", initialStock)

	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sale, items := testSale(domain.SaleLineItem{
				ItemID: "concurrent-item", Quantity: 1,
				UnitPriceAtSale: decimal.RequireFromString("9.99"),
			})
			if err := adapter.CreateSale(ctx, sale, items); err == nil {
				successCount.Add(1)
			}
		}()
	}

	wg.Wait()

	if successCount.Load() != int32(initialStock) {
		t.Errorf("expected %d successes, got %d", initialStock, successCount.Load())
	}

	inv, _ := adapter.GetInventory(ctx, "concurrent-item")
	if inv.Stock != 0 {
		t.Errorf("expected stock 0, got %d", inv.Stock)
	}
}

func TestGetInventory_NotFound(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	adapter := NewMySQLAdapter(db)

	inv, err := adapter.GetInventory(context.Background(), "nonexistent-item")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv != nil {
		t.Error("expected nil for nonexistent item")
	}
}

func TestListSales_FilterByCustomer(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	seedItem(t, adapter, "history-item", "10.00", 100)

	ref := "hist-" + uuid.NewString()[:8]
	sale, items := testSale(domain.SaleLineItem{
		ItemID: "history-item", Quantity: 2, UnitPriceAtSale: decimal.RequireFromString("10.00"),
	})
	sale.CustomerRef = ref
	if err := adapter.CreateSale(ctx, sale, items); err != nil {
		t.Fatalf("CreateSale failed: %v", err)
	}

	summaries, err := adapter.ListSales(ctx, port.HistoryFilter{CustomerRef: ref})
	if err != nil {
		t.Fatalf("ListSales failed: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(summaries))
	}
	s := summaries[0]
	if s.ID != sale.ID || s.LineCount != 1 || s.UnitsSold != 2 {
		t.Errorf("unexpected summary: %+v", s)
	}
	if want := decimal.RequireFromString("20.00"); !s.LineTotal.Equal(want) {
		t.Errorf("expected line total %s, got %s", want, s.LineTotal)
	}
}

func TestLookup(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	ref := "cust-" + uuid.NewString()[:8]
	if err := adapter.SeedCustomer(ctx, ref, "Ada Cole"); err != nil {
		t.Fatalf("seed customer failed: %v", err)
	}

	c, err := adapter.Lookup(ctx, ref)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if c == nil || c.Name != "Ada Cole" {
		t.Errorf("unexpected customer: %+v", c)
	}

	missing, err := adapter.Lookup(ctx, "walk-in-"+uuid.NewString())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for unknown customer")
	}
}
