// Load generator: fires concurrent checkouts at one scarce catalog item and
// verifies the engine sells exactly the available stock, never more.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/retailops/posengine/internal/adapter/storage"
	"github.com/retailops/posengine/internal/config"
	"github.com/retailops/posengine/internal/core/service"
)

const (
	itemID        = "loadgen-item"
	initialStock  = 20
	totalRequests = 50
)

func main() {
	ctx := context.Background()
	cfg := config.Load()

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("failed to open mysql: %v", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping mysql: %v", err)
	}
	if err := storage.Migrate(ctx, db); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	store := storage.NewMySQLAdapter(db)
	if err := store.SeedItem(ctx, itemID, "Load Test Item", decimal.RequireFromString("9.99"), initialStock); err != nil {
		log.Fatalf("failed to seed stock: %v", err)
	}

	sales := service.NewSaleService(store, store, nil, service.Config{
		TaxRatePercent: cfg.TaxRatePercent,
		CommitTimeout:  cfg.CommitTimeout,
		QueueSize:      totalRequests,
	}, zerolog.Nop())
	defer sales.Close()

	var successCount atomic.Int32
	var failCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := sales.SubmitSale(ctx, service.SubmitSaleRequest{
				Lines:         []service.SubmitLine{{ItemID: itemID, Quantity: 1}},
				PaymentMethod: "cash",
			})
			if err == nil {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	fail := failCount.Load()

	fmt.Println("========== LOAD TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Failed:           %d\n", fail)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("=======================================")

	if success == int32(initialStock) && fail == int32(totalRequests-initialStock) {
		fmt.Printf("PASS: Exactly %d sales committed, %d rejected\n", initialStock, totalRequests-initialStock)
	} else {
		fmt.Printf("FAIL: Expected %d success/%d fail, got %d/%d\n",
			initialStock, totalRequests-initialStock, success, fail)
	}

	inv, err := store.GetInventory(ctx, itemID)
	if err != nil {
		log.Fatalf("failed to read final stock: %v", err)
	}
	fmt.Printf("Final Stock: %d\n", inv.Stock)

	if inv.Stock == 0 {
		fmt.Println("PASS: Stock depleted to 0")
	} else {
		fmt.Printf("FAIL: Expected stock 0, got %d\n", inv.Stock)
	}
}
