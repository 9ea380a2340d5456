package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/retailops/posengine/internal/adapter/events"
	"github.com/retailops/posengine/internal/adapter/handler"
	"github.com/retailops/posengine/internal/adapter/loyalty"
	"github.com/retailops/posengine/internal/adapter/storage"
	"github.com/retailops/posengine/internal/config"
	"github.com/retailops/posengine/internal/core/service"
	"github.com/retailops/posengine/internal/port"
)

const saleEventsExchange = "posengine.sales"

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})

	_ = godotenv.Load()
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MySQL: sale ledger, catalog store, and customer directory share one
	// transactional resource.
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open mysql")
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping mysql")
	}
	if err := storage.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate schema")
	}
	log.Info().Msg("connected to mysql")

	store := storage.NewMySQLAdapter(db)
	if cfg.SeedOnStart {
		if err := seed(ctx, store); err != nil {
			log.Fatal().Err(err).Msg("failed to seed")
		}
		log.Info().Msg("seeded catalog and customers")
	}

	// Redis: loyalty ledger.
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, PoolSize: 100})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("failed to connect redis")
	}
	log.Info().Msg("connected to redis")
	ledger := loyalty.NewRedisLedger(rdb)

	// RabbitMQ sale events are optional.
	var publisher port.EventPublisher
	var rabbit *events.RabbitPublisher
	if cfg.RabbitURL != "" {
		rabbit, err = events.NewRabbitPublisher(cfg.RabbitURL, saleEventsExchange)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect rabbit")
		}
		publisher = rabbit
		log.Info().Msg("connected to rabbit")
	}

	sales := service.NewSaleService(store, store, publisher, service.Config{
		TaxRatePercent:        cfg.TaxRatePercent,
		MemberDiscountPercent: cfg.MemberDiscountPercent,
		PointsPerCurrencyUnit: cfg.PointsPerCurrencyUnit,
		CommitTimeout:         cfg.CommitTimeout,
		QueueSize:             cfg.QueueSize,
	}, log.Logger)

	// Worker pool drains post-commit loyalty accruals. Accrual runs outside
	// the sale transaction and holds none of its locks.
	var wg sync.WaitGroup
	for i := 0; i < cfg.WorkerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			accrualLoop(id, sales.Accruals(), ledger)
		}(i)
	}
	log.Info().Int("workers", cfg.WorkerCount).Msg("started accrual workers")

	httpHandler := handler.NewHTTPHandler(sales, log.Logger)
	mux := http.NewServeMux()
	mux.HandleFunc("/health", httpHandler.HealthCheck)
	mux.HandleFunc("/api/sales", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			httpHandler.SaleHistory(w, r)
			return
		}
		httpHandler.SubmitSale(w, r)
	})
	mux.HandleFunc("/api/receipt", httpHandler.Receipt)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Warn().Msg("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	log.Info().Msg("HTTP server stopped")

	// Close the accrual queue and let the workers flush it.
	sales.Close()
	wg.Wait()
	log.Info().Msg("accrual workers stopped")

	if rabbit != nil {
		rabbit.Close()
	}
	rdb.Close()
	db.Close()
	log.Info().Msg("connections closed")
}

func accrualLoop(id int, queue <-chan service.Accrual, ledger port.LoyaltyLedger) {
	for a := range queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

		if err := ledger.AccruePoints(ctx, a.CustomerRef, a.Points); err != nil {
			// Best-effort bookkeeping: the sale already committed, so this
			// is logged and never surfaced as a sale failure.
			log.Error().Err(err).Int("worker", id).Str("sale_id", a.SaleID).
				Str("customer_ref", a.CustomerRef).Msg("loyalty accrual failed")
		} else {
			log.Info().Int("worker", id).Str("sale_id", a.SaleID).
				Int64("points", a.Points).Msg("loyalty points accrued")
		}

		cancel()
	}
}

func seed(ctx context.Context, store *storage.MySQLAdapter) error {
	items := []struct {
		id    string
		name  string
		price string
		stock int
	}{
		{"panadol", "Panadol 500mg", "15.00", 10},
		{"bandage", "Elastic Bandage", "4.50", 40},
		{"vitamin-c", "Vitamin C 1000mg", "22.75", 25},
	}
	for _, it := range items {
		if err := store.SeedItem(ctx, it.id, it.name, decimal.RequireFromString(it.price), it.stock); err != nil {
			return err
		}
	}
	return store.SeedCustomer(ctx, "cust-42", "Ada Cole")
}
