package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/retailops/posengine/internal/core/domain"
	"github.com/retailops/posengine/internal/port"
)

// MySQLAdapter backs both the sale ledger and the catalog store with the
// same database, so stock decrements and sale inserts share one transaction.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS inventory (
		item_id    VARCHAR(64) PRIMARY KEY,
		name       VARCHAR(255) NOT NULL,
		unit_price DECIMAL(12,2) NOT NULL,
		stock      INT NOT NULL CHECK (stock >= 0),
		version    INT NOT NULL DEFAULT 0,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS sales (
		id               CHAR(36) PRIMARY KEY,
		customer_ref     VARCHAR(64) NOT NULL DEFAULT '',
		payment_method   VARCHAR(16) NOT NULL,
		subtotal         DECIMAL(12,2) NOT NULL,
		discount         DECIMAL(12,2) NOT NULL,
		loyalty_discount DECIMAL(12,2) NOT NULL,
		tax              DECIMAL(12,2) NOT NULL,
		total            DECIMAL(12,2) NOT NULL,
		status           VARCHAR(16) NOT NULL,
		created_at       DATETIME NOT NULL,
		INDEX idx_sales_created (created_at),
		INDEX idx_sales_customer (customer_ref)
	)`,
	`CREATE TABLE IF NOT EXISTS sale_items (
		id                 BIGINT AUTO_INCREMENT PRIMARY KEY,
		sale_id            CHAR(36) NOT NULL,
		item_id            VARCHAR(64) NOT NULL,
		quantity           INT NOT NULL,
		unit_price_at_sale DECIMAL(12,2) NOT NULL,
		FOREIGN KEY (sale_id) REFERENCES sales(id),
		FOREIGN KEY (item_id) REFERENCES inventory(item_id)
	)`,
	`CREATE TABLE IF NOT EXISTS customers (
		ref  VARCHAR(64) PRIMARY KEY,
		name VARCHAR(255) NOT NULL
	)`,
}

// Migrate creates the schema if it does not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// CreateSale commits the conditional stock decrements, the sale header, and
// all line items as one transaction. A decrement that finds the stock
// changed underneath the pre-check aborts the whole transaction; rows
// already touched are unwound by the deferred Rollback.
func (m *MySQLAdapter) CreateSale(ctx context.Context, sale domain.Sale, items []domain.SaleLineItem) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, it := range items {
		result, err := tx.ExecContext(ctx, `
			UPDATE inventory
			SET stock = stock - ?, version = version + 1
			WHERE item_id = ? AND stock >= ?`,
			it.Quantity, it.ItemID, it.Quantity,
		)
		if err != nil {
			return fmt.Errorf("decrement stock: %w", err)
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			// Distinguish a vanished item from a stock conflict with a read
			// inside the same transaction.
			var available int
			err := tx.QueryRowContext(ctx,
				`SELECT stock FROM inventory WHERE item_id = ?`, it.ItemID,
			).Scan(&available)
			if errors.Is(err, sql.ErrNoRows) {
				return &domain.ItemNotFoundError{ItemID: it.ItemID}
			}
			if err != nil {
				return fmt.Errorf("read stock: %w", err)
			}
			return &domain.InsufficientStockError{ItemID: it.ItemID, Requested: it.Quantity, Available: available}
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (id, customer_ref, payment_method, subtotal, discount,
			loyalty_discount, tax, total, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sale.ID, sale.CustomerRef, sale.PaymentMethod, sale.Subtotal, sale.Discount,
		sale.LoyaltyDiscount, sale.Tax, sale.Total, sale.Status, sale.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sale_items (sale_id, item_id, quantity, unit_price_at_sale)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare item insert: %w", err)
	}
	defer stmt.Close()

	for _, it := range items {
		if _, err := stmt.ExecContext(ctx, sale.ID, it.ItemID, it.Quantity, it.UnitPriceAtSale); err != nil {
			return fmt.Errorf("insert sale item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) GetInventory(ctx context.Context, itemID string) (*domain.InventoryRecord, error) {
	var inv domain.InventoryRecord
	err := m.db.QueryRowContext(ctx, `
		SELECT item_id, name, unit_price, stock, version, updated_at
		FROM inventory WHERE item_id = ?`, itemID,
	).Scan(&inv.ItemID, &inv.Name, &inv.UnitPrice, &inv.Stock, &inv.Version, &inv.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	return &inv, nil
}

func (m *MySQLAdapter) GetSale(ctx context.Context, saleID string) (*domain.Sale, []domain.SaleLineItem, error) {
	var sale domain.Sale
	err := m.db.QueryRowContext(ctx, `
		SELECT id, customer_ref, payment_method, subtotal, discount,
			loyalty_discount, tax, total, status, created_at
		FROM sales WHERE id = ?`, saleID,
	).Scan(&sale.ID, &sale.CustomerRef, &sale.PaymentMethod, &sale.Subtotal, &sale.Discount,
		&sale.LoyaltyDiscount, &sale.Tax, &sale.Total, &sale.Status, &sale.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("query sale: %w", err)
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT sale_id, item_id, quantity, unit_price_at_sale
		FROM sale_items WHERE sale_id = ? ORDER BY id`, saleID)
	if err != nil {
		return nil, nil, fmt.Errorf("query sale items: %w", err)
	}
	defer rows.Close()

	var items []domain.SaleLineItem
	for rows.Next() {
		var it domain.SaleLineItem
		if err := rows.Scan(&it.SaleID, &it.ItemID, &it.Quantity, &it.UnitPriceAtSale); err != nil {
			return nil, nil, fmt.Errorf("scan sale item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate sale items: %w", err)
	}
	return &sale, items, nil
}

func (m *MySQLAdapter) ListSales(ctx context.Context, filter port.HistoryFilter) ([]domain.SaleSummary, error) {
	query := `
		SELECT s.id, s.customer_ref, s.payment_method, s.total, s.created_at,
			COUNT(i.id), COALESCE(SUM(i.quantity), 0),
			COALESCE(SUM(i.quantity * i.unit_price_at_sale), 0)
		FROM sales s
		LEFT JOIN sale_items i ON i.sale_id = s.id`

	var where []string
	var args []any
	if !filter.From.IsZero() {
		where = append(where, "s.created_at >= ?")
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		where = append(where, "s.created_at <= ?")
		args = append(args, filter.To)
	}
	if filter.CustomerRef != "" {
		where = append(where, "s.customer_ref = ?")
		args = append(args, filter.CustomerRef)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " GROUP BY s.id ORDER BY s.created_at DESC, s.id"

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sales: %w", err)
	}
	defer rows.Close()

	var out []domain.SaleSummary
	for rows.Next() {
		var s domain.SaleSummary
		if err := rows.Scan(&s.ID, &s.CustomerRef, &s.PaymentMethod, &s.Total, &s.CreatedAt,
			&s.LineCount, &s.UnitsSold, &s.LineTotal); err != nil {
			return nil, fmt.Errorf("scan sale summary: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sales: %w", err)
	}
	return out, nil
}

// Lookup implements the customer directory against the customers table.
func (m *MySQLAdapter) Lookup(ctx context.Context, customerRef string) (*domain.Customer, error) {
	var c domain.Customer
	err := m.db.QueryRowContext(ctx,
		`SELECT ref, name FROM customers WHERE ref = ?`, customerRef,
	).Scan(&c.Ref, &c.Name)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query customer: %w", err)
	}
	return &c, nil
}

// SeedItem upserts a catalog row; used at startup and by the load generator.
func (m *MySQLAdapter) SeedItem(ctx context.Context, itemID, name string, unitPrice decimal.Decimal, stock int) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO inventory (item_id, name, unit_price, stock, version)
		VALUES (?, ?, ?, ?, 0)
		ON DUPLICATE KEY UPDATE name = VALUES(name), unit_price = VALUES(unit_price),
			stock = VALUES(stock), version = 0`,
		itemID, name, unitPrice, stock,
	)
	if err != nil {
		return fmt.Errorf("seed item: %w", err)
	}
	return nil
}

// SeedCustomer upserts a directory row.
func (m *MySQLAdapter) SeedCustomer(ctx context.Context, ref, name string) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO customers (ref, name) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE name = VALUES(name)`,
		ref, name,
	)
	if err != nil {
		return fmt.Errorf("seed customer: %w", err)
	}
	return nil
}
