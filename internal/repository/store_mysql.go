package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"trendyol-sync-api/internal/model"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore implements Store using MySQL. Same contract as SQLiteStore;
// upserts use ON DUPLICATE KEY UPDATE so they stay single atomic statements.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore opens a MySQL connection with the given DSN. The DSN must
// include parseTime=true.
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	if err := createMySQLTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("[MySQLStore] Initialized")
	return &MySQLStore{db: db}, nil
}

func createMySQLTables(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			barcode VARCHAR(64) NOT NULL UNIQUE,
			title VARCHAR(255) NOT NULL DEFAULT '',
			product_main_id VARCHAR(64) NOT NULL DEFAULT '',
			brand_id BIGINT NOT NULL DEFAULT 0,
			category_id BIGINT NOT NULL DEFAULT 0,
			quantity INT NOT NULL DEFAULT 0,
			stock_code VARCHAR(64) NOT NULL DEFAULT '',
			dimensional_weight DOUBLE NOT NULL DEFAULT 0,
			description TEXT,
			currency_type VARCHAR(8) NOT NULL DEFAULT 'TRY',
			list_price DOUBLE NOT NULL DEFAULT 0,
			sale_price DOUBLE NOT NULL DEFAULT 0,
			vat_rate INT NOT NULL DEFAULT 18,
			cargo_company_id BIGINT NOT NULL DEFAULT 1,
			images TEXT,
			last_stock_update DATETIME NOT NULL,
			last_price_update DATETIME NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			order_id VARCHAR(64) NOT NULL UNIQUE,
			status VARCHAR(32) NOT NULL DEFAULT 'NEW',
			customer_id VARCHAR(64) NOT NULL DEFAULT '',
			total_price DOUBLE NOT NULL DEFAULT 0,
			items TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			id INT PRIMARY KEY,
			api_key VARCHAR(128) NOT NULL DEFAULT '',
			api_secret VARCHAR(128) NOT NULL DEFAULT '',
			supplier_id VARCHAR(64) NOT NULL DEFAULT '',
			webhook_url VARCHAR(255) NOT NULL DEFAULT '',
			auto_sync TINYINT(1) NOT NULL DEFAULT 0,
			sync_interval INT NOT NULL DEFAULT 30,
			min_stock_alert INT NOT NULL DEFAULT 10,
			stock_update_interval INT NOT NULL DEFAULT 5,
			order_check_interval INT NOT NULL DEFAULT 5,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS webhook_events (
			id VARCHAR(36) PRIMARY KEY,
			event_type VARCHAR(16) NOT NULL,
			payload TEXT,
			status VARCHAR(16) NOT NULL DEFAULT 'PENDING',
			error TEXT,
			retry_count INT NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			processed_at DATETIME NULL,
			INDEX idx_webhook_events_status (status)
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// UpsertProduct inserts or overwrites the remote-owned fields of a product.
func (s *MySQLStore) UpsertProduct(ctx context.Context, p model.Product) error {
	images, err := json.Marshal(p.Images)
	if err != nil {
		return fmt.Errorf("failed to encode images: %w", err)
	}

	query := `
		INSERT INTO products (
			barcode, title, product_main_id, brand_id, category_id, quantity,
			stock_code, dimensional_weight, description, currency_type,
			list_price, sale_price, vat_rate, cargo_company_id, images,
			last_stock_update, last_price_update, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			title = VALUES(title),
			product_main_id = VALUES(product_main_id),
			brand_id = VALUES(brand_id),
			category_id = VALUES(category_id),
			quantity = VALUES(quantity),
			stock_code = VALUES(stock_code),
			dimensional_weight = VALUES(dimensional_weight),
			description = VALUES(description),
			currency_type = VALUES(currency_type),
			list_price = VALUES(list_price),
			sale_price = VALUES(sale_price),
			vat_rate = VALUES(vat_rate),
			cargo_company_id = VALUES(cargo_company_id),
			images = VALUES(images),
			last_stock_update = VALUES(last_stock_update),
			last_price_update = VALUES(last_price_update)`

	_, err = s.db.ExecContext(ctx, query,
		p.Barcode, p.Title, p.ProductMainID, p.BrandID, p.CategoryID, p.Quantity,
		p.StockCode, p.DimensionalWeight, p.Description, p.CurrencyType,
		p.ListPrice, p.SalePrice, p.VatRate, p.CargoCompanyID, string(images),
		p.LastStockUpdate, p.LastPriceUpdate, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert product %s: %w", p.Barcode, err)
	}
	return nil
}

// GetProduct returns the product with the given barcode, or nil.
func (s *MySQLStore) GetProduct(ctx context.Context, barcode string) (*model.Product, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE barcode = ?`, barcode)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

// ListProducts returns all products ordered by barcode.
func (s *MySQLStore) ListProducts(ctx context.Context) ([]model.Product, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY barcode`)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// DeleteProduct removes a product by barcode.
func (s *MySQLStore) DeleteProduct(ctx context.Context, barcode string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE barcode = ?`, barcode)
	if err != nil {
		return fmt.Errorf("failed to delete product %s: %w", barcode, err)
	}
	return nil
}

// UpsertOrder inserts or overwrites the remote-owned fields of an order.
func (s *MySQLStore) UpsertOrder(ctx context.Context, o model.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("failed to encode items: %w", err)
	}

	query := `
		INSERT INTO orders (order_id, status, customer_id, total_price, items, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			status = VALUES(status),
			customer_id = VALUES(customer_id),
			total_price = VALUES(total_price),
			items = VALUES(items),
			updated_at = VALUES(updated_at)`

	_, err = s.db.ExecContext(ctx, query,
		o.OrderID, string(o.Status), o.CustomerID, o.TotalPrice, string(items),
		o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert order %s: %w", o.OrderID, err)
	}
	return nil
}

// GetOrder returns the order with the given marketplace id, or nil.
func (s *MySQLStore) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, order_id, status, customer_id, total_price, items, created_at, updated_at
		 FROM orders WHERE order_id = ?`, orderID)
	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return o, nil
}

// ListOrders returns orders newest-first.
func (s *MySQLStore) ListOrders(ctx context.Context, limit, offset int) ([]model.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, order_id, status, customer_id, total_price, items, created_at, updated_at
		 FROM orders ORDER BY created_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

// GetSettings returns the singleton settings record, or nil.
func (s *MySQLStore) GetSettings(ctx context.Context) (*model.Settings, error) {
	var st model.Settings
	err := s.db.QueryRowContext(ctx, `
		SELECT id, api_key, api_secret, supplier_id, webhook_url, auto_sync,
		       sync_interval, min_stock_alert, stock_update_interval,
		       order_check_interval, updated_at
		FROM settings WHERE id = 1`).Scan(
		&st.ID, &st.APIKey, &st.APISecret, &st.SupplierID, &st.WebhookURL,
		&st.AutoSync, &st.SyncInterval, &st.MinStockAlert,
		&st.StockUpdateInterval, &st.OrderCheckInterval, &st.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return &st, nil
}

// SaveSettings inserts or replaces the singleton settings record.
func (s *MySQLStore) SaveSettings(ctx context.Context, st model.Settings) (*model.Settings, error) {
	st.ID = 1
	st.UpdatedAt = time.Now().UTC()

	query := `
		INSERT INTO settings (id, api_key, api_secret, supplier_id, webhook_url,
			auto_sync, sync_interval, min_stock_alert, stock_update_interval,
			order_check_interval, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			api_key = VALUES(api_key),
			api_secret = VALUES(api_secret),
			supplier_id = VALUES(supplier_id),
			webhook_url = VALUES(webhook_url),
			auto_sync = VALUES(auto_sync),
			sync_interval = VALUES(sync_interval),
			min_stock_alert = VALUES(min_stock_alert),
			stock_update_interval = VALUES(stock_update_interval),
			order_check_interval = VALUES(order_check_interval),
			updated_at = VALUES(updated_at)`

	_, err := s.db.ExecContext(ctx, query,
		st.APIKey, st.APISecret, st.SupplierID, st.WebhookURL, st.AutoSync,
		st.SyncInterval, st.MinStockAlert, st.StockUpdateInterval,
		st.OrderCheckInterval, st.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to save settings: %w", err)
	}
	return &st, nil
}

// CreateWebhookEvent stores a new PENDING event.
func (s *MySQLStore) CreateWebhookEvent(ctx context.Context, e model.WebhookEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO webhook_events (id, event_type, payload, status, error, retry_count, created_at, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.EventType), string(e.Payload), string(e.Status),
		e.Error, e.RetryCount, e.CreatedAt, e.ProcessedAt)
	if err != nil {
		return fmt.Errorf("failed to create webhook event: %w", err)
	}
	return nil
}

// FinishWebhookEvent records the terminal status of an event.
func (s *MySQLStore) FinishWebhookEvent(ctx context.Context, id string, status model.WebhookEventStatus, errDetail string, processedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE webhook_events SET status = ?, error = ?, processed_at = ? WHERE id = ?`,
		string(status), errDetail, processedAt, id)
	if err != nil {
		return fmt.Errorf("failed to finish webhook event %s: %w", id, err)
	}
	return nil
}

// GetWebhookEvent returns an event by id, or nil.
func (s *MySQLStore) GetWebhookEvent(ctx context.Context, id string) (*model.WebhookEvent, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, event_type, payload, status, error, retry_count, created_at, processed_at
		FROM webhook_events WHERE id = ?`, id)
	e, err := scanWebhookEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get webhook event: %w", err)
	}
	return e, nil
}

// ListWebhookEvents returns events newest-first, optionally filtered by status.
func (s *MySQLStore) ListWebhookEvents(ctx context.Context, status model.WebhookEventStatus, limit int) ([]model.WebhookEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, event_type, payload, status, error, retry_count, created_at, processed_at
		FROM webhook_events`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhook events: %w", err)
	}
	defer rows.Close()

	var events []model.WebhookEvent
	for rows.Next() {
		e, err := scanWebhookEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// IncrementRetryCount bumps the retry counter of a FAILED event and moves it
// back to PENDING.
func (s *MySQLStore) IncrementRetryCount(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE webhook_events SET retry_count = retry_count + 1, status = ?
		WHERE id = ? AND status = ?`,
		string(model.WebhookStatusPending), id, string(model.WebhookStatusFailed))
	if err != nil {
		return fmt.Errorf("failed to increment retry count for %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("webhook event %s is not in FAILED state", id)
	}
	return nil
}

// GetStats returns statistics about the store.
func (s *MySQLStore) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	for name, table := range map[string]string{
		"products":       "products",
		"orders":         "orders",
		"webhook_events": "webhook_events",
	} {
		var count int64
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
			return nil, err
		}
		stats[name] = count
	}

	return stats, nil
}

// Close closes the database connection.
func (s *MySQLStore) Close() error {
	return s.db.Close()
}

// Ensure MySQLStore implements Store
var _ Store = (*MySQLStore)(nil)
