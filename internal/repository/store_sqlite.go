package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"trendyol-sync-api/internal/model"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// SQLiteStore implements Store using SQLite. Thread-safe with WAL mode for
// high-concurrency reads; all upserts are single statements so concurrent
// reconciliations of the same key resolve last-writer-wins.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the SQLite database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := createSQLiteTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("[SQLiteStore] Initialized with database: %s", dbPath)
	return &SQLiteStore{db: db}, nil
}

func createSQLiteTables(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		barcode TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL DEFAULT '',
		product_main_id TEXT NOT NULL DEFAULT '',
		brand_id INTEGER NOT NULL DEFAULT 0,
		category_id INTEGER NOT NULL DEFAULT 0,
		quantity INTEGER NOT NULL DEFAULT 0,
		stock_code TEXT NOT NULL DEFAULT '',
		dimensional_weight REAL NOT NULL DEFAULT 0,
		description TEXT NOT NULL DEFAULT '',
		currency_type TEXT NOT NULL DEFAULT 'TRY',
		list_price REAL NOT NULL DEFAULT 0,
		sale_price REAL NOT NULL DEFAULT 0,
		vat_rate INTEGER NOT NULL DEFAULT 18,
		cargo_company_id INTEGER NOT NULL DEFAULT 1,
		images TEXT NOT NULL DEFAULT '[]',
		last_stock_update DATETIME NOT NULL,
		last_price_update DATETIME NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_products_barcode ON products(barcode);

	CREATE TABLE IF NOT EXISTS orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id TEXT NOT NULL UNIQUE,
		status TEXT NOT NULL DEFAULT 'NEW',
		customer_id TEXT NOT NULL DEFAULT '',
		total_price REAL NOT NULL DEFAULT 0,
		items TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_orders_order_id ON orders(order_id);

	CREATE TABLE IF NOT EXISTS settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		api_key TEXT NOT NULL DEFAULT '',
		api_secret TEXT NOT NULL DEFAULT '',
		supplier_id TEXT NOT NULL DEFAULT '',
		webhook_url TEXT NOT NULL DEFAULT '',
		auto_sync INTEGER NOT NULL DEFAULT 0,
		sync_interval INTEGER NOT NULL DEFAULT 30,
		min_stock_alert INTEGER NOT NULL DEFAULT 10,
		stock_update_interval INTEGER NOT NULL DEFAULT 5,
		order_check_interval INTEGER NOT NULL DEFAULT 5,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS webhook_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		payload TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'PENDING',
		error TEXT NOT NULL DEFAULT '',
		retry_count INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		processed_at DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_webhook_events_status ON webhook_events(status);
	`
	_, err := db.Exec(query)
	return err
}

// UpsertProduct inserts or overwrites the remote-owned fields of a product.
// created_at is only set on insert; local-only columns survive updates.
func (s *SQLiteStore) UpsertProduct(ctx context.Context, p model.Product) error {
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
		ON CONFLICT(barcode) DO UPDATE SET
			title = excluded.title,
			product_main_id = excluded.product_main_id,
			brand_id = excluded.brand_id,
			category_id = excluded.category_id,
			quantity = excluded.quantity,
			stock_code = excluded.stock_code,
			dimensional_weight = excluded.dimensional_weight,
			description = excluded.description,
			currency_type = excluded.currency_type,
			list_price = excluded.list_price,
			sale_price = excluded.sale_price,
			vat_rate = excluded.vat_rate,
			cargo_company_id = excluded.cargo_company_id,
			images = excluded.images,
			last_stock_update = excluded.last_stock_update,
			last_price_update = excluded.last_price_update`

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

const productColumns = `id, barcode, title, product_main_id, brand_id, category_id, quantity,
	stock_code, dimensional_weight, description, currency_type, list_price, sale_price,
	vat_rate, cargo_company_id, images, last_stock_update, last_price_update, created_at`

func scanProduct(row interface{ Scan(...interface{}) error }) (*model.Product, error) {
	var p model.Product
	var images string
	err := row.Scan(&p.ID, &p.Barcode, &p.Title, &p.ProductMainID, &p.BrandID,
		&p.CategoryID, &p.Quantity, &p.StockCode, &p.DimensionalWeight,
		&p.Description, &p.CurrencyType, &p.ListPrice, &p.SalePrice,
		&p.VatRate, &p.CargoCompanyID, &images, &p.LastStockUpdate,
		&p.LastPriceUpdate, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(images), &p.Images); err != nil {
		return nil, fmt.Errorf("failed to decode images for %s: %w", p.Barcode, err)
	}
	return &p, nil
}

// GetProduct returns the product with the given barcode, or nil.
func (s *SQLiteStore) GetProduct(ctx context.Context, barcode string) (*model.Product, error) {
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
func (s *SQLiteStore) ListProducts(ctx context.Context) ([]model.Product, error) {
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
func (s *SQLiteStore) DeleteProduct(ctx context.Context, barcode string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE barcode = ?`, barcode)
	if err != nil {
		return fmt.Errorf("failed to delete product %s: %w", barcode, err)
	}
	return nil
}

// UpsertOrder inserts or overwrites the remote-owned fields of an order.
func (s *SQLiteStore) UpsertOrder(ctx context.Context, o model.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("failed to encode items: %w", err)
	}

	query := `
		INSERT INTO orders (order_id, status, customer_id, total_price, items, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(order_id) DO UPDATE SET
			status = excluded.status,
			customer_id = excluded.customer_id,
			total_price = excluded.total_price,
			items = excluded.items,
			updated_at = excluded.updated_at`

	_, err = s.db.ExecContext(ctx, query,
		o.OrderID, string(o.Status), o.CustomerID, o.TotalPrice, string(items),
		o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert order %s: %w", o.OrderID, err)
	}
	return nil
}

func scanOrder(row interface{ Scan(...interface{}) error }) (*model.Order, error) {
	var o model.Order
	var items string
	err := row.Scan(&o.ID, &o.OrderID, &o.Status, &o.CustomerID, &o.TotalPrice,
		&items, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(items), &o.Items); err != nil {
		return nil, fmt.Errorf("failed to decode items for %s: %w", o.OrderID, err)
	}
	return &o, nil
}

// GetOrder returns the order with the given marketplace id, or nil.
func (s *SQLiteStore) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
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
func (s *SQLiteStore) ListOrders(ctx context.Context, limit, offset int) ([]model.Order, error) {
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
func (s *SQLiteStore) GetSettings(ctx context.Context) (*model.Settings, error) {
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
func (s *SQLiteStore) SaveSettings(ctx context.Context, st model.Settings) (*model.Settings, error) {
	st.ID = 1
	st.UpdatedAt = time.Now().UTC()

	query := `
		INSERT INTO settings (id, api_key, api_secret, supplier_id, webhook_url,
			auto_sync, sync_interval, min_stock_alert, stock_update_interval,
			order_check_interval, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			api_key = excluded.api_key,
			api_secret = excluded.api_secret,
			supplier_id = excluded.supplier_id,
			webhook_url = excluded.webhook_url,
			auto_sync = excluded.auto_sync,
			sync_interval = excluded.sync_interval,
			min_stock_alert = excluded.min_stock_alert,
			stock_update_interval = excluded.stock_update_interval,
			order_check_interval = excluded.order_check_interval,
			updated_at = excluded.updated_at`

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
func (s *SQLiteStore) CreateWebhookEvent(ctx context.Context, e model.WebhookEvent) error {
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
func (s *SQLiteStore) FinishWebhookEvent(ctx context.Context, id string, status model.WebhookEventStatus, errDetail string, processedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE webhook_events SET status = ?, error = ?, processed_at = ? WHERE id = ?`,
		string(status), errDetail, processedAt, id)
	if err != nil {
		return fmt.Errorf("failed to finish webhook event %s: %w", id, err)
	}
	return nil
}

func scanWebhookEvent(row interface{ Scan(...interface{}) error }) (*model.WebhookEvent, error) {
	var e model.WebhookEvent
	var payload string
	var processedAt sql.NullTime
	err := row.Scan(&e.ID, &e.EventType, &payload, &e.Status, &e.Error,
		&e.RetryCount, &e.CreatedAt, &processedAt)
	if err != nil {
		return nil, err
	}
	e.Payload = json.RawMessage(payload)
	if processedAt.Valid {
		t := processedAt.Time
		e.ProcessedAt = &t
	}
	return &e, nil
}

// GetWebhookEvent returns an event by id, or nil.
func (s *SQLiteStore) GetWebhookEvent(ctx context.Context, id string) (*model.WebhookEvent, error) {
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
func (s *SQLiteStore) ListWebhookEvents(ctx context.Context, status model.WebhookEventStatus, limit int) ([]model.WebhookEvent, error) {
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
func (s *SQLiteStore) IncrementRetryCount(ctx context.Context, id string) error {
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
func (s *SQLiteStore) GetStats(ctx context.Context) (map[string]interface{}, error) {
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

	var lastStockSync sql.NullTime
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(last_stock_update) FROM products").Scan(&lastStockSync); err == nil && lastStockSync.Valid {
		stats["last_stock_update"] = lastStockSync.Time
	}

	return stats, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ensure SQLiteStore implements Store
var _ Store = (*SQLiteStore)(nil)
