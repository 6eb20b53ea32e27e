package model

import "errors"

// RecordKind discriminates the RemoteRecord variants.
type RecordKind string

const (
	KindProduct RecordKind = "product"
	KindOrder   RecordKind = "order"
	KindStock   RecordKind = "stock"
)

// Validation errors surfaced as per-record outcome details.
var (
	ErrMissingKey      = errors.New("missing natural key")
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrInvalidPrice    = errors.New("invalid price")
	ErrEmptyRecord     = errors.New("empty remote record")
)

// RemoteProduct is a product as the marketplace reports it. All fields are
// remote-owned and overwrite the local record on reconciliation.
type RemoteProduct struct {
	Barcode           string         `json:"barcode"`
	Title             string         `json:"title"`
	ProductMainID     string         `json:"productMainId"`
	BrandID           int64          `json:"brandId"`
	CategoryID        int64          `json:"categoryId"`
	Quantity          int            `json:"quantity"`
	StockCode         string         `json:"stockCode"`
	DimensionalWeight float64        `json:"dimensionalWeight"`
	Description       string         `json:"description"`
	CurrencyType      string         `json:"currencyType"`
	ListPrice         float64        `json:"listPrice"`
	SalePrice         float64        `json:"salePrice"`
	VatRate           int            `json:"vatRate"`
	CargoCompanyID    int64          `json:"cargoCompanyId"`
	Images            []ProductImage `json:"images"`
}

// RemoteOrder is an order as the marketplace reports it. The marketplace
// sends the order id as "id" on list/detail responses. TotalPrice is a
// pointer so a partial payload that omits it is distinguishable from an
// explicit zero (full refund).
type RemoteOrder struct {
	OrderID    string      `json:"id"`
	Status     OrderStatus `json:"status"`
	CustomerID string      `json:"customerId"`
	TotalPrice *float64    `json:"totalPrice"`
	Items      []OrderItem `json:"items"`
}

// StockDelta is a partial product update: only the fields present are
// applied. Used by stock syncs, push confirmations and webhooks.
type StockDelta struct {
	Barcode   string   `json:"barcode"`
	Quantity  *int     `json:"quantity,omitempty"`
	ListPrice *float64 `json:"listPrice,omitempty"`
	SalePrice *float64 `json:"salePrice,omitempty"`
}

// RemoteRecord is the tagged variant handed to the reconciler. Exactly one
// of Product, Order, Stock is set, matching Kind.
type RemoteRecord struct {
	Kind    RecordKind
	Product *RemoteProduct
	Order   *RemoteOrder
	Stock   *StockDelta
}

// ProductRecord wraps a remote product for reconciliation.
func ProductRecord(p RemoteProduct) RemoteRecord {
	return RemoteRecord{Kind: KindProduct, Product: &p}
}

// OrderRecord wraps a remote order for reconciliation.
func OrderRecord(o RemoteOrder) RemoteRecord {
	return RemoteRecord{Kind: KindOrder, Order: &o}
}

// StockRecord wraps a partial stock/price update for reconciliation.
func StockRecord(d StockDelta) RemoteRecord {
	return RemoteRecord{Kind: KindStock, Stock: &d}
}

// Key returns the natural key of the record: barcode for products and stock
// deltas, order id for orders.
func (r RemoteRecord) Key() string {
	switch r.Kind {
	case KindProduct:
		if r.Product != nil {
			return r.Product.Barcode
		}
	case KindOrder:
		if r.Order != nil {
			return r.Order.OrderID
		}
	case KindStock:
		if r.Stock != nil {
			return r.Stock.Barcode
		}
	}
	return ""
}

// Validate checks the record before any store access.
func (r RemoteRecord) Validate() error {
	switch r.Kind {
	case KindProduct:
		if r.Product == nil {
			return ErrEmptyRecord
		}
		if r.Product.Barcode == "" {
			return ErrMissingKey
		}
		if r.Product.Quantity < 0 {
			return ErrInvalidQuantity
		}
		if r.Product.ListPrice < 0 || r.Product.SalePrice < 0 {
			return ErrInvalidPrice
		}
	case KindOrder:
		if r.Order == nil {
			return ErrEmptyRecord
		}
		if r.Order.OrderID == "" {
			return ErrMissingKey
		}
		if r.Order.TotalPrice != nil && *r.Order.TotalPrice < 0 {
			return ErrInvalidPrice
		}
	case KindStock:
		if r.Stock == nil {
			return ErrEmptyRecord
		}
		if r.Stock.Barcode == "" {
			return ErrMissingKey
		}
		if r.Stock.Quantity != nil && *r.Stock.Quantity < 0 {
			return ErrInvalidQuantity
		}
		if (r.Stock.ListPrice != nil && *r.Stock.ListPrice < 0) ||
			(r.Stock.SalePrice != nil && *r.Stock.SalePrice < 0) {
			return ErrInvalidPrice
		}
		if r.Stock.Quantity == nil && r.Stock.ListPrice == nil && r.Stock.SalePrice == nil {
			return ErrEmptyRecord
		}
	default:
		return ErrEmptyRecord
	}
	return nil
}
