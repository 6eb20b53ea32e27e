package model

import "time"

// Product is a locally persisted catalog item, keyed by its Trendyol barcode.
// The barcode is immutable once the record exists.
type Product struct {
	ID                int64          `json:"id"`
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

	// LastStockUpdate and LastPriceUpdate are derived: the reconciler
	// refreshes them when quantity or a price field actually changes.
	// Callers never set them directly.
	LastStockUpdate time.Time `json:"lastStockUpdate"`
	LastPriceUpdate time.Time `json:"lastPriceUpdate"`

	CreatedAt time.Time `json:"createdAt"`
}

// ProductImage is one entry in a product's ordered image list.
type ProductImage struct {
	URL string `json:"url"`
}

// Defaults mirrored from the marketplace schema for locally created products.
const (
	DefaultCurrencyType   = "TRY"
	DefaultVatRate        = 18
	DefaultCargoCompanyID = 1
)
