package model

import "time"

// OrderStatus is the marketplace's own status vocabulary. Values are stored
// verbatim; the rank table below only drives the terminal-state guard.
type OrderStatus string

const (
	OrderStatusNew        OrderStatus = "NEW"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
)

var orderStatusRank = map[OrderStatus]int{
	OrderStatusNew:        0,
	OrderStatusProcessing: 1,
	OrderStatusShipped:    2,
	OrderStatusCompleted:  3,
}

// Rank returns the position of the status in the order lifecycle.
// Unknown marketplace statuses rank below NEW.
func (s OrderStatus) Rank() int {
	if r, ok := orderStatusRank[s]; ok {
		return r
	}
	return -1
}

// Terminal reports whether the status ends the order lifecycle.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted
}

// Order is a locally persisted marketplace order, keyed by the
// remote-assigned order id.
type Order struct {
	ID         int64       `json:"id"`
	OrderID    string      `json:"orderId"`
	Status     OrderStatus `json:"status"`
	CustomerID string      `json:"customerId"`
	TotalPrice float64     `json:"totalPrice"`
	Items      []OrderItem `json:"items"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// OrderItem is a single order line.
type OrderItem struct {
	Barcode  string  `json:"barcode"`
	Title    string  `json:"title"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}
