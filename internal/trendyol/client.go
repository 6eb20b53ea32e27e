package trendyol

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"trendyol-sync-api/internal/model"
)

// DefaultBaseURL is Trendyol's supplier gateway.
const DefaultBaseURL = "https://api.trendyol.com/sapigw"

// Credentials authenticate requests for one supplier account.
type Credentials struct {
	SupplierID string
	APIKey     string
	APISecret  string
}

// CredentialsFunc supplies current credentials per request, so a settings
// update takes effect without rebuilding the client.
type CredentialsFunc func(ctx context.Context) (Credentials, error)

// APIError is a non-2xx response from the marketplace.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("trendyol API error: status=%d body=%s", e.StatusCode, e.Body)
}

// ProductPage is the paginated product list envelope.
type ProductPage struct {
	Content       []model.RemoteProduct `json:"content"`
	TotalElements int64                 `json:"totalElements"`
	TotalPages    int                   `json:"totalPages"`
	Page          int                   `json:"page"`
	Size          int                   `json:"size"`
}

// OrderPage is the paginated order list envelope.
type OrderPage struct {
	Content       []model.RemoteOrder `json:"content"`
	TotalElements int64               `json:"totalElements"`
	TotalPages    int                 `json:"totalPages"`
	Page          int                 `json:"page"`
	Size          int                 `json:"size"`
}

// API is the remote marketplace boundary consumed by the sync services.
type API interface {
	// GetProducts lists the supplier's products; pagination is zero-based.
	GetProducts(ctx context.Context, page, size int) (*ProductPage, error)

	// GetOrders lists orders in the given ISO-8601 UTC date range.
	GetOrders(ctx context.Context, startDate, endDate string, page, size int) (*OrderPage, error)

	// GetOrderDetail fetches a single order by its marketplace id.
	GetOrderDetail(ctx context.Context, orderID string) (*model.RemoteOrder, error)

	// UpdatePriceAndInventory pushes stock/price changes to the marketplace.
	UpdatePriceAndInventory(ctx context.Context, items []model.StockDelta) error

	// UpdateOrderStatus pushes an order status change to the marketplace.
	UpdateOrderStatus(ctx context.Context, orderID string, status model.OrderStatus) error

	// CheckConnection verifies explicit credentials with a minimal request.
	CheckConnection(ctx context.Context, creds Credentials) error
}

// Client is the HTTP implementation of API.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	credentials CredentialsFunc
}

// NewClient creates a marketplace client. creds must not be nil. A zero
// timeout falls back to 30 seconds.
func NewClient(baseURL string, timeout time.Duration, creds CredentialsFunc) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: timeout},
		credentials: creds,
	}
}

func authHeader(creds Credentials) string {
	token := base64.StdEncoding.EncodeToString([]byte(creds.APIKey + ":" + creds.APISecret))
	return "Basic " + token
}

func (c *Client) do(ctx context.Context, creds Credentials, method, path string, query url.Values, body interface{}, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", authHeader(creds))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", creds.SupplierID+" - Trendyol-Integration")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("trendyol request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) resolve(ctx context.Context) (Credentials, error) {
	creds, err := c.credentials(ctx)
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to resolve credentials: %w", err)
	}
	return creds, nil
}

// GetProducts lists the supplier's products.
func (c *Client) GetProducts(ctx context.Context, page, size int) (*ProductPage, error) {
	creds, err := c.resolve(ctx)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))

	var out ProductPage
	path := fmt.Sprintf("/suppliers/%s/products", creds.SupplierID)
	if err := c.do(ctx, creds, http.MethodGet, path, q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetOrders lists orders in the given date range.
func (c *Client) GetOrders(ctx context.Context, startDate, endDate string, page, size int) (*OrderPage, error) {
	creds, err := c.resolve(ctx)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	if startDate != "" {
		q.Set("startDate", startDate)
	}
	if endDate != "" {
		q.Set("endDate", endDate)
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))

	var out OrderPage
	path := fmt.Sprintf("/suppliers/%s/orders", creds.SupplierID)
	if err := c.do(ctx, creds, http.MethodGet, path, q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetOrderDetail fetches a single order.
func (c *Client) GetOrderDetail(ctx context.Context, orderID string) (*model.RemoteOrder, error) {
	creds, err := c.resolve(ctx)
	if err != nil {
		return nil, err
	}

	var out model.RemoteOrder
	path := fmt.Sprintf("/suppliers/%s/orders/%s", creds.SupplierID, url.PathEscape(orderID))
	if err := c.do(ctx, creds, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdatePriceAndInventory pushes stock/price changes to the marketplace.
func (c *Client) UpdatePriceAndInventory(ctx context.Context, items []model.StockDelta) error {
	creds, err := c.resolve(ctx)
	if err != nil {
		return err
	}

	payload := map[string]interface{}{"items": items}
	path := fmt.Sprintf("/suppliers/%s/products/price-and-inventory", creds.SupplierID)
	return c.do(ctx, creds, http.MethodPut, path, nil, payload, nil)
}

// UpdateOrderStatus pushes an order status change to the marketplace.
func (c *Client) UpdateOrderStatus(ctx context.Context, orderID string, status model.OrderStatus) error {
	creds, err := c.resolve(ctx)
	if err != nil {
		return err
	}

	payload := map[string]interface{}{"status": status}
	path := fmt.Sprintf("/suppliers/%s/orders/%s/status", creds.SupplierID, url.PathEscape(orderID))
	return c.do(ctx, creds, http.MethodPut, path, nil, payload, nil)
}

// CheckConnection verifies explicit credentials with a minimal product list
// request, bypassing the configured credentials.
func (c *Client) CheckConnection(ctx context.Context, creds Credentials) error {
	q := url.Values{}
	q.Set("page", "0")
	q.Set("size", "1")

	var out ProductPage
	path := fmt.Sprintf("/suppliers/%s/products", creds.SupplierID)
	return c.do(ctx, creds, http.MethodGet, path, q, nil, &out)
}

// Ensure Client implements API
var _ API = (*Client)(nil)
