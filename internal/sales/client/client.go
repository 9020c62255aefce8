package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	catalog "github.com/armangral/atta-chakki-tracker-app/internal/catalog/domain"
	"github.com/armangral/atta-chakki-tracker-app/internal/sales/domain"
	r "github.com/armangral/atta-chakki-tracker-app/internal/sales/repository"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Client is the POS side of the sales API. Business rejections (409, 404,
// 422) come back as the repository's sentinel errors so callers can
// errors.Is against one set of values on both sides of the wire.
type Client struct {
	baseURL  string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker[*apiResponse]
	operator domain.Operator
}

type apiResponse struct {
	status int
	body   []byte
}

type errorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func New(baseURL string, operator domain.Operator, timeout time.Duration) *Client {
	settings := gobreaker.Settings{
		Name:        "sales-api",
		MaxRequests: 3,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker:  gobreaker.NewCircuitBreaker[*apiResponse](settings),
		operator: operator,
	}
}

func (c *Client) FetchActiveProducts(ctx context.Context) ([]catalog.Product, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/products?status=active", nil, nil)
	if err != nil {
		return nil, err
	}
	var products []catalog.Product
	if err := decode(resp, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// Checkout submits on behalf of the acting operator, not the device
// identity, so the sale rows carry the right operator name.
func (c *Client) Checkout(ctx context.Context, operator domain.Operator, req domain.CheckoutRequest) (*domain.CheckoutResult, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/v1/sales/checkout", req, &operator)
	if err != nil {
		return nil, err
	}
	var result domain.CheckoutResult
	if err := decode(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) ListSales(ctx context.Context, filter domain.ListFilter) ([]domain.Sale, error) {
	query := url.Values{}
	if filter.OperatorID != nil {
		query.Set("operator_id", filter.OperatorID.String())
	}
	if filter.BillID != nil {
		query.Set("bill_id", filter.BillID.String())
	}
	if filter.From != nil {
		query.Set("from", filter.From.Format(time.RFC3339))
	}
	if filter.To != nil {
		query.Set("to", filter.To.Format(time.RFC3339))
	}
	if filter.Limit > 0 {
		query.Set("limit", strconv.Itoa(filter.Limit))
	}
	path := "/api/v1/sales"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	resp, err := c.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	var sales []domain.Sale
	if err := decode(resp, &sales); err != nil {
		return nil, err
	}
	return sales, nil
}

func (c *Client) GetBill(ctx context.Context, billID uuid.UUID) (*domain.CheckoutResult, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/sales/bill/"+billID.String(), nil, nil)
	if err != nil {
		return nil, err
	}
	var result domain.CheckoutResult
	if err := decode(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) DeleteSale(ctx context.Context, saleID uuid.UUID) error {
	resp, err := c.do(ctx, http.MethodDelete, "/api/v1/sales/"+saleID.String(), nil, nil)
	if err != nil {
		return err
	}
	if resp.status >= http.StatusBadRequest {
		return apiError(resp)
	}
	return nil
}

// do runs one request through the breaker. Only transport failures and 5xx
// responses count against the breaker; business rejections are healthy
// traffic and must not trip it.
func (c *Client) do(ctx context.Context, method, path string, payload any, operator *domain.Operator) (*apiResponse, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if operator == nil {
		operator = &c.operator
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Operator-Id", operator.ID.String())
	req.Header.Set("X-Operator-Name", operator.Name)

	resp, err := c.breaker.Execute(func() (*apiResponse, error) {
		httpResp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("sales api unreachable: %w", err)
		}
		defer httpResp.Body.Close()

		data, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}
		if httpResp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("sales api error: %s", strings.TrimSpace(string(data)))
		}
		return &apiResponse{status: httpResp.StatusCode, body: data}, nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func decode(resp *apiResponse, out any) error {
	if resp.status >= http.StatusBadRequest {
		return apiError(resp)
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func apiError(resp *apiResponse) error {
	var body errorBody
	if err := json.Unmarshal(resp.body, &body); err != nil {
		return fmt.Errorf("sales api returned %d", resp.status)
	}

	switch body.Code {
	case "insufficient_stock":
		return r.ErrInsufficientStock
	case "product_not_found":
		return r.ErrProductNotFound
	case "product_inactive":
		return r.ErrProductInactive
	case "bill_not_found":
		return r.ErrBillNotFound
	case "sale_not_found":
		return r.ErrSaleNotFound
	}
	return fmt.Errorf("sales api returned %d: %s", resp.status, body.Error)
}
