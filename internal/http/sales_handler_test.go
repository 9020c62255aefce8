package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/armangral/atta-chakki-tracker-app/internal/sales/domain"
	r "github.com/armangral/atta-chakki-tracker-app/internal/sales/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSalesService struct {
	checkoutResult *domain.CheckoutResult
	checkoutErr    error
	sales          []domain.Sale
	lastFilter     domain.ListFilter
	billErr        error
	deleteErr      error
}

func (m *mockSalesService) Checkout(_ context.Context, operator domain.Operator, req domain.CheckoutRequest) (*domain.CheckoutResult, error) {
	if m.checkoutErr != nil {
		return nil, m.checkoutErr
	}
	result := *m.checkoutResult
	result.OperatorName = operator.Name
	return &result, nil
}

func (m *mockSalesService) ListSales(_ context.Context, filter domain.ListFilter) ([]domain.Sale, error) {
	m.lastFilter = filter
	return m.sales, nil
}

func (m *mockSalesService) GetBill(_ context.Context, billID uuid.UUID) (*domain.CheckoutResult, error) {
	if m.billErr != nil {
		return nil, m.billErr
	}
	return &domain.CheckoutResult{BillID: billID}, nil
}

func (m *mockSalesService) DeleteSale(context.Context, uuid.UUID) error {
	return m.deleteErr
}

func salesTestRouter(svc *mockSalesService) http.Handler {
	handler := NewSalesHandler(svc, 5*time.Second)
	return NewSalesRouter(handler, NewProductHandler(nil, 5*time.Second), 5*time.Second)
}

func doRequest(t *testing.T, handler http.Handler, method, path string, body any, operator bool) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if operator {
		req.Header.Set("X-Operator-Id", uuid.NewString())
		req.Header.Set("X-Operator-Name", "Ravi")
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestCheckoutHandler_Success(t *testing.T) {
	svc := &mockSalesService{
		checkoutResult: &domain.CheckoutResult{
			BillID:        uuid.New(),
			TotalAmount:   decimal.NewFromInt(164),
			TotalQuantity: decimal.NewFromInt(3),
		},
	}

	req := domain.CheckoutRequest{
		Items:          []domain.CheckoutItem{{ProductID: uuid.New(), Quantity: decimal.NewFromInt(2), Total: decimal.NewFromInt(84)}},
		IdempotencyKey: uuid.NewString(),
	}
	rec := doRequest(t, salesTestRouter(svc), http.MethodPost, "/api/v1/sales/checkout", req, true)

	require.Equal(t, http.StatusCreated, rec.Code)
	var result domain.CheckoutResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.TotalAmount.Equal(decimal.NewFromInt(164)))
	assert.Equal(t, "Ravi", result.OperatorName)
}

func TestCheckoutHandler_MissingOperator(t *testing.T) {
	rec := doRequest(t, salesTestRouter(&mockSalesService{}), http.MethodPost, "/api/v1/sales/checkout", domain.CheckoutRequest{}, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCheckoutHandler_InsufficientStock(t *testing.T) {
	svc := &mockSalesService{checkoutErr: r.ErrInsufficientStock}
	rec := doRequest(t, salesTestRouter(svc), http.MethodPost, "/api/v1/sales/checkout", domain.CheckoutRequest{}, true)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "insufficient_stock", decodeError(t, rec).Code)
}

func TestListSalesHandler_Filter(t *testing.T) {
	svc := &mockSalesService{}
	opID := uuid.New()

	rec := doRequest(t, salesTestRouter(svc), http.MethodGet, "/api/v1/sales/?operator_id="+opID.String()+"&limit=10", nil, true)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.lastFilter.OperatorID)
	assert.Equal(t, opID, *svc.lastFilter.OperatorID)
	assert.Equal(t, 10, svc.lastFilter.Limit)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestListSalesHandler_BadFilter(t *testing.T) {
	rec := doRequest(t, salesTestRouter(&mockSalesService{}), http.MethodGet, "/api/v1/sales/?operator_id=not-a-uuid", nil, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetBillHandler_NotFound(t *testing.T) {
	svc := &mockSalesService{billErr: r.ErrBillNotFound}
	rec := doRequest(t, salesTestRouter(svc), http.MethodGet, "/api/v1/sales/bill/"+uuid.NewString(), nil, true)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "bill_not_found", decodeError(t, rec).Code)
}

func TestGetBillHandler_BadID(t *testing.T) {
	rec := doRequest(t, salesTestRouter(&mockSalesService{}), http.MethodGet, "/api/v1/sales/bill/nope", nil, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteSaleHandler(t *testing.T) {
	rec := doRequest(t, salesTestRouter(&mockSalesService{}), http.MethodDelete, "/api/v1/sales/"+uuid.NewString(), nil, true)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	svc := &mockSalesService{deleteErr: r.ErrSaleNotFound}
	rec = doRequest(t, salesTestRouter(svc), http.MethodDelete, "/api/v1/sales/"+uuid.NewString(), nil, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
