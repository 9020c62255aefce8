package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/armangral/atta-chakki-tracker-app/internal/sales/domain"
	r "github.com/armangral/atta-chakki-tracker-app/internal/sales/repository"
	s "github.com/armangral/atta-chakki-tracker-app/internal/sales/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// SalesService is the slice of the sales layer the HTTP surface needs.
type SalesService interface {
	Checkout(ctx context.Context, operator domain.Operator, req domain.CheckoutRequest) (*domain.CheckoutResult, error)
	ListSales(ctx context.Context, filter domain.ListFilter) ([]domain.Sale, error)
	GetBill(ctx context.Context, billID uuid.UUID) (*domain.CheckoutResult, error)
	DeleteSale(ctx context.Context, saleID uuid.UUID) error
}

type SalesHandler struct {
	service SalesService
	timeout time.Duration
}

func NewSalesHandler(service SalesService, timeout time.Duration) *SalesHandler {
	return &SalesHandler{
		service: service,
		timeout: timeout,
	}
}

func (h *SalesHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	operator, ok := getOperatorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing operator identity")
		return
	}

	var req domain.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	result, err := h.service.Checkout(ctx, operator, req)
	if err != nil {
		handleSalesError(w, err)
		return
	}

	log.Printf("checkout %s: bill %s, %s items for %s (request %s)",
		operator.Name, result.BillID, result.TotalQuantity, result.TotalAmount, getRequestID(r.Context()))
	respondJSON(w, http.StatusCreated, result)
}

func (h *SalesHandler) ListSales(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	filter, err := parseListFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_filter", err.Error())
		return
	}

	sales, err := h.service.ListSales(ctx, filter)
	if err != nil {
		handleSalesError(w, err)
		return
	}

	if sales == nil {
		sales = []domain.Sale{}
	}
	respondJSON(w, http.StatusOK, sales)
}

func (h *SalesHandler) GetBill(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	billID, err := uuid.Parse(chi.URLParam(r, "bill_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_bill_id", "bill_id must be a UUID")
		return
	}

	result, err := h.service.GetBill(ctx, billID)
	if err != nil {
		handleSalesError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (h *SalesHandler) DeleteSale(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	saleID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_sale_id", "id must be a UUID")
		return
	}

	if err := h.service.DeleteSale(ctx, saleID); err != nil {
		handleSalesError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseListFilter(req *http.Request) (domain.ListFilter, error) {
	var filter domain.ListFilter
	query := req.URL.Query()

	if v := query.Get("operator_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return filter, errors.New("operator_id must be a UUID")
		}
		filter.OperatorID = &id
	}
	if v := query.Get("bill_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return filter, errors.New("bill_id must be a UUID")
		}
		filter.BillID = &id
	}
	if v := query.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, errors.New("from must be RFC3339")
		}
		filter.From = &t
	}
	if v := query.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, errors.New("to must be RFC3339")
		}
		filter.To = &t
	}
	if v := query.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, errors.New("limit must be a non-negative integer")
		}
		filter.Limit = n
	}

	return filter, nil
}

func handleSalesError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, s.ErrNoItems):
		respondError(w, http.StatusBadRequest, "no_items", err.Error())
	case errors.Is(err, s.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, "invalid_quantity", err.Error())
	case errors.Is(err, s.ErrMissingIdempotency):
		respondError(w, http.StatusBadRequest, "missing_idempotency_key", err.Error())
	case errors.Is(err, r.ErrInsufficientStock):
		respondError(w, http.StatusConflict, "insufficient_stock", err.Error())
	case errors.Is(err, r.ErrProductInactive):
		respondError(w, http.StatusConflict, "product_inactive", err.Error())
	case errors.Is(err, r.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "product_not_found", err.Error())
	case errors.Is(err, r.ErrBillNotFound):
		respondError(w, http.StatusNotFound, "bill_not_found", err.Error())
	case errors.Is(err, r.ErrSaleNotFound):
		respondError(w, http.StatusNotFound, "sale_not_found", err.Error())
	default:
		log.Printf("sales handler error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
