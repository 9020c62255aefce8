package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/armangral/atta-chakki-tracker-app/internal/billing"
	cartdomain "github.com/armangral/atta-chakki-tracker-app/internal/cart/domain"
	cartsvc "github.com/armangral/atta-chakki-tracker-app/internal/cart/service"
	catalog "github.com/armangral/atta-chakki-tracker-app/internal/catalog/domain"
	checkoutsvc "github.com/armangral/atta-chakki-tracker-app/internal/checkout/service"
	"github.com/armangral/atta-chakki-tracker-app/internal/journal"
	"github.com/armangral/atta-chakki-tracker-app/internal/receipt"
	"github.com/armangral/atta-chakki-tracker-app/internal/sales/domain"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Snapshots interface {
	Snapshot(ctx context.Context) (*catalog.Snapshot, error)
}

type CartManager interface {
	Get(operatorID uuid.UUID) *cartdomain.Cart
	AddOrUpdate(ctx context.Context, operatorID, productID uuid.UUID, quantity decimal.Decimal) (*cartdomain.Cart, error)
	Remove(operatorID, productID uuid.UUID) *cartdomain.Cart
	Clear(operatorID uuid.UUID)
}

type CheckoutProcessor interface {
	Checkout(ctx context.Context, operator domain.Operator) (*billing.Bill, error)
	LastBill(operatorID uuid.UUID) (billing.Bill, bool)
}

// SalesReader is the read side of the sales API the POS needs for the
// grouped sales log and reprints.
type SalesReader interface {
	ListSales(ctx context.Context, filter domain.ListFilter) ([]domain.Sale, error)
	GetBill(ctx context.Context, billID uuid.UUID) (*domain.CheckoutResult, error)
}

type DayJournal interface {
	ListDay(ctx context.Context, operatorID uuid.UUID, day time.Time) ([]journal.Entry, error)
}

type POSHandler struct {
	snapshots Snapshots
	carts     CartManager
	checkout  CheckoutProcessor
	sales     SalesReader
	journal   DayJournal
	timeout   time.Duration
}

func NewPOSHandler(snapshots Snapshots, carts CartManager, checkout CheckoutProcessor, sales SalesReader, dayJournal DayJournal, timeout time.Duration) *POSHandler {
	return &POSHandler{
		snapshots: snapshots,
		carts:     carts,
		checkout:  checkout,
		sales:     sales,
		journal:   dayJournal,
		timeout:   timeout,
	}
}

type AddCartItemRequestDTO struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

type CartDTO struct {
	OperatorID uuid.UUID             `json:"operator_id"`
	Items      []cartdomain.CartItem `json:"items"`
	Total      decimal.Decimal       `json:"total"`
}

type BillDTO struct {
	Key           string          `json:"key"`
	Grouped       bool            `json:"grouped"`
	OperatorName  string          `json:"operator_name"`
	Date          time.Time       `json:"date"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	TotalQuantity decimal.Decimal `json:"total_quantity"`
	Items         []string        `json:"items"`
	Lines         []domain.Sale   `json:"lines"`
}

func cartDTO(cart *cartdomain.Cart) CartDTO {
	items := cart.Items
	if items == nil {
		items = []cartdomain.CartItem{}
	}
	return CartDTO{OperatorID: cart.OperatorID, Items: items, Total: cart.Total()}
}

func billDTO(bill billing.Bill) BillDTO {
	return BillDTO{
		Key:           bill.Key.String(),
		Grouped:       bill.Key.Grouped(),
		OperatorName:  bill.OperatorName(),
		Date:          bill.Date(),
		TotalAmount:   bill.TotalAmount(),
		TotalQuantity: bill.TotalQuantity(),
		Items:         bill.ItemSummaries(),
		Lines:         bill.Lines,
	}
}

func (h *POSHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	snapshot, err := h.snapshots.Snapshot(ctx)
	if err != nil {
		log.Printf("catalog snapshot error: %v", err)
		respondError(w, http.StatusServiceUnavailable, "catalog_unavailable", "catalog is unavailable")
		return
	}

	respondJSON(w, http.StatusOK, snapshot)
}

func (h *POSHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	operator, ok := getOperatorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing operator identity")
		return
	}

	respondJSON(w, http.StatusOK, cartDTO(h.carts.Get(operator.ID)))
}

func (h *POSHandler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	operator, ok := getOperatorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing operator identity")
		return
	}

	var req AddCartItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID == uuid.Nil {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	cart, err := h.carts.AddOrUpdate(ctx, operator.ID, req.ProductID, req.Quantity)
	if err != nil {
		handleCartError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, cartDTO(cart))
}

func (h *POSHandler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	operator, ok := getOperatorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing operator identity")
		return
	}

	productID, err := uuid.Parse(chi.URLParam(r, "product_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a UUID")
		return
	}

	respondJSON(w, http.StatusOK, cartDTO(h.carts.Remove(operator.ID, productID)))
}

func (h *POSHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	operator, ok := getOperatorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing operator identity")
		return
	}

	h.carts.Clear(operator.ID)
	respondJSON(w, http.StatusOK, cartDTO(&cartdomain.Cart{OperatorID: operator.ID}))
}

func (h *POSHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	operator, ok := getOperatorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing operator identity")
		return
	}

	bill, err := h.checkout.Checkout(ctx, operator)
	if err != nil {
		if errors.Is(err, checkoutsvc.ErrEmptyCart) {
			respondError(w, http.StatusBadRequest, "empty_cart", err.Error())
			return
		}
		handleSalesError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, billDTO(*bill))
}

func (h *POSHandler) ListBills(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	filter, err := parseListFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_filter", err.Error())
		return
	}

	sales, err := h.sales.ListSales(ctx, filter)
	if err != nil {
		handleSalesError(w, err)
		return
	}

	bills := billing.Group(sales)
	dtos := make([]BillDTO, 0, len(bills))
	for _, bill := range bills {
		dtos = append(dtos, billDTO(bill))
	}
	respondJSON(w, http.StatusOK, dtos)
}

// LastReceipt reprints the operator's most recent bill from this device.
func (h *POSHandler) LastReceipt(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	operator, ok := getOperatorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing operator identity")
		return
	}

	bill, ok := h.checkout.LastBill(operator.ID)
	if !ok {
		respondError(w, http.StatusNotFound, "no_last_bill", "no completed bill on this device")
		return
	}

	h.respondReceipt(ctx, w, r, bill)
}

// BillReceipt reprints any bill by id, fetched from the sales service.
func (h *POSHandler) BillReceipt(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	billID, err := uuid.Parse(chi.URLParam(r, "bill_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_bill_id", "bill_id must be a UUID")
		return
	}

	result, err := h.sales.GetBill(ctx, billID)
	if err != nil {
		handleSalesError(w, err)
		return
	}

	h.respondReceipt(ctx, w, r, billing.FromCheckout(result))
}

func (h *POSHandler) respondReceipt(ctx context.Context, w http.ResponseWriter, r *http.Request, bill billing.Bill) {
	// a stale or missing snapshot degrades the receipt, never blocks it
	snapshot, err := h.snapshots.Snapshot(ctx)
	if err != nil {
		log.Printf("receipt snapshot error: %v", err)
		snapshot = nil
	}

	rendered := receipt.Render(bill, snapshot)
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(rendered.Text())); err != nil {
			log.Printf("failed to write receipt: %v", err)
		}
		return
	}

	respondJSON(w, http.StatusOK, rendered)
}

func (h *POSHandler) JournalToday(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	operator, ok := getOperatorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing operator identity")
		return
	}

	entries, err := h.journal.ListDay(ctx, operator.ID, time.Now())
	if err != nil {
		log.Printf("journal list error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	if entries == nil {
		entries = []journal.Entry{}
	}
	respondJSON(w, http.StatusOK, entries)
}

func handleCartError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cartsvc.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, "invalid_quantity", err.Error())
	case errors.Is(err, cartsvc.ErrInsufficientStock):
		respondError(w, http.StatusConflict, "insufficient_stock", err.Error())
	case errors.Is(err, cartsvc.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "product_not_found", err.Error())
	default:
		log.Printf("cart handler error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
