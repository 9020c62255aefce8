package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	catalog "github.com/armangral/atta-chakki-tracker-app/internal/catalog/domain"
	r "github.com/armangral/atta-chakki-tracker-app/internal/sales/repository"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ProductService interface {
	ListProducts(ctx context.Context, status catalog.ProductStatus) ([]catalog.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*catalog.Product, error)
	CreateProduct(ctx context.Context, product *catalog.Product) error
}

type ProductHandler struct {
	service ProductService
	timeout time.Duration
}

func NewProductHandler(service ProductService, timeout time.Duration) *ProductHandler {
	return &ProductHandler{
		service: service,
		timeout: timeout,
	}
}

type CreateProductRequestDTO struct {
	Name              string          `json:"name"`
	Category          string          `json:"category"`
	Unit              string          `json:"unit"`
	Price             decimal.Decimal `json:"price"`
	Stock             decimal.Decimal `json:"stock"`
	LowStockThreshold decimal.Decimal `json:"low_stock_threshold"`
}

// ProductDTO adds the derived is_low_stock flag the admin screens show.
type ProductDTO struct {
	catalog.Product
	IsLowStock bool `json:"is_low_stock"`
}

func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	status := catalog.ProductStatus(r.URL.Query().Get("status"))
	if status != "" && status != catalog.StatusActive && status != catalog.StatusInactive {
		respondError(w, http.StatusBadRequest, "invalid_status", "status must be active or inactive")
		return
	}

	products, err := h.service.ListProducts(ctx, status)
	if err != nil {
		log.Printf("list products error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	dtos := make([]ProductDTO, 0, len(products))
	for _, p := range products {
		dtos = append(dtos, ProductDTO{Product: p, IsLowStock: p.IsLowStock()})
	}
	respondJSON(w, http.StatusOK, dtos)
}

func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "id must be a UUID")
		return
	}

	product, err := h.service.GetProduct(ctx, id)
	if err != nil {
		handleProductError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, ProductDTO{Product: *product, IsLowStock: product.IsLowStock()})
}

func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CreateProductRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	product := &catalog.Product{
		Name:              req.Name,
		Category:          req.Category,
		Unit:              req.Unit,
		Price:             req.Price,
		Stock:             req.Stock,
		LowStockThreshold: req.LowStockThreshold,
		Status:            catalog.StatusActive,
	}

	if err := h.service.CreateProduct(ctx, product); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_product", err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, ProductDTO{Product: *product, IsLowStock: product.IsLowStock()})
}

func handleProductError(w http.ResponseWriter, err error) {
	if errors.Is(err, r.ErrProductNotFound) {
		respondError(w, http.StatusNotFound, "product_not_found", err.Error())
		return
	}
	log.Printf("product handler error: %v", err)
	respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}
