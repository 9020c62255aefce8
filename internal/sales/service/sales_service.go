package service

import (
	"context"
	"errors"
	"time"

	catalog "github.com/armangral/atta-chakki-tracker-app/internal/catalog/domain"
	"github.com/armangral/atta-chakki-tracker-app/internal/sales/domain"
	r "github.com/armangral/atta-chakki-tracker-app/internal/sales/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNoItems            = errors.New("checkout request has no items")
	ErrInvalidQuantity    = errors.New("quantity must be positive")
	ErrMissingIdempotency = errors.New("idempotency key is required")
)

type SalesService struct {
	repo r.RepoInterface
}

func NewSalesService(repo r.RepoInterface) *SalesService {
	return &SalesService{repo: repo}
}

// Checkout validates the request and hands it to the repository, which
// performs the all-or-nothing insert-and-decrement.
func (s *SalesService) Checkout(ctx context.Context, operator domain.Operator, req domain.CheckoutRequest) (*domain.CheckoutResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrNoItems
	}
	if req.IdempotencyKey == "" {
		return nil, ErrMissingIdempotency
	}
	for _, item := range req.Items {
		if item.Quantity.LessThanOrEqual(decimal.Zero) {
			return nil, ErrInvalidQuantity
		}
	}
	if req.Date.IsZero() {
		req.Date = time.Now()
	}

	return s.repo.Checkout(ctx, operator, req)
}

func (s *SalesService) ListSales(ctx context.Context, filter domain.ListFilter) ([]domain.Sale, error) {
	return s.repo.ListSales(ctx, filter)
}

func (s *SalesService) GetBill(ctx context.Context, billID uuid.UUID) (*domain.CheckoutResult, error) {
	sales, err := s.repo.GetBill(ctx, billID)
	if err != nil {
		return nil, err
	}

	result := &domain.CheckoutResult{BillID: billID}
	for _, sale := range sales {
		result.Items = append(result.Items, sale)
		result.TotalAmount = result.TotalAmount.Add(sale.Total)
		result.TotalQuantity = result.TotalQuantity.Add(sale.Quantity)
		result.OperatorName = sale.OperatorName
		result.Date = sale.Date
	}
	return result, nil
}

func (s *SalesService) DeleteSale(ctx context.Context, saleID uuid.UUID) error {
	return s.repo.DeleteSale(ctx, saleID)
}

func (s *SalesService) ListProducts(ctx context.Context, status catalog.ProductStatus) ([]catalog.Product, error) {
	return s.repo.ListProducts(ctx, status)
}

func (s *SalesService) GetProduct(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	return s.repo.GetProduct(ctx, id)
}

func (s *SalesService) CreateProduct(ctx context.Context, product *catalog.Product) error {
	if product.Name == "" {
		return errors.New("product name is required")
	}
	if product.Price.LessThan(decimal.Zero) {
		return errors.New("product price cannot be negative")
	}
	if product.Stock.LessThan(decimal.Zero) {
		return errors.New("product stock cannot be negative")
	}
	return s.repo.CreateProduct(ctx, product)
}
