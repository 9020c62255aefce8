package repository

import (
	"context"
	"errors"
	"time"

	catalog "github.com/armangral/atta-chakki-tracker-app/internal/catalog/domain"
	"github.com/armangral/atta-chakki-tracker-app/internal/sales/domain"
	"github.com/google/uuid"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrProductInactive   = errors.New("product is inactive")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrSaleNotFound      = errors.New("sale not found")
	ErrBillNotFound      = errors.New("bill not found")
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

type OutboxEvent struct {
	ID          uuid.UUID
	AggregateId string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

type RepoInterface interface {
	// Checkout persists one sale row per item, all under one new bill id,
	// and decrements each product's stock in the same transaction. If any
	// item exceeds current stock the whole call fails with no partial
	// writes. A repeated idempotency key replays the original bill.
	Checkout(ctx context.Context, operator domain.Operator, req domain.CheckoutRequest) (*domain.CheckoutResult, error)

	ListSales(ctx context.Context, filter domain.ListFilter) ([]domain.Sale, error)
	GetBill(ctx context.Context, billID uuid.UUID) ([]domain.Sale, error)
	DeleteSale(ctx context.Context, saleID uuid.UUID) error

	ListProducts(ctx context.Context, status catalog.ProductStatus) ([]catalog.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*catalog.Product, error)
	CreateProduct(ctx context.Context, product *catalog.Product) error

	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, eventID uuid.UUID) error

	RunMigrations(*Credentials) error
	Close() error
}
