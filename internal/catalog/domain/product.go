package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ProductStatus string

const (
	StatusActive   ProductStatus = "active"
	StatusInactive ProductStatus = "inactive"
)

type Product struct {
	ID                uuid.UUID       `json:"id"`
	Name              string          `json:"name"`
	Category          string          `json:"category"`
	Unit              string          `json:"unit"`
	Price             decimal.Decimal `json:"price"`
	Stock             decimal.Decimal `json:"stock"`
	LowStockThreshold decimal.Decimal `json:"low_stock_threshold"`
	Status            ProductStatus   `json:"status"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (p Product) IsActive() bool {
	return p.Status == StatusActive
}

func (p Product) IsLowStock() bool {
	return p.Stock.LessThanOrEqual(p.LowStockThreshold)
}

// Snapshot is the most recently fetched view of the catalog. The POS
// validates cart quantities against it; the sales service remains the
// authority at checkout time.
type Snapshot struct {
	Products  []Product `json:"products"`
	FetchedAt time.Time `json:"fetched_at"`
}

func NewSnapshot(products []Product) *Snapshot {
	return &Snapshot{Products: products, FetchedAt: time.Now()}
}

func (s *Snapshot) Find(id uuid.UUID) (Product, bool) {
	for _, p := range s.Products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}
