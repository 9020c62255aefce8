package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Alert is one low-stock observation for a product, written when a sale
// leaves the stock at or below the product's threshold.
type Alert struct {
	ProductID   string          `bson:"product_id" json:"product_id"`
	ProductName string          `bson:"product_name" json:"product_name"`
	StockAfter  decimal.Decimal `bson:"stock_after" json:"stock_after"`
	Threshold   decimal.Decimal `bson:"threshold" json:"threshold"`
	BillID      string          `bson:"bill_id" json:"bill_id"`
	ObservedAt  time.Time       `bson:"observed_at" json:"observed_at"`
}

type AlertRepository interface {
	SaveAlert(ctx context.Context, alert *Alert) error
	ListRecent(ctx context.Context, limit int64) ([]Alert, error)
	CreateIndexes(ctx context.Context) error
}
