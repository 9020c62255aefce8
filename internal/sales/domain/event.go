package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const EventTypeSaleRecorded = "sale-recorded"

// EventItem is one line of a sale-recorded outbox event. It carries the
// stock level left after the decrement and the product's threshold so
// downstream consumers can flag low stock without a catalog lookup.
type EventItem struct {
	ProductID         string          `json:"product_id"`
	ProductName       string          `json:"product_name"`
	Quantity          decimal.Decimal `json:"quantity"`
	Total             decimal.Decimal `json:"total"`
	StockAfter        decimal.Decimal `json:"stock_after"`
	LowStockThreshold decimal.Decimal `json:"low_stock_threshold"`
}

type SaleRecordedEvent struct {
	BillID       string          `json:"bill_id"`
	OperatorID   string          `json:"operator_id"`
	OperatorName string          `json:"operator_name"`
	Items        []EventItem     `json:"items"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Date         time.Time       `json:"date"`
}
