package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sale is one persisted line item of one bill. Product and operator names
// are denormalized onto the row so the sales log survives later catalog or
// user edits. Rows are immutable after checkout; only an admin hard delete
// removes them.
type Sale struct {
	ID           uuid.UUID       `json:"id"`
	ProductID    uuid.UUID       `json:"product_id"`
	ProductName  string          `json:"product_name"`
	Quantity     decimal.Decimal `json:"quantity"`
	Total        decimal.Decimal `json:"total"`
	Date         time.Time       `json:"date"`
	OperatorID   uuid.UUID       `json:"operator_id"`
	OperatorName string          `json:"operator_name"`

	// BillID is shared by all line items created in one checkout. Legacy
	// single-item sales have no bill id; the grouper treats each of those
	// as its own singleton bill.
	BillID uuid.NullUUID `json:"bill_id"`
}

type Operator struct {
	ID   uuid.UUID
	Name string
}

type CheckoutItem struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	// Total as computed by the cart. Advisory: the sales service recomputes
	// from the catalog price and keeps the client value only when the two
	// agree to the paisa.
	Total decimal.Decimal `json:"total"`
}

type CheckoutRequest struct {
	Items          []CheckoutItem `json:"items"`
	Date           time.Time      `json:"date"`
	IdempotencyKey string         `json:"idempotency_key"`
}

type CheckoutResult struct {
	BillID        uuid.UUID       `json:"bill_id"`
	Items         []Sale          `json:"items"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	TotalQuantity decimal.Decimal `json:"total_quantity"`
	OperatorName  string          `json:"operator_name"`
	Date          time.Time       `json:"date"`
}

// ListFilter narrows a sales-log query.
type ListFilter struct {
	OperatorID *uuid.UUID
	BillID     *uuid.UUID
	From       *time.Time
	To         *time.Time
	Limit      int
}
