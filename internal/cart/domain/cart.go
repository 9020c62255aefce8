package domain

import (
	"time"

	catalog "github.com/armangral/atta-chakki-tracker-app/internal/catalog/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Cart struct {
	OperatorID uuid.UUID  `json:"operator_id"`
	Items      []CartItem `json:"items"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// CartItem pairs a product (as seen in the catalog snapshot at add time)
// with the requested quantity.
type CartItem struct {
	Product  catalog.Product `json:"product"`
	Quantity decimal.Decimal `json:"quantity"`
	AddedAt  time.Time       `json:"added_at"`
}

func (i CartItem) LineTotal() decimal.Decimal {
	return i.Quantity.Mul(i.Product.Price)
}

// Upsert replaces the entry for the item's product if one exists, keeping
// its position; otherwise appends. Adding the same product twice overwrites
// the quantity rather than summing it.
func (c *Cart) Upsert(item CartItem) {
	for i := range c.Items {
		if c.Items[i].Product.ID == item.Product.ID {
			c.Items[i] = item
			return
		}
	}
	c.Items = append(c.Items, item)
}

// Remove deletes the entry for productID. Returns false when absent.
func (c *Cart) Remove(productID uuid.UUID) bool {
	for i, item := range c.Items {
		if item.Product.ID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return true
		}
	}
	return false
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Total is a derived display value: sum of quantity x price over entries.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

func (c *Cart) Clone() *Cart {
	clone := *c
	clone.Items = make([]CartItem, len(c.Items))
	copy(clone.Items, c.Items)
	return &clone
}
