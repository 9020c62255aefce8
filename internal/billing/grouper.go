package billing

import (
	"fmt"
	"sort"
	"time"

	"github.com/armangral/atta-chakki-tracker-app/internal/sales/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Key identifies one bill in the grouped sales log. A sale with a bill id
// groups under Grouped(bill_id); a legacy sale without one forms its own
// singleton bill under Ungrouped(sale_id). The variant is explicit so the
// fallback never masquerades as a real bill id.
type Key struct {
	grouped bool
	id      uuid.UUID
}

func GroupedKey(billID uuid.UUID) Key {
	return Key{grouped: true, id: billID}
}

func UngroupedKey(saleID uuid.UUID) Key {
	return Key{grouped: false, id: saleID}
}

func KeyFor(s domain.Sale) Key {
	if s.BillID.Valid {
		return GroupedKey(s.BillID.UUID)
	}
	return UngroupedKey(s.ID)
}

func (k Key) Grouped() bool { return k.grouped }

func (k Key) ID() uuid.UUID { return k.id }

func (k Key) String() string {
	if k.grouped {
		return "bill:" + k.id.String()
	}
	return "sale:" + k.id.String()
}

// Bill is one checkout transaction reconstructed from its line items.
// Derived on read for display and reprint, never stored.
type Bill struct {
	Key   Key
	Lines []domain.Sale
}

func (b Bill) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, line := range b.Lines {
		total = total.Add(line.Total)
	}
	return total
}

func (b Bill) TotalQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, line := range b.Lines {
		total = total.Add(line.Quantity)
	}
	return total
}

// Date of the bill's representative (first) line item.
func (b Bill) Date() time.Time {
	if len(b.Lines) == 0 {
		return time.Time{}
	}
	return b.Lines[0].Date
}

func (b Bill) OperatorName() string {
	if len(b.Lines) == 0 {
		return ""
	}
	return b.Lines[0].OperatorName
}

// ItemSummaries renders one "Name (qty)" entry per line item.
func (b Bill) ItemSummaries() []string {
	summaries := make([]string, len(b.Lines))
	for i, line := range b.Lines {
		summaries[i] = fmt.Sprintf("%s (%s)", line.ProductName, line.Quantity.String())
	}
	return summaries
}

// Group buckets flat sale rows into bills. Pure and stable: lines keep their
// input order within a bill, and bills are ordered by representative date
// descending with first-seen order breaking ties, so grouping the same input
// twice yields the same result.
func Group(sales []domain.Sale) []Bill {
	var order []Key
	buckets := make(map[Key]*Bill)

	for _, sale := range sales {
		key := KeyFor(sale)
		bill, ok := buckets[key]
		if !ok {
			bill = &Bill{Key: key}
			buckets[key] = bill
			order = append(order, key)
		}
		bill.Lines = append(bill.Lines, sale)
	}

	bills := make([]Bill, 0, len(order))
	for _, key := range order {
		bills = append(bills, *buckets[key])
	}

	sort.SliceStable(bills, func(i, j int) bool {
		return bills[i].Date().After(bills[j].Date())
	})

	return bills
}

// FromCheckout wraps a just-created checkout result as a Bill so the receipt
// can be printed without a round trip through the sales log.
func FromCheckout(result *domain.CheckoutResult) Bill {
	return Bill{
		Key:   GroupedKey(result.BillID),
		Lines: result.Items,
	}
}
