package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/armangral/atta-chakki-tracker-app/internal/billing"
	cartdomain "github.com/armangral/atta-chakki-tracker-app/internal/cart/domain"
	"github.com/armangral/atta-chakki-tracker-app/internal/sales/domain"
	"github.com/google/uuid"
)

var ErrEmptyCart = errors.New("cart is empty, nothing to checkout")

// Carts is the slice of the cart manager the processor needs.
type Carts interface {
	Get(operatorID uuid.UUID) *cartdomain.Cart
	Clear(operatorID uuid.UUID)
}

// SalesGateway submits the checkout to the sales service, which persists
// all line items under one bill and decrements stock atomically.
type SalesGateway interface {
	Checkout(ctx context.Context, operator domain.Operator, req domain.CheckoutRequest) (*domain.CheckoutResult, error)
}

// Journal records completed bills on this device. Best effort: a journal
// failure never fails a checkout that the sales service accepted.
type Journal interface {
	Record(ctx context.Context, operatorID uuid.UUID, bill billing.Bill) error
}

// Snapshots lets the processor drop the catalog cache after stock changed.
type Snapshots interface {
	Invalidate(ctx context.Context)
}

type Processor struct {
	carts     Carts
	gateway   SalesGateway
	journal   Journal
	snapshots Snapshots

	mu sync.Mutex
	// idempotency key per operator, generated on the first attempt for a
	// cart and reused on retries so a resubmit after a timeout replays the
	// same bill instead of creating a duplicate
	pendingKeys map[uuid.UUID]string
	lastBills   map[uuid.UUID]billing.Bill
}

func NewProcessor(carts Carts, gateway SalesGateway, journal Journal, snapshots Snapshots) *Processor {
	return &Processor{
		carts:       carts,
		gateway:     gateway,
		journal:     journal,
		snapshots:   snapshots,
		pendingKeys: make(map[uuid.UUID]string),
		lastBills:   make(map[uuid.UUID]billing.Bill),
	}
}

// Checkout submits the operator's whole cart as one bill. On success the
// cart is cleared and the bill is retained for immediate receipt printing.
// On failure the cart is left untouched so the operator can retry.
func (p *Processor) Checkout(ctx context.Context, operator domain.Operator) (*billing.Bill, error) {
	cart := p.carts.Get(operator.ID)
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	items := make([]domain.CheckoutItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, domain.CheckoutItem{
			ProductID: item.Product.ID,
			Quantity:  item.Quantity,
			Total:     item.LineTotal(),
		})
	}

	req := domain.CheckoutRequest{
		Items:          items,
		Date:           time.Now(),
		IdempotencyKey: p.idempotencyKey(operator.ID),
	}

	result, err := p.gateway.Checkout(ctx, operator, req)
	if err != nil {
		return nil, err
	}

	bill := billing.FromCheckout(result)

	p.carts.Clear(operator.ID)
	p.finish(operator.ID, bill)

	if p.snapshots != nil {
		p.snapshots.Invalidate(ctx)
	}
	if p.journal != nil {
		if errRecord := p.journal.Record(ctx, operator.ID, bill); errRecord != nil {
			log.Printf("journal record error: %v \n", errRecord)
		}
	}

	return &bill, nil
}

// LastBill returns the operator's most recently completed bill, for the
// "print last receipt" action.
func (p *Processor) LastBill(operatorID uuid.UUID) (billing.Bill, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	bill, ok := p.lastBills[operatorID]
	return bill, ok
}

func (p *Processor) idempotencyKey(operatorID uuid.UUID) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	key, ok := p.pendingKeys[operatorID]
	if !ok {
		key = uuid.NewString()
		p.pendingKeys[operatorID] = key
	}
	return key
}

func (p *Processor) finish(operatorID uuid.UUID, bill billing.Bill) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.pendingKeys, operatorID)
	p.lastBills[operatorID] = bill
}
