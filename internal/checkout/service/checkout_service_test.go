package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/armangral/atta-chakki-tracker-app/internal/billing"
	cartdomain "github.com/armangral/atta-chakki-tracker-app/internal/cart/domain"
	catalog "github.com/armangral/atta-chakki-tracker-app/internal/catalog/domain"
	"github.com/armangral/atta-chakki-tracker-app/internal/sales/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCarts struct {
	m     sync.Mutex
	carts map[uuid.UUID]*cartdomain.Cart
}

func newMockCarts() *mockCarts {
	return &mockCarts{carts: make(map[uuid.UUID]*cartdomain.Cart)}
}

func (m *mockCarts) Get(operatorID uuid.UUID) *cartdomain.Cart {
	m.m.Lock()
	defer m.m.Unlock()
	if cart, ok := m.carts[operatorID]; ok {
		return cart.Clone()
	}
	return &cartdomain.Cart{OperatorID: operatorID}
}

func (m *mockCarts) Clear(operatorID uuid.UUID) {
	m.m.Lock()
	defer m.m.Unlock()
	delete(m.carts, operatorID)
}

func (m *mockCarts) put(operatorID uuid.UUID, items ...cartdomain.CartItem) {
	m.m.Lock()
	defer m.m.Unlock()
	m.carts[operatorID] = &cartdomain.Cart{OperatorID: operatorID, Items: items}
}

type mockGateway struct {
	m        sync.Mutex
	err      error
	calls    int
	lastReq  domain.CheckoutRequest
	seenKeys []string
}

func (m *mockGateway) Checkout(_ context.Context, operator domain.Operator, req domain.CheckoutRequest) (*domain.CheckoutResult, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.calls++
	m.lastReq = req
	m.seenKeys = append(m.seenKeys, req.IdempotencyKey)
	if m.err != nil {
		return nil, m.err
	}

	billID := uuid.New()
	result := &domain.CheckoutResult{
		BillID:       billID,
		OperatorName: operator.Name,
		Date:         req.Date,
	}
	for _, item := range req.Items {
		result.Items = append(result.Items, domain.Sale{
			ID:           uuid.New(),
			ProductID:    item.ProductID,
			Quantity:     item.Quantity,
			Total:        item.Total,
			Date:         req.Date,
			OperatorID:   operator.ID,
			OperatorName: operator.Name,
			BillID:       uuid.NullUUID{UUID: billID, Valid: true},
		})
		result.TotalAmount = result.TotalAmount.Add(item.Total)
		result.TotalQuantity = result.TotalQuantity.Add(item.Quantity)
	}
	return result, nil
}

type mockJournal struct {
	m       sync.Mutex
	err     error
	records int
}

func (m *mockJournal) Record(context.Context, uuid.UUID, billing.Bill) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.records++
	return m.err
}

type mockSnapshots struct {
	m           sync.Mutex
	invalidated int
}

func (m *mockSnapshots) Invalidate(context.Context) {
	m.m.Lock()
	defer m.m.Unlock()
	m.invalidated++
}

func cartItem(name string, price, qty int64) cartdomain.CartItem {
	return cartdomain.CartItem{
		Product: catalog.Product{
			ID:     uuid.New(),
			Name:   name,
			Unit:   "Kg",
			Price:  decimal.NewFromInt(price),
			Stock:  decimal.NewFromInt(100),
			Status: catalog.StatusActive,
		},
		Quantity: decimal.NewFromInt(qty),
		AddedAt:  time.Now(),
	}
}

func operator() domain.Operator {
	return domain.Operator{ID: uuid.New(), Name: "Ravi"}
}

func TestCheckout_EmptyCart(t *testing.T) {
	carts := newMockCarts()
	gateway := &mockGateway{}
	p := NewProcessor(carts, gateway, nil, nil)

	_, err := p.Checkout(context.Background(), operator())
	assert.ErrorIs(t, err, ErrEmptyCart)
	// empty cart must never reach the network
	assert.Equal(t, 0, gateway.calls)
}

func TestCheckout_Success(t *testing.T) {
	op := operator()
	carts := newMockCarts()
	carts.put(op.ID, cartItem("Sharbati Wheat Atta", 42, 2), cartItem("Besan", 80, 1))
	gateway := &mockGateway{}
	journal := &mockJournal{}
	snapshots := &mockSnapshots{}
	p := NewProcessor(carts, gateway, journal, snapshots)

	bill, err := p.Checkout(context.Background(), op)
	require.NoError(t, err)

	// one request carrying every cart line, totals computed by the cart
	require.Len(t, gateway.lastReq.Items, 2)
	assert.True(t, gateway.lastReq.Items[0].Total.Equal(decimal.NewFromInt(84)))
	assert.NotEmpty(t, gateway.lastReq.IdempotencyKey)

	// returned bill sums to the submitted totals
	assert.True(t, bill.TotalAmount().Equal(decimal.NewFromInt(164)))
	assert.True(t, bill.TotalQuantity().Equal(decimal.NewFromInt(3)))

	// cart cleared, last bill retained, snapshot dropped, journal written
	assert.True(t, carts.Get(op.ID).IsEmpty())
	last, ok := p.LastBill(op.ID)
	require.True(t, ok)
	assert.Equal(t, bill.Key, last.Key)
	assert.Equal(t, 1, snapshots.invalidated)
	assert.Equal(t, 1, journal.records)
}

func TestCheckout_FailureLeavesCartUntouched(t *testing.T) {
	op := operator()
	carts := newMockCarts()
	carts.put(op.ID, cartItem("Besan", 80, 1))
	gateway := &mockGateway{err: errors.New("insufficient stock")}
	p := NewProcessor(carts, gateway, nil, nil)

	_, err := p.Checkout(context.Background(), op)
	require.Error(t, err)

	assert.Len(t, carts.Get(op.ID).Items, 1)
	_, ok := p.LastBill(op.ID)
	assert.False(t, ok)
}

func TestCheckout_RetryReusesIdempotencyKey(t *testing.T) {
	op := operator()
	carts := newMockCarts()
	carts.put(op.ID, cartItem("Besan", 80, 1))
	gateway := &mockGateway{err: errors.New("timeout")}
	p := NewProcessor(carts, gateway, nil, nil)

	ctx := context.Background()
	_, err := p.Checkout(ctx, op)
	require.Error(t, err)
	_, err = p.Checkout(ctx, op)
	require.Error(t, err)

	require.Len(t, gateway.seenKeys, 2)
	assert.Equal(t, gateway.seenKeys[0], gateway.seenKeys[1])

	// a fresh cart after success gets a fresh key
	gateway.err = nil
	_, err = p.Checkout(ctx, op)
	require.NoError(t, err)

	carts.put(op.ID, cartItem("Besan", 80, 2))
	_, err = p.Checkout(ctx, op)
	require.NoError(t, err)

	require.Len(t, gateway.seenKeys, 4)
	assert.NotEqual(t, gateway.seenKeys[2], gateway.seenKeys[3])
}

func TestCheckout_JournalErrorDoesNotFailCheckout(t *testing.T) {
	op := operator()
	carts := newMockCarts()
	carts.put(op.ID, cartItem("Besan", 80, 1))
	p := NewProcessor(carts, &mockGateway{}, &mockJournal{err: errors.New("disk full")}, nil)

	_, err := p.Checkout(context.Background(), op)
	assert.NoError(t, err)
	assert.True(t, carts.Get(op.ID).IsEmpty())
}
