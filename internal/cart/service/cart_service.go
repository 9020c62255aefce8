package service

import (
	"context"
	"errors"
	"sync"
	"time"

	cartdomain "github.com/armangral/atta-chakki-tracker-app/internal/cart/domain"
	catalog "github.com/armangral/atta-chakki-tracker-app/internal/catalog/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrProductNotFound   = errors.New("product not in catalog")
)

// Snapshots supplies the latest catalog view for optimistic stock checks.
type Snapshots interface {
	Snapshot(ctx context.Context) (*catalog.Snapshot, error)
}

// Manager holds the in-progress carts, one per operator. Carts live only in
// memory; a cart is created empty on first touch and cleared on checkout.
type Manager struct {
	mu        sync.RWMutex
	carts     map[uuid.UUID]*cartdomain.Cart
	snapshots Snapshots
}

func NewManager(snapshots Snapshots) *Manager {
	return &Manager{
		carts:     make(map[uuid.UUID]*cartdomain.Cart),
		snapshots: snapshots,
	}
}

// Get returns a copy of the operator's cart, empty if none exists yet.
func (m *Manager) Get(operatorID uuid.UUID) *cartdomain.Cart {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if cart, ok := m.carts[operatorID]; ok {
		return cart.Clone()
	}
	return &cartdomain.Cart{OperatorID: operatorID}
}

// AddOrUpdate puts (product, quantity) into the cart, replacing any existing
// entry for that product. The quantity is validated against the latest
// catalog snapshot; this is a UX check only, the sales service re-validates
// stock at checkout time.
func (m *Manager) AddOrUpdate(ctx context.Context, operatorID, productID uuid.UUID, quantity decimal.Decimal) (*cartdomain.Cart, error) {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidQuantity
	}

	snapshot, err := m.snapshots.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	product, ok := snapshot.Find(productID)
	if !ok || !product.IsActive() {
		return nil, ErrProductNotFound
	}
	if quantity.GreaterThan(product.Stock) {
		return nil, ErrInsufficientStock
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	cart, ok := m.carts[operatorID]
	if !ok {
		cart = &cartdomain.Cart{OperatorID: operatorID, CreatedAt: now}
		m.carts[operatorID] = cart
	}

	cart.Upsert(cartdomain.CartItem{
		Product:  product,
		Quantity: quantity,
		AddedAt:  now,
	})
	cart.UpdatedAt = now

	return cart.Clone(), nil
}

// Remove takes the product out of the cart. Removing an absent product is a
// no-op, not an error.
func (m *Manager) Remove(operatorID, productID uuid.UUID) *cartdomain.Cart {
	m.mu.Lock()
	defer m.mu.Unlock()

	cart, ok := m.carts[operatorID]
	if !ok {
		return &cartdomain.Cart{OperatorID: operatorID}
	}

	if cart.Remove(productID) {
		cart.UpdatedAt = time.Now()
	}
	return cart.Clone()
}

// Clear empties the operator's cart entirely.
func (m *Manager) Clear(operatorID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, operatorID)
}
