package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/armangral/atta-chakki-tracker-app/internal/catalog/cache"
	"github.com/armangral/atta-chakki-tracker-app/internal/catalog/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockFetcher struct {
	m        sync.Mutex
	products []domain.Product
	err      error
	calls    int
}

func (m *mockFetcher) FetchActiveProducts(context.Context) ([]domain.Product, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.products, nil
}

type mockCache struct {
	m        sync.RWMutex
	snapshot *domain.Snapshot
	getErr   error
}

func (m *mockCache) Get(context.Context) (*domain.Snapshot, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.snapshot == nil {
		return nil, cache.ErrCacheMiss
	}
	return m.snapshot, nil
}

func (m *mockCache) Set(_ context.Context, snapshot *domain.Snapshot) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.snapshot = snapshot
	return nil
}

func (m *mockCache) Delete(context.Context) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.snapshot = nil
	return nil
}

func someProducts() []domain.Product {
	return []domain.Product{
		{
			ID:     uuid.New(),
			Name:   "Besan",
			Unit:   "Kg",
			Price:  decimal.NewFromInt(80),
			Stock:  decimal.NewFromInt(40),
			Status: domain.StatusActive,
		},
	}
}

func TestSnapshot_CacheHit(t *testing.T) {
	cached := domain.NewSnapshot(someProducts())
	fetcher := &mockFetcher{}
	svc := NewSnapshotService(fetcher, &mockCache{snapshot: cached})

	snap, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cached, snap)
	assert.Equal(t, 0, fetcher.calls)
}

func TestSnapshot_CacheMiss_FetchesAndCaches(t *testing.T) {
	fetcher := &mockFetcher{products: someProducts()}
	c := &mockCache{}
	svc := NewSnapshotService(fetcher, c)

	snap, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Products, 1)
	assert.Equal(t, "Besan", snap.Products[0].Name)
	assert.Equal(t, 1, fetcher.calls)

	// cache set happens on a goroutine
	assert.Eventually(t, func() bool {
		c.m.RLock()
		defer c.m.RUnlock()
		return c.snapshot != nil
	}, time.Second, 10*time.Millisecond)
}

func TestSnapshot_FetchError(t *testing.T) {
	wantErr := errors.New("backend down")
	svc := NewSnapshotService(&mockFetcher{err: wantErr}, &mockCache{})

	_, err := svc.Snapshot(context.Background())
	assert.ErrorIs(t, err, wantErr)
}

func TestSnapshot_CacheErrorFallsBackToFetch(t *testing.T) {
	fetcher := &mockFetcher{products: someProducts()}
	svc := NewSnapshotService(fetcher, &mockCache{getErr: errors.New("redis down")})

	snap, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Products, 1)
	assert.Equal(t, 1, fetcher.calls)
}

func TestInvalidate(t *testing.T) {
	c := &mockCache{snapshot: domain.NewSnapshot(someProducts())}
	svc := NewSnapshotService(&mockFetcher{}, c)

	svc.Invalidate(context.Background())

	c.m.RLock()
	defer c.m.RUnlock()
	assert.Nil(t, c.snapshot)
}
