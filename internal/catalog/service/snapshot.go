package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/armangral/atta-chakki-tracker-app/internal/catalog/cache"
	"github.com/armangral/atta-chakki-tracker-app/internal/catalog/domain"
	"golang.org/x/sync/singleflight"
)

// Fetcher pulls the active product list from the sales backend.
type Fetcher interface {
	FetchActiveProducts(ctx context.Context) ([]domain.Product, error)
}

type SnapshotService struct {
	fetcher Fetcher
	cache   cache.SnapshotCache
	sfg     singleflight.Group // Prevents cache stampede
}

func NewSnapshotService(fetcher Fetcher, cache cache.SnapshotCache) *SnapshotService {
	return &SnapshotService{
		fetcher: fetcher,
		cache:   cache,
	}
}

// Snapshot returns the latest catalog view, from cache when fresh enough.
func (s *SnapshotService) Snapshot(ctx context.Context) (*domain.Snapshot, error) {
	// Use singleflight so concurrent cache misses trigger one fetch
	v, err, _ := s.sfg.Do("catalog", func() (interface{}, error) {

		snapshot, err := s.cache.Get(ctx)
		if err == nil {
			return snapshot, nil // snapshot is in cache
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("cache get error: %v \n", err) // log cache error but continue
		}

		products, errFetch := s.fetcher.FetchActiveProducts(ctx)
		if errFetch != nil {
			return nil, errFetch
		}

		snapshot = domain.NewSnapshot(products)

		// set cache
		go func() {
			errSet := s.cache.Set(context.Background(), snapshot)
			if errSet != nil {
				log.Printf("cache set error: %v \n", errSet)
			}
		}()

		return snapshot, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*domain.Snapshot), nil
}

// Invalidate drops the cached snapshot, forcing the next read to refetch.
// Called after a successful checkout because stock levels just changed.
func (s *SnapshotService) Invalidate(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx); err != nil {
		log.Printf("cache invalidate error: %v \n", err)
	}
}
