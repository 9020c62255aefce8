package cache

import (
	"context"
	"errors"

	"github.com/armangral/atta-chakki-tracker-app/internal/catalog/domain"
)

type SnapshotCache interface {
	Get(ctx context.Context) (*domain.Snapshot, error)
	Set(ctx context.Context, snapshot *domain.Snapshot) error
	Delete(ctx context.Context) error
}

var ErrCacheMiss = errors.New("cache miss")
