package cache

import (
	"context"
	"errors"

	"github.com/susatyo441/shop-vision/internal/domain"
)

// ProductCache stores catalog lookups so repeated detections of the same
// product within a session group never re-issue lookups.
// Consumers define this interface, not the Redis implementation.
type ProductCache interface {
	Get(ctx context.Context, productID string) (*domain.Product, error)
	Set(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, productID string) error
}

var ErrCacheMiss = errors.New("cache miss")
