package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/susatyo441/shop-vision/internal/cache"
	"github.com/susatyo441/shop-vision/internal/domain"
	"golang.org/x/sync/singleflight"
)

// ProductGetter is the slice of the catalog client the resolver needs.
type ProductGetter interface {
	GetProductDetail(ctx context.Context, id string) (*domain.Product, error)
}

// Resolver resolves detected product ids to catalog records, cache-first.
// Overlapping lookups for the same id are collapsed with singleflight so a
// burst of detection batches cannot stampede the catalog service.
type Resolver struct {
	cache  cache.ProductCache
	client ProductGetter
	sfg    singleflight.Group
}

func NewResolver(productCache cache.ProductCache, client ProductGetter) *Resolver {
	return &Resolver{
		cache:  productCache,
		client: client,
	}
}

func (r *Resolver) Resolve(ctx context.Context, id string) (*domain.Product, error) {
	v, err, _ := r.sfg.Do(id, func() (interface{}, error) {
		product, errCache := r.cache.Get(ctx, id)
		if errCache == nil {
			return product, nil
		}

		if !errors.Is(errCache, cache.ErrCacheMiss) {
			slog.Warn("product cache get failed", "product_id", id, "error", errCache)
		}

		product, errGet := r.client.GetProductDetail(ctx, id)
		if errGet != nil {
			return nil, fmt.Errorf("catalog lookup for %s failed: %w", id, errGet)
		}

		if errSet := r.cache.Set(ctx, product); errSet != nil {
			slog.Warn("product cache set failed", "product_id", id, "error", errSet)
		}

		return product, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*domain.Product), nil
}
