package cache

import (
	"context"
	"sync"

	"github.com/susatyo441/shop-vision/internal/domain"
)

// MemoryCache is a process-local ProductCache. It backs tests and
// single-instance deployments where Redis is not available.
type MemoryCache struct {
	mu       sync.RWMutex
	products map[string]*domain.Product
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{products: make(map[string]*domain.Product)}
}

func (c *MemoryCache) Get(_ context.Context, productID string) (*domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	product, ok := c.products[productID]
	if !ok {
		return nil, ErrCacheMiss
	}
	copied := *product
	return &copied, nil
}

func (c *MemoryCache) Set(_ context.Context, product *domain.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	copied := *product
	c.products[product.ID] = &copied
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, productID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.products, productID)
	return nil
}
