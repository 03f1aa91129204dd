package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/susatyo441/shop-vision/internal/cache"
	"github.com/susatyo441/shop-vision/internal/domain"
)

type mockGetter struct {
	mu       sync.Mutex
	products map[string]*domain.Product
	err      error
	calls    int
	release  chan struct{}
}

func (m *mockGetter) GetProductDetail(_ context.Context, id string) (*domain.Product, error) {
	m.mu.Lock()
	m.calls++
	release := m.release
	m.mu.Unlock()

	if release != nil {
		<-release
	}
	if m.err != nil {
		return nil, m.err
	}
	product, ok := m.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return product, nil
}

func (m *mockGetter) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockCache struct {
	mu       sync.Mutex
	products map[string]*domain.Product
	getErr   error
	setErr   error
	sets     int
}

func newMockCache() *mockCache {
	return &mockCache{products: make(map[string]*domain.Product)}
}

func (m *mockCache) Get(_ context.Context, productID string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	product, ok := m.products[productID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return product, nil
}

func (m *mockCache) Set(_ context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.setErr != nil {
		return m.setErr
	}
	m.products[product.ID] = product
	return nil
}

func (m *mockCache) Delete(_ context.Context, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.products, productID)
	return nil
}

func TestResolve_CacheHitSkipsCatalog(t *testing.T) {
	productCache := newMockCache()
	productCache.products["p1"] = &domain.Product{ID: "p1", Name: "Indomie"}
	getter := &mockGetter{}
	resolver := NewResolver(productCache, getter)

	product, err := resolver.Resolve(context.Background(), "p1")

	require.NoError(t, err)
	assert.Equal(t, "Indomie", product.Name)
	assert.Equal(t, 0, getter.callCount())
}

func TestResolve_MissFetchesAndFillsCache(t *testing.T) {
	productCache := newMockCache()
	getter := &mockGetter{products: map[string]*domain.Product{
		"p1": {ID: "p1", Name: "Indomie", Price: 1000},
	}}
	resolver := NewResolver(productCache, getter)

	product, err := resolver.Resolve(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", product.ID)
	assert.Equal(t, 1, getter.callCount())

	// Second resolve is served from the cache.
	_, err = resolver.Resolve(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, getter.callCount())
}

func TestResolve_LookupFailurePropagates(t *testing.T) {
	productCache := newMockCache()
	getter := &mockGetter{err: errors.New("catalog down")}
	resolver := NewResolver(productCache, getter)

	_, err := resolver.Resolve(context.Background(), "p1")
	assert.Error(t, err)
}

func TestResolve_CacheErrorFallsThroughToCatalog(t *testing.T) {
	productCache := newMockCache()
	productCache.getErr = errors.New("redis connection refused")
	getter := &mockGetter{products: map[string]*domain.Product{
		"p1": {ID: "p1", Name: "Indomie"},
	}}
	resolver := NewResolver(productCache, getter)

	product, err := resolver.Resolve(context.Background(), "p1")

	require.NoError(t, err)
	assert.Equal(t, "p1", product.ID)
}

func TestResolve_ConcurrentLookupsCollapse(t *testing.T) {
	productCache := newMockCache()
	getter := &mockGetter{
		products: map[string]*domain.Product{"p1": {ID: "p1", Name: "Indomie"}},
		release:  make(chan struct{}),
	}
	resolver := NewResolver(productCache, getter)

	const concurrency = 8
	var wg sync.WaitGroup
	results := make([]*domain.Product, concurrency)
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = resolver.Resolve(context.Background(), "p1")
		}(i)
	}

	// Give the goroutines a moment to pile onto the in-flight lookup, then
	// let it finish.
	assert.Eventually(t, func() bool { return getter.callCount() >= 1 }, time.Second, time.Millisecond)
	close(getter.release)
	wg.Wait()

	assert.Equal(t, 1, getter.callCount())
	for _, product := range results {
		require.NotNil(t, product)
		assert.Equal(t, "p1", product.ID)
	}
}
