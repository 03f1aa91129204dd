// Package cart holds the running total of line items across capture
// sessions within one page visit.
package cart

import (
	"errors"
	"sync"

	"github.com/susatyo441/shop-vision/internal/domain"
)

var (
	ErrItemNotFound = errors.New("item not found in cart")
	ErrEmptyCart    = errors.New("cart is empty, nothing to checkout")
)

// AccumulatedCart merges line items from repeated capture sessions.
// Merging is commutative and associative over sessions: the order in which
// sessions finalize never changes the resulting quantities and subtotals.
type AccumulatedCart struct {
	mu    sync.Mutex
	items []domain.LineItem
}

func New() *AccumulatedCart {
	return &AccumulatedCart{}
}

// Merge folds a finished session's line items into the cart. Matching keys
// have quantity and subtotal summed; new keys are appended. Detection
// quantities are observed counts, so they are not clamped to stock here.
func (c *AccumulatedCart) Merge(items []domain.LineItem) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, item := range items {
		idx := c.indexOf(item.Key)
		if idx == -1 {
			c.items = append(c.items, item)
			continue
		}
		existing := c.items[idx]
		existing.Quantity += item.Quantity
		existing.Subtotal += item.Subtotal
		c.items[idx] = existing
	}
}

// SetQuantity applies a manual edit. Manual edits express purchase intent,
// so the quantity is clamped to available stock and floored at zero; zero
// removes the row.
func (c *AccumulatedCart) SetQuantity(key string, quantity int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOf(key)
	if idx == -1 {
		return ErrItemNotFound
	}
	c.setQuantityLocked(idx, quantity)
	return nil
}

func (c *AccumulatedCart) Increment(key string) error {
	return c.adjust(key, 1)
}

func (c *AccumulatedCart) Decrement(key string) error {
	return c.adjust(key, -1)
}

func (c *AccumulatedCart) adjust(key string, delta int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOf(key)
	if idx == -1 {
		return ErrItemNotFound
	}
	c.setQuantityLocked(idx, c.items[idx].Quantity+delta)
	return nil
}

// setQuantityLocked assumes c.mu is held.
func (c *AccumulatedCart) setQuantityLocked(idx, quantity int) {
	item := c.items[idx]
	if quantity > item.Stock {
		quantity = item.Stock
	}
	if quantity <= 0 {
		c.items = append(c.items[:idx], c.items[idx+1:]...)
		return
	}
	c.items[idx] = item.WithQuantity(quantity)
}

func (c *AccumulatedCart) Remove(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOf(key)
	if idx == -1 {
		return ErrItemNotFound
	}
	c.items = append(c.items[:idx], c.items[idx+1:]...)
	return nil
}

// Clear empties the cart. Used on hard reset and after a successful
// transaction submission.
func (c *AccumulatedCart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
}

// Replace swaps the whole cart content, used when recovering a draft.
func (c *AccumulatedCart) Replace(items []domain.LineItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make([]domain.LineItem, len(items))
	copy(c.items, items)
}

// Items returns a snapshot of the cart rows in insertion order.
func (c *AccumulatedCart) Items() []domain.LineItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.LineItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *AccumulatedCart) Total() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total float64
	for _, item := range c.items {
		total += item.Subtotal
	}
	return total
}

func (c *AccumulatedCart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// indexOf assumes c.mu is held.
func (c *AccumulatedCart) indexOf(key string) int {
	for i, item := range c.items {
		if item.Key == key {
			return i
		}
	}
	return -1
}
