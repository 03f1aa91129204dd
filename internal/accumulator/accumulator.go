// Package accumulator converts raw detection batches into priced session
// line items and detects per-batch changes.
package accumulator

import (
	"context"
	"log/slog"
	"sync"

	"github.com/susatyo441/shop-vision/internal/domain"
)

// CatalogResolver resolves a detected product id to a catalog record.
type CatalogResolver interface {
	Resolve(ctx context.Context, id string) (*domain.Product, error)
}

// Accumulator holds the live view of one capture session. Each batch fully
// replaces the session's line items: a session models continuous
// observation of one scene, so quantities reflect the latest detector
// snapshot rather than a running sum of duplicate sightings.
type Accumulator struct {
	resolver CatalogResolver

	mu       sync.Mutex
	nextSeq  uint64
	applied  uint64
	session  []domain.LineItem
	previous []domain.LineItem
}

func New(resolver CatalogResolver) *Accumulator {
	return &Accumulator{resolver: resolver}
}

// ProcessBatch resolves every detection in the batch and installs the
// result as the session's line items. It reports whether any key is new or
// changed quantity compared to the previous snapshot, at most once per
// batch regardless of how many items changed.
//
// A lookup failure for one id skips that id and keeps going; it never
// aborts the rest of the batch. Catalog resolutions for different batches
// may finish out of arrival order, so each batch takes a sequence number up
// front and an older batch that finishes late is discarded instead of
// overwriting a newer one.
func (a *Accumulator) ProcessBatch(ctx context.Context, batch domain.DetectionBatch) bool {
	a.mu.Lock()
	a.nextSeq++
	seq := a.nextSeq
	a.mu.Unlock()

	items := make([]domain.LineItem, 0, len(batch.Data))
	for _, det := range batch.Data {
		product, err := a.resolver.Resolve(ctx, det.ID)
		if err != nil {
			slog.Warn("skipping unresolvable detection", "product_id", det.ID, "error", err)
			continue
		}
		items = append(items, product.RepresentativeItem(det.Quantity))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if seq <= a.applied {
		return false // a newer batch already landed
	}
	a.applied = seq

	changed := diff(a.previous, items)
	a.session = items
	a.previous = items
	return changed
}

// Items returns a snapshot of the session's current line items.
func (a *Accumulator) Items() []domain.LineItem {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.LineItem, len(a.session))
	copy(out, a.session)
	return out
}

// Reset clears the session view for a fresh capture pass.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.session = nil
	a.previous = nil
}

func diff(previous, current []domain.LineItem) bool {
	byKey := make(map[string]int, len(previous))
	for _, item := range previous {
		byKey[item.Key] = item.Quantity
	}
	for _, item := range current {
		old, ok := byKey[item.Key]
		if !ok || old != item.Quantity {
			return true
		}
	}
	return false
}
