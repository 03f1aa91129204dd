package draft

import (
	"context"
	"errors"
	"time"

	"github.com/susatyo441/shop-vision/internal/domain"
)

var ErrDraftNotFound = errors.New("draft cart not found")

// DraftCart is the accumulated cart persisted between page visits, one per
// store.
type DraftCart struct {
	StoreID   string            `bson:"_id"`
	Items     []domain.LineItem `bson:"items"`
	CreatedAt time.Time         `bson:"created_at"`
	UpdatedAt time.Time         `bson:"updated_at"`
}

// Repository defines draft cart persistence.
// Consumers define this interface, not the MongoDB implementation.
type Repository interface {
	Get(ctx context.Context, storeID string) (*DraftCart, error)
	Upsert(ctx context.Context, draft *DraftCart) error
	Delete(ctx context.Context, storeID string) error
}
