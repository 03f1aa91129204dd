package draft

import (
	"context"
	"errors"

	"github.com/susatyo441/shop-vision/internal/domain"
)

// Store adapts a Repository to the capture controller's persistence needs.
type Store struct {
	repo Repository
}

func NewStore(repo Repository) *Store {
	return &Store{repo: repo}
}

func (s *Store) Save(ctx context.Context, storeID string, items []domain.LineItem) error {
	return s.repo.Upsert(ctx, &DraftCart{
		StoreID: storeID,
		Items:   items,
	})
}

// Load returns the persisted draft items, or nil when no draft exists.
func (s *Store) Load(ctx context.Context, storeID string) ([]domain.LineItem, error) {
	draft, err := s.repo.Get(ctx, storeID)
	if err != nil {
		if errors.Is(err, ErrDraftNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return draft.Items, nil
}

func (s *Store) Delete(ctx context.Context, storeID string) error {
	return s.repo.Delete(ctx, storeID)
}
