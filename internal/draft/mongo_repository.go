package draft

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) Repository {
	return &mongoRepository{collection: db.Collection("draft_carts")}
}

func (m *mongoRepository) Get(ctx context.Context, storeID string) (*DraftCart, error) {
	var draft DraftCart

	filter := bson.M{"_id": storeID}
	err := m.collection.FindOne(ctx, filter).Decode(&draft)

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrDraftNotFound
		}
		return nil, fmt.Errorf("failed to get draft cart: %w", err)
	}

	return &draft, nil
}

func (m *mongoRepository) Upsert(ctx context.Context, draft *DraftCart) error {
	now := time.Now()

	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = now
	}
	draft.UpdatedAt = now

	filter := bson.M{"_id": draft.StoreID}
	update := bson.M{"$set": draft}
	opts := options.Update().SetUpsert(true)

	_, err := m.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert draft cart: %w", err)
	}

	return nil
}

func (m *mongoRepository) Delete(ctx context.Context, storeID string) error {
	_, err := m.collection.DeleteOne(ctx, bson.M{"_id": storeID})
	if err != nil {
		return fmt.Errorf("failed to delete draft cart: %w", err)
	}

	return nil
}
