package firestore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"solana-nft-picker/internal/domain"
	"solana-nft-picker/internal/storage"
)

// SelectionStore implements storage.SelectionStore on a Firestore collection.
// Each selection becomes one document whose ID is the selection ID.
type SelectionStore struct {
	client     *Client
	collection string
}

// NewSelectionStore creates a new SelectionStore. An empty collection selects DefaultCollection.
func NewSelectionStore(client *Client, collection string) *SelectionStore {
	if collection == "" {
		collection = DefaultCollection
	}
	return &SelectionStore{client: client, collection: collection}
}

// Compile-time interface checks.
var (
	_ storage.SelectionStore  = (*SelectionStore)(nil)
	_ storage.SelectionReader = (*SelectionStore)(nil)
)

// Append creates a new document. Create fails if the document exists, so a
// reused ID is never overwritten.
func (s *SelectionStore) Append(ctx context.Context, sel *domain.SavedSelection) error {
	if err := storage.ValidateSelection(sel); err != nil {
		return err
	}

	_, err := s.client.Collection(s.collection).Doc(sel.ID).Create(ctx, sel)
	return s.createError(sel.ID, err)
}

// createError maps an AlreadyExists status to storage.ErrDuplicateKey.
func (s *SelectionStore) createError(id string, err error) error {
	if err == nil {
		return nil
	}
	if status.Code(err) == codes.AlreadyExists {
		return fmt.Errorf("%w: %s/%s", storage.ErrDuplicateKey, s.collection, id)
	}
	return fmt.Errorf("create %s/%s: %w", s.collection, id, err)
}

// ListByOwner returns the documents of owner, oldest first.
// Ordering is applied client-side so no composite index is required.
func (s *SelectionStore) ListByOwner(ctx context.Context, owner string) ([]*domain.SavedSelection, error) {
	iter := s.client.Collection(s.collection).Where("owner", "==", owner).Documents(ctx)
	defer iter.Stop()

	var result []*domain.SavedSelection
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", s.collection, err)
		}

		var sel domain.SavedSelection
		if err := doc.DataTo(&sel); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", s.collection, doc.Ref.ID, err)
		}
		sel.ID = doc.Ref.ID
		sel.CreatedAt = sel.CreatedAt.UTC()
		result = append(result, &sel)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// Close closes the client.
func (s *SelectionStore) Close() error {
	return s.client.Close()
}
