package memory

import (
	"context"
	"slices"
	"sync"

	"solana-nft-picker/internal/domain"
	"solana-nft-picker/internal/storage"
)

// SelectionStore is an in-memory implementation of storage.SelectionStore.
type SelectionStore struct {
	mu   sync.RWMutex
	docs []*domain.SavedSelection
	ids  map[string]struct{}
}

// NewSelectionStore creates a new in-memory selection store.
func NewSelectionStore() *SelectionStore {
	return &SelectionStore{
		ids: make(map[string]struct{}),
	}
}

// Compile-time interface checks.
var (
	_ storage.SelectionStore  = (*SelectionStore)(nil)
	_ storage.SelectionReader = (*SelectionStore)(nil)
)

// Append adds a new document. Returns ErrDuplicateKey if the ID exists.
func (s *SelectionStore) Append(_ context.Context, sel *domain.SavedSelection) error {
	if err := storage.ValidateSelection(sel); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ids[sel.ID]; exists {
		return storage.ErrDuplicateKey
	}

	s.ids[sel.ID] = struct{}{}
	s.docs = append(s.docs, copySelection(sel))
	return nil
}

// ListByOwner returns the documents of owner in append order.
func (s *SelectionStore) ListByOwner(_ context.Context, owner string) ([]*domain.SavedSelection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SavedSelection
	for _, doc := range s.docs {
		if doc.Owner == owner {
			result = append(result, copySelection(doc))
		}
	}
	return result, nil
}

// Count returns the number of stored documents.
func (s *SelectionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Close is a no-op.
func (s *SelectionStore) Close() error {
	return nil
}

func copySelection(sel *domain.SavedSelection) *domain.SavedSelection {
	selCopy := *sel
	selCopy.Nfts = make([]domain.Nft, len(sel.Nfts))
	for i, nft := range sel.Nfts {
		nft.Attributes = slices.Clone(nft.Attributes)
		selCopy.Nfts[i] = nft
	}
	return &selCopy
}
