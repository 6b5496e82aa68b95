package storage

import (
	"context"

	"solana-nft-picker/internal/domain"
)

// SelectionStore provides append-only access to saved selections.
type SelectionStore interface {
	// Append adds a new document. Returns ErrInvalidInput for a document without
	// ID or owner, ErrDuplicateKey if the ID already exists.
	Append(ctx context.Context, sel *domain.SavedSelection) error

	// Close releases the underlying connection.
	Close() error
}

// SelectionReader is implemented by stores whose documents can be queried back.
type SelectionReader interface {
	// ListByOwner returns all documents for owner, oldest first.
	ListByOwner(ctx context.Context, owner string) ([]*domain.SavedSelection, error)
}

// ValidateSelection checks the fields every backend requires.
func ValidateSelection(sel *domain.SavedSelection) error {
	if sel == nil || sel.ID == "" || sel.Owner == "" {
		return ErrInvalidInput
	}
	return nil
}
