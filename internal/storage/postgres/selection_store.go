package postgres

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"solana-nft-picker/internal/domain"
	"solana-nft-picker/internal/storage"
)

// SelectionStore implements storage.SelectionStore using PostgreSQL.
// The NFT list is kept as a JSONB document next to the owner.
type SelectionStore struct {
	pool *Pool
}

// NewSelectionStore creates a new SelectionStore.
func NewSelectionStore(pool *Pool) *SelectionStore {
	return &SelectionStore{pool: pool}
}

// Compile-time interface checks.
var (
	_ storage.SelectionStore  = (*SelectionStore)(nil)
	_ storage.SelectionReader = (*SelectionStore)(nil)
)

// Append adds a new document. Returns ErrDuplicateKey if the ID exists.
func (s *SelectionStore) Append(ctx context.Context, sel *domain.SavedSelection) error {
	if err := storage.ValidateSelection(sel); err != nil {
		return err
	}

	nfts, err := json.Marshal(sel.Nfts)
	if err != nil {
		return fmt.Errorf("encode nfts: %w", err)
	}

	query := `
		INSERT INTO saved_nfts (id, owner, nfts, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err = s.pool.Exec(ctx, query, sel.ID, sel.Owner, nfts, sel.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert saved selection: %w", err)
	}
	return nil
}

// ListByOwner returns the documents of owner, oldest first.
func (s *SelectionStore) ListByOwner(ctx context.Context, owner string) ([]*domain.SavedSelection, error) {
	query := `
		SELECT id, owner, nfts, created_at
		FROM saved_nfts
		WHERE owner = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("query saved selections: %w", err)
	}
	defer rows.Close()

	var result []*domain.SavedSelection
	for rows.Next() {
		var (
			sel       domain.SavedSelection
			nfts      []byte
			createdAt time.Time
		)
		if err := rows.Scan(&sel.ID, &sel.Owner, &nfts, &createdAt); err != nil {
			return nil, fmt.Errorf("scan saved selection: %w", err)
		}
		if err := json.Unmarshal(nfts, &sel.Nfts); err != nil {
			return nil, fmt.Errorf("decode nfts of %s: %w", sel.ID, err)
		}
		sel.CreatedAt = createdAt.UTC()
		result = append(result, &sel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate saved selections: %w", err)
	}

	return result, nil
}

// Close closes the underlying pool.
func (s *SelectionStore) Close() error {
	s.pool.Close()
	return nil
}
