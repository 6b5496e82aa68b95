package clickhouse

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"solana-nft-picker/internal/domain"
	"solana-nft-picker/internal/storage"
)

// SelectionStore implements storage.SelectionStore using ClickHouse.
// MergeTree does not enforce uniqueness; IDs are random so a collision is not checked.
type SelectionStore struct {
	conn *Conn
}

// NewSelectionStore creates a new SelectionStore.
func NewSelectionStore(conn *Conn) *SelectionStore {
	return &SelectionStore{conn: conn}
}

// Compile-time interface checks.
var (
	_ storage.SelectionStore  = (*SelectionStore)(nil)
	_ storage.SelectionReader = (*SelectionStore)(nil)
)

// Append adds a new document. The NFT list is stored as a JSON string.
func (s *SelectionStore) Append(ctx context.Context, sel *domain.SavedSelection) error {
	if err := storage.ValidateSelection(sel); err != nil {
		return err
	}

	nfts, err := json.Marshal(sel.Nfts)
	if err != nil {
		return fmt.Errorf("encode nfts: %w", err)
	}

	query := `
		INSERT INTO saved_nfts (id, owner, nft_count, nfts, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	if err := s.conn.Exec(ctx, query, sel.ID, sel.Owner, uint32(len(sel.Nfts)), string(nfts), sel.CreatedAt.UTC()); err != nil {
		return fmt.Errorf("insert saved selection: %w", err)
	}
	return nil
}

// ListByOwner returns the documents of owner, oldest first.
func (s *SelectionStore) ListByOwner(ctx context.Context, owner string) ([]*domain.SavedSelection, error) {
	query := `
		SELECT id, owner, nfts, created_at
		FROM saved_nfts
		WHERE owner = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.conn.Query(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("query saved selections: %w", err)
	}
	defer rows.Close()

	var result []*domain.SavedSelection
	for rows.Next() {
		var (
			sel       domain.SavedSelection
			nfts      string
			createdAt time.Time
		)
		if err := rows.Scan(&sel.ID, &sel.Owner, &nfts, &createdAt); err != nil {
			return nil, fmt.Errorf("scan saved selection: %w", err)
		}
		if err := json.Unmarshal([]byte(nfts), &sel.Nfts); err != nil {
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

// Close closes the underlying connection.
func (s *SelectionStore) Close() error {
	return s.conn.Close()
}
