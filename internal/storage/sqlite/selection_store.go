package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"solana-nft-picker/internal/domain"
	"solana-nft-picker/internal/storage"
)

// SelectionStore implements storage.SelectionStore using SQLite.
type SelectionStore struct {
	db *sql.DB
}

// NewSelectionStore creates a new SelectionStore over an opened database.
func NewSelectionStore(db *sql.DB) *SelectionStore {
	return &SelectionStore{db: db}
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

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO saved_nfts (id, owner, nfts, created_at) VALUES (?, ?, ?, ?)`,
		sel.ID, sel.Owner, string(nfts), sel.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert saved selection: %w", err)
	}
	return nil
}

// ListByOwner returns the documents of owner in insertion order.
func (s *SelectionStore) ListByOwner(ctx context.Context, owner string) ([]*domain.SavedSelection, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner, nfts, created_at FROM saved_nfts WHERE owner = ? ORDER BY rowid ASC`,
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("query saved selections: %w", err)
	}
	defer rows.Close()

	var result []*domain.SavedSelection
	for rows.Next() {
		var (
			sel       domain.SavedSelection
			nfts      string
			createdAt string
		)
		if err := rows.Scan(&sel.ID, &sel.Owner, &nfts, &createdAt); err != nil {
			return nil, fmt.Errorf("scan saved selection: %w", err)
		}
		if err := json.Unmarshal([]byte(nfts), &sel.Nfts); err != nil {
			return nil, fmt.Errorf("decode nfts of %s: %w", sel.ID, err)
		}
		if sel.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("decode created_at of %s: %w", sel.ID, err)
		}
		result = append(result, &sel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate saved selections: %w", err)
	}

	return result, nil
}

// Close closes the database.
func (s *SelectionStore) Close() error {
	return s.db.Close()
}

// isDuplicateKeyError reports a primary key violation.
func isDuplicateKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
