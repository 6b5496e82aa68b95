package domain

import (
	"time"

	"github.com/google/uuid"
)

// PersistRequest is the wire payload accepted by the persistence endpoint.
type PersistRequest struct {
	Nfts  []Nft  `json:"nfts"`
	Owner string `json:"owner"` // base58 wallet public key
}

// SavedSelection is the document appended to the store for every accepted request.
type SavedSelection struct {
	ID        string    `json:"id" firestore:"-"`
	Owner     string    `json:"owner" firestore:"owner"`
	Nfts      []Nft     `json:"nfts" firestore:"nfts"`
	CreatedAt time.Time `json:"created_at" firestore:"created_at"`
}

// NewSavedSelection builds the document stored for req with a fresh random ID.
// Identical requests produce distinct documents.
func NewSavedSelection(req PersistRequest, now time.Time) *SavedSelection {
	return &SavedSelection{
		ID:        uuid.NewString(),
		Owner:     req.Owner,
		Nfts:      req.Nfts,
		CreatedAt: now.UTC(),
	}
}
