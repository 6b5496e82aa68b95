package storage

import (
	"context"
	"fmt"
	"time"

	"solana-nft-picker/internal/domain"
	"solana-nft-picker/internal/observability"
)

// Instrumented records append latency and failures of a store under a backend label.
type Instrumented struct {
	SelectionStore
	backend string
}

// Instrument wraps store.
func Instrument(store SelectionStore, backend string) *Instrumented {
	return &Instrumented{SelectionStore: store, backend: backend}
}

// Append forwards to the wrapped store.
func (s *Instrumented) Append(ctx context.Context, sel *domain.SavedSelection) error {
	start := time.Now()
	err := s.SelectionStore.Append(ctx, sel)
	observability.RecordStoreAppend(s.backend, time.Since(start).Seconds(), err)
	return err
}

// Backend returns the backend label.
func (s *Instrumented) Backend() string {
	return s.backend
}

// ListByOwner forwards to the wrapped store when it can be read back.
func (s *Instrumented) ListByOwner(ctx context.Context, owner string) ([]*domain.SavedSelection, error) {
	reader, ok := s.SelectionStore.(SelectionReader)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrReadUnsupported, s.backend)
	}
	return reader.ListByOwner(ctx, owner)
}
