package storage

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Opener connects to a store.
type Opener func(ctx context.Context) (SelectionStore, error)

// Lazy holds a process-wide store opened on first use and shared afterwards.
// Concurrent first callers wait for a single open. A failed open is not
// remembered: the next Get tries again.
type Lazy struct {
	open Opener

	mu    sync.Mutex
	ready atomic.Bool
	store SelectionStore
}

// NewLazy creates a Lazy store around open.
func NewLazy(open Opener) *Lazy {
	return &Lazy{open: open}
}

// Get returns the shared store, opening it if needed.
// Open failures are wrapped in ErrUnavailable.
func (l *Lazy) Get(ctx context.Context) (SelectionStore, error) {
	if l.ready.Load() {
		return l.store, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ready.Load() {
		return l.store, nil
	}

	store, err := l.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	l.store = store
	l.ready.Store(true)
	return store, nil
}

// Close closes the store if it was opened.
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.ready.Load() {
		return nil
	}
	l.ready.Store(false)
	store := l.store
	l.store = nil
	return store.Close()
}
