// Package selection holds the per-session state of the NFT picker: the wallet
// being browsed, its displayed NFTs, and the user's selection.
package selection

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"solana-nft-picker/internal/domain"
)

// State is the lifecycle state of a Store.
type State string

// States.
const (
	StateDisconnected State = "disconnected"
	StateLoading      State = "loading"
	StateReady        State = "ready"
	StatePersisting   State = "persisting"
)

var (
	// ErrInvalidState is returned when an operation is not allowed in the current state.
	ErrInvalidState = errors.New("operation not allowed in current state")

	// ErrUnknownNft is returned when toggling a mint that is not displayed.
	ErrUnknownNft = errors.New("nft is not displayed")

	// ErrNothingSelected is returned when persisting an empty selection.
	ErrNothingSelected = errors.New("nothing selected")

	// ErrStaleResult is returned when a pass finished after the wallet changed.
	// Its result was discarded.
	ErrStaleResult = errors.New("result discarded: wallet changed")
)

// Notice kinds.
const (
	NoticeSuccess = "success"
	NoticeFailure = "failure"
)

// Notice texts.
const (
	textSaved      = "Data saved successfully"
	textSaveFailed = "Error while saving data"
)

// Notice is a one-line message for the user about the last operation.
type Notice struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// Resolver produces the displayable NFTs of a wallet.
type Resolver interface {
	Resolve(ctx context.Context, owner string) ([]domain.Nft, error)
}

// Persister sends a selection to the persistence endpoint.
type Persister interface {
	Persist(ctx context.Context, req domain.PersistRequest) error
}

// Snapshot is a copy of the store state. Seq increases with every snapshot
// taken, so a consumer can drop one older than what it already has.
type Snapshot struct {
	Seq        uint64       `json:"seq"`
	State      State        `json:"state"`
	Owner      string       `json:"owner,omitempty"`
	Nfts       []domain.Nft `json:"nfts"`
	Selected   []string     `json:"selected"` // mints, in display order
	CanPersist bool         `json:"can_persist"`
	Notice     *Notice      `json:"notice,omitempty"`
}

// Store is the selection state machine:
//
//	Disconnected -> Loading -> Ready <-> Persisting
//	any -> Disconnected
//
// Resolution passes are tagged with a generation. Connecting to another wallet
// or disconnecting cancels the running pass, and a pass that completes after
// that is discarded.
type Store struct {
	resolver  Resolver
	persister Persister
	logger    *zap.Logger

	// notifyMu serializes onChange deliveries. Each delivery snapshots the
	// state while holding it, so the last delivered snapshot is the current one.
	notifyMu sync.Mutex

	mu         sync.Mutex
	seq        uint64
	state      State
	owner      string
	nfts       []domain.Nft
	displayed  map[string]struct{}
	selected   map[string]struct{}
	notice     *Notice
	generation uint64
	cancel     context.CancelFunc
	onChange   func(Snapshot)
}

// Option configures Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithOnChange registers a callback invoked with a snapshot after every state
// change. Calls never overlap and arrive in state order. The callback may read
// the store but must not change it.
func WithOnChange(fn func(Snapshot)) Option {
	return func(s *Store) {
		s.onChange = fn
	}
}

// NewStore creates a disconnected Store.
func NewStore(resolver Resolver, persister Persister, opts ...Option) *Store {
	s := &Store{
		resolver:  resolver,
		persister: persister,
		logger:    zap.NewNop(),
		state:     StateDisconnected,
		displayed: make(map[string]struct{}),
		selected:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect switches to owner and loads its NFTs. It blocks until the pass
// finishes. On failure the store is Ready with an empty list and the error is
// returned. If another Connect or Disconnect happened meanwhile, the result is
// dropped and ErrStaleResult is returned.
func (s *Store) Connect(ctx context.Context, owner string) error {
	s.mu.Lock()
	s.cancelPassLocked()
	s.generation++
	gen := s.generation
	passCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.resetLocked(StateLoading, owner)
	s.mu.Unlock()
	s.notify()

	nfts, err := s.resolver.Resolve(passCtx, owner)

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		cancel()
		s.logger.Debug("discarding stale resolution", zap.String("owner", owner), zap.Uint64("generation", gen))
		return ErrStaleResult
	}
	cancel()
	s.cancel = nil
	s.state = StateReady
	if err != nil {
		s.mu.Unlock()
		s.logger.Warn("failed to load nfts", zap.String("owner", owner), zap.Error(err))
		s.notify()
		return err
	}
	s.nfts = nfts
	for _, nft := range nfts {
		s.displayed[nft.Mint] = struct{}{}
	}
	s.mu.Unlock()

	s.logger.Info("nfts loaded", zap.String("owner", owner), zap.Int("nfts", len(nfts)))
	s.notify()
	return nil
}

// Disconnect clears the wallet, list and selection and cancels any running pass.
func (s *Store) Disconnect() {
	s.mu.Lock()
	s.cancelPassLocked()
	s.generation++
	s.resetLocked(StateDisconnected, "")
	s.mu.Unlock()
	s.notify()
}

// Toggle adds mint to the selection, or removes it if already selected.
// It returns whether mint is selected afterwards.
func (s *Store) Toggle(mint string) (bool, error) {
	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()
		return false, ErrInvalidState
	}
	if _, ok := s.displayed[mint]; !ok {
		s.mu.Unlock()
		return false, ErrUnknownNft
	}

	_, was := s.selected[mint]
	if was {
		delete(s.selected, mint)
	} else {
		s.selected[mint] = struct{}{}
	}
	s.mu.Unlock()

	s.notify()
	return !was, nil
}

// Persist sends the selected NFTs, in display order, with the owner. The
// selection is kept whatever the outcome; the result is reported as a notice
// and returned.
func (s *Store) Persist(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()
		return ErrInvalidState
	}
	if len(s.selected) == 0 {
		s.mu.Unlock()
		return ErrNothingSelected
	}

	req := domain.PersistRequest{
		Nfts:  s.selectedNftsLocked(),
		Owner: s.owner,
	}
	gen := s.generation
	s.state = StatePersisting
	s.notice = nil
	s.mu.Unlock()
	s.notify()

	err := s.persister.Persist(ctx, req)

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return ErrStaleResult
	}
	s.state = StateReady
	if err != nil {
		s.notice = &Notice{Kind: NoticeFailure, Text: textSaveFailed}
	} else {
		s.notice = &Notice{Kind: NoticeSuccess, Text: textSaved}
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("failed to persist selection", zap.String("owner", req.Owner), zap.Error(err))
	} else {
		s.logger.Info("selection persisted", zap.String("owner", req.Owner), zap.Int("nfts", len(req.Nfts)))
	}
	s.notify()
	return err
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Close cancels any running pass.
func (s *Store) Close() {
	s.mu.Lock()
	s.cancelPassLocked()
	s.generation++
	s.mu.Unlock()
}

func (s *Store) snapshotLocked() Snapshot {
	s.seq++
	snap := Snapshot{
		Seq:        s.seq,
		State:      s.state,
		Owner:      s.owner,
		Nfts:       append([]domain.Nft{}, s.nfts...),
		Selected:   []string{},
		CanPersist: s.state == StateReady && len(s.selected) > 0,
	}
	for _, nft := range s.nfts {
		if _, ok := s.selected[nft.Mint]; ok {
			snap.Selected = append(snap.Selected, nft.Mint)
		}
	}
	if s.notice != nil {
		n := *s.notice
		snap.Notice = &n
	}
	return snap
}

func (s *Store) selectedNftsLocked() []domain.Nft {
	out := make([]domain.Nft, 0, len(s.selected))
	for _, nft := range s.nfts {
		if _, ok := s.selected[nft.Mint]; ok {
			out = append(out, nft)
		}
	}
	return out
}

func (s *Store) resetLocked(state State, owner string) {
	s.state = state
	s.owner = owner
	s.nfts = nil
	s.displayed = make(map[string]struct{})
	s.selected = make(map[string]struct{})
	s.notice = nil
}

func (s *Store) cancelPassLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Store) notify() {
	if s.onChange == nil {
		return
	}
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	s.onChange(s.Snapshot())
}
