// Package persist implements the HTTP endpoint that appends a wallet's
// NFT selection to the document store.
package persist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"solana-nft-picker/internal/accounts"
	"solana-nft-picker/internal/domain"
	"solana-nft-picker/internal/observability"
	"solana-nft-picker/internal/storage"
)

// Response bodies. Clients match on the status code; the text is informational.
const (
	textOK               = "Ok"
	textMethodNotAllowed = "Method Not Allowed"
	textBadRequest       = "Bad Request"
	textStoreFailure     = "Error while persisting data"
)

// Defaults.
const (
	DefaultMaxBodyBytes = 1 << 20
	DefaultMaxSelection = 100
)

// ErrInvalidRequest is returned by Validate.
var ErrInvalidRequest = errors.New("invalid persist request")

// StoreProvider hands out the shared store, connecting on first use.
type StoreProvider interface {
	Get(ctx context.Context) (storage.SelectionStore, error)
}

// Handler serves POST /persist.
type Handler struct {
	stores       StoreProvider
	maxBodyBytes int64
	maxSelection int
	logger       *zap.Logger
	clock        func() time.Time
}

// Option configures Handler.
type Option func(*Handler)

// WithMaxBodyBytes caps the request body size.
func WithMaxBodyBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}

// WithMaxSelection caps the number of NFTs per request.
func WithMaxSelection(n int) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxSelection = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithClock sets the clock used for document timestamps.
func WithClock(clock func() time.Time) Option {
	return func(h *Handler) {
		h.clock = clock
	}
}

// NewHandler creates a new Handler.
func NewHandler(stores StoreProvider, opts ...Option) *Handler {
	h := &Handler{
		stores:       stores,
		maxBodyBytes: DefaultMaxBodyBytes,
		maxSelection: DefaultMaxSelection,
		logger:       zap.NewNop(),
		clock:        time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP appends one document per accepted request. There is no
// deduplication: identical requests produce distinct documents.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	code, text := h.handle(w, r)
	observability.RecordPersistRequest(code)

	if code == http.StatusMethodNotAllowed {
		w.Header().Set("Allow", http.MethodPost)
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	io.WriteString(w, text)
}

func (h *Handler) handle(w http.ResponseWriter, r *http.Request) (int, string) {
	if r.Method != http.MethodPost {
		return http.StatusMethodNotAllowed, textMethodNotAllowed
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		h.logger.Warn("rejecting unreadable body", zap.Error(err))
		return http.StatusBadRequest, textBadRequest
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return http.StatusBadRequest, textBadRequest
	}

	var req domain.PersistRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.logger.Warn("rejecting malformed body", zap.Error(err))
		return http.StatusBadRequest, textBadRequest
	}
	if err := Validate(&req, h.maxSelection); err != nil {
		h.logger.Warn("rejecting invalid request", zap.Error(err))
		return http.StatusBadRequest, textBadRequest
	}

	ctx := r.Context()
	store, err := h.stores.Get(ctx)
	if err != nil {
		h.logger.Error("store unavailable", zap.Error(err))
		return http.StatusInternalServerError, textStoreFailure
	}

	sel := domain.NewSavedSelection(req, h.clock())
	if err := store.Append(ctx, sel); err != nil {
		h.logger.Error("failed to persist selection",
			zap.String("owner", req.Owner),
			zap.String("id", sel.ID),
			zap.Error(err),
		)
		return http.StatusInternalServerError, textStoreFailure
	}

	h.logger.Info("selection persisted",
		zap.String("owner", req.Owner),
		zap.String("id", sel.ID),
		zap.Int("nfts", len(req.Nfts)),
	)
	return http.StatusOK, textOK
}

// Validate checks a request before it reaches the store: the owner must be a
// base58 32-byte key and there must be 1..maxSelection NFTs, each with a name
// and an image.
func Validate(req *domain.PersistRequest, maxSelection int) error {
	if _, err := accounts.NormalizeOwner(req.Owner); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if len(req.Nfts) == 0 {
		return fmt.Errorf("%w: no nfts", ErrInvalidRequest)
	}
	if maxSelection > 0 && len(req.Nfts) > maxSelection {
		return fmt.Errorf("%w: %d nfts exceeds limit of %d", ErrInvalidRequest, len(req.Nfts), maxSelection)
	}
	for i, nft := range req.Nfts {
		if nft.Name == "" || nft.Image == "" {
			return fmt.Errorf("%w: nfts[%d] missing name or image", ErrInvalidRequest, i)
		}
	}
	return nil
}
