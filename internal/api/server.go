// Package api assembles the HTTP surface: the persistence endpoint, the grid
// endpoint, the WebSocket session and the ops endpoints.
package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"solana-nft-picker/internal/accounts"
	"solana-nft-picker/internal/domain"
	"solana-nft-picker/internal/observability"
	"solana-nft-picker/internal/selection"
)

// SlotReader reports the current chain slot for /status.
type SlotReader interface {
	GetSlot(ctx context.Context) (int64, error)
}

// Options wires the router.
type Options struct {
	Resolver       selection.Resolver
	Persist        http.Handler
	Session        http.Handler
	Chain          SlotReader
	StoreBackend   string
	AllowedOrigins []string
	Logger         *zap.Logger
	Clock          func() time.Time
}

// Server serves the API routes.
type Server struct {
	opts    Options
	logger  *zap.Logger
	clock   func() time.Time
	started time.Time
	router  chi.Router

	mu       sync.Mutex
	lastSlot int64
}

// NewServer creates a new Server.
func NewServer(opts Options) *Server {
	s := &Server{
		opts:   opts,
		logger: opts.Logger,
		clock:  opts.Clock,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	s.started = s.clock()
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	// Without configured origins only same-origin browsers may call the API.
	if len(s.opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.opts.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type"},
			MaxAge:         300,
		}))
	}

	// The endpoint answers every method itself so misuse gets its fixed text.
	r.Handle("/persist", s.opts.Persist)
	r.Get("/api/nfts", s.handleNfts)
	if s.opts.Session != nil {
		r.Get("/ws", s.opts.Session.ServeHTTP)
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", observability.Handler())
	r.Get("/status", s.handleStatus)
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// NftsResponse is the JSON response for /api/nfts.
type NftsResponse struct {
	Owner string       `json:"owner"`
	Nfts  []domain.Nft `json:"nfts"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleNfts(w http.ResponseWriter, r *http.Request) {
	owner, err := accounts.NormalizeOwner(r.URL.Query().Get("owner"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	nfts, err := s.opts.Resolver.Resolve(r.Context(), owner)
	switch {
	case errors.Is(err, accounts.ErrInvalidOwner):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	case err != nil:
		s.logger.Warn("grid resolution failed", zap.String("owner", owner), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "failed to load NFTs"})
		return
	}

	if nfts == nil {
		nfts = []domain.Nft{}
	}
	writeJSON(w, http.StatusOK, NftsResponse{Owner: owner, Nfts: nfts})
}

// StatusResponse is the JSON response for /status.
type StatusResponse struct {
	Status       string    `json:"status"`
	Uptime       string    `json:"uptime"`
	StartedAt    time.Time `json:"started_at"`
	StoreBackend string    `json:"store_backend,omitempty"`
	Slot         int64     `json:"slot,omitempty"`
	ChainError   string    `json:"chain_error,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	now := s.clock()
	resp := StatusResponse{
		Status:       "running",
		Uptime:       now.Sub(s.started).Round(time.Second).String(),
		StartedAt:    s.started.UTC(),
		StoreBackend: s.opts.StoreBackend,
	}

	if s.opts.Chain != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		slot, err := s.opts.Chain.GetSlot(ctx)
		cancel()

		s.mu.Lock()
		if err != nil {
			resp.Status = "degraded"
			resp.ChainError = err.Error()
			resp.Slot = s.lastSlot
		} else {
			s.lastSlot = slot
			resp.Slot = slot
		}
		s.mu.Unlock()
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.clock()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", s.clock().Sub(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
