// Package session serves the picker UI over a WebSocket: each connection owns
// one selection store, receives commands and gets a snapshot after every change.
package session

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"solana-nft-picker/internal/selection"
)

const (
	writeWait          = 10 * time.Second
	pongWait           = 60 * time.Second
	pingPeriod         = (pongWait * 9) / 10
	maxMessageSize     = 4 << 10
	maxPendingMessages = 16
)

// Handler upgrades requests to WebSocket sessions.
type Handler struct {
	resolver  selection.Resolver
	persister selection.Persister
	logger    *zap.Logger
	upgrader  websocket.Upgrader
}

// Option configures Handler.
type Option func(*Handler)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithCheckOrigin sets the origin check used during the upgrade.
func WithCheckOrigin(fn func(*http.Request) bool) Option {
	return func(h *Handler) {
		h.upgrader.CheckOrigin = fn
	}
}

// WithAllowedOrigins additionally accepts upgrades from the listed origins.
// "*" accepts any origin. Same-origin requests are always accepted.
func WithAllowedOrigins(origins []string) Option {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(h *Handler) {
				h.upgrader.CheckOrigin = func(*http.Request) bool { return true }
			}
		}
		allowed[strings.ToLower(o)] = struct{}{}
	}
	return func(h *Handler) {
		if len(allowed) == 0 {
			return
		}
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			if sameOrigin(r) {
				return true
			}
			_, ok := allowed[strings.ToLower(r.Header.Get("Origin"))]
			return ok
		}
	}
}

// sameOrigin reports whether the request has no Origin header or one whose
// host matches the request host, like the upgrader's default check.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// NewHandler creates a new Handler.
func NewHandler(resolver selection.Resolver, persister selection.Persister, opts ...Option) *Handler {
	h := &Handler{
		resolver:  resolver,
		persister: persister,
		logger:    zap.NewNop(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP runs one session until the client goes away.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("failed to upgrade", zap.Error(err))
		return
	}

	c := newConnection(conn, h.resolver, h.persister, h.logger.With(zap.String("remote", r.RemoteAddr)))
	c.run()
}
