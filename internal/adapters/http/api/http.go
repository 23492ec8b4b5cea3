// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	service "github.com/okian/imagecatalog/internal/app"
	"github.com/okian/imagecatalog/internal/domain/catalog"
	"github.com/okian/imagecatalog/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the catalog reader.
type Dependencies interface {
	ListDependencies
	RedirectDependencies
}

// Server wires HTTP routes for the catalog API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	listHandler     *ListHandler
	redirectHandler *RedirectHandler
}

// ServerOption configures a Server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	logger logger.Logger
}

// WithLogger sets the logger handlers report failures to.
func WithLogger(l logger.Logger) ServerOption {
	return func(c *serverConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	cfg := serverConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.Get().Named("api")
	}
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		listHandler:     NewListHandler(deps, cfg.logger),
		redirectHandler: NewRedirectHandler(deps, cfg.logger),
	}
}

// Register attaches all HTTP routes to mux. Paths not registered here fall
// through to the mux's 404.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/list", RequestID(MetricsMiddleware(s.listHandler.HandleList, "list")))
	mux.HandleFunc("/downloadRedirect", RequestID(MetricsMiddleware(s.redirectHandler.HandleRedirect, "downloadRedirect")))
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// queryParam returns the single non-empty value of name. A missing, empty
// or repeated parameter is rejected.
func queryParam(q url.Values, name string) (string, bool) {
	vs := q[name]
	if len(vs) != 1 || vs[0] == "" {
		return "", false
	}
	return vs[0], true
}

// writeError renders err as a plain-text 400 carrying the fixed message of
// its kind. A stored failure carries its own message.
func writeError(w http.ResponseWriter, err error) {
	http.Error(w, publicMessage(err), http.StatusBadRequest)
}

func publicMessage(err error) string {
	var stored *service.StoredFailure
	switch {
	case errors.Is(err, ErrStored) && errors.As(err, &stored):
		return stored.Message
	case errors.Is(err, ErrBadRequest):
		return msgBadRequest
	case errors.Is(err, ErrNoValues):
		return msgNoValues
	case errors.Is(err, ErrNoMatch):
		return msgNoMatch
	default:
		return msgUnknown
	}
}

// ListDependencies is the read used by GET /list.
type ListDependencies interface {
	List(ctx context.Context, os string) ([]catalog.ListEntry, error)
}

// RedirectDependencies is the read used by GET /downloadRedirect.
type RedirectDependencies interface {
	Resolve(ctx context.Context, os, denom string) (*url.URL, error)
}

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats() map[string]interface{}
}
