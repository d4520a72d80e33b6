// Package api wires the TasteID HTTP routes.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"

	"github.com/okian/tasteid/internal/adapters/http/swagger"
	"github.com/okian/tasteid/internal/adapters/ratelimit"
	"github.com/okian/tasteid/internal/domain/model"
	"github.com/okian/tasteid/internal/domain/types"
	"github.com/okian/tasteid/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ComputeTasteID(ctx context.Context, userID string) (model.TasteID, error)
	GetTasteID(ctx context.Context, userID string) (model.TasteID, error)
	History(ctx context.Context, userID string, limit int) ([]types.HistoryEntry, error)
	CompareTasteIDs(ctx context.Context, userA, userB string) (model.TasteMatch, error)
	FindSimilar(ctx context.Context, userID string, limit int) ([]types.SimilarUser, error)
	Recompute(ctx context.Context, userIDs []string) (types.RecomputeSummary, error)
	GetStats(ctx context.Context) (types.Stats, error)
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithRateLimiter sets the store consulted before each TasteID computation.
func WithRateLimiter(store ratelimit.Store) Option {
	return func(s *Server) {
		if store != nil {
			s.limiter = store
		}
	}
}

// WithLogger sets a custom logger for the server.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps    Dependencies
	limiter ratelimit.Store
	logger  logger.Logger

	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	tasteHandler  *TasteHandler
	matchHandler  *MatchHandler
	adminHandler  *AdminHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		deps:    deps,
		limiter: ratelimit.Unlimited{},
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(deps, s.logger)
	s.tasteHandler = NewTasteHandler(deps, s.logger)
	s.matchHandler = NewMatchHandler(deps, s.logger)
	s.adminHandler = NewAdminHandler(deps, s.logger)
	return s
}

// Routes returns the chi router serving every endpoint.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", s.healthHandler.HandleHealth)
	r.Method(http.MethodGet, "/metrics", s.healthHandler.MetricsHandler())
	if err := swagger.Register(r); err != nil {
		s.logger.Error(context.Background(), "api docs unavailable", logger.Error(err))
	}

	r.Group(func(r chi.Router) {
		r.Use(MetricsMiddleware)

		r.Route("/users/{userID}", func(r chi.Router) {
			r.With(RateLimitMiddleware(s.limiter, "userID")).Post("/taste", s.tasteHandler.HandleCompute)
			r.Get("/taste", s.tasteHandler.HandleGet)
			r.Get("/taste/history", s.tasteHandler.HandleHistory)
			r.Get("/similar", s.matchHandler.HandleSimilar)
		})
		r.Get("/matches/{userA}/{userB}", s.matchHandler.HandleCompare)
		r.Post("/admin/recompute", s.adminHandler.HandleRecompute)
		r.Get("/stats", s.statsHandler.HandleStats)
	})

	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// logFailure records server-side errors; client errors are not logged.
func logFailure(ctx context.Context, l logger.Logger, op string, err error) {
	if status, _ := statusFor(err); status >= http.StatusInternalServerError {
		l.Error(ctx, "request failed", logger.String("op", op), logger.Error(err))
	}
}

// parseLimit reads the optional limit query parameter. Missing means 0.
func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: limit must be a non-negative integer", ErrBadRequest)
	}
	return n, nil
}
