package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/tasteid/internal/domain/model"
	"github.com/okian/tasteid/internal/domain/types"
	"github.com/okian/tasteid/pkg/logger"
)

// MatchDependencies defines the compatibility and similarity operations.
type MatchDependencies interface {
	CompareTasteIDs(ctx context.Context, userA, userB string) (model.TasteMatch, error)
	FindSimilar(ctx context.Context, userID string, limit int) ([]types.SimilarUser, error)
}

// MatchHandler handles compatibility and similarity requests.
type MatchHandler struct {
	deps   MatchDependencies
	logger logger.Logger
}

// NewMatchHandler creates a new match handler.
func NewMatchHandler(deps MatchDependencies, l logger.Logger) *MatchHandler {
	return &MatchHandler{deps: deps, logger: l}
}

// HandleCompare handles GET /matches/{userA}/{userB} requests.
func (h *MatchHandler) HandleCompare(w http.ResponseWriter, r *http.Request) {
	const op = "api.compare"
	m, err := h.deps.CompareTasteIDs(r.Context(), chi.URLParam(r, "userA"), chi.URLParam(r, "userB"))
	if err != nil {
		logFailure(r.Context(), h.logger, op, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

type similarResponse struct {
	UserID  string              `json:"user_id"`
	Similar []types.SimilarUser `json:"similar"`
}

// HandleSimilar handles GET /users/{userID}/similar?limit=N requests.
func (h *MatchHandler) HandleSimilar(w http.ResponseWriter, r *http.Request) {
	const op = "api.similar"
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, err)
		return
	}
	userID := chi.URLParam(r, "userID")
	similar, err := h.deps.FindSimilar(r.Context(), userID, limit)
	if err != nil {
		logFailure(r.Context(), h.logger, op, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, similarResponse{UserID: userID, Similar: similar})
}
