package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/tasteid/internal/domain/model"
	"github.com/okian/tasteid/internal/domain/types"
	"github.com/okian/tasteid/pkg/logger"
)

// TasteDependencies defines the TasteID operations.
type TasteDependencies interface {
	ComputeTasteID(ctx context.Context, userID string) (model.TasteID, error)
	GetTasteID(ctx context.Context, userID string) (model.TasteID, error)
	History(ctx context.Context, userID string, limit int) ([]types.HistoryEntry, error)
}

// TasteHandler handles TasteID requests.
type TasteHandler struct {
	deps   TasteDependencies
	logger logger.Logger
}

// NewTasteHandler creates a new TasteID handler.
func NewTasteHandler(deps TasteDependencies, l logger.Logger) *TasteHandler {
	return &TasteHandler{deps: deps, logger: l}
}

// HandleCompute handles POST /users/{userID}/taste requests.
func (h *TasteHandler) HandleCompute(w http.ResponseWriter, r *http.Request) {
	const op = "api.compute_taste"
	t, err := h.deps.ComputeTasteID(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		logFailure(r.Context(), h.logger, op, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// HandleGet handles GET /users/{userID}/taste requests.
func (h *TasteHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_taste"
	t, err := h.deps.GetTasteID(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		logFailure(r.Context(), h.logger, op, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// HandleHistory handles GET /users/{userID}/taste/history?limit=N requests.
func (h *TasteHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	const op = "api.taste_history"
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, err)
		return
	}
	history, err := h.deps.History(r.Context(), chi.URLParam(r, "userID"), limit)
	if err != nil {
		logFailure(r.Context(), h.logger, op, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}
