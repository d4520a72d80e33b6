package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/okian/tasteid/internal/domain/types"
	"github.com/okian/tasteid/pkg/logger"
)

const maxRecomputeBody = 1 << 20

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// RecomputeDependencies defines the batch recompute operation.
type RecomputeDependencies interface {
	Recompute(ctx context.Context, userIDs []string) (types.RecomputeSummary, error)
}

// recomputeRequest is the body of POST /admin/recompute. No ids means everyone.
type recomputeRequest struct {
	UserIDs []string `json:"user_ids" validate:"max=10000,dive,required,max=128"`
}

// AdminHandler handles operator requests.
type AdminHandler struct {
	deps   RecomputeDependencies
	logger logger.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(deps RecomputeDependencies, l logger.Logger) *AdminHandler {
	return &AdminHandler{deps: deps, logger: l}
}

// HandleRecompute handles POST /admin/recompute requests.
func (h *AdminHandler) HandleRecompute(w http.ResponseWriter, r *http.Request) {
	const op = "api.recompute"

	var req recomputeRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRecomputeBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	if err := getValidator().Struct(req); err != nil {
		writeError(w, fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}

	summary, err := h.deps.Recompute(r.Context(), req.UserIDs)
	if err != nil {
		logFailure(r.Context(), h.logger, op, err)
		writeError(w, err)
		return
	}
	h.logger.Info(r.Context(), "batch recompute served",
		logger.Int("requested", summary.Requested),
		logger.Int("failed", summary.Failed),
	)
	writeJSON(w, http.StatusOK, summary)
}
