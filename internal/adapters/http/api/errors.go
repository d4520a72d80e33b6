package api

import (
	"errors"
	"net/http"

	service "github.com/okian/tasteid/internal/app"
	"github.com/okian/tasteid/internal/domain/model"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest  = errors.New("bad request")
	ErrRateLimited = errors.New("rate limit exceeded")
)

// statusFor maps an error to its HTTP status and machine-readable code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrInsufficientData):
		return http.StatusUnprocessableEntity, "insufficient_data"
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, model.ErrInvalidComparison):
		return http.StatusBadRequest, "invalid_comparison"
	case errors.Is(err, service.ErrInvalidUserID), errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, model.ErrComputationFailure):
		return http.StatusInternalServerError, "computation_failure"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
