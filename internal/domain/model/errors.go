package model

import "errors"

// Error kinds surfaced at the engine boundary. Callers match them with errors.Is.
var (
	// ErrInsufficientData means the user has fewer reviews than the minimum.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrNotFound means no TasteID exists yet for a requested user.
	ErrNotFound = errors.New("taste id not found")
	// ErrInvalidComparison covers self-comparison and malformed identifiers.
	ErrInvalidComparison = errors.New("invalid comparison")
	// ErrComputationFailure wraps unexpected aggregation errors such as
	// malformed album metadata.
	ErrComputationFailure = errors.New("computation failure")
)
