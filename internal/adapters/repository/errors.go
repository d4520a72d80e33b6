package repository

import "errors"

// Sentinel kinds for persistence errors.
var (
	// ErrStore wraps failures of the underlying storage engine.
	ErrStore = errors.New("store failure")
	// ErrInvalidPair is returned when a match is not keyed by a canonical pair.
	ErrInvalidPair = errors.New("match pair is not canonical")
	// ErrInvalidTasteID is returned when a TasteID has no user id.
	ErrInvalidTasteID = errors.New("taste id has no user")
)
