package service

import "errors"

// Sentinel errors returned by the Service.
var (
	// ErrNotStarted is returned when a method is called before Start.
	ErrNotStarted = errors.New("service not started")
	// ErrInvalidUserID is returned for empty user identifiers.
	ErrInvalidUserID = errors.New("invalid user id")
)
