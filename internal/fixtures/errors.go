package fixtures

import "errors"

// Sentinel kinds for fixture errors.
var (
	// ErrInvalidDataset is returned for datasets that cannot be used.
	ErrInvalidDataset = errors.New("invalid dataset")
	// ErrDecode is returned when a dataset file cannot be parsed.
	ErrDecode = errors.New("decode dataset")
)
