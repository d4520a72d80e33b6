// Package worker runs TasteID recompute jobs off the queue.
package worker

import (
	"github.com/okian/tasteid/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithResultHandler sets the callback invoked after every job.
func WithResultHandler(h ResultHandler) Option {
	return func(w *InMemoryWorker) {
		if h != nil {
			w.onResult = h
		}
	}
}

// PoolOption applies a configuration option to the Pool.
type PoolOption func(*Pool)

// WithPoolLogger sets the logger shared by the pool and its workers.
func WithPoolLogger(l logger.Logger) PoolOption {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithPoolResultHandler sets the callback every worker reports to.
func WithPoolResultHandler(h ResultHandler) PoolOption {
	return func(p *Pool) {
		if h != nil {
			p.onResult = h
		}
	}
}
