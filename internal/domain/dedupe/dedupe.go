// Package dedupe tracks the user ids whose recompute is in flight so the same
// user is never computed twice at once.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Deduper records in-flight ids.
type Deduper interface {
	// SeenAndRecord atomically checks if id is in flight and records it if not.
	// Returns true if id was already recorded or the deduper is full.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord releases id once its work has finished.
	Unrecord(ctx context.Context, id string)

	// InFlight reports whether id is currently recorded.
	InFlight(ctx context.Context, id string) bool

	Size() int64
}

type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	maxSize int // 0 or negative = unbounded
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]struct{})
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(ctx context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; exists {
		return true
	}
	// A full deduper refuses new work instead of forgetting in-flight ids.
	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		return true
	}
	d.seen[id] = struct{}{}
	d.size.Add(1)
	return false
}

func (d *inMemoryDeduper) Unrecord(ctx context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; exists {
		delete(d.seen, id)
		d.size.Add(-1)
	}
}

func (d *inMemoryDeduper) InFlight(ctx context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, exists := d.seen[id]
	return exists
}

// Size returns the current number of recorded ids.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
