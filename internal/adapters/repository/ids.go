package repository

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// snapshotIDs hands out time-sortable snapshot ids. Monotonic entropy is not
// safe for concurrent use, hence the mutex.
type snapshotIDs struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func newSnapshotIDs() *snapshotIDs {
	return &snapshotIDs{entropy: ulid.Monotonic(rand.Reader, 0)}
}

func (g *snapshotIDs) next(at time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), g.entropy).String()
}

// tasteIDFor keeps an existing id, then a caller-provided one, else mints a new one.
func tasteIDFor(existing, proposed string) string {
	if existing != "" {
		return existing
	}
	if proposed != "" {
		return proposed
	}
	return uuid.NewString()
}
