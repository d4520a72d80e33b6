package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/tasteid/internal/domain/model"
	"github.com/okian/tasteid/pkg/metrics"
)

type pairKey struct{ a, b string }

// MemoryStore is a mutex-guarded in-memory Store.
type MemoryStore struct {
	mu sync.RWMutex

	reviews     map[string]map[string]model.Review // userID -> reviewID -> review
	reviewOwner map[string]string                  // reviewID -> userID
	tastes      map[string]model.TasteID
	snapshots   map[string][]model.TasteIDSnapshot // append order
	matches     map[pairKey]model.TasteMatch

	ids *snapshotIDs
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reviews:     make(map[string]map[string]model.Review),
		reviewOwner: make(map[string]string),
		tastes:      make(map[string]model.TasteID),
		snapshots:   make(map[string][]model.TasteIDSnapshot),
		matches:     make(map[pairKey]model.TasteMatch),
		ids:         newSnapshotIDs(),
	}
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Milliseconds()))
}

// AddReviews inserts or replaces reviews by id. Reviews without an id get one.
func (s *MemoryStore) AddReviews(ctx context.Context, reviews []model.Review) error {
	defer observe("add_reviews", time.Now())
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range reviews {
		if r.UserID == "" {
			return fmt.Errorf("%w: review %q has no user", ErrStore, r.ID)
		}
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		if r.AlbumID == "" {
			r.AlbumID = r.Album.ID
		}
		r.Album.Genres = append([]string(nil), r.Album.Genres...)
		if owner, ok := s.reviewOwner[r.ID]; ok && owner != r.UserID {
			delete(s.reviews[owner], r.ID)
		}
		if s.reviews[r.UserID] == nil {
			s.reviews[r.UserID] = make(map[string]model.Review)
		}
		s.reviews[r.UserID][r.ID] = r
		s.reviewOwner[r.ID] = r.UserID
	}
	return nil
}

// Reviews returns a user's reviews ordered by creation time then id.
func (s *MemoryStore) Reviews(ctx context.Context, userID string) ([]model.Review, error) {
	defer observe("reviews", time.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Review, 0, len(s.reviews[userID]))
	for _, r := range s.reviews[userID] {
		r.Album.Genres = append([]string(nil), r.Album.Genres...)
		out = append(out, r)
	}
	sortReviews(out)
	return out, nil
}

// PlatformMeanRating averages every well-formed normalized rating.
func (s *MemoryStore) PlatformMeanRating(ctx context.Context) (float64, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sum float64
	var n int
	for _, user := range sortedKeys(s.reviews) {
		byID := s.reviews[user]
		for _, id := range sortedKeys(byID) {
			v, err := byID[id].NormalizedRating()
			if err != nil {
				continue
			}
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, false, nil
	}
	return sum / float64(n), true, nil
}

// ReviewerIDs returns every user with at least one review.
func (s *MemoryStore) ReviewerIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.reviews))
	for user, byID := range s.reviews {
		if len(byID) > 0 {
			out = append(out, user)
		}
	}
	sort.Strings(out)
	return out, nil
}

// GetTasteID returns the user's TasteID.
func (s *MemoryStore) GetTasteID(ctx context.Context, userID string) (model.TasteID, error) {
	defer observe("get_taste_id", time.Now())
	if err := ctx.Err(); err != nil {
		return model.TasteID{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tastes[userID]
	if !ok {
		return model.TasteID{}, fmt.Errorf("%w: user %s", model.ErrNotFound, userID)
	}
	return t.Clone(), nil
}

// UpsertTasteID inserts or replaces the user's TasteID.
func (s *MemoryStore) UpsertTasteID(ctx context.Context, t model.TasteID) (model.TasteID, error) {
	defer observe("upsert_taste_id", time.Now())
	if err := ctx.Err(); err != nil {
		return model.TasteID{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertLocked(t)
}

func (s *MemoryStore) upsertLocked(t model.TasteID) (model.TasteID, error) {
	if t.UserID == "" {
		return model.TasteID{}, ErrInvalidTasteID
	}
	t = t.Clone()
	t.ID = tasteIDFor(s.tastes[t.UserID].ID, t.ID)
	s.tastes[t.UserID] = t
	return t.Clone(), nil
}

// AppendSnapshot stores a snapshot. Missing ids are generated.
func (s *MemoryStore) AppendSnapshot(ctx context.Context, snap model.TasteIDSnapshot) error {
	defer observe("append_snapshot", time.Now())
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(snap)
	return nil
}

func (s *MemoryStore) appendLocked(snap model.TasteIDSnapshot) model.TasteIDSnapshot {
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}
	if snap.ID == "" {
		snap.ID = s.ids.next(snap.CreatedAt)
	}
	snap.TasteID = snap.TasteID.Clone()
	s.snapshots[snap.UserID] = append(s.snapshots[snap.UserID], snap)
	return snap
}

// SaveTasteID upserts the TasteID and appends its snapshot under one lock.
func (s *MemoryStore) SaveTasteID(ctx context.Context, t model.TasteID) (model.TasteID, model.TasteIDSnapshot, error) {
	defer observe("save_taste_id", time.Now())
	if err := ctx.Err(); err != nil {
		return model.TasteID{}, model.TasteIDSnapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	saved, err := s.upsertLocked(t)
	if err != nil {
		return model.TasteID{}, model.TasteIDSnapshot{}, err
	}
	snap := s.appendLocked(newSnapshot(saved))
	return saved, snap, nil
}

// ListTasteIDs returns every TasteID ordered by user id.
func (s *MemoryStore) ListTasteIDs(ctx context.Context) ([]model.TasteID, error) {
	defer observe("list_taste_ids", time.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.TasteID, 0, len(s.tastes))
	for _, user := range sortedKeys(s.tastes) {
		out = append(out, s.tastes[user].Clone())
	}
	return out, nil
}

// Snapshots returns a user's snapshots newest first.
func (s *MemoryStore) Snapshots(ctx context.Context, userID string, limit int) ([]model.TasteIDSnapshot, error) {
	defer observe("snapshots", time.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.snapshots[userID]
	n := len(all)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]model.TasteIDSnapshot, 0, n)
	for i := len(all) - 1; i >= 0 && len(out) < n; i-- {
		snap := all[i]
		snap.TasteID = snap.TasteID.Clone()
		out = append(out, snap)
	}
	return out, nil
}

// GetTasteMatch returns the cached match of a canonical pair.
func (s *MemoryStore) GetTasteMatch(ctx context.Context, user1ID, user2ID string) (model.TasteMatch, error) {
	defer observe("get_taste_match", time.Now())
	if err := ctx.Err(); err != nil {
		return model.TasteMatch{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.matches[pairKey{user1ID, user2ID}]
	if !ok {
		return model.TasteMatch{}, fmt.Errorf("%w: match %s/%s", model.ErrNotFound, user1ID, user2ID)
	}
	return m.Clone(), nil
}

// UpsertTasteMatch stores a match under its canonical pair.
func (s *MemoryStore) UpsertTasteMatch(ctx context.Context, m model.TasteMatch) error {
	defer observe("upsert_taste_match", time.Now())
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.User1ID == "" || m.User1ID >= m.User2ID {
		return fmt.Errorf("%w: %q/%q", ErrInvalidPair, m.User1ID, m.User2ID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches[pairKey{m.User1ID, m.User2ID}] = m.Clone()
	return nil
}

// Stats counts stored rows.
func (s *MemoryStore) Stats(ctx context.Context) (Stats, error) {
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{TasteIDs: len(s.tastes), Matches: len(s.matches)}
	for _, byID := range s.reviews {
		if len(byID) > 0 {
			st.Reviewers++
			st.Reviews += len(byID)
		}
	}
	for _, snaps := range s.snapshots {
		st.Snapshots += len(snaps)
	}
	return st, nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error { return nil }

// newSnapshot builds the snapshot row of a saved TasteID.
func newSnapshot(t model.TasteID) model.TasteIDSnapshot {
	at := t.LastComputedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return model.TasteIDSnapshot{
		TasteIDID: t.ID,
		UserID:    t.UserID,
		CreatedAt: at,
		TasteID:   t.Clone(),
	}
}

func sortReviews(rs []model.Review) {
	sort.Slice(rs, func(i, j int) bool {
		if !rs[i].CreatedAt.Equal(rs[j].CreatedAt) {
			return rs[i].CreatedAt.Before(rs[j].CreatedAt)
		}
		return rs[i].ID < rs[j].ID
	})
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
