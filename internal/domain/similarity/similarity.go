// Package similarity ranks users by how close their genre vectors are to a
// query user's vector.
package similarity

import (
	"math"
	"sort"

	"github.com/okian/tasteid/internal/domain/model"
)

// Default search configuration constants.
const (
	defaultLimit    = 10
	defaultMaxLimit = 50
)

// Match is one ranked similarity result.
type Match struct {
	Rank             int
	UserID           string
	Score            float64
	PrimaryArchetype model.Archetype
}

// Option applies a configuration option to the Searcher.
type Option func(*Searcher)

// WithDefaultLimit sets the limit applied when the caller passes a
// non-positive one.
func WithDefaultLimit(n int) Option {
	return func(s *Searcher) {
		if n > 0 {
			s.defaultLimit = n
		}
	}
}

// WithMaxLimit caps the number of results a single search may return.
func WithMaxLimit(n int) Option {
	return func(s *Searcher) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// Searcher performs top-K similarity searches.
type Searcher struct {
	defaultLimit int
	maxLimit     int
}

// New creates a Searcher with configuration options.
func New(opts ...Option) *Searcher {
	s := &Searcher{defaultLimit: defaultLimit, maxLimit: defaultMaxLimit}
	for _, opt := range opts {
		opt(s)
	}
	if s.defaultLimit > s.maxLimit {
		s.defaultLimit = s.maxLimit
	}
	return s
}

// EffectiveLimit resolves a requested limit against the defaults and the cap.
func (s *Searcher) EffectiveLimit(limit int) int {
	if limit <= 0 {
		return s.defaultLimit
	}
	if limit > s.maxLimit {
		return s.maxLimit
	}
	return limit
}

// Search returns the candidates most similar to query, best first. The query
// user is never part of the result; ties on score go to the smaller user id.
func (s *Searcher) Search(query model.TasteID, candidates []model.TasteID, limit int) []Match {
	k := s.EffectiveLimit(limit)
	top := newTopK(k)
	archetypes := make(map[string]model.Archetype, len(candidates))
	for _, c := range candidates {
		if c.UserID == "" || c.UserID == query.UserID {
			continue
		}
		if _, dup := archetypes[c.UserID]; dup {
			continue
		}
		archetypes[c.UserID] = c.PrimaryArchetype
		top.offer(c.UserID, Cosine(query.GenreVector, c.GenreVector))
	}

	out := top.items()
	for i := range out {
		out[i].PrimaryArchetype = archetypes[out[i].UserID]
	}
	assignRanksWithTies(out)
	return out
}

// Cosine returns the cosine similarity of two sparse weight vectors in [0,1].
// Either vector being empty or all-zero yields 0.
func Cosine(a, b map[string]float64) float64 {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var dot, na float64
	for _, k := range keys {
		va := a[k]
		na += va * va
		dot += va * b[k]
	}
	bkeys := make([]string, 0, len(b))
	for k := range b {
		bkeys = append(bkeys, k)
	}
	sort.Strings(bkeys)
	var nb float64
	for _, k := range bkeys {
		nb += b[k] * b[k]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return math.Max(0, math.Min(1, dot/(math.Sqrt(na)*math.Sqrt(nb))))
}

// assignRanksWithTies gives equal scores the same rank; the next rank follows
// consecutively.
func assignRanksWithTies(entries []Match) {
	rank := 0
	for i := range entries {
		if i == 0 || toFixedPoint(entries[i].Score) != toFixedPoint(entries[i-1].Score) {
			rank++
		}
		entries[i].Rank = rank
	}
}
