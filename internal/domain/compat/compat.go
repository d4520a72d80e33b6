// Package compat computes pairwise compatibility between two TasteIDs and
// caches the result per canonical user pair.
package compat

import (
	"math"
	"sort"

	"github.com/okian/tasteid/internal/domain/model"
	"github.com/okian/tasteid/internal/domain/similarity"
)

// Default scoring configuration constants.
const (
	defaultGenreWeight     = 0.45
	defaultArtistWeight    = 0.20
	defaultRatingWeight    = 0.35
	defaultAlignmentSpan   = 5.0
	meanAlignmentShare     = 0.8
	skewAlignmentShare     = 0.2
	defaultTwinGenre       = 0.80
	defaultTwinArtist      = 0.50
	defaultTwinRating      = 0.70
	defaultGuideGenre      = 0.50
	defaultGuideAdventurer = 0.35
	maxOverall             = 100.0
)

// CanonicalPair orders two user ids so the smaller one comes first. swapped
// reports whether the inputs were reversed. Every match key goes through here.
func CanonicalPair(a, b string) (first, second string, swapped bool) {
	if a <= b {
		return a, b, false
	}
	return b, a, true
}

// Weights combines the sub-scores into the overall score.
type Weights struct {
	Genre  float64
	Artist float64
	Rating float64
}

// Thresholds drive the match type rules.
type Thresholds struct {
	TwinGenre         float64
	TwinArtist        float64
	TwinRating        float64
	GuideGenre        float64
	GuideAdventureGap float64
}

// ScorerOption applies a configuration option to the Scorer.
type ScorerOption func(*Scorer)

// WithWeights sets the overall score weights. Negative or all-zero weights are ignored.
func WithWeights(w Weights) ScorerOption {
	return func(s *Scorer) {
		if w.Genre < 0 || w.Artist < 0 || w.Rating < 0 || w.Genre+w.Artist+w.Rating == 0 {
			return
		}
		s.weights = w
	}
}

// WithThresholds sets the match type thresholds.
func WithThresholds(t Thresholds) ScorerOption {
	return func(s *Scorer) {
		s.thresholds = t
	}
}

// WithAlignmentSpan sets the average rating gap at which mean alignment reaches 0.
func WithAlignmentSpan(span float64) ScorerOption {
	return func(s *Scorer) {
		if span > 0 {
			s.alignmentSpan = span
		}
	}
}

// Scorer is the pure compatibility calculation.
type Scorer struct {
	weights       Weights
	thresholds    Thresholds
	alignmentSpan float64
}

// NewScorer creates a Scorer with configuration options.
func NewScorer(opts ...ScorerOption) *Scorer {
	s := &Scorer{
		weights: Weights{Genre: defaultGenreWeight, Artist: defaultArtistWeight, Rating: defaultRatingWeight},
		thresholds: Thresholds{
			TwinGenre:         defaultTwinGenre,
			TwinArtist:        defaultTwinArtist,
			TwinRating:        defaultTwinRating,
			GuideGenre:        defaultGuideGenre,
			GuideAdventureGap: defaultGuideAdventurer,
		},
		alignmentSpan: defaultAlignmentSpan,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score compares two TasteIDs with the default configuration.
func Score(a, b model.TasteID) model.TasteMatch {
	return NewScorer().Score(a, b)
}

// Score compares two TasteIDs. The result is keyed by the canonical pair and
// is identical whichever order the arguments come in. UpdatedAt is left for
// the caller to stamp.
func (s *Scorer) Score(a, b model.TasteID) model.TasteMatch {
	if _, _, swapped := CanonicalPair(a.UserID, b.UserID); swapped {
		a, b = b, a
	}

	g := similarity.Cosine(a.GenreVector, b.GenreVector)
	art := jaccard(a.TopArtists, b.TopArtists)
	r := s.ratingAlignment(a, b)

	m := model.TasteMatch{
		User1ID:         a.UserID,
		User2ID:         b.UserID,
		GenreOverlap:    g,
		ArtistOverlap:   art,
		RatingAlignment: r,
		OverallScore:    s.overall(g, art, r),
		SharedGenres:    intersect(positiveKeys(a.GenreVector), positiveKeys(b.GenreVector)),
		SharedArtists:   intersect(a.TopArtists, b.TopArtists),
		SharedAlbums:    intersect(a.AlbumIDs, b.AlbumIDs),
	}
	m.MatchType = s.matchType(m, math.Abs(a.AdventurenessScore-b.AdventurenessScore))
	return m
}

func (s *Scorer) ratingAlignment(a, b model.TasteID) float64 {
	gap := math.Min(math.Abs(a.AverageRating-b.AverageRating)/s.alignmentSpan, 1)
	r := meanAlignmentShare * (1 - gap)
	if a.RatingSkew == b.RatingSkew {
		r += skewAlignmentShare
	}
	return clamp(r, 0, 1)
}

func (s *Scorer) overall(g, a, r float64) float64 {
	w := s.weights
	total := w.Genre + w.Artist + w.Rating
	v := maxOverall * (w.Genre*g + w.Artist*a + w.Rating*r) / total
	return clamp(v, 0, maxOverall)
}

// matchType applies the rules in order; the first one that holds wins.
func (s *Scorer) matchType(m model.TasteMatch, adventureGap float64) model.MatchType {
	t := s.thresholds
	switch {
	case m.GenreOverlap >= t.TwinGenre && m.ArtistOverlap >= t.TwinArtist && m.RatingAlignment >= t.TwinRating:
		return model.MatchTasteTwin
	case m.GenreOverlap >= t.GuideGenre && adventureGap >= t.GuideAdventureGap:
		return model.MatchExplorerGuide
	case len(m.SharedGenres) > 0:
		return model.MatchGenreBuddy
	default:
		return model.MatchComplementary
	}
}

func jaccard(a, b []string) float64 {
	set := make(map[string]struct{}, len(a)+len(b))
	for _, x := range a {
		set[x] = struct{}{}
	}
	for _, x := range b {
		set[x] = struct{}{}
	}
	if len(set) == 0 {
		return 0
	}
	return float64(len(intersect(a, b))) / float64(len(set))
}

// intersect returns the sorted, de-duplicated common elements.
func intersect(a, b []string) []string {
	in := make(map[string]struct{}, len(a))
	for _, x := range a {
		in[x] = struct{}{}
	}
	out := []string{}
	seen := make(map[string]struct{}, len(b))
	for _, x := range b {
		if _, ok := in[x]; !ok {
			continue
		}
		if _, dup := seen[x]; dup {
			continue
		}
		seen[x] = struct{}{}
		out = append(out, x)
	}
	sort.Strings(out)
	return out
}

func positiveKeys(m map[string]float64) []string {
	out := make([]string, 0, len(m))
	for k, v := range m {
		if v > 0 {
			out = append(out, k)
		}
	}
	return out
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
