// Package aggregate turns a user's rating history into the normalized feature
// set every downstream calculator reads.
package aggregate

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/okian/tasteid/internal/domain/genre"
	"github.com/okian/tasteid/internal/domain/model"
)

// Default aggregation configuration constants.
const (
	defaultMinReviews = 3
	decadeWidth       = 10
	countEpsilon      = 1e-9
)

// Observation is one review reduced to the fields the engine uses.
type Observation struct {
	ReviewID  string
	AlbumID   string
	Genres    []string // canonical, sorted
	Year      int      // 0 when the album has no release date
	Artist    string   // case-normalized key
	Rating    float64  // 0..10
	Words     int
	CreatedAt time.Time
}

// FeatureSet is the aggregate view of one user's reviews.
type FeatureSet struct {
	UserID       string
	Observations []Observation

	// GenreCounts holds the split weights: every review adds 1 unit shared
	// evenly across its album's genres.
	GenreCounts  map[string]float64
	DecadeCounts map[string]float64
	ArtistCounts map[string]float64

	GenreLastSeen  map[string]time.Time
	ArtistLastSeen map[string]time.Time

	Ratings    []float64
	WordCounts []int
	AlbumIDs   []string
}

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithMinReviews sets the minimum number of reviews required to aggregate.
func WithMinReviews(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.minReviews = n
		}
	}
}

// Aggregator builds FeatureSets from raw reviews.
type Aggregator struct {
	minReviews int
}

// New creates an Aggregator with configuration options.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{minReviews: defaultMinReviews}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// MinReviews returns the configured minimum review count.
func (a *Aggregator) MinReviews() int { return a.minReviews }

// Aggregate builds the feature set for userID. Reviews are processed in
// (CreatedAt, ID) order so the result does not depend on input order.
func (a *Aggregator) Aggregate(userID string, reviews []model.Review) (FeatureSet, error) {
	if len(reviews) < a.minReviews {
		return FeatureSet{}, fmt.Errorf("%w: user %s has %d reviews, need %d",
			model.ErrInsufficientData, userID, len(reviews), a.minReviews)
	}

	ordered := append([]model.Review(nil), reviews...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
		}
		return ordered[i].ID < ordered[j].ID
	})

	fs := FeatureSet{
		UserID:         userID,
		Observations:   make([]Observation, 0, len(ordered)),
		GenreCounts:    make(map[string]float64),
		DecadeCounts:   make(map[string]float64),
		ArtistCounts:   make(map[string]float64),
		GenreLastSeen:  make(map[string]time.Time),
		ArtistLastSeen: make(map[string]time.Time),
		Ratings:        make([]float64, 0, len(ordered)),
		WordCounts:     make([]int, 0, len(ordered)),
	}
	albums := make(map[string]struct{}, len(ordered))

	for _, r := range ordered {
		rating, err := r.NormalizedRating()
		if err != nil {
			return FeatureSet{}, err
		}
		obs := Observation{
			ReviewID:  r.ID,
			AlbumID:   r.AlbumID,
			Genres:    genre.CanonicalSet(r.Album.Genres),
			Artist:    NormalizeArtist(r.Album.ArtistName),
			Rating:    rating,
			Words:     len(strings.Fields(r.Text)),
			CreatedAt: r.CreatedAt,
		}
		if !r.Album.ReleaseDate.IsZero() {
			obs.Year = r.Album.ReleaseDate.Year()
		}

		if n := len(obs.Genres); n > 0 {
			share := 1.0 / float64(n)
			for _, g := range obs.Genres {
				fs.GenreCounts[g] += share
				touch(fs.GenreLastSeen, g, obs.CreatedAt)
			}
		}
		if obs.Year > 0 {
			fs.DecadeCounts[DecadeLabel(obs.Year)]++
		}
		if obs.Artist != "" {
			fs.ArtistCounts[obs.Artist]++
			touch(fs.ArtistLastSeen, obs.Artist, obs.CreatedAt)
		}
		albumID := r.AlbumID
		if albumID == "" {
			albumID = r.Album.ID
		}
		if albumID != "" {
			albums[albumID] = struct{}{}
		}

		fs.Ratings = append(fs.Ratings, rating)
		fs.WordCounts = append(fs.WordCounts, obs.Words)
		fs.Observations = append(fs.Observations, obs)
	}

	if len(fs.GenreCounts) == 0 {
		return FeatureSet{}, fmt.Errorf("%w: user %s has no genre metadata on any rated album",
			model.ErrComputationFailure, userID)
	}
	if len(fs.DecadeCounts) == 0 {
		return FeatureSet{}, fmt.Errorf("%w: user %s has no release dates on any rated album",
			model.ErrComputationFailure, userID)
	}

	fs.AlbumIDs = make([]string, 0, len(albums))
	for id := range albums {
		fs.AlbumIDs = append(fs.AlbumIDs, id)
	}
	sort.Strings(fs.AlbumIDs)

	return fs, nil
}

// GenreVector returns the normalized genre distribution.
func (fs FeatureSet) GenreVector() map[string]float64 { return Normalize(fs.GenreCounts) }

// DecadePreferences returns the normalized decade distribution.
func (fs FeatureSet) DecadePreferences() map[string]float64 { return Normalize(fs.DecadeCounts) }

// TopGenres ranks genres by weight, most recent rating first on ties.
func (fs FeatureSet) TopGenres(n int) []string {
	return Rank(fs.GenreCounts, fs.GenreLastSeen, n)
}

// TopArtists ranks artists by frequency, most recent rating first on ties.
func (fs FeatureSet) TopArtists(n int) []string {
	return Rank(fs.ArtistCounts, fs.ArtistLastSeen, n)
}

// NormalizeArtist lowercases, trims and collapses whitespace.
func NormalizeArtist(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// DecadeLabel returns the decade bucket label for a year, e.g. 1994 -> "1990s".
func DecadeLabel(year int) string {
	return strconv.Itoa(year/decadeWidth*decadeWidth) + "s"
}

// Normalize scales non-negative counts to a distribution summing to 1. Keys
// are summed in sorted order so the result is bit-identical across runs.
func Normalize(counts map[string]float64) map[string]float64 {
	keys := sortedKeys(counts)
	var total float64
	for _, k := range keys {
		if v := counts[k]; v > 0 {
			total += v
		}
	}
	out := make(map[string]float64, len(keys))
	if total == 0 {
		return out
	}
	for _, k := range keys {
		if v := counts[k]; v > 0 {
			out[k] = v / total
		}
	}
	return out
}

// Rank returns up to n keys ordered by count desc, lastSeen desc, key asc.
// n <= 0 returns every key.
func Rank(counts map[string]float64, lastSeen map[string]time.Time, n int) []string {
	keys := sortedKeys(counts)
	sort.SliceStable(keys, func(i, j int) bool {
		ci, cj := counts[keys[i]], counts[keys[j]]
		if d := ci - cj; d > countEpsilon || d < -countEpsilon {
			return ci > cj
		}
		ti, tj := lastSeen[keys[i]], lastSeen[keys[j]]
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return keys[i] < keys[j]
	})
	if n > 0 && len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func touch(m map[string]time.Time, key string, at time.Time) {
	if prev, ok := m[key]; !ok || at.After(prev) {
		m[key] = at
	}
}
