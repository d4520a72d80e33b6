// Package config defines service configuration and its loading.
//
// Conventions:
//   - Config is flat; every field carries a koanf key.
//   - New returns the defaults, Load layers a YAML file and TASTEID_* env vars on top.
//   - Validate checks field tags and the rules that span fields.
package config

import (
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn error"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr" validate:"required"`

	// ShutdownTimeout bounds graceful HTTP shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`

	// MetricsEnabled toggles Prometheus recording.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// Store selects the persistence backend: memory or sqlite.
	Store string `koanf:"store" validate:"oneof=memory sqlite"`

	// SQLitePath is the database file used when Store is sqlite.
	SQLitePath string `koanf:"sqlite_path" validate:"required_if=Store sqlite"`

	// SQLiteBusyTimeout is how long SQLite waits on a locked database.
	SQLiteBusyTimeout time.Duration `koanf:"sqlite_busy_timeout" validate:"gte=0"`

	// WorkerCount sets the number of batch recompute workers.
	WorkerCount int `koanf:"worker_count" validate:"gte=1"`

	// QueueSize caps how many users one recompute batch may queue.
	QueueSize int `koanf:"queue_size" validate:"gte=1"`

	// DedupeSize caps how many users recompute batches may hold in flight. Zero means unbounded.
	DedupeSize int `koanf:"dedupe_size" validate:"gte=0"`

	// MinReviews is the fewest reviews a TasteID is computed from.
	MinReviews int `koanf:"min_reviews" validate:"gte=1"`

	// TopN is the length of the TopGenres and TopArtists lists.
	TopN int `koanf:"top_n" validate:"gte=1"`

	// Scoring thresholds.
	BreadthReference    int     `koanf:"breadth_reference" validate:"gte=2"`
	PolarityScale       float64 `koanf:"polarity_scale" validate:"gt=0"`
	DefaultPlatformMean float64 `koanf:"default_platform_mean" validate:"gte=0,lte=10"`
	HarshBelow          float64 `koanf:"harsh_below" validate:"gte=0,lte=10"`
	LenientAbove        float64 `koanf:"lenient_above" validate:"gte=0,lte=10,gtfield=HarshBelow"`
	TerseBelowWords     float64 `koanf:"terse_below_words" validate:"gte=0"`
	ElaborateAboveWords float64 `koanf:"elaborate_above_words" validate:"gtfield=TerseBelowWords"`

	// Archetype classification.
	SecondaryMargin      float64 `koanf:"secondary_margin" validate:"gte=0,lt=1"`
	DepthSaturationWords float64 `koanf:"depth_saturation_words" validate:"gt=0"`

	// Compatibility weights must sum to 1.
	GenreWeight    float64       `koanf:"genre_weight" validate:"gte=0,lte=1"`
	ArtistWeight   float64       `koanf:"artist_weight" validate:"gte=0,lte=1"`
	RatingWeight   float64       `koanf:"rating_weight" validate:"gte=0,lte=1"`
	AlignmentSpan  float64       `koanf:"alignment_span" validate:"gt=0"`
	MatchStaleness time.Duration `koanf:"match_staleness" validate:"gt=0"`

	// Match type thresholds.
	TwinGenre         float64 `koanf:"twin_genre" validate:"gte=0,lte=1"`
	TwinArtist        float64 `koanf:"twin_artist" validate:"gte=0,lte=1"`
	TwinRating        float64 `koanf:"twin_rating" validate:"gte=0,lte=1"`
	GuideGenre        float64 `koanf:"guide_genre" validate:"gte=0,lte=1"`
	GuideAdventureGap float64 `koanf:"guide_adventure_gap" validate:"gte=0,lte=1"`

	// Similarity search limits.
	SimilarDefaultLimit int `koanf:"similar_default_limit" validate:"gte=1"`
	SimilarMaxLimit     int `koanf:"similar_max_limit" validate:"gtefield=SimilarDefaultLimit"`

	// Per-user rate limit on TasteID computation.
	RateLimitEnabled  bool          `koanf:"rate_limit_enabled"`
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"gte=1"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		Addr:            ":9080",
		ShutdownTimeout: 10 * time.Second,
		MetricsEnabled:  true,

		Store:             "memory",
		SQLitePath:        "tasteid.db",
		SQLiteBusyTimeout: 5 * time.Second,

		WorkerCount: runtime.NumCPU(),
		QueueSize:   10_000,
		DedupeSize:  0,

		MinReviews: 3,
		TopN:       10,

		BreadthReference:    12,
		PolarityScale:       5,
		DefaultPlatformMean: 6,
		HarshBelow:          5,
		LenientAbove:        7.5,
		TerseBelowWords:     15,
		ElaborateAboveWords: 60,

		SecondaryMargin:      0.15,
		DepthSaturationWords: 120,

		GenreWeight:    0.45,
		ArtistWeight:   0.20,
		RatingWeight:   0.35,
		AlignmentSpan:  5,
		MatchStaleness: 24 * time.Hour,

		TwinGenre:         0.80,
		TwinArtist:        0.50,
		TwinRating:        0.70,
		GuideGenre:        0.50,
		GuideAdventureGap: 0.35,

		SimilarDefaultLimit: 10,
		SimilarMaxLimit:     50,

		RateLimitEnabled:  true,
		RateLimitRequests: 10,
		RateLimitWindow:   time.Minute,
	}
}
