// Package scoring holds the pure score calculators applied to a feature set.
package scoring

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/okian/tasteid/internal/domain/aggregate"
	"github.com/okian/tasteid/internal/domain/model"
)

// Default scoring configuration constants.
const (
	defaultBreadthReference    = 12
	defaultPolarityScale       = 5.0
	defaultPlatformMean        = 6.0
	defaultHarshBelow          = 5.0
	defaultLenientAbove        = 7.5
	defaultTerseBelowWords     = 15.0
	defaultElaborateAboveWords = 60.0
	maxPolarity                = 2.0
)

// Thresholds groups the classification cut-offs. They come from configuration.
type Thresholds struct {
	HarshBelow          float64
	LenientAbove        float64
	TerseBelowWords     float64
	ElaborateAboveWords float64
}

// Option applies a configuration option to the Calculator.
type Option func(*Calculator)

// WithThresholds sets the rating skew and review depth cut-offs. Invalid
// combinations are ignored.
func WithThresholds(t Thresholds) Option {
	return func(c *Calculator) {
		if t.LenientAbove > t.HarshBelow {
			c.harshBelow = t.HarshBelow
			c.lenientAbove = t.LenientAbove
		}
		if t.ElaborateAboveWords > t.TerseBelowWords && t.TerseBelowWords >= 0 {
			c.terseBelow = t.TerseBelowWords
			c.elaborateAbove = t.ElaborateAboveWords
		}
	}
}

// WithBreadthReference sets the genre count at which an even spread is
// considered fully adventurous.
func WithBreadthReference(n int) Option {
	return func(c *Calculator) {
		if n > 1 {
			c.breadthReference = n
		}
	}
}

// WithPolarityScale sets the divisor applied to the mean absolute deviation.
func WithPolarityScale(scale float64) Option {
	return func(c *Calculator) {
		if scale > 0 {
			c.polarityScale = scale
		}
	}
}

// WithDefaultPlatformMean sets the population mean used when no population data exists.
func WithDefaultPlatformMean(mean float64) Option {
	return func(c *Calculator) {
		if mean >= 0 && mean <= 10 {
			c.defaultPlatformMean = mean
		}
	}
}

// Input abstracts the fields needed for scoring.
type Input struct {
	Features aggregate.FeatureSet
	// PlatformMean is the population mean rating; NaN or a negative value
	// selects the configured default.
	PlatformMean float64
}

// Result contains every score derived from a feature set.
type Result struct {
	Adventureness   float64
	Polarity        float64
	RatingSkew      model.RatingSkew
	ReviewDepth     model.ReviewDepth
	AverageRating   float64
	RatingStdDev    float64
	AvgReviewLength float64
	ReviewCount     int
}

// Scorer computes scores from a feature set.
type Scorer interface {
	Score(ctx context.Context, in Input) (Result, error)
}

// Calculator implements Scorer with configurable thresholds.
type Calculator struct {
	breadthReference    int
	polarityScale       float64
	defaultPlatformMean float64
	harshBelow          float64
	lenientAbove        float64
	terseBelow          float64
	elaborateAbove      float64
}

// NewCalculator creates a calculator with configuration options.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{
		breadthReference:    defaultBreadthReference,
		polarityScale:       defaultPolarityScale,
		defaultPlatformMean: defaultPlatformMean,
		harshBelow:          defaultHarshBelow,
		lenientAbove:        defaultLenientAbove,
		terseBelow:          defaultTerseBelowWords,
		elaborateAbove:      defaultElaborateAboveWords,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Score computes every score for the input.
func (c *Calculator) Score(ctx context.Context, in Input) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("context cancelled: %w", err)
	}
	fs := in.Features
	if len(fs.Ratings) == 0 {
		return Result{}, fmt.Errorf("%w: empty feature set for user %s", model.ErrComputationFailure, fs.UserID)
	}

	platformMean := in.PlatformMean
	if math.IsNaN(platformMean) || platformMean < 0 {
		platformMean = c.defaultPlatformMean
	}

	words := make([]float64, len(fs.WordCounts))
	for i, w := range fs.WordCounts {
		words[i] = float64(w)
	}
	mean := Mean(fs.Ratings)
	avgWords := Mean(words)

	return Result{
		Adventureness:   c.Adventureness(fs.GenreCounts),
		Polarity:        c.Polarity(fs.Ratings, platformMean),
		RatingSkew:      c.Skew(mean),
		ReviewDepth:     c.Depth(avgWords),
		AverageRating:   mean,
		RatingStdDev:    StdDev(fs.Ratings),
		AvgReviewLength: avgWords,
		ReviewCount:     len(fs.Ratings),
	}, nil
}

// Adventureness is the Shannon entropy of the genre count distribution
// divided by ln(max(distinct genres, breadth reference)). It reads raw counts,
// not the normalized vector.
func (c *Calculator) Adventureness(counts map[string]float64) float64 {
	keys := make([]string, 0, len(counts))
	for k, v := range counts {
		if v > 0 {
			keys = append(keys, k)
		}
	}
	if len(keys) < 2 {
		return 0
	}
	// Sum in key order so the result does not depend on map iteration.
	sort.Strings(keys)
	var total float64
	for _, k := range keys {
		total += counts[k]
	}

	var h float64
	for _, k := range keys {
		p := counts[k] / total
		h -= p * math.Log(p)
	}
	n := len(keys)
	if n < c.breadthReference {
		n = c.breadthReference
	}
	return clamp(h/math.Log(float64(n)), 0, 1)
}

// Polarity is the mean absolute deviation from the platform mean divided by
// the polarity scale, clipped to [0, 2].
func (c *Calculator) Polarity(ratings []float64, platformMean float64) float64 {
	if len(ratings) == 0 {
		return 0
	}
	var dev float64
	for _, r := range ratings {
		dev += math.Abs(r - platformMean)
	}
	return clamp(dev/float64(len(ratings))/c.polarityScale, 0, maxPolarity)
}

// Skew classifies a mean rating on the 0..10 scale.
func (c *Calculator) Skew(mean float64) model.RatingSkew {
	switch {
	case mean < c.harshBelow:
		return model.SkewHarsh
	case mean > c.lenientAbove:
		return model.SkewLenient
	default:
		return model.SkewBalanced
	}
}

// Depth classifies a mean review length in words.
func (c *Calculator) Depth(avgWords float64) model.ReviewDepth {
	switch {
	case avgWords < c.terseBelow:
		return model.DepthTerse
	case avgWords > c.elaborateAbove:
		return model.DepthElaborate
	default:
		return model.DepthModerate
	}
}

// ElaborateAboveWords exposes the elaborate cut-off for feature scaling.
func (c *Calculator) ElaborateAboveWords() float64 { return c.elaborateAbove }

// Mean returns the arithmetic mean, 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var s float64
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

// StdDev returns the population standard deviation.
func StdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := Mean(xs)
	var s float64
	for _, x := range xs {
		s += (x - m) * (x - m)
	}
	return math.Sqrt(s / float64(len(xs)))
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
