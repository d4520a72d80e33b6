// Package tasteid assembles a user's TasteID from their review history and
// persists it together with a history snapshot.
package tasteid

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/okian/tasteid/internal/domain/aggregate"
	"github.com/okian/tasteid/internal/domain/archetype"
	"github.com/okian/tasteid/internal/domain/brainid"
	"github.com/okian/tasteid/internal/domain/model"
	"github.com/okian/tasteid/internal/domain/scoring"
	"github.com/okian/tasteid/pkg/logger"
	"github.com/okian/tasteid/pkg/metrics"
)

const defaultTopN = 10

// ReviewSource reads the inputs of a computation.
type ReviewSource interface {
	Reviews(ctx context.Context, userID string) ([]model.Review, error)
	PlatformMeanRating(ctx context.Context) (float64, bool, error)
}

// Saver persists a TasteID and its snapshot atomically.
type Saver interface {
	SaveTasteID(ctx context.Context, t model.TasteID) (model.TasteID, model.TasteIDSnapshot, error)
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithAggregator sets the review aggregator.
func WithAggregator(a *aggregate.Aggregator) Option {
	return func(e *Engine) {
		if a != nil {
			e.aggregator = a
		}
	}
}

// WithCalculator sets the score calculator.
func WithCalculator(c *scoring.Calculator) Option {
	return func(e *Engine) {
		if c != nil {
			e.calculator = c
		}
	}
}

// WithClassifier sets the archetype classifier.
func WithClassifier(c *archetype.Classifier) Option {
	return func(e *Engine) {
		if c != nil {
			e.classifier = c
		}
	}
}

// WithTopN sets how many genres and artists are kept in the ranked lists.
func WithTopN(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.topN = n
		}
	}
}

// WithClock overrides the time source used for LastComputedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets a custom logger for the engine.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// Engine computes TasteIDs.
type Engine struct {
	reviews    ReviewSource
	store      Saver
	aggregator *aggregate.Aggregator
	calculator *scoring.Calculator
	classifier *archetype.Classifier
	topN       int
	now        func() time.Time
	logger     logger.Logger
}

// NewEngine creates an engine reading from reviews and writing to store.
func NewEngine(reviews ReviewSource, store Saver, opts ...Option) *Engine {
	e := &Engine{
		reviews:    reviews,
		store:      store,
		aggregator: aggregate.New(),
		calculator: scoring.NewCalculator(),
		classifier: archetype.NewClassifier(),
		topN:       defaultTopN,
		now:        time.Now,
		logger:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Build is the pure part of a computation. Identical reviews produce identical
// vectors, scores and archetypes; now only stamps LastComputedAt. A NaN
// platform mean selects the configured default.
func (e *Engine) Build(ctx context.Context, userID string, reviews []model.Review, platformMean float64, now time.Time) (model.TasteID, error) {
	fs, err := e.aggregator.Aggregate(userID, reviews)
	if err != nil {
		return model.TasteID{}, err
	}
	scores, err := e.calculator.Score(ctx, scoring.Input{Features: fs, PlatformMean: platformMean})
	if err != nil {
		return model.TasteID{}, err
	}

	genres := fs.GenreVector()
	class := e.classifier.Classify(archetype.Features{
		Adventureness: scores.Adventureness,
		Polarity:      scores.Polarity,
		AverageRating: scores.AverageRating,
		AvgWords:      scores.AvgReviewLength,
		GenreVector:   genres,
	})

	return model.TasteID{
		UserID:              userID,
		PrimaryArchetype:    class.Primary,
		SecondaryArchetype:  class.Secondary,
		ArchetypeConfidence: class.Confidence,
		GenreVector:         genres,
		DecadePreferences:   fs.DecadePreferences(),
		TopGenres:           fs.TopGenres(e.topN),
		TopArtists:          fs.TopArtists(e.topN),
		AlbumIDs:            append([]string(nil), fs.AlbumIDs...),
		AdventurenessScore:  scores.Adventureness,
		PolarityScore:       scores.Polarity,
		RatingSkew:          scores.RatingSkew,
		ReviewDepth:         scores.ReviewDepth,
		AverageRating:       scores.AverageRating,
		RatingStdDev:        scores.RatingStdDev,
		AvgReviewLength:     scores.AvgReviewLength,
		ReviewCount:         scores.ReviewCount,
		Cognitive:           brainid.Map(genres),
		LastComputedAt:      now.UTC(),
	}, nil
}

// Compute reads the user's reviews, builds the TasteID and saves it with a
// snapshot. Nothing is written when any step fails.
func (e *Engine) Compute(ctx context.Context, userID string) (model.TasteID, error) {
	start := time.Now()
	t, err := e.compute(ctx, userID)
	metrics.RecordComputeLatency(float64(time.Since(start).Milliseconds()))

	switch {
	case err == nil:
		metrics.RecordComputation("ok")
		metrics.RecordSnapshotWritten()
		e.logger.Info(ctx, "taste id computed",
			logger.UserID(userID),
			logger.String("archetype", string(t.PrimaryArchetype)),
			logger.Float64("confidence", t.ArchetypeConfidence),
			logger.Int("reviews", t.ReviewCount),
		)
	case errors.Is(err, model.ErrInsufficientData):
		metrics.RecordComputation("insufficient_data")
		e.logger.Debug(ctx, "not enough reviews", logger.UserID(userID), logger.Error(err))
	default:
		metrics.RecordComputation("failed")
		metrics.RecordErrorByComponent("tasteid", "computation")
		e.logger.Error(ctx, "taste id computation failed", logger.UserID(userID), logger.Error(err))
	}
	return t, err
}

func (e *Engine) compute(ctx context.Context, userID string) (model.TasteID, error) {
	reviews, err := e.reviews.Reviews(ctx, userID)
	if err != nil {
		return model.TasteID{}, fmt.Errorf("read reviews for %s: %w", userID, err)
	}
	if len(reviews) < e.aggregator.MinReviews() {
		return model.TasteID{}, fmt.Errorf("%w: user %s has %d reviews, need %d",
			model.ErrInsufficientData, userID, len(reviews), e.aggregator.MinReviews())
	}

	mean, ok, err := e.reviews.PlatformMeanRating(ctx)
	if err != nil {
		return model.TasteID{}, fmt.Errorf("read platform mean: %w", err)
	}
	if !ok {
		mean = math.NaN()
	}

	t, err := e.Build(ctx, userID, reviews, mean, e.now())
	if err != nil {
		return model.TasteID{}, err
	}
	saved, _, err := e.store.SaveTasteID(ctx, t)
	if err != nil {
		return model.TasteID{}, fmt.Errorf("save taste id for %s: %w", userID, err)
	}
	return saved, nil
}
