package service

import (
	"context"
	"fmt"

	"github.com/okian/tasteid/internal/adapters/repository"
	"github.com/okian/tasteid/internal/config"
	"github.com/okian/tasteid/internal/domain/aggregate"
	"github.com/okian/tasteid/internal/domain/archetype"
	"github.com/okian/tasteid/internal/domain/compat"
	"github.com/okian/tasteid/internal/domain/scoring"
	"github.com/okian/tasteid/internal/domain/similarity"
	"github.com/okian/tasteid/internal/domain/tasteid"
)

// FromConfig translates cfg into service options. The store is not included.
func FromConfig(cfg *config.Config) []Option {
	calculator := scoring.NewCalculator(
		scoring.WithBreadthReference(cfg.BreadthReference),
		scoring.WithPolarityScale(cfg.PolarityScale),
		scoring.WithDefaultPlatformMean(cfg.DefaultPlatformMean),
		scoring.WithThresholds(scoring.Thresholds{
			HarshBelow:          cfg.HarshBelow,
			LenientAbove:        cfg.LenientAbove,
			TerseBelowWords:     cfg.TerseBelowWords,
			ElaborateAboveWords: cfg.ElaborateAboveWords,
		}),
	)
	classifier := archetype.NewClassifier(
		archetype.WithSecondaryMargin(cfg.SecondaryMargin),
		archetype.WithDepthSaturation(cfg.DepthSaturationWords),
	)
	scorer := compat.NewScorer(
		compat.WithWeights(compat.Weights{
			Genre:  cfg.GenreWeight,
			Artist: cfg.ArtistWeight,
			Rating: cfg.RatingWeight,
		}),
		compat.WithAlignmentSpan(cfg.AlignmentSpan),
		compat.WithThresholds(compat.Thresholds{
			TwinGenre:         cfg.TwinGenre,
			TwinArtist:        cfg.TwinArtist,
			TwinRating:        cfg.TwinRating,
			GuideGenre:        cfg.GuideGenre,
			GuideAdventureGap: cfg.GuideAdventureGap,
		}),
	)

	return []Option{
		WithWorkerCount(cfg.WorkerCount),
		WithQueueSize(cfg.QueueSize),
		WithDedupeSize(cfg.DedupeSize),
		WithTasteIDOptions(
			tasteid.WithAggregator(aggregate.New(aggregate.WithMinReviews(cfg.MinReviews))),
			tasteid.WithCalculator(calculator),
			tasteid.WithClassifier(classifier),
			tasteid.WithTopN(cfg.TopN),
		),
		WithCompatOptions(
			compat.WithScorer(scorer),
			compat.WithStaleness(cfg.MatchStaleness),
		),
		WithSimilarityOptions(
			similarity.WithDefaultLimit(cfg.SimilarDefaultLimit),
			similarity.WithMaxLimit(cfg.SimilarMaxLimit),
		),
	}
}

// OpenStore opens the persistence backend selected by cfg.
func OpenStore(ctx context.Context, cfg *config.Config) (repository.Store, string, error) {
	switch cfg.Store {
	case "sqlite":
		s, err := repository.OpenSQLite(ctx, cfg.SQLitePath, repository.WithBusyTimeout(cfg.SQLiteBusyTimeout))
		if err != nil {
			return nil, "", fmt.Errorf("open sqlite store: %w", err)
		}
		return s, "sqlite", nil
	case "memory", "":
		return repository.NewMemoryStore(), "memory", nil
	default:
		return nil, "", fmt.Errorf("%w: unknown store %q", config.ErrInvalidConfig, cfg.Store)
	}
}
