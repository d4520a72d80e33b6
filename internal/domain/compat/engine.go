package compat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/tasteid/internal/domain/model"
	"github.com/okian/tasteid/pkg/logger"
	"github.com/okian/tasteid/pkg/metrics"
)

const defaultStaleness = 24 * time.Hour

// TasteReader loads persisted TasteIDs.
type TasteReader interface {
	GetTasteID(ctx context.Context, userID string) (model.TasteID, error)
}

// MatchStore reads and writes cached matches keyed by canonical pair.
type MatchStore interface {
	GetTasteMatch(ctx context.Context, user1ID, user2ID string) (model.TasteMatch, error)
	UpsertTasteMatch(ctx context.Context, m model.TasteMatch) error
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithStaleness sets how long a cached match is served without recomputation.
func WithStaleness(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.staleness = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithScorer sets the compatibility scorer.
func WithScorer(s *Scorer) Option {
	return func(e *Engine) {
		if s != nil {
			e.scorer = s
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

// Engine serves compatibility lookups with a staleness-bounded cache.
type Engine struct {
	tastes    TasteReader
	matches   MatchStore
	scorer    *Scorer
	staleness time.Duration
	now       func() time.Time
	logger    logger.Logger
}

// NewEngine creates a compatibility engine over the given stores.
func NewEngine(tastes TasteReader, matches MatchStore, opts ...Option) *Engine {
	e := &Engine{
		tastes:    tastes,
		matches:   matches,
		scorer:    NewScorer(),
		staleness: defaultStaleness,
		now:       time.Now,
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compare returns the compatibility of two users. A cached match no older
// than the staleness window is returned unchanged; otherwise both TasteIDs are
// loaded, scored and the result is stored under the canonical pair.
func (e *Engine) Compare(ctx context.Context, userA, userB string) (model.TasteMatch, error) {
	start := time.Now()
	userA, userB = strings.TrimSpace(userA), strings.TrimSpace(userB)
	if userA == "" || userB == "" {
		return model.TasteMatch{}, fmt.Errorf("%w: user ids must not be empty", model.ErrInvalidComparison)
	}
	if userA == userB {
		return model.TasteMatch{}, fmt.Errorf("%w: cannot compare %s with itself", model.ErrInvalidComparison, userA)
	}
	u1, u2, _ := CanonicalPair(userA, userB)
	now := e.now()

	cached, err := e.matches.GetTasteMatch(ctx, u1, u2)
	switch {
	case err == nil && now.Sub(cached.UpdatedAt) <= e.staleness:
		metrics.RecordMatchCacheHit()
		return cached, nil
	case err != nil && !errors.Is(err, model.ErrNotFound):
		metrics.RecordErrorByComponent("compat", "store")
		return model.TasteMatch{}, fmt.Errorf("load cached match: %w", err)
	}
	metrics.RecordMatchCacheMiss()

	a, err := e.tastes.GetTasteID(ctx, u1)
	if err != nil {
		return model.TasteMatch{}, e.loadErr(ctx, u1, err)
	}
	b, err := e.tastes.GetTasteID(ctx, u2)
	if err != nil {
		return model.TasteMatch{}, e.loadErr(ctx, u2, err)
	}

	m := e.scorer.Score(a, b)
	m.UpdatedAt = now
	if err := e.matches.UpsertTasteMatch(ctx, m); err != nil {
		metrics.RecordErrorByComponent("compat", "store")
		return model.TasteMatch{}, fmt.Errorf("store match: %w", err)
	}

	metrics.RecordMatchType(string(m.MatchType))
	metrics.RecordCompareLatency(float64(time.Since(start).Milliseconds()))
	e.logger.Debug(ctx, "match computed",
		logger.String("user1", m.User1ID),
		logger.String("user2", m.User2ID),
		logger.Float64("overall", m.OverallScore),
		logger.String("matchType", string(m.MatchType)),
	)
	return m, nil
}

func (e *Engine) loadErr(ctx context.Context, userID string, err error) error {
	if errors.Is(err, model.ErrNotFound) {
		metrics.RecordErrorByComponent("compat", "not_found")
		return fmt.Errorf("taste id for %s: %w", userID, err)
	}
	metrics.RecordErrorByComponent("compat", "store")
	e.logger.Error(ctx, "failed to load taste id", logger.UserID(userID), logger.Error(err))
	return fmt.Errorf("load taste id for %s: %w", userID, err)
}
