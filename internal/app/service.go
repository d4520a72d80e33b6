// Package service provides the application service behind the HTTP API and
// the operator CLI.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/okian/tasteid/internal/adapters/mq/queue"
	"github.com/okian/tasteid/internal/adapters/mq/worker"
	"github.com/okian/tasteid/internal/adapters/repository"
	"github.com/okian/tasteid/internal/domain/compat"
	"github.com/okian/tasteid/internal/domain/dedupe"
	"github.com/okian/tasteid/internal/domain/model"
	"github.com/okian/tasteid/internal/domain/similarity"
	"github.com/okian/tasteid/internal/domain/tasteid"
	"github.com/okian/tasteid/internal/domain/types"
	"github.com/okian/tasteid/pkg/logger"
	"github.com/okian/tasteid/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultQueueSize  = 10000
	defaultDedupeSize = 0
)

// Service wires the TasteID, compatibility and similarity engines to a store.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    repository.Store
	tastes   *tasteid.Engine
	matches  *compat.Engine
	searcher *similarity.Searcher
	deduper  dedupe.Deduper

	// Configuration
	workerCount  int
	queueSize    int
	dedupeSize   int
	storeName    string
	tasteOpts    []tasteid.Option
	compatOpts   []compat.Option
	searcherOpts []similarity.Option

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the persistence backend. name labels it in stats.
func WithStore(store repository.Store, name string) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
			s.storeName = name
		}
	}
}

// WithWorkerCount sets the number of recompute workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize caps how many users one recompute batch may queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize caps how many computations may be in flight. Zero means unbounded.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size >= 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTasteIDOptions configures the TasteID engine.
func WithTasteIDOptions(opts ...tasteid.Option) Option {
	return func(s *Service) {
		s.tasteOpts = append(s.tasteOpts, opts...)
	}
}

// WithCompatOptions configures the compatibility engine.
func WithCompatOptions(opts ...compat.Option) Option {
	return func(s *Service) {
		s.compatOpts = append(s.compatOpts, opts...)
	}
}

// WithSimilarityOptions configures the similarity searcher.
func WithSimilarityOptions(opts ...similarity.Option) Option {
	return func(s *Service) {
		s.searcherOpts = append(s.searcherOpts, opts...)
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   defaultQueueSize,
		dedupeSize:  defaultDedupeSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the engines. Without a configured store an in-memory one is used.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
		s.storeName = "memory"
	}

	s.tastes = tasteid.NewEngine(s.store, s.store,
		append([]tasteid.Option{tasteid.WithLogger(s.logger.Named("tasteid"))}, s.tasteOpts...)...)
	s.matches = compat.NewEngine(s.store, s.store,
		append([]compat.Option{compat.WithLogger(s.logger.Named("compat"))}, s.compatOpts...)...)
	s.searcher = similarity.New(s.searcherOpts...)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))

	s.started = true
	s.logger.Info(ctx, "taste service started",
		logger.String("store", s.storeName),
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
	)
	return nil
}

// Stop closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error(context.Background(), "failed to close store", logger.Error(err))
	}
	s.started = false
	s.logger.Info(context.Background(), "taste service stopped")
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

func cleanID(userID string) (string, error) {
	id := strings.TrimSpace(userID)
	if id == "" {
		return "", ErrInvalidUserID
	}
	return id, nil
}

// ComputeTasteID computes and stores the user's TasteID. Concurrent calls for
// the same user all run; the store's upsert leaves the last writer's result.
func (s *Service) ComputeTasteID(ctx context.Context, userID string) (model.TasteID, error) {
	if err := s.ready(); err != nil {
		return model.TasteID{}, err
	}
	id, err := cleanID(userID)
	if err != nil {
		return model.TasteID{}, err
	}
	return s.tastes.Compute(ctx, id)
}

// GetTasteID returns the stored TasteID.
func (s *Service) GetTasteID(ctx context.Context, userID string) (model.TasteID, error) {
	if err := s.ready(); err != nil {
		return model.TasteID{}, err
	}
	id, err := cleanID(userID)
	if err != nil {
		return model.TasteID{}, err
	}
	return s.store.GetTasteID(ctx, id)
}

// History returns up to limit snapshots of the user's TasteID, newest first.
// A limit of zero or less returns all of them.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]types.HistoryEntry, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	id, err := cleanID(userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetTasteID(ctx, id); err != nil {
		return nil, err
	}

	snaps, err := s.store.Snapshots(ctx, id, limit)
	if err != nil {
		return nil, err
	}
	out := make([]types.HistoryEntry, len(snaps))
	for i, snap := range snaps {
		out[i] = types.HistoryFromSnapshot(snap)
	}
	return out, nil
}

// CompareTasteIDs returns the compatibility of two users.
func (s *Service) CompareTasteIDs(ctx context.Context, userA, userB string) (model.TasteMatch, error) {
	if err := s.ready(); err != nil {
		return model.TasteMatch{}, err
	}
	return s.matches.Compare(ctx, userA, userB)
}

// FindSimilar returns the users whose genre vectors are closest to userID's.
func (s *Service) FindSimilar(ctx context.Context, userID string, limit int) ([]types.SimilarUser, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	id, err := cleanID(userID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		metrics.RecordSimilarityLatency(float64(time.Since(start).Milliseconds()))
	}()

	query, err := s.store.GetTasteID(ctx, id)
	if err != nil {
		return nil, err
	}
	candidates, err := s.store.ListTasteIDs(ctx)
	if err != nil {
		return nil, err
	}

	found := s.searcher.Search(query, candidates, limit)
	out := make([]types.SimilarUser, len(found))
	for i, m := range found {
		out[i] = types.SimilarUser{
			Rank:             m.Rank,
			UserID:           m.UserID,
			Score:            m.Score,
			PrimaryArchetype: m.PrimaryArchetype,
		}
	}
	return out, nil
}

// Recompute recomputes the TasteIDs of userIDs on a bounded worker pool and
// waits for the batch to finish. An empty list recomputes every reviewer.
// Repeated ids run once and users already queued by another batch are
// skipped. A canceled batch releases every user it queued.
func (s *Service) Recompute(ctx context.Context, userIDs []string) (types.RecomputeSummary, error) {
	if err := s.ready(); err != nil {
		return types.RecomputeSummary{}, err
	}
	start := time.Now()

	if len(userIDs) == 0 {
		all, err := s.store.ReviewerIDs(ctx)
		if err != nil {
			return types.RecomputeSummary{}, fmt.Errorf("list reviewers: %w", err)
		}
		userIDs = all
	}

	summary := types.RecomputeSummary{Requested: len(userIDs)}
	unique := make([]string, 0, len(userIDs))
	seen := make(map[string]struct{}, len(userIDs))
	for _, raw := range userIDs {
		id := strings.TrimSpace(raw)
		if id == "" {
			summary.Rejected++
			continue
		}
		if _, dup := seen[id]; dup {
			summary.Duplicates++
			metrics.RecordRecomputeDuplicate()
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	var mu sync.Mutex
	recorded := make(map[string]struct{}, len(unique))
	defer func() {
		mu.Lock()
		defer mu.Unlock()
		for id := range recorded {
			s.deduper.Unrecord(context.WithoutCancel(ctx), id)
		}
	}()

	capacity := min(max(len(unique), 1), s.queueSize)
	q := queue.NewInMemoryQueue(queue.WithCapacity(capacity))
	queued := 0
	for _, id := range unique {
		if s.deduper.SeenAndRecord(ctx, id) {
			summary.InFlight++
			metrics.RecordRecomputeDuplicate()
			continue
		}
		if !q.Enqueue(ctx, queue.Job{UserID: id}) {
			s.deduper.Unrecord(ctx, id)
			summary.Rejected++
			continue
		}
		recorded[id] = struct{}{}
		queued++
	}
	_ = q.Close()

	if queued > 0 {
		handler := func(ctx context.Context, r worker.Result) {
			mu.Lock()
			defer mu.Unlock()
			s.deduper.Unrecord(ctx, r.Job.UserID)
			delete(recorded, r.Job.UserID)
			summary.Record(r.Job.UserID, r.Outcome, r.Err)
		}

		pool := worker.NewPool(min(s.workerCount, queued), q, s.tastes,
			worker.WithPoolLogger(s.logger.Named("recompute")),
			worker.WithPoolResultHandler(handler),
		)
		pool.Start(ctx)
		// Workers stop on cancellation after their current job; waiting for
		// them keeps the handler from touching the summary after return.
		_ = pool.Wait(context.WithoutCancel(ctx))
	}

	if err := ctx.Err(); err != nil {
		mu.Lock()
		defer mu.Unlock()
		summary.DurationMs = time.Since(start).Milliseconds()
		s.logger.Warn(ctx, "recompute interrupted",
			logger.Int("requested", summary.Requested),
			logger.Int("unfinished", len(recorded)),
		)
		return summary, fmt.Errorf("recompute interrupted: %w", err)
	}

	sort.Slice(summary.Failures, func(i, j int) bool {
		return summary.Failures[i].UserID < summary.Failures[j].UserID
	})
	summary.DurationMs = time.Since(start).Milliseconds()

	s.logger.Info(ctx, "recompute finished",
		logger.Int("requested", summary.Requested),
		logger.Int("succeeded", summary.Succeeded),
		logger.Int("insufficientData", summary.InsufficientData),
		logger.Int("failed", summary.Failed),
		logger.Int("duplicates", summary.Duplicates),
		logger.Int("inFlight", summary.InFlight),
	)
	return summary, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) (types.Stats, error) {
	if err := s.ready(); err != nil {
		return types.Stats{}, err
	}
	st, err := s.store.Stats(ctx)
	if err != nil {
		return types.Stats{}, err
	}
	metrics.UpdateTasteIDsTotal(st.TasteIDs)

	return types.Stats{
		Reviews:            st.Reviews,
		Reviewers:          st.Reviewers,
		TasteIDs:           st.TasteIDs,
		Snapshots:          st.Snapshots,
		Matches:            st.Matches,
		RecomputesInFlight: s.deduper.Size(),
		Store:              s.storeName,
	}, nil
}

// Started reports whether Start has run.
func (s *Service) Started() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// AddReviews seeds reviews into the store.
func (s *Service) AddReviews(ctx context.Context, reviews []model.Review) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.store.AddReviews(ctx, reviews)
}
