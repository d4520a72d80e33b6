// Package repository defines the persistence interfaces for reviews, TasteIDs
// and matches, with in-memory and SQLite implementations.
package repository

import (
	"context"

	"github.com/okian/tasteid/internal/domain/model"
)

// ReviewReader reads review history. Implementations return reviews with
// their album populated.
type ReviewReader interface {
	// Reviews returns every review of a user.
	Reviews(ctx context.Context, userID string) ([]model.Review, error)
	// PlatformMeanRating returns the mean normalized rating across all
	// reviews; ok is false when there is no population data.
	PlatformMeanRating(ctx context.Context) (mean float64, ok bool, err error)
	// ReviewerIDs returns the ids of every user with at least one review, sorted.
	ReviewerIDs(ctx context.Context) ([]string, error)
}

// ReviewWriter stores reviews. Used for seeding and fixtures.
type ReviewWriter interface {
	AddReviews(ctx context.Context, reviews []model.Review) error
}

// TasteStore persists TasteIDs and their snapshot history.
type TasteStore interface {
	// GetTasteID returns model.ErrNotFound (wrapped) for unknown users.
	GetTasteID(ctx context.Context, userID string) (model.TasteID, error)
	// UpsertTasteID inserts or replaces the user's TasteID. An existing row
	// keeps its ID.
	UpsertTasteID(ctx context.Context, t model.TasteID) (model.TasteID, error)
	AppendSnapshot(ctx context.Context, s model.TasteIDSnapshot) error
	ListTasteIDs(ctx context.Context) ([]model.TasteID, error)
	// Snapshots returns a user's snapshots newest first; limit <= 0 returns all.
	Snapshots(ctx context.Context, userID string, limit int) ([]model.TasteIDSnapshot, error)
	// SaveTasteID upserts the TasteID and appends a snapshot of it atomically.
	SaveTasteID(ctx context.Context, t model.TasteID) (model.TasteID, model.TasteIDSnapshot, error)
}

// MatchStore persists pairwise matches keyed by canonical pair.
type MatchStore interface {
	// GetTasteMatch returns model.ErrNotFound (wrapped) when no match is cached.
	GetTasteMatch(ctx context.Context, user1ID, user2ID string) (model.TasteMatch, error)
	// UpsertTasteMatch stores the match under (m.User1ID, m.User2ID), which
	// must be in canonical order.
	UpsertTasteMatch(ctx context.Context, m model.TasteMatch) error
}

// Stats summarizes store contents.
type Stats struct {
	Reviews   int `json:"reviews"`
	Reviewers int `json:"reviewers"`
	TasteIDs  int `json:"taste_ids"`
	Snapshots int `json:"snapshots"`
	Matches   int `json:"matches"`
}

// Store is the full persistence surface.
type Store interface {
	ReviewReader
	ReviewWriter
	TasteStore
	MatchStore

	Stats(ctx context.Context) (Stats, error)
	Close() error
}
