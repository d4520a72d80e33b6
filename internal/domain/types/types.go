// Package types contains the read shapes returned by the application service.
package types

import (
	"time"

	"github.com/okian/tasteid/internal/domain/model"
)

// SimilarUser is one row of a similarity search.
type SimilarUser struct {
	Rank             int             `json:"rank"`
	UserID           string          `json:"user_id"`
	Score            float64         `json:"score"`
	PrimaryArchetype model.Archetype `json:"primary_archetype"`
}

// HistoryEntry is the trend view of one TasteID snapshot.
type HistoryEntry struct {
	SnapshotID         string          `json:"snapshot_id"`
	ComputedAt         time.Time       `json:"computed_at"`
	PrimaryArchetype   model.Archetype `json:"primary_archetype"`
	SecondaryArchetype model.Archetype `json:"secondary_archetype,omitempty"`
	Confidence         float64         `json:"archetype_confidence"`
	AdventurenessScore float64         `json:"adventureness_score"`
	PolarityScore      float64         `json:"polarity_score"`
	TopGenres          []string        `json:"top_genres"`
	DominantNetwork    model.Network   `json:"dominant_network"`
	ReviewCount        int             `json:"review_count"`
}

// HistoryFromSnapshot flattens a snapshot into its trend view.
func HistoryFromSnapshot(s model.TasteIDSnapshot) HistoryEntry {
	t := s.TasteID
	computed := t.LastComputedAt
	if computed.IsZero() {
		computed = s.CreatedAt
	}
	return HistoryEntry{
		SnapshotID:         s.ID,
		ComputedAt:         computed,
		PrimaryArchetype:   t.PrimaryArchetype,
		SecondaryArchetype: t.SecondaryArchetype,
		Confidence:         t.ArchetypeConfidence,
		AdventurenessScore: t.AdventurenessScore,
		PolarityScore:      t.PolarityScore,
		TopGenres:          append([]string{}, t.TopGenres...),
		DominantNetwork:    t.Cognitive.DominantNetwork,
		ReviewCount:        t.ReviewCount,
	}
}

// Recompute outcomes.
const (
	OutcomeOK               = "ok"
	OutcomeInsufficientData = "insufficient_data"
	OutcomeFailed           = "failed"
)

// RecomputeFailure names a user whose recompute failed.
type RecomputeFailure struct {
	UserID string `json:"user_id"`
	Error  string `json:"error"`
}

// RecomputeSummary reports the result of a batch recompute.
type RecomputeSummary struct {
	Requested        int                `json:"requested"`
	Duplicates       int                `json:"duplicates"`
	InFlight         int                `json:"in_flight"`
	Rejected         int                `json:"rejected"`
	Succeeded        int                `json:"succeeded"`
	InsufficientData int                `json:"insufficient_data"`
	Failed           int                `json:"failed"`
	Failures         []RecomputeFailure `json:"failures,omitempty"`
	DurationMs       int64              `json:"duration_ms"`
}

// Record counts one finished job.
func (s *RecomputeSummary) Record(userID, outcome string, err error) {
	switch outcome {
	case OutcomeOK:
		s.Succeeded++
	case OutcomeInsufficientData:
		s.InsufficientData++
	default:
		s.Failed++
		msg := "unknown error"
		if err != nil {
			msg = err.Error()
		}
		s.Failures = append(s.Failures, RecomputeFailure{UserID: userID, Error: msg})
	}
}

// Processed is the number of jobs that ran.
func (s RecomputeSummary) Processed() int {
	return s.Succeeded + s.InsufficientData + s.Failed
}

// Stats is the service-wide counter snapshot.
type Stats struct {
	Reviews            int    `json:"reviews"`
	Reviewers          int    `json:"reviewers"`
	TasteIDs           int    `json:"taste_ids"`
	Snapshots          int    `json:"snapshots"`
	Matches            int    `json:"matches"`
	RecomputesInFlight int64  `json:"recomputes_in_flight"`
	Store              string `json:"store"`
}
