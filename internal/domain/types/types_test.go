package types_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/tasteid/internal/domain/model"
	"github.com/okian/tasteid/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestHistoryFromSnapshot(t *testing.T) {
	Convey("Given a snapshot of a computed TasteID", t, func() {
		computed := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
		snap := model.TasteIDSnapshot{
			ID:        "01JSNAP",
			TasteIDID: "tid-1",
			UserID:    "alice",
			CreatedAt: computed.Add(time.Second),
			TasteID: model.TasteID{
				UserID:              "alice",
				PrimaryArchetype:    model.ArchetypeConnoisseur,
				SecondaryArchetype:  model.ArchetypeHeadbanger,
				ArchetypeConfidence: 0.48,
				AdventurenessScore:  0.27,
				PolarityScore:       0.43,
				TopGenres:           []string{"jazz", "rock"},
				ReviewCount:         5,
				Cognitive:           model.CognitiveState{DominantNetwork: model.NetworkFrontoparietal},
				LastComputedAt:      computed,
			},
		}

		Convey("When it is flattened", func() {
			h := types.HistoryFromSnapshot(snap)

			Convey("Then the trend fields are carried over", func() {
				So(h.SnapshotID, ShouldEqual, "01JSNAP")
				So(h.ComputedAt, ShouldEqual, computed)
				So(h.PrimaryArchetype, ShouldEqual, model.ArchetypeConnoisseur)
				So(h.SecondaryArchetype, ShouldEqual, model.ArchetypeHeadbanger)
				So(h.Confidence, ShouldEqual, 0.48)
				So(h.TopGenres, ShouldResemble, []string{"jazz", "rock"})
				So(h.DominantNetwork, ShouldEqual, model.NetworkFrontoparietal)
				So(h.ReviewCount, ShouldEqual, 5)
			})

			Convey("Then the genre list is not shared with the snapshot", func() {
				h.TopGenres[0] = "pop"
				So(snap.TasteID.TopGenres[0], ShouldEqual, "jazz")
			})
		})

		Convey("When the TasteID carries no computation time", func() {
			snap.TasteID.LastComputedAt = time.Time{}
			h := types.HistoryFromSnapshot(snap)

			Convey("Then the snapshot time is used", func() {
				So(h.ComputedAt, ShouldEqual, snap.CreatedAt)
			})
		})
	})
}

func TestRecomputeSummary(t *testing.T) {
	Convey("Given an empty summary", t, func() {
		var s types.RecomputeSummary

		Convey("When outcomes are recorded", func() {
			s.Record("a", types.OutcomeOK, nil)
			s.Record("b", types.OutcomeOK, nil)
			s.Record("c", types.OutcomeInsufficientData, errors.New("2 reviews"))
			s.Record("d", types.OutcomeFailed, errors.New("boom"))
			s.Record("e", "weird", nil)

			Convey("Then each outcome is counted", func() {
				So(s.Succeeded, ShouldEqual, 2)
				So(s.InsufficientData, ShouldEqual, 1)
				So(s.Failed, ShouldEqual, 2)
				So(s.Processed(), ShouldEqual, 5)
			})

			Convey("Then only failures are listed", func() {
				So(s.Failures, ShouldResemble, []types.RecomputeFailure{
					{UserID: "d", Error: "boom"},
					{UserID: "e", Error: "unknown error"},
				})
			})
		})
	})
}
