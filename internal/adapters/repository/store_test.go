package repository_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/okian/tasteid/internal/adapters/repository"
	"github.com/okian/tasteid/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var epoch = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func review(user string, i int, rating float64, scale model.RatingScale, genres ...string) model.Review {
	album := fmt.Sprintf("album-%s-%d", user, i)
	return model.Review{
		ID:        fmt.Sprintf("%s-r%d", user, i),
		UserID:    user,
		AlbumID:   album,
		Rating:    rating,
		Scale:     scale,
		Text:      "solid record",
		CreatedAt: epoch.Add(time.Duration(i) * time.Minute),
		Album: model.Album{
			ID:          album,
			Title:       "Title " + album,
			ArtistName:  "Artist",
			Genres:      genres,
			ReleaseDate: time.Date(1990+i, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

func taste(user string, archetype model.Archetype, at time.Time) model.TasteID {
	return model.TasteID{
		UserID:              user,
		PrimaryArchetype:    archetype,
		ArchetypeConfidence: 0.5,
		GenreVector:         map[string]float64{"jazz": 0.6, "rock": 0.4},
		DecadePreferences:   map[string]float64{"1990s": 1},
		TopGenres:           []string{"jazz", "rock"},
		TopArtists:          []string{"artist"},
		AlbumIDs:            []string{"a1", "a2", "a3"},
		ReviewCount:         3,
		Cognitive: model.CognitiveState{
			Activations:     map[model.Network]float64{model.NetworkLimbic: 100},
			DominantNetwork: model.NetworkLimbic,
			MusicMode:       "Emotion",
		},
		LastComputedAt: at,
	}
}

type factory struct {
	name string
	open func(t *testing.T) repository.Store
}

func factories() []factory {
	return []factory{
		{name: "memory", open: func(*testing.T) repository.Store { return repository.NewMemoryStore() }},
		{name: "sqlite", open: func(t *testing.T) repository.Store {
			st, err := repository.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "taste.db"))
			if err != nil {
				t.Fatalf("OpenSQLite: %v", err)
			}
			return st
		}},
	}
}

func TestStore_Reviews(t *testing.T) {
	for _, f := range factories() {
		Convey("Given an empty "+f.name+" store", t, func() {
			ctx := context.Background()
			st := f.open(t)
			defer st.Close()

			Convey("When there are no reviews", func() {
				_, ok, err := st.PlatformMeanRating(ctx)

				Convey("Then the platform mean is unknown", func() {
					So(err, ShouldBeNil)
					So(ok, ShouldBeFalse)
				})
			})

			Convey("When reviews are added out of order", func() {
				err := st.AddReviews(ctx, []model.Review{
					review("bob", 2, 4, model.ScaleFive, "rock"),
					review("alice", 3, 6, model.ScaleTen, "jazz", "soul"),
					review("alice", 1, 8, model.ScaleTen, "jazz"),
				})
				So(err, ShouldBeNil)

				Convey("Then a user's reviews come back ordered with albums", func() {
					rs, err := st.Reviews(ctx, "alice")
					So(err, ShouldBeNil)
					So(len(rs), ShouldEqual, 2)
					So(rs[0].ID, ShouldEqual, "alice-r1")
					So(rs[1].Album.Genres, ShouldResemble, []string{"jazz", "soul"})
					So(rs[1].Album.ReleaseDate.Equal(time.Date(1993, 1, 1, 0, 0, 0, 0, time.UTC)), ShouldBeTrue)
					So(rs[0].CreatedAt.Equal(epoch.Add(time.Minute)), ShouldBeTrue)
				})

				Convey("Then five-scale ratings are normalized in the platform mean", func() {
					mean, ok, err := st.PlatformMeanRating(ctx)
					So(err, ShouldBeNil)
					So(ok, ShouldBeTrue)
					So(mean, ShouldAlmostEqual, (8.0+6.0+8.0)/3, 1e-9)
				})

				Convey("Then reviewer ids are sorted", func() {
					ids, err := st.ReviewerIDs(ctx)
					So(err, ShouldBeNil)
					So(ids, ShouldResemble, []string{"alice", "bob"})
				})

				Convey("Then re-adding a review replaces it", func() {
					updated := review("alice", 1, 2, model.ScaleTen, "jazz")
					So(st.AddReviews(ctx, []model.Review{updated}), ShouldBeNil)
					rs, _ := st.Reviews(ctx, "alice")
					So(len(rs), ShouldEqual, 2)
					So(rs[0].Rating, ShouldEqual, 2)
				})
			})

			Convey("When a review has no user", func() {
				err := st.AddReviews(ctx, []model.Review{{ID: "x", AlbumID: "a"}})

				Convey("Then it is rejected", func() {
					So(errors.Is(err, repository.ErrStore), ShouldBeTrue)
				})
			})
		})
	}
}

func TestStore_TasteIDs(t *testing.T) {
	for _, f := range factories() {
		Convey("Given a "+f.name+" store", t, func() {
			ctx := context.Background()
			st := f.open(t)
			defer st.Close()

			Convey("When a TasteID is unknown", func() {
				_, err := st.GetTasteID(ctx, "ghost")

				Convey("Then it is not found", func() {
					So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
				})
			})

			Convey("When a TasteID is saved twice", func() {
				first, snap1, err := st.SaveTasteID(ctx, taste("alice", model.ArchetypeConnoisseur, epoch))
				So(err, ShouldBeNil)
				second, snap2, err := st.SaveTasteID(ctx, taste("alice", model.ArchetypeHeadbanger, epoch.Add(time.Hour)))
				So(err, ShouldBeNil)

				Convey("Then the TasteID keeps its id and holds the latest values", func() {
					So(first.ID, ShouldNotBeEmpty)
					So(second.ID, ShouldEqual, first.ID)
					got, err := st.GetTasteID(ctx, "alice")
					So(err, ShouldBeNil)
					So(got.ID, ShouldEqual, first.ID)
					So(got.PrimaryArchetype, ShouldEqual, model.ArchetypeHeadbanger)
					So(got.GenreVector, ShouldResemble, map[string]float64{"jazz": 0.6, "rock": 0.4})
					So(got.Cognitive.Activations[model.NetworkLimbic], ShouldEqual, 100)
				})

				Convey("Then each save appended a snapshot, newest first", func() {
					So(snap1.ID, ShouldNotEqual, snap2.ID)
					snaps, err := st.Snapshots(ctx, "alice", 0)
					So(err, ShouldBeNil)
					So(len(snaps), ShouldEqual, 2)
					So(snaps[0].ID, ShouldEqual, snap2.ID)
					So(snaps[0].TasteIDID, ShouldEqual, first.ID)
					So(snaps[0].TasteID.PrimaryArchetype, ShouldEqual, model.ArchetypeHeadbanger)
					So(snaps[1].TasteID.PrimaryArchetype, ShouldEqual, model.ArchetypeConnoisseur)

					limited, err := st.Snapshots(ctx, "alice", 1)
					So(err, ShouldBeNil)
					So(len(limited), ShouldEqual, 1)
				})

				Convey("Then stats count one TasteID and two snapshots", func() {
					stats, err := st.Stats(ctx)
					So(err, ShouldBeNil)
					So(stats.TasteIDs, ShouldEqual, 1)
					So(stats.Snapshots, ShouldEqual, 2)
				})
			})

			Convey("When TasteIDs are upserted and listed", func() {
				_, err := st.UpsertTasteID(ctx, taste("zed", model.ArchetypeExplorer, epoch))
				So(err, ShouldBeNil)
				_, err = st.UpsertTasteID(ctx, taste("amy", model.ArchetypePurist, epoch))
				So(err, ShouldBeNil)
				So(st.AppendSnapshot(ctx, model.TasteIDSnapshot{UserID: "amy", TasteIDID: "x", CreatedAt: epoch}), ShouldBeNil)

				Convey("Then they are ordered by user id", func() {
					all, err := st.ListTasteIDs(ctx)
					So(err, ShouldBeNil)
					So(len(all), ShouldEqual, 2)
					So(all[0].UserID, ShouldEqual, "amy")
					So(all[1].UserID, ShouldEqual, "zed")
				})
			})

			Convey("When a TasteID has no user", func() {
				_, err := st.UpsertTasteID(ctx, model.TasteID{})

				Convey("Then it is rejected", func() {
					So(errors.Is(err, repository.ErrInvalidTasteID), ShouldBeTrue)
				})
			})

			Convey("When many goroutines save the same user", func() {
				var wg sync.WaitGroup
				for i := 0; i < 8; i++ {
					wg.Add(1)
					go func(i int) {
						defer wg.Done()
						_, _, _ = st.SaveTasteID(ctx, taste("race", model.ArchetypeCritic, epoch.Add(time.Duration(i)*time.Second)))
					}(i)
				}
				wg.Wait()

				Convey("Then exactly one TasteID row exists", func() {
					all, err := st.ListTasteIDs(ctx)
					So(err, ShouldBeNil)
					So(len(all), ShouldEqual, 1)
					snaps, _ := st.Snapshots(ctx, "race", 0)
					So(len(snaps), ShouldEqual, 8)
				})
			})
		})
	}
}

func TestStore_Matches(t *testing.T) {
	for _, f := range factories() {
		Convey("Given a "+f.name+" store", t, func() {
			ctx := context.Background()
			st := f.open(t)
			defer st.Close()

			m := model.TasteMatch{
				User1ID:      "alice",
				User2ID:      "bob",
				OverallScore: 72.5,
				SharedGenres: []string{"jazz"},
				MatchType:    model.MatchGenreBuddy,
				UpdatedAt:    epoch,
			}

			Convey("When a match is upserted", func() {
				So(st.UpsertTasteMatch(ctx, m), ShouldBeNil)
				m.OverallScore = 80
				So(st.UpsertTasteMatch(ctx, m), ShouldBeNil)

				Convey("Then the latest values are returned for the pair", func() {
					got, err := st.GetTasteMatch(ctx, "alice", "bob")
					So(err, ShouldBeNil)
					So(got.OverallScore, ShouldEqual, 80)
					So(got.SharedGenres, ShouldResemble, []string{"jazz"})
					So(got.UpdatedAt.Equal(epoch), ShouldBeTrue)
					stats, _ := st.Stats(ctx)
					So(stats.Matches, ShouldEqual, 1)
				})
			})

			Convey("When the pair is not canonical", func() {
				m.User1ID, m.User2ID = "bob", "alice"

				Convey("Then the upsert is rejected", func() {
					So(errors.Is(st.UpsertTasteMatch(ctx, m), repository.ErrInvalidPair), ShouldBeTrue)
				})
			})

			Convey("When no match is cached", func() {
				_, err := st.GetTasteMatch(ctx, "a", "b")

				Convey("Then it is not found", func() {
					So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
				})
			})
		})
	}
}
