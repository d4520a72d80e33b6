package aggregate_test

import (
	"errors"
	"math"
	"strconv"
	"testing"
	"time"

	"github.com/okian/tasteid/internal/domain/aggregate"
	"github.com/okian/tasteid/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var base = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func review(i int, artist string, year int, rating float64, genres ...string) model.Review {
	id := strconv.Itoa(i)
	return model.Review{
		ID:        "r" + id,
		UserID:    "u1",
		AlbumID:   "a" + id,
		Rating:    rating,
		Scale:     model.ScaleTen,
		CreatedAt: base.Add(time.Duration(i) * time.Hour),
		Album: model.Album{
			ID:          "a" + id,
			ArtistName:  artist,
			Genres:      genres,
			ReleaseDate: time.Date(year, 6, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

func sum(m map[string]float64) float64 {
	var s float64
	for _, v := range m {
		s += v
	}
	return s
}

func TestAggregator_Aggregate(t *testing.T) {
	Convey("Given an aggregator with the default minimum", t, func() {
		agg := aggregate.New()

		Convey("When a user rated three jazz and two rock albums", func() {
			reviews := []model.Review{
				review(1, "Miles Davis", 1959, 8, "jazz"),
				review(2, "miles  davis", 1970, 9, "Jazz"),
				review(3, "John Coltrane", 1965, 7, "jazz"),
				review(4, "Nirvana", 1991, 3, "rock"),
				review(5, "Pixies", 1989, 4, "Alt Rock"),
			}
			fs, err := agg.Aggregate("u1", reviews)

			Convey("Then the genre vector is 0.6 jazz and 0.4 rock", func() {
				So(err, ShouldBeNil)
				gv := fs.GenreVector()
				So(gv["jazz"], ShouldAlmostEqual, 0.6, 1e-9)
				So(gv["rock"], ShouldAlmostEqual, 0.4, 1e-9)
				So(sum(gv), ShouldAlmostEqual, 1.0, 1e-9)
			})

			Convey("And decade preferences are normalized", func() {
				dp := fs.DecadePreferences()
				So(dp["1950s"], ShouldAlmostEqual, 0.2, 1e-9)
				So(dp["1960s"], ShouldAlmostEqual, 0.2, 1e-9)
				So(dp["1980s"], ShouldAlmostEqual, 0.2, 1e-9)
				So(sum(dp), ShouldAlmostEqual, 1.0, 1e-9)
			})

			Convey("And artists are counted case-insensitively", func() {
				So(fs.ArtistCounts["miles davis"], ShouldEqual, 2)
				So(fs.TopArtists(2), ShouldResemble, []string{"miles davis", "pixies"})
			})

			Convey("And the album id set is sorted", func() {
				So(fs.AlbumIDs, ShouldResemble, []string{"a1", "a2", "a3", "a4", "a5"})
			})
		})

		Convey("When an album carries several genres", func() {
			reviews := []model.Review{
				review(1, "A", 2001, 6, "jazz", "funk", "soul"),
				review(2, "B", 2002, 6, "jazz"),
				review(3, "C", 2003, 6, "jazz"),
			}
			fs, err := agg.Aggregate("u1", reviews)

			Convey("Then each genre receives an equal share of one unit", func() {
				So(err, ShouldBeNil)
				So(fs.GenreCounts["funk"], ShouldAlmostEqual, 1.0/3, 1e-12)
				So(fs.GenreCounts["jazz"], ShouldAlmostEqual, 2+1.0/3, 1e-12)
			})
		})

		Convey("When a user has exactly three reviews", func() {
			_, err := agg.Aggregate("u1", []model.Review{
				review(1, "A", 2001, 6, "pop"),
				review(2, "B", 2002, 6, "pop"),
				review(3, "C", 2003, 6, "pop"),
			})

			Convey("Then aggregation succeeds", func() {
				So(err, ShouldBeNil)
			})
		})

		Convey("When a user has two reviews", func() {
			_, err := agg.Aggregate("u1", []model.Review{
				review(1, "A", 2001, 6, "pop"),
				review(2, "B", 2002, 6, "pop"),
			})

			Convey("Then it fails with insufficient data", func() {
				So(errors.Is(err, model.ErrInsufficientData), ShouldBeTrue)
			})
		})

		Convey("When no rated album has genre metadata", func() {
			_, err := agg.Aggregate("u1", []model.Review{
				review(1, "A", 2001, 6),
				review(2, "B", 2002, 6),
				review(3, "C", 2003, 6),
			})

			Convey("Then it fails with a computation failure", func() {
				So(errors.Is(err, model.ErrComputationFailure), ShouldBeTrue)
			})
		})

		Convey("When a rating is out of range", func() {
			bad := review(3, "C", 2003, 11, "pop")
			_, err := agg.Aggregate("u1", []model.Review{
				review(1, "A", 2001, 6, "pop"),
				review(2, "B", 2002, 6, "pop"),
				bad,
			})

			Convey("Then it fails with a computation failure", func() {
				So(errors.Is(err, model.ErrComputationFailure), ShouldBeTrue)
			})
		})

		Convey("When ratings are not finite numbers", func() {
			for _, r := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
				five := review(3, "C", 2003, r, "pop")
				five.Scale = model.ScaleFive
				_, errTen := agg.Aggregate("u1", []model.Review{
					review(1, "A", 2001, 7, "pop"),
					review(2, "B", 2002, r, "pop"),
					review(3, "C", 2003, r, "pop"),
				})
				_, errFive := agg.Aggregate("u1", []model.Review{
					review(1, "A", 2001, 7, "pop"),
					review(2, "B", 2002, 6, "pop"),
					five,
				})

				So(errors.Is(errTen, model.ErrComputationFailure), ShouldBeTrue)
				So(errors.Is(errFive, model.ErrComputationFailure), ShouldBeTrue)
			}
		})

		Convey("When reviews arrive in a different order", func() {
			a := []model.Review{
				review(1, "A", 2001, 6, "pop", "rock"),
				review(2, "B", 1992, 3, "jazz"),
				review(3, "C", 1983, 9, "metal", "punk", "rock"),
			}
			b := []model.Review{a[2], a[0], a[1]}
			fa, errA := agg.Aggregate("u1", a)
			fb, errB := agg.Aggregate("u1", b)

			Convey("Then the feature sets are identical", func() {
				So(errA, ShouldBeNil)
				So(errB, ShouldBeNil)
				So(fa.GenreVector(), ShouldResemble, fb.GenreVector())
				So(fa.Ratings, ShouldResemble, fb.Ratings)
			})
		})
	})
}

func TestRank(t *testing.T) {
	Convey("Given counts with a tie", t, func() {
		counts := map[string]float64{"a": 2, "b": 2, "c": 5, "d": 1}
		seen := map[string]time.Time{
			"a": base,
			"b": base.Add(time.Hour),
			"c": base,
			"d": base,
		}

		Convey("Then the most recently rated key wins the tie", func() {
			So(aggregate.Rank(counts, seen, 3), ShouldResemble, []string{"c", "b", "a"})
		})

		Convey("Then n <= 0 returns every key", func() {
			So(len(aggregate.Rank(counts, seen, 0)), ShouldEqual, 4)
		})
	})
}

func TestNormalize(t *testing.T) {
	Convey("Given an empty count map", t, func() {
		Convey("Then the distribution is empty", func() {
			So(aggregate.Normalize(map[string]float64{}), ShouldBeEmpty)
		})
	})

	Convey("Given arbitrary positive counts", t, func() {
		out := aggregate.Normalize(map[string]float64{"x": 1.0 / 3, "y": 7, "z": math.Pi})

		Convey("Then weights are non-negative and sum to 1", func() {
			for _, v := range out {
				So(v, ShouldBeGreaterThanOrEqualTo, 0)
			}
			So(sum(out), ShouldAlmostEqual, 1.0, 1e-9)
		})
	})

	Convey("Given a release year", t, func() {
		Convey("Then the decade label floors to the decade", func() {
			So(aggregate.DecadeLabel(1994), ShouldEqual, "1990s")
			So(aggregate.DecadeLabel(2000), ShouldEqual, "2000s")
		})
	})
}
