package config_test

import (
	"runtime"
	"testing"
	"time"

	"github.com/okian/tasteid/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.Store, convey.ShouldEqual, "memory")
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.MinReviews, convey.ShouldEqual, 3)
			convey.So(cfg.MatchStaleness, convey.ShouldEqual, 24*time.Hour)
			convey.So(cfg.SimilarDefaultLimit, convey.ShouldEqual, 10)
			convey.So(cfg.SimilarMaxLimit, convey.ShouldEqual, 50)
		})

		convey.Convey("Then the defaults are valid", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New()

		convey.Convey("When lenient_above does not exceed harsh_below", func() {
			cfg.LenientAbove = 4

			convey.Convey("Then validation fails naming the field", func() {
				err := cfg.Validate()
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "lenient_above")
			})
		})

		convey.Convey("When the compatibility weights do not sum to 1", func() {
			cfg.RatingWeight = 0.5

			convey.Convey("Then validation fails", func() {
				err := cfg.Validate()
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "must be 1")
			})
		})

		convey.Convey("When sqlite is selected without a path", func() {
			cfg.Store = "sqlite"
			cfg.SQLitePath = ""

			convey.Convey("Then validation fails", func() {
				err := cfg.Validate()
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "sqlite_path")
			})
		})

		convey.Convey("When the store is unknown", func() {
			cfg.Store = "postgres"

			convey.Convey("Then validation fails", func() {
				convey.So(cfg.Validate(), convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When a threshold would be ignored by its engine", func() {
			breadth := config.New()
			breadth.BreadthReference = 1
			margin := config.New()
			margin.SecondaryMargin = 1

			convey.Convey("Then validation fails naming the field", func() {
				err := breadth.Validate()
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "breadth_reference")

				err = margin.Validate()
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "secondary_margin")
			})
		})

		convey.Convey("When the similar max limit is below the default limit", func() {
			cfg.SimilarMaxLimit = 5

			convey.Convey("Then validation fails", func() {
				err := cfg.Validate()
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "similar_max_limit")
			})
		})
	})
}
