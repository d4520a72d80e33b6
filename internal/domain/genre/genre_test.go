package genre_test

import (
	"testing"

	"github.com/okian/tasteid/internal/domain/genre"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCanonical(t *testing.T) {
	Convey("Given raw genre tags", t, func() {
		Convey("Then case, whitespace and aliases are normalized", func() {
			So(genre.Canonical("  Hip   Hop "), ShouldEqual, "hip-hop")
			So(genre.Canonical("RAP"), ShouldEqual, "hip-hop")
			So(genre.Canonical("Jazz"), ShouldEqual, "jazz")
			So(genre.Canonical("Shoegaze"), ShouldEqual, "shoegaze")
		})

		Convey("Then a tag set collapses duplicates and empties", func() {
			set := genre.CanonicalSet([]string{"Rock", "alt rock", "", "  ", "Jazz"})
			So(set, ShouldResemble, []string{"jazz", "rock"})
		})
	})
}

func TestFamilyShares(t *testing.T) {
	Convey("Given a genre distribution", t, func() {
		dist := map[string]float64{"jazz": 0.5, "metal": 0.25, "shoegaze": 0.25}

		Convey("When summing into families", func() {
			shares := genre.FamilyShares(dist)

			Convey("Then known genres land in their family and unknown ones are dropped", func() {
				So(shares[genre.FamilySophisticated], ShouldAlmostEqual, 0.5)
				So(shares[genre.FamilyIntense], ShouldAlmostEqual, 0.25)
				So(shares[genre.FamilyRhythmic], ShouldEqual, 0)
				So(shares[genre.FamilyMainstream], ShouldEqual, 0)
				So(genre.Known("shoegaze"), ShouldBeFalse)
			})
		})
	})
}
