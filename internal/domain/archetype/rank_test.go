package archetype

import (
	"testing"

	"github.com/okian/tasteid/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestClassifier_rankTies(t *testing.T) {
	Convey("Given two archetypes with identical signatures", t, func() {
		c := NewClassifier()
		shared := Vector{0.6, 0.3, 0.3, 0.6, 0.3, 0, 0, 1, 0}
		table := map[model.Archetype]Vector{
			model.ArchetypePopCurator:   shared,
			model.ArchetypeGrooveSeeker: shared,
			model.ArchetypePurist:       {1, 0, 0, 0, 0, 0, 0, 0, 0},
		}

		Convey("When a vector scores both exactly the same", func() {
			for i := 0; i < 20; i++ {
				res := c.rank(shared, table)

				So(res.Scores[model.ArchetypePopCurator], ShouldEqual, res.Scores[model.ArchetypeGrooveSeeker])
				So(res.Primary, ShouldEqual, model.ArchetypeGrooveSeeker)
				So(res.Secondary, ShouldEqual, model.ArchetypePopCurator)
			}
		})
	})

	Convey("Given a zero vector", t, func() {
		res := NewClassifier().rank(Vector{}, signatures)

		Convey("Then every score ties at zero and the smallest id wins", func() {
			So(res.Primary, ShouldEqual, model.ArchetypeConnoisseur)
			So(res.Secondary, ShouldEqual, model.Archetype(""))
			So(res.Confidence, ShouldEqual, 0)
		})
	})
}
