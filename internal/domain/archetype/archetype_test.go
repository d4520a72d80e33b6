package archetype_test

import (
	"testing"

	"github.com/okian/tasteid/internal/domain/archetype"
	"github.com/okian/tasteid/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestClassifier_Classify(t *testing.T) {
	Convey("Given the default classifier", t, func() {
		c := archetype.NewClassifier()

		Convey("When a listener leans on jazz with some rock", func() {
			res := c.Classify(archetype.Features{
				Adventureness: 0.2708,
				Polarity:      0.44,
				AverageRating: 6.2,
				GenreVector:   map[string]float64{"jazz": 0.6, "rock": 0.4},
			})

			Convey("Then the connoisseur archetype wins with moderate confidence", func() {
				So(res.Primary, ShouldEqual, model.ArchetypeConnoisseur)
				So(res.Secondary, ShouldEqual, model.ArchetypeHeadbanger)
				So(res.Confidence, ShouldBeBetween, 0.3, 0.7)
			})
		})

		Convey("When a listener is mostly metal", func() {
			res := c.Classify(archetype.Features{
				Adventureness: 0.2,
				Polarity:      0.3,
				AverageRating: 7.4,
				GenreVector:   map[string]float64{"metal": 0.8, "rock": 0.2},
			})

			Convey("Then the headbanger archetype wins without a secondary", func() {
				So(res.Primary, ShouldEqual, model.ArchetypeHeadbanger)
				So(res.Secondary, ShouldEqual, model.Archetype(""))
			})
		})

		Convey("When a listener spreads evenly across many genres", func() {
			res := c.Classify(archetype.Features{
				Adventureness: 1,
				Polarity:      0.1,
				AverageRating: 6.5,
				AvgWords:      30,
				GenreVector: map[string]float64{
					"jazz": 0.25, "metal": 0.25, "hip-hop": 0.25, "pop": 0.25,
				},
			})

			Convey("Then the explorer archetype wins", func() {
				So(res.Primary, ShouldEqual, model.ArchetypeExplorer)
			})
		})

		Convey("When a listener writes long reviews", func() {
			res := c.Classify(archetype.Features{
				Adventureness: 0.53,
				Polarity:      0.1,
				AverageRating: 6.5,
				AvgWords:      150,
				GenreVector: map[string]float64{
					"rock": 1.0 / 3, "pop": 1.0 / 3, "jazz": 1.0 / 6, "hip-hop": 1.0 / 6,
				},
			})

			Convey("Then the storyteller archetype wins", func() {
				So(res.Primary, ShouldEqual, model.ArchetypeStoryteller)
			})
		})

		Convey("When a listener sticks to one uncatalogued genre", func() {
			res := c.Classify(archetype.Features{
				Adventureness: 0,
				Polarity:      0.2,
				AverageRating: 7.3,
				AvgWords:      10,
				GenreVector:   map[string]float64{"shoegaze": 1},
			})

			Convey("Then the purist archetype wins", func() {
				So(res.Primary, ShouldEqual, model.ArchetypePurist)
			})
		})

		Convey("When the feature vector is all zeros", func() {
			res := c.Classify(archetype.Features{Adventureness: 1})
			zero := c.Classify(archetype.Features{})

			Convey("Then confidence stays in range", func() {
				So(res.Confidence, ShouldBeGreaterThanOrEqualTo, 0)
				So(res.Confidence, ShouldBeLessThanOrEqualTo, 1)
				So(zero.Confidence, ShouldBeGreaterThanOrEqualTo, 0)
				So(zero.Confidence, ShouldBeLessThanOrEqualTo, 1)
			})
		})
	})

	Convey("Given a classifier with no secondary margin", t, func() {
		c := archetype.NewClassifier(archetype.WithSecondaryMargin(0))

		Convey("Then a close runner-up is not reported", func() {
			res := c.Classify(archetype.Features{
				Adventureness: 0.2708,
				Polarity:      0.44,
				AverageRating: 6.2,
				GenreVector:   map[string]float64{"jazz": 0.6, "rock": 0.4},
			})
			So(res.Secondary, ShouldEqual, model.Archetype(""))
		})
	})
}

func TestClassifier_Confidence(t *testing.T) {
	Convey("Given two listeners with increasing separation from the runner-up", t, func() {
		c := archetype.NewClassifier()
		mixed := c.Classify(archetype.Features{
			Adventureness: 0.3,
			Polarity:      0.3,
			AverageRating: 7,
			GenreVector:   map[string]float64{"metal": 0.5, "pop": 0.5},
		})
		pure := c.Classify(archetype.Features{
			Adventureness: 0.3,
			Polarity:      0.4,
			AverageRating: 5,
			AvgWords:      36,
			GenreVector:   map[string]float64{"metal": 1},
		})

		Convey("Then the clearer profile has higher confidence", func() {
			So(pure.Primary, ShouldEqual, model.ArchetypeHeadbanger)
			So(pure.Confidence, ShouldBeGreaterThan, mixed.Confidence)
		})
	})
}

func TestSignatures(t *testing.T) {
	Convey("Given the archetype catalogue", t, func() {
		Convey("Then every archetype has a signature", func() {
			for _, a := range model.Archetypes() {
				_, ok := archetype.Signature(a)
				So(ok, ShouldBeTrue)
			}
		})

		Convey("Then cosine of a vector with itself is 1", func() {
			v, _ := archetype.Signature(model.ArchetypeCritic)
			So(archetype.Cosine(v, v), ShouldAlmostEqual, 1.0, 1e-12)
			So(archetype.Cosine(v, archetype.Vector{}), ShouldEqual, 0)
		})
	})
}
