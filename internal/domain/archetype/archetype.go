// Package archetype classifies a taste feature vector into one of the fixed
// archetypes by cosine similarity against constant signature vectors.
package archetype

import (
	"math"
	"sort"

	"github.com/okian/tasteid/internal/domain/genre"
	"github.com/okian/tasteid/internal/domain/model"
)

// Default classifier configuration constants.
const (
	defaultSecondaryMargin = 0.15
	defaultDepthSaturation = 120.0
	confidenceFloor        = 0.5
)

// Feature vector dimensions. Every signature uses the same order.
const (
	DimConcentration = iota
	DimAdventureness
	DimPolarity
	DimLeniency
	DimDepth
	DimSophisticated
	DimIntense
	DimRhythmic
	DimMainstream
	Dims
)

// Vector is a point in the archetype feature space.
type Vector [Dims]float64

// signatures is the constant archetype table.
var signatures = map[model.Archetype]Vector{
	//                           conc adv  pol  len  dep  soph int  rhy  main
	model.ArchetypeConnoisseur:  {0.6, 0.3, 0.3, 0.6, 0.4, 1.0, 0.0, 0.0, 0.0},
	model.ArchetypeCritic:       {0.4, 0.4, 1.0, 0.1, 0.5, 0.1, 0.1, 0.1, 0.1},
	model.ArchetypeEnthusiast:   {0.5, 0.4, 0.0, 1.0, 0.2, 0.15, 0.15, 0.15, 0.15},
	model.ArchetypeExplorer:     {0.1, 1.0, 0.3, 0.6, 0.4, 0.25, 0.25, 0.25, 0.25},
	model.ArchetypeGrooveSeeker: {0.6, 0.3, 0.3, 0.6, 0.3, 0.0, 0.0, 1.0, 0.0},
	model.ArchetypeHeadbanger:   {0.6, 0.3, 0.4, 0.5, 0.3, 0.0, 1.0, 0.0, 0.0},
	model.ArchetypePopCurator:   {0.6, 0.3, 0.2, 0.7, 0.3, 0.0, 0.0, 0.0, 1.0},
	model.ArchetypePurist:       {1.0, 0.0, 0.3, 0.5, 0.3, 0.0, 0.0, 0.0, 0.0},
	model.ArchetypeStoryteller:  {0.5, 0.5, 0.3, 0.6, 1.0, 0.2, 0.2, 0.2, 0.2},
}

// Signature returns the constant signature of an archetype.
func Signature(a model.Archetype) (Vector, bool) {
	v, ok := signatures[a]
	return v, ok
}

// Features are the aggregate statistics the feature vector is built from.
type Features struct {
	Adventureness float64
	Polarity      float64
	AverageRating float64 // 0..10
	AvgWords      float64
	GenreVector   map[string]float64
}

// Result is the classification outcome.
type Result struct {
	Primary    model.Archetype
	Secondary  model.Archetype // empty when absent
	Confidence float64
	Scores     map[model.Archetype]float64
}

// Option applies a configuration option to the Classifier.
type Option func(*Classifier)

// WithSecondaryMargin sets the relative gap within which the runner-up
// becomes the secondary archetype.
func WithSecondaryMargin(margin float64) Option {
	return func(c *Classifier) {
		if margin >= 0 && margin < 1 {
			c.secondaryMargin = margin
		}
	}
}

// WithDepthSaturation sets the word count at which the depth dimension reaches 1.
func WithDepthSaturation(words float64) Option {
	return func(c *Classifier) {
		if words > 0 {
			c.depthSaturation = words
		}
	}
}

// Classifier maps features to archetypes.
type Classifier struct {
	secondaryMargin float64
	depthSaturation float64
}

// NewClassifier creates a classifier with configuration options.
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{
		secondaryMargin: defaultSecondaryMargin,
		depthSaturation: defaultDepthSaturation,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Vectorize builds the user's feature vector.
func (c *Classifier) Vectorize(f Features) Vector {
	shares := genre.FamilyShares(f.GenreVector)
	var v Vector
	v[DimConcentration] = clamp01(1 - f.Adventureness)
	v[DimAdventureness] = clamp01(f.Adventureness)
	v[DimPolarity] = clamp01(f.Polarity)
	v[DimLeniency] = clamp01(f.AverageRating / 10)
	v[DimDepth] = clamp01(f.AvgWords / c.depthSaturation)
	v[DimSophisticated] = clamp01(shares[genre.FamilySophisticated])
	v[DimIntense] = clamp01(shares[genre.FamilyIntense])
	v[DimRhythmic] = clamp01(shares[genre.FamilyRhythmic])
	v[DimMainstream] = clamp01(shares[genre.FamilyMainstream])
	return v
}

// Classify picks the primary archetype, an optional secondary and a confidence.
// Exactly equal scores resolve to the lexicographically smallest identifier.
func (c *Classifier) Classify(f Features) Result {
	return c.rank(c.Vectorize(f), signatures)
}

func (c *Classifier) rank(u Vector, table map[model.Archetype]Vector) Result {
	type scored struct {
		id    model.Archetype
		score float64
	}
	all := make([]scored, 0, len(table))
	scores := make(map[model.Archetype]float64, len(table))
	for id, sig := range table {
		s := Cosine(u, sig)
		all = append(all, scored{id: id, score: s})
		scores[id] = s
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		return all[i].id < all[j].id
	})

	best, second := all[0], all[1]
	res := Result{Primary: best.id, Scores: scores}
	if best.score <= 0 {
		return res
	}

	separation := (best.score - second.score) / best.score
	if separation <= c.secondaryMargin {
		res.Secondary = second.id
	}
	res.Confidence = clamp01(best.score * (confidenceFloor + (1-confidenceFloor)*separation))
	return res
}

// Cosine returns the cosine similarity of two vectors, 0 when either is zero.
func Cosine(a, b Vector) float64 {
	var dot, na, nb float64
	for i := 0; i < Dims; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
