package fixtures

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/okian/tasteid/internal/domain/model"
	"github.com/okian/tasteid/pkg/logger"
)

// Generation defaults.
const (
	defaultUsers          = 24
	defaultReviewsPerUser = 12
	defaultSeed           = 42
	primaryGenreShare     = 0.6
	albumsPerGenre        = 40
	artistsPerGenre       = 12
	decadesSpanned        = 4
	maxAlbumAttempts      = 16
)

var defaultStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

var vocabulary = strings.Fields(`warm dense bright murky loose tight groove hook riff
	chorus verse bridge texture mix master bass drums vocal lyric mood tempo
	layered sparse raw polished heavy gentle strange familiar long short`)

// Option applies a configuration option to the Generator.
type Option func(*Generator)

// WithUsers sets how many listeners are generated.
func WithUsers(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.users = n
		}
	}
}

// WithReviewsPerUser sets how many reviews each listener writes.
func WithReviewsPerUser(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.reviewsPerUser = n
		}
	}
}

// WithSeed makes generation reproducible.
func WithSeed(seed uint64) Option {
	return func(g *Generator) {
		g.seed = seed
	}
}

// WithPersonas replaces the default persona set.
func WithPersonas(ps []Persona) Option {
	return func(g *Generator) {
		if len(ps) > 0 {
			g.personas = ps
		}
	}
}

// WithStart sets the timestamp of the first review.
func WithStart(t time.Time) Option {
	return func(g *Generator) {
		g.start = t.UTC()
	}
}

// WithLogger sets a custom logger for the generator.
func WithLogger(l logger.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// Generator builds synthetic datasets. The same options always produce the
// same dataset.
type Generator struct {
	users          int
	reviewsPerUser int
	seed           uint64
	personas       []Persona
	start          time.Time
	logger         logger.Logger
}

// NewGenerator creates a generator with configuration options.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		users:          defaultUsers,
		reviewsPerUser: defaultReviewsPerUser,
		seed:           defaultSeed,
		personas:       DefaultPersonas(),
		start:          defaultStart,
		logger:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate builds a dataset. Personas are assigned round-robin.
func (g *Generator) Generate(ctx context.Context) (*Dataset, error) {
	for _, p := range g.personas {
		if len(p.Genres) == 0 {
			return nil, fmt.Errorf("%w: persona %q has no genres", ErrInvalidDataset, p.Name)
		}
	}

	rng := rand.New(rand.NewPCG(g.seed, g.seed^0x9e3779b97f4a7c15))
	ds := &Dataset{
		Personas:    g.personas,
		Assignments: make(map[string]string, g.users),
		Reviews:     make([]model.Review, 0, g.users*g.reviewsPerUser),
	}

	for i := 0; i < g.users; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("generation cancelled: %w", err)
		}
		p := g.personas[i%len(g.personas)]
		userID := fmt.Sprintf("listener-%03d", i+1)
		ds.Assignments[userID] = p.Name
		ds.Reviews = append(ds.Reviews, g.listen(rng, userID, p)...)
	}

	g.logger.Info(ctx, "generated dataset",
		logger.Int("users", g.users),
		logger.Int("reviews", len(ds.Reviews)),
		logger.Int("personas", len(g.personas)),
	)
	return ds, nil
}

func (g *Generator) listen(rng *rand.Rand, userID string, p Persona) []model.Review {
	out := make([]model.Review, 0, g.reviewsPerUser)
	seen := make(map[string]struct{}, g.reviewsPerUser)

	for j := 0; j < g.reviewsPerUser; j++ {
		var album model.Album
		for attempt := 0; attempt < maxAlbumAttempts; attempt++ {
			album = pickAlbum(rng, p)
			if _, dup := seen[album.ID]; !dup {
				break
			}
		}
		seen[album.ID] = struct{}{}

		out = append(out, model.Review{
			ID:        fmt.Sprintf("%s-r%03d", userID, j+1),
			UserID:    userID,
			AlbumID:   album.ID,
			Rating:    rating(rng, p),
			Scale:     model.ScaleTen,
			Text:      text(rng, p.Words),
			CreatedAt: g.start.Add(time.Duration(j) * time.Hour),
			Album:     album,
		})
	}
	return out
}

func pickAlbum(rng *rand.Rand, p Persona) model.Album {
	g := p.Genres[0]
	if len(p.Genres) > 1 && rng.Float64() >= primaryGenreShare {
		g = p.Genres[1+rng.IntN(len(p.Genres)-1)]
	}
	n := rng.IntN(albumsPerGenre)
	year := p.FirstDecade + 10*rng.IntN(decadesSpanned) + rng.IntN(10)
	return model.Album{
		ID:          fmt.Sprintf("%s-%03d", slug(g), n),
		Title:       fmt.Sprintf("%s record %d", g, n),
		ArtistName:  fmt.Sprintf("%s artist %d", g, n%artistsPerGenre),
		Genres:      []string{g},
		ReleaseDate: time.Date(year, time.Month(1+rng.IntN(12)), 1, 0, 0, 0, 0, time.UTC),
	}
}

// rating draws around the persona mean, rounded to half points on 0..10.
func rating(rng *rand.Rand, p Persona) float64 {
	r := p.MeanRating + (2*rng.Float64()-1)*p.Spread
	r = math.Round(r*2) / 2
	return math.Max(0, math.Min(10, r))
}

func text(rng *rand.Rand, words int) string {
	if words <= 0 {
		return ""
	}
	n := max(1, words/2+rng.IntN(words+1))
	out := make([]string, n)
	for i := range out {
		out[i] = vocabulary[rng.IntN(len(vocabulary))]
	}
	return strings.Join(out, " ")
}

func slug(s string) string {
	return strings.NewReplacer(" ", "-", "&", "n").Replace(s)
}
