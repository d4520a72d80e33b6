package similarity_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/okian/tasteid/internal/domain/model"
	"github.com/okian/tasteid/internal/domain/similarity"
)

var benchGenres = []string{"jazz", "rock", "metal", "pop", "folk", "soul", "hip-hop", "electronic", "punk", "classical"}

func randomTastes(n int, r *rand.Rand) []model.TasteID {
	out := make([]model.TasteID, n)
	for i := range out {
		gv := make(map[string]float64, 4)
		for j := 0; j < 4; j++ {
			gv[benchGenres[r.Intn(len(benchGenres))]] += r.Float64()
		}
		out[i] = model.TasteID{UserID: fmt.Sprintf("user-%06d", i), GenreVector: gv}
	}
	return out
}

func BenchmarkSearch(b *testing.B) {
	r := rand.New(rand.NewSource(1))
	for _, n := range []int{1_000, 10_000, 100_000} {
		candidates := randomTastes(n, r)
		query := candidates[0]
		s := similarity.New()

		b.Run(fmt.Sprintf("candidates=%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = s.Search(query, candidates, 50)
			}
		})
	}
}
