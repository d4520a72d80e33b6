// Package fixtures generates, stores and verifies synthetic review datasets
// used to seed and exercise a TasteID deployment.
package fixtures

import "github.com/okian/tasteid/internal/domain/model"

// Persona describes a kind of listener. Genres are listed by preference: the
// first one dominates the generated reviews.
type Persona struct {
	Name       string   `yaml:"name"`
	Genres     []string `yaml:"genres"`
	MeanRating float64  `yaml:"mean_rating"`
	Spread     float64  `yaml:"spread"`
	Words      int      `yaml:"words"`
	// FirstDecade is the earliest release decade the persona listens to.
	FirstDecade int `yaml:"first_decade"`
	// Expect is the archetype the persona is expected to land on, if any.
	Expect model.Archetype `yaml:"expect,omitempty"`
}

// DefaultPersonas covers every genre family.
func DefaultPersonas() []Persona {
	return []Persona{
		{Name: "jazz-head", Genres: []string{"jazz", "blues", "soul"}, MeanRating: 7.5, Spread: 1.5, Words: 120, FirstDecade: 1950},
		{Name: "metal-lifer", Genres: []string{"metal", "hardcore", "punk"}, MeanRating: 7, Spread: 2, Words: 25, FirstDecade: 1980},
		{Name: "crate-digger", Genres: []string{"hip-hop", "funk", "r&b", "electronic"}, MeanRating: 6.5, Spread: 1.5, Words: 60, FirstDecade: 1970},
		{Name: "chart-watcher", Genres: []string{"pop", "dance", "indie"}, MeanRating: 8, Spread: 1, Words: 15, FirstDecade: 2000},
		{Name: "wanderer", Genres: []string{"ambient", "folk", "latin", "reggae", "classical", "experimental"}, MeanRating: 6, Spread: 3, Words: 80, FirstDecade: 1960},
		{Name: "grump", Genres: []string{"rock", "grunge", "indie"}, MeanRating: 3.5, Spread: 2.5, Words: 220, FirstDecade: 1970},
	}
}
