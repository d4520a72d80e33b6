// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"math"
	"time"
)

// RatingScale identifies the scale a review was submitted on.
type RatingScale string

// Supported rating scales. Quick-rate reviews use the five-point scale.
const (
	ScaleTen  RatingScale = "ten"
	ScaleFive RatingScale = "five"
)

// Bounds of each rating scale.
const (
	maxTenRating  = 10.0
	minFiveRating = 1.0
	maxFiveRating = 5.0
	fiveToTen     = 2.0
)

// Album is the metadata attached to a rated album.
type Album struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	ArtistName  string    `json:"artist_name" yaml:"artist_name"`
	Genres      []string  `json:"genres" yaml:"genres"`
	ReleaseDate time.Time `json:"release_date" yaml:"release_date"`
}

// Review is a single album rating written by a user. Reviews are read-only
// to the taste engine.
type Review struct {
	ID        string      `json:"id" yaml:"id"`
	UserID    string      `json:"user_id" yaml:"user_id"`
	AlbumID   string      `json:"album_id" yaml:"album_id"`
	Rating    float64     `json:"rating" yaml:"rating"`
	Scale     RatingScale `json:"scale" yaml:"scale"`
	Text      string      `json:"text,omitempty" yaml:"text,omitempty"`
	CreatedAt time.Time   `json:"created_at" yaml:"created_at"`
	Album     Album       `json:"album" yaml:"album"`
}

// NormalizedRating returns the rating on the 0..10 scale. Five-point ratings
// are doubled. Ratings outside their scale, NaN or infinite, are reported as
// ErrComputationFailure.
func (r Review) NormalizedRating() (float64, error) {
	if math.IsNaN(r.Rating) || math.IsInf(r.Rating, 0) {
		return 0, fmt.Errorf("%w: review %s rating is not a finite number", ErrComputationFailure, r.ID)
	}
	switch r.Scale {
	case ScaleFive:
		if r.Rating < minFiveRating || r.Rating > maxFiveRating {
			return 0, fmt.Errorf("%w: review %s rating %.2f outside 1..5", ErrComputationFailure, r.ID, r.Rating)
		}
		return r.Rating * fiveToTen, nil
	case ScaleTen, "":
		if r.Rating < 0 || r.Rating > maxTenRating {
			return 0, fmt.Errorf("%w: review %s rating %.2f outside 0..10", ErrComputationFailure, r.ID, r.Rating)
		}
		return r.Rating, nil
	default:
		return 0, fmt.Errorf("%w: review %s has unknown scale %q", ErrComputationFailure, r.ID, r.Scale)
	}
}
