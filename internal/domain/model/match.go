package model

import "time"

// MatchType labels the pattern of a pairwise compatibility result.
type MatchType string

const (
	MatchTasteTwin     MatchType = "taste_twin"
	MatchExplorerGuide MatchType = "explorer_guide"
	MatchGenreBuddy    MatchType = "genre_buddy"
	MatchComplementary MatchType = "complementary"
)

// TasteMatch is the symmetric compatibility record of two users, keyed by the
// canonical pair User1ID < User2ID.
type TasteMatch struct {
	User1ID string `json:"user1_id"`
	User2ID string `json:"user2_id"`

	OverallScore    float64 `json:"overall_score"`
	GenreOverlap    float64 `json:"genre_overlap"`
	ArtistOverlap   float64 `json:"artist_overlap"`
	RatingAlignment float64 `json:"rating_alignment"`

	SharedGenres  []string `json:"shared_genres"`
	SharedArtists []string `json:"shared_artists"`
	SharedAlbums  []string `json:"shared_albums"`

	MatchType MatchType `json:"match_type"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy of the match.
func (m TasteMatch) Clone() TasteMatch {
	out := m
	out.SharedGenres = append([]string(nil), m.SharedGenres...)
	out.SharedArtists = append([]string(nil), m.SharedArtists...)
	out.SharedAlbums = append([]string(nil), m.SharedAlbums...)
	return out
}
