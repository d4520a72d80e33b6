package model

import "time"

// Archetype is one of the fixed taste personality classes.
type Archetype string

// Archetypes, in identifier order.
const (
	ArchetypeConnoisseur  Archetype = "connoisseur"
	ArchetypeCritic       Archetype = "critic"
	ArchetypeEnthusiast   Archetype = "enthusiast"
	ArchetypeExplorer     Archetype = "explorer"
	ArchetypeGrooveSeeker Archetype = "groove_seeker"
	ArchetypeHeadbanger   Archetype = "headbanger"
	ArchetypePopCurator   Archetype = "pop_curator"
	ArchetypePurist       Archetype = "purist"
	ArchetypeStoryteller  Archetype = "storyteller"
)

// Archetypes lists every archetype in identifier order.
func Archetypes() []Archetype {
	return []Archetype{
		ArchetypeConnoisseur,
		ArchetypeCritic,
		ArchetypeEnthusiast,
		ArchetypeExplorer,
		ArchetypeGrooveSeeker,
		ArchetypeHeadbanger,
		ArchetypePopCurator,
		ArchetypePurist,
		ArchetypeStoryteller,
	}
}

// RatingSkew classifies how generous a user's ratings are.
type RatingSkew string

const (
	SkewHarsh    RatingSkew = "harsh"
	SkewBalanced RatingSkew = "balanced"
	SkewLenient  RatingSkew = "lenient"
)

// ReviewDepth classifies how much a user writes per review.
type ReviewDepth string

const (
	DepthTerse     ReviewDepth = "terse"
	DepthModerate  ReviewDepth = "moderate"
	DepthElaborate ReviewDepth = "elaborate"
)

// Network is one of the seven cognitive networks of the BrainID projection.
type Network string

// Networks in tie-break priority order.
const (
	NetworkDefaultMode      Network = "default_mode"
	NetworkFrontoparietal   Network = "frontoparietal"
	NetworkDorsalAttention  Network = "dorsal_attention"
	NetworkVentralAttention Network = "ventral_attention"
	NetworkLimbic           Network = "limbic"
	NetworkSomatomotor      Network = "somatomotor"
	NetworkVisual           Network = "visual"
)

// Networks lists the networks in tie-break priority order.
func Networks() []Network {
	return []Network{
		NetworkDefaultMode,
		NetworkFrontoparietal,
		NetworkDorsalAttention,
		NetworkVentralAttention,
		NetworkLimbic,
		NetworkSomatomotor,
		NetworkVisual,
	}
}

// CognitiveState is the BrainID output: activations summing to 100.
type CognitiveState struct {
	Activations     map[Network]float64 `json:"activations"`
	DominantNetwork Network             `json:"dominant_network"`
	MusicMode       string              `json:"music_mode"`
}

// TasteID is a user's computed taste fingerprint. There is at most one per user.
type TasteID struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`

	PrimaryArchetype    Archetype `json:"primary_archetype"`
	SecondaryArchetype  Archetype `json:"secondary_archetype,omitempty"`
	ArchetypeConfidence float64   `json:"archetype_confidence"`

	GenreVector       map[string]float64 `json:"genre_vector"`
	DecadePreferences map[string]float64 `json:"decade_preferences"`
	TopGenres         []string           `json:"top_genres"`
	TopArtists        []string           `json:"top_artists"`
	AlbumIDs          []string           `json:"album_ids"`

	AdventurenessScore float64     `json:"adventureness_score"`
	PolarityScore      float64     `json:"polarity_score"`
	RatingSkew         RatingSkew  `json:"rating_skew"`
	ReviewDepth        ReviewDepth `json:"review_depth"`

	AverageRating   float64 `json:"average_rating"`
	RatingStdDev    float64 `json:"rating_std_dev"`
	AvgReviewLength float64 `json:"avg_review_length"`
	ReviewCount     int     `json:"review_count"`

	Cognitive CognitiveState `json:"cognitive"`

	LastComputedAt time.Time `json:"last_computed_at"`
}

// HasSecondary reports whether a secondary archetype was assigned.
func (t TasteID) HasSecondary() bool { return t.SecondaryArchetype != "" }

// Clone returns a deep copy so stores never share maps or slices with callers.
func (t TasteID) Clone() TasteID {
	out := t
	out.GenreVector = cloneWeights(t.GenreVector)
	out.DecadePreferences = cloneWeights(t.DecadePreferences)
	out.TopGenres = append([]string(nil), t.TopGenres...)
	out.TopArtists = append([]string(nil), t.TopArtists...)
	out.AlbumIDs = append([]string(nil), t.AlbumIDs...)
	if t.Cognitive.Activations != nil {
		out.Cognitive.Activations = make(map[Network]float64, len(t.Cognitive.Activations))
		for k, v := range t.Cognitive.Activations {
			out.Cognitive.Activations[k] = v
		}
	}
	return out
}

// TasteIDSnapshot is an immutable history row written alongside every TasteID write.
type TasteIDSnapshot struct {
	ID        string    `json:"id"`
	TasteIDID string    `json:"taste_id_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	TasteID   TasteID   `json:"taste_id"`
}

func cloneWeights(in map[string]float64) map[string]float64 {
	if in == nil {
		return nil
	}
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
