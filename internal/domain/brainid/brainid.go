// Package brainid projects a genre distribution onto seven cognitive networks.
package brainid

import (
	"sort"

	"github.com/okian/tasteid/internal/domain/model"
)

const totalActivation = 100.0

// row holds one weight per network in model.Networks() order.
type row [7]float64

// dmn  fpn  dan  van  limb smn  vis
var genreRows = map[string]row{
	"jazz":         {0.15, 0.30, 0.15, 0.10, 0.15, 0.05, 0.10},
	"classical":    {0.20, 0.25, 0.15, 0.05, 0.15, 0.00, 0.20},
	"blues":        {0.20, 0.10, 0.05, 0.05, 0.40, 0.10, 0.10},
	"soul":         {0.15, 0.05, 0.05, 0.05, 0.45, 0.15, 0.10},
	"funk":         {0.05, 0.10, 0.10, 0.05, 0.15, 0.50, 0.05},
	"rock":         {0.10, 0.05, 0.15, 0.20, 0.20, 0.25, 0.05},
	"metal":        {0.05, 0.05, 0.20, 0.25, 0.15, 0.25, 0.05},
	"punk":         {0.05, 0.05, 0.10, 0.35, 0.15, 0.25, 0.05},
	"hardcore":     {0.05, 0.05, 0.15, 0.35, 0.10, 0.25, 0.05},
	"grunge":       {0.15, 0.05, 0.10, 0.20, 0.30, 0.15, 0.05},
	"hip-hop":      {0.10, 0.15, 0.20, 0.10, 0.10, 0.30, 0.05},
	"r&b":          {0.15, 0.05, 0.05, 0.05, 0.40, 0.25, 0.05},
	"electronic":   {0.05, 0.10, 0.25, 0.15, 0.05, 0.30, 0.10},
	"dance":        {0.05, 0.05, 0.10, 0.15, 0.10, 0.50, 0.05},
	"reggae":       {0.30, 0.05, 0.05, 0.05, 0.20, 0.30, 0.05},
	"latin":        {0.10, 0.05, 0.05, 0.10, 0.20, 0.45, 0.05},
	"pop":          {0.35, 0.05, 0.10, 0.10, 0.20, 0.15, 0.05},
	"indie":        {0.25, 0.15, 0.10, 0.15, 0.20, 0.05, 0.10},
	"folk":         {0.30, 0.10, 0.05, 0.05, 0.30, 0.05, 0.15},
	"country":      {0.40, 0.05, 0.05, 0.05, 0.30, 0.10, 0.05},
	"ambient":      {0.20, 0.05, 0.05, 0.05, 0.15, 0.00, 0.50},
	"experimental": {0.05, 0.25, 0.15, 0.35, 0.05, 0.05, 0.10},
}

// fallback applies to genres missing from the table.
var fallback = row{0.15, 0.20, 0.15, 0.20, 0.10, 0.10, 0.10}

var modes = map[model.Network]string{
	model.NetworkDefaultMode:      "Comfort",
	model.NetworkFrontoparietal:   "Discovery",
	model.NetworkDorsalAttention:  "Focus",
	model.NetworkVentralAttention: "Surprise",
	model.NetworkLimbic:           "Emotion",
	model.NetworkSomatomotor:      "Movement",
	model.NetworkVisual:           "Imagery",
}

var descriptions = map[model.Network]string{
	model.NetworkDefaultMode:      "Familiar sounds that feel like home",
	model.NetworkFrontoparietal:   "Complex structures worth working through",
	model.NetworkDorsalAttention:  "Detail-rich production for deep listening",
	model.NetworkVentralAttention: "Sudden turns and unexpected textures",
	model.NetworkLimbic:           "Music that moves the heart first",
	model.NetworkSomatomotor:      "Rhythm that reaches the body",
	model.NetworkVisual:           "Soundscapes that paint pictures",
}

// Mode returns the music mode label of a network.
func Mode(n model.Network) string { return modes[n] }

// Description returns the display description of a network.
func Description(n model.Network) string { return descriptions[n] }

// RowFor returns the weight row of a canonical genre and whether it was in the table.
func RowFor(genre string) ([7]float64, bool) {
	r, ok := genreRows[genre]
	if !ok {
		return fallback, false
	}
	return r, true
}

// Map projects a genre distribution onto the networks. Activations sum to 100;
// the dominant network is the argmax with ties going to the earlier network in
// priority order. An empty distribution is projected through the fallback row.
func Map(dist map[string]float64) model.CognitiveState {
	keys := make([]string, 0, len(dist))
	for g, w := range dist {
		if w > 0 {
			keys = append(keys, g)
		}
	}
	sort.Strings(keys)

	var acc row
	if len(keys) == 0 {
		acc = fallback
	}
	for _, g := range keys {
		r, _ := RowFor(g)
		for i := range acc {
			acc[i] += dist[g] * r[i]
		}
	}

	var total float64
	for _, v := range acc {
		total += v
	}

	networks := model.Networks()
	state := model.CognitiveState{Activations: make(map[model.Network]float64, len(networks))}
	best := -1.0
	for i, n := range networks {
		v := 0.0
		if total > 0 {
			v = acc[i] / total * totalActivation
		}
		state.Activations[n] = v
		if v > best {
			best = v
			state.DominantNetwork = n
		}
	}
	state.MusicMode = Mode(state.DominantNetwork)
	return state
}
