// Package genre canonicalizes free-form genre tags and groups them into the
// coarse families used by the archetype signatures.
package genre

import (
	"sort"
	"strings"
)

// Family is a coarse genre grouping.
type Family int

// Families, in archetype feature order. FamilyNone marks genres outside every family.
const (
	FamilyNone Family = iota
	FamilySophisticated
	FamilyIntense
	FamilyRhythmic
	FamilyMainstream
)

// Families lists the four real families in feature order.
func Families() []Family {
	return []Family{FamilySophisticated, FamilyIntense, FamilyRhythmic, FamilyMainstream}
}

func (f Family) String() string {
	switch f {
	case FamilySophisticated:
		return "sophisticated"
	case FamilyIntense:
		return "intense"
	case FamilyRhythmic:
		return "rhythmic"
	case FamilyMainstream:
		return "mainstream"
	default:
		return "none"
	}
}

var aliases = map[string]string{
	"hip hop":           "hip-hop",
	"hiphop":            "hip-hop",
	"rap":               "hip-hop",
	"rnb":               "r&b",
	"r and b":           "r&b",
	"rhythm and blues":  "r&b",
	"edm":               "electronic",
	"electronica":       "electronic",
	"techno":            "electronic",
	"house":             "electronic",
	"heavy metal":       "metal",
	"alt rock":          "rock",
	"alternative":       "rock",
	"alternative rock":  "rock",
	"classic rock":      "rock",
	"indie rock":        "indie",
	"indie pop":         "indie",
	"singer-songwriter": "folk",
	"neo-soul":          "soul",
	"bebop":             "jazz",
	"post-punk":         "punk",
}

var families = map[string]Family{
	"jazz":         FamilySophisticated,
	"classical":    FamilySophisticated,
	"blues":        FamilySophisticated,
	"soul":         FamilySophisticated,
	"funk":         FamilySophisticated,
	"rock":         FamilyIntense,
	"metal":        FamilyIntense,
	"punk":         FamilyIntense,
	"hardcore":     FamilyIntense,
	"grunge":       FamilyIntense,
	"hip-hop":      FamilyRhythmic,
	"r&b":          FamilyRhythmic,
	"electronic":   FamilyRhythmic,
	"dance":        FamilyRhythmic,
	"reggae":       FamilyRhythmic,
	"latin":        FamilyRhythmic,
	"pop":          FamilyMainstream,
	"indie":        FamilyMainstream,
	"folk":         FamilyMainstream,
	"country":      FamilyMainstream,
	"ambient":      FamilyNone,
	"experimental": FamilyNone,
}

// Canonical lowercases, trims and collapses whitespace, then resolves aliases.
// Unknown genres are returned in their normalized form.
func Canonical(raw string) string {
	g := strings.Join(strings.Fields(strings.ToLower(raw)), " ")
	if alias, ok := aliases[g]; ok {
		return alias
	}
	return g
}

// CanonicalSet canonicalizes tags, drops empties and duplicates, and returns
// them sorted.
func CanonicalSet(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		g := Canonical(r)
		if g == "" {
			continue
		}
		if _, dup := seen[g]; dup {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// FamilyOf returns the family of a canonical genre.
func FamilyOf(canonical string) Family {
	return families[canonical]
}

// Known reports whether the genre is in the curated catalogue.
func Known(canonical string) bool {
	_, ok := families[canonical]
	return ok
}

// FamilyShares sums a genre distribution into family shares. Genres outside
// every family contribute nothing, so shares may sum to less than 1.
func FamilyShares(dist map[string]float64) map[Family]float64 {
	out := make(map[Family]float64, len(Families()))
	for _, f := range Families() {
		out[f] = 0
	}
	for g, w := range dist {
		if f := FamilyOf(g); f != FamilyNone {
			out[f] += w
		}
	}
	return out
}
