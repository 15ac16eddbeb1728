package track

import "strings"

// compatibleGenres lists genre pairs that blend well even though they differ.
// Pairs are stored once; lookups check both orders.
var compatibleGenres = map[string][]string{
	"house":             {"deep house", "tech house", "progressive house", "disco", "nu disco", "garage"},
	"deep house":        {"tech house", "nu disco", "minimal"},
	"tech house":        {"techno", "minimal", "progressive house"},
	"techno":            {"minimal", "industrial", "trance"},
	"progressive house": {"trance", "melodic techno"},
	"melodic techno":    {"techno", "trance"},
	"trance":            {"psytrance"},
	"drum and bass":     {"jungle", "breakbeat", "liquid"},
	"breakbeat":         {"garage", "jungle"},
	"hip hop":           {"r&b", "trap", "funk"},
	"disco":             {"nu disco", "funk"},
	"dubstep":           {"trap", "drum and bass"},
}

// NormalizeGenre lowercases and trims a genre label for comparison.
func NormalizeGenre(g string) string {
	return strings.ToLower(strings.TrimSpace(g))
}

// GenresCompatible reports whether two different genres appear in the static
// compatibility table.
func GenresCompatible(a, b string) bool {
	a, b = NormalizeGenre(a), NormalizeGenre(b)
	return listed(a, b) || listed(b, a)
}

func listed(from, to string) bool {
	for _, g := range compatibleGenres[from] {
		if g == to {
			return true
		}
	}
	return false
}
