package resolve

import "github.com/agnivade/levenshtein"

// maxSuggestionDistance bounds how far a declared name may be from the
// unknown reference to still be offered as a correction. Short names only
// tolerate a single edit so that unrelated names are never suggested.
func maxSuggestionDistance(name string) int {
	if len(name) <= 4 {
		return 1
	}
	if len(name) <= 10 {
		return 2
	}
	return 3
}

// suggestName returns the declared name closest to unknown by edit distance,
// or "" when none is within the allowed distance. Candidates are expected in
// sorted order so that ties resolve deterministically.
func suggestName(unknown string, candidates []string) string {
	best := ""
	bestDistance := maxSuggestionDistance(unknown) + 1
	for _, candidate := range candidates {
		d := levenshtein.ComputeDistance(unknown, candidate)
		if d < bestDistance {
			best = candidate
			bestDistance = d
		}
	}
	return best
}
