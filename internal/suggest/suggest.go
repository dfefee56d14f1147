// Package suggest finds near misses for mistyped CLI flags and values using
// Levenshtein distance.
package suggest

import (
	"sort"
	"strings"
)

// levenshtein calculates the edit distance between two strings
func levenshtein(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// Closest returns up to three candidates near unknown, best first. Leading
// dashes and case are ignored on both sides; the candidates are returned as
// given.
func Closest(unknown string, candidates []string) []string {
	unknown = normalize(unknown)
	if unknown == "" {
		return nil
	}

	type scored struct {
		value string
		score int
	}
	var matches []scored
	maxDist := max(2, len(unknown)/2)
	for _, c := range candidates {
		if d := levenshtein(unknown, normalize(c)); d <= maxDist {
			matches = append(matches, scored{c, d})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score < matches[j].score })

	var out []string
	for i := 0; i < len(matches) && i < 3; i++ {
		out = append(out, matches[i].value)
	}
	return out
}

// flagHints maps flags people commonly try to the ones that exist.
var flagHints = map[string]string{
	"desc":    "--description, -d",
	"body":    "--description, -d",
	"note":    "--description, -d",
	"notes":   "--description, -d",
	"msg":     "--description, -d",
	"name":    "--title, -t",
	"filter":  "--view",
	"status":  "--view",
	"state":   "--view",
	"query":   "--search, -s",
	"q":       "--search, -s",
	"force":   "--yes, -y",
	"confirm": "--yes, -y",

	"per-page": "--limit, -n",
}

// FlagHint returns the flag to use instead of a commonly misused one, or "".
func FlagHint(flag string) string {
	return flagHints[normalize(flag)]
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimLeft(strings.TrimSpace(s), "-"))
}
