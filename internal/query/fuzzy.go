package query

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// Fuzzy type-ahead scoring: a case-insensitive subsequence match over
// the package name. Each matched rune scores 2, extending a contiguous
// run adds 3, and a match anchored at the start of the name adds 5, so
// prefix and contiguous hits outrank scattered ones. The exact weights
// are a local choice; upstream documents only that type-ahead filtering
// exists.
const (
	matchScore  = 2
	runBonus    = 3
	anchorBonus = 5
)

// Score fuzzy-matches query against candidate. ok is false when the
// query is not a subsequence of the candidate.
func Score(query, candidate string) (score int, ok bool) {
	q := []rune(strings.ToLower(query))
	c := []rune(strings.ToLower(candidate))
	if len(q) == 0 {
		return 0, true
	}

	qi := 0
	prev := -2
	for ci := 0; ci < len(c) && qi < len(q); ci++ {
		if c[ci] != q[qi] {
			continue
		}
		score += matchScore
		if ci == prev+1 {
			score += runBonus
		}
		if qi == 0 && ci == 0 {
			score += anchorBonus
		}
		prev = ci
		qi++
	}
	if qi < len(q) {
		return 0, false
	}
	return score, true
}

// rankTie orders two equal-score candidates: closer edit distance to
// the query first, then lexicographic name.
func rankTie(query, a, b string) bool {
	da := levenshtein.ComputeDistance(strings.ToLower(query), strings.ToLower(a))
	db := levenshtein.ComputeDistance(strings.ToLower(query), strings.ToLower(b))
	if da != db {
		return da < db
	}
	return strings.ToLower(a) < strings.ToLower(b)
}
