package errors

import (
	"fmt"
	"strings"
)

// Suggest proposes the closest candidate to an unknown name.
// It uses Levenshtein distance and only suggests reasonably close matches.
func Suggest(unknown string, candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}

	minDistance := 1000
	var bestMatch string

	for _, candidate := range candidates {
		dist := levenshteinDistance(unknown, candidate)
		if dist < minDistance {
			minDistance = dist
			bestMatch = candidate
		}
	}

	// Only suggest if fewer than half of the characters need to change
	if minDistance <= max(1, len(unknown)/2) {
		return fmt.Sprintf("Did you mean '%s'?", bestMatch)
	}

	if len(candidates) > 5 {
		return fmt.Sprintf("Valid names include: %s, ...", strings.Join(candidates[:5], ", "))
	}
	return fmt.Sprintf("Valid names: %s", strings.Join(candidates, ", "))
}

// levenshteinDistance computes the Levenshtein distance between two strings.
func levenshteinDistance(s1, s2 string) int {
	if s1 == s2 {
		return 0
	}

	len1 := len(s1)
	len2 := len(s2)

	matrix := make([][]int, len1+1)
	for i := range matrix {
		matrix[i] = make([]int, len2+1)
	}

	for i := 0; i <= len1; i++ {
		matrix[i][0] = i
	}
	for j := 0; j <= len2; j++ {
		matrix[0][j] = j
	}

	for i := 1; i <= len1; i++ {
		for j := 1; j <= len2; j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}

			matrix[i][j] = min(
				matrix[i-1][j]+1,      // Deletion
				matrix[i][j-1]+1,      // Insertion
				matrix[i-1][j-1]+cost, // Substitution
			)
		}
	}

	return matrix[len1][len2]
}
