package cmd

import (
	"strings"

	"github.com/graphkit/graph-cli/internal/resolve"
)

// suggestCommand finds the closest command name to the unknown input.
// Returns empty string if no close match (distance > 3).
func suggestCommand(unknown string, commands []string) string {
	unknown = strings.ToLower(unknown)
	bestDist := 4
	bestMatch := ""
	for _, cmd := range commands {
		d := resolve.Levenshtein(unknown, strings.ToLower(cmd))
		if d < bestDist {
			bestDist = d
			bestMatch = cmd
		}
	}
	return bestMatch
}

// suggestFlag finds the closest flag name to the unknown input.
// Strips leading dashes from both the input and the known flags for comparison,
// but returns the match with its original prefix.
func suggestFlag(unknown string, flags []string) string {
	stripped := strings.TrimLeft(unknown, "-")
	if stripped == "" {
		return ""
	}
	stripped = strings.ToLower(stripped)
	bestDist := 4
	bestMatch := ""
	for _, f := range flags {
		d := resolve.Levenshtein(stripped, strings.ToLower(strings.TrimLeft(f, "-")))
		if d < bestDist {
			bestDist = d
			bestMatch = f
		}
	}
	return bestMatch
}
