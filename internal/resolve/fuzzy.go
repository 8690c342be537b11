// Package resolve matches user-typed names (profiles, node types, commands)
// against the known set, with fuzzy did-you-mean suggestions.
package resolve

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
)

// Match is a fuzzy match result with score.
type Match struct {
	Name  string
	Score int
}

var (
	ErrEmptyQuery = errors.New("empty search query")
	ErrEmptyItems = errors.New("no names to match against")
)

// AmbiguousError indicates multiple candidates matched equally well.
type AmbiguousError struct {
	Query   string
	Matches []Match
}

func (e *AmbiguousError) Error() string {
	var b strings.Builder
	_, _ = fmt.Fprintf(&b, "ambiguous match for %q", e.Query)
	if len(e.Matches) > 0 {
		b.WriteString(", candidates:")
		for _, m := range e.Matches {
			_, _ = fmt.Fprintf(&b, "\n  %s", m.Name)
		}
	}
	return b.String()
}

// NotFoundError is returned when nothing matches; Suggestion may name the
// closest known entry.
type NotFoundError struct {
	Kind       string
	Query      string
	Suggestion string
}

func (e *NotFoundError) Error() string {
	kind := e.Kind
	if kind == "" {
		kind = "name"
	}
	msg := fmt.Sprintf("unknown %s %q", kind, e.Query)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", e.Suggestion)
	}
	return msg
}

type lowerSource []string

func (s lowerSource) String(i int) string { return strings.ToLower(s[i]) }
func (s lowerSource) Len() int            { return len(s) }

// FuzzyMatch returns the known name best matching query.
//
// Behavior:
// - Empty query or empty names are errors.
// - Exact case-insensitive matches win over fuzzy matches.
// - If the top two fuzzy results tie on score, returns *AmbiguousError.
func FuzzyMatch(query string, names []string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrEmptyQuery
	}
	if len(names) == 0 {
		return "", ErrEmptyItems
	}

	for _, name := range names {
		if strings.EqualFold(name, query) {
			return name, nil
		}
	}

	results := fuzzy.FindFrom(strings.ToLower(query), lowerSource(names))
	if len(results) == 0 {
		return "", fmt.Errorf("no match found for %q", query)
	}
	if len(results) > 1 && results[0].Score == results[1].Score {
		return "", &AmbiguousError{
			Query:   query,
			Matches: buildMatches(names, results, 5),
		}
	}
	return names[results[0].Index], nil
}

// FuzzyMatchAll returns up to limit matches ranked by score (best first).
func FuzzyMatchAll(query string, names []string, limit int) []Match {
	query = strings.TrimSpace(query)
	if query == "" || len(names) == 0 || limit <= 0 {
		return nil
	}
	results := fuzzy.FindFrom(strings.ToLower(query), lowerSource(names))
	return buildMatches(names, results, limit)
}

// Exact returns name when it is one of names (case-insensitively), or a
// *NotFoundError carrying the closest fuzzy or edit-distance suggestion.
func Exact(kind, name string, names []string) (string, error) {
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return n, nil
		}
	}
	return "", &NotFoundError{Kind: kind, Query: name, Suggestion: Suggest(name, names)}
}

// Suggest returns the closest known name, or "" when nothing is close.
func Suggest(query string, names []string) string {
	if matches := FuzzyMatchAll(query, names, 1); len(matches) > 0 {
		return matches[0].Name
	}
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return ""
	}
	best, bestDist := "", 4
	for _, name := range names {
		if d := Levenshtein(query, strings.ToLower(name)); d < bestDist {
			best, bestDist = name, d
		}
	}
	return best
}

func buildMatches(names []string, results fuzzy.Matches, limit int) []Match {
	if len(results) == 0 || limit <= 0 {
		return nil
	}
	if len(results) > limit {
		results = results[:limit]
	}
	matches := make([]Match, len(results))
	for i, r := range results {
		matches[i] = Match{Name: names[r.Index], Score: r.Score}
	}
	return matches
}

// Levenshtein computes the edit distance between a and b.
func Levenshtein(a, b string) int {
	la, lb := len(a), len(b)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	row := make([]int, lb+1)
	for j := range row {
		row[j] = j
	}
	for i := 1; i <= la; i++ {
		prev := i - 1
		row[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			val := min(row[j]+1, row[j-1]+1, prev+cost)
			prev = row[j]
			row[j] = val
		}
	}
	return row[lb]
}
