// Package filter runs jq expressions over decoded Graph payloads.
package filter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/itchyny/gojq"
)

// NormalizeExpression fixes shell-escaped operators in jq expressions.
// Zsh escapes ! to \! even in single quotes, breaking operators like !=.
func NormalizeExpression(expr string) string {
	return strings.ReplaceAll(expr, `\!`, `!`)
}

// Compile parses and compiles expression once so it can be run against many
// values, e.g. each page of a paginated edge.
func Compile(expression string) (*gojq.Code, error) {
	query, err := gojq.Parse(NormalizeExpression(expression))
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression: %w", err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression: %w", err)
	}
	return code, nil
}

// Apply applies a JQ filter expression to the input data. data must already
// be made of plain JSON values (map[string]any, []any, float64, ...).
func Apply(data any, expression string) (any, error) {
	if expression == "" {
		return data, nil
	}
	code, err := Compile(expression)
	if err != nil {
		return nil, err
	}

	results, err := run(code, data)
	if err != nil {
		if items, ok := itemsQueryFallbackData(data, expression, err); ok {
			if fallbackResults, fallbackErr := run(code, items); fallbackErr == nil {
				results = fallbackResults
				err = nil
			}
		}
	}
	if err != nil {
		return nil, err
	}
	return collapseQueryResults(results), nil
}

// ApplyValue marshals v (any JSON-encodable value, including ordered Graph
// objects) and applies expression to the result.
func ApplyValue(v any, expression string) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode value: %w", err)
	}
	return ApplyFromJSON(data, expression)
}

func run(code *gojq.Code, data any) ([]any, error) {
	iter := code.Run(data)

	var results []any
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			if haltErr, ok := err.(*gojq.HaltError); ok && haltErr.Value() == nil {
				break
			}
			return nil, fmt.Errorf("filter error: %w", err)
		}
		results = append(results, v)
	}
	return results, nil
}

func collapseQueryResults(results []any) any {
	if len(results) == 1 {
		return results[0]
	}
	return results
}

// itemsQueryFallbackData lets ".[]" queries reach into {"items": [...]}
// wrappers produced for list output.
func itemsQueryFallbackData(data any, expression string, runErr error) (any, bool) {
	if runErr == nil || !looksLikeRootArrayQuery(expression) {
		return nil, false
	}
	if !strings.Contains(runErr.Error(), "expected an object but got: array") {
		return nil, false
	}

	m, ok := data.(map[string]any)
	if !ok {
		return nil, false
	}
	items, ok := m["items"]
	if !ok {
		return nil, false
	}
	if _, ok := items.([]any); !ok {
		return nil, false
	}
	return items, true
}

func looksLikeRootArrayQuery(expression string) bool {
	expr := strings.TrimSpace(expression)
	return strings.HasPrefix(expr, ".[]") || strings.HasPrefix(expr, "[.[]") || strings.HasPrefix(expr, "(.[]")
}

// ApplyToJSON applies filter to JSON bytes and returns filtered JSON bytes (pretty-printed).
func ApplyToJSON(jsonData []byte, expression string) ([]byte, error) {
	if expression == "" {
		return jsonData, nil
	}
	result, err := ApplyFromJSON(jsonData, expression)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(result, "", "  ")
}

// ApplyFromJSON applies a JQ filter to JSON bytes and returns the result as a Go value.
func ApplyFromJSON(jsonData []byte, expression string) (any, error) {
	var data any
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return Apply(data, expression)
}
