package outfmt

import (
	"context"
	"io"

	"github.com/graphkit/graph-cli/internal/filter"
)

type queryKey struct{}

// WithQuery adds a JQ query to the context
func WithQuery(ctx context.Context, query string) context.Context {
	return context.WithValue(ctx, queryKey{}, query)
}

// GetQuery retrieves the JQ query from context
func GetQuery(ctx context.Context) string {
	if q, ok := ctx.Value(queryKey{}).(string); ok {
		return q
	}
	return ""
}

// WriteJSONFiltered writes JSON with optional JQ filtering.
// Uses pretty-printed output by default; pass compact=true for single-line output.
// Without a query the value's own marshaling is kept, so ordered Graph
// objects print in the order the API sent them.
func WriteJSONFiltered(w io.Writer, v any, query string, compact bool) error {
	v = normalizeJSONOutput(v)
	if query == "" {
		return WriteJSONMaybeCompact(w, v, compact)
	}
	result, err := filter.ApplyValue(v, query)
	if err != nil {
		return err
	}
	return WriteJSONMaybeCompact(w, result, compact)
}

// ApplyQuery applies a JQ query to structured data and returns the filtered
// value as plain JSON types.
func ApplyQuery(v any, query string) (any, error) {
	v = normalizeJSONOutput(v)
	if query == "" {
		query = "."
	}
	return filter.ApplyValue(v, query)
}

// WriteJSONLines writes each item on its own line, applying query to each
// item separately.
func WriteJSONLines(w io.Writer, items []any, query string) error {
	for _, item := range items {
		out := item
		if query != "" {
			filtered, err := filter.ApplyValue(item, query)
			if err != nil {
				return err
			}
			out = filtered
		}
		if err := WriteJSONMaybeCompact(w, out, true); err != nil {
			return err
		}
	}
	return nil
}
