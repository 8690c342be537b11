package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/graphkit/graph-cli/internal/graph"
	"github.com/graphkit/graph-cli/internal/iocontext"
	"github.com/graphkit/graph-cli/internal/outfmt"
)

// maxTableColumns caps the columns shown for edge items in text mode.
const maxTableColumns = 6

// decodeShape decodes resp as the given node type. asEdge forces edge
// decoding.
func decodeShape(resp *graph.Response, nodeType string, asEdge bool) (graph.Shape, error) {
	if asEdge {
		return resp.Edge(nodeType)
	}
	return resp.Shape(nodeType)
}

// responseEnvelope is the JSON output of --include.
func responseEnvelope(resp *graph.Response, body any) map[string]any {
	headers := map[string]string{}
	for k, v := range resp.Headers().All() {
		headers[k] = v
	}
	out := map[string]any{
		"status":  resp.HTTPStatus(),
		"headers": headers,
		"body":    body,
	}
	if etag := resp.ETag(); etag != "" {
		out["etag"] = etag
	}
	if v := resp.GraphVersion(); v != "" {
		out["graph_version"] = v
	}
	return out
}

// edgeDocument is the JSON form of an edge: its items plus the paging and
// summary metadata Graph sent.
func edgeDocument(edge *graph.Edge) map[string]any {
	items := edge.Items()
	if items == nil {
		items = []any{}
	}
	doc := map[string]any{"items": items}
	for _, key := range []string{"paging", "summary"} {
		if v, ok := edge.MetaData().Get(key); ok && v != nil {
			doc[key] = v
		}
	}
	return doc
}

// renderResponse writes the decoded response in the active output mode.
func renderResponse(cmd *cobra.Command, resp *graph.Response, shape graph.Shape, include bool) error {
	if isJSON(cmd) {
		if include {
			return printJSON(cmd, responseEnvelope(resp, shape))
		}
		edge, ok := shape.(*graph.Edge)
		if !ok {
			return printJSON(cmd, shape)
		}
		if outfmt.IsJSONL(cmd.Context()) {
			return printList(cmd, edge.Items())
		}
		return printJSON(cmd, edgeDocument(edge))
	}

	ioStreams := iocontext.GetIO(cmd.Context())
	if include {
		_, _ = fmt.Fprintf(ioStreams.Out, "HTTP %d\n", resp.HTTPStatus())
		keys := resp.Headers().Keys()
		sort.Strings(keys)
		for _, k := range keys {
			v, _ := resp.Headers().Get(k)
			_, _ = fmt.Fprintf(ioStreams.Out, "%s: %s\n", k, v)
		}
		_, _ = fmt.Fprintln(ioStreams.Out)
	}
	return renderShapeText(cmd, shape)
}

func renderShapeText(cmd *cobra.Command, shape graph.Shape) error {
	switch s := shape.(type) {
	case *graph.Node:
		return renderNodeText(cmd, s)
	case *graph.Edge:
		return renderEdgeText(cmd, s, true)
	default:
		return printJSON(cmd, shape)
	}
}

func renderNodeText(cmd *cobra.Command, node *graph.Node) error {
	w := newTabWriterFromCmd(cmd)
	for name, v := range node.All() {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", name, textValue(v))
	}
	return w.Flush()
}

// renderEdgeText writes edge items as a table. Columns come from the first
// node item.
func renderEdgeText(cmd *cobra.Command, edge *graph.Edge, header bool) error {
	ioStreams := iocontext.GetIO(cmd.Context())
	f := outfmt.NewFormatter(cmd.Context(), ioStreams.Out, ioStreams.ErrOut)
	if edge.Len() == 0 {
		if header {
			f.Empty("No items.")
		}
		return nil
	}

	nodes := edge.Nodes()
	if len(nodes) == 0 {
		for _, item := range edge.Items() {
			f.Row(textValue(item))
		}
		return f.EndTable()
	}

	columns := nodes[0].FieldNames()
	if len(columns) > maxTableColumns {
		columns = columns[:maxTableColumns]
	}
	if header {
		upper := make([]string, len(columns))
		for i, c := range columns {
			upper[i] = strings.ToUpper(c)
		}
		f.StartTable(upper...)
	}
	for _, item := range edge.Items() {
		node, ok := item.(*graph.Node)
		if !ok {
			f.Row(textValue(item))
			continue
		}
		row := make([]string, len(columns))
		for i, c := range columns {
			v, _ := node.Field(c)
			row[i] = textValue(v)
		}
		f.Row(row...)
	}
	return f.EndTable()
}

// textValue renders a field for a table cell.
func textValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "-"
	case string:
		return val
	case time.Time:
		return val.Format(time.RFC3339)
	case bool, int, int64, float64:
		return fmt.Sprint(val)
	case fmt.Stringer:
		return val.String()
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}
