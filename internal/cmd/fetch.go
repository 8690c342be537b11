package cmd

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/graphkit/graph-cli/internal/graph"
	"github.com/graphkit/graph-cli/internal/iocontext"
)

func newFetchCmd() *cobra.Command {
	var (
		idsFlag     string
		fieldList   string
		nodeType    string
		concurrency int
		progress    bool
	)

	cmd := &cobra.Command{
		Use:   "fetch [id...]",
		Short: "Fetch several nodes concurrently",
		Long:  "Fetch several nodes by ID with bounded concurrency. Results keep the order of the IDs given.",
		Example: `  graph fetch 4 5 6 --fields id,name
  graph fetch --ids @ids.txt --concurrency 10 --as GraphPage`,
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			ids := append([]string(nil), args...)
			if idsFlag != "" {
				more, err := ParseStringListFlag(idsFlag)
				if err != nil {
					return fmt.Errorf("invalid --ids: %w", err)
				}
				ids = append(ids, more...)
			}
			if len(ids) == 0 {
				return fmt.Errorf("at least one ID is required")
			}
			if concurrency < 1 {
				return fmt.Errorf("--concurrency must be at least 1")
			}
			typeName, err := resolveNodeType(nodeType)
			if err != nil {
				return err
			}

			g, err := getGraph(cmd)
			if err != nil {
				return err
			}
			newReq := func(id string) (*graph.Request, error) {
				params := graph.NewParams()
				if fieldList != "" {
					params.Set("fields", strings.Join(splitCommaList(fieldList), ","))
				}
				return g.NewRequest(http.MethodGet, "/"+strings.TrimPrefix(id, "/"), params, "", "", "")
			}

			if flags.DryRun {
				for _, id := range ids {
					req, err := newReq(id)
					if err != nil {
						return err
					}
					if _, err := maybeDryRun(cmd, g, req); err != nil {
						return err
					}
				}
				return nil
			}

			ioStreams := iocontext.GetIO(cmd.Context())
			results := runBulkOperation(cmdContext(cmd), ids, int64(concurrency), progress, ioStreams.ErrOut,
				func(ctx context.Context, id string) (*graph.Node, error) {
					req, err := newReq(id)
					if err != nil {
						return nil, err
					}
					resp, err := g.Client().SendRequest(ctx, req)
					if err != nil {
						return nil, err
					}
					return resp.Node(typeName)
				})

			success, failure := countResults(results)
			if err := renderFetchResults(cmd, results); err != nil {
				return err
			}
			if failure > 0 {
				return fmt.Errorf("%d of %d fetches failed", failure, success+failure)
			}
			return nil
		}),
	}

	cmd.Flags().StringVar(&idsFlag, "ids", "", "IDs (comma-separated, JSON array, @path or @- for stdin)")
	cmd.Flags().StringVar(&fieldList, "fields", "", "Comma-separated fields to request")
	cmd.Flags().StringVar(&nodeType, "as", "", "Node type to decode each result as")
	cmd.Flags().IntVar(&concurrency, "concurrency", DefaultConcurrency, "Maximum concurrent requests")
	cmd.Flags().BoolVar(&progress, "progress", false, "Show progress on stderr")
	flagAlias(cmd.Flags(), "concurrency", "parallel")

	return cmd
}

func renderFetchResults(cmd *cobra.Command, results []BulkResult) error {
	if isJSON(cmd) {
		items := make([]any, 0, len(results))
		for _, r := range results {
			item := map[string]any{"id": r.ID, "success": r.Success}
			if r.Success {
				item["node"] = r.Data
			} else {
				item["error"] = graph.StructuredErrorFromError(r.Error)
			}
			items = append(items, item)
		}
		return printList(cmd, items)
	}

	w := newTabWriterFromCmd(cmd)
	_, _ = fmt.Fprintln(w, "ID\tSTATUS\tDETAIL")
	for _, r := range results {
		if !r.Success {
			_, _ = fmt.Fprintf(w, "%s\terror\t%s\n", r.ID, r.Error)
			continue
		}
		detail := "-"
		if node, ok := r.Data.(*graph.Node); ok {
			if name := node.StringField("name"); name != "" {
				detail = name
			} else if id := node.StringField("id"); id != "" {
				detail = id
			}
		}
		_, _ = fmt.Fprintf(w, "%s\tok\t%s\n", r.ID, detail)
	}
	return w.Flush()
}
