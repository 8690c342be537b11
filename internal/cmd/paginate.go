package cmd

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/graphkit/graph-cli/internal/graph"
	"github.com/graphkit/graph-cli/internal/iocontext"
	"github.com/graphkit/graph-cli/internal/outfmt"
	"github.com/graphkit/graph-cli/internal/timeparam"
)

// DefaultMaxPages bounds paginate unless --max-pages says otherwise.
const DefaultMaxPages = 10

func newPaginateCmd() *cobra.Command {
	var (
		opts      requestFlags
		direction string
		maxPages  int
		limit     int
		since     string
		until     string
	)

	cmd := &cobra.Command{
		Use:   "paginate <edge-endpoint>",
		Short: "Walk the pages of a Graph edge",
		Long: `Fetch the first page of an edge and follow its paging cursors.

Items are streamed as they arrive with --output jsonl. --max-pages 0 walks
every page.`,
		Example: `  graph paginate /me/feed --fields id,message --max-pages 3
  graph paginate /me/posts --since "2d ago" -o jsonl
  graph paginate /me/photos --direction previous`,
		Args: cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			dir, ok := graph.ParseDirection(direction)
			if !ok {
				return fmt.Errorf("invalid --direction %q: must be next or previous", direction)
			}
			if maxPages < 0 {
				return fmt.Errorf("--max-pages must be 0 or more")
			}
			typeName, err := resolveNodeType(opts.nodeType)
			if err != nil {
				return err
			}
			params, err := opts.buildParams()
			if err != nil {
				return err
			}
			window, err := timeparam.Window(since, until, time.Now())
			if err != nil {
				return err
			}
			for _, k := range []string{"since", "until"} {
				if v, ok := window[k]; ok {
					params.Set(k, v)
				}
			}
			if limit > 0 {
				params.Set("limit", strconv.Itoa(limit))
			}

			g, err := getGraph(cmd)
			if err != nil {
				return err
			}
			endpoint, version, err := resolveEndpoint(args[0])
			if err != nil {
				return err
			}
			req, err := g.NewRequest(http.MethodGet, endpoint, params, "", "", version)
			if err != nil {
				return err
			}
			if done, err := maybeDryRun(cmd, g, req); done {
				return err
			}

			ctx := cmdContext(cmd)
			resp, err := g.Client().SendRequest(ctx, req)
			if err != nil {
				return err
			}
			edge, err := resp.Edge(typeName)
			if err != nil {
				return err
			}

			streaming := outfmt.IsJSONL(ctx)
			var collected []any
			pages := 0
			for edge != nil {
				pages++
				switch {
				case streaming:
					if err := printList(cmd, edge.Items()); err != nil {
						return err
					}
				case isJSON(cmd):
					collected = append(collected, edge.Items()...)
				default:
					if err := renderEdgeText(cmd, edge, pages == 1); err != nil {
						return err
					}
				}
				if maxPages > 0 && pages >= maxPages {
					break
				}
				if edge, err = g.Paginate(ctx, edge, dir); err != nil {
					return err
				}
				if edge != nil && edge.Len() == 0 {
					break
				}
			}

			if isJSON(cmd) && !streaming {
				if collected == nil {
					collected = []any{}
				}
				return printJSON(cmd, map[string]any{
					"items": collected,
					"pages": pages,
				})
			}
			if !streaming && !flags.Quiet {
				ioStreams := iocontext.GetIO(ctx)
				_, _ = fmt.Fprintf(ioStreams.ErrOut, "%d page(s)\n", pages)
			}
			return nil
		}),
	}

	cmd.Flags().StringArrayVarP(&opts.fields, "field", "f", nil, "Add a string parameter (key=value)")
	cmd.Flags().StringArrayVarP(&opts.rawFields, "raw-field", "F", nil, "Add a typed parameter (key=JSON)")
	cmd.Flags().StringVar(&opts.params, "params", "", "Parameters as a JSON object (or @path, @- for stdin)")
	cmd.Flags().StringVar(&opts.fieldList, "fields", "", "Comma-separated fields to request")
	cmd.Flags().StringVar(&opts.nodeType, "as", "", "Node type of the items")
	cmd.Flags().StringVar(&direction, "direction", string(graph.DirectionNext), "Direction to walk: next|previous")
	cmd.Flags().IntVar(&maxPages, "max-pages", DefaultMaxPages, "Stop after this many pages (0 for all)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Items per page")
	cmd.Flags().StringVar(&since, "since", "", "Only items after this time (e.g. 2024-01-01, \"2d ago\", monday)")
	cmd.Flags().StringVar(&until, "until", "", "Only items before this time")
	flagAlias(cmd.Flags(), "max-pages", "pages")
	flagAlias(cmd.Flags(), "as", "type")

	return cmd
}
