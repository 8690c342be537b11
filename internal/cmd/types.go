package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/graphkit/graph-cli/internal/graph"
)

func newTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types [name]",
		Short: "List the node types responses can be decoded as",
		Long: `List the node types accepted by --as. With a name, show which fields of that
type decode as nested node types.`,
		Args: cobra.MaximumNArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				name, err := resolveNodeType(args[0])
				if err != nil {
					return err
				}
				t, err := graph.LookupNodeType(name)
				if err != nil {
					return err
				}
				casts := t.FieldCasts()
				if isJSON(cmd) {
					if casts == nil {
						casts = map[string]string{}
					}
					return printJSON(cmd, map[string]any{"name": name, "fields": casts})
				}
				if len(casts) == 0 {
					printIfNotQuiet(cmd, "%s has no typed fields.\n", name)
					return nil
				}
				fields := make([]string, 0, len(casts))
				for f := range casts {
					fields = append(fields, f)
				}
				sort.Strings(fields)
				w := newTabWriterFromCmd(cmd)
				_, _ = fmt.Fprintln(w, "FIELD\tTYPE")
				for _, f := range fields {
					_, _ = fmt.Fprintf(w, "%s\t%s\n", f, casts[f])
				}
				return w.Flush()
			}

			names := graph.NodeTypeNames()
			if isJSON(cmd) {
				items := make([]any, len(names))
				for i, n := range names {
					items[i] = n
				}
				return printList(cmd, items)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), strings.Join(names, "\n"))
			return nil
		}),
	}
}
