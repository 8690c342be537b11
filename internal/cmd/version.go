package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/graphkit/graph-cli/internal/graph"
)

// version is set at build time via ldflags
var version = "dev"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Aliases: []string{"v"},
		Short:   "Print version information",
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			if isJSON(cmd) {
				return printJSON(cmd, map[string]any{
					"version":       version,
					"graph_version": graph.DefaultGraphVersion,
				})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "graph-cli version %s (Graph API %s)\n", version, graph.DefaultGraphVersion)
			return nil
		}),
	}
}
