package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/graphkit/graph-cli/internal/config"
	"github.com/graphkit/graph-cli/internal/debug"
	"github.com/graphkit/graph-cli/internal/dryrun"
	"github.com/graphkit/graph-cli/internal/iocontext"
	"github.com/graphkit/graph-cli/internal/metrics"
	"github.com/graphkit/graph-cli/internal/outfmt"
)

// DefaultTimeout bounds a single Graph HTTP exchange.
const DefaultTimeout = 60 * time.Second

// rootFlags holds global CLI flags
type rootFlags struct {
	Output      string
	JSON        bool
	JQ          string
	Template    string
	Compact     bool
	Debug       bool
	DryRun      bool
	Quiet       bool
	Stats       bool
	MetricsAddr string
	Timeout     time.Duration
	Profile     string
	AppID       string
	AppSecret   string
	AccessToken string
	APIVersion  string
	Beta        bool
}

// flags holds the global command flags. This is package-level mutable state
// that MUST be reset at the start of every Execute() call. Tests depend on
// this reset to get clean state; any code that reads flags outside of a
// command's RunE is reading stale data from the previous Execute() call.
var flags = rootFlags{
	Output:  defaultOutput(),
	Timeout: DefaultTimeout,
}

// stats collects request counts for --stats. Reset with flags.
var stats *metrics.Collector

func defaultOutput() string {
	value := strings.TrimSpace(os.Getenv(config.EnvOutput))
	if value != "" {
		return normalizeOutputFormat(value)
	}
	return "text"
}

func normalizeOutputFormat(value string) string {
	value = strings.TrimSpace(value)
	if value == "ndjson" {
		return "jsonl"
	}
	return value
}

// Execute runs the root command
func Execute(ctx context.Context, args []string) error {
	flags = rootFlags{
		Output:  defaultOutput(),
		Timeout: DefaultTimeout,
	}
	stats = metrics.New()
	var metricsServer *metrics.Server

	root := &cobra.Command{
		Use:                "graph",
		Short:              "Client for the social Graph API",
		Long:               "graph sends requests to the Graph API, decodes nodes and edges, follows pagination,\nruns batch requests and helps with tokens, logins and signed requests.",
		SilenceUsage:       true,
		SilenceErrors:      true,
		DisableSuggestions: true, // did-you-mean comes from enhanceUnknownError
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			flags.Output = normalizeOutputFormat(flags.Output)
			if flags.JSON {
				if flagOrAliasChanged(cmd, "output") && flags.Output != "json" {
					return fmt.Errorf("--json conflicts with --output %s", flags.Output)
				}
				flags.Output = "json"
			}
			needsJSON := flags.JQ != "" || flags.Template != ""
			if needsJSON && flags.Output != "json" && flags.Output != "jsonl" {
				if flagOrAliasChanged(cmd, "output") {
					return fmt.Errorf("--jq/--template require --output json or jsonl (or --json)")
				}
				flags.Output = "json"
			}

			mode, err := outfmt.Parse(flags.Output)
			if err != nil {
				return err
			}
			ctx = outfmt.WithMode(ctx, mode)
			ctx = outfmt.WithCompact(ctx, flags.Compact)

			ioStreams, ok := iocontext.FromContext(ctx)
			if !ok {
				ioStreams = iocontext.DefaultIO()
			}
			if flags.Quiet {
				streams := *ioStreams
				streams.ErrOut = io.Discard
				if mode == outfmt.Text {
					streams.Out = io.Discard
				}
				ioStreams = &streams
			}
			ctx = iocontext.WithIO(ctx, ioStreams)
			cmd.SetOut(ioStreams.Out)
			cmd.SetErr(ioStreams.ErrOut)
			cmd.SetIn(ioStreams.In)

			debug.SetupLoggerTo(ioStreams.ErrOut, flags.Debug)
			ctx = debug.WithDebug(ctx, flags.Debug)
			ctx = dryrun.WithDryRun(ctx, flags.DryRun)

			if flags.JQ != "" {
				ctx = outfmt.WithQuery(ctx, flags.JQ)
			}
			if flags.Template != "" {
				tmpl, err := loadTemplate(flags.Template)
				if err != nil {
					return err
				}
				ctx = outfmt.WithTemplate(ctx, tmpl)
			}

			if flags.Timeout < 0 {
				return fmt.Errorf("--timeout must be >= 0")
			}
			if flags.MetricsAddr != "" {
				srv, err := metrics.Serve(flags.MetricsAddr, stats)
				if err != nil {
					return fmt.Errorf("invalid value for --metrics-addr: %w", err)
				}
				metricsServer = srv
				_, _ = fmt.Fprintf(ioStreams.ErrOut, "Serving metrics on %s\n", srv.URL())
			}

			cmd.SetContext(ctx)
			return nil
		},
	}

	root.SetContext(ctx)
	root.SetArgs(args)
	if ioStreams, ok := iocontext.FromContext(ctx); ok {
		root.SetOut(ioStreams.Out)
		root.SetErr(ioStreams.ErrOut)
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.Output, "output", "o", flags.Output, "Output format: text|json|jsonl|ndjson (env GRAPH_OUTPUT)")
	pf.BoolVarP(&flags.JSON, "json", "j", false, "Shorthand for --output json")
	pf.StringVar(&flags.JQ, "jq", "", "JQ expression to filter JSON output")
	pf.StringVar(&flags.Template, "template", "", "Go template string (or @path) to render JSON output")
	pf.BoolVar(&flags.Compact, "compact-json", false, "Compact JSON output (no indentation)")
	pf.BoolVar(&flags.Debug, "debug", false, "Log HTTP exchanges to stderr")
	pf.BoolVar(&flags.DryRun, "dry-run", false, "Print the prepared request instead of sending it")
	pf.BoolVarP(&flags.Quiet, "quiet", "Q", false, "Suppress non-essential output")
	pf.BoolVar(&flags.Stats, "stats", false, "Print request counts to stderr when done")
	pf.StringVar(&flags.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while the command runs")
	pf.DurationVar(&flags.Timeout, "timeout", flags.Timeout, "HTTP request timeout (e.g., 30s, 2m)")
	pf.StringVarP(&flags.Profile, "profile", "p", "", "Profile to use (env GRAPH_PROFILE)")
	pf.StringVar(&flags.AppID, "app-id", "", "App ID (env GRAPH_APP_ID)")
	pf.StringVar(&flags.AppSecret, "app-secret", "", "App secret (env GRAPH_APP_SECRET)")
	pf.StringVarP(&flags.AccessToken, "access-token", "t", "", "Default access token (env GRAPH_ACCESS_TOKEN)")
	pf.StringVar(&flags.APIVersion, "api-version", "", "Graph API version, e.g. v18.0 (env GRAPH_API_VERSION)")
	pf.BoolVar(&flags.Beta, "beta", false, "Use the beta Graph hosts (env GRAPH_BETA)")

	flagAlias(pf, "compact-json", "cj")
	flagAlias(pf, "dry-run", "dr")
	flagAlias(pf, "template", "tpl")
	flagAlias(pf, "access-token", "token")
	flagAlias(pf, "api-version", "graph-version")
	flagAlias(pf, "output", "out")

	root.AddCommand(newGetCmd())
	root.AddCommand(newPostCmd())
	root.AddCommand(newDeleteCmd())
	root.AddCommand(newPaginateCmd())
	root.AddCommand(newFetchCmd())
	root.AddCommand(newBatchCmd())
	root.AddCommand(newTokenCmd())
	root.AddCommand(newLoginCmd())
	root.AddCommand(newSignedRequestCmd())
	root.AddCommand(newUploadCmd())
	root.AddCommand(newProfileCmd())
	root.AddCommand(newTypesCmd())
	root.AddCommand(newVersionCmd())

	targetCmd, err := root.ExecuteC()
	if metricsServer != nil {
		metricsServer.Close()
	}
	if flags.Stats {
		printStats(root.ErrOrStderr())
	}
	if err != nil {
		if !errors.Is(err, errAlreadyHandled) {
			enhanced := enhanceUnknownError(err, root, targetCmd)
			_, _ = fmt.Fprintln(root.ErrOrStderr(), enhanced) //nolint:errcheck
		}
		return err
	}
	return nil
}

func printStats(w io.Writer) {
	if stats == nil {
		return
	}
	snap, err := stats.Snapshot()
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "requests: %d  batched: %d", snap.Requests, snap.BatchItems)
	for _, kind := range snap.ErrorKinds() {
		_, _ = fmt.Fprintf(w, "  %s errors: %d", kind, snap.Errors[kind])
	}
	_, _ = fmt.Fprintln(w)
}

// enhanceUnknownError adds "did you mean?" suggestions to unknown command/flag errors.
// targetCmd is the command Cobra resolved before the error (may be root itself).
func enhanceUnknownError(err error, root *cobra.Command, targetCmd *cobra.Command) string {
	msg := err.Error()

	// Unknown command: "unknown command "foo" for "graph""
	if strings.Contains(msg, "unknown command") {
		unknown := extractQuoted(msg)
		if unknown != "" {
			parent := root
			if targetCmd != nil {
				parent = targetCmd
			}
			var names []string
			for _, c := range parent.Commands() {
				if c.IsAvailableCommand() || c.Name() == "help" {
					names = append(names, c.Name())
					names = append(names, c.Aliases...)
				}
			}
			if suggestion := suggestCommand(unknown, names); suggestion != "" {
				return fmt.Sprintf("%s\n\nDid you mean %q?", msg, suggestion)
			}
		}
	}

	if strings.Contains(msg, "unknown flag") || strings.Contains(msg, "flag provided but not defined") || strings.Contains(msg, "unknown shorthand flag") {
		unknown := extractFlag(msg)
		if unknown != "" {
			seen := make(map[string]bool)
			var flagNames []string
			addFlags := func(fs *pflag.FlagSet) {
				fs.VisitAll(func(f *pflag.Flag) {
					if f.Hidden {
						return
					}
					name := "--" + f.Name
					if !seen[name] {
						seen[name] = true
						flagNames = append(flagNames, name)
					}
					if f.Shorthand != "" {
						short := "-" + f.Shorthand
						if !seen[short] {
							seen[short] = true
							flagNames = append(flagNames, short)
						}
					}
				})
			}
			if targetCmd != nil {
				addFlags(targetCmd.Flags())
				addFlags(targetCmd.InheritedFlags())
			} else {
				addFlags(root.Flags())
				addFlags(root.PersistentFlags())
			}
			helpCmd := "graph --help"
			if targetCmd != nil {
				if commandPath := strings.TrimSpace(targetCmd.CommandPath()); commandPath != "" {
					helpCmd = commandPath + " --help"
				}
			}
			if suggestion := suggestFlag(unknown, flagNames); suggestion != "" {
				return fmt.Sprintf("%s\n\nDid you mean %q?\nRun %q to see supported flags.", msg, suggestion, helpCmd)
			}
			return fmt.Sprintf("%s\n\nRun %q to see supported flags.", msg, helpCmd)
		}
	}

	return msg
}

// extractQuoted extracts the first double-quoted substring from s.
func extractQuoted(s string) string {
	start := strings.IndexByte(s, '"')
	if start < 0 {
		return ""
	}
	end := strings.IndexByte(s[start+1:], '"')
	if end < 0 {
		return ""
	}
	return s[start+1 : start+1+end]
}

// extractFlag extracts a flag name (e.g., "--foo") from an error message.
func extractFlag(s string) string {
	idx := strings.Index(s, "--")
	if idx < 0 {
		// Fallback for shorthand errors like:
		// "unknown shorthand flag: 'a' in -a"
		idx = strings.LastIndex(s, " -")
		if idx < 0 {
			return ""
		}
		rest := strings.TrimSpace(s[idx+1:])
		end := strings.IndexByte(rest, ' ')
		if end >= 0 {
			rest = rest[:end]
		}
		rest = strings.TrimRight(rest, ".,;:!?\"'")
		if strings.HasPrefix(rest, "-") && len(rest) > 1 {
			return rest
		}
		return ""
	}
	rest := s[idx:]
	end := strings.IndexByte(rest, ' ')
	if end < 0 {
		end = len(rest)
	}
	return strings.TrimRight(rest[:end], ".,;:!?\"'")
}

func loadTemplate(value string) (string, error) {
	if strings.HasPrefix(value, "@") {
		path := strings.TrimPrefix(value, "@")
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read template file: %w", err)
		}
		return string(data), nil
	}
	return value, nil
}
