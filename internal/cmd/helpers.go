package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"unicode"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/graphkit/graph-cli/internal/dryrun"
	"github.com/graphkit/graph-cli/internal/graph"
	"github.com/graphkit/graph-cli/internal/iocontext"
	"github.com/graphkit/graph-cli/internal/outfmt"
	"github.com/graphkit/graph-cli/internal/urlparse"
)

// newTabWriter creates a tabwriter for text output
func newTabWriter(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
}

func newTabWriterFromCmd(cmd *cobra.Command) *tabwriter.Writer {
	ioStreams := iocontext.GetIO(cmd.Context())
	return newTabWriter(ioStreams.Out)
}

// printJSON outputs data as JSON with optional query/template filtering
func printJSON(cmd *cobra.Command, v any) error {
	ioStreams := iocontext.GetIO(cmd.Context())
	query := outfmt.GetQuery(cmd.Context())
	if tmpl := outfmt.GetTemplate(cmd.Context()); tmpl != "" {
		filtered, err := outfmt.ApplyQuery(v, query)
		if err != nil {
			return err
		}
		return outfmt.WriteTemplate(ioStreams.Out, filtered, tmpl)
	}
	return outfmt.WriteJSONFiltered(ioStreams.Out, v, query, outfmt.IsCompact(cmd.Context()))
}

// printList writes items as one {"items": [...]} document, or one line per
// item in JSONL mode.
func printList(cmd *cobra.Command, items []any) error {
	if outfmt.IsJSONL(cmd.Context()) {
		ioStreams := iocontext.GetIO(cmd.Context())
		return outfmt.WriteJSONLines(ioStreams.Out, items, outfmt.GetQuery(cmd.Context()))
	}
	if items == nil {
		items = []any{}
	}
	return printJSON(cmd, map[string]any{"items": items})
}

// printJSONErr writes a JSON value to stderr.
func printJSONErr(cmd *cobra.Command, v any) error {
	ioStreams := iocontext.GetIO(cmd.Context())
	return outfmt.WriteJSON(ioStreams.ErrOut, v)
}

// isJSON checks if the command context wants JSON output
func isJSON(cmd *cobra.Command) bool {
	return outfmt.IsJSON(cmd.Context())
}

// printIfNotQuiet prints to stdout only if not in quiet mode
func printIfNotQuiet(cmd *cobra.Command, format string, args ...any) {
	if !flags.Quiet {
		ioStreams := iocontext.GetIO(cmd.Context())
		_, _ = fmt.Fprintf(ioStreams.Out, format, args...)
	}
}

func printAction(cmd *cobra.Command, action, resource string, id any, name string) {
	if flags.Quiet || isJSON(cmd) {
		return
	}

	ioStreams := iocontext.GetIO(cmd.Context())
	message := fmt.Sprintf("%s %s", action, resource)
	if id != nil {
		if value, ok := id.(string); !ok || value != "" {
			message = fmt.Sprintf("%s %v", message, id)
		}
	}
	if name != "" {
		message = fmt.Sprintf("%s: %s", message, name)
	}
	_, _ = fmt.Fprintln(ioStreams.Out, message)
}

func warn(cmd *cobra.Command, format string, args ...any) {
	ioStreams := iocontext.GetIO(cmd.Context())
	_, _ = fmt.Fprintf(ioStreams.ErrOut, "Warning: "+format+"\n", args...)
}

// cmdContext returns the command context
func cmdContext(cmd *cobra.Command) context.Context {
	return cmd.Context()
}

// maybeDryRun prints the wire form of req and reports true when dry-run mode
// is on.
func maybeDryRun(cmd *cobra.Command, g *graph.Graph, req *graph.Request) (bool, error) {
	if !dryrun.IsEnabled(cmd.Context()) {
		return false, nil
	}
	preview, err := previewRequest(g, req)
	if err != nil {
		return true, err
	}
	if isJSON(cmd) {
		return true, printJSON(cmd, map[string]any{
			"dry_run": true,
			"request": preview,
		})
	}
	ioStreams := iocontext.GetIO(cmd.Context())
	preview.Write(ioStreams.Out)
	return true, nil
}

// previewRequest renders req without its credentials.
func previewRequest(g *graph.Graph, req *graph.Request) (*dryrun.Preview, error) {
	msg, err := g.Client().PrepareRequestMessage(req)
	if err != nil {
		return nil, err
	}
	preview := &dryrun.Preview{
		Method:  msg.Method,
		URL:     graph.RemoveParamsFromURL(msg.URL, "access_token", "appsecret_proof"),
		Headers: map[string]string{},
	}
	for k, v := range msg.Headers.All() {
		preview.Headers[k] = v
	}
	stripped := preview.URL != msg.URL
	if req.ContainsFileUploads() {
		preview.Body = fmt.Sprintf("<multipart body, %d bytes, %d file(s)>", len(msg.Body), req.Files().Len())
		stripped = stripped || strings.Contains(string(msg.Body), "access_token")
	} else if len(msg.Body) > 0 {
		preview.Body = redactBody(string(msg.Body))
		stripped = stripped || preview.Body != string(msg.Body)
	}
	if stripped {
		preview.Warnings = append(preview.Warnings, "access_token and appsecret_proof omitted")
	}
	return preview, nil
}

// redactBody drops credentials from a form body, including the ones carried
// by each entry of a batch param.
func redactBody(body string) string {
	params := graph.ParseQuery(body)
	changed := false
	for _, name := range []string{"access_token", "appsecret_proof"} {
		if params.Has(name) {
			params.Delete(name)
			changed = true
		}
	}
	if v, ok := params.Get("batch"); ok {
		if raw, ok := v.(string); ok {
			if redacted, ok := redactBatch(raw); ok {
				params.Set("batch", redacted)
				changed = true
			}
		}
	}
	if !changed {
		return body
	}
	return graph.EncodeParams(params)
}

// redactBatch strips credentials from the relative_url and body of every
// batch entry. ok is false when nothing needed removing.
func redactBatch(raw string) (string, bool) {
	var entries []map[string]any
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return raw, false
	}
	changed := false
	for _, entry := range entries {
		if u, ok := entry["relative_url"].(string); ok {
			if cleaned := graph.RemoveParamsFromURL(u, "access_token", "appsecret_proof"); cleaned != u {
				entry["relative_url"] = cleaned
				changed = true
			}
		}
		if b, ok := entry["body"].(string); ok {
			if cleaned := redactBody(b); cleaned != b {
				entry["body"] = cleaned
				changed = true
			}
		}
	}
	if !changed {
		return raw, false
	}
	var buf strings.Builder
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(entries); err != nil {
		return raw, false
	}
	return strings.TrimSuffix(buf.String(), "\n"), true
}

// flagAlias registers a hidden alias for an existing flag.
// Both flags share the same underlying Value, so setting either one sets both.
// The alias is annotated so flagOrAliasChanged() can detect it.
// aliasBridgeValue wraps a pflag.Value so that Set() on the alias also
// marks the canonical flag as Changed.  This lets aliases satisfy Cobra's
// MarkFlagRequired check transparently.
type aliasBridgeValue struct {
	pflag.Value
	canonical *pflag.Flag
}

func (v *aliasBridgeValue) Set(s string) error {
	if err := v.Value.Set(s); err != nil {
		return err
	}
	v.canonical.Changed = true
	return nil
}

// aliasBridgeSliceValue extends aliasBridgeValue to also forward the
// pflag.SliceValue interface (Append, Replace, GetSlice) when the
// underlying Value supports it.
type aliasBridgeSliceValue struct {
	aliasBridgeValue
	slice pflag.SliceValue
}

func (v *aliasBridgeSliceValue) Append(s string) error     { return v.slice.Append(s) }
func (v *aliasBridgeSliceValue) Replace(ss []string) error { return v.slice.Replace(ss) }
func (v *aliasBridgeSliceValue) GetSlice() []string        { return v.slice.GetSlice() }

func flagAlias(fs *pflag.FlagSet, name, alias string) {
	f := fs.Lookup(name)
	if f == nil {
		panic(fmt.Sprintf("flagAlias: flag %q not found", name))
	}
	a := *f
	a.Name = alias
	a.Shorthand = ""
	a.Usage = ""
	a.Hidden = true
	bridge := &aliasBridgeValue{Value: f.Value, canonical: f}
	if sv, ok := f.Value.(pflag.SliceValue); ok {
		a.Value = &aliasBridgeSliceValue{aliasBridgeValue: *bridge, slice: sv}
	} else {
		a.Value = bridge
	}
	newAnn := map[string][]string{"alias-of": {name}}
	for k, v := range f.Annotations {
		if k == cobra.BashCompOneRequiredFlag {
			continue
		}
		newAnn[k] = v
	}
	a.Annotations = newAnn
	fs.AddFlag(&a)
}

// flagOrAliasChanged returns true if the named flag or any of its
// hidden aliases was explicitly set by the user.
func flagOrAliasChanged(cmd *cobra.Command, name string) bool {
	if cmd.Flags().Changed(name) {
		return true
	}
	if cmd.InheritedFlags().Changed(name) {
		return true
	}

	aliasChanged := func(fs *pflag.FlagSet) bool {
		found := false
		fs.VisitAll(func(f *pflag.Flag) {
			if found {
				return
			}
			if ann, ok := f.Annotations["alias-of"]; ok && len(ann) > 0 && ann[0] == name {
				if fs.Changed(f.Name) {
					found = true
				}
			}
		})
		return found
	}

	return aliasChanged(cmd.Flags()) || aliasChanged(cmd.InheritedFlags())
}

func splitCommaList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadAtValue resolves @- (stdin) and @path (file) references.
func loadAtValue(value string) (string, error) {
	if !strings.HasPrefix(value, "@") {
		return value, nil
	}
	path := strings.TrimPrefix(value, "@")
	if path == "" {
		return "", fmt.Errorf("@ requires a file path or - for stdin")
	}
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", value, err)
	}
	return string(data), nil
}

// ParseStringListFlag parses a comma/whitespace/newline separated flag value into a list of strings.
// It supports @- (stdin) and @path (file), and also accepts JSON array inputs.
func ParseStringListFlag(value string) ([]string, error) {
	value = strings.TrimSpace(value)
	raw, err := loadAtValue(value)
	if err != nil {
		return nil, err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("no values provided")
	}

	if strings.HasPrefix(raw, "[") {
		var arr []any
		if err := json.Unmarshal([]byte(raw), &arr); err == nil {
			out := make([]string, 0, len(arr))
			for _, v := range arr {
				switch vv := v.(type) {
				case string:
					if s := strings.TrimSpace(vv); s != "" {
						out = append(out, s)
					}
				case float64:
					i := int64(vv)
					if float64(i) != vv {
						return nil, fmt.Errorf("invalid value %v: expected string or integer", vv)
					}
					out = append(out, fmt.Sprintf("%d", i))
				default:
					return nil, fmt.Errorf("invalid value %v: expected string or integer", v)
				}
			}
			if len(out) == 0 {
				return nil, fmt.Errorf("no valid values provided")
			}
			return out, nil
		}
	}

	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return unicode.IsSpace(r) || r == ','
	})
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no valid values provided")
	}
	return out, nil
}

// errAlreadyHandled is a sentinel error indicating the error was already printed to stderr.
// Commands using RunE return this to signal Cobra that an error occurred (for exit code)
// without Cobra printing it again (since SilenceErrors is true on root command).
var errAlreadyHandled = errors.New("error already handled")

type handledError struct {
	err      error
	exitCode int
}

func (e *handledError) Error() string {
	return e.err.Error()
}

func (e *handledError) Unwrap() []error {
	return []error{errAlreadyHandled, e.err}
}

func (e *handledError) ExitCode() int {
	return e.exitCode
}

// RunE wraps a command function with enhanced error handling
func RunE(fn func(cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := fn(cmd, args)
		if err != nil {
			if isJSON(cmd) {
				_ = printJSONErr(cmd, graph.StructuredErrorFromError(err))
			} else {
				_, _ = fmt.Fprint(cmd.ErrOrStderr(), HandleError(err))
			}
			// Return a handled error so tests can still inspect the original message.
			return &handledError{err: err, exitCode: ExitCode(err)}
		}
		return nil
	}
}

// resolveEndpoint accepts an endpoint path or a full Graph URL. For a URL it
// returns the endpoint part and the version the URL pinned, if any.
func resolveEndpoint(endpoint string) (string, string, error) {
	if !urlparse.IsURL(endpoint) {
		return endpoint, "", nil
	}
	parsed, err := urlparse.Parse(endpoint)
	if err != nil {
		return "", "", err
	}
	version := parsed.Version
	if version != "" {
		if err := graph.ValidateVersion(version); err != nil {
			return "", "", err
		}
	}
	return parsed.Endpoint, version, nil
}
