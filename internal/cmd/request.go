package cmd

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/graphkit/graph-cli/internal/graph"
	"github.com/graphkit/graph-cli/internal/resolve"
)

// requestFlags are shared by get, post, delete and paginate.
type requestFlags struct {
	fields    []string
	rawFields []string
	params    string
	fieldList string
	etag      string
	nodeType  string
	edge      bool
	include   bool
	video     bool
}

func (f *requestFlags) register(cmd *cobra.Command, withUploads bool) {
	cmd.Flags().StringArrayVarP(&f.fields, "field", "f", nil, "Add a string parameter (key=value)")
	rawUsage := "Add a typed parameter (key=JSON)"
	if withUploads {
		rawUsage = "Add a typed parameter (key=JSON) or attach a file (key=@path)"
	}
	cmd.Flags().StringArrayVarP(&f.rawFields, "raw-field", "F", nil, rawUsage)
	cmd.Flags().StringVar(&f.params, "params", "", "Parameters as a JSON object (or @path, @- for stdin)")
	cmd.Flags().StringVar(&f.fieldList, "fields", "", "Comma-separated fields to request")
	cmd.Flags().StringVar(&f.nodeType, "as", "", "Node type to decode the response as (see: graph types)")
	cmd.Flags().BoolVar(&f.edge, "edge", false, "Decode the response as a list")
	cmd.Flags().BoolVarP(&f.include, "include", "i", false, "Include status and headers in the output")
	if withUploads {
		cmd.Flags().BoolVar(&f.video, "video", false, "Send file parameters to the video host")
	}
	flagAlias(cmd.Flags(), "raw-field", "rf")
	flagAlias(cmd.Flags(), "as", "type")
}

func (f *requestFlags) buildParams() (*graph.Params, error) {
	params := graph.NewParams()
	if f.params != "" {
		raw, err := loadAtValue(f.params)
		if err != nil {
			return nil, err
		}
		decoded, err := graph.DecodeJSON([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid --params: %w", err)
		}
		obj, ok := decoded.(*graph.Object)
		if !ok {
			return nil, fmt.Errorf("invalid --params: must be a JSON object")
		}
		params.Merge(obj)
	}
	for _, field := range f.fields {
		key, value, err := parseField(field)
		if err != nil {
			return nil, err
		}
		params.Set(key, value)
	}
	for _, field := range f.rawFields {
		key, value, err := parseRawField(field, f.video)
		if err != nil {
			return nil, err
		}
		params.Set(key, value)
	}
	if f.fieldList != "" {
		params.Set("fields", strings.Join(splitCommaList(f.fieldList), ","))
	}
	return params, nil
}

// resolveNodeType checks name against the registered node types.
func resolveNodeType(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", nil
	}
	return resolve.Exact("node type", name, graph.NodeTypeNames())
}

func newGetCmd() *cobra.Command {
	return newRequestCmd(http.MethodGet, "get <endpoint>", "Send a GET request to a Graph endpoint",
		`  graph get /me --fields id,name
  graph get /me/friends --edge --as GraphUser
  graph get /12345 --etag '"abc"' --include`)
}

func newPostCmd() *cobra.Command {
	return newRequestCmd(http.MethodPost, "post <endpoint>", "Send a POST request to a Graph endpoint",
		`  graph post /me/feed -f message="Hello"
  graph post /me/photos -F source=@photo.jpg -f caption=Lunch
  graph post /me/videos --video -F source=@clip.mp4`)
}

func newDeleteCmd() *cobra.Command {
	return newRequestCmd(http.MethodDelete, "delete <endpoint>", "Send a DELETE request to a Graph endpoint",
		`  graph delete /12345_67890`)
}

func newRequestCmd(method, use, short, example string) *cobra.Command {
	opts := &requestFlags{}
	cmd := &cobra.Command{
		Use:     use,
		Short:   short,
		Example: example,
		Args:    cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			return runRequest(cmd, method, args[0], opts)
		}),
	}
	opts.register(cmd, method != http.MethodGet)
	cmd.Flags().StringVar(&opts.etag, "etag", "", "Send If-None-Match with this ETag")
	if method != http.MethodGet {
		_ = cmd.Flags().MarkHidden("etag")
	}
	return cmd
}

func runRequest(cmd *cobra.Command, method, endpoint string, opts *requestFlags) error {
	nodeType, err := resolveNodeType(opts.nodeType)
	if err != nil {
		return err
	}
	params, err := opts.buildParams()
	if err != nil {
		return err
	}

	g, err := getGraph(cmd)
	if err != nil {
		return err
	}
	endpoint, version, err := resolveEndpoint(endpoint)
	if err != nil {
		return err
	}
	req, err := g.NewRequest(method, endpoint, params, "", opts.etag, version)
	if err != nil {
		return err
	}
	if done, err := maybeDryRun(cmd, g, req); done {
		return err
	}

	resp, err := g.Client().SendRequest(cmdContext(cmd), req)
	if err != nil {
		return err
	}
	if resp.HTTPStatus() == http.StatusNotModified {
		if isJSON(cmd) {
			return printJSON(cmd, map[string]any{
				"status":       resp.HTTPStatus(),
				"not_modified": true,
				"etag":         opts.etag,
			})
		}
		printIfNotQuiet(cmd, "Not modified (ETag %s)\n", opts.etag)
		return nil
	}

	shape, err := decodeShape(resp, nodeType, opts.edge)
	if err != nil {
		return err
	}
	return renderResponse(cmd, resp, shape, opts.include)
}

// parseField parses a key=value field as a string parameter.
func parseField(field string) (string, string, error) {
	parts := strings.SplitN(field, "=", 2)
	if len(parts) != 2 || parts[0] == "" {
		return "", "", fmt.Errorf("invalid field format %q: must be key=value", field)
	}
	return parts[0], parts[1], nil
}

// parseRawField parses a key=value field where value is JSON or an @path
// file attachment.
func parseRawField(field string, video bool) (string, any, error) {
	parts := strings.SplitN(field, "=", 2)
	if len(parts) != 2 || parts[0] == "" {
		return "", nil, fmt.Errorf("invalid raw field format %q: must be key=value", field)
	}

	key := parts[0]
	valueStr := parts[1]

	if path, ok := strings.CutPrefix(valueStr, "@"); ok {
		if path == "" {
			return "", nil, fmt.Errorf("invalid raw field %q: @ requires a file path", key)
		}
		if video {
			file, err := graph.OpenVideoFile(path)
			return key, file, err
		}
		file, err := graph.OpenFile(path)
		return key, file, err
	}

	value, err := graph.DecodeJSON([]byte(valueStr))
	if err != nil {
		return "", nil, fmt.Errorf("invalid JSON in raw field %q: %w", key, err)
	}
	return key, value, nil
}
