package cmd

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/graphkit/graph-cli/internal/graph"
	"github.com/graphkit/graph-cli/internal/iocontext"
)

// batchManifest lists the requests of one batch. The file may also be a
// bare list of entries.
type batchManifest struct {
	Requests []batchEntry `yaml:"requests"`
}

type batchEntry struct {
	Name     string            `yaml:"name"`
	Method   string            `yaml:"method"`
	Endpoint string            `yaml:"endpoint"`
	Params   map[string]any    `yaml:"params"`
	Files    map[string]string `yaml:"files"`
	Options  map[string]any    `yaml:"options"`
	Token    string            `yaml:"access_token"`
}

// parseBatchManifest decodes a YAML or JSON manifest.
func parseBatchManifest(data []byte) ([]batchEntry, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("batch manifest is empty")
	}
	var entries []batchEntry
	if trimmed[0] == '[' || trimmed[0] == '-' {
		if err := yaml.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("invalid batch manifest: %w", err)
		}
	} else {
		var m batchManifest
		if err := yaml.Unmarshal(trimmed, &m); err != nil {
			return nil, fmt.Errorf("invalid batch manifest: %w", err)
		}
		entries = m.Requests
	}
	for i := range entries {
		e := &entries[i]
		if strings.TrimSpace(e.Endpoint) == "" {
			return nil, fmt.Errorf("batch request %d: endpoint is required", i)
		}
		if e.Method == "" {
			e.Method = http.MethodGet
		}
		e.Method = strings.ToUpper(e.Method)
	}
	return entries, nil
}

func (e batchEntry) params() (*graph.Params, error) {
	params := graph.ParamsFromMap(e.Params)
	keys := make([]string, 0, len(e.Files))
	for k := range e.Files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		file, err := graph.OpenFile(e.Files[k])
		if err != nil {
			return nil, err
		}
		params.Set(k, file)
	}
	return params, nil
}

func (e batchEntry) options() *graph.Params {
	options := graph.ParamsFromMap(e.Options)
	if e.Name != "" {
		options.Set("name", e.Name)
	}
	return options
}

func newBatchCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Send several requests in one batch",
		Long: fmt.Sprintf(`Send up to %d requests in one call to the Graph batch endpoint.

The manifest is YAML or JSON:

  requests:
    - name: me
      endpoint: /me
      params: {fields: id,name}
    - method: POST
      endpoint: /me/feed
      params: {message: "{result=me:$.name} says hi"}
      options: {depends_on: me}
    - method: POST
      endpoint: /me/photos
      files: {source: ./photo.jpg}`, graph.MaxBatchSize),
		Example: `  graph batch --file batch.yaml
  cat batch.json | graph batch --file - -o json`,
		Args: cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			data, err := readManifest(cmd, file)
			if err != nil {
				return err
			}
			entries, err := parseBatchManifest(data)
			if err != nil {
				return err
			}

			g, err := getGraph(cmd)
			if err != nil {
				return err
			}
			batch := g.NewBatchRequest("", "")
			for i, e := range entries {
				params, err := e.params()
				if err != nil {
					return err
				}
				req, err := g.NewRequest(e.Method, e.Endpoint, params, e.Token, "", "")
				if err != nil {
					return fmt.Errorf("batch request %d: %w", i, err)
				}
				if err := batch.AddWithOptions(req, e.options()); err != nil {
					return err
				}
			}

			if flags.DryRun {
				if err := batch.PrepareRequestsForBatch(); err != nil {
					return err
				}
				_, err := maybeDryRun(cmd, g, batch.Request)
				return err
			}

			resp, err := g.SendBatchRequest(cmdContext(cmd), batch)
			if err != nil {
				return err
			}
			failed, err := renderBatchResponse(cmd, resp)
			if err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d batch requests failed", failed, resp.Len())
			}
			return nil
		}),
	}

	cmd.Flags().StringVar(&file, "file", "", "Manifest path (- for stdin)")
	_ = cmd.MarkFlagRequired("file")
	flagAlias(cmd.Flags(), "file", "manifest")

	return cmd
}

func readManifest(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(iocontext.GetIO(cmd.Context()).In)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return data, nil
}

// renderBatchResponse writes one entry per batched response and returns how
// many of them failed.
func renderBatchResponse(cmd *cobra.Command, resp *graph.BatchResponse) (int, error) {
	failed := 0
	items := make([]any, 0, resp.Len())
	w := newTabWriterFromCmd(cmd)
	if !isJSON(cmd) {
		_, _ = fmt.Fprintln(w, "NAME\tSTATUS\tRESULT")
	}

	for name, r := range resp.Responses().All() {
		item := map[string]any{"name": name, "status": r.HTTPStatus()}
		var summary string
		if err := r.Err(); err != nil {
			failed++
			item["error"] = graph.StructuredErrorFromError(err)
			summary = err.Error()
		} else if shape, err := r.Shape(""); err == nil {
			item["body"] = shape
			summary = textValue(shape)
		} else {
			item["body"] = r.Body()
			summary = r.Body()
		}
		items = append(items, item)
		if !isJSON(cmd) {
			_, _ = fmt.Fprintf(w, "%s\t%d\t%s\n", name, r.HTTPStatus(), truncate(summary, 80))
		}
	}

	if isJSON(cmd) {
		return failed, printList(cmd, items)
	}
	return failed, w.Flush()
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
