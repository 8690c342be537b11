package graph

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// MaxBatchSize is the most requests Graph accepts in one batch.
const MaxBatchSize = 50

// BatchItem is one request queued in a batch.
type BatchItem struct {
	Name    string
	Request *Request
	// Options are extra fields copied into the batch entry.
	Options       *Params
	AttachedFiles string
}

// BatchRequest sends many requests in one POST to the Graph root.
type BatchRequest struct {
	*Request
	items []BatchItem
}

// NewBatchRequest creates an empty batch using app and accessToken as the
// fallback for requests that lack them.
func NewBatchRequest(app *App, accessToken, graphVersion string) *BatchRequest {
	return &BatchRequest{
		Request: &Request{
			app:          app,
			accessToken:  accessToken,
			method:       "POST",
			headers:      NewCollection[string](),
			params:       NewParams(),
			files:        NewCollection[*File](),
			graphVersion: graphVersion,
		},
	}
}

// Add queues req under name ("" for none).
func (b *BatchRequest) Add(req *Request, name string) error {
	var options *Params
	if name != "" {
		options = ParamsOf("name", name)
	}
	return b.AddWithOptions(req, options)
}

// AddWithOptions queues req. A "name" option names the request; other
// options are copied into its batch entry.
func (b *BatchRequest) AddWithOptions(req *Request, options *Params) error {
	options = options.Clone()
	if err := b.addFallbackDefaults(req); err != nil {
		return err
	}
	attached := b.extractFileAttachments(req)

	var name string
	if v, ok := options.Get("name"); ok {
		name, _ = toString(v)
		options.Delete("name")
	}
	b.items = append(b.items, BatchItem{
		Name:          name,
		Request:       req,
		Options:       options,
		AttachedFiles: attached,
	})
	return nil
}

// AddAll queues every request using its key as the name.
func (b *BatchRequest) AddAll(reqs *Collection[*Request]) error {
	for name, req := range reqs.All() {
		if err := b.Add(req, name); err != nil {
			return err
		}
	}
	return nil
}

func (b *BatchRequest) addFallbackDefaults(req *Request) error {
	if req.App() == nil {
		if b.App() == nil {
			return configError("Missing Application on Request and no fallback detected on BatchRequest.")
		}
		req.SetApp(b.App())
	}
	if req.AccessToken() == "" {
		if b.AccessToken() == "" {
			return configError("Missing access token on Request and no fallback detected on BatchRequest.")
		}
		req.SetAccessToken(b.AccessToken())
	}
	return nil
}

// extractFileAttachments moves the files of req onto the batch under fresh
// names and returns the names comma-joined.
func (b *BatchRequest) extractFileAttachments(req *Request) string {
	if !req.ContainsFileUploads() {
		return ""
	}
	var names []string
	for _, f := range req.Files().All() {
		name := strings.ReplaceAll(uuid.NewString(), "-", "")
		b.AddFile(name, f)
		names = append(names, name)
	}
	req.ResetFiles()
	return strings.Join(names, ",")
}

// Items returns the queued requests in order.
func (b *BatchRequest) Items() []BatchItem {
	out := make([]BatchItem, len(b.items))
	copy(out, b.items)
	return out
}

// Len returns the number of queued requests.
func (b *BatchRequest) Len() int { return len(b.items) }

// Item returns the request queued at index i.
func (b *BatchRequest) Item(i int) (BatchItem, bool) {
	if i < 0 || i >= len(b.items) {
		return BatchItem{}, false
	}
	return b.items[i], true
}

// ValidateBatchRequestCount fails for empty or oversized batches.
func (b *BatchRequest) ValidateBatchRequestCount() error {
	if n := len(b.items); n == 0 || n > MaxBatchSize {
		return &BatchSizeError{Count: n}
	}
	return nil
}

// PrepareRequestsForBatch encodes the queued requests into the "batch"
// param.
func (b *BatchRequest) PrepareRequestsForBatch() error {
	if err := b.ValidateBatchRequestCount(); err != nil {
		return err
	}
	encoded, err := b.RequestsJSON()
	if err != nil {
		return err
	}
	return b.SetParams(ParamsOf(
		"batch", encoded,
		"include_headers", "true",
	))
}

// RequestsJSON encodes the queued requests as the JSON batch array.
func (b *BatchRequest) RequestsJSON() (string, error) {
	entries := make([]*Object, 0, len(b.items))
	for i, item := range b.items {
		options := NewParams()
		if item.Name != "" {
			options.Set("name", item.Name)
		}
		for k, v := range item.Options.All() {
			if !options.Has(k) {
				options.Set(k, v)
			}
		}
		entry, err := BatchEntry(item.Request, options, item.AttachedFiles)
		if err != nil {
			return "", fmt.Errorf("failed to encode batch request %d: %w", i, err)
		}
		entries = append(entries, entry)
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("failed to encode batch: %w", err)
	}
	return string(data), nil
}

// BatchEntry converts req into one element of the batch array.
func BatchEntry(req *Request, options *Params, attachedFiles string) (*Object, error) {
	relativeURL, err := req.URL()
	if err != nil {
		return nil, err
	}
	headers := []string{}
	for name, value := range req.Headers().All() {
		headers = append(headers, name+": "+value)
	}

	entry := ObjectOf(
		"headers", headers,
		"method", req.Method(),
		"relative_url", relativeURL,
	)
	// Files travel on the batch itself, so entries are always url-encoded.
	if body := req.URLEncodedBody().String(); body != "" {
		entry.Set("body", body)
	}
	for k, v := range options.All() {
		if !entry.Has(k) {
			entry.Set(k, v)
		}
	}
	if attachedFiles != "" {
		entry.Set("attached_files", attachedFiles)
	}
	return entry, nil
}

// BatchResponse splits the response to a batch into one Response per
// queued request.
type BatchResponse struct {
	*Response
	batch     *BatchRequest
	responses *Collection[*Response]
}

// NewBatchResponse demultiplexes resp, the response to batch.
func NewBatchResponse(batch *BatchRequest, resp *Response) *BatchResponse {
	br := &BatchResponse{
		Response:  resp,
		batch:     batch,
		responses: NewCollection[*Response](),
	}
	for key, item := range resp.DecodedBody().All() {
		idx, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		itemObj, _ := asObject(item)
		br.addResponse(idx, itemObj)
	}
	return br
}

func (b *BatchResponse) addResponse(idx int, item *Object) {
	name := strconv.Itoa(idx)
	var req *Request
	if queued, ok := b.batch.Item(idx); ok {
		if queued.Name != "" {
			name = queued.Name
		}
		req = queued.Request
	}

	var body []byte
	if v, ok := item.Get("body"); ok && v != nil {
		switch val := v.(type) {
		case string:
			body = []byte(val)
		default:
			body, _ = json.Marshal(val)
		}
	}
	var status int
	if v, ok := item.Get("code"); ok {
		status, _ = toInt(v)
	}
	headers := NewCollection[string]()
	if v, ok := item.Get("headers"); ok {
		if list, ok := asObject(v); ok {
			for _, h := range list.All() {
				hObj, ok := h.(*Object)
				if !ok {
					continue
				}
				hn, _ := hObj.Get("name")
				hv, _ := hObj.Get("value")
				hname, _ := toString(hn)
				hvalue, _ := toString(hv)
				if hname != "" {
					headers.Set(hname, hvalue)
				}
			}
		}
	}
	b.responses.Set(name, NewResponse(req, body, status, headers))
}

// Responses returns the per-request responses keyed by request name, or by
// index for unnamed requests.
func (b *BatchResponse) Responses() *Collection[*Response] { return b.responses }

// Get returns the response for the named request.
func (b *BatchResponse) Get(name string) (*Response, bool) {
	return b.responses.Get(name)
}

// Len returns the number of responses.
func (b *BatchResponse) Len() int { return b.responses.Len() }
