// Package graph is a client for the Graph API: it builds signed requests,
// sends them alone or in batches, and decodes replies into nodes and edges.
package graph

import (
	"context"
	"time"
)

const (
	SDKName = "graph-go-sdk"
	Version = "1.0.0"
)

// UserAgent is sent with every request.
var UserAgent = SDKName + "/" + Version

// Options configures a Graph.
type Options struct {
	AppID     string
	AppSecret string
	// Version is the Graph API version, DefaultGraphVersion when empty.
	Version string
	// DefaultToken is used by requests that do not name a token.
	DefaultToken string
	Beta         bool
	// Transport defaults to an HTTPTransport with Timeout.
	Transport Transport
	Timeout   time.Duration
	Counter   RequestCounter
	// BaseURL replaces the Graph hosts, for tests and proxies.
	BaseURL string
}

// Graph ties app credentials, a version and a Client together.
type Graph struct {
	app          *App
	client       *Client
	version      string
	defaultToken string
}

// New validates opts and returns a Graph.
func New(opts Options) (*Graph, error) {
	if opts.AppID == "" {
		return nil, configError(`Required "app_id" not supplied in options.`)
	}
	if opts.AppSecret == "" {
		return nil, configError(`Required "app_secret" not supplied in options.`)
	}
	version := opts.Version
	if version == "" {
		version = DefaultGraphVersion
	}
	if err := ValidateVersion(version); err != nil {
		return nil, err
	}
	transport := opts.Transport
	if transport == nil {
		transport = NewHTTPTransport(opts.Timeout)
	}
	clientOpts := []ClientOption{WithBeta(opts.Beta), WithCounter(opts.Counter)}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, WithBaseURL(opts.BaseURL))
	}
	return &Graph{
		app:          NewApp(opts.AppID, opts.AppSecret),
		client:       NewClient(transport, clientOpts...),
		version:      version,
		defaultToken: opts.DefaultToken,
	}, nil
}

func (g *Graph) App() *App                { return g.app }
func (g *Graph) Client() *Client          { return g.client }
func (g *Graph) GraphVersion() string     { return g.version }
func (g *Graph) DefaultToken() string     { return g.defaultToken }
func (g *Graph) SetDefaultToken(t string) { g.defaultToken = t }

// NewRequest builds a request, filling in the default token and version.
func (g *Graph) NewRequest(method, endpoint string, params *Params, token, eTag, version string) (*Request, error) {
	if token == "" {
		token = g.defaultToken
	}
	if version == "" {
		version = g.version
	}
	return NewRequest(g.app, token, method, endpoint, params, eTag, version)
}

// SendRequest builds and sends a request.
func (g *Graph) SendRequest(ctx context.Context, method, endpoint string, params *Params, token, eTag, version string) (*Response, error) {
	req, err := g.NewRequest(method, endpoint, params, token, eTag, version)
	if err != nil {
		return nil, err
	}
	return g.client.SendRequest(ctx, req)
}

// Get sends a GET request.
func (g *Graph) Get(ctx context.Context, endpoint string, token string) (*Response, error) {
	return g.SendRequest(ctx, "GET", endpoint, nil, token, "", "")
}

// Post sends a POST request.
func (g *Graph) Post(ctx context.Context, endpoint string, params *Params, token string) (*Response, error) {
	return g.SendRequest(ctx, "POST", endpoint, params, token, "", "")
}

// Delete sends a DELETE request.
func (g *Graph) Delete(ctx context.Context, endpoint string, params *Params, token string) (*Response, error) {
	return g.SendRequest(ctx, "DELETE", endpoint, params, token, "", "")
}

// NewBatchRequest returns an empty batch using token (or the default token)
// as the fallback for its requests.
func (g *Graph) NewBatchRequest(token, version string) *BatchRequest {
	if token == "" {
		token = g.defaultToken
	}
	if version == "" {
		version = g.version
	}
	return NewBatchRequest(g.app, token, version)
}

// SendBatch sends reqs in one batch, naming each by its key.
func (g *Graph) SendBatch(ctx context.Context, reqs *Collection[*Request], token string) (*BatchResponse, error) {
	batch := g.NewBatchRequest(token, "")
	if err := batch.AddAll(reqs); err != nil {
		return nil, err
	}
	return g.client.SendBatchRequest(ctx, batch)
}

// SendBatchRequest sends a batch built by the caller.
func (g *Graph) SendBatchRequest(ctx context.Context, batch *BatchRequest) (*BatchResponse, error) {
	return g.client.SendBatchRequest(ctx, batch)
}

// Next fetches the page after edge, or returns nil when there is none.
func (g *Graph) Next(ctx context.Context, edge *Edge) (*Edge, error) {
	return g.Paginate(ctx, edge, DirectionNext)
}

// Previous fetches the page before edge, or returns nil when there is none.
func (g *Graph) Previous(ctx context.Context, edge *Edge) (*Edge, error) {
	return g.Paginate(ctx, edge, DirectionPrevious)
}

// Paginate fetches the page of edge in direction and decodes it with the
// node type of edge.
func (g *Graph) Paginate(ctx context.Context, edge *Edge, direction Direction) (*Edge, error) {
	req, err := edge.PaginationRequest(direction)
	if err != nil || req == nil {
		return nil, err
	}
	resp, err := g.client.SendRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Edge(edge.NodeType())
}

// OAuth2Client returns an OAuth client for the app.
func (g *Graph) OAuth2Client() *OAuth2Client {
	return NewOAuth2Client(g.app, g.client, g.version)
}

// RedirectLoginHelper returns a login helper keeping state in store.
func (g *Graph) RedirectLoginHelper(store PersistentStore) *RedirectLoginHelper {
	return NewRedirectLoginHelper(g.OAuth2Client(), store)
}

// ResumableUploader returns an uploader using token or the default token.
func (g *Graph) ResumableUploader(token string) *ResumableUploader {
	if token == "" {
		token = g.defaultToken
	}
	return NewResumableUploader(g.app, g.client, token, g.version)
}

// UploadVideo uploads the video at path to target in chunks, resending a
// rejected chunk up to maxAttempts times.
func (g *Graph) UploadVideo(ctx context.Context, target, path string, metadata *Params, maxAttempts int, token string) (*VideoUploadResult, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultUploadAttempts
	}
	return UploadVideo(ctx, g.ResumableUploader(token), target, path, metadata, maxAttempts)
}

// SignedRequest parses and verifies raw with the app secret.
func (g *Graph) SignedRequest(raw string) (*SignedRequest, error) {
	return ParseSignedRequest(g.app, raw)
}

// MakeSignedRequest signs payload with the app secret.
func (g *Graph) MakeSignedRequest(payload *Object) (string, error) {
	return MakeSignedRequest(g.app, payload)
}
