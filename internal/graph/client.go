package graph

import (
	"context"
	"fmt"
)

// Graph hosts.
const (
	BaseGraphURL          = "https://graph.facebook.com"
	BaseGraphURLBeta      = "https://graph.beta.facebook.com"
	BaseGraphVideoURL     = "https://graph-video.facebook.com"
	BaseGraphVideoURLBeta = "https://graph-video.beta.facebook.com"
)

// Client prepares requests and exchanges them over a Transport.
type Client struct {
	transport Transport
	beta      bool
	counter   RequestCounter
	// baseURL overrides every host when set.
	baseURL string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBeta targets the beta hosts.
func WithBeta(beta bool) ClientOption {
	return func(c *Client) { c.beta = beta }
}

// WithCounter reports every exchange to counter.
func WithCounter(counter RequestCounter) ClientOption {
	return func(c *Client) {
		if counter != nil {
			c.counter = counter
		}
	}
}

// WithBaseURL sends every request to baseURL instead of the Graph hosts.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) { c.baseURL = baseURL }
}

// NewClient returns a client sending through transport, or an HTTPTransport
// when transport is nil.
func NewClient(transport Transport, opts ...ClientOption) *Client {
	if transport == nil {
		transport = NewHTTPTransport(0)
	}
	c := &Client{transport: transport, counter: NopCounter{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Transport() Transport { return c.transport }
func (c *Client) IsBeta() bool         { return c.beta }

// BaseURL returns the host for regular or video requests.
func (c *Client) BaseURL(video bool) string {
	if c.baseURL != "" {
		return c.baseURL
	}
	switch {
	case video && c.beta:
		return BaseGraphVideoURLBeta
	case video:
		return BaseGraphVideoURL
	case c.beta:
		return BaseGraphURLBeta
	default:
		return BaseGraphURL
	}
}

// PrepareRequestMessage builds the wire form of req. Requests with files are
// sent as multipart form data, everything else form-encoded.
func (c *Client) PrepareRequestMessage(req *Request) (*Message, error) {
	path, err := req.URL()
	if err != nil {
		return nil, err
	}
	headers := req.Headers()

	var body Body
	if req.ContainsFileUploads() {
		body = req.MultipartBody()
	} else {
		body = req.URLEncodedBody()
	}
	headers.Set("Content-Type", body.ContentType())

	data, err := body.Bytes()
	if err != nil {
		return nil, err
	}
	return &Message{
		Method:  req.Method(),
		URL:     c.BaseURL(req.ContainsVideoUploads()) + path,
		Headers: headers,
		Body:    data,
	}, nil
}

// SendRequest sends req and decodes the reply. When Graph answers with an
// error the decoded response is returned together with its *ResponseError.
func (c *Client) SendRequest(ctx context.Context, req *Request) (*Response, error) {
	if err := req.ValidateAccessToken(); err != nil {
		return nil, err
	}
	return c.send(ctx, req, 0)
}

// SendBatchRequest sends every request queued on batch in one exchange.
func (c *Client) SendBatchRequest(ctx context.Context, batch *BatchRequest) (*BatchResponse, error) {
	if err := batch.PrepareRequestsForBatch(); err != nil {
		return nil, err
	}
	resp, err := c.send(ctx, batch.Request, batch.Len())
	if resp == nil {
		return nil, err
	}
	return NewBatchResponse(batch, resp), err
}

func (c *Client) send(ctx context.Context, req *Request, batchSize int) (*Response, error) {
	msg, err := c.PrepareRequestMessage(req)
	if err != nil {
		return nil, err
	}
	raw, err := c.transport.Send(ctx, msg)
	c.counter.RequestSent(batchSize)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("transport returned no response for %s %s", msg.Method, req.Endpoint())
	}

	resp := NewResponse(req, raw.Body, raw.Status, raw.Headers)
	if respErr := resp.ResponseError(); respErr != nil {
		c.counter.RequestFailed(respErr.Kind)
		return resp, respErr
	}
	return resp, nil
}
