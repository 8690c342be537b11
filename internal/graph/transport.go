package graph

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/graphkit/graph-cli/internal/debug"
)

// DefaultTimeout bounds a single HTTP exchange.
const DefaultTimeout = 60 * time.Second

// Message is a request ready for the wire.
type Message struct {
	Method  string
	URL     string
	Headers *Collection[string]
	Body    []byte
}

// RawResponse is what a Transport returns.
type RawResponse struct {
	Status  int
	Headers *Collection[string]
	Body    []byte
}

// Transport sends a prepared message. Timeouts and cancellation belong to the
// transport and ctx.
type Transport interface {
	Send(ctx context.Context, msg *Message) (*RawResponse, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, msg *Message) (*RawResponse, error)

func (f TransportFunc) Send(ctx context.Context, msg *Message) (*RawResponse, error) {
	return f(ctx, msg)
}

// TransportError wraps a failure to exchange a message with Graph.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPTransport sends messages with net/http.
type HTTPTransport struct {
	HTTP *http.Client
}

// NewHTTPTransport returns a transport with TLS 1.2 or newer and the given
// timeout (DefaultTimeout when zero).
func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	baseTransport, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		baseTransport = &http.Transport{}
	}
	transport := baseTransport.Clone()
	if transport.TLSClientConfig == nil {
		transport.TLSClientConfig = &tls.Config{}
	} else {
		transport.TLSClientConfig = transport.TLSClientConfig.Clone()
	}
	transport.TLSClientConfig.MinVersion = tls.VersionTLS12
	transport.TLSClientConfig.InsecureSkipVerify = false

	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPTransport{
		HTTP: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

func (t *HTTPTransport) Send(ctx context.Context, msg *Message) (*RawResponse, error) {
	start := time.Now()
	logURL := RemoveParamsFromURL(msg.URL, "access_token", "appsecret_proof")

	var bodyReader io.Reader
	if msg.Body != nil {
		bodyReader = bytes.NewReader(msg.Body)
	}
	req, err := http.NewRequestWithContext(ctx, msg.Method, msg.URL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for name, value := range msg.Headers.All() {
		// net/http negotiates and decodes gzip itself.
		if strings.EqualFold(name, "Accept-Encoding") {
			continue
		}
		req.Header.Set(name, value)
	}

	resp, err := t.HTTP.Do(req)
	if err != nil {
		if debug.IsEnabled(ctx) {
			slog.Debug("request failed", "method", msg.Method, "url", logURL, "error", err)
		}
		return nil, &TransportError{Method: msg.Method, URL: logURL, Err: err}
	}
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, &TransportError{Method: msg.Method, URL: logURL, Err: fmt.Errorf("failed to read response: %w", err)}
	}
	if debug.IsEnabled(ctx) {
		slog.Debug("request complete", "method", msg.Method, "url", logURL, "status", resp.StatusCode, "duration", time.Since(start))
	}

	return &RawResponse{
		Status:  resp.StatusCode,
		Headers: flattenHeader(resp.Header),
		Body:    body,
	}, nil
}

func flattenHeader(h http.Header) *Collection[string] {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)
	out := NewCollection[string]()
	for _, name := range names {
		out.Set(name, h.Get(name))
	}
	return out
}
