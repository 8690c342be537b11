// Package cmd provides test utilities for the graph CLI commands.
//
// Commands run against an httptest server that GRAPH_BASE_URL points at.
// Paths carry the API version, so a route for "/me" is registered as
// "/v12.0/me":
//
//	handler := newRouteHandler().
//	    On("GET", "/v12.0/me", jsonResponse(200, `{"id": "1", "name": "Ada"}`))
//	setupTestEnvWithHandler(t, handler)
//
//	out, _, err := runCmd(t, "", "get", "/me")
//	if err != nil {
//	    t.Fatalf("get failed: %v", err)
//	}
//
// runCmd injects buffered IO through the context, so output never touches
// the real stdout.
package cmd

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/99designs/keyring"

	"github.com/graphkit/graph-cli/internal/config"
	"github.com/graphkit/graph-cli/internal/iocontext"
)

const (
	testAppID     = "123"
	testAppSecret = "foo_app_secret"
	testToken     = "test-token"
	testVersion   = "v12.0"
)

type testEnv struct {
	t      *testing.T
	server *httptest.Server
	ring   keyring.Keyring
}

// setupTestEnvWithHandler starts a server for handler and points the CLI at
// it with app credentials in the environment. Each test gets its own empty
// keyring.
func setupTestEnvWithHandler(t *testing.T, handler http.Handler) *testEnv {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	env := setupKeyringEnv(t)
	env.server = server

	t.Setenv(envBaseURL, server.URL)
	t.Setenv(config.EnvAppID, testAppID)
	t.Setenv(config.EnvAppSecret, testAppSecret)
	t.Setenv(config.EnvAccessToken, testToken)
	return env
}

// setupKeyringEnv isolates a test from stored profiles and GRAPH_* settings.
func setupKeyringEnv(t *testing.T) *testEnv {
	t.Helper()

	ring := keyring.NewArrayKeyring(nil)
	t.Cleanup(config.SetOpenKeyring(func(keyring.Config) (keyring.Keyring, error) {
		return ring, nil
	}))
	for _, key := range []string{
		envBaseURL, config.EnvAppID, config.EnvAppSecret, config.EnvAccessToken,
		config.EnvAPIVersion, config.EnvBeta, config.EnvProfile, config.EnvStateStore,
	} {
		t.Setenv(key, "")
	}
	t.Setenv(config.EnvOutput, "text")
	return &testEnv{t: t, ring: ring}
}

// runCmd executes the CLI with args and returns what it wrote.
func runCmd(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	streams, out, errOut := iocontext.Buffered(stdin)
	ctx := iocontext.WithIO(context.Background(), streams)
	err := Execute(ctx, args)
	return out.String(), errOut.String(), err
}

// jsonResponse creates an http.HandlerFunc that returns a JSON response with the given status and body.
func jsonResponse(statusCode int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		_, _ = w.Write([]byte(body))
	}
}

// routeHandler is a test HTTP handler that routes requests based on method and path.
// Routes are matched by exact "METHOD PATH" combination. If no route matches,
// it answers with a Graph-style 404 error.
type routeHandler struct {
	mu       sync.Mutex
	routes   map[string]http.HandlerFunc
	requests []*http.Request
}

func newRouteHandler() *routeHandler {
	return &routeHandler{routes: make(map[string]http.HandlerFunc)}
}

// On registers a handler for the given HTTP method and path.
// Returns the routeHandler to allow method chaining.
func (rh *routeHandler) On(method, path string, handler http.HandlerFunc) *routeHandler {
	rh.routes[method+" "+path] = handler
	return rh
}

func (rh *routeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseMultipartForm(1 << 20)
	rh.mu.Lock()
	rh.requests = append(rh.requests, r)
	rh.mu.Unlock()

	key := r.Method + " " + r.URL.Path
	if handler, ok := rh.routes[key]; ok {
		handler(w, r)
		return
	}
	jsonResponse(http.StatusNotFound, `{"error":{"message":"Unknown path components: `+r.URL.Path+`","type":"OAuthException","code":2500}}`)(w, r)
}

// Requests returns the requests served so far.
func (rh *routeHandler) Requests() []*http.Request {
	rh.mu.Lock()
	defer rh.mu.Unlock()
	return append([]*http.Request(nil), rh.requests...)
}

func decodeJSON(t *testing.T, output string) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal([]byte(output), &out); err != nil {
		t.Fatalf("output is not a JSON object: %v\n%s", err, output)
	}
	return out
}

// decodeItems returns the items of an {"items": [...]} document.
func decodeItems(t *testing.T, output string) []map[string]any {
	t.Helper()
	var payload struct {
		Items []map[string]any `json:"items"`
	}
	if err := json.Unmarshal([]byte(output), &payload); err != nil {
		t.Fatalf("output is not an items document: %v\n%s", err, output)
	}
	return payload.Items
}

// decodeJSONList returns the items of an {"items": [...]} document as raw
// values.
func decodeJSONList(t *testing.T, output string) []any {
	t.Helper()
	var payload struct {
		Items []any `json:"items"`
	}
	if err := json.Unmarshal([]byte(output), &payload); err != nil {
		t.Fatalf("output is not an items document: %v\n%s", err, output)
	}
	return payload.Items
}
