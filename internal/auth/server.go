// Package auth runs the local side of a browser login: a loopback HTTP
// server that Graph redirects back to with the login code.
package auth

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"
)

// CallbackPath is where the server expects the redirect.
const CallbackPath = "/callback"

// EnvNoBrowser disables opening the login URL automatically.
const EnvNoBrowser = "GRAPH_NO_BROWSER"

// ErrServerClosed is returned by Wait after Close.
var ErrServerClosed = errors.New("callback server closed")

// OpenBrowser opens a URL in the user's browser. Tests replace it.
var OpenBrowser = openBrowser

// CallbackServer listens on a loopback address until Graph redirects the
// browser back with a code or an error.
type CallbackServer struct {
	listener  net.Listener
	server    *http.Server
	result    chan url.Values
	done      chan struct{}
	once      sync.Once
	closeOnce sync.Once
}

// NewCallbackServer starts listening on addr, e.g. "127.0.0.1:0" for any
// free port. Requests are served right away; call Wait for the result.
func NewCallbackServer(addr string) (*CallbackServer, error) {
	if addr == "" {
		addr = "127.0.0.1:0"
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to start callback server: %w", err)
	}

	s := &CallbackServer{
		listener: listener,
		result:   make(chan url.Values, 1),
		done:     make(chan struct{}),
	}
	mux := http.NewServeMux()
	mux.HandleFunc(CallbackPath, s.handleCallback)
	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		_ = s.server.Serve(listener)
	}()
	return s, nil
}

// RedirectURL is the redirect_uri to register and put in the login URL.
func (s *CallbackServer) RedirectURL() string {
	port := s.listener.Addr().(*net.TCPAddr).Port
	return fmt.Sprintf("http://127.0.0.1:%d%s", port, CallbackPath)
}

// Wait blocks until the first callback arrives and returns its query. The
// server is shut down before Wait returns.
func (s *CallbackServer) Wait(ctx context.Context) (url.Values, error) {
	defer s.Close()
	select {
	case query := <-s.result:
		return query, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, ErrServerClosed
	}
}

// Close shuts the server down. It is safe to call more than once.
func (s *CallbackServer) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			_ = s.server.Close()
		}
	})
}

// handleCallback accepts the first redirect carrying a code or an error.
// Anything else, such as a favicon probe, gets a 400 and is ignored.
func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	query := r.URL.Query()
	if query.Get("code") == "" && query.Get("error") == "" {
		http.Error(w, "Missing code", http.StatusBadRequest)
		return
	}

	accepted := false
	s.once.Do(func() {
		s.result <- query
		accepted = true
	})
	if !accepted {
		http.Error(w, "Login already completed", http.StatusGone)
		return
	}

	page := successPage
	data := map[string]string{}
	if errCode := query.Get("error"); errCode != "" {
		page = failurePage
		data["Error"] = errCode
		data["Description"] = query.Get("error_description")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = page.Execute(w, data)
}

// openBrowser opens the URL in the default browser
func openBrowser(target string) error {
	if shouldSkipAutoBrowserOpen() {
		return nil
	}

	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", target)
	case "linux":
		cmd = exec.Command("xdg-open", target)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", target)
	default:
		return fmt.Errorf("unsupported platform")
	}

	return cmd.Start()
}

func shouldSkipAutoBrowserOpen() bool {
	if flag.Lookup("test.v") != nil {
		return true
	}
	noBrowser := strings.TrimSpace(strings.ToLower(os.Getenv(EnvNoBrowser)))
	return noBrowser == "1" || noBrowser == "true" || noBrowser == "yes"
}

var (
	successPage = template.Must(template.New("success").Parse(successTemplate))
	failurePage = template.Must(template.New("failure").Parse(failureTemplate))
)
