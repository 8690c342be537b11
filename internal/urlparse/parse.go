// Package urlparse turns Graph API URLs copied from a browser, the Graph
// Explorer or a paging "next" link into an endpoint the client can send.
package urlparse

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// ParsedURL is a Graph URL split into the parts the client sends separately.
type ParsedURL struct {
	Host     string
	Version  string // e.g. v19.0, empty when the URL has no version segment
	Endpoint string // path and query without the version, e.g. /me/feed?limit=2
	Video    bool
	Beta     bool
}

// graphHosts maps the hosts Graph answers on to their video and beta flags.
var graphHosts = map[string]struct{ video, beta bool }{
	"graph.facebook.com":            {false, false},
	"graph.beta.facebook.com":       {false, true},
	"graph-video.facebook.com":      {true, false},
	"graph-video.beta.facebook.com": {true, true},
}

var versionSegment = regexp.MustCompile(`^/(v\d+\.\d+)(/.*)?$`)

// IsURL reports whether s looks like an absolute http(s) URL rather than an
// endpoint path.
func IsURL(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://")
}

// Parse splits a Graph URL such as
// https://graph.facebook.com/v19.0/me/feed?limit=2 into its host, version and
// endpoint.
func Parse(rawURL string) (*ParsedURL, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("URL cannot be empty")
	}

	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	if parsed.Scheme == "" {
		return nil, fmt.Errorf("invalid URL: missing scheme (expected https://...)")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid URL scheme %q: expected http or https", parsed.Scheme)
	}

	host := strings.ToLower(parsed.Hostname())
	kind, ok := graphHosts[host]
	if !ok {
		return nil, fmt.Errorf("unsupported host %q: expected graph.facebook.com or graph-video.facebook.com", host)
	}

	path := parsed.EscapedPath()
	if path == "" {
		path = "/"
	}
	var version string
	if m := versionSegment.FindStringSubmatch(path); m != nil {
		version = m[1]
		path = m[2]
		if path == "" {
			path = "/"
		}
	}
	if path == "/" {
		return nil, fmt.Errorf("invalid Graph URL %q: no node or edge in path", rawURL)
	}

	endpoint := path
	if parsed.RawQuery != "" {
		endpoint += "?" + parsed.RawQuery
	}

	return &ParsedURL{
		Host:     host,
		Version:  version,
		Endpoint: endpoint,
		Video:    kind.video,
		Beta:     kind.beta,
	}, nil
}

// HasVersion returns true if the URL pinned a Graph API version.
func (p *ParsedURL) HasVersion() bool {
	return p.Version != ""
}
