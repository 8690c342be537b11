package graph

import (
	"net"
	"net/http"
	"regexp"
	"strings"
)

var (
	hostnameChars  = regexp.MustCompile(`(?i)^([a-z\d](-*[a-z\d])*)(\.([a-z\d](-*[a-z\d])*))*$`)
	hostnameLabels = regexp.MustCompile(`^[^.]{1,63}(\.[^.]{1,63})*$`)
	trailingPort   = regexp.MustCompile(`:\d+$`)
)

// CurrentURL reconstructs the URL r was sent to, honoring the
// X-Forwarded-Proto, X-Forwarded-Host and X-Forwarded-Port headers set by
// proxies. Login callbacks use it as the redirect URL.
func CurrentURL(r *http.Request) string {
	scheme := "http"
	if behindSSL(r) {
		scheme = "https"
	}
	return scheme + "://" + currentHost(r, scheme) + r.URL.RequestURI()
}

func behindSSL(r *http.Request) bool {
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" && proto != "0" {
		return activeSSL(proto)
	}
	if r.TLS != nil {
		return true
	}
	return currentPort(r) == "443"
}

func activeSSL(proto string) bool {
	switch strings.ToLower(proto) {
	case "on", "1", "https", "ssl":
		return true
	default:
		return false
	}
}

func currentHost(r *http.Request, scheme string) string {
	var host string
	if fwd := r.Header.Get("X-Forwarded-Host"); fwd != "" && validForwardedHost(fwd) {
		parts := strings.Split(fwd, ",")
		host = parts[len(parts)-1]
	} else {
		host = r.Host
	}
	host = strings.ToLower(trailingPort.ReplaceAllString(strings.TrimSpace(host), ""))

	port := currentPort(r)
	if port == "" || (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		return host
	}
	return host + ":" + port
}

func currentPort(r *http.Request) string {
	if port := r.Header.Get("X-Forwarded-Port"); port != "" && port != "0" {
		return port
	}
	if r.Header.Get("X-Forwarded-Proto") == "https" {
		return "443"
	}
	if _, port, err := net.SplitHostPort(r.Host); err == nil {
		return port
	}
	if r.TLS != nil {
		return "443"
	}
	return "80"
}

func validForwardedHost(header string) bool {
	parts := strings.Split(header, ",")
	host := strings.TrimSpace(parts[len(parts)-1])
	return hostnameChars.MatchString(host) &&
		len(host) > 0 && len(host) < 254 &&
		hostnameLabels.MatchString(host)
}
