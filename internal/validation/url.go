// Package validation checks the URLs the CLI sends tokens to or asks Graph to
// redirect to.
//
// ValidateBaseURL guards the GRAPH_BASE_URL override, which receives every
// access token and app secret proof. Loopback hosts are allowed so a local
// proxy or recorder can sit in front of Graph; other private ranges need
// GRAPH_ALLOW_PRIVATE (any value strconv.ParseBool accepts) or
// SetAllowPrivate(true). Cloud metadata endpoints are always blocked.
//
// ValidateRedirectURL checks an OAuth redirect URL before a login URL is
// built from it.
package validation

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// EnvAllowPrivate enables private network base URLs.
const EnvAllowPrivate = "GRAPH_ALLOW_PRIVATE"

var allowPrivate atomic.Bool

// privateNetworks holds the reserved ranges a base URL may not point into.
var privateNetworks []*net.IPNet

func init() {
	v, _ := strconv.ParseBool(strings.TrimSpace(os.Getenv(EnvAllowPrivate)))
	allowPrivate.Store(v)

	privateCIDRs := []string{
		"10.0.0.0/8",      // RFC1918
		"172.16.0.0/12",   // RFC1918
		"192.168.0.0/16",  // RFC1918
		"100.64.0.0/10",   // RFC6598
		"169.254.0.0/16",  // RFC3927 link local
		"192.0.0.0/24",    // RFC6890
		"192.0.2.0/24",    // RFC5737
		"198.18.0.0/15",   // RFC2544
		"198.51.100.0/24", // RFC5737
		"203.0.113.0/24",  // RFC5737
		"240.0.0.0/4",     // RFC1112
		"fc00::/7",        // RFC4193
		"fe80::/10",       // RFC4291 link local
		"ff00::/8",        // RFC4291 multicast
		"100::/64",        // RFC6666
		"2001::/32",       // RFC4380
		"2001:10::/28",    // RFC4843
		"2001:db8::/32",   // RFC3849
	}

	privateNetworks = make([]*net.IPNet, 0, len(privateCIDRs))
	for _, cidr := range privateCIDRs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			continue
		}
		privateNetworks = append(privateNetworks, network)
	}
}

// SetAllowPrivate enables or disables private network base URLs. Cloud
// metadata endpoints stay blocked either way.
func SetAllowPrivate(enabled bool) {
	allowPrivate.Store(enabled)
}

// AllowPrivateEnabled reports whether private network base URLs are allowed.
func AllowPrivateEnabled() bool {
	return allowPrivate.Load()
}

// ValidateBaseURL checks a replacement for the Graph hosts. It must be an
// http(s) origin with an optional path and no query, fragment or user info.
func ValidateBaseURL(rawURL string) error {
	u, err := parseHTTPURL(rawURL)
	if err != nil {
		return err
	}
	if u.User != nil {
		return fmt.Errorf("base URL must not contain user info")
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("base URL must not contain a query or fragment")
	}

	hostname := u.Hostname()
	if isCloudMetadata(hostname) {
		return fmt.Errorf("cloud metadata endpoints are not allowed")
	}
	if isLocalhost(hostname) {
		return nil
	}
	if ip := net.ParseIP(hostname); ip != nil {
		return validateIPAddress(ip)
	}
	return validateDomainName(hostname)
}

// ValidateRedirectURL checks an OAuth redirect URL. Plain http is only
// accepted for loopback hosts.
func ValidateRedirectURL(rawURL string) error {
	u, err := parseHTTPURL(rawURL)
	if err != nil {
		return err
	}
	if u.Fragment != "" {
		return fmt.Errorf("redirect URL must not contain a fragment")
	}
	if u.Scheme == "http" && !isLocalhost(u.Hostname()) {
		return fmt.Errorf("redirect URL must use https unless it points at localhost")
	}
	return nil
}

func parseHTTPURL(rawURL string) (*url.URL, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("URL cannot be empty")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid URL scheme: only http and https are allowed, got %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("URL must contain a hostname")
	}
	return u, nil
}

func isLocalhost(hostname string) bool {
	lowercase := strings.ToLower(hostname)
	if lowercase == "localhost" || strings.HasSuffix(lowercase, ".localhost") {
		return true
	}
	ip := net.ParseIP(hostname)
	return ip != nil && ip.IsLoopback()
}

func isCloudMetadata(hostname string) bool {
	lowercase := strings.ToLower(hostname)
	switch lowercase {
	case "169.254.169.254", "metadata.google.internal", "metadata", "instance-data", "fd00:ec2::254":
		return true
	}
	return strings.HasSuffix(lowercase, ".metadata.google.internal")
}

func validateIPAddress(ip net.IP) error {
	if ip.String() == "169.254.169.254" {
		return fmt.Errorf("cloud metadata IP address is not allowed")
	}
	if ip.IsUnspecified() {
		return fmt.Errorf("unspecified IP addresses are not allowed")
	}
	if ip.IsLoopback() {
		return nil
	}
	if ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return fmt.Errorf("link-local IP addresses are not allowed")
	}
	if !allowPrivate.Load() && isPrivateIP(ip) {
		return fmt.Errorf("private IP addresses are not allowed (set %s=1 to allow)", EnvAllowPrivate)
	}
	return nil
}

func isPrivateIP(ip net.IP) bool {
	for _, network := range privateNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// validateDomainName resolves hostname and checks every address. Names that
// do not resolve are let through.
func validateDomainName(hostname string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ips, err := (&net.Resolver{}).LookupIP(ctx, "ip", hostname)
	if err != nil {
		return nil
	}
	for _, ip := range ips {
		if err := validateIPAddress(ip); err != nil {
			return fmt.Errorf("domain %q resolves to forbidden IP %s: %w", hostname, ip.String(), err)
		}
	}
	return nil
}
