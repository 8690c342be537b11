package graph

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/mod/semver"
)

// DefaultGraphVersion is used when no version is configured.
const DefaultGraphVersion = "v12.0"

var versionPattern = regexp.MustCompile(`^v\d+\.\d+$`)

// ValidateVersion checks that v looks like "v12.0".
func ValidateVersion(v string) error {
	if !versionPattern.MatchString(v) || !semver.IsValid(v) {
		return &ConfigurationError{Message: fmt.Sprintf("invalid Graph API version %q: must start with the letter \"v\" followed by a version number, e.g. %q", v, DefaultGraphVersion)}
	}
	return nil
}

// NormalizeVersion adds a missing "v" prefix and falls back to the default.
func NormalizeVersion(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return DefaultGraphVersion
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

// CompareVersions returns -1, 0 or +1 like semver.Compare.
func CompareVersions(a, b string) int {
	return semver.Compare(a, b)
}
