package graph

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
)

var graphURLPrefix = regexp.MustCompile(`^https?://[^/]+(/v\d+\.\d+)?/`)

// RemoveParamsFromURL drops the named query params from rawURL. The order of
// the surviving params is preserved.
func RemoveParamsFromURL(rawURL string, names ...string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.RawQuery == "" {
		return rawURL
	}
	params := ParseQuery(u.RawQuery)
	for _, name := range names {
		params.Delete(name)
	}

	var b strings.Builder
	if u.Scheme != "" {
		b.WriteString(u.Scheme)
		b.WriteString("://")
	}
	b.WriteString(u.Host)
	b.WriteString(u.EscapedPath())
	if params.Len() > 0 {
		b.WriteByte('?')
		b.WriteString(EncodeParams(params))
	}
	if u.Fragment != "" {
		b.WriteByte('#')
		b.WriteString(u.EscapedFragment())
	}
	return b.String()
}

// AppendParamsToURL adds params to rawURL. When rawURL has no query the
// params keep their order; otherwise params already in the URL win and the
// merged set is sorted by key.
func AppendParamsToURL(rawURL string, params *Params) string {
	if params.Len() == 0 {
		return rawURL
	}
	path, query, ok := strings.Cut(rawURL, "?")
	if !ok {
		return rawURL + "?" + EncodeParams(params)
	}

	merged := params.Clone()
	merged.Merge(ParseQuery(query))
	return path + "?" + EncodeParams(sortParams(merged))
}

// ParamsFromURL returns the query params of rawURL, or an empty set.
func ParamsFromURL(rawURL string) *Params {
	_, query, ok := strings.Cut(rawURL, "?")
	if !ok {
		return NewParams()
	}
	query, _, _ = strings.Cut(query, "#")
	return ParseQuery(query)
}

// MergeURLParams copies the query params of from onto to; params already in
// to win.
func MergeURLParams(from, to string) string {
	params := ParamsFromURL(from)
	if params.Len() == 0 {
		return to
	}
	return AppendParamsToURL(to, params)
}

// ForceSlashPrefix ensures s starts with "/". Empty input stays empty.
func ForceSlashPrefix(s string) string {
	if s == "" {
		return s
	}
	return "/" + strings.TrimLeft(s, "/")
}

// BaseGraphURLEndpoint strips the scheme, host and version segment from an
// absolute Graph URL, leaving "/id/edge?...".
func BaseGraphURLEndpoint(rawURL string) string {
	if loc := graphURLPrefix.FindStringIndex(rawURL); loc != nil {
		return "/" + rawURL[loc[1]:]
	}
	return ForceSlashPrefix(rawURL)
}

func sortParams(p *Params) *Params {
	keys := p.Keys()
	sort.Strings(keys)
	out := NewParams()
	for _, k := range keys {
		v, _ := p.Get(k)
		out.Set(k, v)
	}
	return out
}
