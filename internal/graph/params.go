package graph

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Params is an ordered set of request parameters. Values are scalars,
// *File, []any, map[string]any or nested *Params.
type Params = Collection[any]

// NewParams returns an empty parameter set.
func NewParams() *Params {
	return NewCollection[any]()
}

// ParamsOf builds Params from alternating key/value pairs, keeping their order.
func ParamsOf(pairs ...any) *Params {
	return ObjectOf(pairs...)
}

// ParamsFromMap builds Params from m with keys sorted.
func ParamsFromMap(m map[string]any) *Params {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	p := NewParams()
	for _, k := range keys {
		p.Set(k, m[k])
	}
	return p
}

// EncodeParams renders params as an application/x-www-form-urlencoded string.
// Nested values use bracket notation (a[0]=x, a[b]=y); nil values are skipped
// and booleans are written as 1/0.
func EncodeParams(p *Params) string {
	var pairs []string
	for k, v := range p.All() {
		pairs = appendEncoded(pairs, k, v)
	}
	return strings.Join(pairs, "&")
}

func appendEncoded(pairs []string, key string, v any) []string {
	switch val := v.(type) {
	case nil:
		return pairs
	case *Params:
		for k, nested := range val.All() {
			pairs = appendEncoded(pairs, key+"["+k+"]", nested)
		}
		return pairs
	case map[string]any:
		return appendEncoded(pairs, key, ParamsFromMap(val))
	case []any:
		for i, nested := range val {
			pairs = appendEncoded(pairs, key+"["+strconv.Itoa(i)+"]", nested)
		}
		return pairs
	case []string:
		for i, nested := range val {
			pairs = appendEncoded(pairs, key+"["+strconv.Itoa(i)+"]", nested)
		}
		return pairs
	case *File:
		return pairs
	default:
		return append(pairs, url.QueryEscape(key)+"="+url.QueryEscape(scalarString(val)))
	}
}

func scalarString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		if val {
			return "1"
		}
		return "0"
	case fmt.Stringer:
		return val.String()
	default:
		if s, ok := toString(val); ok {
			return s
		}
		return fmt.Sprint(val)
	}
}

// ParseQuery parses a query string into ordered Params. Repeated keys keep
// their first position and their last value.
func ParseQuery(query string) *Params {
	p := NewParams()
	for _, part := range strings.Split(query, "&") {
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		k, err := url.QueryUnescape(key)
		if err != nil {
			k = key
		}
		v, err := url.QueryUnescape(value)
		if err != nil {
			v = value
		}
		if k == "" {
			continue
		}
		p.Set(k, v)
	}
	return p
}

// flattenParams returns the key/value pairs EncodeParams would produce,
// decoded, in order. Multipart bodies use it to name nested fields.
func flattenParams(p *Params) [][2]string {
	var out [][2]string
	for _, pair := range strings.Split(EncodeParams(p), "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		dk, _ := url.QueryUnescape(k)
		dv, _ := url.QueryUnescape(v)
		out = append(out, [2]string{dk, dv})
	}
	return out
}
