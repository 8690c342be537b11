package graph

import (
	"encoding/json"
	"iter"
)

// Direction selects a page relative to the current one.
type Direction string

const (
	DirectionNext     Direction = "next"
	DirectionPrevious Direction = "previous"
)

// ParseDirection accepts "next" and "previous".
func ParseDirection(s string) (Direction, bool) {
	switch Direction(s) {
	case DirectionNext, DirectionPrevious:
		return Direction(s), true
	default:
		return "", false
	}
}

// Edge is a page of a Graph list. Items are *Node values, or scalars when
// the list held scalars. An Edge is never modified after decoding.
type Edge struct {
	request        *Request
	items          []any
	meta           *Object
	parentEndpoint string
	nodeType       string
}

func (*Edge) isShape() {}

// Request returns the request that produced the edge.
func (e *Edge) Request() *Request { return e.request }

// MetaData returns everything in the payload except "data".
func (e *Edge) MetaData() *Object { return e.meta }

// ParentEndpoint returns "/{node id}/{field}" for nested edges, or "".
func (e *Edge) ParentEndpoint() string { return e.parentEndpoint }

// NodeType returns the type the items were decoded as.
func (e *Edge) NodeType() string { return e.nodeType }

func (e *Edge) Len() int { return len(e.items) }

// Items returns a copy of the items.
func (e *Edge) Items() []any {
	out := make([]any, len(e.items))
	copy(out, e.items)
	return out
}

// At returns the item at index i.
func (e *Edge) At(i int) (any, bool) {
	if i < 0 || i >= len(e.items) {
		return nil, false
	}
	return e.items[i], true
}

// FieldOr returns the item at index i, or def.
func (e *Edge) FieldOr(i int, def any) any {
	if v, ok := e.At(i); ok && v != nil {
		return v
	}
	return def
}

// Node returns the item at index i when it is a node.
func (e *Edge) Node(i int) (*Node, bool) {
	v, _ := e.At(i)
	n, ok := v.(*Node)
	return n, ok
}

// Nodes returns the node items.
func (e *Edge) Nodes() []*Node {
	out := make([]*Node, 0, len(e.items))
	for _, v := range e.items {
		if n, ok := v.(*Node); ok {
			out = append(out, n)
		}
	}
	return out
}

// All iterates over the items in order.
func (e *Edge) All() iter.Seq2[int, any] {
	return func(yield func(int, any) bool) {
		for i, v := range e.items {
			if !yield(i, v) {
				return
			}
		}
	}
}

// Map returns a new edge with fn applied to every item.
func (e *Edge) Map(fn func(i int, item any) any) *Edge {
	items := make([]any, len(e.items))
	for i, v := range e.items {
		items[i] = fn(i, v)
	}
	return &Edge{
		request:        e.request,
		items:          items,
		meta:           e.meta,
		parentEndpoint: e.parentEndpoint,
		nodeType:       e.nodeType,
	}
}

// Value returns the items as plain ordered data.
func (e *Edge) Value() any {
	out := make([]any, len(e.items))
	for i, v := range e.items {
		out[i] = plainValue(v)
	}
	return out
}

func (e *Edge) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Value())
}

// Cursor returns paging.cursors.{after|before}.
func (e *Edge) Cursor(name string) (string, bool) {
	v, ok := lookupPath(e.meta, "paging", "cursors", name)
	if !ok || v == nil {
		return "", false
	}
	return toString(v)
}

// NextCursor returns the "after" cursor.
func (e *Edge) NextCursor() (string, bool) { return e.Cursor("after") }

// PreviousCursor returns the "before" cursor.
func (e *Edge) PreviousCursor() (string, bool) { return e.Cursor("before") }

// ValidateForPagination fails unless the edge came from a GET request.
func (e *Edge) ValidateForPagination() error {
	if e.request == nil || e.request.Method() != "GET" {
		var method string
		if e.request != nil {
			method = e.request.Method()
		}
		return &PaginationError{Method: method}
	}
	return nil
}

// PaginationURL returns the endpoint of the page in direction, relative to
// the Graph host and version. ok is false when there is no such page.
func (e *Edge) PaginationURL(direction Direction) (string, bool, error) {
	if err := e.ValidateForPagination(); err != nil {
		return "", false, err
	}
	v, ok := lookupPath(e.meta, "paging", string(direction))
	if !ok || v == nil {
		return "", false, nil
	}
	pageURL, ok := v.(string)
	if !ok {
		return "", false, nil
	}
	return BaseGraphURLEndpoint(pageURL), true, nil
}

// PaginationRequest returns a copy of the originating request pointed at the
// page in direction, or nil when there is no such page.
func (e *Edge) PaginationRequest(direction Direction) (*Request, error) {
	pageURL, ok, err := e.PaginationURL(direction)
	if err != nil || !ok {
		return nil, err
	}
	req := e.request.Clone()
	if err := req.SetEndpoint(pageURL); err != nil {
		return nil, err
	}
	return req, nil
}

// NextPageRequest is PaginationRequest(DirectionNext).
func (e *Edge) NextPageRequest() (*Request, error) {
	return e.PaginationRequest(DirectionNext)
}

// PreviousPageRequest is PaginationRequest(DirectionPrevious).
func (e *Edge) PreviousPageRequest() (*Request, error) {
	return e.PaginationRequest(DirectionPrevious)
}

// TotalCount returns summary.total_count when the request asked for a
// summary.
func (e *Edge) TotalCount() (int, bool) {
	v, ok := lookupPath(e.meta, "summary", "total_count")
	if !ok || v == nil {
		return 0, false
	}
	return toInt(v)
}
