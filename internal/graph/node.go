package graph

import (
	"encoding/json"
	"iter"
	"time"
)

// Shape is the result of decoding a Graph payload: a *Node or an *Edge.
type Shape interface {
	isShape()
	// Value returns the shape as plain ordered data.
	Value() any
}

// Node is a single Graph object. Nested objects are *Node, nested lists are
// *Edge, everything else is kept as decoded.
type Node struct {
	fields   *Object
	typeName string
}

func (*Node) isShape() {}

func newNode(fields *Object, typeName string) *Node {
	return &Node{fields: fields, typeName: typeName}
}

// TypeName returns the node type the node was decoded as.
func (n *Node) TypeName() string { return n.typeName }

// Field returns the named field.
func (n *Node) Field(name string) (any, bool) {
	return n.fields.Get(name)
}

// FieldOr returns the named field, or def when it is missing or null.
func (n *Node) FieldOr(name string, def any) any {
	if v, ok := n.fields.Get(name); ok && v != nil {
		return v
	}
	return def
}

// StringField returns a scalar field rendered as a string, or "".
func (n *Node) StringField(name string) string {
	v, _ := n.fields.Get(name)
	s, _ := toString(v)
	return s
}

// Time returns a date field decoded as time.Time.
func (n *Node) Time(name string) (time.Time, bool) {
	v, _ := n.fields.Get(name)
	t, ok := v.(time.Time)
	return t, ok
}

// Child returns a nested node field.
func (n *Node) Child(name string) (*Node, bool) {
	v, _ := n.fields.Get(name)
	c, ok := v.(*Node)
	return c, ok
}

// Edge returns a nested edge field.
func (n *Node) Edge(name string) (*Edge, bool) {
	v, _ := n.fields.Get(name)
	e, ok := v.(*Edge)
	return e, ok
}

// FieldNames returns the field names in order.
func (n *Node) FieldNames() []string { return n.fields.Keys() }

func (n *Node) Len() int { return n.fields.Len() }

// All iterates over the fields in order.
func (n *Node) All() iter.Seq2[string, any] { return n.fields.All() }

// Value returns the fields as an *Object with nested shapes flattened.
func (n *Node) Value() any {
	out := NewObject()
	for k, v := range n.fields.All() {
		out.Set(k, plainValue(v))
	}
	return out
}

func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.Value())
}

func plainValue(v any) any {
	if s, ok := v.(Shape); ok {
		return s.Value()
	}
	return v
}
