package graph

import (
	"bytes"
	"encoding/json"
	"iter"
	"slices"
	"strconv"
)

// Collection is an insertion-ordered mapping from string keys to values.
// Positional entries use their decimal index as key ("0", "1", ...).
type Collection[V any] struct {
	keys   []string
	values map[string]V
}

// NewCollection returns an empty collection.
func NewCollection[V any]() *Collection[V] {
	return &Collection[V]{values: make(map[string]V)}
}

// CollectionFromSlice builds a collection keyed by position.
func CollectionFromSlice[V any](items []V) *Collection[V] {
	c := NewCollection[V]()
	for i, item := range items {
		c.Set(strconv.Itoa(i), item)
	}
	return c
}

// Set stores v under key. An existing key keeps its position.
func (c *Collection[V]) Set(key string, v V) {
	if c.values == nil {
		c.values = make(map[string]V)
	}
	if _, ok := c.values[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.values[key] = v
}

// Append stores v under the next free positional key.
func (c *Collection[V]) Append(v V) {
	next := 0
	for _, k := range c.keys {
		if n, err := strconv.Atoi(k); err == nil && n >= next {
			next = n + 1
		}
	}
	c.Set(strconv.Itoa(next), v)
}

// Get returns the value stored under key.
func (c *Collection[V]) Get(key string) (V, bool) {
	if c == nil {
		var zero V
		return zero, false
	}
	v, ok := c.values[key]
	return v, ok
}

// Has reports whether key is present.
func (c *Collection[V]) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Delete removes key if present.
func (c *Collection[V]) Delete(key string) {
	if c == nil {
		return
	}
	if _, ok := c.values[key]; !ok {
		return
	}
	delete(c.values, key)
	c.keys = slices.DeleteFunc(c.keys, func(k string) bool { return k == key })
}

// Len returns the number of entries.
func (c *Collection[V]) Len() int {
	if c == nil {
		return 0
	}
	return len(c.keys)
}

// Keys returns a copy of the keys in insertion order.
func (c *Collection[V]) Keys() []string {
	if c == nil {
		return nil
	}
	return slices.Clone(c.keys)
}

// Values returns the values in insertion order.
func (c *Collection[V]) Values() []V {
	if c == nil {
		return nil
	}
	out := make([]V, 0, len(c.keys))
	for _, k := range c.keys {
		out = append(out, c.values[k])
	}
	return out
}

// At returns the entry at position i.
func (c *Collection[V]) At(i int) (string, V, bool) {
	if c == nil || i < 0 || i >= len(c.keys) {
		var zero V
		return "", zero, false
	}
	k := c.keys[i]
	return k, c.values[k], true
}

// All iterates over the entries in insertion order.
func (c *Collection[V]) All() iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		if c == nil {
			return
		}
		for _, k := range c.keys {
			if !yield(k, c.values[k]) {
				return
			}
		}
	}
}

// Clone returns a copy that shares no key storage with c. Values are copied
// shallowly except nested *Object values, which are cloned recursively.
func (c *Collection[V]) Clone() *Collection[V] {
	out := NewCollection[V]()
	if c == nil {
		return out
	}
	for _, k := range c.keys {
		v := c.values[k]
		if nested, ok := any(v).(*Object); ok {
			if cloned, ok := any(nested.Clone()).(V); ok {
				v = cloned
			}
		}
		out.Set(k, v)
	}
	return out
}

// Merge copies every entry of other into c; other wins on conflicts.
func (c *Collection[V]) Merge(other *Collection[V]) {
	for k, v := range other.All() {
		c.Set(k, v)
	}
}

// IsSequential reports whether the keys are exactly "0".."n-1" in order.
// An empty collection is sequential.
func (c *Collection[V]) IsSequential() bool {
	for i, k := range c.Keys() {
		if k != strconv.Itoa(i) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the collection as a JSON object in insertion order.
func (c *Collection[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range c.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(c.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Object is a decoded JSON object with its key order preserved.
type Object = Collection[any]

// NewObject returns an empty Object.
func NewObject() *Object {
	return NewCollection[any]()
}

// ObjectOf builds an Object from alternating key/value pairs.
func ObjectOf(pairs ...any) *Object {
	o := NewObject()
	for i := 0; i+1 < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			continue
		}
		o.Set(key, pairs[i+1])
	}
	return o
}
