package cef

import (
	"iter"
	"maps"
	"slices"
)

// Field is a single key/value pair.
type Field struct {
	Key   string
	Value string
}

// Fields is an ordered string mapping. Keys are unique and iterate in the
// order they were first set; setting an existing key replaces its value in
// place. The zero value is empty and ready to use.
type Fields struct {
	keys   []string
	values map[string]string
}

// NewFields builds Fields from pairs, last value winning on duplicate keys.
func NewFields(pairs ...Field) Fields {
	var f Fields
	for _, p := range pairs {
		f.set(p.Key, p.Value)
	}
	return f
}

// Len returns the number of keys.
func (f Fields) Len() int {
	return len(f.keys)
}

// Get returns the value stored under key.
func (f Fields) Get(key string) (string, bool) {
	v, ok := f.values[key]
	return v, ok
}

// Keys returns the keys in iteration order.
func (f Fields) Keys() []string {
	return slices.Clone(f.keys)
}

// All iterates over the pairs in order.
func (f Fields) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, k := range f.keys {
			if !yield(k, f.values[k]) {
				return
			}
		}
	}
}

// Slice returns the pairs in order.
func (f Fields) Slice() []Field {
	out := make([]Field, 0, len(f.keys))
	for k, v := range f.All() {
		out = append(out, Field{Key: k, Value: v})
	}
	return out
}

// Map returns an unordered copy of the pairs.
func (f Fields) Map() map[string]string {
	if f.values == nil {
		return map[string]string{}
	}
	return maps.Clone(f.values)
}

func (f *Fields) set(key, value string) {
	if f.values == nil {
		f.values = make(map[string]string)
	}
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
}

func (f Fields) clone() Fields {
	return Fields{keys: slices.Clone(f.keys), values: maps.Clone(f.values)}
}
