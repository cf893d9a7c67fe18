package types

import "strings"

// Hash is an insertion-ordered map of values to values.
type Hash struct {
	keys   []Value
	values map[string]Value
	index  map[string]int
}

// NewHashValue creates an empty hash.
func NewHashValue() *Hash {
	return &Hash{
		values: make(map[string]Value),
		index:  make(map[string]int),
	}
}

// Get retrieves the value for a key.
func (h *Hash) Get(key Value) (Value, bool) {
	v, ok := h.values[key.Key()]
	return v, ok
}

// Set adds or replaces a key-value pair, preserving the key's original
// insertion position on replacement.
func (h *Hash) Set(key, value Value) {
	k := key.Key()
	if _, exists := h.values[k]; !exists {
		h.index[k] = len(h.keys)
		h.keys = append(h.keys, key)
	}
	h.values[k] = value
}

// Delete removes a key.
func (h *Hash) Delete(key Value) {
	k := key.Key()
	i, exists := h.index[k]
	if !exists {
		return
	}
	delete(h.values, k)
	delete(h.index, k)
	h.keys = append(h.keys[:i], h.keys[i+1:]...)
	for j := i; j < len(h.keys); j++ {
		h.index[h.keys[j].Key()] = j
	}
}

// Len returns the number of entries.
func (h *Hash) Len() int { return len(h.keys) }

// Each iterates entries in insertion order until fn returns false.
func (h *Hash) Each(fn func(key, value Value) bool) {
	for _, k := range h.keys {
		if !fn(k, h.values[k.Key()]) {
			return
		}
	}
}

// Keys returns the keys in insertion order.
func (h *Hash) Keys() []Value {
	out := make([]Value, len(h.keys))
	copy(out, h.keys)
	return out
}

// Clone creates a deep copy.
func (h *Hash) Clone() *Hash {
	c := NewHashValue()
	h.Each(func(k, v Value) bool {
		c.Set(k, v.Clone())
		return true
	})
	return c
}

// Merge returns a copy of h with all entries of other set over it (the
// right side wins).
func (h *Hash) Merge(other *Hash) *Hash {
	c := h.Clone()
	other.Each(func(k, v Value) bool {
		c.Set(k, v)
		return true
	})
	return c
}

// Equals tests deep equality independent of insertion order.
func (h *Hash) Equals(other *Hash) bool {
	if h.Len() != other.Len() {
		return false
	}
	equal := true
	h.Each(func(k, v Value) bool {
		ov, ok := other.Get(k)
		if !ok || !v.Equals(ov) {
			equal = false
			return false
		}
		return true
	})
	return equal
}

// String renders the hash in source-like form.
func (h *Hash) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	first := true
	h.Each(func(k, v Value) bool {
		if !first {
			sb.WriteString(", ")
		}
		first = false
		sb.WriteString(k.String())
		sb.WriteString(" => ")
		sb.WriteString(v.String())
		return true
	})
	sb.WriteByte('}')
	return sb.String()
}
