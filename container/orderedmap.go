// Package container provides the insertion-ordered map and set types used in
// the game state tree. Both serialize to tagged JSON so they survive a
// save/load round trip with their entry order intact:
//
//	{"__type":"Map","entries":[[key,value],...]}
//	{"__type":"Set","values":[...]}
package container

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const (
	mapTag = "Map"
	setTag = "Set"
)

// OrderedMap is an insertion-ordered map. The zero value is an empty map
// ready to use. Copying an OrderedMap shares its storage; state snapshots are
// taken with a deep clone of the whole tree, not by copying values.
type OrderedMap[K comparable, V any] struct {
	m *orderedmap.OrderedMap[K, V]
}

// NewOrderedMap returns an empty map.
func NewOrderedMap[K comparable, V any]() OrderedMap[K, V] {
	return OrderedMap[K, V]{m: orderedmap.New[K, V]()}
}

func (o *OrderedMap[K, V]) lazy() {
	if o.m == nil {
		o.m = orderedmap.New[K, V]()
	}
}

// Get returns the value stored under key.
func (o OrderedMap[K, V]) Get(key K) (V, bool) {
	if o.m == nil {
		var zero V
		return zero, false
	}
	return o.m.Get(key)
}

// Value returns the value under key or the zero value.
func (o OrderedMap[K, V]) Value(key K) V {
	v, _ := o.Get(key)
	return v
}

// Has reports whether key is present.
func (o OrderedMap[K, V]) Has(key K) bool {
	_, ok := o.Get(key)
	return ok
}

// Set stores value under key. An existing key keeps its position.
func (o *OrderedMap[K, V]) Set(key K, value V) {
	o.lazy()
	o.m.Set(key, value)
}

// Delete removes key and reports whether it was present.
func (o *OrderedMap[K, V]) Delete(key K) bool {
	if o.m == nil {
		return false
	}
	_, ok := o.m.Delete(key)
	return ok
}

// Len returns the number of entries.
func (o OrderedMap[K, V]) Len() int {
	if o.m == nil {
		return 0
	}
	return o.m.Len()
}

// Keys returns the keys in insertion order.
func (o OrderedMap[K, V]) Keys() []K {
	keys := make([]K, 0, o.Len())
	for k := range o.All() {
		keys = append(keys, k)
	}
	return keys
}

// All iterates entries in insertion order. Deleting entries while iterating
// is not supported; collect Keys first.
func (o OrderedMap[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		if o.m == nil {
			return
		}
		for p := o.m.Oldest(); p != nil; p = p.Next() {
			if !yield(p.Key, p.Value) {
				return
			}
		}
	}
}

// MarshalJSON encodes the map as a tagged entry list.
func (o OrderedMap[K, V]) MarshalJSON() ([]byte, error) {
	entries := make([][2]json.RawMessage, 0, o.Len())
	for k, v := range o.All() {
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("marshal map key: %w", err)
		}
		vb, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal map value for %s: %w", kb, err)
		}
		entries = append(entries, [2]json.RawMessage{kb, vb})
	}
	return json.Marshal(struct {
		Type    string               `json:"__type"`
		Entries [][2]json.RawMessage `json:"entries"`
	}{mapTag, entries})
}

// UnmarshalJSON accepts the tagged form, a bare entry list, a plain JSON
// object (string keys only, order preserved) or null.
func (o *OrderedMap[K, V]) UnmarshalJSON(data []byte) error {
	o.m = orderedmap.New[K, V]()
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch data[0] {
	case '[':
		var entries [][2]json.RawMessage
		if err := json.Unmarshal(data, &entries); err != nil {
			return fmt.Errorf("decode map entries: %w", err)
		}
		return o.setEntries(entries)
	case '{':
	default:
		return fmt.Errorf("decode map: unexpected JSON %q", firstByte(data))
	}

	var probe struct {
		Type    string               `json:"__type"`
		Entries [][2]json.RawMessage `json:"entries"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("decode map: %w", err)
	}
	switch probe.Type {
	case mapTag:
		return o.setEntries(probe.Entries)
	case "":
		return o.decodeObject(data)
	default:
		return fmt.Errorf("decode map: container tag %q is not %q", probe.Type, mapTag)
	}
}

func (o *OrderedMap[K, V]) setEntries(entries [][2]json.RawMessage) error {
	for _, e := range entries {
		var k K
		if err := json.Unmarshal(e[0], &k); err != nil {
			return fmt.Errorf("decode map key %s: %w", e[0], err)
		}
		var v V
		if err := json.Unmarshal(e[1], &v); err != nil {
			return fmt.Errorf("decode map value for %s: %w", e[0], err)
		}
		o.m.Set(k, v)
	}
	return nil
}

func (o *OrderedMap[K, V]) decodeObject(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return err
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)
		quoted, err := json.Marshal(name)
		if err != nil {
			return err
		}
		var k K
		if err := json.Unmarshal(quoted, &k); err != nil {
			return fmt.Errorf("decode map key %q: %w", name, err)
		}
		var v V
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("decode map value for %q: %w", name, err)
		}
		o.m.Set(k, v)
	}
	return nil
}

func firstByte(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	return string(data[:1])
}
