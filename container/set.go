package container

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"
)

// Set is an insertion-ordered set. The zero value is empty and ready to use.
type Set[T comparable] struct {
	m OrderedMap[T, struct{}]
}

// NewSet returns a set holding values.
func NewSet[T comparable](values ...T) Set[T] {
	var s Set[T]
	for _, v := range values {
		s.Add(v)
	}
	return s
}

// Add inserts v and reports whether it was newly added.
func (s *Set[T]) Add(v T) bool {
	if s.m.Has(v) {
		return false
	}
	s.m.Set(v, struct{}{})
	return true
}

// Remove deletes v and reports whether it was present.
func (s *Set[T]) Remove(v T) bool { return s.m.Delete(v) }

func (s Set[T]) Has(v T) bool { return s.m.Has(v) }

func (s Set[T]) Len() int { return s.m.Len() }

// Values returns the members in insertion order.
func (s Set[T]) Values() []T { return s.m.Keys() }

// All iterates members in insertion order.
func (s Set[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for k := range s.m.All() {
			if !yield(k) {
				return
			}
		}
	}
}

// MarshalJSON encodes the set as a tagged value list.
func (s Set[T]) MarshalJSON() ([]byte, error) {
	values := s.Values()
	return json.Marshal(struct {
		Type   string `json:"__type"`
		Values []T    `json:"values"`
	}{setTag, values})
}

// UnmarshalJSON accepts the tagged form, a plain JSON array or null.
func (s *Set[T]) UnmarshalJSON(data []byte) error {
	s.m = NewOrderedMap[T, struct{}]()
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	var values []T
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &values); err != nil {
			return fmt.Errorf("decode set: %w", err)
		}
	case '{':
		var tagged struct {
			Type   string `json:"__type"`
			Values []T    `json:"values"`
		}
		if err := json.Unmarshal(data, &tagged); err != nil {
			return fmt.Errorf("decode set: %w", err)
		}
		if tagged.Type != setTag {
			return fmt.Errorf("decode set: container tag %q is not %q", tagged.Type, setTag)
		}
		values = tagged.Values
	default:
		return fmt.Errorf("decode set: unexpected JSON %q", firstByte(data))
	}
	for _, v := range values {
		s.Add(v)
	}
	return nil
}
