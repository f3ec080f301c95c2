package leaflink

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"unicode/utf8"
)

var ErrInvalidText = errors.New("text is not valid utf-8")

// Set is an insertion ordered collection deduplicated by full value
// equality. Members are held in their canonical JSON encoding, so two
// Educations differing only in an absent vs empty major are distinct and
// no pointer handed to Insert or returned from Values aliases the set.
type Set[T any] struct {
	index   map[string]struct{}
	members []string
}

// NewSet panics on values Insert would refuse.
func NewSet[T any](values ...T) Set[T] {
	s := Set[T]{}
	for _, v := range values {
		if _, err := s.Insert(v); err != nil {
			panic(fmt.Sprintf("new set: %s", err))
		}
	}
	return s
}

// Insert adds v and reports whether it was not present before. Values
// holding invalid utf-8 text are refused with ErrInvalidText, their
// encoding would not tell them apart.
func (s *Set[T]) Insert(v T) (bool, error) {
	if !validText(reflect.ValueOf(v)) {
		return false, ErrInvalidText
	}
	key := SetKey(v)
	if _, ok := s.index[key]; ok {
		return false, nil
	}
	if s.index == nil {
		s.index = make(map[string]struct{})
	}
	s.index[key] = struct{}{}
	s.members = append(s.members, key)
	return true, nil
}

func (s *Set[T]) Contains(v T) bool {
	_, ok := s.index[SetKey(v)]
	return ok
}

func (s *Set[T]) Len() int {
	return len(s.members)
}

// Values returns fresh copies of the members in insertion order.
func (s *Set[T]) Values() []T {
	values := make([]T, len(s.members))
	for i, member := range s.members {
		if err := json.Unmarshal([]byte(member), &values[i]); err != nil {
			panic(fmt.Sprintf("decode set member %s: %s", member, err))
		}
	}
	return values
}

func (s Set[T]) MarshalJSON() ([]byte, error) {
	raw := make([]json.RawMessage, len(s.members))
	for i, member := range s.members {
		raw[i] = json.RawMessage(member)
	}
	return json.Marshal(raw)
}

func (s *Set[T]) UnmarshalJSON(data []byte) error {
	var values []T
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("unmarshal set values: %w", err)
	}
	decoded := Set[T]{}
	for _, v := range values {
		if _, err := decoded.Insert(v); err != nil {
			return fmt.Errorf("unmarshal set values: %w", err)
		}
	}
	*s = decoded
	return nil
}

// SetKey returns the equality key of a set member.
func SetKey(v interface{}) string {
	bytes, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(bytes)
}

func validText(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return utf8.ValidString(v.String())
	case reflect.Ptr, reflect.Interface:
		return v.IsNil() || validText(v.Elem())
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if !validText(v.Field(i)) {
				return false
			}
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if !validText(v.Index(i)) {
				return false
			}
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			if !validText(iter.Key()) || !validText(iter.Value()) {
				return false
			}
		}
	}
	return true
}
