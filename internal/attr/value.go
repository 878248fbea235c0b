// Package attr models the store's item representation: a recursive tagged
// union whose variants are String, Number, Bool, List, Map and Null.
//
// The variant set is closed. Accessors on Map never fail; they report whether
// the key was present with the expected variant so callers can pick defaults.
package attr

import "strings"

// Value is implemented only by the variants in this package.
type Value interface {
	isValue()
}

// String is a text attribute.
type String string

// Number is a numeric attribute kept as decimal text, the way the store
// transmits it.
type Number string

// Bool is a boolean attribute.
type Bool bool

// List is an ordered sequence of attributes.
type List []Value

// Map is a field name to attribute mapping. A missing key means the field is
// not present, which is distinct from a key holding Null.
type Map map[string]Value

// Null is an explicit null attribute.
type Null struct{}

func (String) isValue() {}
func (Number) isValue() {}
func (Bool) isValue()   {}
func (List) isValue()   {}
func (Map) isValue()    {}
func (Null) isValue()   {}

// Lookup returns the value under key. An exact match wins; otherwise the
// first key equal under Unicode case folding is used.
func (m Map) Lookup(key string) (Value, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

// GetString returns the text under key when it holds a String.
func (m Map) GetString(key string) (string, bool) {
	v, _ := m.Lookup(key)
	s, ok := v.(String)
	return string(s), ok
}

// GetNumber returns the decimal text under key when it holds a Number.
func (m Map) GetNumber(key string) (string, bool) {
	v, _ := m.Lookup(key)
	n, ok := v.(Number)
	return string(n), ok
}

// GetBool returns the flag under key when it holds a Bool.
func (m Map) GetBool(key string) (bool, bool) {
	v, _ := m.Lookup(key)
	b, ok := v.(Bool)
	return bool(b), ok
}

// GetList returns the list under key when it holds a List.
func (m Map) GetList(key string) (List, bool) {
	v, _ := m.Lookup(key)
	l, ok := v.(List)
	return l, ok
}

// GetMap returns the nested map under key when it holds a Map.
func (m Map) GetMap(key string) (Map, bool) {
	v, _ := m.Lookup(key)
	mm, ok := v.(Map)
	return mm, ok
}

// IsNull reports whether key is present and explicitly Null.
func (m Map) IsNull(key string) bool {
	v, ok := m.Lookup(key)
	if !ok {
		return false
	}
	_, null := v.(Null)
	return null
}

// SetString stores s under key unless s is empty.
func (m Map) SetString(key, s string) {
	if s != "" {
		m[key] = String(s)
	}
}
