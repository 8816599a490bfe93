// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package host

// Settings is a typed key/value store for filter configuration. Reads
// fall back to registered defaults, then to zero values. The host owns
// persistence; the filter only reads and writes typed scalars.
type Settings interface {
	// String returns the string stored under key.
	String(key string) string

	// SetString stores a string under key.
	SetString(key, value string)

	// Float returns the float stored under key.
	Float(key string) float64

	// SetFloat stores a float under key.
	SetFloat(key string, value float64)

	// Int returns the integer stored under key.
	Int(key string) int64

	// SetInt stores an integer under key.
	SetInt(key string, value int64)

	// SetDefaultString registers the fallback string for key.
	SetDefaultString(key, value string)

	// SetDefaultFloat registers the fallback float for key.
	SetDefaultFloat(key string, value float64)

	// SetDefaultInt registers the fallback integer for key.
	SetDefaultInt(key string, value int64)
}

// MapSettings is an in-memory Settings implementation used in tests and
// by hosts that keep configuration in their own stores.
type MapSettings struct {
	values   map[string]any
	defaults map[string]any
}

// NewMapSettings creates an empty in-memory settings store.
func NewMapSettings() *MapSettings {
	return &MapSettings{
		values:   make(map[string]any),
		defaults: make(map[string]any),
	}
}

func (s *MapSettings) lookup(key string) (any, bool) {
	if v, ok := s.values[key]; ok {
		return v, true
	}
	if v, ok := s.defaults[key]; ok {
		return v, true
	}
	return nil, false
}

// String returns the string stored under key.
func (s *MapSettings) String(key string) string {
	if v, ok := s.lookup(key); ok {
		if str, ok := v.(string); ok {
			return str
		}
	}
	return ""
}

// SetString stores a string under key.
func (s *MapSettings) SetString(key, value string) { s.values[key] = value }

// Float returns the float stored under key.
func (s *MapSettings) Float(key string) float64 {
	if v, ok := s.lookup(key); ok {
		if f, ok := v.(float64); ok {
			return f
		}
	}
	return 0
}

// SetFloat stores a float under key.
func (s *MapSettings) SetFloat(key string, value float64) { s.values[key] = value }

// Int returns the integer stored under key.
func (s *MapSettings) Int(key string) int64 {
	if v, ok := s.lookup(key); ok {
		if i, ok := v.(int64); ok {
			return i
		}
	}
	return 0
}

// SetInt stores an integer under key.
func (s *MapSettings) SetInt(key string, value int64) { s.values[key] = value }

// SetDefaultString registers the fallback string for key.
func (s *MapSettings) SetDefaultString(key, value string) { s.defaults[key] = value }

// SetDefaultFloat registers the fallback float for key.
func (s *MapSettings) SetDefaultFloat(key string, value float64) { s.defaults[key] = value }

// SetDefaultInt registers the fallback integer for key.
func (s *MapSettings) SetDefaultInt(key string, value int64) { s.defaults[key] = value }

var _ Settings = (*MapSettings)(nil)
