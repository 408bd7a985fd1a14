// Package property implements the key/value configuration bags handed to
// algorithm constructors.
//
// List maps stable string keys to numeric values; StringList maps keys to
// strings. Unlike a plain map, both distinguish "absent" from "explicitly
// zero": Lookup reports presence, and the Float/Int/String helpers only fall
// back to the supplied default when the key is absent.
package property

import "math"

// List is a numeric property bag.
type List map[string]float64

// StringList is a string property bag (file-header metadata, paths).
type StringList map[string]string

// Set stores v under key, allocating the map on first use.
func (p *List) Set(key string, v float64) {
	if *p == nil {
		*p = make(List)
	}
	(*p)[key] = v
}

// Lookup returns the value under key and whether the key is present.
func (p List) Lookup(key string) (float64, bool) {
	v, ok := p[key]
	return v, ok
}

// Has reports whether key is present, regardless of its value.
func (p List) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Float returns the value under key, or def when absent.
func (p List) Float(key string, def float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}

	return def
}

// Int returns the value under key truncated toward zero, or def when absent.
func (p List) Int(key string, def int) int {
	if v, ok := p[key]; ok {
		return int(math.Trunc(v))
	}

	return def
}

// Clone returns an independent copy.
func (p List) Clone() List {
	out := make(List, len(p))
	var k string
	var v float64
	for k, v = range p {
		out[k] = v
	}

	return out
}

// Merge returns a copy of p overlaid with o (o wins on conflicts).
func (p List) Merge(o List) List {
	out := p.Clone()
	var k string
	var v float64
	for k, v = range o {
		out[k] = v
	}

	return out
}

// Set stores v under key, allocating the map on first use.
func (p *StringList) Set(key, v string) {
	if *p == nil {
		*p = make(StringList)
	}
	(*p)[key] = v
}

// Lookup returns the value under key and whether the key is present.
func (p StringList) Lookup(key string) (string, bool) {
	v, ok := p[key]
	return v, ok
}

// Has reports whether key is present.
func (p StringList) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// String returns the value under key, or def when absent.
func (p StringList) String(key, def string) string {
	if v, ok := p[key]; ok {
		return v
	}

	return def
}
