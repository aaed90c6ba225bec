// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package grammar

import (
	"bytes"
	"encoding/json"
	"strings"
)

// FacetValue is one facet of a record.
type FacetValue struct {
	Name    string
	Value   string
	Present bool
}

// Record is the output of Scan: an ordered set of optional facets.
//
// Record is immutable. Accessors return copies, so a Record can be shared
// between goroutines and embedded in cached lookup results.
type Record struct {
	grammar   *Grammar
	values    []string
	present   []bool
	remainder string
}

// Family returns the family name of the grammar that produced the record.
func (r Record) Family() string {
	if r.grammar == nil {
		return ""
	}
	return r.grammar.Family
}

// Get returns the value of a facet and whether it is present.
func (r Record) Get(name string) (string, bool) {
	if r.grammar == nil {
		return "", false
	}
	i, ok := r.grammar.facetIndex[name]
	if !ok || !r.present[i] {
		return "", false
	}
	return r.values[i], true
}

// Value returns the value of a facet, or "" when absent.
func (r Record) Value(name string) string {
	v, _ := r.Get(name)
	return v
}

// Has reports whether a facet is present.
func (r Record) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Facets returns every facet in grammar order, present or not.
func (r Record) Facets() []FacetValue {
	if r.grammar == nil {
		return nil
	}
	out := make([]FacetValue, len(r.grammar.Facets))
	for i, f := range r.grammar.Facets {
		out[i] = FacetValue{Name: f.Name, Value: r.values[i], Present: r.present[i]}
	}
	return out
}

// Remainder returns the input left after the last matched step.
func (r Record) Remainder() string {
	return r.remainder
}

// Empty reports whether no structural facet matched. Optional leading
// facets such as the prefix letter do not count.
func (r Record) Empty() bool {
	if r.grammar == nil {
		return true
	}
	for i, ok := range r.present {
		if ok && r.grammar.structural[i] {
			return false
		}
	}
	return true
}

// PathKeys returns the values keying each reference tree level, in Path
// order. Absent facets yield "".
func (r Record) PathKeys() []string {
	if r.grammar == nil {
		return nil
	}
	keys := make([]string, len(r.grammar.Path))
	for i, name := range r.grammar.Path {
		keys[i] = r.Value(name)
	}
	return keys
}

// String reassembles the scanned code from the grammar's Assemble facets.
// For a record that passed Validate it equals the input code.
func (r Record) String() string {
	if r.grammar == nil {
		return ""
	}
	var b strings.Builder
	for _, name := range r.grammar.Assemble {
		b.WriteString(r.Value(name))
	}
	return b.String()
}

// MarshalJSON writes the facets as an object in grammar order, with null
// for absent facets.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.Facets() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if !f.Present {
			buf.WriteString("null")
			continue
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
