// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package reference

// Table is an insertion-ordered mapping of keys to entries.
//
// # Description
//
// Key order is the order of the source document and drives the order of
// search results. Replacing an existing key keeps its position.
//
// # Thread Safety
//
// Not safe for concurrent mutation. Tables handed to a family are never
// mutated again and may be read from any goroutine. A nil *Table behaves as
// an empty table for every read method.
type Table struct {
	keys    []string
	entries map[string]Entry
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{entries: make(map[string]Entry)}
}

// Set adds or replaces key.
func (t *Table) Set(key string, e Entry) {
	if t.entries == nil {
		t.entries = make(map[string]Entry)
	}
	if _, ok := t.entries[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.entries[key] = e
}

// Get returns the entry stored under key.
func (t *Table) Get(key string) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}
	e, ok := t.entries[key]
	return e, ok
}

// Len returns the number of keys.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.keys)
}

// Keys returns a copy of the keys in stored order.
func (t *Table) Keys() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

// Each calls fn for every key in stored order until fn returns false.
func (t *Table) Each(fn func(key string, e Entry) bool) {
	if t == nil {
		return
	}
	for _, k := range t.keys {
		if !fn(k, t.entries[k]) {
			return
		}
	}
}
