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

import "strings"

// BuildTree shallow-merges documents into one tree.
//
// Later documents win: a key present in several documents takes the value
// from the last one but keeps the position it had in the first. Keys new to
// a later document are appended. Nested tables are never merged, a replaced
// key brings its whole subtree along. nil documents are ignored.
func BuildTree(docs ...*Table) *Table {
	out := NewTable()
	for _, doc := range docs {
		doc.Each(func(key string, e Entry) bool {
			out.Set(key, e)
			return true
		})
	}
	return out
}

// Resolve descends t one key per level and returns the deepest name seen.
//
// # Description
//
// keys[0] is looked up in t, keys[1] in the children of that entry, and so
// on. Descent stops at the first empty key, the first key not present, or
// an entry with no children. Every named entry reached replaces the best
// name; unnamed nodes are passed through without changing it.
//
// # Outputs
//
//   - name: The deepest name reached, or "" when none was.
//   - depth: How many keys were found in the tree.
func Resolve(t *Table, keys []string) (name string, depth int) {
	cur := t
	for _, key := range keys {
		if key == "" || cur == nil {
			break
		}
		e, ok := cur.Get(key)
		if !ok {
			break
		}
		depth++
		if n, named := e.Name(); named {
			name = n
		}
		cur = e.Children()
	}
	return name, depth
}

// Collect returns every named code in t that starts with prefix.
//
// # Description
//
// A code is the concatenation of the keys along its path ("1A" + "1X2" +
// "A"). The walk is depth-first in stored order. A subtree is skipped only
// when its code can no longer lead to a match, that is when neither the
// code starts with prefix nor prefix starts with the code. An empty prefix
// collects everything.
func Collect(t *Table, prefix string) []string {
	var out []string
	collect(t, "", prefix, &out)
	return out
}

func collect(t *Table, base, prefix string, out *[]string) {
	t.Each(func(key string, e Entry) bool {
		code := base + key
		matches := strings.HasPrefix(code, prefix)
		if !matches && !strings.HasPrefix(prefix, code) {
			return true
		}
		if _, named := e.Name(); named && matches {
			*out = append(*out, code)
		}
		if children := e.Children(); children != nil {
			collect(children, code, prefix, out)
		}
		return true
	})
}

// Walk visits every entry depth-first in stored order. path holds the keys
// from the root down to and including the entry; it is reused between
// calls and must be copied if retained.
func Walk(t *Table, fn func(path []string, e Entry)) {
	walk(t, make([]string, 0, MaxDepth), fn)
}

func walk(t *Table, path []string, fn func([]string, Entry)) {
	t.Each(func(key string, e Entry) bool {
		p := append(path, key)
		fn(p, e)
		walk(e.Children(), p, fn)
		return true
	})
}

// Stats summarizes a tree.
type Stats struct {
	Roots    int `json:"roots"`
	Entries  int `json:"entries"`
	Leaves   int `json:"leaves"`
	Nodes    int `json:"nodes"`
	Unnamed  int `json:"unnamed"`
	MaxDepth int `json:"max_depth"`
}

// Count returns the Stats of t.
func Count(t *Table) Stats {
	s := Stats{Roots: t.Len()}
	Walk(t, func(path []string, e Entry) {
		s.Entries++
		if e.Kind() == KindLeaf {
			s.Leaves++
		} else {
			s.Nodes++
		}
		if _, named := e.Name(); !named {
			s.Unnamed++
		}
		if len(path) > s.MaxDepth {
			s.MaxDepth = len(path)
		}
	})
	return s
}
