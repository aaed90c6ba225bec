// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package reference holds the nested name data that scanned codes resolve
// against.
//
// A reference tree is an ordered Table of keys to Entries. An Entry is either
// a Leaf carrying only a name, or a Node carrying an optional name and an
// optional child Table keyed by the next facet of the owning family. Trees
// are built once from documents and then only read.
package reference

// Kind discriminates the Entry variants.
type Kind int

const (
	// KindLeaf is a bare name.
	KindLeaf Kind = iota

	// KindNode is a name plus an optional child table.
	KindNode
)

func (k Kind) String() string {
	if k == KindNode {
		return "node"
	}
	return "leaf"
}

// Entry is one value in a reference Table.
type Entry struct {
	kind     Kind
	name     string
	named    bool
	children *Table
}

// Leaf returns a leaf entry.
func Leaf(name string) Entry {
	return Entry{kind: KindLeaf, name: name, named: true}
}

// Node returns a named node entry. children may be nil.
func Node(name string, children *Table) Entry {
	return Entry{kind: KindNode, name: name, named: true, children: children}
}

// UnnamedNode returns a node that only groups children. It is never a
// search result on its own and does not change the best name during
// resolution.
func UnnamedNode(children *Table) Entry {
	return Entry{kind: KindNode, children: children}
}

// Kind returns the variant.
func (e Entry) Kind() Kind { return e.kind }

// Name returns the entry's name and whether it has one.
func (e Entry) Name() (string, bool) { return e.name, e.named }

// Children returns the child table of a node, or nil.
func (e Entry) Children() *Table {
	if e.kind != KindNode {
		return nil
	}
	return e.children
}
