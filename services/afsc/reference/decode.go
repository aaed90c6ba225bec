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

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// MaxDepth bounds how deeply subcategories may nest in one document.
const MaxDepth = 8

// Field names of a node mapping. Either may carry a leading ':'.
const (
	fieldName          = "name"
	fieldSubcategories = "subcategories"
)

var (
	// ErrEmptyDocument is returned for documents with no content.
	ErrEmptyDocument = errors.New("empty document")

	// ErrInvalidDocument is returned for documents that do not have the
	// reference tree shape.
	ErrInvalidDocument = errors.New("invalid reference document")
)

// Decode parses one YAML reference document.
//
// # Description
//
// The document must be a mapping. Each value is either a scalar (a Leaf),
// a mapping with optional `name` and `subcategories` fields (a Node), or
// null (ignored). Keys keep their literal text, so `000` stays "000", and a
// leading ':' on any key is removed.
//
// # Outputs
//
//   - *Table: The decoded tree, in document order.
//   - error: ErrEmptyDocument for blank input, otherwise wraps
//     ErrInvalidDocument with the offending line.
func Decode(data []byte) (*Table, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, ErrEmptyDocument
	}
	root := resolveAlias(doc.Content[0])
	if isNull(root) {
		return nil, ErrEmptyDocument
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: line %d: top level must be a mapping", ErrInvalidDocument, root.Line)
	}
	return decodeTable(root, 1)
}

func decodeTable(n *yaml.Node, depth int) (*Table, error) {
	if depth > MaxDepth {
		return nil, fmt.Errorf("%w: line %d: nesting deeper than %d", ErrInvalidDocument, n.Line, MaxDepth)
	}
	t := NewTable()
	for i := 0; i+1 < len(n.Content); i += 2 {
		keyNode, valNode := resolveAlias(n.Content[i]), resolveAlias(n.Content[i+1])
		if keyNode.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("%w: line %d: key must be a scalar", ErrInvalidDocument, keyNode.Line)
		}
		key := normalizeKey(keyNode.Value)
		if key == "" {
			return nil, fmt.Errorf("%w: line %d: empty key", ErrInvalidDocument, keyNode.Line)
		}

		switch {
		case isNull(valNode):
			continue
		case valNode.Kind == yaml.ScalarNode:
			t.Set(key, Leaf(valNode.Value))
		case valNode.Kind == yaml.MappingNode:
			e, err := decodeNode(valNode, depth)
			if err != nil {
				return nil, err
			}
			t.Set(key, e)
		default:
			return nil, fmt.Errorf("%w: line %d: value of %q must be a name or a mapping", ErrInvalidDocument, valNode.Line, key)
		}
	}
	return t, nil
}

func decodeNode(n *yaml.Node, depth int) (Entry, error) {
	var (
		name     string
		named    bool
		children *Table
	)
	for i := 0; i+1 < len(n.Content); i += 2 {
		keyNode, valNode := resolveAlias(n.Content[i]), resolveAlias(n.Content[i+1])
		if keyNode.Kind != yaml.ScalarNode {
			return Entry{}, fmt.Errorf("%w: line %d: key must be a scalar", ErrInvalidDocument, keyNode.Line)
		}
		switch normalizeKey(keyNode.Value) {
		case fieldName:
			if isNull(valNode) {
				continue
			}
			if valNode.Kind != yaml.ScalarNode {
				return Entry{}, fmt.Errorf("%w: line %d: name must be a scalar", ErrInvalidDocument, valNode.Line)
			}
			name, named = valNode.Value, true
		case fieldSubcategories:
			if isNull(valNode) {
				continue
			}
			if valNode.Kind != yaml.MappingNode {
				return Entry{}, fmt.Errorf("%w: line %d: subcategories must be a mapping", ErrInvalidDocument, valNode.Line)
			}
			sub, err := decodeTable(valNode, depth+1)
			if err != nil {
				return Entry{}, err
			}
			children = sub
		}
	}
	if !named {
		return UnnamedNode(children), nil
	}
	return Node(name, children), nil
}

func normalizeKey(k string) string {
	return strings.TrimPrefix(k, ":")
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func isNull(n *yaml.Node) bool {
	return n == nil || (n.Kind == yaml.ScalarNode && n.Tag == "!!null")
}

// Encode writes t back out as a YAML document in stored order. Leaves are
// written as bare names, nodes as mappings with name and subcategories.
func Encode(t *Table) ([]byte, error) {
	return yaml.Marshal(encodeTable(t))
}

func encodeTable(t *Table) *yaml.Node {
	m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	t.Each(func(key string, e Entry) bool {
		m.Content = append(m.Content, stringNode(key), encodeEntry(e))
		return true
	})
	return m
}

func encodeEntry(e Entry) *yaml.Node {
	name, named := e.Name()
	if e.Kind() == KindLeaf {
		return stringNode(name)
	}
	m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	if named {
		m.Content = append(m.Content, stringNode(fieldName), stringNode(name))
	}
	if e.Children().Len() > 0 {
		m.Content = append(m.Content, stringNode(fieldSubcategories), encodeTable(e.Children()))
	}
	return m
}

// stringNode pins the !!str tag so keys like 000 round-trip as text.
func stringNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}
