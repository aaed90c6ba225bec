// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package family

import (
	"encoding/json"

	"github.com/AleutianAI/govcodes/services/afsc/grammar"
)

// Code is a resolved code: the scanned facets plus the deepest name found
// in the reference tree.
//
// Code values are immutable and are shared through the lookup cache.
type Code struct {
	Family string
	Name   string
	Record grammar.Record
}

// String reassembles the code from its facets.
func (c Code) String() string {
	return c.Record.String()
}

// Facet returns the value of a facet and whether it is present.
func (c Code) Facet(name string) (string, bool) {
	return c.Record.Get(name)
}

// IsZero reports whether c is the zero Code.
func (c Code) IsZero() bool {
	return c.Family == "" && c.Name == ""
}

type codeJSON struct {
	Family string         `json:"family"`
	Code   string         `json:"code"`
	Name   string         `json:"name"`
	Facets grammar.Record `json:"facets"`
}

// MarshalJSON writes family, code, name and the facets in grammar order.
func (c Code) MarshalJSON() ([]byte, error) {
	return json.Marshal(codeJSON{
		Family: c.Family,
		Code:   c.String(),
		Name:   c.Name,
		Facets: c.Record,
	})
}
