// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package grammar scans specialty code strings into facet records.
//
// # Description
//
// Every code family (enlisted AFSC, officer AFSC, reporting identifier) is a
// positional grammar: each position accepts exactly one character class and
// the meaning of a character depends only on where it sits. A Grammar is a
// declarative table of those positions (Steps) plus the composite fields
// built from them (Facets). One scanner engine interprets every table.
//
// # Scanning Rules
//
//   - The cursor moves left to right, one Step at a time.
//   - A required Step that does not match halts scanning. Nothing after it
//     is attempted and there is no backtracking.
//   - An optional Step that does not match is skipped.
//   - A Facet is populated only when every segment it is built from matched.
//   - Input left over after the last Step is kept as the record's remainder.
//
// Scan never fails. Deciding whether a record is good enough is the job of
// Validate.
//
// # Thread Safety
//
// A compiled Grammar is immutable and safe for concurrent use.
package grammar

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/AleutianAI/govcodes/pkg/validation"
)

// Sentinel errors for the validation pre-step.
var (
	// ErrParseIncomplete indicates the scanner stopped before every required
	// facet was filled.
	ErrParseIncomplete = errors.New("parse incomplete")

	// ErrValidation indicates a structurally invalid code: bad characters,
	// excessive length or unconsumed trailing input.
	ErrValidation = errors.New("validation failure")

	// ErrInvalidGrammar indicates a grammar table that references unknown
	// segments or facets.
	ErrInvalidGrammar = errors.New("invalid grammar")
)

// Step is one position of a grammar.
type Step struct {
	// Segment names the matched text so that Facets can refer to it.
	Segment string

	// Pattern is the character class accepted at this position, written as
	// an RE2 expression without anchors (e.g. `[A-Z]`, `\d{3}`).
	Pattern string

	// Optional steps are skipped instead of halting the scan.
	Optional bool

	re *regexp.Regexp
}

// Facet is a named field of a record, built by concatenating segments.
type Facet struct {
	Name     string
	Segments []string
}

// Grammar describes how one code family is scanned and resolved.
type Grammar struct {
	// Family is the logical family name ("enlisted", "officer", ...).
	Family string

	// Steps in scan order.
	Steps []Step

	// Facets in record order.
	Facets []Facet

	// Required lists the facets that must be present for a lookup.
	Required []string

	// Path lists the facets whose values key each level of the reference
	// tree, outermost first.
	Path []string

	// MinDepth is the number of Path levels that must match in the
	// reference tree for a lookup to count as found.
	MinDepth int

	// Assemble lists the facets whose values, concatenated, reproduce the
	// scanned code.
	Assemble []string

	// MaxLength is the longest raw code accepted.
	MaxLength int

	// AllowTrailing accepts codes with input left after the last step.
	AllowTrailing bool

	facetIndex map[string]int
	structural []bool
	compiled   bool
}

// Compile anchors the step patterns and checks that every name the grammar
// references exists.
//
// Compile is idempotent. The family constructors return compiled grammars,
// so callers only need it for hand-built tables.
func (g *Grammar) Compile() error {
	if g.compiled {
		return nil
	}
	if g.Family == "" {
		return fmt.Errorf("%w: family name is empty", ErrInvalidGrammar)
	}

	optional := make(map[string]bool, len(g.Steps))
	for i := range g.Steps {
		step := &g.Steps[i]
		if step.Segment == "" {
			return fmt.Errorf("%w: %s step %d has no segment name", ErrInvalidGrammar, g.Family, i)
		}
		if _, dup := optional[step.Segment]; dup {
			return fmt.Errorf("%w: %s segment %q declared twice", ErrInvalidGrammar, g.Family, step.Segment)
		}
		re, err := regexp.Compile(`^(?:` + step.Pattern + `)`)
		if err != nil {
			return fmt.Errorf("%w: %s segment %q: %v", ErrInvalidGrammar, g.Family, step.Segment, err)
		}
		step.re = re
		optional[step.Segment] = step.Optional
	}

	g.facetIndex = make(map[string]int, len(g.Facets))
	g.structural = make([]bool, len(g.Facets))
	for i, facet := range g.Facets {
		if len(facet.Segments) == 0 {
			return fmt.Errorf("%w: %s facet %q has no segments", ErrInvalidGrammar, g.Family, facet.Name)
		}
		for _, seg := range facet.Segments {
			opt, ok := optional[seg]
			if !ok {
				return fmt.Errorf("%w: %s facet %q uses unknown segment %q", ErrInvalidGrammar, g.Family, facet.Name, seg)
			}
			if !opt {
				g.structural[i] = true
			}
		}
		g.facetIndex[facet.Name] = i
	}

	for _, list := range [][]string{g.Required, g.Path, g.Assemble} {
		for _, name := range list {
			if _, ok := g.facetIndex[name]; !ok {
				return fmt.Errorf("%w: %s references unknown facet %q", ErrInvalidGrammar, g.Family, name)
			}
		}
	}
	if g.MinDepth < 0 || g.MinDepth > len(g.Path) {
		return fmt.Errorf("%w: %s min depth %d outside path of %d", ErrInvalidGrammar, g.Family, g.MinDepth, len(g.Path))
	}

	g.compiled = true
	return nil
}

// MustCompile is like Compile but panics on error. Only use it on built-in
// tables where an error is a programming mistake.
func MustCompile(g *Grammar) *Grammar {
	if err := g.Compile(); err != nil {
		panic(err)
	}
	return g
}

// Scan consumes code left to right and returns the facets it could fill.
//
// # Inputs
//
//   - code: Raw candidate string. Any byte sequence is accepted.
//
// # Outputs
//
//   - Record: Possibly empty. Never an error.
func (g *Grammar) Scan(code string) Record {
	if !g.compiled {
		MustCompile(g)
	}

	segments := make(map[string]string, len(g.Steps))
	pos := 0
	for i := range g.Steps {
		step := &g.Steps[i]
		match := step.re.FindString(code[pos:])
		if match == "" {
			if step.Optional {
				continue
			}
			break
		}
		segments[step.Segment] = match
		pos += len(match)
	}

	values := make([]string, len(g.Facets))
	present := make([]bool, len(g.Facets))
	for i, facet := range g.Facets {
		composite := ""
		complete := true
		for _, seg := range facet.Segments {
			part, ok := segments[seg]
			if !ok {
				complete = false
				break
			}
			composite += part
		}
		if complete {
			values[i] = composite
			present[i] = true
		}
	}

	return Record{
		grammar:   g,
		values:    values,
		present:   present,
		remainder: code[pos:],
	}
}

// Validate is the pre-step run before resolution.
//
// # Outputs
//
//   - error: nil, or wraps ErrParseIncomplete or ErrValidation.
//
// # Behavior
//
// Checks run in this order:
//  1. The record has at least one structural facet.
//  2. Every Required facet is present.
//  3. The raw code fits MaxLength and the shared [A-Z0-9] alphabet.
//  4. No trailing input remains unless AllowTrailing is set.
func (g *Grammar) Validate(code string, rec Record) error {
	if rec.Empty() {
		return fmt.Errorf("%w: no %s facets matched", ErrParseIncomplete, g.Family)
	}
	for _, name := range g.Required {
		if !rec.Has(name) {
			return fmt.Errorf("%w: %s facet %s missing", ErrParseIncomplete, g.Family, name)
		}
	}
	if err := validation.ValidateCode(code, g.MaxLength); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if rec.Remainder() != "" && !g.AllowTrailing {
		return fmt.Errorf("%w: unconsumed input %q", ErrValidation, rec.Remainder())
	}
	return nil
}
