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

// Family names. They double as the logical names of the reference documents.
const (
	FamilyEnlisted            = "enlisted"
	FamilyOfficer             = "officer"
	FamilyReportingIdentifier = "reporting_identifier"
)

// Facet names shared across the family grammars.
const (
	FacetPrefix                 = "prefix"
	FacetCareerGroup            = "career_group"
	FacetCareerField            = "career_field"
	FacetCareerFieldSubdivision = "career_field_subdivision"
	FacetSkillLevel             = "skill_level"
	FacetSpecificAFSC           = "specific_afsc"
	FacetSubcategory            = "subcategory"
	FacetShredout               = "shredout"
	FacetFunctionalArea         = "functional_area"
	FacetQualificationLevel     = "qualification_level"
	FacetIdentifier             = "identifier"
	FacetSpecificRI             = "specific_ri"
	FacetSuffix                 = "suffix"
)

// QualificationClass selects the officer qualification-level character class.
//
// Published officer codes use digits 0-4 for qualification levels and the
// letters X-Z for the generic, staff and commander forms. Older data only
// carries the digits.
type QualificationClass int

const (
	// QualificationExtended accepts 0-4 and X-Z.
	QualificationExtended QualificationClass = iota

	// QualificationNumeric accepts 0-4 only.
	QualificationNumeric
)

// String returns the configuration name of the class.
func (q QualificationClass) String() string {
	switch q {
	case QualificationNumeric:
		return "numeric"
	default:
		return "extended"
	}
}

// ParseQualificationClass maps a configuration value to a class.
// Unknown values fall back to QualificationExtended.
func ParseQualificationClass(s string) QualificationClass {
	if s == "numeric" {
		return QualificationNumeric
	}
	return QualificationExtended
}

func (q QualificationClass) pattern() string {
	if q == QualificationNumeric {
		return `[0-4]`
	}
	return `[0-4X-Z]`
}

// Option adjusts a family grammar before it is compiled.
type Option func(*options)

type options struct {
	qualification QualificationClass
	legacySkill   bool
	allowTrailing bool
}

// WithQualificationClass sets the officer qualification-level class.
func WithQualificationClass(q QualificationClass) Option {
	return func(o *options) { o.qualification = q }
}

// LegacySkillLevels lets the enlisted skill level be a digit as well as a letter.
//
// Off by default: with digits allowed, a reporting identifier such as 9Z000
// also scans as a complete enlisted code, and enlisted is tried first.
func LegacySkillLevels(enabled bool) Option {
	return func(o *options) { o.legacySkill = enabled }
}

// AllowTrailingInput accepts codes with characters left after the last step.
func AllowTrailingInput(allow bool) Option {
	return func(o *options) { o.allowTrailing = allow }
}

func collect(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Enlisted returns the enlisted AFSC grammar.
//
//	A 1 A 1 X 2 A
//	| | | | | | └ shredout (optional)
//	| | | | | └── skill digit
//	| | | | └──── skill level
//	| | | └────── subdivision
//	| | └──────── career field letter
//	| └────────── career group
//	└──────────── prefix (optional)
//
// The reference tree is keyed career_field → subcategory → shredout, where
// subcategory is subdivision + skill level + skill digit ("1X2").
func Enlisted(opts ...Option) *Grammar {
	o := collect(opts)
	skill := `[A-Z]`
	if o.legacySkill {
		skill = `[A-Z0-9]`
	}
	return MustCompile(&Grammar{
		Family: FamilyEnlisted,
		Steps: []Step{
			{Segment: "prefix", Pattern: `[A-Z]`, Optional: true},
			{Segment: "group", Pattern: `\d`},
			{Segment: "field", Pattern: `[A-Z]`},
			{Segment: "subdivision", Pattern: `\d`},
			{Segment: "skill", Pattern: skill},
			{Segment: "skill_digit", Pattern: `\d`},
			{Segment: "shredout", Pattern: `[A-Z]`, Optional: true},
		},
		Facets: []Facet{
			{Name: FacetPrefix, Segments: []string{"prefix"}},
			{Name: FacetCareerGroup, Segments: []string{"group"}},
			{Name: FacetCareerField, Segments: []string{"group", "field"}},
			{Name: FacetCareerFieldSubdivision, Segments: []string{"group", "field", "subdivision"}},
			{Name: FacetSkillLevel, Segments: []string{"skill"}},
			{Name: FacetSpecificAFSC, Segments: []string{"group", "field", "subdivision", "skill", "skill_digit"}},
			{Name: FacetSubcategory, Segments: []string{"subdivision", "skill", "skill_digit"}},
			{Name: FacetShredout, Segments: []string{"shredout"}},
		},
		Required: []string{
			FacetCareerGroup, FacetCareerField, FacetCareerFieldSubdivision,
			FacetSkillLevel, FacetSpecificAFSC, FacetSubcategory,
		},
		Path:          []string{FacetCareerField, FacetSubcategory, FacetShredout},
		MinDepth:      1,
		Assemble:      []string{FacetPrefix, FacetSpecificAFSC, FacetShredout},
		MaxLength:     7,
		AllowTrailing: o.allowTrailing,
	})
}

// Officer returns the officer AFSC grammar.
//
//	A 1 1 M X A
//	| └─┤ | | └ shredout (optional)
//	|   | | └── qualification level
//	|   | └──── functional area
//	|   └────── career group (two digits)
//	└────────── prefix (optional)
//
// The reference tree is keyed by the full specific AFSC ("11MX") and then
// by shredout. There is no intermediate level.
func Officer(opts ...Option) *Grammar {
	o := collect(opts)
	return MustCompile(&Grammar{
		Family: FamilyOfficer,
		Steps: []Step{
			{Segment: "prefix", Pattern: `[A-Z]`, Optional: true},
			{Segment: "group", Pattern: `\d{2}`},
			{Segment: "area", Pattern: `[A-Z]`},
			{Segment: "level", Pattern: o.qualification.pattern()},
			{Segment: "shredout", Pattern: `[A-Z]`, Optional: true},
		},
		Facets: []Facet{
			{Name: FacetPrefix, Segments: []string{"prefix"}},
			{Name: FacetCareerGroup, Segments: []string{"group"}},
			{Name: FacetFunctionalArea, Segments: []string{"area"}},
			{Name: FacetQualificationLevel, Segments: []string{"level"}},
			{Name: FacetSpecificAFSC, Segments: []string{"group", "area", "level"}},
			{Name: FacetShredout, Segments: []string{"shredout"}},
		},
		Required:      []string{FacetCareerGroup, FacetFunctionalArea, FacetQualificationLevel, FacetSpecificAFSC},
		Path:          []string{FacetSpecificAFSC, FacetShredout},
		MinDepth:      1,
		Assemble:      []string{FacetPrefix, FacetSpecificAFSC, FacetShredout},
		MaxLength:     6,
		AllowTrailing: o.allowTrailing,
	})
}

// ReportingIdentifier returns the RI/SDI grammar.
//
//	8 G 0 0 0 B
//	| | └─┬─┘ └ suffix (optional)
//	| |   └──── identifier (three digits)
//	| └──────── career field letter
//	└────────── career group
//
// The reference tree is keyed career_field → identifier → suffix. A match at
// the career field alone is not a result: the identifier must be listed.
func ReportingIdentifier(opts ...Option) *Grammar {
	o := collect(opts)
	return MustCompile(&Grammar{
		Family: FamilyReportingIdentifier,
		Steps: []Step{
			{Segment: "group", Pattern: `\d`},
			{Segment: "field", Pattern: `[A-Z]`},
			{Segment: "identifier", Pattern: `\d{3}`},
			{Segment: "suffix", Pattern: `[A-Z]`, Optional: true},
		},
		Facets: []Facet{
			{Name: FacetCareerGroup, Segments: []string{"group"}},
			{Name: FacetCareerField, Segments: []string{"group", "field"}},
			{Name: FacetIdentifier, Segments: []string{"identifier"}},
			{Name: FacetSpecificRI, Segments: []string{"group", "field", "identifier"}},
			{Name: FacetSuffix, Segments: []string{"suffix"}},
		},
		Required:      []string{FacetCareerGroup, FacetCareerField, FacetIdentifier, FacetSpecificRI},
		Path:          []string{FacetCareerField, FacetIdentifier, FacetSuffix},
		MinDepth:      2,
		Assemble:      []string{FacetSpecificRI, FacetSuffix},
		MaxLength:     6,
		AllowTrailing: o.allowTrailing,
	})
}
