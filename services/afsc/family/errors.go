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
	"errors"

	"github.com/AleutianAI/govcodes/services/afsc/grammar"
)

// SentinelName is the reference data's own "no data" marker. A code that
// resolves to it is treated as absent.
const SentinelName = "Unknown"

// Lookup failure reasons. Public callers only see found / not found; these
// exist for logs, metrics and the explain output.
var (
	// ErrParseIncomplete: the scanner stopped before every required facet
	// was filled.
	ErrParseIncomplete = grammar.ErrParseIncomplete

	// ErrValidation: bad characters, excessive length or trailing input.
	ErrValidation = grammar.ErrValidation

	// ErrDataAbsent: the code parsed but the reference tree has no usable
	// name for it.
	ErrDataAbsent = errors.New("data absent")
)

// Outcome labels a lookup result for metrics and logs.
type Outcome string

const (
	OutcomeFound             Outcome = "found"
	OutcomeParseIncomplete   Outcome = "parse_incomplete"
	OutcomeValidationFailure Outcome = "validation_failure"
	OutcomeDataAbsent        Outcome = "data_absent"
	OutcomeError             Outcome = "error"
)

// Classify maps a Lookup error to its Outcome. A nil error is OutcomeFound.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeFound
	case errors.Is(err, ErrParseIncomplete):
		return OutcomeParseIncomplete
	case errors.Is(err, ErrValidation):
		return OutcomeValidationFailure
	case errors.Is(err, ErrDataAbsent):
		return OutcomeDataAbsent
	default:
		return OutcomeError
	}
}
