// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation for raw specialty codes and
// search prefixes before they reach the scanners or the reference tree.
//
// Codes arrive from CLI arguments, HTTP path parameters and configuration
// files. Every code family shares the same alphabet (uppercase ASCII letters
// and digits), so the character check lives here rather than in each grammar.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// codePattern matches the shared code alphabet.
var codePattern = regexp.MustCompile(`^[A-Z0-9]+$`)

// prefixPattern matches search prefixes before case folding.
// An empty prefix is allowed and matches every code.
var prefixPattern = regexp.MustCompile(`^[A-Za-z0-9]*$`)

// MaxPrefixLength bounds search prefixes. No code family is longer than 7
// characters, so anything longer can never match.
const MaxPrefixLength = 16

var (
	// ErrEmptyCode indicates an empty code string.
	ErrEmptyCode = errors.New("code cannot be empty")

	// ErrCodeTooLong indicates a code longer than the family allows.
	ErrCodeTooLong = errors.New("code exceeds maximum length")

	// ErrInvalidCharacters indicates characters outside [A-Z0-9].
	ErrInvalidCharacters = errors.New("code contains characters outside [A-Z0-9]")

	// ErrInvalidPrefix indicates a search prefix that can never match a code.
	ErrInvalidPrefix = errors.New("invalid search prefix")
)

// ValidateCode checks a raw code against the shared alphabet and a length limit.
//
// Valid codes:
//   - 1 to maxLen characters (maxLen <= 0 disables the length check)
//   - Uppercase letters A-Z
//   - Digits 0-9
//
// The length check runs before the character check so that an over-long
// code is reported as such even when it also contains bad characters.
//
// Example:
//
//	if err := validation.ValidateCode("1A1X2A", 7); err != nil {
//	    return fmt.Errorf("rejecting code: %w", err)
//	}
func ValidateCode(code string, maxLen int) error {
	if code == "" {
		return ErrEmptyCode
	}
	if maxLen > 0 && len(code) > maxLen {
		return fmt.Errorf("%w: %d > %d", ErrCodeTooLong, len(code), maxLen)
	}
	if !codePattern.MatchString(code) {
		return fmt.Errorf("%w: %q", ErrInvalidCharacters, code)
	}
	return nil
}

// ValidatePrefix checks a search prefix supplied by a user.
// Lowercase letters are accepted because search is case-insensitive.
func ValidatePrefix(prefix string) error {
	trimmed := strings.TrimSpace(prefix)
	if len(trimmed) > MaxPrefixLength {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidPrefix, MaxPrefixLength)
	}
	if !prefixPattern.MatchString(trimmed) {
		return fmt.Errorf("%w: %q (must be letters and digits only)", ErrInvalidPrefix, prefix)
	}
	return nil
}

// NormalizePrefix trims and upper-cases a search prefix.
//
// Search folds case; lookups do not. A lowercase code passed to find is a
// validation failure, a lowercase prefix passed to search is not.
func NormalizePrefix(prefix string) string {
	return strings.ToUpper(strings.TrimSpace(prefix))
}

// SanitizePrefix normalizes and validates a search prefix in one step.
//
//	safePrefix, err := validation.SanitizePrefix(c.Query("prefix"))
//	if err != nil {
//	    return err
//	}
func SanitizePrefix(prefix string) (string, error) {
	if err := ValidatePrefix(prefix); err != nil {
		return "", err
	}
	return NormalizePrefix(prefix), nil
}
