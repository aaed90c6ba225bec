// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validation

import (
	"errors"
	"testing"
)

func TestValidateCode(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		maxLen  int
		wantErr error
	}{
		// Valid codes
		{"enlisted", "1A1X2", 7, nil},
		{"enlisted with prefix and shredout", "A1A1X2A", 7, nil},
		{"officer", "11MX", 6, nil},
		{"reporting identifier", "8G000B", 6, nil},
		{"no length limit", "ABCDEFGHIJKLMNOP", 0, nil},

		// Invalid codes
		{"empty", "", 7, ErrEmptyCode},
		{"too long", "1A1X2ABC", 7, ErrCodeTooLong},
		{"lowercase", "1a1x2", 7, ErrInvalidCharacters},
		{"punctuation", "1A1X!", 7, ErrInvalidCharacters},
		{"leading punctuation", "!1A1X2", 7, ErrInvalidCharacters},
		{"space", "1A 1X2", 7, ErrInvalidCharacters},
		{"unicode", "1A1X2é", 0, ErrInvalidCharacters},
		{"too long wins over charset", "1a1x2abc", 7, ErrCodeTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCode(tt.code, tt.maxLen)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateCode(%q) unexpected error: %v", tt.code, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateCode(%q) error = %v, want %v", tt.code, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePrefix(t *testing.T) {
	tests := []struct {
		name    string
		prefix  string
		wantErr bool
	}{
		{"empty matches everything", "", false},
		{"uppercase", "1Z1", false},
		{"lowercase", "1z1", false},
		{"surrounding space", "  11M ", false},
		{"punctuation", "1Z-", true},
		{"inner space", "1 Z", true},
		{"too long", "ABCDEFGHIJKLMNOPQ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePrefix(tt.prefix)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePrefix(%q) error = %v, wantErr %v", tt.prefix, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidPrefix) {
				t.Errorf("ValidatePrefix(%q) error %v is not ErrInvalidPrefix", tt.prefix, err)
			}
		})
	}
}

func TestSanitizePrefix(t *testing.T) {
	got, err := SanitizePrefix(" 1z1 ")
	if err != nil {
		t.Fatalf("SanitizePrefix returned error: %v", err)
	}
	if got != "1Z1" {
		t.Errorf("SanitizePrefix = %q, want %q", got, "1Z1")
	}

	if _, err := SanitizePrefix("1z;"); err == nil {
		t.Error("SanitizePrefix accepted punctuation")
	}
}
