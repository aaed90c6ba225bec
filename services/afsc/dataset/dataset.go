// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
Package dataset carries the reference documents shipped with the binary.

The documents live under gov_codes/afsc/ in the same layout the loader
expects inside every search path, so the embedded copy is just the first
source in the search order. Fingerprints let operators confirm which data a
binary was built with.
*/
package dataset

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"sort"
)

// Dir is the directory, relative to a search path root, holding the
// per-family reference documents.
const Dir = "gov_codes/afsc"

// files holds the shipped documents.
//
//go:embed gov_codes/afsc/*.yml
var files embed.FS

// FS returns the embedded documents rooted like a search path.
func FS() fs.FS {
	return files
}

// Digest identifies one embedded document.
type Digest struct {
	Path   string `json:"path"`
	Size   int    `json:"size"`
	SHA256 string `json:"sha256"`
}

// Fingerprints hashes every embedded document.
//
// # Outputs
//
//   - []Digest: One entry per document, sorted by path.
//   - error: Non-nil only if the embedded tree cannot be read, which means
//     the binary was built incorrectly.
func Fingerprints() ([]Digest, error) {
	entries, err := fs.ReadDir(files, Dir)
	if err != nil {
		return nil, fmt.Errorf("reading embedded dataset: %w", err)
	}
	out := make([]Digest, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		p := path.Join(Dir, e.Name())
		data, err := fs.ReadFile(files, p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		sum := sha256.Sum256(data)
		out = append(out, Digest{Path: p, Size: len(data), SHA256: hex.EncodeToString(sum[:])})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Fingerprint combines every document digest into one hash for the whole
// dataset.
func Fingerprint() (string, error) {
	digests, err := Fingerprints()
	if err != nil {
		return "", err
	}
	h := sha256.New()
	for _, d := range digests {
		fmt.Fprintf(h, "%s %s\n", d.SHA256, d.Path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
