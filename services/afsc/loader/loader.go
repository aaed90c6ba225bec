// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package loader reads per-family reference documents from the embedded
// dataset and from search-path directories and merges them into one tree
// per family.
//
// # Search Order
//
// The embedded dataset comes first unless disabled, then every search path
// in the order given. Inside each source the documents live at
// gov_codes/afsc/<file>.yml (or .yaml). Later documents override earlier
// ones key by key at the top level (see reference.BuildTree).
//
// # Failure Handling
//
// A document that cannot be read or decoded is skipped, reported in the
// Report and logged at WARN. It never fails the load. Only configuration
// mistakes (unknown family, cancelled context) return an error.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/AleutianAI/govcodes/pkg/logging"
	"github.com/AleutianAI/govcodes/services/afsc/dataset"
	"github.com/AleutianAI/govcodes/services/afsc/grammar"
	"github.com/AleutianAI/govcodes/services/afsc/reference"
)

// EmbeddedSource is the name of the dataset compiled into the binary.
const EmbeddedSource = "embedded"

// ErrUnknownFamily is returned when no document name is registered for a
// family.
var ErrUnknownFamily = errors.New("unknown code family")

// documentNames maps a family to the base name of its document.
var documentNames = map[string]string{
	grammar.FamilyEnlisted:            "enlisted",
	grammar.FamilyOfficer:             "officer",
	grammar.FamilyReportingIdentifier: "ri",
}

var extensions = []string{".yml", ".yaml"}

// DocumentName returns the base document name for family, e.g. "ri".
func DocumentName(family string) (string, bool) {
	name, ok := documentNames[family]
	return name, ok
}

// DocumentError describes one skipped document.
type DocumentError struct {
	Family string
	Source string
	Path   string
	Err    error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("%s document %s in %s: %v", e.Family, e.Path, e.Source, e.Err)
}

func (e *DocumentError) Unwrap() error { return e.Err }

// Report summarizes one family load.
type Report struct {
	Family string `json:"family"`

	// Loaded lists "source:path" for every merged document, in merge order.
	Loaded []string `json:"loaded"`

	// Skipped lists documents that could not be used.
	Skipped []*DocumentError `json:"-"`
}

// Source is one place documents are read from.
type Source struct {
	Name string
	FS   fs.FS
}

// Options configures a Loader.
type Options struct {
	// SearchPaths are directories searched after the embedded dataset.
	// Duplicates are dropped. A nil or empty list means embedded only.
	SearchPaths []string

	// DisableEmbedded drops the embedded dataset from the search order.
	DisableEmbedded bool

	// Logger receives skipped-document warnings. Default: discard.
	Logger *logging.Logger
}

// Loader builds reference trees from an ordered list of sources.
//
// A Loader is immutable. WithSearchPaths returns a new Loader for reloads.
type Loader struct {
	opts    Options
	sources []Source
	logger  *logging.Logger
}

// New returns a Loader for opts.
func New(opts Options) *Loader {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	var sources []Source
	if !opts.DisableEmbedded {
		sources = append(sources, Source{Name: EmbeddedSource, FS: dataset.FS()})
	}
	seen := make(map[string]bool, len(opts.SearchPaths))
	paths := make([]string, 0, len(opts.SearchPaths))
	for _, p := range opts.SearchPaths {
		if p == "" {
			continue
		}
		clean := filepath.Clean(p)
		if seen[clean] {
			continue
		}
		seen[clean] = true
		paths = append(paths, clean)
		sources = append(sources, Source{Name: clean, FS: os.DirFS(clean)})
	}
	opts.SearchPaths = paths
	opts.Logger = logger

	return &Loader{opts: opts, sources: sources, logger: logger.With("component", "loader")}
}

// WithSearchPaths returns a Loader with the same settings but a new list of
// search paths.
func (l *Loader) WithSearchPaths(paths []string) *Loader {
	opts := l.opts
	opts.SearchPaths = paths
	return New(opts)
}

// SearchPaths returns the de-duplicated search paths.
func (l *Loader) SearchPaths() []string {
	out := make([]string, len(l.opts.SearchPaths))
	copy(out, l.opts.SearchPaths)
	return out
}

// Sources returns the sources in search order.
func (l *Loader) Sources() []Source {
	out := make([]Source, len(l.sources))
	copy(out, l.sources)
	return out
}

// Load reads and merges every document for family.
//
// # Inputs
//
//   - ctx: Checked between sources.
//   - family: A grammar family name.
//
// # Outputs
//
//   - *reference.Table: The merged tree. Empty, never nil, when no usable
//     document exists.
//   - Report: Documents merged and skipped.
//   - error: ErrUnknownFamily or the context error.
func (l *Loader) Load(ctx context.Context, family string) (*reference.Table, Report, error) {
	report := Report{Family: family}
	base, ok := documentNames[family]
	if !ok {
		return nil, report, fmt.Errorf("%w: %q", ErrUnknownFamily, family)
	}

	var docs []*reference.Table
	for _, src := range l.sources {
		if err := ctx.Err(); err != nil {
			return nil, report, err
		}
		for _, ext := range extensions {
			p := path.Join(dataset.Dir, base+ext)
			data, err := fs.ReadFile(src.FS, p)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err == nil {
				var tbl *reference.Table
				tbl, err = reference.Decode(data)
				if errors.Is(err, reference.ErrEmptyDocument) {
					l.logger.Debug("empty reference document", "family", family, "source", src.Name, "path", p)
					continue
				}
				if err == nil {
					docs = append(docs, tbl)
					report.Loaded = append(report.Loaded, src.Name+":"+p)
					continue
				}
			}
			docErr := &DocumentError{Family: family, Source: src.Name, Path: p, Err: err}
			report.Skipped = append(report.Skipped, docErr)
			l.logger.Warn("skipping reference document",
				"family", family,
				"source", src.Name,
				"path", p,
				"error", err.Error(),
			)
		}
	}

	tree := reference.BuildTree(docs...)
	l.logger.Debug("reference tree built",
		"family", family,
		"documents", len(docs),
		"skipped", len(report.Skipped),
		"roots", tree.Len(),
	)
	return tree, report, nil
}
