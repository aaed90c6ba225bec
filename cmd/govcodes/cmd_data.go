// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"io/fs"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/govcodes/services/afsc/dataset"
	"github.com/AleutianAI/govcodes/services/afsc/family"
	"github.com/AleutianAI/govcodes/services/afsc/grammar"
	"github.com/AleutianAI/govcodes/services/afsc/loader"
	"github.com/AleutianAI/govcodes/services/afsc/reference"
)

// =============================================================================
// families
// =============================================================================

func newFamiliesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "families",
		Short: "Show the loaded families and their reference trees",
		Args:  cobra.NoArgs,
		RunE:  a.runFamilies,
	}
}

func (a *app) runFamilies(cmd *cobra.Command, args []string) error {
	start := time.Now()
	engine, err := a.newEngine(cmd.Context(), nil)
	if err != nil {
		return err
	}

	stats := make([]family.Stats, 0, 3)
	for _, f := range engine.Families() {
		stats = append(stats, f.Stats())
	}
	if a.jsonOutput {
		return OutputResult(cmd.OutOrStdout(), "families", start, stats)
	}

	rows := make([][]string, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, []string{
			s.Family,
			strconv.Itoa(s.Tree.Roots),
			strconv.Itoa(s.Tree.Entries),
			strconv.Itoa(s.Tree.MaxDepth),
			strconv.Itoa(len(s.Documents)),
			strconv.Itoa(s.Skipped),
		})
	}
	a.printer.Table([]string{"FAMILY", "ROOTS", "ENTRIES", "DEPTH", "DOCUMENTS", "SKIPPED"}, rows)
	return nil
}

// =============================================================================
// data
// =============================================================================

func newDataCmd(a *app) *cobra.Command {
	dataCmd := &cobra.Command{
		Use:   "data",
		Short: "Inspect the reference data",
	}
	dataCmd.AddCommand(
		&cobra.Command{
			Use:   "verify",
			Short: "Hash and decode every embedded reference document",
			Long: `Prints the SHA-256 of every embedded document and a combined dataset
fingerprint, and checks that each document decodes.

Exits 1 if any document fails to decode.`,
			Args: cobra.NoArgs,
			RunE: a.runDataVerify,
		},
		&cobra.Command{
			Use:   "dump FAMILY",
			Short: "Print a family's merged reference tree as YAML",
			Long: `Prints the tree a family is serving after every source has been
merged, in the same document format the loader reads.`,
			Example:   "  govcodes data dump officer --search-path /etc/govcodes",
			Args:      cobra.ExactArgs(1),
			ValidArgs: []string{grammar.FamilyEnlisted, grammar.FamilyOfficer, grammar.FamilyReportingIdentifier},
			RunE:      a.runDataDump,
		},
		&cobra.Command{
			Use:   "sources",
			Short: "List reference sources in merge order",
			Args:  cobra.NoArgs,
			RunE:  a.runDataSources,
		},
	)
	return dataCmd
}

// VerifyResult is the JSON output of "govcodes data verify".
type VerifyResult struct {
	Fingerprint string           `json:"fingerprint"`
	Documents   []VerifyDocument `json:"documents"`
	Valid       bool             `json:"valid"`
}

// VerifyDocument is one embedded document.
type VerifyDocument struct {
	dataset.Digest
	Roots int    `json:"roots"`
	Error string `json:"error,omitempty"`
}

func (a *app) runDataVerify(cmd *cobra.Command, args []string) error {
	start := time.Now()
	digests, err := dataset.Fingerprints()
	if err != nil {
		return err
	}
	fp, err := dataset.Fingerprint()
	if err != nil {
		return err
	}

	result := VerifyResult{Fingerprint: fp, Valid: true}
	for _, d := range digests {
		doc := VerifyDocument{Digest: d}
		data, err := fs.ReadFile(dataset.FS(), d.Path)
		if err == nil {
			var t *reference.Table
			if t, err = reference.Decode(data); err == nil {
				doc.Roots = t.Len()
			}
		}
		if err != nil {
			doc.Error = err.Error()
			result.Valid = false
		}
		result.Documents = append(result.Documents, doc)
	}

	if a.jsonOutput {
		if err := OutputResult(cmd.OutOrStdout(), "data verify", start, result); err != nil {
			return err
		}
	} else {
		rows := make([][]string, 0, len(result.Documents))
		for _, d := range result.Documents {
			status := "ok"
			if d.Error != "" {
				status = d.Error
			}
			rows = append(rows, []string{d.Path, strconv.Itoa(d.Size), d.SHA256, strconv.Itoa(d.Roots), status})
		}
		a.printer.Table([]string{"PATH", "BYTES", "SHA256", "ROOTS", "STATUS"}, rows)
		if result.Valid {
			a.printer.Success("dataset " + fp)
		} else {
			a.printer.Error("dataset " + fp + " has documents that do not decode")
		}
	}

	if !result.Valid {
		return errFindings
	}
	return nil
}

func (a *app) runDataDump(cmd *cobra.Command, args []string) error {
	engine, err := a.newEngine(cmd.Context(), nil)
	if err != nil {
		return err
	}
	f, ok := engine.Family(args[0])
	if !ok {
		return fmt.Errorf("unknown family %q", args[0])
	}
	out, err := reference.Encode(f.Tree())
	if err != nil {
		return fmt.Errorf("encoding %s tree: %w", f.Name(), err)
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}

// SourceInfo is one entry of "govcodes data sources".
type SourceInfo struct {
	Order     int      `json:"order"`
	Name      string   `json:"name"`
	Documents []string `json:"documents"`
}

func (a *app) runDataSources(cmd *cobra.Command, args []string) error {
	start := time.Now()
	l := loader.New(loader.Options{
		SearchPaths:     a.cfg.Data.SearchPaths,
		DisableEmbedded: a.cfg.Data.DisableEmbedded,
		Logger:          a.logger,
	})

	var infos []SourceInfo
	for i, src := range l.Sources() {
		info := SourceInfo{Order: i + 1, Name: src.Name, Documents: []string{}}
		for _, fam := range []string{grammar.FamilyEnlisted, grammar.FamilyOfficer, grammar.FamilyReportingIdentifier} {
			base, _ := loader.DocumentName(fam)
			for _, ext := range []string{".yml", ".yaml"} {
				p := dataset.Dir + "/" + base + ext
				if _, err := fs.Stat(src.FS, p); err == nil {
					info.Documents = append(info.Documents, p)
				}
			}
		}
		infos = append(infos, info)
	}

	if a.jsonOutput {
		return OutputResult(cmd.OutOrStdout(), "data sources", start, infos)
	}
	rows := make([][]string, 0, len(infos))
	for _, in := range infos {
		docs := "-"
		if len(in.Documents) > 0 {
			docs = fmt.Sprint(in.Documents)
		}
		rows = append(rows, []string{strconv.Itoa(in.Order), in.Name, docs})
	}
	a.printer.Table([]string{"ORDER", "SOURCE", "DOCUMENTS"}, rows)
	return nil
}
