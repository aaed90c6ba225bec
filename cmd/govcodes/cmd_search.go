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
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/govcodes/pkg/validation"
	"github.com/AleutianAI/govcodes/services/afsc/family"
)

// SearchResult is the JSON output of "govcodes search".
type SearchResult struct {
	Prefix    string        `json:"prefix"`
	Count     int           `json:"count"`
	Truncated bool          `json:"truncated,omitempty"`
	Codes     []family.Code `json:"codes"`
}

func newSearchCmd(a *app) *cobra.Command {
	var (
		familyName string
		limit      int
	)
	cmd := &cobra.Command{
		Use:   "search [PREFIX]",
		Short: "List codes starting with a prefix",
		Long: `Lists every resolvable code that starts with PREFIX, enlisted first,
then officer, then reporting identifiers. Matching ignores case. With no
prefix every code is listed.

Exits 1 if nothing matched.`,
		Example: `  govcodes search 1A1
  govcodes search 11 --family officer --limit 20`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			return a.runSearch(cmd, prefix, familyName, limit)
		},
	}
	cmd.Flags().StringVar(&familyName, "family", "", "restrict to one family: enlisted, officer, reporting_identifier")
	cmd.Flags().IntVar(&limit, "limit", 0, "print at most this many codes (0 = all)")
	return cmd
}

func (a *app) runSearch(cmd *cobra.Command, raw, familyName string, limit int) error {
	start := time.Now()
	ctx := cmd.Context()

	prefix, err := validation.SanitizePrefix(raw)
	if err != nil {
		return err
	}
	if limit < 0 {
		return fmt.Errorf("--limit must be >= 0, got %d", limit)
	}

	engine, err := a.newEngine(ctx, nil)
	if err != nil {
		return err
	}

	var codes []family.Code
	if familyName != "" {
		f, ok := engine.Family(familyName)
		if !ok {
			return fmt.Errorf("unknown family %q", familyName)
		}
		codes = f.Search(ctx, prefix)
	} else {
		codes = engine.Search(ctx, prefix)
	}

	result := SearchResult{Prefix: prefix, Count: len(codes), Codes: codes}
	if limit > 0 && len(codes) > limit {
		result.Codes = codes[:limit]
		result.Truncated = true
	}
	if result.Codes == nil {
		result.Codes = []family.Code{}
	}

	if a.jsonOutput {
		if err := OutputResult(cmd.OutOrStdout(), "search", start, result); err != nil {
			return err
		}
	} else {
		for _, c := range result.Codes {
			a.printer.Code(c.String(), c.Family, c.Name)
		}
		if result.Truncated {
			a.printer.Muted(fmt.Sprintf("... %d more", result.Count-len(result.Codes)))
		}
	}

	if result.Count == 0 {
		return errFindings
	}
	return nil
}
