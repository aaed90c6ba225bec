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
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/govcodes/services/afsc"
	"github.com/AleutianAI/govcodes/services/afsc/family"
)

// FindResult is the JSON output of "govcodes find".
type FindResult struct {
	Results []FindEntry `json:"results"`
	Found   int         `json:"found"`
	Missing int         `json:"missing"`
}

// FindEntry is one queried code.
type FindEntry struct {
	Query    string         `json:"query"`
	Found    bool           `json:"found"`
	Code     *family.Code   `json:"code,omitempty"`
	Attempts []afsc.Attempt `json:"attempts,omitempty"`
}

func newFindCmd(a *app) *cobra.Command {
	var explain bool
	cmd := &cobra.Command{
		Use:   "find CODE [CODE...]",
		Short: "Resolve codes to their titles",
		Long: `Resolves each code against the enlisted, officer and reporting
identifier families in that order and prints the first match.

Exits 1 if any code did not resolve.`,
		Example: `  govcodes find 1A1X2A
  govcodes find 11M3 8G000B --explain`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runFind(cmd, args, explain)
		},
	}
	cmd.Flags().BoolVar(&explain, "explain", false, "show every family's verdict")
	return cmd
}

func (a *app) runFind(cmd *cobra.Command, args []string, explain bool) error {
	start := time.Now()
	ctx := cmd.Context()

	engine, err := a.newEngine(ctx, nil)
	if err != nil {
		return err
	}

	result := FindResult{Results: make([]FindEntry, 0, len(args))}
	for _, q := range args {
		entry := FindEntry{Query: q}
		if explain {
			entry.Attempts = engine.Explain(ctx, q)
		}
		if c, ok := engine.Find(ctx, q); ok {
			entry.Found = true
			entry.Code = &c
			result.Found++
		} else {
			result.Missing++
		}
		result.Results = append(result.Results, entry)
	}

	if a.jsonOutput {
		if err := OutputResult(cmd.OutOrStdout(), "find", start, result); err != nil {
			return err
		}
	} else {
		a.printFind(result)
	}

	if result.Missing > 0 {
		return errFindings
	}
	return nil
}

func (a *app) printFind(result FindResult) {
	p := a.printer
	for _, e := range result.Results {
		if e.Found {
			p.Code(e.Code.String(), e.Code.Family, e.Code.Name)
			if len(e.Attempts) > 0 {
				for _, f := range e.Code.Record.Facets() {
					if f.Present {
						p.Detail(f.Name, f.Value)
					}
				}
			}
		} else {
			p.Missing(e.Query, missingReason(e.Attempts))
		}
		for _, at := range e.Attempts {
			line := string(at.Outcome)
			if at.Reason != "" {
				line += ": " + at.Reason
			}
			p.Detail(at.Family, line)
		}
	}
	if len(result.Results) > 1 {
		p.Summary(result.Found, result.Missing)
	}
}

// missingReason summarizes explain attempts for a miss, or "" without them.
func missingReason(attempts []afsc.Attempt) string {
	if len(attempts) == 0 {
		return ""
	}
	counts := map[family.Outcome]int{}
	for _, at := range attempts {
		counts[at.Outcome]++
	}
	if counts[family.OutcomeDataAbsent] > 0 {
		return "parsed, but no reference entry"
	}
	if counts[family.OutcomeParseIncomplete] == len(attempts) {
		return "incomplete in every family"
	}
	return "not a valid code in any family"
}
