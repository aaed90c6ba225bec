// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package afsc

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/govcodes/services/afsc/family"
	"github.com/AleutianAI/govcodes/services/afsc/grammar"
	"github.com/AleutianAI/govcodes/services/afsc/observability"
)

const riFixture = `
9Z:
  name: Test career field
  subcategories:
    "200":
      name: Test identifier two
      subcategories:
        A: Test suffix A
    "000": Test identifier zero
    "100": Test identifier one
`

func writeDoc(t *testing.T, root, file, content string) {
	t.Helper()
	dir := filepath.Join(root, "gov_codes", "afsc")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(content), 0o644))
}

func newDefault(t *testing.T) *Engine {
	t.Helper()
	e, err := Default()
	require.NoError(t, err)
	return e
}

func TestFindScenarios(t *testing.T) {
	e := newDefault(t)
	ctx := context.Background()

	tests := []struct {
		code   string
		family string
		name   string
	}{
		{"1A1X2", grammar.FamilyEnlisted, "Mobility force aviator"},
		{"1A1X2A", grammar.FamilyEnlisted, "C-5 flight engineer"},
		{"A1A1X2A", grammar.FamilyEnlisted, "C-5 flight engineer"},
		{"11MX", grammar.FamilyOfficer, "Mobility pilot"},
		{"11M0", grammar.FamilyOfficer, "Mobility commander"},
		{"8G000B", grammar.FamilyReportingIdentifier, "Pallbearer"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			code, ok := e.Find(ctx, tt.code)
			require.True(t, ok)
			assert.Equal(t, tt.name, code.Name)
			assert.Equal(t, tt.family, code.Family)
			assert.Equal(t, tt.code, code.String())
		})
	}

	code, ok := e.Find(ctx, "A1A1X2A")
	require.True(t, ok)
	assert.Equal(t, "A", code.Record.Value(grammar.FacetPrefix))
}

func TestFindNotFound(t *testing.T) {
	e := newDefault(t)
	for _, code := range []string{"", "invalid", "1A", "1a1x2", "1A1X2ABC", "!1A1X2", "11M9", "0Q0X0", "8G999", "1A1X2A3", "\xff\xfe"} {
		_, ok := e.Find(context.Background(), code)
		assert.False(t, ok, "%q", code)
	}
}

func TestFindIsIdempotent(t *testing.T) {
	e := newDefault(t)
	first, ok := e.Find(context.Background(), "1A1X2A")
	require.True(t, ok)
	second, ok := e.Find(context.Background(), "1A1X2A")
	require.True(t, ok)
	assert.Equal(t, first, second)
}

func TestSearchScenarios(t *testing.T) {
	e := newDefault(t)
	ctx := context.Background()

	var codes []string
	for _, c := range e.Search(ctx, "1Z1") {
		codes = append(codes, c.String())
	}
	assert.Contains(t, codes, "1Z1X1")

	// Case folding.
	upper := e.Search(ctx, "1A1")
	lower := e.Search(ctx, "1a1")
	require.NotEmpty(t, upper)
	require.Equal(t, len(upper), len(lower))
	for i := range upper {
		assert.Equal(t, upper[i].Name, lower[i].Name)
	}

	assert.Empty(t, e.Search(ctx, "ZZZ"))
}

func TestSearchSpansFamiliesInOrder(t *testing.T) {
	e := newDefault(t)
	results := e.Search(context.Background(), "1")
	require.NotEmpty(t, results)

	order := map[string]int{
		grammar.FamilyEnlisted:            0,
		grammar.FamilyOfficer:             1,
		grammar.FamilyReportingIdentifier: 2,
	}
	last := 0
	seen := map[string]bool{}
	for _, c := range results {
		assert.GreaterOrEqual(t, order[c.Family], last)
		last = order[c.Family]
		seen[c.Family] = true
		assert.True(t, strings.HasPrefix(c.String(), "1"))
	}
	assert.True(t, seen[grammar.FamilyEnlisted])
	assert.True(t, seen[grammar.FamilyOfficer])
}

func TestPrefixLaw(t *testing.T) {
	e := newDefault(t)
	ctx := context.Background()
	for _, prefix := range []string{"", "1", "1A", "1A1X", "11", "11M", "8", "8G000", "9T1"} {
		for _, c := range e.Search(ctx, prefix) {
			require.True(t, strings.HasPrefix(c.String(), prefix), "%q / %q", prefix, c.String())
			found, ok := e.Find(ctx, c.String())
			require.True(t, ok)
			// No shipped code is claimed by a higher-priority family.
			assert.Equal(t, c.Family, found.Family, c.String())
			assert.Equal(t, c.Name, found.Name, c.String())
		}
	}
}

func TestReportingIdentifierFixture(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "ri.yml", riFixture)

	e, err := New(context.Background(), Config{SearchPaths: []string{dir}, DisableEmbedded: true})
	require.NoError(t, err)

	_, ok := e.Find(context.Background(), "9Z999")
	assert.False(t, ok)

	code, ok := e.Find(context.Background(), "9Z200A")
	require.True(t, ok)
	assert.Equal(t, "Test suffix A", code.Name)

	// Nothing else is loaded.
	_, ok = e.Find(context.Background(), "1A1X2")
	assert.False(t, ok)
}

func TestEnlistedWinsOverlap(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "enlisted.yml", "9Z:\n  name: Enlisted side\n  subcategories:\n    \"000\": Enlisted zero\n")
	writeDoc(t, dir, "ri.yml", riFixture)

	e, err := New(context.Background(), Config{
		SearchPaths:       []string{dir},
		DisableEmbedded:   true,
		LegacySkillLevels: true,
	})
	require.NoError(t, err)

	code, ok := e.Find(context.Background(), "9Z000")
	require.True(t, ok)
	assert.Equal(t, grammar.FamilyEnlisted, code.Family)
	assert.Equal(t, "Enlisted zero", code.Name)

	var families []string
	for _, c := range e.Search(context.Background(), "9Z000") {
		families = append(families, c.Family)
	}
	assert.Equal(t, []string{grammar.FamilyEnlisted, grammar.FamilyReportingIdentifier}, families)
}

func TestNumericQualification(t *testing.T) {
	e, err := New(context.Background(), Config{Qualification: grammar.QualificationNumeric})
	require.NoError(t, err)

	_, ok := e.Find(context.Background(), "11MX")
	assert.False(t, ok)
	code, ok := e.Find(context.Background(), "11M2")
	require.True(t, ok)
	assert.Equal(t, "Mobility navigator", code.Name)
}

func TestAllowTrailing(t *testing.T) {
	e, err := New(context.Background(), Config{AllowTrailing: true})
	require.NoError(t, err)
	code, ok := e.Find(context.Background(), "1A1X2A3")
	require.True(t, ok)
	assert.Equal(t, "C-5 flight engineer", code.Name)
}

func TestExplain(t *testing.T) {
	e := newDefault(t)
	attempts := e.Explain(context.Background(), "11MX")
	require.Len(t, attempts, 3)

	assert.Equal(t, grammar.FamilyEnlisted, attempts[0].Family)
	assert.Equal(t, family.OutcomeParseIncomplete, attempts[0].Outcome)
	assert.NotEmpty(t, attempts[0].Reason)
	assert.Nil(t, attempts[0].Code)

	assert.Equal(t, family.OutcomeFound, attempts[1].Outcome)
	require.NotNil(t, attempts[1].Code)
	assert.Equal(t, "Mobility pilot", attempts[1].Code.Name)

	assert.Equal(t, family.OutcomeParseIncomplete, attempts[2].Outcome)

	attempts = e.Explain(context.Background(), "1A1X2ABC")
	assert.Equal(t, family.OutcomeValidationFailure, attempts[0].Outcome)
}

func TestReload(t *testing.T) {
	e := newDefault(t)
	ctx := context.Background()

	code, ok := e.Find(ctx, "1A1X2")
	require.True(t, ok)
	require.Equal(t, "Mobility force aviator", code.Name)

	dir := t.TempDir()
	writeDoc(t, dir, "enlisted.yml", "1A:\n  name: Overridden aircrew\n  subcategories:\n    1X2: Overridden aviator\n")
	writeDoc(t, dir, "officer.yml", "- not\n- a mapping\n")

	reports, err := e.Reload(ctx, []string{dir})
	require.NoError(t, err)
	require.Len(t, reports, 3)
	assert.Len(t, reports[1].Skipped, 1)
	assert.Equal(t, []string{filepath.Clean(dir)}, e.SearchPaths())

	code, ok = e.Find(ctx, "1A1X2")
	require.True(t, ok)
	assert.Equal(t, "Overridden aviator", code.Name)

	// Subtree replaced, other keys intact, officer data still embedded.
	code, ok = e.Find(ctx, "1A1X2A")
	require.True(t, ok)
	assert.Equal(t, "Overridden aviator", code.Name)
	code, ok = e.Find(ctx, "1Z1X1")
	require.True(t, ok)
	assert.Equal(t, "Pararescue", code.Name)
	_, ok = e.Find(ctx, "11MX")
	assert.True(t, ok)

	// Back to embedded only.
	_, err = e.Reload(ctx, nil)
	require.NoError(t, err)
	code, ok = e.Find(ctx, "1A1X2")
	require.True(t, ok)
	assert.Equal(t, "Mobility force aviator", code.Name)
	assert.Empty(t, e.SearchPaths())
}

func TestReloadCancelled(t *testing.T) {
	e := newDefault(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Reload(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)

	_, ok := e.Find(context.Background(), "1A1X2")
	assert.True(t, ok)
}

// cancelAfter reports no error for the first n Err calls and
// context.Canceled afterwards. The loader checks Err once per source, so
// n = sources lets exactly one family load.
type cancelAfter struct {
	context.Context
	left atomic.Int32
}

func newCancelAfter(n int32) *cancelAfter {
	c := &cancelAfter{Context: context.Background()}
	c.left.Store(n)
	return c
}

func (c *cancelAfter) Err() error {
	if c.left.Add(-1) < 0 {
		return context.Canceled
	}
	return nil
}

func TestReloadFailureKeepsEveryFamily(t *testing.T) {
	e := newDefault(t)
	dir := t.TempDir()
	writeDoc(t, dir, "enlisted.yml", "1A:\n  name: Overridden aircrew\n  subcategories:\n    1X2: Overridden aviator\n")
	writeDoc(t, dir, "officer.yml", "11MX:\n  name: Overridden pilot\n")

	// Embedded dataset plus dir: two sources per family.
	_, err := e.Reload(newCancelAfter(2), []string{dir})
	require.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), grammar.FamilyOfficer)

	ctx := context.Background()
	code, ok := e.Find(ctx, "1A1X2")
	require.True(t, ok)
	assert.Equal(t, "Mobility force aviator", code.Name)
	code, ok = e.Find(ctx, "11MX")
	require.True(t, ok)
	assert.Equal(t, "Mobility pilot", code.Name)
	assert.Empty(t, e.SearchPaths())

	// A later Refresh still serves the embedded data.
	_, err = e.Refresh(ctx)
	require.NoError(t, err)
	code, ok = e.Find(ctx, "1A1X2")
	require.True(t, ok)
	assert.Equal(t, "Mobility force aviator", code.Name)

	// Without the failure both overrides land together.
	_, err = e.Reload(ctx, []string{dir})
	require.NoError(t, err)
	code, ok = e.Find(ctx, "1A1X2")
	require.True(t, ok)
	assert.Equal(t, "Overridden aviator", code.Name)
	code, ok = e.Find(ctx, "11MX")
	require.True(t, ok)
	assert.Equal(t, "Overridden pilot", code.Name)
	assert.Equal(t, []string{filepath.Clean(dir)}, e.SearchPaths())
}

func TestOnReload(t *testing.T) {
	e := newDefault(t)
	var got [][]string
	e.OnReload(func(paths []string) {
		// The engine lock is released before hooks run.
		assert.Equal(t, paths, e.SearchPaths())
		got = append(got, paths)
	})

	dir := t.TempDir()
	_, err := e.Reload(context.Background(), []string{dir})
	require.NoError(t, err)
	_, err = e.Reload(newCancelAfter(0), nil)
	require.Error(t, err)
	_, err = e.Refresh(context.Background())
	require.NoError(t, err)

	want := []string{filepath.Clean(dir)}
	assert.Equal(t, [][]string{want, want}, got)
}

func TestRefresh(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "ri.yml", riFixture)
	e, err := New(context.Background(), Config{SearchPaths: []string{dir}})
	require.NoError(t, err)

	writeDoc(t, dir, "ri.yml", "9Z:\n  name: Test\n  subcategories:\n    \"999\": Now present\n")
	_, err = e.Refresh(context.Background())
	require.NoError(t, err)

	code, ok := e.Find(context.Background(), "9Z999")
	require.True(t, ok)
	assert.Equal(t, "Now present", code.Name)
}

func TestConcurrentFindDuringReload(t *testing.T) {
	e := newDefault(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if _, ok := e.Find(ctx, "11M0"); !ok {
					t.Error("11M0 not found during reload")
					return
				}
				_ = e.Search(ctx, "1Z")
			}
		}()
	}
	for i := 0; i < 5; i++ {
		_, err := e.Reload(ctx, nil)
		require.NoError(t, err)
	}
	wg.Wait()
}

func TestMetricsWiring(t *testing.T) {
	m := observability.NewMetrics(nil)
	e, err := New(context.Background(), Config{Metrics: m})
	require.NoError(t, err)

	e.Find(context.Background(), "11MX")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LookupsTotal.WithLabelValues(grammar.FamilyEnlisted, "parse_incomplete")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LookupsTotal.WithLabelValues(grammar.FamilyOfficer, "found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReloadsTotal.WithLabelValues(grammar.FamilyOfficer, "ok")))
}

func TestFamilies(t *testing.T) {
	e := newDefault(t)
	var names []string
	for _, f := range e.Families() {
		names = append(names, f.Name())
	}
	assert.Equal(t, []string{grammar.FamilyEnlisted, grammar.FamilyOfficer, grammar.FamilyReportingIdentifier}, names)

	f, ok := e.Family(grammar.FamilyOfficer)
	require.True(t, ok)
	assert.Equal(t, grammar.FamilyOfficer, f.Name())
	_, ok = e.Family("warrant")
	assert.False(t, ok)
}
