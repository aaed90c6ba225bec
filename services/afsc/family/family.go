// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package family resolves codes of one code family against its reference
// tree.
//
// # Description
//
// A Family couples a compiled grammar with the current reference tree and
// a bounded lookup cache. Lookup runs scan, validation and resolution;
// Search walks the tree for codes starting with a prefix and resolves each
// candidate the same way.
//
// # Reloads
//
// The tree, its cache and its load report form one immutable snapshot held
// in an atomic pointer. Reload and Replace build a new snapshot and swap it
// in. A reader that loaded the old snapshot finishes against the old tree;
// no reader ever sees a half-built tree or a cache entry from a different
// tree.
//
// # Thread Safety
//
// All methods are safe for concurrent use.
package family

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/AleutianAI/govcodes/pkg/logging"
	"github.com/AleutianAI/govcodes/pkg/validation"
	"github.com/AleutianAI/govcodes/services/afsc/grammar"
	"github.com/AleutianAI/govcodes/services/afsc/loader"
	"github.com/AleutianAI/govcodes/services/afsc/reference"
)

// DefaultCacheSize is the lookup cache capacity used when none is set.
const DefaultCacheSize = 4096

// ErrNoSource is returned by Reload on a family built without a Source.
var ErrNoSource = errors.New("family has no reference source")

// ErrForeignPending is returned by Commit for a Pending this family did
// not prepare.
var ErrForeignPending = errors.New("pending tree belongs to another family")

// Source supplies reference trees. *loader.Loader implements it.
type Source interface {
	Load(ctx context.Context, family string) (*reference.Table, loader.Report, error)
}

// Recorder receives lookup, search and reload observations.
// observability.Metrics implements it.
type Recorder interface {
	RecordLookup(family, outcome string, d time.Duration)
	RecordSearch(family string, results int)
	RecordReload(family, status string, skipped int)
}

type nopRecorder struct{}

func (nopRecorder) RecordLookup(string, string, time.Duration) {}
func (nopRecorder) RecordSearch(string, int)                   {}
func (nopRecorder) RecordReload(string, string, int)           {}

// Option configures a Family.
type Option func(*Family)

// WithCacheSize sets the lookup cache capacity. n <= 0 selects
// DefaultCacheSize.
func WithCacheSize(n int) Option {
	return func(f *Family) {
		if n > 0 {
			f.cacheSize = n
		}
	}
}

// WithLogger sets the logger. Default: discard.
func WithLogger(l *logging.Logger) Option {
	return func(f *Family) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(f *Family) {
		if r != nil {
			f.recorder = r
		}
	}
}

// WithSource sets the source used by Reload.
func WithSource(s Source) Option {
	return func(f *Family) { f.source = s }
}

// snapshot is the unit swapped on reload.
type snapshot struct {
	table      *reference.Table
	cache      *lru.Cache[string, Code]
	report     loader.Report
	generation uint64
	loadedAt   time.Time
}

// Family resolves codes of one family.
type Family struct {
	grammar   *grammar.Grammar
	source    Source
	cacheSize int
	logger    *logging.Logger
	recorder  Recorder

	snap     atomic.Pointer[snapshot]
	gen      atomic.Uint64
	group    singleflight.Group
	reloadMu sync.Mutex

	hits   atomic.Int64
	misses atomic.Int64
}

// New returns a Family for g serving table.
//
// # Inputs
//
//   - g: A family grammar. Compiled here if it is not already.
//   - table: The initial reference tree. nil means empty.
//   - opts: Cache size, logger, recorder and reload source.
//
// # Outputs
//
//   - *Family: Ready for lookups.
//   - error: Non-nil if g does not compile.
func New(g *grammar.Grammar, table *reference.Table, opts ...Option) (*Family, error) {
	if err := g.Compile(); err != nil {
		return nil, err
	}
	f := &Family{
		grammar:   g,
		cacheSize: DefaultCacheSize,
		logger:    logging.Discard(),
		recorder:  nopRecorder{},
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.With("family", g.Family)

	snap, err := f.newSnapshot(table, loader.Report{Family: g.Family})
	if err != nil {
		return nil, err
	}
	f.snap.Store(snap)
	return f, nil
}

// Load builds a Family whose initial tree comes from src.
func Load(ctx context.Context, g *grammar.Grammar, src Source, opts ...Option) (*Family, error) {
	f, err := New(g, nil, append(opts, WithSource(src))...)
	if err != nil {
		return nil, err
	}
	if _, err := f.Reload(ctx); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Family) newSnapshot(table *reference.Table, report loader.Report) (*snapshot, error) {
	if table == nil {
		table = reference.NewTable()
	}
	cache, err := lru.New[string, Code](f.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating %s lookup cache: %w", f.grammar.Family, err)
	}
	return &snapshot{
		table:      table,
		cache:      cache,
		report:     report,
		generation: f.gen.Add(1),
		loadedAt:   time.Now(),
	}, nil
}

// Name returns the family name.
func (f *Family) Name() string { return f.grammar.Family }

// Grammar returns the family grammar.
func (f *Family) Grammar() *grammar.Grammar { return f.grammar }

// Scan exposes the family scanner.
func (f *Family) Scan(code string) grammar.Record { return f.grammar.Scan(code) }

// Tree returns the current reference tree. It must not be modified.
func (f *Family) Tree() *reference.Table { return f.snap.Load().table }

// Find returns the resolved code and true, or false when code does not
// resolve in this family for any reason.
func (f *Family) Find(ctx context.Context, code string) (Code, bool) {
	c, err := f.Lookup(ctx, code)
	return c, err == nil
}

// Lookup resolves code and reports why it failed.
//
// # Outputs
//
//   - Code: The resolved code when error is nil.
//   - error: Wraps ErrParseIncomplete, ErrValidation or ErrDataAbsent.
//
// # Behavior
//
// Successful results are cached per snapshot; failures are not, so a
// reload that adds data takes effect immediately. Concurrent first lookups
// of the same code share one resolution.
func (f *Family) Lookup(ctx context.Context, code string) (Code, error) {
	start := time.Now()
	ctx, span := startSpan(ctx, "Lookup", f.grammar.Family, attribute.String("afsc.code", code))
	defer span.End()

	snap := f.snap.Load()
	c, cached, err := f.lookup(ctx, snap, code)
	outcome := Classify(err)
	elapsed := time.Since(start)

	setLookupResult(span, outcome, cached)
	recordLookupDuration(ctx, f.grammar.Family, outcome, elapsed)
	f.recorder.RecordLookup(f.grammar.Family, string(outcome), elapsed)
	if err != nil {
		f.logger.Debug("lookup failed", "code", code, "outcome", string(outcome), "reason", err.Error())
	} else {
		f.logger.Debug("lookup", "code", code, "outcome", string(outcome), "name", c.Name, "cached", cached)
	}
	return c, err
}

// lookup resolves code against one snapshot.
func (f *Family) lookup(ctx context.Context, snap *snapshot, code string) (Code, bool, error) {
	if c, ok := snap.cache.Get(code); ok {
		f.hits.Add(1)
		recordCacheHit(ctx, f.grammar.Family)
		return c, true, nil
	}
	f.misses.Add(1)
	recordCacheMiss(ctx, f.grammar.Family)

	key := strconv.FormatUint(snap.generation, 10) + "/" + code
	v, err, _ := f.group.Do(key, func() (any, error) {
		c, err := f.resolve(snap, code)
		if err != nil {
			return nil, err
		}
		snap.cache.Add(code, c)
		return c, nil
	})
	if err != nil {
		return Code{}, false, err
	}
	return v.(Code), false, nil
}

// resolve is the uncached scan, validate and descend.
func (f *Family) resolve(snap *snapshot, code string) (Code, error) {
	g := f.grammar
	rec := g.Scan(code)
	if err := g.Validate(code, rec); err != nil {
		return Code{}, err
	}

	keys := rec.PathKeys()
	name, depth := reference.Resolve(snap.table, keys)
	switch {
	case depth == 0:
		return Code{}, fmt.Errorf("%w: %s key %q not in reference data", ErrDataAbsent, g.Family, keys[0])
	case depth < g.MinDepth:
		return Code{}, fmt.Errorf("%w: %s %s matched %d of %d required levels", ErrDataAbsent, g.Family, code, depth, g.MinDepth)
	case name == "":
		return Code{}, fmt.Errorf("%w: %s %s has no name at any matched level", ErrDataAbsent, g.Family, code)
	case name == SentinelName:
		return Code{}, fmt.Errorf("%w: %s %s resolves to the %q marker", ErrDataAbsent, g.Family, code, SentinelName)
	}
	return Code{Family: g.Family, Name: name, Record: rec}, nil
}

// Search returns every code in the tree that starts with prefix and
// resolves, depth-first in stored order.
//
// The prefix is trimmed and upper-cased. Search never fails: candidates
// that do not resolve are dropped and logged at DEBUG.
func (f *Family) Search(ctx context.Context, prefix string) []Code {
	p := validation.NormalizePrefix(prefix)
	ctx, span := startSpan(ctx, "Search", f.grammar.Family, attribute.String("afsc.prefix", p))
	defer span.End()

	snap := f.snap.Load()
	candidates := reference.Collect(snap.table, p)
	out := make([]Code, 0, len(candidates))
	for _, candidate := range candidates {
		c, _, err := f.lookup(ctx, snap, candidate)
		if err != nil {
			f.logger.Debug("search candidate dropped", "candidate", candidate, "reason", err.Error())
			continue
		}
		out = append(out, c)
	}

	span.SetAttributes(attribute.Int("afsc.results", len(out)))
	f.recorder.RecordSearch(f.grammar.Family, len(out))
	return out
}

// Reload rebuilds the tree from the family's Source and swaps it in.
//
// # Outputs
//
//   - loader.Report: Documents merged and skipped.
//   - error: ErrNoSource, or the Source's configuration error. The current
//     tree is kept on error.
func (f *Family) Reload(ctx context.Context) (loader.Report, error) {
	f.reloadMu.Lock()
	defer f.reloadMu.Unlock()
	if f.source == nil {
		return loader.Report{Family: f.grammar.Family}, ErrNoSource
	}
	return f.reloadLocked(ctx, f.source)
}

// ReloadFrom rebuilds the tree from src and makes src the Source for later
// reloads.
func (f *Family) ReloadFrom(ctx context.Context, src Source) (loader.Report, error) {
	f.reloadMu.Lock()
	defer f.reloadMu.Unlock()
	return f.reloadLocked(ctx, src)
}

func (f *Family) reloadLocked(ctx context.Context, src Source) (loader.Report, error) {
	p, err := f.Prepare(ctx, src)
	if err != nil {
		return p.report, err
	}
	f.commitLocked(p)
	return p.report, nil
}

// Pending is a reference tree loaded by Prepare that does not serve
// lookups until Commit.
type Pending struct {
	family string
	snap   *snapshot
	report loader.Report
	src    Source
}

// Report returns the documents merged and skipped for the pending tree.
func (p Pending) Report() loader.Report { return p.report }

// Prepare loads a tree from src without swapping it in. The current tree
// keeps serving until the result is passed to Commit.
//
// # Outputs
//
//   - Pending: The loaded tree with a fresh cache.
//   - error: The Source's configuration or context error.
func (f *Family) Prepare(ctx context.Context, src Source) (Pending, error) {
	ctx, span := startSpan(ctx, "Prepare", f.grammar.Family)
	defer span.End()

	table, report, err := src.Load(ctx, f.grammar.Family)
	if err != nil {
		span.RecordError(err)
		f.recorder.RecordReload(f.grammar.Family, "error", 0)
		f.logger.Error("reload failed", "error", err.Error())
		return Pending{report: report}, fmt.Errorf("reloading %s: %w", f.grammar.Family, err)
	}
	snap, err := f.newSnapshot(table, report)
	if err != nil {
		return Pending{report: report}, err
	}
	return Pending{family: f.grammar.Family, snap: snap, report: report, src: src}, nil
}

// Commit swaps in a tree from Prepare and makes its Source the one used
// by later reloads.
//
// # Outputs
//
//   - error: ErrForeignPending if p was prepared by another family or is
//     the zero value.
func (f *Family) Commit(p Pending) error {
	if p.snap == nil || p.family != f.grammar.Family {
		return ErrForeignPending
	}
	f.reloadMu.Lock()
	defer f.reloadMu.Unlock()
	f.commitLocked(p)
	return nil
}

func (f *Family) commitLocked(p Pending) {
	f.snap.Store(p.snap)
	f.source = p.src

	status := "ok"
	if len(p.report.Skipped) > 0 {
		status = "partial"
	}
	f.recorder.RecordReload(f.grammar.Family, status, len(p.report.Skipped))
	f.logger.Info("reference data loaded",
		"roots", p.snap.table.Len(),
		"documents", len(p.report.Loaded),
		"skipped", len(p.report.Skipped),
		"generation", p.snap.generation,
	)
}

// Replace swaps in table directly, bypassing the Source.
func (f *Family) Replace(table *reference.Table) error {
	f.reloadMu.Lock()
	defer f.reloadMu.Unlock()
	return f.swap(table, loader.Report{Family: f.grammar.Family})
}

func (f *Family) swap(table *reference.Table, report loader.Report) error {
	snap, err := f.newSnapshot(table, report)
	if err != nil {
		return err
	}
	f.snap.Store(snap)
	return nil
}

// Stats describes the current snapshot and cache counters.
type Stats struct {
	Family     string          `json:"family"`
	Generation uint64          `json:"generation"`
	LoadedAt   time.Time       `json:"loaded_at"`
	Documents  []string        `json:"documents"`
	Skipped    int             `json:"skipped"`
	Tree       reference.Stats `json:"tree"`
	CacheSize  int             `json:"cache_size"`
	CacheLen   int             `json:"cache_len"`
	CacheHits  int64           `json:"cache_hits"`
	CacheMiss  int64           `json:"cache_misses"`
}

// Stats returns a point-in-time view of the family.
func (f *Family) Stats() Stats {
	snap := f.snap.Load()
	docs := make([]string, len(snap.report.Loaded))
	copy(docs, snap.report.Loaded)
	return Stats{
		Family:     f.grammar.Family,
		Generation: snap.generation,
		LoadedAt:   snap.loadedAt,
		Documents:  docs,
		Skipped:    len(snap.report.Skipped),
		Tree:       reference.Count(snap.table),
		CacheSize:  f.cacheSize,
		CacheLen:   snap.cache.Len(),
		CacheHits:  f.hits.Load(),
		CacheMiss:  f.misses.Load(),
	}
}
