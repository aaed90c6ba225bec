// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package afsc looks up Air Force Specialty Codes and Reporting Identifiers.
//
// # Description
//
// An Engine holds one family.Family per code family and dispatches across
// them. Find tries the families in a fixed priority order (enlisted,
// officer, reporting identifier) and returns the first hit. Search is
// exhaustive and concatenates every family's results in the same order.
//
// # Basic Usage
//
//	engine, err := afsc.Default()
//	if err != nil {
//	    return err
//	}
//	code, ok := engine.Find(ctx, "1A1X2A")
//	// code.Name == "C-5 flight engineer"
//
// # Thread Safety
//
// Engine is safe for concurrent use, including Find and Search during a
// Reload.
package afsc

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/govcodes/pkg/logging"
	"github.com/AleutianAI/govcodes/services/afsc/family"
	"github.com/AleutianAI/govcodes/services/afsc/grammar"
	"github.com/AleutianAI/govcodes/services/afsc/loader"
	"github.com/AleutianAI/govcodes/services/afsc/observability"
)

var tracer = otel.Tracer("govcodes.afsc")

// Config configures an Engine. The zero value serves the embedded dataset
// with the default grammars.
type Config struct {
	// SearchPaths are directories holding gov_codes/afsc/*.yml overrides,
	// applied after the embedded dataset in order.
	SearchPaths []string

	// DisableEmbedded leaves the embedded dataset out of the search order.
	DisableEmbedded bool

	// Qualification selects the officer qualification-level class.
	Qualification grammar.QualificationClass

	// LegacySkillLevels accepts digit enlisted skill levels.
	LegacySkillLevels bool

	// AllowTrailing accepts codes with unconsumed trailing input.
	AllowTrailing bool

	// CacheSize is the per-family lookup cache size. 0 uses the default.
	CacheSize int

	// Logger defaults to discard.
	Logger *logging.Logger

	// Metrics is optional.
	Metrics *observability.Metrics
}

// Engine dispatches lookups across the code families.
type Engine struct {
	families []*family.Family
	byName   map[string]*family.Family
	logger   *logging.Logger

	mu       sync.Mutex
	loader   *loader.Loader
	onReload []func(paths []string)
}

// Grammars returns the family grammars for cfg in dispatch order.
func (cfg Config) Grammars() []*grammar.Grammar {
	trailing := grammar.AllowTrailingInput(cfg.AllowTrailing)
	return []*grammar.Grammar{
		grammar.Enlisted(grammar.LegacySkillLevels(cfg.LegacySkillLevels), trailing),
		grammar.Officer(grammar.WithQualificationClass(cfg.Qualification), trailing),
		grammar.ReportingIdentifier(trailing),
	}
}

// New builds an Engine and loads every family.
//
// # Inputs
//
//   - ctx: Bounds the initial load.
//   - cfg: Engine configuration.
//
// # Outputs
//
//   - *Engine: Ready for lookups. Documents that failed to decode have
//     been skipped and logged.
//   - error: Non-nil only if ctx was cancelled or a family could not be
//     built.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	l := loader.New(loader.Options{
		SearchPaths:     cfg.SearchPaths,
		DisableEmbedded: cfg.DisableEmbedded,
		Logger:          logger,
	})

	opts := []family.Option{
		family.WithCacheSize(cfg.CacheSize),
		family.WithLogger(logger),
	}
	if cfg.Metrics != nil {
		opts = append(opts, family.WithRecorder(cfg.Metrics))
	}

	e := &Engine{
		byName: make(map[string]*family.Family, 3),
		logger: logger.With("component", "engine"),
		loader: l,
	}
	for _, g := range cfg.Grammars() {
		f, err := family.Load(ctx, g, l, opts...)
		if err != nil {
			return nil, fmt.Errorf("loading %s family: %w", g.Family, err)
		}
		e.families = append(e.families, f)
		e.byName[f.Name()] = f
	}
	return e, nil
}

// Default returns an Engine over the embedded dataset only.
func Default() (*Engine, error) {
	return New(context.Background(), Config{})
}

// Find returns the first family result for code, or false.
func (e *Engine) Find(ctx context.Context, code string) (family.Code, bool) {
	ctx, span := tracer.Start(ctx, "Engine.Find", trace.WithAttributes(attribute.String("afsc.code", code)))
	defer span.End()

	for _, f := range e.families {
		if c, ok := f.Find(ctx, code); ok {
			span.SetAttributes(attribute.String("afsc.family", c.Family))
			return c, true
		}
	}
	span.SetAttributes(attribute.Bool("afsc.not_found", true))
	return family.Code{}, false
}

// Search returns every family's results for prefix, enlisted first. Codes
// matching in more than one family appear once per family.
func (e *Engine) Search(ctx context.Context, prefix string) []family.Code {
	ctx, span := tracer.Start(ctx, "Engine.Search", trace.WithAttributes(attribute.String("afsc.prefix", prefix)))
	defer span.End()

	var out []family.Code
	for _, f := range e.families {
		out = append(out, f.Search(ctx, prefix)...)
	}
	span.SetAttributes(attribute.Int("afsc.results", len(out)))
	return out
}

// Attempt is one family's verdict on a code.
type Attempt struct {
	Family  string         `json:"family"`
	Outcome family.Outcome `json:"outcome"`
	Reason  string         `json:"reason,omitempty"`
	Code    *family.Code   `json:"code,omitempty"`
}

// Explain runs code through every family and reports each outcome, in
// dispatch order. Unlike Find it does not stop at the first hit.
func (e *Engine) Explain(ctx context.Context, code string) []Attempt {
	out := make([]Attempt, 0, len(e.families))
	for _, f := range e.families {
		c, err := f.Lookup(ctx, code)
		a := Attempt{Family: f.Name(), Outcome: family.Classify(err)}
		if err != nil {
			a.Reason = err.Error()
		} else {
			a.Code = &c
		}
		out = append(out, a)
	}
	return out
}

// Reload rebuilds every family from the embedded dataset (unless disabled)
// and paths. nil paths means embedded data only.
//
// Every family is loaded before any is swapped in. If one fails, all
// families and the search paths stay as they were. A concurrent reader
// may still briefly see one family swapped and the next not yet.
func (e *Engine) Reload(ctx context.Context, paths []string) ([]loader.Report, error) {
	reports, hooks, current, err := e.reload(ctx, paths)
	if err != nil {
		return reports, err
	}
	for _, fn := range hooks {
		fn(current)
	}
	return reports, nil
}

// OnReload registers fn to run after every successful Reload or Refresh
// with the search paths now in effect. Hooks run on the reloading
// goroutine, after the engine lock is released.
func (e *Engine) OnReload(fn func(paths []string)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onReload = append(e.onReload, fn)
}

func (e *Engine) reload(ctx context.Context, paths []string) ([]loader.Report, []func([]string), []string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	l := e.loader.WithSearchPaths(paths)
	pending := make([]family.Pending, 0, len(e.families))
	reports := make([]loader.Report, 0, len(e.families))
	for _, f := range e.families {
		p, err := f.Prepare(ctx, l)
		if err != nil {
			return reports, nil, nil, err
		}
		pending = append(pending, p)
		reports = append(reports, p.Report())
	}
	for i, f := range e.families {
		if err := f.Commit(pending[i]); err != nil {
			return reports, nil, nil, err
		}
	}
	e.loader = l

	skipped := 0
	for _, r := range reports {
		skipped += len(r.Skipped)
	}
	e.logger.Info("reference data reloaded", "search_paths", l.SearchPaths(), "skipped", skipped)
	hooks := append(([]func([]string))(nil), e.onReload...)
	return reports, hooks, l.SearchPaths(), nil
}

// Refresh reloads from the current search paths.
func (e *Engine) Refresh(ctx context.Context) ([]loader.Report, error) {
	return e.Reload(ctx, e.SearchPaths())
}

// SearchPaths returns the search paths currently in effect.
func (e *Engine) SearchPaths() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loader.SearchPaths()
}

// Families returns the families in dispatch order.
func (e *Engine) Families() []*family.Family {
	out := make([]*family.Family, len(e.families))
	copy(out, e.families)
	return out
}

// Family returns the family with the given name.
func (e *Engine) Family(name string) (*family.Family, bool) {
	f, ok := e.byName[name]
	return f, ok
}
