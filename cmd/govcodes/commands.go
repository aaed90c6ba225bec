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
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/govcodes/cmd/govcodes/config"
	"github.com/AleutianAI/govcodes/pkg/logging"
	"github.com/AleutianAI/govcodes/pkg/ux"
	"github.com/AleutianAI/govcodes/services/afsc"
	"github.com/AleutianAI/govcodes/services/afsc/grammar"
	"github.com/AleutianAI/govcodes/services/afsc/observability"
)

// annotationSkipConfig marks commands that must run without reading the
// config file, such as the one that creates it.
const annotationSkipConfig = "govcodes/skip-config"

// app holds the flags and state shared by every command.
type app struct {
	// Global flags
	configPath      string
	envFile         string
	jsonOutput      bool
	logLevel        string
	personality     string
	searchPaths     []string
	disableEmbedded bool

	cfg     config.GovCodesConfig
	logger  *logging.Logger
	printer *ux.Printer
}

// newRootCmd builds the command tree. Each call returns an independent
// tree so tests can run commands in isolation.
func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "govcodes",
		Short: "Look up Air Force Specialty Codes and Reporting Identifiers",
		Long: `govcodes resolves enlisted AFSCs, officer AFSCs and Reporting
Identifiers to their titles, searches the reference data by prefix, and
serves the same lookups over HTTP.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Close()
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default ~/.govcodes/govcodes.yaml)")
	flags.StringVar(&a.envFile, "env-file", "", "dotenv file with GOVCODES_* overrides (default .env)")
	flags.BoolVar(&a.jsonOutput, "json", false, "output results as JSON")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&a.personality, "personality", "", "output style: full, minimal, machine")
	flags.StringArrayVar(&a.searchPaths, "search-path", nil, "directory with gov_codes/afsc overrides (repeatable)")
	flags.BoolVar(&a.disableEmbedded, "no-embedded", false, "ignore the embedded reference data")

	rootCmd.AddCommand(
		newFindCmd(a),
		newSearchCmd(a),
		newFamiliesCmd(a),
		newDataCmd(a),
		newServeCmd(a),
		newConfigCmd(a),
	)
	return rootCmd
}

// setup loads configuration, applies flag overrides and builds the logger
// and printer.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()
	if cmd.Annotations[annotationSkipConfig] != "true" {
		var err error
		cfg, _, err = config.Load(config.LoadOptions{Path: a.configPath, EnvFile: a.envFile})
		if err != nil {
			return err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("search-path") {
		cfg.Data.SearchPaths = a.searchPaths
	}
	if flags.Changed("no-embedded") {
		cfg.Data.DisableEmbedded = a.disableEmbedded
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}

	a.cfg = cfg
	return a.setupLogger(cmd)
}

// setupLogger builds the logger and printer from a.cfg.
func (a *app) setupLogger(cmd *cobra.Command) error {
	level, err := logging.ParseLevel(a.cfg.Log.Level)
	if err != nil {
		return err
	}
	a.logger = logging.New(logging.Config{
		Level:  level,
		LogDir: a.cfg.Log.Dir,
		JSON:   a.cfg.Log.JSON,
		Output: cmd.ErrOrStderr(),
	})
	a.printer = ux.NewPrinter(cmd.OutOrStdout(), ux.DetectLevel(cmd.OutOrStdout(), a.personality))
	return nil
}

// engineConfig maps the loaded configuration onto afsc.Config.
func (a *app) engineConfig(metrics *observability.Metrics) afsc.Config {
	return afsc.Config{
		SearchPaths:       a.cfg.Data.SearchPaths,
		DisableEmbedded:   a.cfg.Data.DisableEmbedded,
		Qualification:     grammar.ParseQualificationClass(a.cfg.Officer.Qualification),
		LegacySkillLevels: a.cfg.Enlisted.LegacySkillLevels,
		AllowTrailing:     a.cfg.Lookup.AllowTrailing,
		CacheSize:         a.cfg.Lookup.CacheSize,
		Logger:            a.logger,
		Metrics:           metrics,
	}
}

func (a *app) newEngine(ctx context.Context, metrics *observability.Metrics) (*afsc.Engine, error) {
	engine, err := afsc.New(ctx, a.engineConfig(metrics))
	if err != nil {
		return nil, fmt.Errorf("loading reference data: %w", err)
	}
	return engine, nil
}
