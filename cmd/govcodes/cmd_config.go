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
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/govcodes/cmd/govcodes/config"
)

const redacted = "<redacted>"

func newConfigCmd(a *app) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the govcodes configuration file",
	}
	configCmd.AddCommand(
		&cobra.Command{
			Use:   "init",
			Short: "Write the default configuration file",
			Long: `Writes the default configuration to --config, or to
~/.govcodes/govcodes.yaml. An existing file is never overwritten.`,
			Args:        cobra.NoArgs,
			Annotations: map[string]string{annotationSkipConfig: "true"},
			RunE:        a.runConfigInit,
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Long:  "Prints the configuration after defaults, the file, GOVCODES_* variables and flags are applied.",
			Args:  cobra.NoArgs,
			RunE:  a.runConfigShow,
		},
	)
	return configCmd
}

func (a *app) runConfigInit(cmd *cobra.Command, args []string) error {
	path := a.configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := config.WriteDefault(path); err != nil {
		return err
	}
	a.printer.Success("wrote " + path)
	return nil
}

func (a *app) runConfigShow(cmd *cobra.Command, args []string) error {
	cfg := a.cfg
	if cfg.Server.ReloadToken != "" {
		cfg.Server.ReloadToken = redacted
	}
	if a.jsonOutput {
		return OutputResult(cmd.OutOrStdout(), "config show", time.Now(), cfg)
	}
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}
