// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
)

// GovCodesConfig is the CLI and server configuration, read from
// ~/.govcodes/govcodes.yaml or the file named by --config.
type GovCodesConfig struct {
	// Data: where reference documents come from
	Data DataConfig `yaml:"data"`

	// Officer: officer grammar options
	Officer OfficerConfig `yaml:"officer"`

	// Enlisted: enlisted grammar options
	Enlisted EnlistedConfig `yaml:"enlisted"`

	// Lookup: cache and parse options shared by every family
	Lookup LookupConfig `yaml:"lookup"`

	// Log: console and file logging
	Log LogConfig `yaml:"log"`

	// Server: the HTTP API started by "govcodes serve"
	Server ServerConfig `yaml:"server"`
}

type DataConfig struct {
	SearchPaths     []string `yaml:"search_paths" validate:"dive,required"` // e.g. ["/etc/govcodes"]
	DisableEmbedded bool     `yaml:"disable_embedded"`
}

type OfficerConfig struct {
	// Qualification is "extended" ([0-4X-Z]) or "numeric" ([0-4]).
	Qualification string `yaml:"qualification" validate:"oneof=extended numeric"`
}

type EnlistedConfig struct {
	// LegacySkillLevels widens the skill level to [A-Z0-9].
	LegacySkillLevels bool `yaml:"legacy_skill_levels"`
}

type LookupConfig struct {
	CacheSize     int  `yaml:"cache_size" validate:"gte=0"` // 0 uses the library default
	AllowTrailing bool `yaml:"allow_trailing"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `yaml:"json"`
	Dir   string `yaml:"dir,omitempty"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port" validate:"min=1,max=65535"`

	// Watch reloads reference data when files under the search paths change.
	Watch bool `yaml:"watch"`

	// ReloadToken is the bearer token POST /v1/afsc/reload requires.
	// Empty leaves reload open, which is only safe on a loopback host.
	ReloadToken string `yaml:"reload_token,omitempty"`
}

// DefaultPath returns ~/.govcodes/govcodes.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".govcodes", "govcodes.yaml"), nil
}

func DefaultConfig() GovCodesConfig {
	return GovCodesConfig{
		Data: DataConfig{
			SearchPaths: []string{},
		},
		Officer: OfficerConfig{Qualification: "extended"},
		Lookup:  LookupConfig{CacheSize: 4096},
		Log:     LogConfig{Level: "info"},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8090,
		},
	}
}
