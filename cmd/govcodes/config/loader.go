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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "GOVCODES_"

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadOptions controls where Load reads from.
type LoadOptions struct {
	// Path is an explicit config file. It must exist. When empty the
	// default path is used if present, and defaults otherwise.
	Path string

	// EnvFile is a dotenv file merged into the environment before
	// overrides are read. Existing variables win. Missing is not an error.
	// Default: ".env".
	EnvFile string
}

// Load builds the configuration.
//
// # Description
//
// Layers, lowest to highest: DefaultConfig, the YAML file, then
// GOVCODES_* environment variables (optionally seeded from a dotenv
// file). The result is validated.
//
// # Outputs
//
//   - GovCodesConfig: The merged configuration.
//   - string: The file that was read, or "" if none.
//   - error: Unreadable or invalid file, bad override, or failed validation.
func Load(opts LoadOptions) (GovCodesConfig, string, error) {
	cfg := DefaultConfig()

	path := opts.Path
	if path == "" {
		if p, err := DefaultPath(); err == nil {
			if _, err := os.Stat(p); err == nil {
				path = p
			}
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, "", fmt.Errorf("failed to read the config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, "", fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, path, fmt.Errorf("failed to read %s: %w", envFile, err)
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, path, err
	}

	if err := Validate(cfg); err != nil {
		return cfg, path, err
	}
	return cfg, path, nil
}

// Validate checks field constraints.
func Validate(cfg GovCodesConfig) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q (got %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}

// WriteDefault writes DefaultConfig to path, creating parent directories.
// An existing file is left alone and reported with fs.ErrExist.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s: %w", path, fs.ErrExist)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create the config directory %w", err)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func applyEnv(cfg *GovCodesConfig) error {
	if v, ok := lookupEnv("SEARCH_PATHS"); ok {
		cfg.Data.SearchPaths = filepath.SplitList(v)
	}
	if err := envBool("DISABLE_EMBEDDED", &cfg.Data.DisableEmbedded); err != nil {
		return err
	}
	if v, ok := lookupEnv("QUALIFICATION"); ok {
		cfg.Officer.Qualification = strings.ToLower(v)
	}
	if err := envBool("LEGACY_SKILL_LEVELS", &cfg.Enlisted.LegacySkillLevels); err != nil {
		return err
	}
	if err := envInt("CACHE_SIZE", &cfg.Lookup.CacheSize); err != nil {
		return err
	}
	if err := envBool("ALLOW_TRAILING", &cfg.Lookup.AllowTrailing); err != nil {
		return err
	}
	if v, ok := lookupEnv("LOG_LEVEL"); ok {
		cfg.Log.Level = strings.ToLower(v)
	}
	if err := envBool("LOG_JSON", &cfg.Log.JSON); err != nil {
		return err
	}
	if v, ok := lookupEnv("LOG_DIR"); ok {
		cfg.Log.Dir = v
	}
	if v, ok := lookupEnv("HOST"); ok {
		cfg.Server.Host = v
	}
	if err := envInt("PORT", &cfg.Server.Port); err != nil {
		return err
	}
	if v, ok := lookupEnv("RELOAD_TOKEN"); ok {
		cfg.Server.ReloadToken = v
	}
	return envBool("WATCH", &cfg.Server.Watch)
}

func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func envBool(key string, dst *bool) error {
	v, ok := lookupEnv(key)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	*dst = b
	return nil
}

func envInt(key string, dst *int) error {
	v, ok := lookupEnv(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	*dst = n
	return nil
}
