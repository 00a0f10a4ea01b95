// Expo - Kitchen Order Ticket Synchronization
// Copyright 2026 Expo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/expokds/expo

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists config file locations in priority order; the
// first one found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/expo/config.yaml",
	"/etc/expo/config.yml",
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "EXPO_CONFIG_PATH"

// envPrefix is stripped from environment variables before mapping them
// onto config keys: EXPO_SLA_WARNING -> sla.warning.
const envPrefix = "EXPO_"

// sections are the top-level config keys used to split env var names.
var sections = []string{"server", "remote", "scope", "sync", "sla", "nats", "log"}

// Load builds the configuration from layered sources:
//
//  1. Built-in defaults (struct)
//  2. Optional YAML config file
//  3. EXPO_* environment variables (highest priority)
//
// The result is validated before being returned.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	processSliceFields(k)

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envTransform maps EXPO_SECTION_FIELD_NAME to section.field_name. Only
// the section prefix becomes a path separator; the rest of the name maps
// onto the field's snake_case koanf tag unchanged, so multi-word fields
// like EXPO_SLA_CHECK_INTERVAL resolve to sla.check_interval.
func envTransform(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	for _, section := range sections {
		if strings.HasPrefix(s, section+"_") {
			return section + "." + strings.TrimPrefix(s, section+"_")
		}
	}
	return s
}

// processSliceFields splits comma-separated env values into slices for
// fields typed []string. Env providers deliver plain strings; without
// this EXPO_SERVER_CORS_ORIGINS=a,b would unmarshal as a single origin.
func processSliceFields(k *koanf.Koanf) {
	for _, key := range []string{"server.cors_origins"} {
		if raw, ok := k.Get(key).(string); ok {
			parts := strings.Split(raw, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			_ = k.Set(key, parts)
		}
	}
}

// findConfigFile returns the first existing config file path, honoring
// the EXPO_CONFIG_PATH override, or "" when no file is present.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
		return ""
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
