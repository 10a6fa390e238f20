/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * http://www.nethesis.it - info@nethesis.it
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */

package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// varPattern matches ${VAR} occurrences expanded at load time.
var varPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads, expands, and parses the YAML configuration file at path,
// applying environment-variable overrides for the secrets named in §6.
// Expansion happens once at load time, never at use time.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, &ConfigurationError{Msg: "configuration file path is required"}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigurationError{Msg: fmt.Sprintf("reading configuration file %s: %v", path, err)}
	}

	expanded, err := expandEnv(raw)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, &ConfigurationError{Msg: fmt.Sprintf("parsing YAML configuration from %s: %v", path, err)}
	}

	applyEnvOverrides(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// expandEnv replaces every ${VAR} occurrence in raw with the value of
// the named environment variable. A missing referenced variable is a
// fatal configuration error, per §6.
func expandEnv(raw []byte) ([]byte, error) {
	var missing error
	out := varPattern.ReplaceAllFunc(raw, func(match []byte) []byte {
		name := varPattern.FindSubmatch(match)[1]
		val, ok := os.LookupEnv(string(name))
		if !ok {
			if missing == nil {
				missing = &ConfigurationError{Msg: fmt.Sprintf("referenced environment variable %q is not set", name)}
			}
			return match
		}
		return []byte(val)
	})
	if missing != nil {
		return nil, missing
	}
	return out, nil
}

// applyEnvOverrides applies the §6 secret overrides: a non-empty
// environment variable always wins over the file value.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("COSMOS_API"); v != "" {
		cfg.Cosmos.API = v
	}
	if v := os.Getenv("COSMOS_DATABASE"); v != "" {
		cfg.Cosmos.Database = v
	}
	if v := os.Getenv("COSMOS_URI"); v != "" {
		cfg.Cosmos.URI = v
	}
	if v := os.Getenv("COSMOS_ENDPOINT"); v != "" {
		cfg.Cosmos.Endpoint = v
	}
	if v := os.Getenv("COSMOS_KEY"); v != "" {
		cfg.Cosmos.Key = v
	}
	if v := os.Getenv("MONGODB_URI"); v != "" {
		cfg.MongoDB.URI = v
	}
	if v := os.Getenv("MONGODB_DATABASE"); v != "" {
		cfg.MongoDB.Database = v
	}
}
