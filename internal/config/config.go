/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * http://www.nethesis.it - info@nethesis.it
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */

// Package config defines the immutable configuration model loaded once
// at startup and handed to the engine: source/target store connection
// parameters, sampling knobs, logging destinations, and per-collection
// comparison policy.
package config

import "sort"

// Config is the top-level, immutable policy object the engine consumes.
type Config struct {
	Cosmos             CosmosConfig                `yaml:"cosmos"`
	MongoDB            MongoDBConfig                `yaml:"mongodb"`
	Sampling           SamplingConfig               `yaml:"sampling"`
	Logging            LoggingConfig                `yaml:"logging"`
	CollectionDefaults CollectionPolicy             `yaml:"collection_defaults"`
	Collections        map[string]CollectionPolicy  `yaml:"collections"`
}

// CosmosConfig describes the source store when it is Cosmos DB, either
// via its MongoDB-compatible API or its native SQL (Core) API.
type CosmosConfig struct {
	API      string `yaml:"api"` // "mongo" or "sql"
	Database string `yaml:"database"`
	URI      string `yaml:"uri,omitempty"`      // mongo API
	Endpoint string `yaml:"endpoint,omitempty"` // sql API
	Key      string `yaml:"key,omitempty"`      // sql API
}

// MongoDBConfig describes the target MongoDB store.
type MongoDBConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// SamplingConfig carries every knob from §6: exactly one of Percentage
// or Count must be set, everything else has a documented default.
type SamplingConfig struct {
	Percentage float64 `yaml:"percentage,omitempty"`
	Count      int64   `yaml:"count,omitempty"`
	Seed       *uint32 `yaml:"seed,omitempty"`
	Mode       string  `yaml:"mode,omitempty"` // auto, deterministic, fast, bucket

	DeterministicScanLogEvery int64 `yaml:"deterministic_scan_log_every,omitempty"`
	DeterministicMaxScanKeys  int64 `yaml:"deterministic_max_scan_keys,omitempty"`

	SourceLookupConcurrency int `yaml:"source_lookup_concurrency,omitempty"`
	CompareConcurrency      int `yaml:"compare_concurrency,omitempty"`
	CompareLogEvery         int `yaml:"compare_log_every,omitempty"`

	BucketField   string `yaml:"bucket_field,omitempty"`
	BucketModulus int    `yaml:"bucket_modulus,omitempty"`
	BucketCount   int    `yaml:"bucket_count,omitempty"`

	CosmosRetryMaxAttempts int `yaml:"cosmos_retry_max_attempts,omitempty"`
	CosmosRetryBaseDelayMs int `yaml:"cosmos_retry_base_delay_ms,omitempty"`
}

// LoggingConfig names the main log destination and the mismatch
// journal output directory.
type LoggingConfig struct {
	MainLog   string `yaml:"main_log"`
	OutputDir string `yaml:"output_dir"`
}

// CollectionPolicy is the per-collection (or default) comparison
// policy: whether the collection participates, its business key, and
// its diff exclusions/order-insensitive paths.
type CollectionPolicy struct {
	Enabled                 *bool    `yaml:"enabled,omitempty"`
	BusinessKey             string   `yaml:"business_key,omitempty"`
	ExcludeFields           []string `yaml:"exclude_fields,omitempty"`
	ArrayOrderInsensitivePaths []string `yaml:"array_order_insensitive_paths,omitempty"`
}

// IsEnabled reports whether the policy is enabled, defaulting to true
// when unset.
func (p CollectionPolicy) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// Resolve looks up the effective policy for name: an explicit entry if
// present, otherwise the collection defaults.
func (c Config) Resolve(name string) CollectionPolicy {
	if p, ok := c.Collections[name]; ok {
		return p
	}
	return c.CollectionDefaults
}

// CollectionNames returns the configured collection names in sorted
// order, used by the "default" invocation mode.
func (c Config) CollectionNames() []string {
	names := make([]string, 0, len(c.Collections))
	for name := range c.Collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
