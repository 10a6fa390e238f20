/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * http://www.nethesis.it - info@nethesis.it
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */

package config

import "fmt"

// Validate applies the §6 schema and referential rules. All errors are
// *ConfigurationError and are expected to abort before any driver I/O.
func Validate(cfg *Config) error {
	if cfg.Cosmos.API != "mongo" && cfg.Cosmos.API != "sql" {
		return &ConfigurationError{Field: "cosmos.api", Msg: fmt.Sprintf("must be \"mongo\" or \"sql\", got %q", cfg.Cosmos.API)}
	}
	if cfg.Cosmos.Database == "" {
		return &ConfigurationError{Field: "cosmos.database", Msg: "is required"}
	}
	if cfg.Cosmos.API == "mongo" && cfg.Cosmos.URI == "" {
		return &ConfigurationError{Field: "cosmos.uri", Msg: "is required when cosmos.api is \"mongo\""}
	}
	if cfg.Cosmos.API == "sql" && (cfg.Cosmos.Endpoint == "" || cfg.Cosmos.Key == "") {
		return &ConfigurationError{Field: "cosmos.endpoint/key", Msg: "are required when cosmos.api is \"sql\""}
	}

	if cfg.MongoDB.URI == "" {
		return &ConfigurationError{Field: "mongodb.uri", Msg: "is required"}
	}
	if cfg.MongoDB.Database == "" {
		return &ConfigurationError{Field: "mongodb.database", Msg: "is required"}
	}

	if err := validateSampling(cfg.Sampling); err != nil {
		return err
	}

	if cfg.Logging.OutputDir == "" {
		return &ConfigurationError{Field: "logging.output_dir", Msg: "is required"}
	}

	for name, policy := range cfg.Collections {
		if policy.IsEnabled() && policy.BusinessKey == "" {
			return &ConfigurationError{Field: fmt.Sprintf("collections.%s.business_key", name), Msg: "is required when enabled (an explicit collection entry does not inherit collection_defaults.business_key)"}
		}
	}

	return nil
}

func validateSampling(s SamplingConfig) error {
	hasPercentage := s.Percentage > 0
	hasCount := s.Count > 0
	if hasPercentage == hasCount {
		return &ConfigurationError{Field: "sampling", Msg: "exactly one of percentage or count must be set"}
	}
	if hasPercentage && (s.Percentage <= 0 || s.Percentage > 100) {
		return &ConfigurationError{Field: "sampling.percentage", Msg: "must be in (0, 100]"}
	}
	if hasCount && s.Count < 1 {
		return &ConfigurationError{Field: "sampling.count", Msg: "must be >= 1"}
	}

	switch s.Mode {
	case "", "auto", "deterministic", "fast", "bucket":
	default:
		return &ConfigurationError{Field: "sampling.mode", Msg: fmt.Sprintf("unknown mode %q", s.Mode)}
	}

	hasBucketField := s.BucketField != ""
	hasBucketModulus := s.BucketModulus > 0
	if hasBucketField != hasBucketModulus {
		return &ConfigurationError{Field: "sampling.bucket_field/bucket_modulus", Msg: "must both be present or both absent"}
	}
	if s.Mode == "bucket" && !hasBucketField {
		return &ConfigurationError{Field: "sampling.mode", Msg: "mode=bucket requires bucket_field and bucket_modulus"}
	}
	if hasBucketModulus && s.BucketModulus <= 1 {
		return &ConfigurationError{Field: "sampling.bucket_modulus", Msg: "must be > 1"}
	}
	if s.BucketCount > 0 && hasBucketModulus && s.BucketCount > s.BucketModulus {
		return &ConfigurationError{Field: "sampling.bucket_count", Msg: "must be <= bucket_modulus"}
	}

	if s.DeterministicScanLogEvery < 0 {
		return &ConfigurationError{Field: "sampling.deterministic_scan_log_every", Msg: "must be > 0"}
	}
	if s.DeterministicMaxScanKeys < 0 {
		return &ConfigurationError{Field: "sampling.deterministic_max_scan_keys", Msg: "must be > 0"}
	}
	if s.SourceLookupConcurrency < 0 || s.CompareConcurrency < 0 || s.CompareLogEvery < 0 {
		return &ConfigurationError{Field: "sampling", Msg: "concurrency and log-interval knobs must be positive"}
	}
	if s.CosmosRetryMaxAttempts < 0 || s.CosmosRetryBaseDelayMs < 0 {
		return &ConfigurationError{Field: "sampling", Msg: "cosmos retry knobs must be non-negative"}
	}

	return nil
}

// Defaulted returns a copy of s with every optional knob's documented
// default applied.
func Defaulted(s SamplingConfig) SamplingConfig {
	if s.Mode == "" {
		s.Mode = "auto"
	}
	if s.DeterministicScanLogEvery <= 0 {
		s.DeterministicScanLogEvery = 10000
	}
	if s.SourceLookupConcurrency <= 0 {
		s.SourceLookupConcurrency = 8
	}
	if s.CompareConcurrency <= 0 {
		s.CompareConcurrency = 8
	}
	if s.CompareLogEvery <= 0 {
		s.CompareLogEvery = 1000
	}
	if s.BucketCount <= 0 {
		s.BucketCount = 8
	}
	if s.CosmosRetryMaxAttempts <= 0 {
		s.CosmosRetryMaxAttempts = 6
	}
	if s.CosmosRetryBaseDelayMs <= 0 {
		s.CosmosRetryBaseDelayMs = 500
	}
	return s
}
