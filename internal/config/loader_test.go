/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * http://www.nethesis.it - info@nethesis.it
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const validConfig = `
cosmos:
  api: mongo
  database: ${COSMOS_DB_NAME}
  uri: mongodb://cosmos.example.com/
mongodb:
  uri: mongodb://target.example.com/
  database: target
sampling:
  percentage: 5
logging:
  main_log: /var/log/store-verify.log
  output_dir: /var/log/store-verify
collection_defaults:
  business_key: _id
collections:
  orders:
    business_key: order_id
`

func TestLoadExpandsEnvironmentVariables(t *testing.T) {
	t.Setenv("COSMOS_DB_NAME", "expanded-db")
	path := writeConfig(t, validConfig)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "expanded-db", cfg.Cosmos.Database)
}

func TestLoadFailsOnMissingEnvironmentVariable(t *testing.T) {
	path := writeConfig(t, validConfig)
	_, err := Load(path)
	require.Error(t, err)
	var ce *ConfigurationError
	require.ErrorAs(t, err, &ce)
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("COSMOS_DB_NAME", "expanded-db")
	t.Setenv("MONGODB_URI", "mongodb://override.example.com/")
	path := writeConfig(t, validConfig)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mongodb://override.example.com/", cfg.MongoDB.URI)
}

func TestValidateRejectsBothPercentageAndCount(t *testing.T) {
	err := validateSampling(SamplingConfig{Percentage: 5, Count: 10})
	require.Error(t, err)
}

func TestValidateRejectsNeitherPercentageNorCount(t *testing.T) {
	err := validateSampling(SamplingConfig{})
	require.Error(t, err)
}

func TestValidateBucketModeRequiresBucketField(t *testing.T) {
	err := validateSampling(SamplingConfig{Percentage: 5, Mode: "bucket"})
	require.Error(t, err)
}

func TestValidateBucketCountMustNotExceedModulus(t *testing.T) {
	err := validateSampling(SamplingConfig{Percentage: 5, BucketField: "b", BucketModulus: 4, BucketCount: 10})
	require.Error(t, err)
}

func TestDefaultedFillsInKnobs(t *testing.T) {
	d := Defaulted(SamplingConfig{Percentage: 5})
	assert.Equal(t, "auto", d.Mode)
	assert.Equal(t, int64(10000), d.DeterministicScanLogEvery)
	assert.Equal(t, 8, d.SourceLookupConcurrency)
	assert.Equal(t, 8, d.CompareConcurrency)
	assert.Equal(t, 1000, d.CompareLogEvery)
	assert.Equal(t, 8, d.BucketCount)
	assert.Equal(t, 6, d.CosmosRetryMaxAttempts)
	assert.Equal(t, 500, d.CosmosRetryBaseDelayMs)
}
