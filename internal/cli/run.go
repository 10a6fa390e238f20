/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * http://www.nethesis.it - info@nethesis.it
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */

package cli

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/nethesis/store-verify/internal/compare"
	"github.com/nethesis/store-verify/internal/config"
	"github.com/nethesis/store-verify/internal/logger"
	"github.com/nethesis/store-verify/internal/report"
	"github.com/nethesis/store-verify/internal/retryutil"
	"github.com/nethesis/store-verify/internal/sourcedriver"
	"github.com/nethesis/store-verify/internal/targetdriver"
)

var (
	onlyCollection string
	runAll         bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Compare source and target stores and report mismatches",
	RunE:  runVerify,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&onlyCollection, "collection", "", "verify a single collection only")
	runCmd.Flags().BoolVar(&runAll, "all", false, "verify every collection the source lists that is also present in the config")
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg.Sampling = config.Defaulted(cfg.Sampling)

	// --verbose and logging.main_log promote the CLI's own settings into
	// the same LOG_LEVEL/LOG_OUTPUT/LOG_FILE_PATH variables InitFromEnv
	// reads, rather than duplicating its env-parsing by hand.
	if verbose {
		os.Setenv("LOG_LEVEL", string(logger.DebugLevel))
	}
	if cfg.Logging.MainLog != "" {
		os.Setenv("LOG_OUTPUT", string(logger.FileOutput))
		os.Setenv("LOG_FILE_PATH", cfg.Logging.MainLog)
	}
	log, err := logger.InitFromEnv("store-verify")
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}

	ctx := context.Background()

	src, closeSrc, err := buildSourceDriver(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("connecting to source store: %w", err)
	}
	defer closeSrc()

	tgt, closeTgt, err := buildTargetDriver(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("connecting to target store: %w", err)
	}
	defer closeTgt()

	journal := report.NewJournal(cfg.Logging.OutputDir)
	defer journal.Close()

	names, err := collectionsToRun(ctx, cfg, src)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return fmt.Errorf("no collections configured to verify")
	}

	var failures int
	for _, name := range names {
		stats, err := compare.Run(ctx, name, cfg, src, tgt, journal, log)
		if err != nil {
			log.Error().Str("error", logger.Sanitize(err.Error())).Str("collection", name).Msg("comparison failed")
			failures++
			continue
		}
		summary := report.SummaryLine(report.CollectionStats{
			Name:                     stats.Collection,
			SourceTotal:              stats.SourceTotal,
			TargetTotal:              stats.TargetTotal,
			Sampled:                  stats.Sampled,
			FoundInBoth:              stats.FoundInBoth,
			MissingInTarget:          stats.MissingInTarget,
			SourceMissingBusinessKey: stats.SourceMissingBusinessKey,
			Matched:                  stats.Matched,
			Mismatched:               stats.Mismatched,
		})
		log.Info().Msg(summary)
		if stats.Mismatched > 0 || stats.MissingInEither() > 0 {
			failures++
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d collection(s) reported mismatches or errors", failures)
	}
	return nil
}

// collectionsToRun resolves the three mutually exclusive invocation
// modes from §6: a single named collection, every collection the
// source reports (intersected with the config), or the config's own
// collection list.
func collectionsToRun(ctx context.Context, cfg *config.Config, src sourcedriver.Driver) ([]string, error) {
	if onlyCollection != "" {
		if _, ok := cfg.Collections[onlyCollection]; !ok {
			return nil, fmt.Errorf("collection %q is not present in the config", onlyCollection)
		}
		return []string{onlyCollection}, nil
	}
	if runAll {
		sourceNames, err := src.ListCollections(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing source collections: %w", err)
		}
		var names []string
		for _, name := range sourceNames {
			if _, ok := cfg.Collections[name]; ok {
				names = append(names, name)
			}
		}
		return names, nil
	}
	return cfg.CollectionNames(), nil
}

// clientOptions applies a URI plus, when the named environment variable
// is set to a truthy value, pins the TLS version to exactly 1.2 (both
// minimum and maximum) — some middleboxes misbehave on 1.3 and this lets
// an operator work around it without touching the config file.
func clientOptions(uri, forceTLS12Env string) *options.ClientOptions {
	opts := options.Client().ApplyURI(uri)
	if v := os.Getenv(forceTLS12Env); v == "1" || v == "true" {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12, MaxVersion: tls.VersionTLS12})
	}
	return opts
}

func retryPolicy(maxAttempts int, baseDelayMs int) retryutil.Policy {
	return retryutil.Policy{
		MaxAttempts: maxAttempts,
		BaseDelay:   time.Duration(baseDelayMs) * time.Millisecond,
	}
}

func buildSourceDriver(ctx context.Context, cfg *config.Config, log zerolog.Logger) (sourcedriver.Driver, func(), error) {
	policy := retryPolicy(cfg.Sampling.CosmosRetryMaxAttempts, cfg.Sampling.CosmosRetryBaseDelayMs)

	switch cfg.Cosmos.API {
	case "mongo":
		client, err := mongo.Connect(clientOptions(cfg.Cosmos.URI, "COSMOS_FORCE_TLS12"))
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to cosmos mongo api: %s", logger.Sanitize(err.Error()))
		}
		if err := client.Ping(ctx, nil); err != nil {
			return nil, nil, fmt.Errorf("pinging cosmos mongo api: %s", logger.Sanitize(err.Error()))
		}
		drv := sourcedriver.NewMongoDriver(client, cfg.Cosmos.Database, policy)
		return drv, func() { _ = client.Disconnect(ctx) }, nil
	case "sql":
		httpClient := &http.Client{Timeout: 30 * time.Second}
		drv, err := sourcedriver.NewCosmosSQLDriver(cfg.Cosmos.Endpoint, cfg.Cosmos.Key, cfg.Cosmos.Database, httpClient, policy)
		if err != nil {
			return nil, nil, fmt.Errorf("building cosmos sql client: %s", logger.Sanitize(err.Error()))
		}
		return drv, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported cosmos.api %q, expected \"mongo\" or \"sql\"", cfg.Cosmos.API)
	}
}

func buildTargetDriver(ctx context.Context, cfg *config.Config, log zerolog.Logger) (targetdriver.Driver, func(), error) {
	targetdriver.Preflight(ctx, cfg.MongoDB.URI, 10*time.Second, log)

	client, err := mongo.Connect(clientOptions(cfg.MongoDB.URI, "MONGODB_FORCE_TLS12"))
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to target mongodb: %s", logger.Sanitize(err.Error()))
	}

	policy := retryPolicy(cfg.Sampling.CosmosRetryMaxAttempts, cfg.Sampling.CosmosRetryBaseDelayMs)
	drv, err := targetdriver.NewMongoDriver(ctx, client, cfg.MongoDB.Database, policy, log)
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("%s", logger.Sanitize(err.Error()))
	}
	return drv, func() { _ = client.Disconnect(ctx) }, nil
}
