/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * http://www.nethesis.it - info@nethesis.it
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */

// Package cli wires the cobra command tree: a root command carrying
// global flags, a run subcommand that drives the comparison, and a
// version subcommand.
package cli

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nethesis/store-verify/pkg/version"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "store-verify",
	Short: "Verify that a MongoDB store faithfully mirrors a Cosmos DB source",
	Long: `store-verify samples documents from a Cosmos DB source (either its
MongoDB-compatible API or its native SQL API) and its MongoDB mirror,
compares them structurally, and reports per-collection counts plus a
JSON-lines journal of every mismatch found.`,
	Version: version.Version,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yml", "path to the configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	_ = godotenv.Load()
	viper.AutomaticEnv()
}
