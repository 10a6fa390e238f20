/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * http://www.nethesis.it - info@nethesis.it
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nethesis/store-verify/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(version.Get().String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
