/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * http://www.nethesis.it - info@nethesis.it
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */

package main

import (
	"os"

	"github.com/nethesis/store-verify/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(2)
	}
}
