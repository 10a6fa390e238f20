/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * http://www.nethesis.it - info@nethesis.it
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */

package report

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nethesis/store-verify/internal/differ"
	"github.com/nethesis/store-verify/internal/document"
)

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"orders":        "orders",
		"orders/v2":     "orders_v2",
		"../../etc":     "etc",
		"___":           "collection",
		"a..b--c__d":    "a..b--c__d",
		".leading_dot":  "leading_dot",
	}
	for in, want := range cases {
		assert.Equal(t, want, sanitizeFilename(in), in)
	}
}

func TestJournalTruncateThenAppend(t *testing.T) {
	dir := t.TempDir()
	j := NewJournal(dir)

	require.NoError(t, j.Truncate("orders"))
	diffs := []differ.Diff{{Path: "v", Kind: differ.KindValueMismatch, Source: document.Int(1), Target: document.Int(2)}}
	require.NoError(t, j.Append("orders", "_id", document.Int(7), diffs, document.Document{"v": document.Int(1)}, document.Document{"v": document.Int(2)}))
	require.NoError(t, j.Close())

	path := filepath.Join(dir, "orders_mismatches.jsonl")
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lines := 0
	for scanner.Scan() {
		if scanner.Text() != "" {
			lines++
		}
	}
	assert.Equal(t, 1, lines)
}

func TestJournalTruncateClearsPreviousRun(t *testing.T) {
	dir := t.TempDir()
	j := NewJournal(dir)

	require.NoError(t, j.Truncate("orders"))
	require.NoError(t, j.Append("orders", "_id", document.Int(1), []differ.Diff{{Path: "v", Kind: differ.KindValueMismatch}}, nil, nil))
	require.NoError(t, j.Close())

	j2 := NewJournal(dir)
	require.NoError(t, j2.Truncate("orders"))
	require.NoError(t, j2.Close())

	path := filepath.Join(dir, "orders_mismatches.jsonl")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)
}
