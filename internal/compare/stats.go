/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * http://www.nethesis.it - info@nethesis.it
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */

// Package compare implements the per-collection compare orchestrator:
// it resolves policy, drives sampling, fans target lookups and diffs
// across a bounded worker pool, accumulates statistics, and appends
// mismatch journal records.
package compare

// Stats accumulates the §3 per-collection counters. It is owned by a
// single draining goroutine and never accessed concurrently, so it
// carries no internal locking.
type Stats struct {
	Collection              string
	SourceTotal             int64
	TargetTotal             int64
	Sampled                 int64
	FoundInBoth             int64
	MissingInTarget         int64
	SourceMissingBusinessKey int64
	Matched                 int64
	Mismatched              int64
}

// MissingInEither is the sum the summary log line reports.
func (s Stats) MissingInEither() int64 {
	return s.MissingInTarget + s.SourceMissingBusinessKey
}

// Valid checks the invariants from spec.md §3/§8 hold for a completed run.
func (s Stats) Valid() bool {
	if s.Matched+s.Mismatched != s.FoundInBoth {
		return false
	}
	if s.FoundInBoth+s.MissingInTarget+s.SourceMissingBusinessKey != s.Sampled {
		return false
	}
	return true
}
