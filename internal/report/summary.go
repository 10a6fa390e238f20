/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * http://www.nethesis.it - info@nethesis.it
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */

package report

import "fmt"

// CollectionStats is the subset of compare.Stats the summary line
// needs; kept local to avoid report importing compare (which imports
// report for the journal).
type CollectionStats struct {
	Name                     string
	SourceTotal              int64
	TargetTotal              int64
	Sampled                  int64
	FoundInBoth              int64
	MissingInTarget          int64
	SourceMissingBusinessKey int64
	Matched                  int64
	Mismatched               int64
}

// SummaryLine renders the one-line-per-collection summary from §6.
func SummaryLine(s CollectionStats) string {
	missingInEither := s.MissingInTarget + s.SourceMissingBusinessKey
	return fmt.Sprintf(
		"%s | source_total=%d target_total=%d sampled=%d found_in_both=%d missing_in_either=%d "+
			"missing_in_target=%d source_missing_business_key=%d matched=%d mismatched=%d",
		s.Name, s.SourceTotal, s.TargetTotal, s.Sampled, s.FoundInBoth, missingInEither,
		s.MissingInTarget, s.SourceMissingBusinessKey, s.Matched, s.Mismatched,
	)
}
