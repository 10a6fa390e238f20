/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * http://www.nethesis.it - info@nethesis.it
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */

// Package sampling implements the sampling engine: given a collection, a
// business key, a desired sample size and a Policy, it produces a list
// of source documents chosen by one of four strategies (bucket,
// deterministic, fast, or a mode-resolved combination of the two).
package sampling

// Mode selects the sampling strategy.
type Mode string

const (
	ModeAuto          Mode = "auto"
	ModeDeterministic Mode = "deterministic"
	ModeFast          Mode = "fast"
	ModeBucket        Mode = "bucket"
)

// Policy carries every sampling knob from a collection's configuration.
type Policy struct {
	Mode Mode

	// Seed seeds the deterministic score function and is used only when
	// HasSeed is set (zero is a valid seed); otherwise a fresh seed is
	// minted when one is required.
	Seed     uint32
	HasSeed  bool

	// Exactly one of Percentage/Count is meaningful, selected by
	// UsePercentage.
	UsePercentage bool
	Percentage    float64
	Count         int64

	BucketField   string
	BucketModulus int
	BucketCount   int

	DeterministicScanLogEvery int64
	DeterministicMaxScanKeys  int64

	SourceLookupConcurrency int
}

// SampleSize computes the sample size from the source's total document
// count per §4.4: zero total samples nothing; otherwise the configured
// percentage or count is clamped to at least one and at most the total.
func (p Policy) SampleSize(sourceTotal int64) int64 {
	if sourceTotal == 0 {
		return 0
	}

	var raw int64
	if p.UsePercentage {
		raw = int64(float64(sourceTotal) * p.Percentage / 100.0)
	} else {
		raw = p.Count
	}

	if raw < 1 {
		raw = 1
	}
	if raw > sourceTotal {
		raw = sourceTotal
	}
	return raw
}

// HasBucketConfig reports whether bucket sampling parameters are present.
func (p Policy) HasBucketConfig() bool {
	return p.BucketField != "" && p.BucketModulus > 0
}
