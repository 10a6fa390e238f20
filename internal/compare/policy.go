/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * http://www.nethesis.it - info@nethesis.it
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */

package compare

import (
	"github.com/nethesis/store-verify/internal/config"
	"github.com/nethesis/store-verify/internal/differ"
	"github.com/nethesis/store-verify/internal/sampling"
)

// diffPolicy builds a differ.Policy from a resolved collection policy.
func diffPolicy(cp config.CollectionPolicy) differ.Policy {
	return differ.NewPolicy(cp.ExcludeFields, cp.ArrayOrderInsensitivePaths)
}

// samplingPolicy builds a sampling.Policy from a defaulted sampling
// configuration.
func samplingPolicy(sc config.SamplingConfig) sampling.Policy {
	p := sampling.Policy{
		Mode:                      sampling.Mode(sc.Mode),
		UsePercentage:             sc.Percentage > 0,
		Percentage:                sc.Percentage,
		Count:                     sc.Count,
		BucketField:               sc.BucketField,
		BucketModulus:             sc.BucketModulus,
		BucketCount:               sc.BucketCount,
		DeterministicScanLogEvery: sc.DeterministicScanLogEvery,
		DeterministicMaxScanKeys:  sc.DeterministicMaxScanKeys,
		SourceLookupConcurrency:   sc.SourceLookupConcurrency,
	}
	if sc.Seed != nil {
		p.HasSeed = true
		p.Seed = *sc.Seed
	}
	return p
}
