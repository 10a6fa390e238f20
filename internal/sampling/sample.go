/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * http://www.nethesis.it - info@nethesis.it
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */

package sampling

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"sync"

	"github.com/rs/zerolog"

	"github.com/nethesis/store-verify/internal/document"
	"github.com/nethesis/store-verify/internal/logger"
	"github.com/nethesis/store-verify/internal/sourcedriver"
)

// Sample produces up to sampleSize documents from collection according
// to policy, following the strategy order from §4.4: bucket sampling
// when configured, then mode resolution between deterministic and fast,
// then a concurrency-bounded point-lookup fan-out for any keys selected
// by the deterministic path.
func Sample(ctx context.Context, src sourcedriver.Driver, collection, businessKey string, sampleSize int64, policy Policy, log zerolog.Logger) ([]document.Document, error) {
	log = logger.Component(log, "sampling")

	if sampleSize <= 0 {
		return nil, nil
	}

	if policy.HasBucketConfig() {
		docs, err := sampleByBuckets(ctx, src, collection, sampleSize, policy, log)
		if err != nil {
			return nil, err
		}
		if len(docs) > 0 {
			return docs, nil
		}
		if policy.Mode != ModeBucket {
			return docs, nil
		}
		log.Warn().Str("collection", collection).Msg("bucket sampling returned nothing, demoting to deterministic")
	}

	mode := policy.Mode
	if mode == ModeAuto {
		if policy.HasSeed {
			mode = ModeDeterministic
		} else {
			mode = ModeFast
		}
	}
	if policy.HasBucketConfig() && mode == ModeBucket {
		mode = ModeDeterministic
	}

	if mode == ModeFast {
		docs, err := src.SampleDocuments(ctx, collection, sampleSize)
		if err == nil {
			return docs, nil
		}
		log.Warn().Err(err).Str("collection", collection).Msg("fast sampling failed, falling back to deterministic")
	}

	keys, err := selectDeterministicKeys(ctx, src, collection, businessKey, sampleSize, policy, log)
	if err != nil {
		return nil, err
	}
	return fetchByKeys(ctx, src, collection, businessKey, keys, policy, log)
}

func sampleByBuckets(ctx context.Context, src sourcedriver.Driver, collection string, sampleSize int64, policy Policy, log zerolog.Logger) ([]document.Document, error) {
	seed := policy.Seed
	if !policy.HasSeed {
		seed = freshSeed()
	}

	ids := rankBucketIDs(seed, policy.BucketModulus)
	groupSize := policy.BucketCount
	if groupSize <= 0 {
		groupSize = 8
	}
	groups := groupsOf(ids, groupSize)

	seen := make(map[string]struct{})
	var collected []document.Document

	for _, group := range groups {
		remaining := sampleSize - int64(len(collected))
		if remaining <= 0 {
			break
		}
		docs, err := src.SampleDocumentsByBuckets(ctx, collection, policy.BucketField, group, remaining)
		if err != nil {
			if err == sourcedriver.ErrUnsupported {
				log.Warn().Str("collection", collection).Msg("bucket sampling unsupported by source driver")
				return nil, nil
			}
			return nil, err
		}
		for _, d := range docs {
			key := document.Canonical(document.FromDocument(d))
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			collected = append(collected, d)
			if int64(len(collected)) >= sampleSize {
				break
			}
		}
	}

	return collected, nil
}

func freshSeed() uint32 {
	var buf [4]byte
	_, _ = rand.Read(buf[:])
	return binary.BigEndian.Uint32(buf[:])
}

func selectDeterministicKeys(ctx context.Context, src sourcedriver.Driver, collection, businessKey string, sampleSize int64, policy Policy, log zerolog.Logger) ([]scoredKey, error) {
	seed := policy.Seed
	if !policy.HasSeed {
		seed = freshSeed()
		log.Info().Uint32("seed", seed).Str("collection", collection).Msg("minted deterministic sampling seed")
	}

	it, err := src.IterBusinessKeys(ctx, collection, businessKey)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	h := newTopKHeap(int(sampleSize))
	logEvery := policy.DeterministicScanLogEvery
	if logEvery <= 0 {
		logEvery = 10000
	}

	var scanned int64
	for {
		v, ok := it.Next(ctx)
		if !ok {
			break
		}
		if v.IsNull() {
			continue
		}
		scanned++
		h.Offer(v, score(seed, document.Canonical(v)))

		if policy.DeterministicMaxScanKeys > 0 && scanned >= policy.DeterministicMaxScanKeys {
			log.Warn().Int64("scanned", scanned).Str("collection", collection).Msg("deterministic scan cap reached")
			break
		}
		if scanned%logEvery == 0 {
			log.Info().Int64("scanned", scanned).Str("collection", collection).Msg("deterministic key scan progress")
		}
	}
	if err := it.Err(); err != nil {
		return nil, err
	}

	return h.SortedAscending(), nil
}

func fetchByKeys(ctx context.Context, src sourcedriver.Driver, collection, businessKey string, keys []scoredKey, policy Policy, log zerolog.Logger) ([]document.Document, error) {
	concurrency := policy.SourceLookupConcurrency
	if concurrency <= 0 {
		concurrency = 8
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, concurrency)
	results := make([]document.Document, len(keys))
	var wg sync.WaitGroup
	var firstErr error
	var errMu sync.Mutex

	for i, k := range keys {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, keyValue document.Value) {
			defer wg.Done()
			defer func() { <-sem }()

			doc, err := src.FindByBusinessKey(ctx, collection, businessKey, keyValue)
			if err != nil {
				errMu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				errMu.Unlock()
				cancel()
				return
			}
			results[i] = doc
		}(i, k.value)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]document.Document, 0, len(results))
	for _, d := range results {
		if d != nil {
			out = append(out, d)
		}
	}
	return out, nil
}
