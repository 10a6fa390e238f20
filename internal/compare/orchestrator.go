/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * http://www.nethesis.it - info@nethesis.it
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */

package compare

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nethesis/store-verify/internal/config"
	"github.com/nethesis/store-verify/internal/differ"
	"github.com/nethesis/store-verify/internal/document"
	"github.com/nethesis/store-verify/internal/logger"
	"github.com/nethesis/store-verify/internal/report"
	"github.com/nethesis/store-verify/internal/sampling"
	"github.com/nethesis/store-verify/internal/sourcedriver"
	"github.com/nethesis/store-verify/internal/targetdriver"
)

// outcome is one compare-pool task's result, fed back to the single
// draining goroutine in arrival order.
type outcome struct {
	kind    outcomeKind
	keyVal  document.Value
	diffs   []differ.Diff
	sourceD document.Document
	targetD document.Document
}

type outcomeKind int

const (
	outcomeMatch outcomeKind = iota
	outcomeMismatch
	outcomeMissing
)

// Run executes the full per-collection pipeline described in §4.5: it
// resolves policy, truncates the journal, queries counts, samples,
// compares concurrently, and returns the accumulated statistics.
// Diagnostics are logged at each phase boundary.
func Run(ctx context.Context, name string, cfg *config.Config, src sourcedriver.Driver, tgt targetdriver.Driver, journal *report.Journal, log zerolog.Logger) (Stats, error) {
	stats := Stats{Collection: name}
	clog := logger.Component(log, "compare").With().Str("collection", name).Logger()

	policy := cfg.Resolve(name)
	if !policy.IsEnabled() {
		clog.Info().Msg("collection disabled, skipping")
		return stats, nil
	}
	// policy is already the resolved effective policy for name (an
	// explicit collections[name] entry, or collection_defaults when no
	// such entry exists) — its BusinessKey is final, not merged further.
	businessKey := policy.BusinessKey
	if businessKey == "" {
		return stats, &NoBusinessKeyError{Collection: name}
	}

	if err := journal.Truncate(name); err != nil {
		return stats, &FatalRuntimeError{Collection: name, Err: err}
	}

	phaseStart := time.Now()
	sourceTotal, err := src.CountDocuments(ctx, name)
	if err != nil {
		return stats, &FatalRuntimeError{Collection: name, Err: fmt.Errorf("counting source documents: %w", err)}
	}
	targetTotal, err := tgt.CountDocuments(ctx, name)
	if err != nil {
		return stats, &FatalRuntimeError{Collection: name, Err: fmt.Errorf("counting target documents: %w", err)}
	}
	stats.SourceTotal = sourceTotal
	stats.TargetTotal = targetTotal
	countElapsed := time.Since(phaseStart)

	sc := config.Defaulted(cfg.Sampling)
	sp := samplingPolicy(sc)
	sampleSize := sp.SampleSize(sourceTotal)

	phaseStart = time.Now()
	sampledDocs, err := sampling.Sample(ctx, src, name, businessKey, sampleSize, sp, clog)
	if err != nil {
		return stats, &FatalRuntimeError{Collection: name, Err: fmt.Errorf("sampling: %w", err)}
	}
	stats.Sampled = int64(len(sampledDocs))
	sampleElapsed := time.Since(phaseStart)

	dp := diffPolicy(policy)
	compareConcurrency := sc.CompareConcurrency
	compareLogEvery := sc.CompareLogEvery

	phaseStart = time.Now()
	if err := drive(ctx, sampledDocs, businessKey, name, tgt, dp, compareConcurrency, compareLogEvery, &stats, journal, clog); err != nil {
		return stats, &FatalRuntimeError{Collection: name, Err: err}
	}
	compareElapsed := time.Since(phaseStart)

	clog.Info().
		Int64("source_total", stats.SourceTotal).
		Int64("target_total", stats.TargetTotal).
		Int64("sampled", stats.Sampled).
		Int64("found_in_both", stats.FoundInBoth).
		Int64("missing_in_either", stats.MissingInEither()).
		Int64("missing_in_target", stats.MissingInTarget).
		Int64("source_missing_business_key", stats.SourceMissingBusinessKey).
		Int64("matched", stats.Matched).
		Int64("mismatched", stats.Mismatched).
		Msg("collection comparison complete")

	clog.Info().
		Float64("count_seconds", countElapsed.Seconds()).
		Float64("sample_seconds", sampleElapsed.Seconds()).
		Float64("compare_seconds", compareElapsed.Seconds()).
		Float64("total_seconds", (countElapsed + sampleElapsed + compareElapsed).Seconds()).
		Msg("phase timings")

	return stats, nil
}

// drive builds candidates (step 5), fans comparisons out across a
// bounded worker pool (step 6), and drains results in arrival order
// (step 7), updating stats and appending journal records.
func drive(
	ctx context.Context,
	sampledDocs []document.Document,
	businessKey, collection string,
	tgt targetdriver.Driver,
	dp differ.Policy,
	concurrency, logEvery int,
	stats *Stats,
	journal *report.Journal,
	log zerolog.Logger,
) error {
	if concurrency <= 0 {
		concurrency = 8
	}
	if logEvery <= 0 {
		logEvery = 1000
	}

	type candidate struct {
		doc    document.Document
		keyVal document.Value
	}
	var candidates []candidate
	for _, doc := range sampledDocs {
		v, ok := doc[businessKey]
		if !ok {
			stats.SourceMissingBusinessKey++
			continue
		}
		candidates = append(candidates, candidate{doc: doc, keyVal: v})
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The buffer holds every candidate's outcome, so no task blocks on
	// send while this goroutine is still launching tasks.
	results := make(chan outcome, len(candidates))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	var firstErr error
	var errMu sync.Mutex

	for _, c := range candidates {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(c candidate) {
			defer wg.Done()
			defer func() { <-sem }()

			targetDoc, err := tgt.FindByBusinessKey(ctx, collection, businessKey, c.keyVal)
			if err != nil {
				errMu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				errMu.Unlock()
				cancel()
				return
			}
			if targetDoc == nil {
				results <- outcome{kind: outcomeMissing, keyVal: c.keyVal}
				return
			}

			diffs := differ.Diff(c.doc, targetDoc, dp)
			if len(diffs) == 0 {
				results <- outcome{kind: outcomeMatch, keyVal: c.keyVal}
			} else {
				results <- outcome{kind: outcomeMismatch, keyVal: c.keyVal, diffs: diffs, sourceD: c.doc, targetD: targetDoc}
			}
		}(c)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var drained int64
	start := time.Now()
	for r := range results {
		switch r.kind {
		case outcomeMatch:
			stats.FoundInBoth++
			stats.Matched++
		case outcomeMismatch:
			stats.FoundInBoth++
			stats.Mismatched++
			if err := journal.Append(collection, businessKey, r.keyVal, r.diffs, r.sourceD, r.targetD); err != nil {
				return fmt.Errorf("appending journal record: %w", err)
			}
		case outcomeMissing:
			stats.MissingInTarget++
		}

		drained++
		if drained%int64(logEvery) == 0 {
			elapsed := time.Since(start).Seconds()
			rate := float64(drained) / elapsed
			log.Info().Int64("processed", drained).Float64("elapsed_seconds", elapsed).Float64("docs_per_sec", rate).Msg("compare progress")
		}
	}

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}
