/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * http://www.nethesis.it - info@nethesis.it
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */

package compare

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nethesis/store-verify/internal/config"
	"github.com/nethesis/store-verify/internal/document"
	"github.com/nethesis/store-verify/internal/report"
	"github.com/nethesis/store-verify/internal/sourcedriver"
	"github.com/nethesis/store-verify/internal/targetdriver"
)

// fakeSource and fakeTarget implement just enough of their driver
// interfaces to drive the orchestrator end to end over fixed in-memory
// document sets.

type fakeSource struct {
	docs []document.Document
}

func (f *fakeSource) ListCollections(ctx context.Context) ([]string, error) { return nil, nil }
func (f *fakeSource) CountDocuments(ctx context.Context, collection string) (int64, error) {
	return int64(len(f.docs)), nil
}
func (f *fakeSource) SampleDocuments(ctx context.Context, collection string, n int64) ([]document.Document, error) {
	if n >= int64(len(f.docs)) {
		return f.docs, nil
	}
	return f.docs[:n], nil
}
func (f *fakeSource) SampleDocumentsByBuckets(ctx context.Context, collection, bucketField string, buckets []int, n int64) ([]document.Document, error) {
	return nil, sourcedriver.ErrUnsupported
}
func (f *fakeSource) IterBusinessKeys(ctx context.Context, collection, keyPath string) (sourcedriver.KeyIterator, error) {
	return &fakeIter{docs: f.docs, keyPath: keyPath}, nil
}
func (f *fakeSource) FindByBusinessKey(ctx context.Context, collection, keyPath string, value document.Value) (document.Document, error) {
	for _, d := range f.docs {
		if v, ok := d[keyPath]; ok && v.Equal(value) {
			return d, nil
		}
	}
	return nil, nil
}
func (f *fakeSource) Close(ctx context.Context) error { return nil }

type fakeIter struct {
	docs    []document.Document
	keyPath string
	pos     int
}

func (it *fakeIter) Next(ctx context.Context) (document.Value, bool) {
	for it.pos < len(it.docs) {
		d := it.docs[it.pos]
		it.pos++
		if v, ok := d[it.keyPath]; ok {
			return v, true
		}
	}
	return document.Null(), false
}
func (it *fakeIter) Err() error   { return nil }
func (it *fakeIter) Close() error { return nil }

type fakeTarget struct {
	docs []document.Document
}

func (f *fakeTarget) CountDocuments(ctx context.Context, collection string) (int64, error) {
	return int64(len(f.docs)), nil
}
func (f *fakeTarget) FindByBusinessKey(ctx context.Context, collection, keyPath string, value document.Value) (document.Document, error) {
	for _, d := range f.docs {
		if v, ok := d[keyPath]; ok && v.Equal(value) {
			return d, nil
		}
	}
	return nil, nil
}
func (f *fakeTarget) Close(ctx context.Context) error { return nil }

func TestRunPipelineAccounting(t *testing.T) {
	var sourceDocs []document.Document
	for i := 0; i < 10; i++ {
		sourceDocs = append(sourceDocs, document.Document{"id": document.Int(int64(i))})
	}
	var targetDocs []document.Document
	for i := 0; i < 8; i++ {
		targetDocs = append(targetDocs, document.Document{"id": document.Int(int64(i))})
	}

	src := &fakeSource{docs: sourceDocs}
	tgt := &fakeTarget{docs: targetDocs}

	cfg := &config.Config{
		Sampling: config.SamplingConfig{Count: 10, Mode: "deterministic", CompareConcurrency: 4, CompareLogEvery: 1000},
		CollectionDefaults: config.CollectionPolicy{
			BusinessKey: "id",
		},
		Collections: map[string]config.CollectionPolicy{
			"orders": {BusinessKey: "id"},
		},
		Logging: config.LoggingConfig{OutputDir: t.TempDir()},
	}
	seed := uint32(42)
	cfg.Sampling.Seed = &seed

	journal := report.NewJournal(cfg.Logging.OutputDir)
	defer journal.Close()

	stats, err := Run(context.Background(), "orders", cfg, src, tgt, journal, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, int64(10), stats.Sampled)
	assert.Equal(t, int64(8), stats.FoundInBoth)
	assert.Equal(t, int64(2), stats.MissingInTarget)
	assert.Equal(t, int64(8), stats.Matched)
	assert.Equal(t, int64(0), stats.Mismatched)
	assert.True(t, stats.Valid())
}

func TestRunFailsFastWithoutBusinessKey(t *testing.T) {
	src := &fakeSource{}
	tgt := &fakeTarget{}
	cfg := &config.Config{
		Sampling:           config.SamplingConfig{Count: 1},
		CollectionDefaults: config.CollectionPolicy{},
		Collections:        map[string]config.CollectionPolicy{"orders": {}},
		Logging:            config.LoggingConfig{OutputDir: t.TempDir()},
	}
	journal := report.NewJournal(cfg.Logging.OutputDir)
	defer journal.Close()

	_, err := Run(context.Background(), "orders", cfg, src, tgt, journal, zerolog.Nop())
	require.Error(t, err)
	var nbk *NoBusinessKeyError
	assert.ErrorAs(t, err, &nbk)
}

var _ targetdriver.Driver = (*fakeTarget)(nil)
var _ sourcedriver.Driver = (*fakeSource)(nil)
