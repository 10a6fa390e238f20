/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * http://www.nethesis.it - info@nethesis.it
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */

package sampling

import (
	"context"
	"math/rand"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nethesis/store-verify/internal/document"
	"github.com/nethesis/store-verify/internal/sourcedriver"
)

// fakeKeyIterator replays a fixed slice of key values.
type fakeKeyIterator struct {
	values []document.Value
	pos    int
}

func (it *fakeKeyIterator) Next(ctx context.Context) (document.Value, bool) {
	if it.pos >= len(it.values) {
		return document.Null(), false
	}
	v := it.values[it.pos]
	it.pos++
	return v, true
}
func (it *fakeKeyIterator) Err() error   { return nil }
func (it *fakeKeyIterator) Close() error { return nil }

// fakeDriver implements sourcedriver.Driver over an in-memory key list,
// enough to exercise the deterministic sampling path.
type fakeDriver struct {
	keys []document.Value
}

func (f *fakeDriver) ListCollections(ctx context.Context) ([]string, error) { return nil, nil }
func (f *fakeDriver) CountDocuments(ctx context.Context, collection string) (int64, error) {
	return int64(len(f.keys)), nil
}
func (f *fakeDriver) SampleDocuments(ctx context.Context, collection string, n int64) ([]document.Document, error) {
	return nil, sourcedriver.ErrUnsupported
}
func (f *fakeDriver) SampleDocumentsByBuckets(ctx context.Context, collection, bucketField string, buckets []int, n int64) ([]document.Document, error) {
	return nil, sourcedriver.ErrUnsupported
}
func (f *fakeDriver) IterBusinessKeys(ctx context.Context, collection, keyPath string) (sourcedriver.KeyIterator, error) {
	return &fakeKeyIterator{values: f.keys}, nil
}
func (f *fakeDriver) FindByBusinessKey(ctx context.Context, collection, keyPath string, value document.Value) (document.Document, error) {
	return document.Document{keyPath: value}, nil
}
func (f *fakeDriver) Close(ctx context.Context) error { return nil }

func keysRange(n int) []document.Value {
	out := make([]document.Value, n)
	for i := 0; i < n; i++ {
		out[i] = document.Int(int64(i + 1))
	}
	return out
}

func shuffled(in []document.Value) []document.Value {
	out := make([]document.Value, len(in))
	copy(out, in)
	rand.New(rand.NewSource(1)).Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func selectedCanonicalSet(t *testing.T, docs []document.Document, keyPath string) map[string]struct{} {
	t.Helper()
	set := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		set[document.Canonical(d[keyPath])] = struct{}{}
	}
	return set
}

func TestSelectDeterministicKeysStableAcrossInputOrder(t *testing.T) {
	ascending := &fakeDriver{keys: keysRange(1000)}
	shuffledDriver := &fakeDriver{keys: shuffled(keysRange(1000))}

	policy := Policy{Mode: ModeDeterministic, HasSeed: true, Seed: 7, SourceLookupConcurrency: 4}

	a, err := Sample(context.Background(), ascending, "c", "id", 20, policy, zerolog.Nop())
	require.NoError(t, err)
	b, err := Sample(context.Background(), shuffledDriver, "c", "id", 20, policy, zerolog.Nop())
	require.NoError(t, err)

	require.Len(t, a, 20)
	require.Len(t, b, 20)
	assert.Equal(t, selectedCanonicalSet(t, a, "id"), selectedCanonicalSet(t, b, "id"))
}

func TestSelectDeterministicKeysRespectsScanCap(t *testing.T) {
	driver := &fakeDriver{keys: keysRange(1000)}
	policy := Policy{
		Mode:                     ModeDeterministic,
		HasSeed:                  true,
		Seed:                     7,
		DeterministicMaxScanKeys: 100,
		SourceLookupConcurrency:  4,
	}

	docs, err := Sample(context.Background(), driver, "c", "id", 20, policy, zerolog.Nop())
	require.NoError(t, err)
	for _, d := range docs {
		v := d["id"]
		require.Equal(t, document.KindInt, v.Kind)
		assert.LessOrEqual(t, v.Int, int64(100))
		assert.GreaterOrEqual(t, v.Int, int64(1))
	}
}

func TestSampleSizeGreaterThanTotalSelectsEveryKey(t *testing.T) {
	driver := &fakeDriver{keys: keysRange(10)}
	policy := Policy{Mode: ModeDeterministic, HasSeed: true, Seed: 1, SourceLookupConcurrency: 4}

	docs, err := Sample(context.Background(), driver, "c", "id", 50, policy, zerolog.Nop())
	require.NoError(t, err)
	assert.Len(t, docs, 10)
}

func TestPolicySampleSizeComputation(t *testing.T) {
	assert.Equal(t, int64(0), Policy{UsePercentage: true, Percentage: 10}.SampleSize(0))

	p := Policy{UsePercentage: true, Percentage: 10}
	assert.Equal(t, int64(10), p.SampleSize(100))
	assert.Equal(t, int64(1), p.SampleSize(5))

	c := Policy{Count: 20}
	assert.Equal(t, int64(20), c.SampleSize(1000))
	assert.Equal(t, int64(5), c.SampleSize(5))
}
