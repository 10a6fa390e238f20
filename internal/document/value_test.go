/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * http://www.nethesis.it - info@nethesis.it
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */

package document

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"null == null", Null(), Null(), true},
		{"same int", Int(3), Int(3), true},
		{"different int", Int(3), Int(4), false},
		{"int vs float never equal", Int(1), Float(1), false},
		{"same string", String("a"), String("a"), true},
		{"nested documents", FromDocument(Document{"a": Int(1)}), FromDocument(Document{"a": Int(1)}), true},
		{"nested documents differ", FromDocument(Document{"a": Int(1)}), FromDocument(Document{"a": Int(2)}), false},
		{"sequences in order", Sequence([]Value{Int(1), Int(2)}), Sequence([]Value{Int(1), Int(2)}), true},
		{"sequences out of order", Sequence([]Value{Int(1), Int(2)}), Sequence([]Value{Int(2), Int(1)}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Equal(tt.b))
		})
	}
}

func TestCanonicalStability(t *testing.T) {
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	v := FromDocument(Document{
		"b": Int(2),
		"a": Int(1),
		"c": Sequence([]Value{Bool(true), Timestamp(ts)}),
	})

	first := Canonical(v)
	second := Canonical(v)
	require.Equal(t, first, second)

	// field insertion order must not affect the canonical form
	other := FromDocument(Document{
		"c": Sequence([]Value{Bool(true), Timestamp(ts)}),
		"a": Int(1),
		"b": Int(2),
	})
	assert.Equal(t, first, Canonical(other))
}

func TestHistogramsEqualIgnoresOrder(t *testing.T) {
	a := []Value{Int(1), Int(2), Int(2)}
	b := []Value{Int(2), Int(1), Int(2)}
	c := []Value{Int(1), Int(1), Int(2)}

	assert.True(t, HistogramsEqual(Histogram(a), Histogram(b)))
	assert.False(t, HistogramsEqual(Histogram(a), Histogram(c)))
}

func TestValueMarshalJSON(t *testing.T) {
	b, err := Bytes([]byte{0xde, 0xad}).MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `"dead"`, string(b))

	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b, err = Timestamp(ts).MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(b), "2025-06-01T12:00:00")

	b, err = Null().MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))
}
