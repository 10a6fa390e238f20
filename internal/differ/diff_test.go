/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * http://www.nethesis.it - info@nethesis.it
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */

package differ

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nethesis/store-verify/internal/document"
)

func TestDiffIdenticalDocumentsYieldNoDiffs(t *testing.T) {
	d := document.Document{
		"_id": document.Int(1),
		"x":   document.FromDocument(document.Document{"v": document.Int(1)}),
	}
	assert.Empty(t, Diff(d, d, NewPolicy(nil, nil)))
}

func TestDiffExcludeBareAndDotted(t *testing.T) {
	a := document.Document{
		"_id": document.Int(1),
		"x":   document.FromDocument(document.Document{"_id": document.Int(2), "v": document.Int(1)}),
	}
	b := document.Document{
		"_id": document.Int(9),
		"x":   document.FromDocument(document.Document{"_id": document.Int(10), "v": document.Int(1)}),
	}

	// S1, bare exclusion of "_id" at any depth.
	diffs := Diff(a, b, NewPolicy([]string{"_id"}, nil))
	assert.Empty(t, diffs)

	// S1, excluding an unrelated dotted path leaves the _id mismatches visible.
	diffs = Diff(a, b, NewPolicy([]string{"meta.etag"}, nil))
	require.Len(t, diffs, 2)

	byPath := map[string]Diff{}
	for _, d := range diffs {
		byPath[d.Path] = d
	}
	require.Contains(t, byPath, "_id")
	assert.Equal(t, KindValueMismatch, byPath["_id"].Kind)
	assert.Equal(t, int64(1), byPath["_id"].Source.Int)
	assert.Equal(t, int64(9), byPath["_id"].Target.Int)

	require.Contains(t, byPath, "x._id")
	assert.Equal(t, KindValueMismatch, byPath["x._id"].Kind)
	assert.Equal(t, int64(2), byPath["x._id"].Source.Int)
	assert.Equal(t, int64(10), byPath["x._id"].Target.Int)
}

func TestDiffPathReporting(t *testing.T) {
	a := document.Document{"a": document.FromDocument(document.Document{"b": document.Int(1)})}
	b := document.Document{"a": document.FromDocument(document.Document{"b": document.Int(2)})}

	diffs := Diff(a, b, NewPolicy(nil, nil))
	require.Len(t, diffs, 1)
	assert.Equal(t, "a.b", diffs[0].Path)
	assert.Equal(t, KindValueMismatch, diffs[0].Kind)
	assert.Equal(t, int64(1), diffs[0].Source.Int)
	assert.Equal(t, int64(2), diffs[0].Target.Int)
}

func TestDiffOrderInsensitiveArray(t *testing.T) {
	a := document.Document{"tags": document.Sequence([]document.Value{document.Int(1), document.Int(2), document.Int(2)})}
	b := document.Document{"tags": document.Sequence([]document.Value{document.Int(2), document.Int(1), document.Int(2)})}

	assert.Empty(t, Diff(a, b, NewPolicy(nil, []string{"tags"})))
	assert.NotEmpty(t, Diff(a, b, NewPolicy(nil, nil)))
}

func TestDiffTypeMismatch(t *testing.T) {
	a := document.Document{"v": document.Int(1)}
	b := document.Document{"v": document.String("1")}

	diffs := Diff(a, b, NewPolicy(nil, nil))
	require.Len(t, diffs, 1)
	assert.Equal(t, "v", diffs[0].Path)
	assert.Equal(t, KindTypeMismatch, diffs[0].Kind)
	assert.Equal(t, "int", diffs[0].Source.Str)
	assert.Equal(t, "string", diffs[0].Target.Str)
}

func TestDiffRootPathRendersAsDollar(t *testing.T) {
	a := document.Int(1)
	b := document.Int(2)
	var out []Diff
	walk(a, b, "", NewPolicy(nil, nil), &out)
	require.Len(t, out, 1)
	assert.Equal(t, "$", out[0].Path)
}

func TestDiffOrderedSequenceLengthMismatch(t *testing.T) {
	a := document.Document{"s": document.Sequence([]document.Value{document.Int(1), document.Int(2)})}
	b := document.Document{"s": document.Sequence([]document.Value{document.Int(1)})}

	diffs := Diff(a, b, NewPolicy(nil, nil))
	require.NotEmpty(t, diffs)
	assert.Equal(t, "len=2", diffs[0].Source.Str)
	assert.Equal(t, "len=1", diffs[0].Target.Str)
}

func TestDiffExcludedFieldsNeverAppearInOutput(t *testing.T) {
	a := document.Document{"secret": document.Int(1), "keep": document.Int(1)}
	b := document.Document{"secret": document.Int(2), "keep": document.Int(2)}

	diffs := Diff(a, b, NewPolicy([]string{"secret"}, nil))
	for _, d := range diffs {
		assert.NotContains(t, d.Path, "secret")
	}
	require.Len(t, diffs, 1)
	assert.Equal(t, "keep", diffs[0].Path)
}

func TestDiffIsDeterministic(t *testing.T) {
	a := document.Document{"a": document.Int(1), "b": document.Int(2), "c": document.Int(3)}
	b := document.Document{"a": document.Int(9), "b": document.Int(9), "c": document.Int(9)}

	first := Diff(a, b, NewPolicy(nil, nil))
	second := Diff(a, b, NewPolicy(nil, nil))
	assert.Equal(t, first, second)
}
